package walletcli

import (
	"context"

	"insomnia-keeper/internal/domain"
)

// Caller runs a single wallet tool operation. *Invoker implements it.
type Caller interface {
	Invoke(ctx context.Context, op domain.WalletOperation, args *Args) domain.WalletResult
}

// Client exposes the wallet tool's operations as typed methods.
type Client struct {
	caller          Caller
	defaultPayload  string
	defaultSendMode int
}

// ClientOption configures optional Client settings.
type ClientOption func(*Client)

// WithTransferDefaults overrides the payload and send mode used when a
// TransferRequest leaves them nil.
func WithTransferDefaults(payload string, sendMode int) ClientOption {
	return func(c *Client) {
		c.defaultPayload = payload
		c.defaultSendMode = sendMode
	}
}

// NewClient creates a Client backed by caller.
func NewClient(caller Caller, opts ...ClientOption) *Client {
	c := &Client{
		caller:          caller,
		defaultPayload:  domain.DefaultTransferPayload,
		defaultSendMode: domain.DefaultTransferSendMode,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateWallet generates a new key pair. On success the data decodes into
// domain.CreatedWallet.
func (c *Client) CreateWallet(ctx context.Context) domain.WalletResult {
	return c.caller.Invoke(ctx, domain.OpCreateWallet, NewArgs())
}

func (c *Client) EstimateDeployFee(ctx context.Context, keys domain.WalletKeys) domain.WalletResult {
	return c.caller.Invoke(ctx, domain.OpEstimateDeployFee, keyArgs(keys))
}

func (c *Client) DeployWallet(ctx context.Context, keys domain.WalletKeys) domain.WalletResult {
	return c.caller.Invoke(ctx, domain.OpDeployWallet, keyArgs(keys))
}

func (c *Client) EstimateTransferFee(ctx context.Context, req domain.TransferRequest) domain.WalletResult {
	return c.caller.Invoke(ctx, domain.OpEstimateTransferFee, c.transferArgs(req))
}

func (c *Client) Transfer(ctx context.Context, req domain.TransferRequest) domain.WalletResult {
	return c.caller.Invoke(ctx, domain.OpTransfer, c.transferArgs(req))
}

func (c *Client) GetHistory(ctx context.Context, address string) domain.WalletResult {
	return c.caller.Invoke(ctx, domain.OpGetHistory, NewArgs().Set(FlagAddress, address))
}

func (c *Client) GetBalance(ctx context.Context, address string) domain.WalletResult {
	return c.caller.Invoke(ctx, domain.OpGetBalance, NewArgs().Set(FlagAddress, address))
}

func keyArgs(keys domain.WalletKeys) *Args {
	return NewArgs().
		Set(FlagPublicKey, keys.PublicKey).
		Set(FlagSecretKey, keys.SecretKey)
}

func (c *Client) transferArgs(req domain.TransferRequest) *Args {
	if req.Payload == nil {
		p := c.defaultPayload
		req.Payload = &p
	}
	if req.SendMode == nil {
		m := c.defaultSendMode
		req.SendMode = &m
	}
	req = req.WithDefaults()
	return keyArgs(req.WalletKeys).
		Set(FlagToAddress, req.ToAddress).
		Set(FlagAmount, req.Amount).
		Set(FlagPayload, req.Payload).
		Set(FlagSendMode, req.SendMode)
}
