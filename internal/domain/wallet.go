package domain

import (
	"encoding/json"
	"fmt"
)

// WalletOperation names a function exposed by the external wallet tool.
// It is passed to the tool as the value of the --func flag.
type WalletOperation string

const (
	OpCreateWallet        WalletOperation = "createWallet"
	OpEstimateDeployFee   WalletOperation = "estimateDeployFee"
	OpDeployWallet        WalletOperation = "deployWallet"
	OpEstimateTransferFee WalletOperation = "estimateTransferFee"
	OpTransfer            WalletOperation = "transfer"
	OpGetHistory          WalletOperation = "getHistory"
	OpGetBalance          WalletOperation = "getBalance"
)

var walletOperations = map[WalletOperation]bool{
	OpCreateWallet:        true,
	OpEstimateDeployFee:   true,
	OpDeployWallet:        true,
	OpEstimateTransferFee: true,
	OpTransfer:            true,
	OpGetHistory:          true,
	OpGetBalance:          true,
}

// Valid reports whether o is one of the operations the wallet tool understands.
func (o WalletOperation) Valid() bool { return walletOperations[o] }

// Transfer defaults, used when a TransferRequest leaves the field nil.
const (
	DefaultTransferAmount   float64 = 0
	DefaultTransferPayload          = "Hello from Insomnia keeper"
	DefaultTransferSendMode         = 3
)

// WalletKeys identifies an existing wallet by its hex-encoded key pair.
type WalletKeys struct {
	PublicKey string
	SecretKey string
}

// TransferRequest describes an outgoing transfer or its fee estimate.
// Nil optional fields fall back to the Default* constants.
type TransferRequest struct {
	WalletKeys
	ToAddress string
	Amount    *float64
	Payload   *string
	SendMode  *int
}

// WithDefaults returns a copy of r with every nil optional field filled.
func (r TransferRequest) WithDefaults() TransferRequest {
	if r.Amount == nil {
		v := DefaultTransferAmount
		r.Amount = &v
	}
	if r.Payload == nil {
		v := DefaultTransferPayload
		r.Payload = &v
	}
	if r.SendMode == nil {
		v := DefaultTransferSendMode
		r.SendMode = &v
	}
	return r
}

// CreatedWallet is the data payload returned by createWallet.
type CreatedWallet struct {
	PublicKey string `json:"publicKey"`
	SecretKey string `json:"secretKey"`
	Address   string `json:"address"`
	Seqno     *int64 `json:"seqno"`
}

// WalletResult is the outcome of a single wallet tool invocation.
//
// On success Data holds the raw JSON of the envelope's "data" field. On
// failure Data holds whatever the tool wrote to stderr, which is empty when
// the failure came from an unreadable or unsuccessful envelope. Cause
// records why the call failed and is nil on success.
type WalletResult struct {
	Success bool
	Data    []byte
	Cause   error
}

// Decode unmarshals the data of a successful result into v.
func (r WalletResult) Decode(v any) error {
	if !r.Success {
		return fmt.Errorf("decode wallet result: %w", ErrEnvelopeFailure)
	}
	if err := json.Unmarshal(r.Data, v); err != nil {
		return fmt.Errorf("decode wallet result: %w", err)
	}
	return nil
}

// MarshalJSON renders the result as the {success, data} envelope. Failure
// data is emitted as a string since stderr is free-form text.
func (r WalletResult) MarshalJSON() ([]byte, error) {
	type envelope struct {
		Success bool `json:"success"`
		Data    any  `json:"data"`
	}
	out := envelope{Success: r.Success}
	switch {
	case r.Success && json.Valid(r.Data):
		out.Data = json.RawMessage(r.Data)
	case len(r.Data) > 0:
		out.Data = string(r.Data)
	}
	return json.Marshal(out)
}
