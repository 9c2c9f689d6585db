package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"insomnia-keeper/internal/adapter/walletcli"
	"insomnia-keeper/internal/domain"
)

// operation is a wallet subcommand: the flags it requires and how it calls
// the client.
type operation struct {
	required []string
	call     func(ctx context.Context, c *walletcli.Client, f *opFlags) domain.WalletResult
}

var operations = map[string]operation{
	"create-wallet": {
		call: func(ctx context.Context, c *walletcli.Client, _ *opFlags) domain.WalletResult {
			return c.CreateWallet(ctx)
		},
	},
	"estimate-deploy-fee": {
		required: []string{"public-key", "secret-key"},
		call: func(ctx context.Context, c *walletcli.Client, f *opFlags) domain.WalletResult {
			return c.EstimateDeployFee(ctx, f.keys())
		},
	},
	"deploy-wallet": {
		required: []string{"public-key", "secret-key"},
		call: func(ctx context.Context, c *walletcli.Client, f *opFlags) domain.WalletResult {
			return c.DeployWallet(ctx, f.keys())
		},
	},
	"estimate-transfer-fee": {
		required: []string{"public-key", "secret-key", "to"},
		call: func(ctx context.Context, c *walletcli.Client, f *opFlags) domain.WalletResult {
			return c.EstimateTransferFee(ctx, f.transfer())
		},
	},
	"transfer": {
		required: []string{"public-key", "secret-key", "to"},
		call: func(ctx context.Context, c *walletcli.Client, f *opFlags) domain.WalletResult {
			return c.Transfer(ctx, f.transfer())
		},
	},
	"history": {
		required: []string{"address"},
		call: func(ctx context.Context, c *walletcli.Client, f *opFlags) domain.WalletResult {
			return c.GetHistory(ctx, f.address)
		},
	},
	"balance": {
		required: []string{"address"},
		call: func(ctx context.Context, c *walletcli.Client, f *opFlags) domain.WalletResult {
			return c.GetBalance(ctx, f.address)
		},
	},
}

// opFlags holds the parsed flags of a wallet subcommand. Optional transfer
// fields stay nil unless given on the command line.
type opFlags struct {
	config    string
	publicKey string
	secretKey string
	to        string
	address   string
	amount    *float64
	payload   *string
	sendMode  *int
	set       map[string]bool
}

func (f *opFlags) keys() domain.WalletKeys {
	return domain.WalletKeys{PublicKey: f.publicKey, SecretKey: f.secretKey}
}

func (f *opFlags) transfer() domain.TransferRequest {
	return domain.TransferRequest{
		WalletKeys: f.keys(),
		ToAddress:  f.to,
		Amount:     f.amount,
		Payload:    f.payload,
		SendMode:   f.sendMode,
	}
}

// parseOpFlags parses args for the named subcommand and checks its required
// flags. The secret key falls back to KEEPER_SECRET_KEY so it can be kept out
// of the process list.
func parseOpFlags(name string, args []string, stderr io.Writer) (*opFlags, error) {
	op, ok := operations[name]
	if !ok {
		return nil, fmt.Errorf("unknown command %q", name)
	}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)

	f := &opFlags{set: make(map[string]bool)}
	var (
		amount   float64
		payload  string
		sendMode int
	)
	fs.StringVar(&f.config, "config", "", "config file path")
	fs.StringVar(&f.publicKey, "public-key", "", "wallet public key (hex)")
	fs.StringVar(&f.secretKey, "secret-key", "", "wallet secret key (hex)")
	fs.StringVar(&f.to, "to", "", "transfer destination address")
	fs.StringVar(&f.address, "address", "", "wallet address")
	fs.Float64Var(&amount, "amount", domain.DefaultTransferAmount, "transfer amount")
	fs.StringVar(&payload, "payload", "", "transfer comment")
	fs.IntVar(&sendMode, "send-mode", 0, "transfer send mode")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	fs.Visit(func(fl *flag.Flag) { f.set[fl.Name] = true })

	if f.set["amount"] {
		f.amount = &amount
	}
	if f.set["payload"] {
		f.payload = &payload
	}
	if f.set["send-mode"] {
		f.sendMode = &sendMode
	}
	if f.secretKey == "" {
		if v := os.Getenv("KEEPER_SECRET_KEY"); v != "" {
			f.secretKey = v
			f.set["secret-key"] = true
		}
	}

	var missing []string
	for _, req := range op.required {
		if !f.set[req] {
			missing = append(missing, "--"+req)
		}
	}
	if len(missing) > 0 {
		return nil, domain.NewDomainError(name, domain.ErrInvalidInput, fmt.Sprintf("missing required flags: %v", missing))
	}
	return f, nil
}

// runOperation executes a wallet subcommand and writes the result envelope
// to stdout. It reports whether the wallet tool succeeded.
func runOperation(name string, args []string, stdout io.Writer) (bool, error) {
	f, err := parseOpFlags(name, args, os.Stderr)
	if err != nil {
		return false, err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfgPath := f.config
	if cfgPath == "" {
		cfgPath = defaultConfigPath()
	}
	a, err := newApp(ctx, cfgPath)
	if err != nil {
		return false, err
	}
	defer a.close()

	res := operations[name].call(ctx, a.client, f)
	if err := writeResult(stdout, res); err != nil {
		return false, err
	}
	return res.Success, nil
}

func writeResult(w io.Writer, res domain.WalletResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
