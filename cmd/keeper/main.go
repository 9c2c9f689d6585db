package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"insomnia-keeper/internal/adapter/walletcli"
	"insomnia-keeper/internal/domain"
	"insomnia-keeper/internal/infra/config"
	"insomnia-keeper/internal/infra/logger"
	"insomnia-keeper/internal/infra/tracer"
	"insomnia-keeper/internal/usecase/watch"
)

func main() {
	if len(os.Args) < 2 {
		showUsage()
		os.Exit(1)
	}

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "--help", "-h", "help":
		showUsage()
		return
	case "watch":
		if err := runWatch(args); err != nil {
			fmt.Fprintf(os.Stderr, "watch: %v\n", err)
			os.Exit(1)
		}
	case "encrypt":
		if err := runEncrypt(args, os.Stdin, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "encrypt: %v\n", err)
			os.Exit(1)
		}
	case "doctor":
		cfgPath, err := parseConfigFlag("doctor", args, os.Stderr)
		if err == nil {
			err = runDoctor(cfgPath, os.Stdout)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "doctor: %v\n", err)
			os.Exit(1)
		}
	default:
		if _, ok := operations[cmd]; !ok {
			fmt.Fprintf(os.Stderr, "unknown command: %s\n\nRun 'keeper --help' for usage information.\n", cmd)
			os.Exit(1)
		}
		ok, err := runOperation(cmd, args, os.Stdout)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", cmd, err)
			os.Exit(1)
		}
		if !ok {
			os.Exit(1)
		}
	}
}

func showUsage() {
	fmt.Println(`keeper - wallet tool adapter

USAGE:
    keeper COMMAND [FLAGS]

COMMANDS:
    create-wallet           Generate a new key pair and address
    estimate-deploy-fee     Estimate the fee to deploy a wallet
    deploy-wallet           Deploy a wallet contract
    estimate-transfer-fee   Estimate the fee of a transfer
    transfer                Send a transfer
    history                 List transactions of an address
    balance                 Show the balance of an address
    watch                   Poll configured addresses and log balance changes
    encrypt                 Encrypt a value for the wallet.env config section
    doctor                  Check the wallet tool setup

FLAGS:
    -h, --help          Show this help message
    --config PATH       Config file path (default: ./config.yaml)
    --public-key HEX    Wallet public key
    --secret-key HEX    Wallet secret key (or KEEPER_SECRET_KEY)
    --to ADDRESS        Transfer destination
    --amount N          Transfer amount (default: 0)
    --payload TEXT      Transfer comment
    --send-mode N       Transfer send mode
    --address ADDRESS   Address for history and balance

CONFIGURATION:
    Config file: ./config.yaml
    Environment: KEEPER_* variables override config
    KEEPER_CONFIG_KEY decrypts "enc:" values in wallet.env

EXAMPLES:
    keeper create-wallet
    keeper balance --address EQD...
    keeper transfer --public-key ... --to EQD... --amount 1.5
    keeper watch --config /etc/keeper/config.yaml`)
}

// defaultConfigPath returns KEEPER_CONFIG or the default config file.
func defaultConfigPath() string {
	if p := os.Getenv("KEEPER_CONFIG"); p != "" {
		return p
	}
	return "config.yaml"
}

// app bundles the loaded config with the logger and wallet client built from it.
type app struct {
	cfg    *config.Config
	log    *slog.Logger
	client *walletcli.Client
	close  func()
}

func newApp(ctx context.Context, cfgPath string) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, domain.WrapOp("load config", err)
	}

	log, logCloser, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, domain.WrapOp("init logger", err)
	}

	tracerShutdown, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		logCloser()
		return nil, domain.WrapOp("init tracer", err)
	}

	invoker := walletcli.NewInvokerFromConfig(cfg.Wallet, log)
	client := walletcli.NewClient(invoker,
		walletcli.WithTransferDefaults(cfg.Wallet.DefaultPayload, cfg.Wallet.DefaultSendMode))

	return &app{
		cfg:    cfg,
		log:    log,
		client: client,
		close: func() {
			if err := tracerShutdown(context.Background()); err != nil {
				log.Warn("tracer shutdown failed", "error", err)
			}
			logCloser()
		},
	}, nil
}

func runWatch(args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfgPath, err := parseConfigFlag("watch", args, os.Stderr)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfgPath)
	if err != nil {
		return err
	}
	defer a.close()

	w, err := watch.New(a.client, a.cfg.Watch.Addresses, a.cfg.Watch.Schedule, a.log,
		watch.WithRateLimit(a.cfg.Watch.RateLimit))
	if err != nil {
		return err
	}
	return w.Run(ctx)
}

// parseConfigFlag parses the arguments of a command that takes only --config
// and returns the config path to load.
func parseConfigFlag(name string, args []string, stderr io.Writer) (string, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfgPath := fs.String("config", "", "config file path")
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if fs.NArg() > 0 {
		return "", fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if *cfgPath == "" {
		return defaultConfigPath(), nil
	}
	return *cfgPath, nil
}
