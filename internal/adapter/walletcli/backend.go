package walletcli

import "context"

// ProcessBackend abstracts launching the wallet tool.
type ProcessBackend interface {
	// Run starts name with args in dir, waits for it to exit and returns
	// everything it wrote to stdout and stderr. env entries ("KEY=value")
	// are appended to the inherited environment.
	Run(ctx context.Context, name string, args []string, dir string, env []string) (stdout, stderr []byte, err error)
	// Name returns the backend identifier (e.g. "local").
	Name() string
}
