package walletcli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"insomnia-keeper/internal/domain"
)

// waitDelay bounds how long Run waits for output pipes after the tool is
// killed, since descendants of the tool may keep them open.
const waitDelay = 2 * time.Second

// LocalProcessBackend runs the wallet tool as a child process of the keeper.
// Arguments are passed as an explicit vector; no shell is involved.
type LocalProcessBackend struct {
	timeout time.Duration
}

// NewLocalProcessBackend creates a local backend. A zero timeout waits for
// the tool indefinitely.
func NewLocalProcessBackend(timeout time.Duration) *LocalProcessBackend {
	return &LocalProcessBackend{timeout: timeout}
}

func (b *LocalProcessBackend) Name() string { return "local" }

func (b *LocalProcessBackend) Run(ctx context.Context, name string, args []string, dir string, env []string) ([]byte, []byte, error) {
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.WaitDelay = waitDelay
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := runError(ctx, cmd.Run())
	return stdout.Bytes(), stderr.Bytes(), err
}

// runError attributes a failed run to the context when the context ended.
// A run that completed is kept as is even if the context ends right after.
func runError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	ctxErr := ctx.Err()
	switch {
	case ctxErr == nil:
		return err
	case errors.Is(ctxErr, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", domain.ErrTimeout, ctxErr)
	default:
		return fmt.Errorf("wallet tool interrupted: %w", ctxErr)
	}
}
