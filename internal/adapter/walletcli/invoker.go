package walletcli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"

	"insomnia-keeper/internal/domain"
	"insomnia-keeper/internal/infra/config"
	"insomnia-keeper/internal/infra/logger"
	"insomnia-keeper/internal/infra/tracer"
)

// maxLoggedStderr caps how much tool stderr is copied into a log record.
const maxLoggedStderr = 512

// secretFlags are flags whose values are masked in logs.
var secretFlags = map[string]bool{
	"--" + FlagSecretKey: true,
}

// Invoker runs one wallet tool operation per call and converts whatever the
// tool prints into a domain.WalletResult. Invoke never returns an error and
// never panics; every failure becomes an unsuccessful result.
type Invoker struct {
	backend    ProcessBackend
	executable string
	scriptArgs []string
	dir        string
	env        []string
	logger     *slog.Logger
}

// InvokerOption configures optional Invoker settings.
type InvokerOption func(*Invoker)

// WithBackend replaces the default local process backend.
func WithBackend(b ProcessBackend) InvokerOption {
	return func(i *Invoker) {
		i.backend = b
	}
}

// WithScriptArgs sets arguments placed before the operation flags,
// e.g. the script an interpreter should run.
func WithScriptArgs(args ...string) InvokerOption {
	return func(i *Invoker) {
		i.scriptArgs = append([]string(nil), args...)
	}
}

// WithDir sets the tool's working directory.
func WithDir(dir string) InvokerOption {
	return func(i *Invoker) {
		i.dir = dir
	}
}

// WithEnv adds variables on top of the inherited environment.
func WithEnv(env map[string]string) InvokerOption {
	return func(i *Invoker) {
		keys := make([]string, 0, len(env))
		for k := range env {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		i.env = i.env[:0]
		for _, k := range keys {
			i.env = append(i.env, k+"="+env[k])
		}
	}
}

// NewInvoker creates an Invoker that launches executable.
func NewInvoker(executable string, log *slog.Logger, opts ...InvokerOption) *Invoker {
	if log == nil {
		log = logger.Discard()
	}
	i := &Invoker{
		backend:    NewLocalProcessBackend(0),
		executable: executable,
		dir:        ".",
		logger:     log,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// NewInvokerFromConfig builds an Invoker for the configured wallet tool.
func NewInvokerFromConfig(cfg config.WalletConfig, log *slog.Logger, opts ...InvokerOption) *Invoker {
	base := []InvokerOption{
		WithBackend(NewLocalProcessBackend(cfg.Timeout)),
		WithScriptArgs(cfg.ScriptArgs...),
		WithDir(cfg.ToolDir()),
		WithEnv(cfg.Env),
	}
	return NewInvoker(cfg.Executable, log, append(base, opts...)...)
}

// Command returns the argument vector passed to the executable for op.
func (i *Invoker) Command(op domain.WalletOperation, args *Args) ([]string, error) {
	flags, err := args.Flags()
	if err != nil {
		return nil, err
	}
	argv := make([]string, 0, len(i.scriptArgs)+2+len(flags))
	argv = append(argv, i.scriptArgs...)
	argv = append(argv, "--"+FlagFunc, string(op))
	return append(argv, flags...), nil
}

// Invoke runs op with args and waits for the tool to exit.
//
// Non-empty stderr always yields a failure carrying the stderr bytes. With an
// empty stderr, stdout must be a JSON object whose "success" field is truthy
// and which has a "data" field; the result then carries that field's raw
// JSON. Any other outcome is a failure whose Data is the (empty) stderr and
// whose Cause says what went wrong.
func (i *Invoker) Invoke(ctx context.Context, op domain.WalletOperation, args *Args) domain.WalletResult {
	id := ulid.Make().String()
	ctx, span := tracer.StartInvocation(ctx, string(op), id, i.backend.Name())

	start := time.Now()
	argv, result := i.run(ctx, op, args)
	duration := time.Since(start)
	tracer.EndInvocation(span, result.Success, len(result.Data), result.Cause)

	if result.Success {
		i.logger.Debug("wallet tool call completed",
			"operation", op,
			"invocation_id", id,
			"argv", redactArgv(argv),
			"duration", duration)
		return result
	}

	i.logger.Warn("wallet tool call failed",
		"operation", op,
		"invocation_id", id,
		"argv", redactArgv(argv),
		"duration", duration,
		"code", domain.ErrorCodeOf(result.Cause),
		"error", result.Cause,
		"stderr", truncate(result.Data, maxLoggedStderr))
	return result
}

func (i *Invoker) run(ctx context.Context, op domain.WalletOperation, args *Args) (argv []string, res domain.WalletResult) {
	defer func() {
		if r := recover(); r != nil {
			res = failure(nil, domain.NewDomainError("Invoker.Invoke", domain.ErrToolLaunch, fmt.Sprintf("panic: %v", r)))
		}
	}()

	if !op.Valid() {
		return nil, failure(nil, domain.NewDomainError("Invoker.Invoke", domain.ErrUnknownOperation, string(op)))
	}

	argv, err := i.Command(op, args)
	if err != nil {
		return nil, failure(nil, err)
	}

	stdout, stderr, err := i.backend.Run(ctx, i.executable, argv, i.dir, i.env)
	if len(stderr) > 0 {
		return argv, failure(stderr, domain.NewDomainError("Invoker.Invoke", domain.ErrToolStderr, string(op)))
	}

	// The exit status itself is not part of the contract; only errors that
	// prevented the tool from running to completion are.
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		sentinel := domain.ErrToolLaunch
		if errors.Is(err, domain.ErrTimeout) {
			sentinel = domain.ErrTimeout
		}
		return argv, failure(stderr, domain.NewDomainError("Invoker.Invoke", sentinel, err.Error()))
	}

	data, err := decodeEnvelope(stdout)
	if err != nil {
		return argv, failure(stderr, err)
	}
	return argv, domain.WalletResult{Success: true, Data: data}
}

// failure builds an unsuccessful result. Data always reports stderr, never
// the decode error, so callers see exactly what the tool wrote.
func failure(stderr []byte, cause error) domain.WalletResult {
	if stderr == nil {
		stderr = []byte{}
	}
	return domain.WalletResult{Success: false, Data: stderr, Cause: cause}
}

// decodeEnvelope extracts the raw "data" field from a {success, data} envelope.
func decodeEnvelope(stdout []byte) ([]byte, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(stdout, &envelope); err != nil {
		return nil, domain.NewDomainError("decodeEnvelope", domain.ErrMalformedResponse, err.Error())
	}

	rawSuccess, ok := envelope["success"]
	if !ok {
		return nil, domain.NewDomainError("decodeEnvelope", domain.ErrMalformedResponse, "missing success field")
	}
	var success any
	if err := json.Unmarshal(rawSuccess, &success); err != nil {
		return nil, domain.NewDomainError("decodeEnvelope", domain.ErrMalformedResponse, err.Error())
	}
	if !truthy(success) {
		return nil, domain.NewDomainError("decodeEnvelope", domain.ErrEnvelopeFailure, "success field is falsy")
	}

	data, ok := envelope["data"]
	if !ok {
		return nil, domain.NewDomainError("decodeEnvelope", domain.ErrMalformedResponse, "missing data field")
	}
	return []byte(data), nil
}

// truthy applies JSON truthiness: false, null, 0, "", [] and {} are false.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case float64:
		return x != 0
	case string:
		return x != ""
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	default:
		return true
	}
}

func redactArgv(argv []string) []string {
	out := make([]string, len(argv))
	copy(out, argv)
	for i := 0; i < len(out)-1; i++ {
		if secretFlags[out[i]] {
			out[i+1] = logger.Redacted
			i++
		}
	}
	return out
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
