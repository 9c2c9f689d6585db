package walletcli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"
)

// fakeBackend records calls and returns canned output.
type fakeBackend struct {
	stdout    []byte
	stderr    []byte
	err       error
	panicWith any
	calls     []fakeCall
}

type fakeCall struct {
	name string
	args []string
	dir  string
	env  []string
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Run(_ context.Context, name string, args []string, dir string, env []string) ([]byte, []byte, error) {
	f.calls = append(f.calls, fakeCall{name: name, args: args, dir: dir, env: env})
	if f.panicWith != nil {
		panic(f.panicWith)
	}
	return f.stdout, f.stderr, f.err
}

func (f *fakeBackend) lastArgs(t *testing.T) []string {
	t.Helper()
	if len(f.calls) == 0 {
		t.Fatal("backend was not called")
	}
	return f.calls[len(f.calls)-1].args
}

const helperEnv = "KEEPER_WALLET_HELPER_MODE"

// helperInvoker returns an Invoker whose "wallet tool" is this test binary
// re-executed into TestHelperProcess with the given mode.
func helperInvoker(t *testing.T, mode string, opts ...InvokerOption) *Invoker {
	t.Helper()
	base := []InvokerOption{
		WithScriptArgs("-test.run=^TestHelperProcess$", "--"),
		WithEnv(map[string]string{helperEnv: mode}),
		WithDir(t.TempDir()),
	}
	return NewInvoker(os.Args[0], nil, append(base, opts...)...)
}

// TestHelperProcess is not a real test. It stands in for the wallet tool
// when the test binary is launched by helperInvoker.
func TestHelperProcess(t *testing.T) {
	mode := os.Getenv(helperEnv)
	if mode == "" {
		return
	}

	var toolArgs []string
	for i, a := range os.Args {
		if a == "--" {
			toolArgs = os.Args[i+1:]
			break
		}
	}

	switch mode {
	case "success":
		fmt.Fprint(os.Stdout, `{"success": true, "data": {"x": 1}}`)
	case "echo-args":
		out, _ := json.Marshal(map[string]any{"success": true, "data": toolArgs})
		os.Stdout.Write(out)
	case "stderr":
		fmt.Fprint(os.Stdout, `{"success": true, "data": {"x": 1}}`)
		fmt.Fprint(os.Stderr, "Error: seqno unavailable\n")
	case "garbage":
		fmt.Fprint(os.Stdout, "Welcome to tonweb!\n")
	case "failure":
		fmt.Fprint(os.Stdout, `{"success": false}`)
	case "cwd":
		wd, _ := os.Getwd()
		out, _ := json.Marshal(map[string]any{"success": true, "data": wd})
		os.Stdout.Write(out)
	case "env":
		out, _ := json.Marshal(map[string]any{"success": true, "data": os.Getenv("KEEPER_TEST_INHERITED")})
		os.Stdout.Write(out)
	case "exit-nonzero":
		fmt.Fprint(os.Stdout, `{"success": true, "data": "partial"}`)
		os.Exit(3)
	case "hang":
		time.Sleep(30 * time.Second)
	}
	os.Exit(0)
}
