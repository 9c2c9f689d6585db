package main

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"insomnia-keeper/internal/infra/config"
)

// CheckStatus represents the result of a health check.
type CheckStatus string

const (
	StatusPass CheckStatus = "PASS"
	StatusWarn CheckStatus = "WARN"
	StatusFail CheckStatus = "FAIL"
)

// CheckResult holds the outcome of a single health check.
type CheckResult struct {
	Name    string
	Status  CheckStatus
	Message string
	Fix     string // optional fix suggestion
}

// Check is a named health check function.
type Check struct {
	Name string
	Fn   func(cfg *config.Config) CheckResult
}

// runDoctor executes all health checks and reports results to w.
func runDoctor(cfgPath string, w io.Writer) error {
	// Some checks work without a loaded config.
	cfg, cfgErr := config.Load(cfgPath)

	checks := []Check{
		{Name: "Config file", Fn: checkConfigFile(cfgPath, cfgErr)},
		{Name: "Wallet executable", Fn: checkExecutable},
		{Name: "Tool directory", Fn: checkToolDir},
		{Name: "Tool script", Fn: checkToolScript},
		{Name: "Encrypted env", Fn: checkEncryptedEnv},
		{Name: "Balance watch", Fn: checkWatch},
	}

	fmt.Fprintln(w, "keeper doctor")
	fmt.Fprintln(w, strings.Repeat("=", 50))
	fmt.Fprintln(w)

	var pass, warn, fail int
	for _, check := range checks {
		result := check.Fn(cfg)
		result.Name = check.Name

		fmt.Fprintf(w, "  %s %s: %s\n", statusIcon(result.Status), result.Name, result.Message)
		if result.Fix != "" {
			fmt.Fprintf(w, "      Fix: %s\n", result.Fix)
		}

		switch result.Status {
		case StatusPass:
			pass++
		case StatusWarn:
			warn++
		case StatusFail:
			fail++
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("-", 50))
	fmt.Fprintf(w, "Results: %d passed, %d warnings, %d failed\n", pass, warn, fail)

	if fail > 0 {
		return fmt.Errorf("%d check(s) failed", fail)
	}
	return nil
}

func statusIcon(s CheckStatus) string {
	switch s {
	case StatusPass:
		return "[PASS]"
	case StatusWarn:
		return "[WARN]"
	case StatusFail:
		return "[FAIL]"
	default:
		return "[????]"
	}
}

// checkConfigFile returns a check that verifies the config file loads. A
// missing file is only a warning because the defaults still apply.
func checkConfigFile(cfgPath string, cfgErr error) func(*config.Config) CheckResult {
	return func(_ *config.Config) CheckResult {
		if cfgErr != nil {
			return CheckResult{
				Status:  StatusFail,
				Message: fmt.Sprintf("config error: %v", cfgErr),
				Fix:     "Check config.yaml syntax and file permissions (0600)",
			}
		}
		if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
			return CheckResult{
				Status:  StatusWarn,
				Message: fmt.Sprintf("config file not found at %s, using defaults", cfgPath),
				Fix:     "Create config.yaml or set KEEPER_CONFIG",
			}
		}
		return CheckResult{
			Status:  StatusPass,
			Message: fmt.Sprintf("config loaded from %s", cfgPath),
		}
	}
}

func checkExecutable(cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Status: StatusWarn, Message: "cannot check, config not loaded"}
	}
	path, err := exec.LookPath(cfg.Wallet.Executable)
	if err != nil {
		return CheckResult{
			Status:  StatusFail,
			Message: fmt.Sprintf("%q not found", cfg.Wallet.Executable),
			Fix:     "Install it or set wallet.executable to an absolute path",
		}
	}
	return CheckResult{Status: StatusPass, Message: path}
}

func checkToolDir(cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Status: StatusWarn, Message: "cannot check, config not loaded"}
	}
	dir := cfg.Wallet.ToolDir()
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return CheckResult{
			Status:  StatusFail,
			Message: fmt.Sprintf("%s is not a directory", dir),
			Fix:     "Set wallet.dir to the directory containing the wallet tool",
		}
	}
	return CheckResult{Status: StatusPass, Message: dir}
}

// checkToolScript verifies that the first script argument, when it looks
// like a file, exists relative to the tool directory.
func checkToolScript(cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Status: StatusWarn, Message: "cannot check, config not loaded"}
	}
	if len(cfg.Wallet.ScriptArgs) == 0 || strings.HasPrefix(cfg.Wallet.ScriptArgs[0], "-") {
		return CheckResult{Status: StatusPass, Message: "no script file configured"}
	}
	script := cfg.Wallet.ScriptArgs[0]
	if !filepath.IsAbs(script) {
		script = filepath.Join(cfg.Wallet.ToolDir(), script)
	}
	if _, err := os.Stat(script); err != nil {
		return CheckResult{
			Status:  StatusFail,
			Message: fmt.Sprintf("%s not found", script),
			Fix:     "Set wallet.script_args or wallet.dir so the script resolves",
		}
	}
	return CheckResult{Status: StatusPass, Message: script}
}

// checkEncryptedEnv fails when wallet.env still holds "enc:" values after
// loading, which means KEEPER_CONFIG_KEY was not provided.
func checkEncryptedEnv(cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Status: StatusWarn, Message: "cannot check, config not loaded"}
	}
	var locked []string
	for name, value := range cfg.Wallet.Env {
		if strings.HasPrefix(value, config.EncryptedPrefix) {
			locked = append(locked, name)
		}
	}
	if len(locked) > 0 {
		return CheckResult{
			Status:  StatusFail,
			Message: fmt.Sprintf("%d encrypted value(s) not decrypted", len(locked)),
			Fix:     "Set KEEPER_CONFIG_KEY to the passphrase used with 'keeper encrypt'",
		}
	}
	return CheckResult{Status: StatusPass, Message: fmt.Sprintf("%d variable(s) passed to the tool", len(cfg.Wallet.Env))}
}

func checkWatch(cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Status: StatusWarn, Message: "cannot check, config not loaded"}
	}
	if len(cfg.Watch.Addresses) == 0 {
		return CheckResult{
			Status:  StatusWarn,
			Message: "no addresses configured, 'keeper watch' has nothing to poll",
		}
	}
	return CheckResult{
		Status:  StatusPass,
		Message: fmt.Sprintf("%d address(es) on %q", len(cfg.Watch.Addresses), cfg.Watch.Schedule),
	}
}
