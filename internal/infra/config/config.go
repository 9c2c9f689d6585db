package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"insomnia-keeper/internal/domain"
)

// Config is the top-level application configuration.
type Config struct {
	Wallet WalletConfig `yaml:"wallet"`
	Logger LoggerConfig `yaml:"logger"`
	Tracer TracerConfig `yaml:"tracer"`
	Watch  WatchConfig  `yaml:"watch"`
}

// WalletConfig describes how the external wallet tool is launched.
type WalletConfig struct {
	Executable string            `yaml:"executable"`  // binary or interpreter, resolved via PATH
	ScriptArgs []string          `yaml:"script_args"` // leading args, e.g. the script file
	Dir        string            `yaml:"dir"`         // working directory; "" = directory of the keeper binary
	Timeout    time.Duration     `yaml:"timeout"`     // 0 = wait for the tool forever
	Env        map[string]string `yaml:"env,omitempty"`

	DefaultPayload  string `yaml:"default_payload"`
	DefaultSendMode int    `yaml:"default_send_mode"`
}

// ToolDir returns the working directory for the wallet tool.
func (w WalletConfig) ToolDir() string {
	if w.Dir != "" {
		return w.Dir
	}
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// TracerConfig holds tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
}

// WatchConfig holds settings for the periodic balance watcher.
type WatchConfig struct {
	Schedule  string   `yaml:"schedule"` // cron expression or duration string
	Addresses []string `yaml:"addresses"`
	RateLimit float64  `yaml:"rate_limit"` // balance queries per second; 0 = unpaced
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Wallet: WalletConfig{
			Executable:      "node",
			ScriptArgs:      []string{"cli.js"},
			DefaultPayload:  domain.DefaultTransferPayload,
			DefaultSendMode: domain.DefaultTransferSendMode,
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Tracer: TracerConfig{
			Enabled:  false,
			Exporter: "noop",
		},
		Watch: WatchConfig{
			Schedule: "@every 1m",
		},
	}
}

// Load reads the YAML config at path, applies KEEPER_* environment overrides,
// decrypts "enc:" secrets and validates the result. A missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			ApplyEnvOverrides(cfg)
			if err := Validate(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, domain.NewDomainError("Config.Load", domain.ErrConfigLoad, err.Error())
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	if err := validatePermissions(absPath); err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, domain.NewDomainError("Config.Load", domain.ErrConfigLoad, "parse config: "+err.Error())
	}

	ApplyEnvOverrides(cfg)

	if passphrase := os.Getenv("KEEPER_CONFIG_KEY"); passphrase != "" {
		if err := decryptSecrets(cfg, passphrase); err != nil {
			return nil, fmt.Errorf("decrypt secrets: %w", err)
		}
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyEnvOverrides overrides config values from KEEPER_* environment variables.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv("KEEPER_WALLET_EXECUTABLE"); v != "" {
		cfg.Wallet.Executable = v
	}
	if v := os.Getenv("KEEPER_WALLET_SCRIPT_ARGS"); v != "" {
		cfg.Wallet.ScriptArgs = splitAndTrim(v, ",")
	}
	if v := os.Getenv("KEEPER_WALLET_DIR"); v != "" {
		cfg.Wallet.Dir = v
	}
	if v := os.Getenv("KEEPER_WALLET_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			cfg.Wallet.Timeout = d
		}
	}
	if v := os.Getenv("KEEPER_LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("KEEPER_LOGGER_FORMAT"); v != "" {
		cfg.Logger.Format = v
	}
	if v := os.Getenv("KEEPER_LOGGER_OUTPUT"); v != "" {
		cfg.Logger.Output = v
	}
	if v := os.Getenv("KEEPER_TRACER_ENABLED"); v == "true" {
		cfg.Tracer.Enabled = true
	}
	if v := os.Getenv("KEEPER_TRACER_EXPORTER"); v != "" {
		cfg.Tracer.Exporter = v
	}
	if v := os.Getenv("KEEPER_WATCH_SCHEDULE"); v != "" {
		cfg.Watch.Schedule = v
	}
	if v := os.Getenv("KEEPER_WATCH_ADDRESSES"); v != "" {
		cfg.Watch.Addresses = splitAndTrim(v, ",")
	}
	if v := os.Getenv("KEEPER_WATCH_RATE_LIMIT"); v != "" {
		if r, err := strconv.ParseFloat(v, 64); err == nil && r >= 0 {
			cfg.Watch.RateLimit = r
		}
	}
}

// splitAndTrim splits s by sep, trims whitespace and drops empty elements.
func splitAndTrim(s, sep string) []string {
	parts := strings.Split(s, sep)
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// validatePermissions checks the config file has restrictive permissions.
func validatePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat config: %w", err)
	}
	mode := info.Mode().Perm()
	// Group or other write access lets someone else pick the executable.
	if mode&0o022 != 0 {
		return fmt.Errorf("config file %s has insecure permissions %o (must not be group or world writable)", path, mode)
	}
	return nil
}
