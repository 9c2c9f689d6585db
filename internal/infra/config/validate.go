package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// ValidationError accumulates config validation errors.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return "config validation failed:\n  - " + strings.Join(v.Errors, "\n  - ")
}

// HasErrors reports whether any validation errors have been recorded.
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// Add records a formatted validation error.
func (v *ValidationError) Add(format string, args ...interface{}) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// Validate checks cfg for structural correctness. It returns a *ValidationError
// when one or more problems are found, allowing callers to inspect all issues.
func Validate(cfg *Config) error {
	ve := &ValidationError{}
	validateWallet(cfg, ve)
	validateLogger(cfg, ve)
	validateTracer(cfg, ve)
	validateWatch(cfg, ve)
	if ve.HasErrors() {
		return ve
	}
	return nil
}

func validateWallet(cfg *Config, ve *ValidationError) {
	w := cfg.Wallet
	if strings.TrimSpace(w.Executable) == "" {
		ve.Add("wallet.executable must not be empty")
	}
	if w.Timeout < 0 {
		ve.Add("wallet.timeout must be >= 0")
	}
	if w.DefaultSendMode < 0 || w.DefaultSendMode > 255 {
		ve.Add("wallet.default_send_mode must be between 0 and 255, got %d", w.DefaultSendMode)
	}
	for name := range w.Env {
		if name == "" || strings.ContainsAny(name, "=\x00") {
			ve.Add("wallet.env has invalid variable name %q", name)
		}
	}
}

var validLogLevels = map[string]bool{
	"": true, "debug": true, "info": true, "warn": true, "warning": true, "error": true,
}

var validLogFormats = map[string]bool{"": true, "text": true, "json": true}

func validateLogger(cfg *Config, ve *ValidationError) {
	if !validLogLevels[strings.ToLower(cfg.Logger.Level)] {
		ve.Add("logger.level %q is invalid (valid: debug, info, warn, error)", cfg.Logger.Level)
	}
	if !validLogFormats[strings.ToLower(cfg.Logger.Format)] {
		ve.Add("logger.format %q is invalid (valid: text, json)", cfg.Logger.Format)
	}
	// Stdout carries the JSON result of each command.
	if strings.EqualFold(strings.TrimSpace(cfg.Logger.Output), "stdout") {
		ve.Add("logger.output %q is reserved for command results (use stderr or a file path)", cfg.Logger.Output)
	}
}

func validateTracer(cfg *Config, ve *ValidationError) {
	if !cfg.Tracer.Enabled {
		return
	}
	switch cfg.Tracer.Exporter {
	case "", "noop", "stdout":
	default:
		ve.Add("tracer.exporter %q is invalid (valid: noop, stdout)", cfg.Tracer.Exporter)
	}
}

func validateWatch(cfg *Config, ve *ValidationError) {
	if len(cfg.Watch.Addresses) == 0 {
		return
	}
	if _, err := ParseSchedule(cfg.Watch.Schedule); err != nil {
		ve.Add("watch.schedule: %v", err)
	}
	if cfg.Watch.RateLimit < 0 {
		ve.Add("watch.rate_limit must be >= 0")
	}
	for i, addr := range cfg.Watch.Addresses {
		if strings.TrimSpace(addr) == "" {
			ve.Add("watch.addresses[%d] must not be empty", i)
		}
	}
}

// ParseSchedule parses a cron expression (descriptors such as "@every 1m"
// included) and falls back to a positive duration string.
func ParseSchedule(schedule string) (cron.Schedule, error) {
	if schedule == "" {
		return nil, fmt.Errorf("empty schedule")
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if sched, err := parser.Parse(schedule); err == nil {
		return sched, nil
	}
	dur, err := time.ParseDuration(schedule)
	if err != nil {
		return nil, fmt.Errorf("not a valid cron expression or duration: %q", schedule)
	}
	if dur <= 0 {
		return nil, fmt.Errorf("duration must be positive: %q", schedule)
	}
	return Interval(dur), nil
}

// Interval returns a schedule that fires every d. Unlike cron.Every it keeps
// sub-second precision.
func Interval(d time.Duration) cron.Schedule {
	return interval(d)
}

type interval time.Duration

func (d interval) Next(t time.Time) time.Time {
	return t.Add(time.Duration(d))
}
