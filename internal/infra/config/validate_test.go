package config

import (
	"strings"
	"testing"
	"time"
)

func TestValidateDefaultsPass(t *testing.T) {
	cfg := Defaults()
	if err := Validate(cfg); err != nil {
		t.Fatalf("Defaults should pass validation: %v", err)
	}
}

func TestValidateWalletExecutableEmpty(t *testing.T) {
	cfg := Defaults()
	cfg.Wallet.Executable = "  "
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	assertContains(t, err.Error(), "wallet.executable must not be empty")
}

func TestValidateWalletTimeoutNegative(t *testing.T) {
	cfg := Defaults()
	cfg.Wallet.Timeout = -time.Second
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	assertContains(t, err.Error(), "wallet.timeout must be >= 0")
}

func TestValidateWalletSendModeRange(t *testing.T) {
	cfg := Defaults()
	cfg.Wallet.DefaultSendMode = 300
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	assertContains(t, err.Error(), "wallet.default_send_mode must be between 0 and 255")
}

func TestValidateWalletEnvName(t *testing.T) {
	cfg := Defaults()
	cfg.Wallet.Env = map[string]string{"A=B": "x"}
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	assertContains(t, err.Error(), "wallet.env has invalid variable name")
}

func TestValidateLogger(t *testing.T) {
	cfg := Defaults()
	cfg.Logger.Level = "verbose"
	cfg.Logger.Format = "xml"
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	assertContains(t, err.Error(), `logger.level "verbose" is invalid`)
	assertContains(t, err.Error(), `logger.format "xml" is invalid`)
}

func TestValidateLoggerOutputStdoutRejected(t *testing.T) {
	for _, out := range []string{"stdout", "STDOUT"} {
		cfg := Defaults()
		cfg.Logger.Output = out
		err := Validate(cfg)
		if err == nil {
			t.Fatalf("output %q: expected validation error", out)
		}
		assertContains(t, err.Error(), "is reserved for command results")
	}

	for _, out := range []string{"", "stderr", "/var/log/keeper.log"} {
		cfg := Defaults()
		cfg.Logger.Output = out
		if err := Validate(cfg); err != nil {
			t.Errorf("output %q: unexpected error: %v", out, err)
		}
	}
}

func TestValidateTracerExporter(t *testing.T) {
	cfg := Defaults()
	cfg.Tracer.Enabled = true
	cfg.Tracer.Exporter = "jaeger"
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	assertContains(t, err.Error(), `tracer.exporter "jaeger" is invalid`)

	// Disabled tracer ignores exporter.
	cfg.Tracer.Enabled = false
	if err := Validate(cfg); err != nil {
		t.Errorf("disabled tracer should pass: %v", err)
	}
}

func TestValidateWatchSchedule(t *testing.T) {
	tests := []struct {
		schedule string
		ok       bool
	}{
		{"@every 1m", true},
		{"*/5 * * * *", true},
		{"90s", true},
		{"", false},
		{"-5s", false},
		{"whenever", false},
	}
	for _, tt := range tests {
		cfg := Defaults()
		cfg.Watch.Addresses = []string{"00ff"}
		cfg.Watch.Schedule = tt.schedule
		err := Validate(cfg)
		if tt.ok && err != nil {
			t.Errorf("schedule %q: unexpected error %v", tt.schedule, err)
		}
		if !tt.ok && err == nil {
			t.Errorf("schedule %q: expected error", tt.schedule)
		}
	}
}

func TestValidateWatchRateLimit(t *testing.T) {
	cfg := Defaults()
	cfg.Watch.Addresses = []string{"00ff"}
	cfg.Watch.RateLimit = -1
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	assertContains(t, err.Error(), "watch.rate_limit must be >= 0")
}

func TestValidateWatchSkippedWithoutAddresses(t *testing.T) {
	cfg := Defaults()
	cfg.Watch.Schedule = ""
	if err := Validate(cfg); err != nil {
		t.Errorf("watch without addresses should pass: %v", err)
	}
}

func TestValidationErrorAccumulates(t *testing.T) {
	cfg := Defaults()
	cfg.Wallet.Executable = ""
	cfg.Logger.Level = "loud"
	err := Validate(cfg)
	ve, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if len(ve.Errors) != 2 {
		t.Errorf("got %d errors, want 2: %v", len(ve.Errors), ve.Errors)
	}
}

func assertContains(t *testing.T, s, substr string) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Errorf("expected %q to contain %q", s, substr)
	}
}

func TestParseScheduleDuration(t *testing.T) {
	sched, err := ParseSchedule("90s")
	if err != nil {
		t.Fatalf("ParseSchedule: %v", err)
	}
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if next := sched.Next(now); next.Sub(now) != 90*time.Second {
		t.Errorf("next run after %v, want 90s", next.Sub(now))
	}
}

func TestParseScheduleCron(t *testing.T) {
	sched, err := ParseSchedule("0 * * * *")
	if err != nil {
		t.Fatalf("ParseSchedule: %v", err)
	}
	now := time.Date(2026, 1, 1, 10, 30, 0, 0, time.UTC)
	if next := sched.Next(now); !next.Equal(time.Date(2026, 1, 1, 11, 0, 0, 0, time.UTC)) {
		t.Errorf("next = %v, want 11:00", next)
	}
}
