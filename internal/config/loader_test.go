package config

import (
	"errors"
	"testing"
	"time"
)

// setBaseEnv sets the minimum environment for a successful Load.
// It uses t.Setenv so values are automatically cleaned up after the test.
func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV", "local")
	t.Setenv("LOG_LEVEL", "info")
	t.Setenv("PARAMKIT_MANIFEST", "/etc/paramkit/params.json")
}

func TestLoad_Defaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Environment != "local" {
		t.Errorf("Environment = %q, want %q", cfg.Environment, "local")
	}
	if cfg.Sidecar.ListenAddr != "127.0.0.1:7117" {
		t.Errorf("ListenAddr = %q, want loopback default", cfg.Sidecar.ListenAddr)
	}
	if cfg.Sidecar.RefreshInterval != 5*time.Minute {
		t.Errorf("RefreshInterval = %v, want 5m default", cfg.Sidecar.RefreshInterval)
	}
	if cfg.AWS.MetricsEnabled {
		t.Error("MetricsEnabled should default to false")
	}
	if cfg.AWS.EventsQueueURL != "" {
		t.Errorf("EventsQueueURL = %q, want empty default", cfg.AWS.EventsQueueURL)
	}
}

func TestLoad_FullEnvironment(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("APP_ENV", "prod")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("AWS_REGION", "eu-central-1")
	t.Setenv("PARAMKIT_EVENTS_QUEUE", "https://sqs.eu-central-1.amazonaws.com/123/param-changes")
	t.Setenv("PARAMKIT_METRICS_ENABLED", "true")
	t.Setenv("PARAMKIT_LISTEN_ADDR", "127.0.0.1:9000")
	t.Setenv("PARAMKIT_REFRESH_INTERVAL", "30s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Environment != "prod" {
		t.Errorf("Environment = %q, want %q", cfg.Environment, "prod")
	}
	if cfg.AWS.Region != "eu-central-1" {
		t.Errorf("Region = %q, want %q", cfg.AWS.Region, "eu-central-1")
	}
	if !cfg.AWS.MetricsEnabled {
		t.Error("MetricsEnabled should be true")
	}
	if cfg.Sidecar.RefreshInterval != 30*time.Second {
		t.Errorf("RefreshInterval = %v, want 30s", cfg.Sidecar.RefreshInterval)
	}
}

func TestLoad_InvalidEnvironment(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("APP_ENV", "production")

	_, err := Load()
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}

	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error = %T, want *ConfigError", err)
	}
	if cfgErr.Type != ErrValidation {
		t.Errorf("error type = %q, want %q", cfgErr.Type, ErrValidation)
	}
}

func TestLoad_MissingManifest(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("PARAMKIT_MANIFEST", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected validation error for missing manifest path, got nil")
	}

	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error = %T, want *ConfigError", err)
	}
	if cfgErr.Type != ErrValidation {
		t.Errorf("error type = %q, want %q", cfgErr.Type, ErrValidation)
	}
}

func TestLoad_MalformedRefreshInterval(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("PARAMKIT_REFRESH_INTERVAL", "soon")

	_, err := Load()
	if err == nil {
		t.Fatal("expected parsing error, got nil")
	}

	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error = %T, want *ConfigError", err)
	}
	if cfgErr.Type != ErrParsing {
		t.Errorf("error type = %q, want %q", cfgErr.Type, ErrParsing)
	}
}

func TestLoad_MalformedQueueURL(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("PARAMKIT_EVENTS_QUEUE", "not a url")

	_, err := Load()
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  string
	}{
		{"debug", "DEBUG"},
		{"info", "INFO"},
		{"warn", "WARN"},
		{"error", "ERROR"},
		{"unknown", "INFO"},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := &Config{LogLevel: tt.level}
			if got := cfg.SlogLevel().String(); got != tt.want {
				t.Errorf("SlogLevel(%q) = %s, want %s", tt.level, got, tt.want)
			}
		})
	}
}

func TestConfigError_Format(t *testing.T) {
	inner := errors.New("boom")
	err := &ConfigError{Type: ErrParsing, Message: "failed", Err: inner}

	if got := err.Error(); got != "[parsing] failed: boom" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, inner) {
		t.Error("Unwrap chain should reach the inner error")
	}

	bare := &ConfigError{Type: ErrValidation, Message: "invalid"}
	if got := bare.Error(); got != "[validation] invalid" {
		t.Errorf("Error() = %q", got)
	}
}
