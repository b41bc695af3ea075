// Package config loads the configuration for the Paramkit binaries.
//
// The loading sequence is:
//  1. Enforce UTC timezone to prevent drift bugs.
//  2. Load a .env file via godotenv (non-fatal if absent).
//  3. Use envconfig to process struct tags and populate the Config struct.
//  4. Validate the struct using go-playground/validator.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// ConfigErrorType classifies configuration failures.
type ConfigErrorType string

const (
	ErrParsing    ConfigErrorType = "parsing"
	ErrValidation ConfigErrorType = "validation"
)

// ConfigError is a diagnostic error type returned by Load to aid debugging.
type ConfigError struct {
	Type    ConfigErrorType
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Config is the full configuration surface of the Paramkit daemon.
type Config struct {
	// Environment selects the deployment environment.
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`

	// LogLevel sets the minimum level for structured log output.
	LogLevel string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	AWS     AWSConfig
	Sidecar SidecarConfig
}

// AWSConfig holds the AWS integration settings.
type AWSConfig struct {
	// Region scopes the internally built parameter store client. Empty
	// defers to the SDK's ambient region resolution.
	Region string `envconfig:"AWS_REGION"`

	// EventsQueueURL, when set, enables publishing parameter change
	// events to this SQS queue.
	EventsQueueURL string `envconfig:"PARAMKIT_EVENTS_QUEUE" validate:"omitempty,url"`

	// MetricsEnabled turns on CloudWatch operation metrics.
	MetricsEnabled bool `envconfig:"PARAMKIT_METRICS_ENABLED" default:"false"`
}

// SidecarConfig holds the read-side daemon settings.
type SidecarConfig struct {
	// ListenAddr is the HTTP listen address. The sidecar serves plaintext
	// parameter values, so it binds loopback by default.
	ListenAddr string `envconfig:"PARAMKIT_LISTEN_ADDR" default:"127.0.0.1:7117" validate:"required"`

	// ManifestPath names the parameter manifest the sidecar serves.
	ManifestPath string `envconfig:"PARAMKIT_MANIFEST" validate:"required"`

	// RefreshInterval is the period between cache refresh cycles.
	RefreshInterval time.Duration `envconfig:"PARAMKIT_REFRESH_INTERVAL" default:"5m" validate:"min=1s"`
}

// Load reads and validates the daemon configuration from the environment.
func Load() (*Config, error) {
	// Enforce UTC to keep refresh timestamps and event times comparable
	// across hosts.
	time.Local = time.UTC

	// A .env file is a local development convenience; its absence is not
	// an error, and it never overrides existing environment variables.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, &ConfigError{
			Type:    ErrParsing,
			Message: "failed to process environment configuration",
			Err:     err,
		}
	}

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, &ConfigError{
			Type:    ErrValidation,
			Message: "configuration validation failed",
			Err:     err,
		}
	}

	return &cfg, nil
}

// SlogLevel maps the configured LogLevel to a slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
