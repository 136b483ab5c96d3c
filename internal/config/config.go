// Package config defines the global configuration for the floodwatch
// platform. Configuration is loaded once at process initialization and is
// immutable thereafter, following 12-Factor principles: values come from the
// OS environment, with a .env file as a development convenience.
//
// Any missing required value or invalid format fails the process immediately
// on startup.
package config

import (
	"time"

	"floodwatch/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret type
// used in configuration to prevent accidental logging of sensitive values.
type SecretString = types.SecretString

// Config is the top-level configuration struct. It is populated once during
// process initialization and never modified. Sub-components receive only the
// subsets they require.
type Config struct {
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"floodwatch"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	Server        ServerConfig
	Database      DatabaseConfig
	AWS           AWSConfig
	Inference     InferenceConfig
	Ingest        IngestConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"10s"`

	CorsAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// DatabaseConfig holds connection and pool tuning parameters.
type DatabaseConfig struct {
	URL SecretString `envconfig:"DATABASE_URL" validate:"required"`

	MaxConns          int           `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns          int           `envconfig:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime   time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	AcquireTimeout    time.Duration `envconfig:"DB_ACQUIRE_TIMEOUT" default:"2s"`
	HealthCheckPeriod time.Duration `envconfig:"DB_HEALTH_CHECK_PERIOD" default:"1m"`
}

// AWSConfig holds AWS resource identifiers and regional configuration.
type AWSConfig struct {
	Region string `envconfig:"AWS_REGION" default:"us-east-1"`

	// AlertQueueURL is the SQS queue alert lifecycle events are published to.
	// Empty disables publishing (local development).
	AlertQueueURL string `envconfig:"SQS_ALERT_EVENTS"`

	// LocalStack support (empty in prod).
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL"`
}

// InferenceConfig holds the remote scoring backend settings.
type InferenceConfig struct {
	// BaseURL of the model-serving endpoint. Empty disables the remote
	// backend; the heuristic remains the only registered scorer.
	BaseURL string       `envconfig:"INFERENCE_BASE_URL"`
	APIKey  SecretString `envconfig:"INFERENCE_API_KEY"`

	// Timeout bounds a single predict call. On expiry the scorer falls back
	// to the heuristic.
	Timeout        time.Duration `envconfig:"INFERENCE_TIMEOUT" default:"10s"`
	DefaultBackend string        `envconfig:"INFERENCE_DEFAULT_BACKEND" default:"random_forest"`
}

// IngestConfig holds the periodic weather ingestion settings.
type IngestConfig struct {
	// Interval between weather fetch cycles. Floored at 60s by the poller.
	Interval time.Duration `envconfig:"WEATHER_UPDATE_INTERVAL" default:"15m"`

	// StartupDelay lets migrations and connections settle before the first
	// fetch.
	StartupDelay time.Duration `envconfig:"WEATHER_STARTUP_DELAY" default:"10s"`

	// WeatherBaseURL overrides the upstream weather API endpoint (tests,
	// mirrors).
	WeatherBaseURL string `envconfig:"WEATHER_BASE_URL"`
}

// ObservabilityConfig holds telemetry settings.
type ObservabilityConfig struct {
	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:"FloodWatch"`
	EnableMetrics   bool   `envconfig:"ENABLE_METRICS" default:"false"`
}
