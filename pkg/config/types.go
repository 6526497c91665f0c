package config

import (
	"time"

	"github.com/codeready-toolchain/logmask/pkg/policy"
)

// LogmaskYAMLConfig represents the complete logmask.yaml file structure
type LogmaskYAMLConfig struct {
	Logger      *LoggerConfig      `yaml:"logger"`
	Masking     *MaskingConfig     `yaml:"masking"`
	Enrich      *EnrichConfig      `yaml:"enrich"`
	Transports  *TransportsConfig  `yaml:"transports"`
	Server      *ServerConfig      `yaml:"server"`
	Diagnostics *DiagnosticsConfig `yaml:"diagnostics"`
}

// LoggerConfig configures the masking logger.
type LoggerConfig struct {
	Name  string `yaml:"name"`
	Level string `yaml:"level" validate:"omitempty,oneof=trace debug info warn warning error fatal"`
	Mode  string `yaml:"mode" validate:"omitempty,oneof=production development test"`
	// Context is attached to every record.
	Context map[string]any `yaml:"context,omitempty"`
}

// MaskingConfig is a policy spec plus the runtime options of the redaction
// pipeline.
type MaskingConfig struct {
	policy.Spec `yaml:",inline"`

	// Strict reports skipped masking steps as warnings and metrics.
	Strict bool `yaml:"strict"`
	// MaxDepth bounds deep scanning. Zero means the built-in default.
	MaxDepth int `yaml:"max_depth,omitempty" validate:"gte=0"`
}

// EnrichConfig configures context enrichment.
type EnrichConfig struct {
	Static  map[string]any `yaml:"static,omitempty"`
	Dynamic []string       `yaml:"dynamic,omitempty"`
}

// TransportsConfig groups the remote sinks.
type TransportsConfig struct {
	HTTP   *HTTPTransportConfig   `yaml:"http"`
	Sentry *SentryTransportConfig `yaml:"sentry"`
}

// HTTPTransportConfig configures the batched HTTP sink.
type HTTPTransportConfig struct {
	Enabled       bool              `yaml:"enabled"`
	URL           string            `yaml:"url" validate:"required_if=Enabled true,omitempty,url"`
	Headers       map[string]string `yaml:"headers,omitempty"`
	BatchSize     int               `yaml:"batch_size" validate:"gte=0,lte=10000"`
	FlushInterval time.Duration     `yaml:"flush_interval" validate:"gte=0"`
	Timeout       time.Duration     `yaml:"timeout" validate:"gte=0"`
	QueueSize     int               `yaml:"queue_size" validate:"gte=0"`
}

// SentryTransportConfig configures the Sentry sink.
type SentryTransportConfig struct {
	Enabled     bool   `yaml:"enabled"`
	DSN         string `yaml:"dsn" validate:"required_if=Enabled true"`
	Environment string `yaml:"environment"`
	Release     string `yaml:"release"`
	// Sample rates are fractions in [0, 1]. Unset means 1; 0 turns the
	// corresponding output off.
	ErrorSampleRate      *float64 `yaml:"error_sample_rate,omitempty" validate:"omitnil,gte=0,lte=1"`
	BreadcrumbSampleRate *float64 `yaml:"breadcrumb_sample_rate,omitempty" validate:"omitnil,gte=0,lte=1"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port            string        `yaml:"port" validate:"required,numeric"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gte=0"`
	// MaxBodyBytes limits request bodies accepted by the API.
	MaxBodyBytes int64 `yaml:"max_body_bytes" validate:"gte=0"`
}

// DiagnosticsConfig configures the process's own log output.
type DiagnosticsConfig struct {
	Format string `yaml:"format" validate:"omitempty,oneof=json console"`
	Level  string `yaml:"level" validate:"omitempty,oneof=trace debug info warn warning error"`
}
