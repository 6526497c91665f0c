package config

import (
	"time"

	"github.com/codeready-toolchain/logmask/pkg/transport"
)

// DefaultPort is the HTTP API port when neither YAML nor HTTP_PORT set one.
const DefaultPort = "8080"

// DefaultLoggerConfig returns the built-in logger settings.
func DefaultLoggerConfig() *LoggerConfig {
	return &LoggerConfig{
		Name:  "logmask",
		Level: "info",
		Mode:  "production",
	}
}

// DefaultHTTPTransportConfig returns the built-in HTTP sink settings. The
// sink is disabled until enabled in configuration.
func DefaultHTTPTransportConfig() *HTTPTransportConfig {
	return &HTTPTransportConfig{
		BatchSize:     transport.DefaultBatchSize,
		FlushInterval: transport.DefaultFlushInterval,
		Timeout:       transport.DefaultHTTPTimeout,
		QueueSize:     transport.DefaultQueueSize,
	}
}

// DefaultSentryTransportConfig returns the built-in Sentry sink settings.
// Sample rates are left unset, which sends everything.
func DefaultSentryTransportConfig() *SentryTransportConfig {
	return &SentryTransportConfig{}
}

// DefaultServerConfig returns the built-in HTTP API settings.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:            DefaultPort,
		ShutdownTimeout: 10 * time.Second,
		MaxBodyBytes:    1 << 20,
	}
}

// DefaultDiagnosticsConfig returns the built-in diagnostics settings.
func DefaultDiagnosticsConfig() *DiagnosticsConfig {
	return &DiagnosticsConfig{Format: "json", Level: "info"}
}
