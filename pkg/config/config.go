package config

import (
	"github.com/codeready-toolchain/logmask/pkg/policy"
)

// Config is the umbrella configuration object returned by Initialize. Every
// section is populated: built-in defaults, then logmask.yaml, then
// environment overrides.
type Config struct {
	configDir string

	Logger      *LoggerConfig
	Masking     *MaskingConfig
	Enrich      *EnrichConfig
	Transports  *TransportsConfig
	Server      *ServerConfig
	Diagnostics *DiagnosticsConfig

	// Policy is the resolved masking policy.
	Policy *policy.Policy
}

// Initialize is defined in loader.go

// Stats contains statistics about loaded configuration
type Stats struct {
	Rules          int
	SensitivePaths int
	Enrichments    int
	Transports     int
}

// Stats returns configuration statistics for logging/monitoring
func (c *Config) Stats() Stats {
	s := Stats{}
	if c.Policy != nil {
		s.Rules = len(c.Policy.Rules())
		s.SensitivePaths = len(c.Policy.Paths())
	}
	if c.Enrich != nil {
		s.Enrichments = len(c.Enrich.Static) + len(c.Enrich.Dynamic)
	}
	if c.Transports != nil {
		if c.Transports.HTTP != nil && c.Transports.HTTP.Enabled {
			s.Transports++
		}
		if c.Transports.Sentry != nil && c.Transports.Sentry.Enabled {
			s.Transports++
		}
	}
	return s
}

// ConfigDir returns the configuration directory path
func (c *Config) ConfigDir() string {
	return c.configDir
}
