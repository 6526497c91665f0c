package config

import (
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := load(t.Context(), t.TempDir())
	require.NoError(t, err)
	return cfg
}

func TestValidateAll(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
		section string
		field   string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name:    "unknown logger mode",
			mutate:  func(c *Config) { c.Logger.Mode = "staging" },
			wantErr: ErrInvalidValue,
			section: "logger",
			field:   "mode",
		},
		{
			name:    "negative max depth",
			mutate:  func(c *Config) { c.Masking.MaxDepth = -1 },
			wantErr: ErrInvalidValue,
			section: "masking",
			field:   "max_depth",
		},
		{
			name: "malformed http url",
			mutate: func(c *Config) {
				c.Transports.HTTP.Enabled = true
				c.Transports.HTTP.URL = "not a url"
			},
			wantErr: ErrInvalidValue,
			section: "transports.http",
			field:   "url",
		},
		{
			name:   "disabled http sink needs no url",
			mutate: func(c *Config) { c.Transports.HTTP.URL = "" },
		},
		{
			name:    "sentry enabled without dsn",
			mutate:  func(c *Config) { c.Transports.Sentry.Enabled = true },
			wantErr: ErrInvalidValue,
			section: "transports.sentry",
			field:   "dsn",
		},
		{
			name:    "sample rate above one",
			mutate:  func(c *Config) { c.Transports.Sentry.ErrorSampleRate = lo.ToPtr(1.5) },
			wantErr: ErrInvalidValue,
			section: "transports.sentry",
			field:   "error_sample_rate",
		},
		{
			name:    "negative sample rate",
			mutate:  func(c *Config) { c.Transports.Sentry.BreadcrumbSampleRate = lo.ToPtr(-0.1) },
			wantErr: ErrInvalidValue,
			section: "transports.sentry",
			field:   "breadcrumb_sample_rate",
		},
		{
			name:    "non-numeric port",
			mutate:  func(c *Config) { c.Server.Port = "http" },
			wantErr: ErrInvalidValue,
			section: "server",
			field:   "port",
		},
		{
			name:    "unknown diagnostics format",
			mutate:  func(c *Config) { c.Diagnostics.Format = "xml" },
			wantErr: ErrInvalidValue,
			section: "diagnostics",
			field:   "format",
		},
		{
			name:    "empty static enrichment key",
			mutate:  func(c *Config) { c.Enrich.Static = map[string]any{"": 1} },
			wantErr: ErrInvalidValue,
			section: "enrich",
			field:   "static",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig(t)
			tt.mutate(cfg)

			err := NewValidator(cfg).ValidateAll()
			if tt.wantErr == nil {
				require.NoError(t, err)
				assert.NotNil(t, cfg.Policy)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, cfg.Policy)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.section, verr.Section)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestValidateUnknownEnrichmentListsNames(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.Enrich.Dynamic = []string{"pid", "mood", "weather"}

	err := NewValidator(cfg).ValidateAll()
	require.ErrorIs(t, err, ErrUnknownEnrichment)
	assert.Contains(t, err.Error(), "mood, weather")
	assert.Contains(t, err.Error(), "request_id")
}
