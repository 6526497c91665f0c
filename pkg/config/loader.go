package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"dario.cat/mergo"
	"github.com/caarlos0/env/v10"
	"gopkg.in/yaml.v3"

	"github.com/codeready-toolchain/logmask/pkg/policy"
)

// ConfigFile is the configuration file name inside the config directory.
const ConfigFile = "logmask.yaml"

// Initialize loads, validates, and returns ready-to-use configuration.
// This is the primary entry point for configuration loading.
//
// Steps performed:
//  1. Start from built-in defaults
//  2. Load logmask.yaml from configDir (missing file keeps the defaults)
//  3. Expand {{.VAR}} environment references and parse YAML
//  4. Merge YAML sections over the defaults
//  5. Apply environment variable overrides
//  6. Validate struct constraints, then resolve the masking policy
//  7. Return Config ready for use
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("Initializing configuration")

	cfg, err := load(ctx, configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	stats := cfg.Stats()
	log.Info("Configuration initialized successfully",
		"rules", stats.Rules,
		"sensitive_paths", stats.SensitivePaths,
		"enrichments", stats.Enrichments,
		"transports", stats.Transports)

	return cfg, nil
}

// load is the internal loader (not exported)
func load(_ context.Context, configDir string) (*Config, error) {
	loader := &configLoader{configDir: configDir}

	yamlCfg, err := loader.loadLogmaskYAML()
	switch {
	case errors.Is(err, ErrConfigNotFound):
		slog.Warn("Configuration file not found, using built-in defaults",
			"path", filepath.Join(configDir, ConfigFile))
		yamlCfg = &LogmaskYAMLConfig{}
	case err != nil:
		return nil, NewLoadError(ConfigFile, err)
	}

	cfg := &Config{
		configDir: configDir,
		Logger:    DefaultLoggerConfig(),
		Masking:   resolveMaskingConfig(yamlCfg.Masking),
		Enrich:    resolveEnrichConfig(yamlCfg.Enrich),
		Transports: &TransportsConfig{
			HTTP:   DefaultHTTPTransportConfig(),
			Sentry: DefaultSentryTransportConfig(),
		},
		Server:      DefaultServerConfig(),
		Diagnostics: DefaultDiagnosticsConfig(),
	}

	// User-provided values override defaults; zero values keep them
	if err := mergeSection("logger", cfg.Logger, yamlCfg.Logger); err != nil {
		return nil, err
	}
	if yamlCfg.Transports != nil {
		if err := mergeSection("transports.http", cfg.Transports.HTTP, yamlCfg.Transports.HTTP); err != nil {
			return nil, err
		}
		if err := mergeSection("transports.sentry", cfg.Transports.Sentry, yamlCfg.Transports.Sentry); err != nil {
			return nil, err
		}
	}
	if err := mergeSection("server", cfg.Server, yamlCfg.Server); err != nil {
		return nil, err
	}
	if err := mergeSection("diagnostics", cfg.Diagnostics, yamlCfg.Diagnostics); err != nil {
		return nil, err
	}

	if err := applyEnvironment(cfg); err != nil {
		return nil, NewLoadError("environment", err)
	}

	return cfg, nil
}

func mergeSection[T any](name string, dst, src *T) error {
	if src == nil {
		return nil
	}
	if err := mergo.Merge(dst, src, mergo.WithOverride); err != nil {
		return fmt.Errorf("failed to merge %s config: %w", name, err)
	}
	return nil
}

// resolveMaskingConfig applies the default preset when the masking section is
// absent. An explicit section, even an empty one, is used as written.
func resolveMaskingConfig(m *MaskingConfig) *MaskingConfig {
	if m == nil {
		return &MaskingConfig{Spec: policy.Spec{Presets: []string{policy.PresetDefault}}}
	}
	out := *m
	return &out
}

func resolveEnrichConfig(e *EnrichConfig) *EnrichConfig {
	if e == nil {
		return &EnrichConfig{}
	}
	return &EnrichConfig{
		Static:  maps.Clone(e.Static),
		Dynamic: slices.Clone(e.Dynamic),
	}
}

// environment lists the variables that override logmask.yaml. Unset
// variables leave the YAML value in place.
type environment struct {
	LoggerName        *string `env:"LOGMASK_NAME"`
	LoggerLevel       *string `env:"LOGMASK_LEVEL"`
	LoggerMode        *string `env:"LOGMASK_MODE"`
	Strict            *bool   `env:"LOGMASK_STRICT"`
	HTTPEnabled       *bool   `env:"LOGMASK_HTTP_ENABLED"`
	HTTPURL           *string `env:"LOGMASK_HTTP_URL"`
	SentryEnabled     *bool   `env:"LOGMASK_SENTRY_ENABLED"`
	SentryDSN         *string `env:"SENTRY_DSN"`
	SentryEnvironment *string `env:"SENTRY_ENVIRONMENT"`
	SentryRelease     *string `env:"SENTRY_RELEASE"`
	HTTPPort          *string `env:"HTTP_PORT"`
	LogFormat         *string `env:"LOG_FORMAT"`
	LogLevel          *string `env:"LOG_LEVEL"`
}

func applyEnvironment(cfg *Config) error {
	var e environment
	if err := env.Parse(&e); err != nil {
		return err
	}
	override(&cfg.Logger.Name, e.LoggerName)
	override(&cfg.Logger.Level, e.LoggerLevel)
	override(&cfg.Logger.Mode, e.LoggerMode)
	override(&cfg.Masking.Strict, e.Strict)
	override(&cfg.Transports.HTTP.Enabled, e.HTTPEnabled)
	override(&cfg.Transports.HTTP.URL, e.HTTPURL)
	override(&cfg.Transports.Sentry.Enabled, e.SentryEnabled)
	override(&cfg.Transports.Sentry.DSN, e.SentryDSN)
	override(&cfg.Transports.Sentry.Environment, e.SentryEnvironment)
	override(&cfg.Transports.Sentry.Release, e.SentryRelease)
	override(&cfg.Server.Port, e.HTTPPort)
	override(&cfg.Diagnostics.Format, e.LogFormat)
	override(&cfg.Diagnostics.Level, e.LogLevel)
	return nil
}

func override[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

type configLoader struct {
	configDir string
}

func (l *configLoader) loadYAML(filename string, target any) error {
	path := filepath.Join(l.configDir, filename)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return err
	}

	// Expand environment variables using {{.VAR}} template syntax
	data = ExpandEnv(data)

	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	return nil
}

func (l *configLoader) loadLogmaskYAML() (*LogmaskYAMLConfig, error) {
	var config LogmaskYAMLConfig
	if err := l.loadYAML(ConfigFile, &config); err != nil {
		return nil, err
	}
	return &config, nil
}
