package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/codeready-toolchain/logmask/pkg/enrich"
	"github.com/codeready-toolchain/logmask/pkg/logger"
	"github.com/codeready-toolchain/logmask/pkg/masking"
	"github.com/codeready-toolchain/logmask/pkg/policy"
	"github.com/codeready-toolchain/logmask/pkg/redact"
	"github.com/codeready-toolchain/logmask/pkg/transport"
	"github.com/codeready-toolchain/logmask/pkg/value"
)

// BuildOptions carries the process-level dependencies of NewLogger.
type BuildOptions struct {
	// Diagnostics receives the logger's own failures and, in strict mode,
	// masking anomalies.
	Diagnostics *slog.Logger
	// Registerer receives the pipeline metrics. Nil disables metrics.
	Registerer prometheus.Registerer
	// Output is where the logger's backend writes. Defaults to os.Stdout.
	Output io.Writer
}

// Pipeline builds the redaction pipeline described by the masking section.
func (c *Config) Pipeline(opts BuildOptions) *redact.Pipeline {
	p := c.Policy
	if p == nil {
		p = policy.Empty()
	}
	var metrics *redact.Metrics
	if opts.Registerer != nil {
		metrics = redact.NewMetrics(opts.Registerer)
	}
	var observer masking.Observer
	if c.Masking.Strict {
		observer = redact.NewStrictObserver(metrics, opts.Diagnostics)
	}
	return redact.New(p,
		redact.WithObserver(observer),
		redact.WithMetrics(metrics),
		redact.WithMaxDepth(c.Masking.MaxDepth))
}

// Enricher builds the enricher described by the enrich section, or nil when
// the section is empty.
func (c *Config) Enricher() (*enrich.Enricher, error) {
	if len(c.Enrich.Static) == 0 && len(c.Enrich.Dynamic) == 0 {
		return nil, nil
	}
	dynamic, err := enrich.Builtin(c.Enrich.Dynamic...)
	if err != nil {
		return nil, err
	}
	return enrich.New(toMap(c.Enrich.Static), dynamic...), nil
}

// NewTransports opens the enabled transports. On error, transports opened
// so far are returned alongside it so the caller can close them.
func (c *Config) NewTransports(diag *slog.Logger) ([]transport.Transport, error) {
	var out []transport.Transport
	if h := c.Transports.HTTP; h.Enabled {
		t, err := transport.NewHTTP(transport.HTTPOptions{
			URL:           h.URL,
			Headers:       h.Headers,
			BatchSize:     h.BatchSize,
			FlushInterval: h.FlushInterval,
			Timeout:       h.Timeout,
			QueueSize:     h.QueueSize,
			Diagnostics:   diag,
		})
		if err != nil {
			return out, fmt.Errorf("failed to create HTTP transport: %w", err)
		}
		out = append(out, t)
	}
	if s := c.Transports.Sentry; s.Enabled {
		t, err := transport.NewSentry(transport.SentryOptions{
			DSN:                  s.DSN,
			Environment:          s.Environment,
			Release:              s.Release,
			ErrorSampleRate:      sentryRate(s.ErrorSampleRate),
			BreadcrumbSampleRate: sentryRate(s.BreadcrumbSampleRate),
			Context:              toMap(c.Logger.Context),
			Diagnostics:          diag,
		})
		if err != nil {
			return out, fmt.Errorf("failed to create Sentry transport: %w", err)
		}
		out = append(out, t)
	}
	return out, nil
}

// NewLogger builds the masking logger described by the configuration,
// including its transports. Closing the logger closes them.
func (c *Config) NewLogger(opts BuildOptions) (*logger.Logger, error) {
	enricher, err := c.Enricher()
	if err != nil {
		return nil, fmt.Errorf("failed to create enricher: %w", err)
	}
	transports, err := c.NewTransports(opts.Diagnostics)
	if err != nil {
		closeAll(transports)
		return nil, err
	}
	l, err := logger.New(logger.Options{
		Name:        c.Logger.Name,
		Level:       c.Logger.Level,
		Mode:        logger.Mode(c.Logger.Mode),
		Context:     toMap(c.Logger.Context),
		Pipeline:    c.Pipeline(opts),
		Enricher:    enricher,
		Transports:  transports,
		Output:      opts.Output,
		Diagnostics: opts.Diagnostics,
	})
	if err != nil {
		closeAll(transports)
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return l, nil
}

// sentryRate converts a configured sample rate to transport.SentryOptions
// form, where zero means "send everything" and a negative rate disables.
func sentryRate(r *float64) float64 {
	switch {
	case r == nil:
		return 1
	case *r == 0:
		return -1
	default:
		return *r
	}
}

func closeAll(ts []transport.Transport) {
	for _, t := range ts {
		_ = t.Close(context.Background())
	}
}

func toMap(m map[string]any) *value.Map {
	if len(m) == 0 {
		return nil
	}
	v, _ := value.FromAny(m).AsMap()
	return v
}
