package redact

import (
	"log/slog"

	"github.com/codeready-toolchain/logmask/pkg/masking"
)

// StrictObserver surfaces masking anomalies to the operator: each one is
// counted in Metrics and logged as a warning on the diagnostics logger.
// The diagnostics logger must not itself be a masking logger.
type StrictObserver struct {
	metrics *Metrics
	log     *slog.Logger
}

// NewStrictObserver returns a StrictObserver. Either argument may be nil;
// a nil log uses slog.Default.
func NewStrictObserver(metrics *Metrics, log *slog.Logger) *StrictObserver {
	if log == nil {
		log = slog.Default()
	}
	return &StrictObserver{metrics: metrics, log: log}
}

// Observe implements masking.Observer.
func (o *StrictObserver) Observe(a masking.Anomaly) {
	if o.metrics != nil {
		o.metrics.RecordAnomaly(a.Kind)
	}
	o.log.Warn("Masking step skipped",
		"kind", string(a.Kind),
		"field", a.Field,
		"rule", a.Rule,
		"detail", a.Detail)
}
