package redact

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/codeready-toolchain/logmask/pkg/masking"
)

// Metrics holds Prometheus metrics for the redaction pipeline.
type Metrics struct {
	// AnomaliesTotal counts skipped masking steps by anomaly kind.
	AnomaliesTotal *prometheus.CounterVec
	// RecordsMaskedTotal counts records passed through a pipeline.
	RecordsMaskedTotal prometheus.Counter
	// MaskDurationSeconds tracks the time spent masking one record.
	MaskDurationSeconds prometheus.Histogram
}

// NewMetrics creates the pipeline metrics and registers them with reg. A
// nil reg registers with the default Prometheus registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		AnomaliesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "logmask_masking_anomalies_total",
			Help: "Total number of masking steps skipped for a field, by kind",
		}, []string{"kind"}),
		RecordsMaskedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "logmask_records_masked_total",
			Help: "Total number of log records passed through the redaction pipeline",
		}),
		MaskDurationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "logmask_mask_duration_seconds",
			Help:    "Time spent masking a single log record",
			Buckets: prometheus.ExponentialBuckets(0.000001, 4, 10), // 1µs to ~0.26s
		}),
	}
}

// RecordAnomaly increments the anomaly counter for kind.
func (m *Metrics) RecordAnomaly(kind masking.AnomalyKind) {
	m.AnomaliesTotal.WithLabelValues(string(kind)).Inc()
}

// RecordMasked counts one masked record and its duration.
func (m *Metrics) RecordMasked(d time.Duration) {
	m.RecordsMaskedTotal.Inc()
	m.MaskDurationSeconds.Observe(d.Seconds())
}
