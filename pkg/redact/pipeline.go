// Package redact applies a resolved masking policy to log records.
package redact

import (
	"time"

	"github.com/codeready-toolchain/logmask/pkg/masking"
	"github.com/codeready-toolchain/logmask/pkg/policy"
	"github.com/codeready-toolchain/logmask/pkg/record"
	"github.com/codeready-toolchain/logmask/pkg/value"
)

// Record field names reported in anomalies.
const (
	FieldMessage    = "message"
	FieldContext    = "context"
	FieldAttributes = "attributes"
)

// Pipeline masks records with one policy: pattern rules first, then
// sensitive paths. It holds no mutable state and is safe for concurrent use.
type Pipeline struct {
	policy   *policy.Policy
	patterns *masking.PatternMasker
	paths    *masking.PathMasker
	observer masking.Observer
	metrics  *Metrics
}

type options struct {
	observer masking.Observer
	metrics  *Metrics
	maxDepth int
}

// Option configures a Pipeline.
type Option func(*options)

// WithObserver sets the receiver of masking anomalies. The default discards
// them.
func WithObserver(o masking.Observer) Option {
	return func(opts *options) { opts.observer = o }
}

// WithMetrics counts masked records and their duration.
func WithMetrics(m *Metrics) Option {
	return func(opts *options) { opts.metrics = m }
}

// WithMaxDepth overrides value.DefaultMaxDepth for deep scanning.
func WithMaxDepth(n int) Option {
	return func(opts *options) { opts.maxDepth = n }
}

// New builds a Pipeline for p. A nil p is the empty policy.
func New(p *policy.Policy, opts ...Option) *Pipeline {
	if p == nil {
		p = policy.Empty()
	}
	o := options{observer: masking.NopObserver}
	for _, opt := range opts {
		opt(&o)
	}
	if o.observer == nil {
		o.observer = masking.NopObserver
	}
	return &Pipeline{
		policy:   p,
		patterns: masking.NewPatternMasker(p.Rules(), p.DeepScan(), o.maxDepth, o.observer),
		paths:    masking.NewPathMasker(p.Paths(), p.MaskValue(), o.observer),
		observer: o.observer,
		metrics:  o.metrics,
	}
}

// Policy returns the policy the pipeline applies.
func (p *Pipeline) Policy() *policy.Policy { return p.policy }

// Mask returns rec with its message, context and attributes redacted. The
// input record and its maps are never modified. Mask never fails: a step
// that panics is skipped for that field and reported to the observer.
func (p *Pipeline) Mask(rec record.Record) record.Record {
	if p.policy.IsEmpty() {
		return rec
	}
	start := time.Now()

	out := rec
	out.Message = masking.Guard(p.observer, FieldMessage, "", rec.Message, func() string {
		return p.patterns.MaskString(FieldMessage, rec.Message)
	})
	out.Context = p.MaskFields(FieldContext, rec.Context)
	out.Attributes = p.MaskFields(FieldAttributes, rec.Attributes)

	if p.metrics != nil {
		p.metrics.RecordMasked(time.Since(start))
	}
	return out
}

// MaskFields applies pattern then path masking to one record map. field
// names the map in reported anomalies.
func (p *Pipeline) MaskFields(field string, m *value.Map) *value.Map {
	m = masking.Guard(p.observer, field, "", m, func() *value.Map {
		return p.patterns.MaskMap(field, m)
	})
	return masking.Guard(p.observer, field, "", m, func() *value.Map {
		return p.paths.MaskMap(field, m)
	})
}
