package logger

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/codeready-toolchain/logmask/pkg/record"
	"github.com/codeready-toolchain/logmask/pkg/redact"
	"github.com/codeready-toolchain/logmask/pkg/value"
)

// Handler is a slog.Handler that masks records before passing them to
// another handler. Attributes added with WithAttrs are masked as the
// record context, call attributes as its attributes. Groups become nested
// maps.
type Handler struct {
	pipeline *redact.Pipeline
	next     slog.Handler
	context  *value.Map
	groups   []string
}

var _ slog.Handler = (*Handler)(nil)

// NewHandler returns a masking handler in front of next.
func NewHandler(pipeline *redact.Pipeline, next slog.Handler) *Handler {
	if pipeline == nil {
		pipeline = redact.New(nil)
	}
	return &Handler{pipeline: pipeline, next: next}
}

// Enabled implements slog.Handler.
func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	rec := record.Record{
		Timestamp:  r.Time,
		Level:      record.FromSlog(r.Level),
		Message:    r.Message,
		Context:    h.context,
		Attributes: nest(h.groups, recordAttrs(r)),
	}
	masked := h.pipeline.Mask(rec)

	out := slog.NewRecord(r.Time, r.Level, masked.Message, r.PC)
	out.AddAttrs(masked.Context.MergeDeep(masked.Attributes).Attrs()...)
	return h.next.Handle(ctx, out)
}

// WithAttrs implements slog.Handler.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	h2 := *h
	h2.context = h.context.MergeDeep(nest(h.groups, attrsToMap(attrs)))
	return &h2
}

// WithGroup implements slog.Handler.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.groups = append(slices.Clone(h.groups), name)
	return &h2
}

// Handler returns a slog.Handler that logs through l, so code written
// against log/slog gets the same masking, backend and transports.
func (l *Logger) Handler() slog.Handler {
	return &loggerHandler{logger: l}
}

// Slog returns a *slog.Logger backed by l.
func (l *Logger) Slog() *slog.Logger {
	return slog.New(l.Handler())
}

type loggerHandler struct {
	logger *Logger
	groups []string
}

func (h *loggerHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.logger.Enabled(record.FromSlog(level))
}

func (h *loggerHandler) Handle(ctx context.Context, r slog.Record) error {
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	h.logger.write(ctx, record.FromSlog(r.Level), r.Message, nest(h.groups, recordAttrs(r)), ts)
	return nil
}

func (h *loggerHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	l := h.logger.withContext(h.logger.context.MergeDeep(nest(h.groups, attrsToMap(attrs))))
	return &loggerHandler{logger: l, groups: h.groups}
}

func (h *loggerHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &loggerHandler{logger: h.logger, groups: append(slices.Clone(h.groups), name)}
}

func recordAttrs(r slog.Record) *value.Map {
	attrs := make([]slog.Attr, 0, r.NumAttrs())
	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, a)
		return true
	})
	return attrsToMap(attrs)
}

// nest places m under the group path. An empty m stays empty, as slog
// drops empty groups.
func nest(groups []string, m *value.Map) *value.Map {
	if m.Len() == 0 {
		return m
	}
	for i := len(groups) - 1; i >= 0; i-- {
		m = value.NewMap(value.Pair(groups[i], value.MapValue(m)))
	}
	return m
}

func attrsToMap(attrs []slog.Attr) *value.Map {
	m := value.NewMap()
	for _, a := range attrs {
		v := a.Value.Resolve()
		if a.Key == "" {
			if v.Kind() == slog.KindGroup {
				m = m.MergeDeep(attrsToMap(v.Group()))
			}
			continue
		}
		if v.Kind() == slog.KindGroup && len(v.Group()) == 0 {
			continue
		}
		m = m.With(a.Key, slogValue(v))
	}
	return m
}

func slogValue(v slog.Value) value.Value {
	switch v.Kind() {
	case slog.KindString:
		return value.StringValue(v.String())
	case slog.KindInt64:
		return value.IntValue(v.Int64())
	case slog.KindUint64:
		return value.FromAny(v.Uint64())
	case slog.KindFloat64:
		return value.NumberValue(v.Float64())
	case slog.KindBool:
		return value.BoolValue(v.Bool())
	case slog.KindDuration:
		return value.FromAny(v.Duration())
	case slog.KindTime:
		return value.FromAny(v.Time())
	case slog.KindGroup:
		return value.MapValue(attrsToMap(v.Group()))
	}
	return value.FromAny(v.Any())
}
