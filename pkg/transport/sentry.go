package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/codeready-toolchain/logmask/pkg/record"
	"github.com/codeready-toolchain/logmask/pkg/value"
)

// DefaultSentryFlushTimeout is used by Flush when ctx has no deadline.
const DefaultSentryFlushTimeout = 2 * time.Second

// Hub is the subset of *sentry.Hub used by the Sentry transport.
type Hub interface {
	CaptureEvent(event *sentry.Event) *sentry.EventID
	AddBreadcrumb(breadcrumb *sentry.Breadcrumb, hint *sentry.BreadcrumbHint)
	Flush(timeout time.Duration) bool
}

// SentryOptions configures a Sentry transport.
type SentryOptions struct {
	DSN         string
	Environment string
	Release     string
	// ErrorSampleRate is the fraction of error and fatal records sent as
	// events. Zero means 1.0; a negative rate disables events.
	ErrorSampleRate float64
	// BreadcrumbSampleRate is the fraction of records of any level kept as
	// breadcrumbs. Zero means 1.0; a negative rate disables breadcrumbs.
	BreadcrumbSampleRate float64
	// Context is added to every breadcrumb's data.
	Context *value.Map
	// Hub overrides the hub built from DSN.
	Hub         Hub
	Random      func() float64
	Diagnostics *slog.Logger
}

// Sentry reports error and fatal records as Sentry events and keeps every
// record as a breadcrumb.
type Sentry struct {
	hub            Hub
	errorRate      float64
	breadcrumbRate float64
	context        *value.Map
	random         func() float64
	log            *slog.Logger
}

// NewSentry returns a Sentry transport. Without an explicit Hub a client is
// created from DSN.
func NewSentry(opts SentryOptions) (*Sentry, error) {
	hub := opts.Hub
	if hub == nil {
		if opts.DSN == "" {
			return nil, errors.New("sentry transport requires a DSN")
		}
		client, err := sentry.NewClient(sentry.ClientOptions{
			Dsn:         opts.DSN,
			Environment: opts.Environment,
			Release:     opts.Release,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create sentry client: %w", err)
		}
		hub = sentry.NewHub(client, sentry.NewScope())
	}
	random := opts.Random
	if random == nil {
		random = rand.Float64
	}
	return &Sentry{
		hub:            hub,
		errorRate:      sampleRate(opts.ErrorSampleRate),
		breadcrumbRate: sampleRate(opts.BreadcrumbSampleRate),
		context:        opts.Context,
		random:         random,
		log:            diagnostics(opts.Diagnostics),
	}, nil
}

func sampleRate(r float64) float64 {
	switch {
	case r == 0:
		return 1
	case r < 0:
		return 0
	default:
		return min(r, 1)
	}
}

// Name implements Transport.
func (s *Sentry) Name() string { return "sentry" }

// Send implements Transport.
func (s *Sentry) Send(_ context.Context, rec record.Record) error {
	if rec.Level >= record.LevelError && s.sampled(s.errorRate) {
		s.hub.CaptureEvent(s.event(rec))
	}
	if s.sampled(s.breadcrumbRate) {
		s.hub.AddBreadcrumb(s.breadcrumb(rec), nil)
	}
	return nil
}

// Flush waits for queued events until ctx's deadline.
func (s *Sentry) Flush(ctx context.Context) error {
	timeout := DefaultSentryFlushTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if !s.hub.Flush(timeout) {
		s.log.Warn("Sentry flush timed out", "timeout", timeout)
		return errors.New("sentry flush timed out")
	}
	return nil
}

// Close flushes.
func (s *Sentry) Close(ctx context.Context) error {
	return s.Flush(ctx)
}

func (s *Sentry) sampled(rate float64) bool {
	return rate > 0 && (rate >= 1 || s.random() < rate)
}

func (s *Sentry) event(rec record.Record) *sentry.Event {
	event := sentry.NewEvent()
	event.Level = sentryLevel(rec.Level)
	event.Message = rec.Message
	event.Logger = rec.LoggerName
	event.Timestamp = rec.Timestamp
	event.Tags = map[string]string{
		"level":  rec.Level.String(),
		"logger": rec.LoggerName,
	}
	event.Extra = map[string]any{
		"message":    rec.Message,
		"context":    rec.Context.Any(),
		"attributes": rec.Attributes.Any(),
	}
	event.Exception = []sentry.Exception{exception(rec)}
	return event
}

// exception uses the error map written by Logger.Capture when present.
func exception(rec record.Record) sentry.Exception {
	for _, key := range []string{"error", "err"} {
		v, ok := rec.Attributes.Get(key)
		if !ok {
			continue
		}
		m, ok := v.AsMap()
		if !ok {
			continue
		}
		name, _ := mapString(m, "name")
		msg, _ := mapString(m, "message")
		if name != "" || msg != "" {
			return sentry.Exception{Type: name, Value: msg}
		}
	}
	return sentry.Exception{Type: "LogError", Value: rec.Message}
}

func mapString(m *value.Map, key string) (string, bool) {
	v, ok := m.Get(key)
	if !ok {
		return "", false
	}
	return v.AsString()
}

func (s *Sentry) breadcrumb(rec record.Record) *sentry.Breadcrumb {
	data := map[string]any{
		"logger":     rec.LoggerName,
		"context":    rec.Context.Any(),
		"attributes": rec.Attributes.Any(),
	}
	for k, v := range s.context.All() {
		data[k] = v.Any()
	}
	return &sentry.Breadcrumb{
		Category:  "log",
		Message:   rec.Message,
		Level:     sentryLevel(rec.Level),
		Timestamp: rec.Timestamp,
		Data:      data,
	}
}

func sentryLevel(l record.Level) sentry.Level {
	switch l {
	case record.LevelTrace, record.LevelDebug:
		return sentry.LevelDebug
	case record.LevelInfo:
		return sentry.LevelInfo
	case record.LevelWarn:
		return sentry.LevelWarning
	case record.LevelError:
		return sentry.LevelError
	default:
		return sentry.LevelFatal
	}
}
