package logger

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/lmittmann/tint"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/codeready-toolchain/logmask/pkg/record"
)

// Backend writes masked records. Implementations must be safe for
// concurrent use.
type Backend interface {
	Write(rec record.Record) error
	Sync() error
}

// ZapBackend writes records to a zap core. Fatal records are written like
// any other level; the process is never terminated.
type ZapBackend struct {
	core zapcore.Core
}

// NewZapBackend wraps an existing core.
func NewZapBackend(core zapcore.Core) *ZapBackend {
	return &ZapBackend{core: core}
}

// EncoderConfig is the JSON layout used by NewZapJSONBackend.
func EncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "timestamp"
	cfg.NameKey = "loggerName"
	cfg.MessageKey = "message"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg
}

// NewZapJSONBackend writes one JSON object per record to ws. Level
// filtering is left to the Logger, so every level is enabled here.
func NewZapJSONBackend(ws zapcore.WriteSyncer) *ZapBackend {
	core := zapcore.NewCore(zapcore.NewJSONEncoder(EncoderConfig()), ws, zapcore.DebugLevel)
	return NewZapBackend(core)
}

// Write implements Backend.
func (b *ZapBackend) Write(rec record.Record) error {
	entry := zapcore.Entry{
		Level:      rec.Level.ZapLevel(),
		Time:       rec.Timestamp,
		LoggerName: rec.LoggerName,
		Message:    rec.Message,
	}
	ce := b.core.Check(entry, nil)
	if ce == nil {
		return nil
	}
	ce.Write(zap.Inline(rec.Fields()))
	return nil
}

// Sync implements Backend.
func (b *ZapBackend) Sync() error {
	return b.core.Sync()
}

// SlogBackend hands records to a slog.Handler.
type SlogBackend struct {
	handler slog.Handler
}

// NewSlogBackend wraps h.
func NewSlogBackend(h slog.Handler) *SlogBackend {
	return &SlogBackend{handler: h}
}

// NewConsoleHandler returns a coloured tint handler that prints trace and
// fatal with their own names.
func NewConsoleHandler(w io.Writer, noColor bool) slog.Handler {
	return tint.NewHandler(w, &tint.Options{
		Level:      record.SlogLevelTrace,
		TimeFormat: time.TimeOnly,
		NoColor:    noColor,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key != slog.LevelKey || len(groups) > 0 {
				return a
			}
			lvl, ok := a.Value.Any().(slog.Level)
			if !ok {
				return a
			}
			switch l := record.FromSlog(lvl); l {
			case record.LevelTrace, record.LevelFatal:
				return slog.String(slog.LevelKey, strings.ToUpper(l.String()))
			}
			return a
		},
	})
}

// Write implements Backend. The logger name is added as a "logger"
// attribute.
func (b *SlogBackend) Write(rec record.Record) error {
	ctx := context.Background()
	lvl := rec.Level.SlogLevel()
	if !b.handler.Enabled(ctx, lvl) {
		return nil
	}
	r := slog.NewRecord(rec.Timestamp, lvl, rec.Message, 0)
	if rec.LoggerName != "" {
		r.AddAttrs(slog.String("logger", rec.LoggerName))
	}
	r.AddAttrs(rec.Fields().Attrs()...)
	return b.handler.Handle(ctx, r)
}

// Sync implements Backend.
func (b *SlogBackend) Sync() error { return nil }

// Recorder keeps records in memory. It backs test mode.
type Recorder struct {
	mu      sync.Mutex
	records []record.Record
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Write implements Backend.
func (r *Recorder) Write(rec record.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return nil
}

// Sync implements Backend.
func (r *Recorder) Sync() error { return nil }

// Records returns the records written so far.
func (r *Recorder) Records() []record.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.records)
}

// Len returns the number of records written so far.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// Reset drops the recorded records.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = nil
}
