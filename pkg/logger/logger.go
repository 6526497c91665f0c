// Package logger is the structured logger built on the redaction pipeline.
// Every record is enriched, masked once, and the masked record is handed to
// the backend and to each transport.
package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/codeready-toolchain/logmask/pkg/catalog"
	"github.com/codeready-toolchain/logmask/pkg/enrich"
	"github.com/codeready-toolchain/logmask/pkg/masking"
	"github.com/codeready-toolchain/logmask/pkg/policy"
	"github.com/codeready-toolchain/logmask/pkg/record"
	"github.com/codeready-toolchain/logmask/pkg/redact"
	"github.com/codeready-toolchain/logmask/pkg/transport"
	"github.com/codeready-toolchain/logmask/pkg/value"
)

// DefaultName is used when Options.Name is empty.
const DefaultName = "logmask"

// Mode selects the default backend.
type Mode string

const (
	// ModeProduction writes JSON lines through zap.
	ModeProduction Mode = "production"
	// ModeDevelopment writes coloured console lines through tint.
	ModeDevelopment Mode = "development"
	// ModeTest keeps records in a Recorder.
	ModeTest Mode = "test"
)

// ParseMode parses a mode name. The empty string is production.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case "":
		return ModeProduction, nil
	case ModeProduction, ModeDevelopment, ModeTest:
		return m, nil
	}
	return "", fmt.Errorf("unknown logger mode %q", s)
}

// Options configures a Logger.
type Options struct {
	Name string
	// Level is the minimum level written. Empty means info.
	Level string
	Mode  Mode
	// Context is attached to every record.
	Context *value.Map

	// Pipeline takes precedence over Policy, and Policy over Masking.
	Pipeline *redact.Pipeline
	Policy   *policy.Policy
	Masking  policy.Spec
	Catalog  *catalog.Catalog
	Observer masking.Observer
	Metrics  *redact.Metrics

	Enricher   *enrich.Enricher
	Backend    Backend
	Transports []transport.Transport
	// Output is where the default production and development backends
	// write. Defaults to os.Stdout.
	Output io.Writer
	// Diagnostics receives the logger's own failures. It must not be backed
	// by this Logger. Defaults to slog.Default().
	Diagnostics *slog.Logger
}

// Logger logs masked records. A Logger is safe for concurrent use; children
// share everything except their context.
type Logger struct {
	core    *core
	context *value.Map
}

type core struct {
	name       string
	threshold  record.Level
	pipeline   *redact.Pipeline
	enricher   *enrich.Enricher
	backend    Backend
	transports []transport.Transport
	diag       *slog.Logger

	mu       sync.Mutex
	counters map[string]int64
}

// New builds a Logger. Policy resolution errors are returned as
// *policy.ConfigurationError.
func New(opts Options) (*Logger, error) {
	threshold := record.LevelInfo
	if opts.Level != "" {
		lvl, err := record.ParseLevel(opts.Level)
		if err != nil {
			return nil, err
		}
		threshold = lvl
	}
	mode, err := ParseMode(string(opts.Mode))
	if err != nil {
		return nil, err
	}

	pipeline := opts.Pipeline
	if pipeline == nil {
		p := opts.Policy
		if p == nil {
			p, err = policy.Resolve(opts.Catalog, opts.Masking)
			if err != nil {
				return nil, err
			}
		}
		pipeline = redact.New(p, redact.WithObserver(opts.Observer), redact.WithMetrics(opts.Metrics))
	}

	backend := opts.Backend
	if backend == nil {
		out := opts.Output
		if out == nil {
			out = os.Stdout
		}
		switch mode {
		case ModeDevelopment:
			backend = NewSlogBackend(NewConsoleHandler(out, false))
		case ModeTest:
			backend = NewRecorder()
		default:
			backend = NewZapJSONBackend(zapcore.AddSync(out))
		}
	}

	name := opts.Name
	if name == "" {
		name = DefaultName
	}
	diag := opts.Diagnostics
	if diag == nil {
		diag = slog.Default()
	}

	return &Logger{
		core: &core{
			name:       name,
			threshold:  threshold,
			pipeline:   pipeline,
			enricher:   opts.Enricher,
			backend:    backend,
			transports: slices.Clone(opts.Transports),
			diag:       diag,
			counters:   make(map[string]int64),
		},
		context: opts.Context,
	}, nil
}

// NewDefault returns a development-friendly logger using the default
// masking preset.
func NewDefault(name string) (*Logger, error) {
	return New(Options{
		Name:    name,
		Level:   "info",
		Masking: policy.Spec{Presets: []string{policy.PresetDefault}},
	})
}

// NewProduction returns a JSON logger using the production masking preset.
func NewProduction(name string, transports ...transport.Transport) (*Logger, error) {
	return New(Options{
		Name:       name,
		Level:      "info",
		Mode:       ModeProduction,
		Masking:    policy.Spec{Presets: []string{policy.PresetProduction}},
		Transports: transports,
	})
}

// Name returns the logger name.
func (l *Logger) Name() string { return l.core.name }

// Context returns the context attached to every record of this logger.
func (l *Logger) Context() *value.Map { return l.context }

// Pipeline returns the redaction pipeline.
func (l *Logger) Pipeline() *redact.Pipeline { return l.core.pipeline }

// Backend returns the backend records are written to.
func (l *Logger) Backend() Backend { return l.core.backend }

// Enabled reports whether records at level are written.
func (l *Logger) Enabled(level record.Level) bool {
	return level.Enabled(l.core.threshold)
}

// Trace logs at trace level. args are slog-style key/value pairs; a leading
// error is logged under "err".
func (l *Logger) Trace(msg string, args ...any) {
	l.Log(context.Background(), record.LevelTrace, msg, args...)
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, args ...any) {
	l.Log(context.Background(), record.LevelDebug, msg, args...)
}

// Info logs at info level.
func (l *Logger) Info(msg string, args ...any) {
	l.Log(context.Background(), record.LevelInfo, msg, args...)
}

// Warn logs at warn level.
func (l *Logger) Warn(msg string, args ...any) {
	l.Log(context.Background(), record.LevelWarn, msg, args...)
}

// Error logs at error level.
func (l *Logger) Error(msg string, args ...any) {
	l.Log(context.Background(), record.LevelError, msg, args...)
}

// Fatal logs at fatal level. It does not exit the process.
func (l *Logger) Fatal(msg string, args ...any) {
	l.Log(context.Background(), record.LevelFatal, msg, args...)
}

// Log logs at level. ctx is passed to the transports.
func (l *Logger) Log(ctx context.Context, level record.Level, msg string, args ...any) {
	if !l.Enabled(level) {
		return
	}
	l.write(ctx, level, msg, attributes(args), time.Now())
}

// Write masks rec and hands it to the backend and transports. The
// logger's context is merged under the record's own context and the level
// threshold applies. It is used to re-emit records received from outside.
func (l *Logger) Write(ctx context.Context, rec record.Record) record.Record {
	rec.Context = l.context.Merge(rec.Context)
	if rec.LoggerName == "" {
		rec.LoggerName = l.core.name
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	masked := l.core.pipeline.Mask(l.core.enricher.Enrich(rec))
	if l.Enabled(rec.Level) {
		l.emit(ctx, masked)
	}
	return masked
}

func (l *Logger) write(ctx context.Context, level record.Level, msg string, attrs *value.Map, ts time.Time) {
	rec := record.Record{
		Timestamp:  ts,
		Level:      level,
		Message:    msg,
		LoggerName: l.core.name,
		Context:    l.context,
		Attributes: attrs,
	}
	l.emit(ctx, l.core.pipeline.Mask(l.core.enricher.Enrich(rec)))
}

func (l *Logger) emit(ctx context.Context, masked record.Record) {
	if err := l.core.backend.Write(masked); err != nil {
		l.core.diag.Warn("Failed to write log record", "logger", l.core.name, "error", err)
	}
	for _, t := range l.core.transports {
		err := t.Send(ctx, masked)
		if err != nil && !errors.Is(err, transport.ErrQueueFull) {
			l.core.diag.Warn("Transport rejected log record",
				"logger", l.core.name, "transport", t.Name(), "error", err)
		}
	}
}

// Child returns a logger whose context is this logger's context merged with
// args. The child shares the pipeline, counters, backend and transports.
func (l *Logger) Child(args ...any) *Logger {
	return l.withContext(l.context.Merge(value.FromPairs(args...)))
}

func (l *Logger) withContext(ctx *value.Map) *Logger {
	return &Logger{core: l.core, context: ctx}
}

// Timer measures a duration started by Logger.Time.
type Timer struct {
	logger *Logger
	label  string
	start  time.Time
}

// Time starts a timer.
func (l *Logger) Time(label string) *Timer {
	return &Timer{logger: l, label: label, start: time.Now()}
}

// End logs "Timer <label> completed" at info with duration_ms.
func (t *Timer) End(args ...any) time.Duration {
	d := time.Since(t.start)
	t.logger.Info(fmt.Sprintf("Timer %s completed", t.label),
		append(slices.Clone(args), "duration_ms", d.Milliseconds())...)
	return d
}

// Count adds delta to the named counter and logs "Counter <name>" at info
// with the new count and the delta. Counters are shared with children.
func (l *Logger) Count(name string, delta int64, args ...any) int64 {
	l.core.mu.Lock()
	l.core.counters[name] += delta
	n := l.core.counters[name]
	l.core.mu.Unlock()

	l.Info(fmt.Sprintf("Counter %s", name),
		append(slices.Clone(args), "count", n, "delta", delta)...)
	return n
}

// Counter returns the current value of the named counter.
func (l *Logger) Counter(name string) int64 {
	l.core.mu.Lock()
	defer l.core.mu.Unlock()
	return l.core.counters[name]
}

// Capture logs err at error level as "Captured error" with an "error" map
// holding its type name, message and cause. A nil err is ignored.
func (l *Logger) Capture(err error, args ...any) {
	if err == nil {
		return
	}
	l.Error("Captured error", append(slices.Clone(args), "error", errorValue(err))...)
}

// Flush flushes every transport, then syncs the backend.
func (l *Logger) Flush(ctx context.Context) error {
	var errs []error
	for _, t := range l.core.transports {
		if err := t.Flush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("flush %s transport: %w", t.Name(), err))
		}
	}
	if err := l.core.backend.Sync(); err != nil {
		errs = append(errs, fmt.Errorf("sync backend: %w", err))
	}
	return errors.Join(errs...)
}

// Close flushes and closes every transport. The logger must not be used
// afterwards.
func (l *Logger) Close(ctx context.Context) error {
	errs := []error{l.Flush(ctx)}
	for _, t := range l.core.transports {
		if err := t.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close %s transport: %w", t.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// attributes converts call arguments. A leading error becomes "err".
func attributes(args []any) *value.Map {
	if len(args) == 0 {
		return nil
	}
	if err, ok := args[0].(error); ok {
		return value.NewMap(value.Pair("err", errorValue(err))).Merge(value.FromPairs(args[1:]...))
	}
	return value.FromPairs(args...)
}

func errorValue(err error) value.Value {
	entries := []value.Entry{
		value.Pair("name", value.StringValue(fmt.Sprintf("%T", err))),
		value.Pair("message", value.StringValue(err.Error())),
	}
	if cause := errors.Unwrap(err); cause != nil {
		entries = append(entries, value.Pair("cause", value.StringValue(cause.Error())))
	}
	return value.MapValue(value.NewMap(entries...))
}
