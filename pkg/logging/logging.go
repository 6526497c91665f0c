// Package logging builds the process diagnostics logger. Diagnostics never
// pass through a masking logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
)

// Output formats.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Options configures the diagnostics logger.
type Options struct {
	// Format is json (zap) or console (tint). Empty means json.
	Format string
	// Level is debug, info, warn or error. trace is accepted as debug.
	Level string
	// Output defaults to os.Stderr.
	Output io.Writer
}

// New returns the diagnostics logger and a sync function the caller should
// defer.
func New(opts Options) (*slog.Logger, func(), error) {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	lvl, err := parseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}

	switch opts.Format {
	case "", FormatJSON:
		core := zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(out),
			lvl,
		)
		z := zap.New(core)
		return SlogFromZap(z), func() { _ = z.Sync() }, nil
	case FormatConsole:
		h := tint.NewHandler(out, &tint.Options{
			Level:      zapToSlog(lvl),
			TimeFormat: time.TimeOnly,
		})
		return slog.New(h), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown log format %q", opts.Format)
}

// SlogFromZap creates an *slog.Logger that writes directly to the zap core.
func SlogFromZap(z *zap.Logger) *slog.Logger {
	return slog.New(zapslog.NewHandler(z.Core()))
}

func parseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(s) {
	case "trace", "debug":
		return zapcore.DebugLevel, nil
	case "", "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	}
	return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", s)
}

func zapToSlog(l zapcore.Level) slog.Level {
	switch l {
	case zapcore.DebugLevel:
		return slog.LevelDebug
	case zapcore.WarnLevel:
		return slog.LevelWarn
	case zapcore.ErrorLevel:
		return slog.LevelError
	}
	return slog.LevelInfo
}
