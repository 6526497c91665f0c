package record

import (
	"fmt"
	"log/slog"
	"strings"

	"go.uber.org/zap/zapcore"
)

// Level is the severity of a record.
type Level uint8

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

// slog has no trace or fatal level; they sit one step outside debug and error.
const (
	SlogLevelTrace = slog.LevelDebug - 4
	SlogLevelFatal = slog.LevelError + 4
)

var levelNames = [...]string{
	LevelTrace: "trace",
	LevelDebug: "debug",
	LevelInfo:  "info",
	LevelWarn:  "warn",
	LevelError: "error",
	LevelFatal: "fatal",
}

// Levels returns every level from least to most severe.
func Levels() []Level {
	return []Level{LevelTrace, LevelDebug, LevelInfo, LevelWarn, LevelError, LevelFatal}
}

// ParseLevel parses a level name, case-insensitively. "warning" is accepted
// as an alias for warn.
func ParseLevel(s string) (Level, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "warning" {
		return LevelWarn, nil
	}
	for l, n := range levelNames {
		if n == name {
			return Level(l), nil
		}
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return fmt.Sprintf("Level(%d)", uint8(l))
}

// Valid reports whether l is one of the six defined levels.
func (l Level) Valid() bool { return l <= LevelFatal }

// Enabled reports whether a record at level l passes the given threshold.
func (l Level) Enabled(threshold Level) bool { return l >= threshold }

// SlogLevel maps l onto the slog level scale.
func (l Level) SlogLevel() slog.Level {
	switch l {
	case LevelTrace:
		return SlogLevelTrace
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	case LevelFatal:
		return SlogLevelFatal
	}
	return slog.LevelInfo
}

// FromSlog maps a slog level to the nearest Level at or below it.
func FromSlog(sl slog.Level) Level {
	switch {
	case sl >= SlogLevelFatal:
		return LevelFatal
	case sl >= slog.LevelError:
		return LevelError
	case sl >= slog.LevelWarn:
		return LevelWarn
	case sl >= slog.LevelInfo:
		return LevelInfo
	case sl >= slog.LevelDebug:
		return LevelDebug
	}
	return LevelTrace
}

// ZapLevel maps l onto zap levels. zap has no trace level, so trace is
// emitted at debug.
func (l Level) ZapLevel() zapcore.Level {
	switch l {
	case LevelTrace, LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	case LevelFatal:
		return zapcore.FatalLevel
	}
	return zapcore.InfoLevel
}

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("invalid log level %d", uint8(l))
	}
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Level) UnmarshalText(text []byte) error {
	parsed, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
