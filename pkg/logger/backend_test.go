package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/codeready-toolchain/logmask/pkg/policy"
	"github.com/codeready-toolchain/logmask/pkg/record"
	"github.com/codeready-toolchain/logmask/pkg/redact"
	"github.com/codeready-toolchain/logmask/pkg/value"
)

func sampleRecord(level record.Level) record.Record {
	rec := record.New(level, "svc", "hello")
	rec.Timestamp = time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	rec.Context = value.FromPairs("region", "eu", "id", 1)
	rec.Attributes = value.FromPairs("id", 2, "user", value.FromPairs("name", "bob", "tags", []string{"a", "b"}))
	return rec
}

func TestZapBackend_JSONLayout(t *testing.T) {
	var buf bytes.Buffer
	b := NewZapJSONBackend(zapcore.AddSync(&buf))

	require.NoError(t, b.Write(sampleRecord(record.LevelWarn)))
	require.NoError(t, b.Write(sampleRecord(record.LevelFatal)))
	require.NoError(t, b.Sync())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2, "fatal must not exit")

	v, err := value.ParseJSON([]byte(lines[0]))
	require.NoError(t, err)
	m, _ := v.AsMap()
	assert.Equal(t, []string{"level", "timestamp", "loggerName", "message", "region", "id", "user"}, m.Keys())
	assert.Contains(t, lines[0], `"level":"warn"`)
	assert.Contains(t, lines[0], `"timestamp":"2024-05-06T07:08:09.000Z"`)
	assert.Contains(t, lines[0], `"id":2`)
	assert.Contains(t, lines[0], `"user":{"name":"bob","tags":["a","b"]}`)
	assert.Contains(t, lines[1], `"level":"fatal"`)
}

func TestZapBackend_Observer(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	b := NewZapBackend(core)

	require.NoError(t, b.Write(sampleRecord(record.LevelDebug)))
	require.NoError(t, b.Write(sampleRecord(record.LevelError)))

	require.Equal(t, 1, logs.Len(), "the core's own level still applies")
	entry := logs.All()[0]
	assert.Equal(t, zapcore.ErrorLevel, entry.Level)
	assert.Equal(t, "svc", entry.LoggerName)
	assert.Equal(t, "hello", entry.Message)
	ctx := entry.ContextMap()
	assert.Equal(t, "eu", ctx["region"])
	assert.Equal(t, int64(2), ctx["id"])
	assert.Equal(t, map[string]any{"name": "bob", "tags": []any{"a", "b"}}, ctx["user"])
}

func TestSlogBackend_Console(t *testing.T) {
	var buf bytes.Buffer
	b := NewSlogBackend(NewConsoleHandler(&buf, true))

	require.NoError(t, b.Write(sampleRecord(record.LevelTrace)))
	require.NoError(t, b.Write(sampleRecord(record.LevelInfo)))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "TRACE")
	assert.Contains(t, lines[0], "hello")
	assert.Contains(t, lines[0], "logger=svc")
	assert.Contains(t, lines[1], "INF")
	assert.Contains(t, lines[1], "user.name=bob")
}

func TestSlogBackend_RespectsHandlerLevel(t *testing.T) {
	var buf bytes.Buffer
	b := NewSlogBackend(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	require.NoError(t, b.Write(sampleRecord(record.LevelInfo)))
	assert.Empty(t, buf.String())

	require.NoError(t, b.Write(sampleRecord(record.LevelFatal)))
	assert.Contains(t, buf.String(), `"level":"ERROR+4"`)
	assert.Contains(t, buf.String(), `"user":{"name":"bob","tags":["a","b"]}`)
}

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	require.NoError(t, r.Write(sampleRecord(record.LevelInfo)))
	assert.Equal(t, 1, r.Len())

	got := r.Records()
	got[0].Message = "changed"
	assert.Equal(t, "hello", r.Records()[0].Message)

	r.Reset()
	assert.Equal(t, 0, r.Len())
}

func TestHandler_MasksSlogRecords(t *testing.T) {
	p, err := policy.Resolve(nil, policy.Spec{Presets: []string{policy.PresetDefault}})
	require.NoError(t, err)
	var buf bytes.Buffer
	h := NewHandler(redact.New(p), slog.NewJSONHandler(&buf, nil))

	slog.New(h).
		With("token", "abc").
		WithGroup("req").
		With("id", 7).
		Info("mail alice@example.com", "email", "x@y.com", slog.Group("auth", "password", "pw"))

	v, err := value.ParseJSON(bytes.TrimSpace(buf.Bytes()))
	require.NoError(t, err)
	out, _ := v.AsMap()

	msg, _ := out.Get("msg")
	assert.Equal(t, `"mail ***@***.***"`, msg.String())
	token, _ := out.Get("token")
	assert.Equal(t, `"[REDACTED]"`, token.String())
	req, ok := out.Get("req")
	require.True(t, ok)
	assert.Equal(t, `{"id":7,"email":"***@***.***","auth":{"password":"pw"}}`, req.String())
}

func TestHandler_EmptyPolicyPassesThrough(t *testing.T) {
	var buf bytes.Buffer
	h := NewHandler(nil, slog.NewJSONHandler(&buf, nil))

	slog.New(h).Info("password=x", "email", "a@b.co")

	assert.Contains(t, buf.String(), `"msg":"password=x"`)
	assert.Contains(t, buf.String(), `"email":"a@b.co"`)
	assert.True(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.False(t, h.Enabled(context.Background(), slog.LevelDebug))
}

func TestLogger_SlogBridge(t *testing.T) {
	l, rec := newTestLogger(t, Options{Masking: defaultPreset()})

	sl := l.Slog().With("password", "p", "service", "api")
	sl.Debug("hidden")
	sl.WithGroup("http").Warn("request", "status", 500, "client", "bob@example.com")

	require.Equal(t, 1, rec.Len())
	got := rec.Records()[0]
	assert.Equal(t, record.LevelWarn, got.Level)
	assert.Equal(t, `{"password":"[REDACTED]","service":"api"}`, got.Context.String())
	assert.Equal(t, `{"http":{"status":500,"client":"***@***.***"}}`, got.Attributes.String())
}
