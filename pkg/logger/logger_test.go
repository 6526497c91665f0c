package logger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/logmask/pkg/enrich"
	"github.com/codeready-toolchain/logmask/pkg/policy"
	"github.com/codeready-toolchain/logmask/pkg/record"
	"github.com/codeready-toolchain/logmask/pkg/transport"
	"github.com/codeready-toolchain/logmask/pkg/value"
)

type fakeTransport struct {
	mu      sync.Mutex
	sent    []record.Record
	sendErr error
	flushes int
	closes  int
}

func (f *fakeTransport) Name() string { return "fake" }

func (f *fakeTransport) Send(_ context.Context, rec record.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, rec)
	return f.sendErr
}

func (f *fakeTransport) Flush(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushes++
	return nil
}

func (f *fakeTransport) Close(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	return nil
}

func newTestLogger(t *testing.T, opts Options) (*Logger, *Recorder) {
	t.Helper()
	rec := NewRecorder()
	opts.Backend = rec
	l, err := New(opts)
	require.NoError(t, err)
	return l, rec
}

func defaultPreset() policy.Spec {
	return policy.Spec{Presets: []string{policy.PresetDefault}}
}

func TestLogger_LevelThreshold(t *testing.T) {
	l, rec := newTestLogger(t, Options{Level: "warn"})

	l.Trace("t")
	l.Debug("d")
	l.Info("i")
	l.Warn("w")
	l.Error("e")
	l.Fatal("f")

	var got []string
	for _, r := range rec.Records() {
		got = append(got, r.Level.String()+":"+r.Message)
	}
	assert.Equal(t, []string{"warn:w", "error:e", "fatal:f"}, got)
	assert.False(t, l.Enabled(record.LevelInfo))
	assert.True(t, l.Enabled(record.LevelFatal))
}

func TestLogger_DefaultLevelIsInfo(t *testing.T) {
	l, rec := newTestLogger(t, Options{})
	l.Debug("hidden")
	l.Info("shown")
	require.Equal(t, 1, rec.Len())
	assert.Equal(t, DefaultName, rec.Records()[0].LoggerName)
}

func TestLogger_MasksEveryField(t *testing.T) {
	l, rec := newTestLogger(t, Options{
		Name:    "api",
		Masking: defaultPreset(),
		Context: value.FromPairs("token", "abc", "service", "billing"),
	})

	l.Info("contact alice@example.com", "email", "bob@example.com", "user", value.FromPairs("note", "mail carol@example.com"))

	require.Equal(t, 1, rec.Len())
	got := rec.Records()[0]
	assert.Equal(t, "api", got.LoggerName)
	assert.Equal(t, "contact ***@***.***", got.Message)
	assert.Equal(t, `{"token":"[REDACTED]","service":"billing"}`, got.Context.String())
	assert.Equal(t, `{"email":"[REDACTED]","user":{"note":"mail ***@***.***"}}`, got.Attributes.String())
}

func TestLogger_LeadingErrorArgument(t *testing.T) {
	l, rec := newTestLogger(t, Options{})

	l.Error("failed", errors.New("boom"), "attempt", 2)

	got := rec.Records()[0]
	assert.Equal(t, `{"err":{"name":"*errors.errorString","message":"boom"},"attempt":2}`, got.Attributes.String())
}

func TestLogger_CyclicAttribute(t *testing.T) {
	l, rec := newTestLogger(t, Options{Masking: defaultPreset()})
	m := map[string]any{"email": "a@b.com"}
	m["self"] = m

	l.Info("cyclic", "m", m)

	require.Equal(t, 1, rec.Len())
	assert.Equal(t, `{"m":{"email":"***@***.***","self":"[circular]"}}`, rec.Records()[0].Attributes.String())
}

func TestLogger_ChildSharesCountersAndMergesContext(t *testing.T) {
	l, rec := newTestLogger(t, Options{Context: value.FromPairs("a", 1, "b", 1)})
	child := l.Child("b", 2, "c", 3)

	assert.Equal(t, int64(2), child.Count("jobs", 2))
	assert.Equal(t, int64(5), l.Count("jobs", 3, "queue", "q1"))
	assert.Equal(t, int64(5), child.Counter("jobs"))

	records := rec.Records()
	require.Len(t, records, 2)
	assert.Equal(t, "Counter jobs", records[0].Message)
	assert.Equal(t, `{"a":1,"b":2,"c":3}`, records[0].Context.String())
	assert.Equal(t, `{"count":2,"delta":2}`, records[0].Attributes.String())
	assert.Equal(t, `{"a":1,"b":1}`, records[1].Context.String())
	assert.Equal(t, `{"queue":"q1","count":5,"delta":3}`, records[1].Attributes.String())
}

func TestLogger_Timer(t *testing.T) {
	l, rec := newTestLogger(t, Options{})
	args := []any{"step", "load"}

	l.Time("import").End(args...)

	got := rec.Records()[0]
	assert.Equal(t, "Timer import completed", got.Message)
	assert.Equal(t, []string{"step", "duration_ms"}, got.Attributes.Keys())
	ms, ok := got.Attributes.Get("duration_ms")
	require.True(t, ok)
	n, isNumber := ms.AsNumber()
	assert.True(t, isNumber)
	assert.GreaterOrEqual(t, n, float64(0))
	assert.Len(t, args, 2, "caller arguments must not be modified")
}

func TestLogger_Capture(t *testing.T) {
	l, rec := newTestLogger(t, Options{Masking: defaultPreset()})

	l.Capture(nil)
	l.Capture(fmt.Errorf("load user alice@example.com: %w", errors.New("not found")), "op", "load")

	require.Equal(t, 1, rec.Len())
	got := rec.Records()[0]
	assert.Equal(t, record.LevelError, got.Level)
	assert.Equal(t, "Captured error", got.Message)
	assert.Equal(t,
		`{"op":"load","error":{"name":"*fmt.wrapError","message":"load user ***@***.***: not found","cause":"not found"}}`,
		got.Attributes.String())
}

func TestLogger_Enricher(t *testing.T) {
	l, rec := newTestLogger(t, Options{
		Masking:  defaultPreset(),
		Enricher: enrich.New(value.FromPairs("secret", "s3", "region", "eu")),
	})

	l.Info("m")

	assert.Equal(t, `{"secret":"[REDACTED]","region":"eu"}`, rec.Records()[0].Context.String())
}

func TestLogger_Transports(t *testing.T) {
	var diag bytes.Buffer
	ok := &fakeTransport{}
	failing := &fakeTransport{sendErr: errors.New("down")}
	l, rec := newTestLogger(t, Options{
		Masking:     defaultPreset(),
		Transports:  []transport.Transport{ok, failing},
		Diagnostics: slog.New(slog.NewTextHandler(&diag, nil)),
	})

	l.Info("card 4111 1111 1111 1111")
	l.Debug("below threshold")

	require.Len(t, ok.sent, 1)
	assert.True(t, ok.sent[0].Equal(rec.Records()[0]), "transports receive the masked record")
	assert.Equal(t, "card ****-****-****-****", ok.sent[0].Message)
	assert.Contains(t, diag.String(), "Transport rejected log record")

	ctx := context.Background()
	require.NoError(t, l.Flush(ctx))
	require.NoError(t, l.Close(ctx))
	assert.Equal(t, 2, ok.flushes)
	assert.Equal(t, 1, ok.closes)
}

func TestLogger_Write(t *testing.T) {
	l, rec := newTestLogger(t, Options{
		Name:    "ingest",
		Level:   "info",
		Masking: defaultPreset(),
		Context: value.FromPairs("host", "h1"),
	})

	in := record.New(record.LevelDebug, "", "password=hunter2")
	in.Context = value.FromPairs("host", "h2")
	masked := l.Write(context.Background(), in)

	assert.Equal(t, "password=***REDACTED***", masked.Message)
	assert.Equal(t, "ingest", masked.LoggerName)
	assert.Equal(t, `{"host":"h2"}`, masked.Context.String())
	assert.Equal(t, 0, rec.Len(), "debug is below the threshold")

	in.Level = record.LevelError
	l.Write(context.Background(), in)
	assert.Equal(t, 1, rec.Len())
}

func TestNew_Errors(t *testing.T) {
	_, err := New(Options{Level: "loud"})
	assert.Error(t, err)

	_, err = New(Options{Mode: "staging"})
	assert.Error(t, err)

	_, err = New(Options{Masking: policy.Spec{SensitivePaths: []string{"a..b"}}})
	var cfgErr *policy.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.ErrorIs(t, err, policy.ErrInvalidPath)
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{in: "", want: ModeProduction},
		{in: "production", want: ModeProduction},
		{in: "development", want: ModeDevelopment},
		{in: "test", want: ModeTest},
		{in: "prod", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew_ModeSelectsBackend(t *testing.T) {
	var buf bytes.Buffer

	prod, err := New(Options{Output: &buf})
	require.NoError(t, err)
	assert.IsType(t, &ZapBackend{}, prod.Backend())

	dev, err := New(Options{Mode: ModeDevelopment, Output: &buf})
	require.NoError(t, err)
	assert.IsType(t, &SlogBackend{}, dev.Backend())

	test, err := New(Options{Mode: ModeTest})
	require.NoError(t, err)
	assert.IsType(t, &Recorder{}, test.Backend())
}

func TestNewProduction(t *testing.T) {
	l, err := NewProduction("svc")
	require.NoError(t, err)
	assert.Equal(t, "svc", l.Name())
	assert.True(t, l.Pipeline().Policy().PartialMasking())
	assert.Contains(t, l.Pipeline().Policy().SensitivePaths(), "passport")

	d, err := NewDefault("svc")
	require.NoError(t, err)
	assert.NotContains(t, d.Pipeline().Policy().SensitivePaths(), "passport")
}
