package redact

import (
	"bytes"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/logmask/pkg/masking"
	"github.com/codeready-toolchain/logmask/pkg/policy"
	"github.com/codeready-toolchain/logmask/pkg/record"
	"github.com/codeready-toolchain/logmask/pkg/value"
)

func mustMap(t *testing.T, s string) *value.Map {
	t.Helper()
	v, err := value.ParseJSON([]byte(s))
	require.NoError(t, err)
	m, ok := v.AsMap()
	require.True(t, ok)
	return m
}

func mustPipeline(t *testing.T, spec policy.Spec, opts ...Option) *Pipeline {
	t.Helper()
	p, err := policy.Resolve(nil, spec)
	require.NoError(t, err)
	return New(p, opts...)
}

func newRecord(t *testing.T, msg, attrs string) record.Record {
	t.Helper()
	return record.Record{
		Timestamp:  time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Level:      record.LevelInfo,
		Message:    msg,
		LoggerName: "test",
		Context:    value.NewMap(),
		Attributes: mustMap(t, attrs),
	}
}

func TestMask_EmptyPolicyIsIdentity(t *testing.T) {
	rec := newRecord(t, "mail a@b.com card 4111-1111-1111-1111",
		`{"password":"secret","user":{"email":"a@b.com"},"list":[1,"x",null]}`)

	for _, p := range []*Pipeline{New(nil), New(policy.Empty()), mustPipeline(t, policy.Spec{})} {
		out := p.Mask(rec)
		assert.True(t, rec.Equal(out))
		assert.Same(t, rec.Attributes, out.Attributes)
	}
}

func TestMask_FullPathReplace(t *testing.T) {
	p := mustPipeline(t, policy.Spec{SensitivePaths: []string{"password"}})

	for _, attrs := range []string{
		`{"password":"secret"}`,
		`{"password":12345}`,
		`{"password":{"nested":["a","b"]}}`,
		`{"password":""}`,
	} {
		out := p.Mask(newRecord(t, "login", attrs))
		got, ok := out.Attributes.Get("password")
		require.True(t, ok)
		assert.Equal(t, value.StringValue(p.Policy().MaskValue()), got, "input %s", attrs)
	}
}

func TestMask_NestedPathIsolation(t *testing.T) {
	p := mustPipeline(t, policy.Spec{SensitivePaths: []string{"user.email"}})

	out := p.Mask(newRecord(t, "m", `{"user":{"email":"a@b.com","name":"X"}}`))

	assert.Equal(t, `{"user":{"email":"[REDACTED]","name":"X"}}`, out.Attributes.String())
}

func TestMask_DeepScanToggle(t *testing.T) {
	attrs := `{"list":[{"email":"a@b.com"}]}`
	email := policy.PatternSpec{Catalog: "email"}

	deep := mustPipeline(t, policy.Spec{Patterns: []policy.PatternSpec{email}, DeepScan: lo.ToPtr(true)})
	shallow := mustPipeline(t, policy.Spec{Patterns: []policy.PatternSpec{email}, DeepScan: lo.ToPtr(false)})

	assert.Equal(t, `{"list":[{"email":"***@***.***"}]}`, deep.Mask(newRecord(t, "m", attrs)).Attributes.String())
	assert.Equal(t, `{"list":[{"email":"a@b.com"}]}`, shallow.Mask(newRecord(t, "m", attrs)).Attributes.String())
}

func TestMask_MessageAlwaysScanned(t *testing.T) {
	p := mustPipeline(t, policy.Spec{
		Patterns: []policy.PatternSpec{{Catalog: "email"}},
		DeepScan: lo.ToPtr(false),
	})

	out := p.Mask(newRecord(t, "sent to a@b.com", `{}`))

	assert.Equal(t, "sent to ***@***.***", out.Message)
}

func TestMask_SequentialComposition(t *testing.T) {
	a := policy.PatternSpec{Pattern: `secret`, Replacement: "token", Description: "A"}
	b := policy.PatternSpec{Pattern: `token`, Replacement: "[T]", Description: "B"}

	ab := mustPipeline(t, policy.Spec{Patterns: []policy.PatternSpec{a, b}})
	ba := mustPipeline(t, policy.Spec{Patterns: []policy.PatternSpec{b, a}})

	assert.Equal(t, "[T]", ab.Mask(newRecord(t, "secret", `{}`)).Message)
	assert.Equal(t, "token", ba.Mask(newRecord(t, "secret", `{}`)).Message)
}

func TestMask_PathWinsOverPattern(t *testing.T) {
	p := mustPipeline(t, policy.Spec{
		Patterns:       []policy.PatternSpec{{Catalog: "aadhaar"}},
		SensitivePaths: []string{"user.aadhaar"},
	})

	out := p.Mask(newRecord(t, "m", `{"user":{"aadhaar":"1234 5678 9012"},"note":"1234 5678 9012"}`))

	assert.Equal(t, `{"user":{"aadhaar":"[REDACTED]"},"note":"****-****-****"}`, out.Attributes.String())
}

func TestMask_UnreachablePathNoOp(t *testing.T) {
	p := mustPipeline(t, policy.Spec{SensitivePaths: []string{"a.b.c"}})
	rec := newRecord(t, "m", `{"a":1}`)

	out := p.Mask(rec)

	assert.Equal(t, `{"a":1}`, out.Attributes.String())
	assert.Same(t, rec.Attributes, out.Attributes)
}

func TestMask_CreditCardMessage(t *testing.T) {
	p := mustPipeline(t, policy.Spec{Patterns: []policy.PatternSpec{{Catalog: "creditCard"}}})

	out := p.Mask(newRecord(t, "card 4111-1111-1111-1111", `{}`))

	assert.Equal(t, "card ****-****-****-****", out.Message)
}

func TestMask_UsersEmailList(t *testing.T) {
	p := mustPipeline(t, policy.Spec{
		Patterns: []policy.PatternSpec{{Catalog: "email"}},
		DeepScan: lo.ToPtr(true),
	})

	out := p.Mask(newRecord(t, "m", `{"users":[{"email":"u1@x.com"},{"email":"u2@x.com"}]}`))

	assert.Equal(t, `{"users":[{"email":"***@***.***"},{"email":"***@***.***"}]}`, out.Attributes.String())
}

func TestMask_ContextAndAttributesBothMasked(t *testing.T) {
	p := mustPipeline(t, policy.Spec{
		Patterns:       []policy.PatternSpec{{Catalog: "email"}},
		SensitivePaths: []string{"token"},
	})
	rec := newRecord(t, "m", `{"token":"abc"}`)
	rec.Context = mustMap(t, `{"owner":"ops@corp.io","token":"xyz"}`)

	out := p.Mask(rec)

	assert.Equal(t, `{"owner":"***@***.***","token":"[REDACTED]"}`, out.Context.String())
	assert.Equal(t, `{"token":"[REDACTED]"}`, out.Attributes.String())
	// The input record is untouched.
	assert.Equal(t, `{"owner":"ops@corp.io","token":"xyz"}`, rec.Context.String())
}

func TestMask_KeepsRecordMetadata(t *testing.T) {
	p := mustPipeline(t, policy.Spec{Presets: []string{policy.PresetDefault}})
	rec := newRecord(t, "hello", `{}`)
	rec.Level = record.LevelError

	out := p.Mask(rec)

	assert.Equal(t, rec.Timestamp, out.Timestamp)
	assert.Equal(t, record.LevelError, out.Level)
	assert.Equal(t, "test", out.LoggerName)
}

func TestMask_NilMaps(t *testing.T) {
	p := mustPipeline(t, policy.Spec{Presets: []string{policy.PresetProduction}})

	out := p.Mask(record.Record{Message: "password=hunter2"})

	assert.Equal(t, "password=***REDACTED***", out.Message)
	assert.Equal(t, 0, out.Context.Len())
	assert.Equal(t, 0, out.Attributes.Len())
}

func TestMask_Concurrent(t *testing.T) {
	p := mustPipeline(t, policy.Spec{Presets: []string{policy.PresetProduction}})
	rec := newRecord(t, "user a@b.com", `{"password":"x","user":{"email":"c@d.com"}}`)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				out := p.Mask(rec)
				assert.Equal(t, `{"password":"[REDACTED]","user":{"email":"***@***.***"}}`, out.Attributes.String())
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, `{"password":"x","user":{"email":"c@d.com"}}`, rec.Attributes.String())
}

func TestMask_NotIdempotent(t *testing.T) {
	// A replacement matched by its own rule grows on every pass.
	p := mustPipeline(t, policy.Spec{Patterns: []policy.PatternSpec{
		{Pattern: `x`, Replacement: "xx", Description: "double"},
	}})

	once := p.Mask(newRecord(t, "x", `{}`))
	twice := p.Mask(once)

	assert.Equal(t, "xx", once.Message)
	assert.Equal(t, "xxxx", twice.Message)
}

func TestStrictObserver(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	p := mustPipeline(t,
		policy.Spec{SensitivePaths: []string{"a.b"}, Patterns: []policy.PatternSpec{{Catalog: "email"}}},
		WithObserver(NewStrictObserver(metrics, log)),
		WithMetrics(metrics),
		WithMaxDepth(2),
	)

	p.Mask(newRecord(t, "m", `{"a":[1],"deep":{"x":{"y":"a@b.com"}}}`))

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.AnomaliesTotal.WithLabelValues(string(masking.AnomalyUnreachablePath))))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.AnomaliesTotal.WithLabelValues(string(masking.AnomalyDepthExceeded))))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RecordsMaskedTotal))
	assert.Contains(t, buf.String(), "Masking step skipped")
	assert.Contains(t, buf.String(), "kind=unreachable_path")
	assert.Contains(t, buf.String(), "rule=a.b")
}

func TestMaskFields_PanicKeepsPreviousValue(t *testing.T) {
	var got []masking.Anomaly
	obs := masking.ObserverFunc(func(a masking.Anomaly) { got = append(got, a) })
	broken := &masking.Rule{Name: "broken"}
	email, err := masking.CompileRule("email", `\S+@\S+`, "<email>", "")
	require.NoError(t, err)

	p := &Pipeline{
		policy:   policy.Empty(),
		patterns: masking.NewPatternMasker([]*masking.Rule{broken, email}, true, 0, obs),
		paths:    masking.NewPathMasker([]masking.Path{masking.MustParsePath("pw")}, "[REDACTED]", obs),
		observer: obs,
	}

	out := p.MaskFields(FieldAttributes, mustMap(t, `{"to":"a@b.com","pw":"x"}`))

	assert.Equal(t, `{"to":"<email>","pw":"[REDACTED]"}`, out.String())
	require.NotEmpty(t, got)
	assert.Equal(t, masking.AnomalyRulePanic, got[0].Kind)
	assert.Equal(t, FieldAttributes, got[0].Field)
}
