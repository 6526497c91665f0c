// Package enrich adds static and computed metadata to a record's context
// before it is masked.
package enrich

import (
	"fmt"

	"github.com/codeready-toolchain/logmask/pkg/record"
	"github.com/codeready-toolchain/logmask/pkg/value"
)

// ErrorValue replaces a dynamic field whose function failed or panicked.
const ErrorValue = "[enrichment-error]"

// Func computes a dynamic field for one record.
type Func func(rec record.Record) (value.Value, error)

// Field is a named dynamic field.
type Field struct {
	Key string
	Fn  Func
}

// Enricher merges static fields and then dynamic fields into the context of
// each record. Later keys win over earlier ones and over the record's own
// context. An Enricher is safe for concurrent use if its Funcs are.
type Enricher struct {
	static  *value.Map
	dynamic []Field
}

// New returns an Enricher. static may be nil.
func New(static *value.Map, dynamic ...Field) *Enricher {
	return &Enricher{static: static, dynamic: dynamic}
}

// Keys returns the keys this enricher sets, static first.
func (e *Enricher) Keys() []string {
	keys := e.static.Keys()
	for _, f := range e.dynamic {
		keys = append(keys, f.Key)
	}
	return keys
}

// Enrich returns rec with the enrichment fields merged into Context. A nil
// Enricher returns rec unchanged. Enrichment never fails the record: a
// failing field is set to ErrorValue.
func (e *Enricher) Enrich(rec record.Record) record.Record {
	if e == nil || (e.static.Len() == 0 && len(e.dynamic) == 0) {
		return rec
	}
	ctx := rec.Context.Merge(e.static)
	if len(e.dynamic) > 0 {
		entries := make([]value.Entry, len(e.dynamic))
		for i, f := range e.dynamic {
			entries[i] = value.Pair(f.Key, evaluate(f.Fn, rec))
		}
		ctx = ctx.Merge(value.NewMap(entries...))
	}
	rec.Context = ctx
	return rec
}

func evaluate(fn Func, rec record.Record) (v value.Value) {
	defer func() {
		if r := recover(); r != nil {
			v = value.StringValue(ErrorValue)
		}
	}()
	if fn == nil {
		return value.StringValue(ErrorValue)
	}
	out, err := fn(rec)
	if err != nil {
		return value.StringValue(ErrorValue)
	}
	return out
}

// Static returns a Func that always yields x.
func Static(x any) Func {
	v := value.FromAny(x)
	return func(record.Record) (value.Value, error) { return v, nil }
}

// FromFunc adapts a plain function returning any Go value.
func FromFunc(fn func() (any, error)) Func {
	return func(record.Record) (value.Value, error) {
		x, err := fn()
		if err != nil {
			return value.Value{}, fmt.Errorf("enrich: %w", err)
		}
		return value.FromAny(x), nil
	}
}
