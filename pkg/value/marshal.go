package value

import (
	"log/slog"
	"math"
	"strconv"

	"go.uber.org/zap/zapcore"
)

// asInt reports whether v is a number with an exact int64 representation.
func (v Value) asInt() (int64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	if v.s != "" {
		i, err := strconv.ParseInt(v.s, 10, 64)
		return i, err == nil
	}
	if v.n == math.Trunc(v.n) && v.n >= math.MinInt64 && v.n < math.MaxInt64 {
		return int64(v.n), true
	}
	return 0, false
}

// LogValue implements slog.LogValuer. Maps become ordered groups.
func (v Value) LogValue() slog.Value {
	switch v.kind {
	case KindBool:
		return slog.BoolValue(v.b)
	case KindNumber:
		if i, ok := v.asInt(); ok {
			return slog.Int64Value(i)
		}
		return slog.Float64Value(v.n)
	case KindString:
		return slog.StringValue(v.s)
	case KindList:
		return slog.AnyValue(v.Any())
	case KindMap:
		return v.m.LogValue()
	}
	return slog.AnyValue(nil)
}

// LogValue implements slog.LogValuer.
func (m *Map) LogValue() slog.Value {
	return slog.GroupValue(m.Attrs()...)
}

// Attrs returns the entries of m as slog attributes.
func (m *Map) Attrs() []slog.Attr {
	attrs := make([]slog.Attr, 0, m.Len())
	for _, e := range m.Entries() {
		attrs = append(attrs, slog.Attr{Key: e.Key, Value: e.Value.LogValue()})
	}
	return attrs
}

// MarshalLogObject implements zapcore.ObjectMarshaler, keeping key order.
func (m *Map) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	for _, e := range m.Entries() {
		if err := addField(enc, e.Key, e.Value); err != nil {
			return err
		}
	}
	return nil
}

func addField(enc zapcore.ObjectEncoder, key string, v Value) error {
	switch v.kind {
	case KindBool:
		enc.AddBool(key, v.b)
	case KindNumber:
		if i, ok := v.asInt(); ok {
			enc.AddInt64(key, i)
		} else {
			enc.AddFloat64(key, v.n)
		}
	case KindString:
		enc.AddString(key, v.s)
	case KindList:
		return enc.AddArray(key, zapList(v.list))
	case KindMap:
		return enc.AddObject(key, v.m)
	default:
		return enc.AddReflected(key, nil)
	}
	return nil
}

type zapList []Value

// MarshalLogArray implements zapcore.ArrayMarshaler.
func (l zapList) MarshalLogArray(enc zapcore.ArrayEncoder) error {
	for _, v := range l {
		switch v.kind {
		case KindBool:
			enc.AppendBool(v.b)
		case KindNumber:
			if i, ok := v.asInt(); ok {
				enc.AppendInt64(i)
			} else {
				enc.AppendFloat64(v.n)
			}
		case KindString:
			enc.AppendString(v.s)
		case KindList:
			if err := enc.AppendArray(zapList(v.list)); err != nil {
				return err
			}
		case KindMap:
			if err := enc.AppendObject(v.m); err != nil {
				return err
			}
		default:
			if err := enc.AppendReflected(nil); err != nil {
				return err
			}
		}
	}
	return nil
}
