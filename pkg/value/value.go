// Package value models the dynamic, arbitrarily nested data carried by a log
// record. A Value is a closed variant over six shapes: null, boolean, number,
// string, ordered list and insertion-ordered map.
//
// Values are immutable. Operations that "modify" a value return a new one and
// share every untouched subtree with the input.
package value

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindList
	KindMap
)

var kindNames = [...]string{
	KindNull:   "null",
	KindBool:   "bool",
	KindNumber: "number",
	KindString: "string",
	KindList:   "list",
	KindMap:    "map",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is a single node of a log payload. The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	n    float64
	// s holds the string payload, or the original literal of a number
	// decoded from JSON (empty when the number was built from a float).
	s    string
	list []Value
	m    *Map
}

// Null returns the null Value.
func Null() Value { return Value{} }

// BoolValue returns a boolean Value.
func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }

// NumberValue returns a numeric Value.
func NumberValue(f float64) Value { return Value{kind: KindNumber, n: f} }

// IntValue returns a numeric Value holding an integer. The exact decimal
// representation is kept so that integers above 2^53 are not rounded on
// output.
func IntValue(i int64) Value {
	return Value{kind: KindNumber, n: float64(i), s: strconv.FormatInt(i, 10)}
}

// numberLiteral returns a numeric Value that remembers its textual form.
func numberLiteral(lit string) (Value, error) {
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return Value{}, fmt.Errorf("invalid number %q: %w", lit, err)
	}
	return Value{kind: KindNumber, n: f, s: lit}, nil
}

// StringValue returns a string Value.
func StringValue(s string) Value { return Value{kind: KindString, s: s} }

// ListValue returns a list Value. The slice is retained, not copied; callers
// must not modify it afterwards.
func ListValue(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindList, list: items}
}

// MapValue returns a map Value. A nil map is treated as empty.
func MapValue(m *Map) Value {
	if m == nil {
		m = NewMap()
	}
	return Value{kind: KindMap, m: m}
}

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the boolean payload.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsNumber returns the numeric payload.
func (v Value) AsNumber() (float64, bool) { return v.n, v.kind == KindNumber }

// AsString returns the string payload.
func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

// AsList returns the list items. The returned slice is shared with v and
// must be treated as read-only.
func (v Value) AsList() ([]Value, bool) { return v.list, v.kind == KindList }

// AsMap returns the map payload.
func (v Value) AsMap() (*Map, bool) { return v.m, v.kind == KindMap }

// numberText renders a number the way it would appear in JSON.
func (v Value) numberText() string {
	if v.s != "" {
		return v.s
	}
	if math.IsNaN(v.n) || math.IsInf(v.n, 0) {
		// Not representable in JSON.
		return "null"
	}
	return strconv.FormatFloat(v.n, 'f', -1, 64)
}

// Equal reports whether v and o are structurally equal. Map key order is
// significant.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindNumber:
		return v.n == o.n
	case KindString:
		return v.s == o.s
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		return v.m.Equal(o.m)
	}
	return false
}

// Any converts v into plain Go values: nil, bool, float64, string, []any and
// map[string]any. Map key order is lost.
func (v Value) Any() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.n
	case KindString:
		return v.s
	case KindList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.Any()
		}
		return out
	case KindMap:
		return v.m.Any()
	}
	return nil
}

// String renders v compactly for debugging and test failure output.
func (v Value) String() string {
	var sb strings.Builder
	v.writeTo(&sb)
	return sb.String()
}

func (v Value) writeTo(sb *strings.Builder) {
	switch v.kind {
	case KindNull:
		sb.WriteString("null")
	case KindBool:
		sb.WriteString(strconv.FormatBool(v.b))
	case KindNumber:
		sb.WriteString(v.numberText())
	case KindString:
		sb.WriteString(strconv.Quote(v.s))
	case KindList:
		sb.WriteByte('[')
		for i, item := range v.list {
			if i > 0 {
				sb.WriteByte(',')
			}
			item.writeTo(sb)
		}
		sb.WriteByte(']')
	case KindMap:
		v.m.writeTo(sb)
	}
}
