package value

import (
	"encoding"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

// badKey is the key used for a dangling or non-string argument in FromPairs,
// matching log/slog.
const badKey = "!BADKEY"

// FromPairs builds a Map from alternating key/value arguments in the style of
// log/slog: "user", u, "count", 3. An Entry, a slog-style key without value,
// or a non-string key is accepted and stored under badKey.
func FromPairs(args ...any) *Map {
	entries := make([]Entry, 0, len(args)/2)
	for len(args) > 0 {
		switch k := args[0].(type) {
		case Entry:
			entries = append(entries, k)
			args = args[1:]
		case string:
			if len(args) == 1 {
				entries = append(entries, Pair(badKey, StringValue(k)))
				args = nil
				continue
			}
			entries = append(entries, Pair(k, FromAny(args[1])))
			args = args[2:]
		default:
			entries = append(entries, Pair(badKey, FromAny(k)))
			args = args[1:]
		}
	}
	return NewMap(entries...)
}

// Placeholders substituted by FromAny for values it does not descend into.
const (
	// Circular replaces a map, slice or pointer that refers back to one of
	// its own ancestors.
	Circular = "[circular]"
	// DepthExceeded replaces a container nested deeper than DefaultMaxDepth.
	DepthExceeded = "[depth limit exceeded]"
)

// FromAny converts a Go value into a Value.
//
// Scalars map directly; errors, fmt.Stringers and encoding.TextMarshalers
// become strings; time.Time is rendered as RFC 3339 with nanoseconds; slices
// and arrays become lists; maps become maps with sorted keys; structs become
// maps in field order, honouring json tags; json.Marshalers are converted
// through their JSON encoding. Channels, funcs and complex numbers fall back
// to their fmt.Sprint form.
//
// Conversion always terminates: a reference cycle becomes Circular and a
// container below DefaultMaxDepth becomes DepthExceeded.
func FromAny(x any) Value {
	c := converter{}
	return c.convert(x, 0)
}

type converter struct {
	// path holds the containers between the root and the current node.
	path map[visit]struct{}
}

type visit struct {
	typ reflect.Type
	ptr uintptr
	len int
}

func (c *converter) convert(x any, depth int) Value {
	switch t := x.(type) {
	case nil:
		return Null()
	case Value:
		return t
	case *Map:
		return MapValue(t)
	case string:
		return StringValue(t)
	case bool:
		return BoolValue(t)
	case int:
		return IntValue(int64(t))
	case int8:
		return IntValue(int64(t))
	case int16:
		return IntValue(int64(t))
	case int32:
		return IntValue(int64(t))
	case int64:
		return IntValue(t)
	case uint:
		return uintValue(uint64(t))
	case uint8:
		return IntValue(int64(t))
	case uint16:
		return IntValue(int64(t))
	case uint32:
		return IntValue(int64(t))
	case uint64:
		return uintValue(t)
	case float32:
		return NumberValue(float64(t))
	case float64:
		return NumberValue(t)
	case time.Time:
		return StringValue(t.Format(time.RFC3339Nano))
	case time.Duration:
		return StringValue(t.String())
	case []byte:
		return StringValue(string(t))
	case error:
		return StringValue(t.Error())
	case fmt.Stringer:
		return StringValue(t.String())
	case json.Marshaler:
		return fromJSONMarshaler(t)
	case encoding.TextMarshaler:
		b, err := t.MarshalText()
		if err != nil {
			return StringValue(err.Error())
		}
		return StringValue(string(b))
	}
	return c.fromReflect(reflect.ValueOf(x), depth)
}

func uintValue(u uint64) Value {
	if u <= math.MaxInt64 {
		return IntValue(int64(u))
	}
	return Value{kind: KindNumber, n: float64(u), s: strconv.FormatUint(u, 10)}
}

func fromJSONMarshaler(m json.Marshaler) Value {
	data, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(m)
	if err != nil {
		return StringValue(err.Error())
	}
	v, err := ParseJSON(data)
	if err != nil {
		return StringValue(string(data))
	}
	return v
}

func (c *converter) fromReflect(rv reflect.Value, depth int) Value {
	switch rv.Kind() {
	case reflect.Bool:
		return BoolValue(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return IntValue(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return uintValue(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return NumberValue(rv.Float())
	case reflect.String:
		return StringValue(rv.String())
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Null()
		}
	case reflect.Slice:
		if rv.IsNil() {
			return ListValue()
		}
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return StringValue(string(rv.Bytes()))
		}
	case reflect.Map:
		if rv.IsNil() {
			return MapValue(NewMap())
		}
	case reflect.Array, reflect.Struct:
	default:
		return StringValue(fmt.Sprint(rv))
	}

	if depth >= DefaultMaxDepth {
		return StringValue(DepthExceeded)
	}
	if key, ok := visitOf(rv); ok {
		if _, seen := c.path[key]; seen {
			return StringValue(Circular)
		}
		if c.path == nil {
			c.path = make(map[visit]struct{})
		}
		c.path[key] = struct{}{}
		defer delete(c.path, key)
	}

	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		return c.element(rv.Elem(), depth+1)
	case reflect.Slice, reflect.Array:
		items := make([]Value, rv.Len())
		for i := range items {
			items[i] = c.element(rv.Index(i), depth+1)
		}
		return ListValue(items...)
	case reflect.Map:
		return MapValue(c.mapOf(rv, depth+1))
	default:
		return MapValue(NewMap(c.structEntries(rv, depth+1, nil, map[string]bool{})...))
	}
}

// visitOf identifies containers that can take part in a reference cycle.
func visitOf(rv reflect.Value) (visit, bool) {
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map:
		return visit{typ: rv.Type(), ptr: rv.Pointer()}, true
	case reflect.Slice:
		if rv.Len() == 0 {
			return visit{}, false
		}
		return visit{typ: rv.Type(), ptr: rv.Pointer(), len: rv.Len()}, true
	}
	return visit{}, false
}

func (c *converter) element(rv reflect.Value, depth int) Value {
	if !rv.IsValid() {
		return Null()
	}
	if !rv.CanInterface() {
		return c.fromReflect(rv, depth)
	}
	return c.convert(rv.Interface(), depth)
}

func (c *converter) mapOf(rv reflect.Value, depth int) *Map {
	type kv struct {
		key string
		val reflect.Value
	}
	pairs := make([]kv, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		pairs = append(pairs, kv{key: mapKey(iter.Key()), val: iter.Value()})
	}
	slices.SortFunc(pairs, func(a, b kv) int { return strings.Compare(a.key, b.key) })
	entries := make([]Entry, len(pairs))
	for i, p := range pairs {
		entries[i] = Pair(p.key, c.element(p.val, depth))
	}
	return NewMap(entries...)
}

func mapKey(k reflect.Value) string {
	if k.Kind() == reflect.String {
		return k.String()
	}
	if k.CanInterface() {
		if tm, ok := k.Interface().(encoding.TextMarshaler); ok {
			if b, err := tm.MarshalText(); err == nil {
				return string(b)
			}
		}
	}
	switch k.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(k.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(k.Uint(), 10)
	}
	return fmt.Sprint(k)
}

// structEntries lists the fields of a struct the way encoding/json names
// them. Fields of embedded structs are promoted unless an outer field of the
// same name was already emitted.
func (c *converter) structEntries(rv reflect.Value, depth int, entries []Entry, seen map[string]bool) []Entry {
	t := rv.Type()
	for i := range t.NumField() {
		f := t.Field(i)
		tag := f.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		fv := rv.Field(i)

		if f.Anonymous && name == "" {
			ft := f.Type
			embedded := fv
			if ft.Kind() == reflect.Pointer {
				if fv.IsNil() {
					continue
				}
				ft, embedded = ft.Elem(), fv.Elem()
			}
			if ft.Kind() == reflect.Struct {
				if depth < DefaultMaxDepth {
					entries = c.structEntries(embedded, depth+1, entries, seen)
				}
				continue
			}
		}
		if !f.IsExported() {
			continue
		}
		if name == "" {
			name = f.Name
		}
		if seen[name] {
			continue
		}
		if slices.Contains(strings.Split(opts, ","), "omitempty") && isEmptyValue(fv) {
			continue
		}
		seen[name] = true
		entries = append(entries, Pair(name, c.element(fv, depth)))
	}
	return entries
}

func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64,
		reflect.Interface, reflect.Pointer:
		return v.IsZero()
	}
	return false
}
