package value

import (
	"iter"
	"strconv"
	"strings"
)

// Entry is a single key/value pair of a Map.
type Entry struct {
	Key   string
	Value Value
}

// Pair is shorthand for constructing an Entry.
func Pair(key string, v Value) Entry { return Entry{Key: key, Value: v} }

// Map is an immutable, insertion-ordered string-keyed map. A nil *Map behaves
// as an empty map for every read operation.
type Map struct {
	entries []Entry
	index   map[string]int
}

// NewMap builds a Map from entries in order. A repeated key keeps its first
// position and takes the last value.
func NewMap(entries ...Entry) *Map {
	m := &Map{
		entries: make([]Entry, 0, len(entries)),
		index:   make(map[string]int, len(entries)),
	}
	for _, e := range entries {
		if i, ok := m.index[e.Key]; ok {
			m.entries[i].Value = e.Value
			continue
		}
		m.index[e.Key] = len(m.entries)
		m.entries = append(m.entries, e)
	}
	return m
}

// withValues returns a map with the same keys as m and the given values. The
// key index is shared since keys are identical.
func (m *Map) withValues(values []Value) *Map {
	entries := make([]Entry, len(m.entries))
	for i, e := range m.entries {
		entries[i] = Entry{Key: e.Key, Value: values[i]}
	}
	return &Map{entries: entries, index: m.index}
}

// Len returns the number of keys.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// Get returns the value stored under key.
func (m *Map) Get(key string) (Value, bool) {
	if m == nil {
		return Value{}, false
	}
	i, ok := m.index[key]
	if !ok {
		return Value{}, false
	}
	return m.entries[i].Value, true
}

// Has reports whether key is present.
func (m *Map) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	keys := make([]string, len(m.entries))
	for i, e := range m.entries {
		keys[i] = e.Key
	}
	return keys
}

// Entries returns the entries in insertion order. The slice is shared with m
// and must be treated as read-only.
func (m *Map) Entries() []Entry {
	if m == nil {
		return nil
	}
	return m.entries
}

// All iterates over the entries in insertion order.
func (m *Map) All() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		if m == nil {
			return
		}
		for _, e := range m.entries {
			if !yield(e.Key, e.Value) {
				return
			}
		}
	}
}

// With returns a copy of m with key set to v. An existing key keeps its
// position; a new key is appended. m itself is not modified.
func (m *Map) With(key string, v Value) *Map {
	if m == nil {
		return NewMap(Pair(key, v))
	}
	if i, ok := m.index[key]; ok {
		entries := make([]Entry, len(m.entries))
		copy(entries, m.entries)
		entries[i].Value = v
		return &Map{entries: entries, index: m.index}
	}
	entries := make([]Entry, len(m.entries), len(m.entries)+1)
	copy(entries, m.entries)
	index := make(map[string]int, len(m.index)+1)
	for k, i := range m.index {
		index[k] = i
	}
	index[key] = len(entries)
	return &Map{entries: append(entries, Pair(key, v)), index: index}
}

// Merge returns a map holding the keys of m followed by the keys of o that m
// does not have. Values from o win.
func (m *Map) Merge(o *Map) *Map {
	if o.Len() == 0 {
		if m == nil {
			return NewMap()
		}
		return m
	}
	if m.Len() == 0 {
		return o
	}
	entries := make([]Entry, 0, len(m.entries)+len(o.entries))
	entries = append(entries, m.entries...)
	entries = append(entries, o.entries...)
	return NewMap(entries...)
}

// MergeDeep is Merge, except that when both sides hold a map under the same
// key the two maps are merged recursively.
func (m *Map) MergeDeep(o *Map) *Map {
	if m.Len() == 0 || o.Len() == 0 {
		return m.Merge(o)
	}
	out := m
	for _, e := range o.entries {
		if cur, ok := m.Get(e.Key); ok {
			a, aok := cur.AsMap()
			b, bok := e.Value.AsMap()
			if aok && bok {
				out = out.With(e.Key, MapValue(a.MergeDeep(b)))
				continue
			}
		}
		out = out.With(e.Key, e.Value)
	}
	return out
}

// Equal reports whether both maps hold equal values under the same keys in
// the same order.
func (m *Map) Equal(o *Map) bool {
	if m.Len() != o.Len() {
		return false
	}
	for i, e := range m.Entries() {
		oe := o.entries[i]
		if e.Key != oe.Key || !e.Value.Equal(oe.Value) {
			return false
		}
	}
	return true
}

// Any converts m into a plain map[string]any.
func (m *Map) Any() map[string]any {
	out := make(map[string]any, m.Len())
	for _, e := range m.Entries() {
		out[e.Key] = e.Value.Any()
	}
	return out
}

// String renders m compactly for debugging.
func (m *Map) String() string {
	var sb strings.Builder
	m.writeTo(&sb)
	return sb.String()
}

func (m *Map) writeTo(sb *strings.Builder) {
	sb.WriteByte('{')
	for i, e := range m.Entries() {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Quote(e.Key))
		sb.WriteByte(':')
		e.Value.writeTo(sb)
	}
	sb.WriteByte('}')
}
