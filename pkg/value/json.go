package value

import (
	"errors"
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"
)

// maxDecodeDepth bounds nesting accepted by ParseJSON.
const maxDecodeDepth = 512

var errTooDeep = errors.New("value: JSON nesting too deep")

// ParseJSON decodes a single JSON document into a Value, preserving object
// key order and the literal text of numbers.
func ParseJSON(data []byte) (Value, error) {
	iter := jsoniter.ConfigDefault.BorrowIterator(data)
	defer jsoniter.ConfigDefault.ReturnIterator(iter)

	v, err := readValue(iter, 0)
	if err != nil {
		return Value{}, err
	}
	next := iter.WhatIsNext()
	if iter.Error != nil && !errors.Is(iter.Error, io.EOF) {
		return Value{}, iter.Error
	}
	if next != jsoniter.InvalidValue {
		return Value{}, errors.New("value: trailing data after JSON document")
	}
	return v, nil
}

func readValue(iter *jsoniter.Iterator, depth int) (Value, error) {
	if depth > maxDecodeDepth {
		return Value{}, errTooDeep
	}
	switch iter.WhatIsNext() {
	case jsoniter.NilValue:
		iter.ReadNil()
		return Null(), iter.Error
	case jsoniter.BoolValue:
		b := iter.ReadBool()
		return BoolValue(b), iter.Error
	case jsoniter.NumberValue:
		lit := string(iter.ReadNumber())
		// A number is the only token without a terminator, so jsoniter
		// records io.EOF when one ends the input.
		if iter.Error != nil && !errors.Is(iter.Error, io.EOF) {
			return Value{}, iter.Error
		}
		return numberLiteral(lit)
	case jsoniter.StringValue:
		s := iter.ReadString()
		return StringValue(s), iter.Error
	case jsoniter.ArrayValue:
		items := []Value{}
		var err error
		iter.ReadArrayCB(func(it *jsoniter.Iterator) bool {
			var item Value
			if item, err = readValue(it, depth+1); err != nil {
				return false
			}
			items = append(items, item)
			return true
		})
		if err != nil {
			return Value{}, err
		}
		return ListValue(items...), iter.Error
	case jsoniter.ObjectValue:
		var entries []Entry
		var err error
		iter.ReadMapCB(func(it *jsoniter.Iterator, key string) bool {
			var item Value
			if item, err = readValue(it, depth+1); err != nil {
				return false
			}
			entries = append(entries, Pair(key, item))
			return true
		})
		if err != nil {
			return Value{}, err
		}
		return MapValue(NewMap(entries...)), iter.Error
	}
	if iter.Error != nil {
		return Value{}, iter.Error
	}
	return Value{}, errors.New("value: unexpected JSON token")
}

// WriteJSON appends the JSON encoding of v to stream.
func WriteJSON(stream *jsoniter.Stream, v Value) {
	switch v.kind {
	case KindNull:
		stream.WriteNil()
	case KindBool:
		stream.WriteBool(v.b)
	case KindNumber:
		stream.WriteRaw(v.numberText())
	case KindString:
		stream.WriteString(v.s)
	case KindList:
		stream.WriteArrayStart()
		for i, item := range v.list {
			if i > 0 {
				stream.WriteMore()
			}
			WriteJSON(stream, item)
		}
		stream.WriteArrayEnd()
	case KindMap:
		writeMapJSON(stream, v.m)
	}
}

func writeMapJSON(stream *jsoniter.Stream, m *Map) {
	stream.WriteObjectStart()
	for i, e := range m.Entries() {
		if i > 0 {
			stream.WriteMore()
		}
		stream.WriteObjectField(e.Key)
		WriteJSON(stream, e.Value)
	}
	stream.WriteObjectEnd()
}

func encode(write func(*jsoniter.Stream)) ([]byte, error) {
	stream := jsoniter.ConfigDefault.BorrowStream(nil)
	defer jsoniter.ConfigDefault.ReturnStream(stream)

	write(stream)
	if stream.Error != nil {
		return nil, stream.Error
	}
	// The stream buffer is reused after ReturnStream.
	out := make([]byte, len(stream.Buffer()))
	copy(out, stream.Buffer())
	return out, nil
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	return encode(func(s *jsoniter.Stream) { WriteJSON(s, v) })
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := ParseJSON(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// MarshalJSON implements json.Marshaler. A nil map encodes as {}.
func (m *Map) MarshalJSON() ([]byte, error) {
	return encode(func(s *jsoniter.Stream) { writeMapJSON(s, m) })
}

// UnmarshalJSON implements json.Unmarshaler. JSON null yields an empty map.
func (m *Map) UnmarshalJSON(data []byte) error {
	parsed, err := ParseJSON(data)
	if err != nil {
		return err
	}
	switch parsed.Kind() {
	case KindNull:
		*m = *NewMap()
	case KindMap:
		*m = *parsed.m
	default:
		return fmt.Errorf("value: expected JSON object, got %s", parsed.Kind())
	}
	return nil
}
