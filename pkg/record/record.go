// Package record defines the log record handed between the logger, the
// redaction pipeline, backends and transports.
package record

import (
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/codeready-toolchain/logmask/pkg/value"
)

// TimeFormat is the ISO-8601 layout used for record timestamps, with
// millisecond precision in UTC.
const TimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Record is one structured log event. Context and Attributes may be nil,
// which reads as empty.
type Record struct {
	Timestamp  time.Time
	Level      Level
	Message    string
	LoggerName string
	// Context is inherited from the logger (and its parents).
	Context *value.Map
	// Attributes are supplied with the individual log call.
	Attributes *value.Map
}

// New returns a record stamped with the current time.
func New(level Level, loggerName, message string) Record {
	return Record{
		Timestamp:  time.Now(),
		Level:      level,
		Message:    message,
		LoggerName: loggerName,
	}
}

// Fields returns Context merged with Attributes, attributes winning on
// conflicting keys.
func (r Record) Fields() *value.Map {
	return r.Context.Merge(r.Attributes)
}

// Equal reports whether both records carry the same data. Timestamps are
// compared with time.Time.Equal.
func (r Record) Equal(o Record) bool {
	return r.Timestamp.Equal(o.Timestamp) &&
		r.Level == o.Level &&
		r.Message == o.Message &&
		r.LoggerName == o.LoggerName &&
		r.Context.Equal(o.Context) &&
		r.Attributes.Equal(o.Attributes)
}

// WriteJSON appends the JSON object form of r to stream.
func (r Record) WriteJSON(stream *jsoniter.Stream) {
	stream.WriteObjectStart()
	stream.WriteObjectField("timestamp")
	stream.WriteString(r.Timestamp.UTC().Format(TimeFormat))
	stream.WriteMore()
	stream.WriteObjectField("level")
	stream.WriteString(r.Level.String())
	stream.WriteMore()
	stream.WriteObjectField("message")
	stream.WriteString(r.Message)
	stream.WriteMore()
	stream.WriteObjectField("loggerName")
	stream.WriteString(r.LoggerName)
	stream.WriteMore()
	stream.WriteObjectField("context")
	value.WriteJSON(stream, value.MapValue(r.Context))
	stream.WriteMore()
	stream.WriteObjectField("attributes")
	value.WriteJSON(stream, value.MapValue(r.Attributes))
	stream.WriteObjectEnd()
}

// MarshalJSON implements json.Marshaler.
func (r Record) MarshalJSON() ([]byte, error) {
	stream := jsoniter.ConfigDefault.BorrowStream(nil)
	defer jsoniter.ConfigDefault.ReturnStream(stream)

	r.WriteJSON(stream)
	if stream.Error != nil {
		return nil, stream.Error
	}
	out := make([]byte, len(stream.Buffer()))
	copy(out, stream.Buffer())
	return out, nil
}

// UnmarshalJSON implements json.Unmarshaler. Only "message" is required; a
// missing level reads as info and a missing timestamp as the zero time.
func (r *Record) UnmarshalJSON(data []byte) error {
	v, err := value.ParseJSON(data)
	if err != nil {
		return err
	}
	parsed, err := FromValue(v)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// FromValue builds a Record from its decoded JSON object form.
func FromValue(v value.Value) (Record, error) {
	m, ok := v.AsMap()
	if !ok {
		return Record{}, fmt.Errorf("record: expected object, got %s", v.Kind())
	}

	rec := Record{Level: LevelInfo}
	var err error

	msg, ok := m.Get("message")
	if !ok {
		return Record{}, errors.New("record: missing message")
	}
	if rec.Message, ok = msg.AsString(); !ok {
		return Record{}, fmt.Errorf("record: message must be a string, got %s", msg.Kind())
	}

	if ts, ok := m.Get("timestamp"); ok && !ts.IsNull() {
		s, isString := ts.AsString()
		if !isString {
			return Record{}, fmt.Errorf("record: timestamp must be a string, got %s", ts.Kind())
		}
		if rec.Timestamp, err = time.Parse(time.RFC3339Nano, s); err != nil {
			return Record{}, fmt.Errorf("record: invalid timestamp: %w", err)
		}
	}

	if lv, ok := m.Get("level"); ok && !lv.IsNull() {
		s, isString := lv.AsString()
		if !isString {
			return Record{}, fmt.Errorf("record: level must be a string, got %s", lv.Kind())
		}
		if rec.Level, err = ParseLevel(s); err != nil {
			return Record{}, fmt.Errorf("record: %w", err)
		}
	}

	if name, ok := m.Get("loggerName"); ok && !name.IsNull() {
		if rec.LoggerName, ok = name.AsString(); !ok {
			return Record{}, fmt.Errorf("record: loggerName must be a string, got %s", name.Kind())
		}
	}

	if rec.Context, err = mapField(m, "context"); err != nil {
		return Record{}, err
	}
	if rec.Attributes, err = mapField(m, "attributes"); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func mapField(m *value.Map, key string) (*value.Map, error) {
	v, ok := m.Get(key)
	if !ok || v.IsNull() {
		return value.NewMap(), nil
	}
	out, ok := v.AsMap()
	if !ok {
		return nil, fmt.Errorf("record: %s must be an object, got %s", key, v.Kind())
	}
	return out, nil
}
