package ignorelogger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
)

// Field is one named value of a Record.
type Field struct {
	Name  string
	Value any
}

// Record is the redacted, ordered representation of a struct or map. Values
// are scalars, nested Records or []any sequences. A Record is built fresh by
// each Redact call and is never modified afterwards.
type Record []Field

// Get returns the value of the first field called name.
func (r Record) Get(name string) (any, bool) {
	for _, f := range r {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Names returns the field names in order.
func (r Record) Names() []string {
	names := make([]string, len(r))
	for i, f := range r {
		names[i] = f.Name
	}
	return names
}

// LogValue renders the record as a slog group, keeping field order.
func (r Record) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, len(r))
	for _, f := range r {
		attrs = append(attrs, slog.Any(f.Name, f.Value))
	}
	return slog.GroupValue(attrs...)
}

// MarshalJSON encodes the record as a JSON object in field order. A value
// that encoding/json rejects (complex numbers, NaN) is written as its fmt
// representation instead of failing the whole record.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		raw, err := json.Marshal(f.Value)
		if err != nil {
			raw, _ = json.Marshal(fmt.Sprint(f.Value))
		}
		buf.Write(raw)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (r Record) String() string {
	raw, err := r.MarshalJSON()
	if err != nil {
		return "{}"
	}
	return string(raw)
}
