package types

import (
	"bytes"
	"io"
)

// Record is a flat entity record: "type", "id" and one entry per set field.
type Record map[string]any

// Type returns the record's entity type.
func (r Record) Type() string {
	t, _ := r["type"].(string)
	return t
}

// ID returns the record's id, or 0 if it has none.
func (r Record) ID() int {
	id, _ := ToInt(r["id"])
	return id
}

// Handle returns the reference form of the record.
func (r Record) Handle() Handle {
	return Handle{Type: r.Type(), ID: r.ID()}
}

// Clone returns a deep copy of the record. Maps and slices are copied, so the
// clone can be mutated without touching r.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = CloneValue(v)
	}
	return out
}

// CloneValue deep-copies the maps and slices a field value is built from.
// Other values are returned as they are.
func CloneValue(v any) any {
	switch t := v.(type) {
	case Handle:
		return cloneHandle(t)
	case []Handle:
		if t == nil {
			return t
		}
		out := make([]Handle, len(t))
		for i, h := range t {
			out[i] = cloneHandle(h)
		}
		return out
	case []string:
		if t == nil {
			return t
		}
		return append([]string{}, t...)
	case []any:
		if t == nil {
			return t
		}
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = CloneValue(e)
		}
		return out
	case map[string]any:
		if t == nil {
			return t
		}
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = CloneValue(e)
		}
		return out
	case Record:
		if t == nil {
			return t
		}
		return t.Clone()
	}
	return v
}

func cloneHandle(h Handle) Handle {
	if h.Fields != nil {
		h.Fields = CloneValue(h.Fields).(map[string]any)
	}
	return h
}

func bytesReader(b []byte) io.Reader {
	return bytes.NewReader(b)
}
