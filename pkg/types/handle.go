package types

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// NullID is the id carried by the null handle.
const NullID = -1

// Handle is the reference form of an entity. Link fields store handles only.
// Name and Fields are populated when a handle is hydrated for output.
type Handle struct {
	Type string
	ID   int

	// Name is the display name of the linked entity, empty when unknown.
	Name string

	// Fields holds extra attributes requested through deep return fields.
	Fields map[string]any
}

// NullHandle returns the sentinel handle that matches no entity of entityType.
func NullHandle(entityType string) Handle {
	return Handle{Type: entityType, ID: NullID}
}

// Ref returns the handle truncated to its type and id.
func (h Handle) Ref() Handle {
	return Handle{Type: h.Type, ID: h.ID}
}

// Key identifies the referenced entity; two handles with equal keys point at
// the same entity.
func (h Handle) Key() string {
	return h.Type + "#" + strconv.Itoa(h.ID)
}

// Same reports whether h and o reference the same entity.
func (h Handle) Same(o Handle) bool {
	return h.Type == o.Type && h.ID == o.ID
}

func (h Handle) String() string {
	return fmt.Sprintf("%s(%d)", h.Type, h.ID)
}

// MarshalJSON writes the handle as a flat object: type, id, the optional
// display name and any hydrated attributes.
func (h Handle) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(h.Fields)+3)
	for k, v := range h.Fields {
		m[k] = v
	}
	m["type"] = h.Type
	m["id"] = h.ID
	if h.Name != "" {
		m["name"] = h.Name
	}
	return json.Marshal(m)
}

// UnmarshalJSON reads a flat handle object.
func (h *Handle) UnmarshalJSON(data []byte) error {
	var m map[string]any
	dec := json.NewDecoder(bytesReader(data))
	dec.UseNumber()
	if err := dec.Decode(&m); err != nil {
		return err
	}
	parsed, ok := handleFromMap(m)
	if !ok {
		return fmt.Errorf("%w: handle requires 'type' and 'id': %s", ErrInvalidValue, data)
	}
	*h = parsed
	return nil
}

// AsHandle converts a handle-shaped value to a Handle. It accepts Handle,
// *Handle and maps carrying both a string "type" and an integral "id".
func AsHandle(v any) (Handle, bool) {
	switch t := v.(type) {
	case Handle:
		return t, true
	case *Handle:
		if t == nil {
			return Handle{}, false
		}
		return *t, true
	case map[string]any:
		return handleFromMap(t)
	case Record:
		return handleFromMap(t)
	}
	return Handle{}, false
}

// AsHandles converts a sequence of handle-shaped values. It reports false if
// v is not a sequence or any element is not handle-shaped.
func AsHandles(v any) ([]Handle, bool) {
	switch t := v.(type) {
	case []Handle:
		return t, true
	case []any:
		out := make([]Handle, 0, len(t))
		for _, e := range t {
			h, ok := AsHandle(e)
			if !ok {
				return nil, false
			}
			out = append(out, h)
		}
		return out, true
	case []map[string]any:
		out := make([]Handle, 0, len(t))
		for _, e := range t {
			h, ok := handleFromMap(e)
			if !ok {
				return nil, false
			}
			out = append(out, h)
		}
		return out, true
	}
	return nil, false
}

func handleFromMap(m map[string]any) (Handle, bool) {
	typ, ok := m["type"].(string)
	if !ok {
		return Handle{}, false
	}
	id, ok := ToInt(m["id"])
	if !ok {
		return Handle{}, false
	}
	h := Handle{Type: typ, ID: id}
	if name, ok := m["name"].(string); ok {
		h.Name = name
	}
	for k, v := range m {
		if k == "type" || k == "id" || k == "name" {
			continue
		}
		if h.Fields == nil {
			h.Fields = make(map[string]any)
		}
		h.Fields[k] = v
	}
	return h, true
}

// SortHandles orders handles by id, then type.
func SortHandles(hs []Handle) {
	sort.SliceStable(hs, func(i, j int) bool {
		if hs[i].ID != hs[j].ID {
			return hs[i].ID < hs[j].ID
		}
		return hs[i].Type < hs[j].Type
	})
}

// ToInt converts an integral numeric value to int. Floats must have no
// fractional part.
func ToInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint:
		return int(n), true
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return int(n), true
	case uint64:
		return int(n), true
	case float32:
		return floatToInt(float64(n))
	case float64:
		return floatToInt(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), true
		}
		if f, err := n.Float64(); err == nil {
			return floatToInt(f)
		}
	}
	return 0, false
}

func floatToInt(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}
