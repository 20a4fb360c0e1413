package docstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/mesh-intelligence/slate/pkg/types"
)

// Encode serializes a snapshot as one JSON object: table name to an object
// keyed by record id. Floats always carry a fraction or exponent so they
// decode as floats.
func Encode(data Data) ([]byte, error) {
	out := make(map[string]map[string]any, len(data))
	for name, table := range data {
		t := make(map[string]any, len(table))
		for id, r := range table {
			t[strconv.Itoa(id)] = wire(map[string]any(r))
		}
		out[name] = t
	}
	return json.Marshal(out)
}

// Decode parses a snapshot written by Encode. Integer literals decode as
// int64, literals with a fraction or exponent as float64.
func Decode(b []byte) (Data, error) {
	data := Data{}
	if len(bytes.TrimSpace(b)) == 0 {
		return data, nil
	}
	var raw map[string]map[string]map[string]any
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	for name, table := range raw {
		t := make(Table, len(table))
		for key, r := range table {
			id, err := strconv.Atoi(key)
			if err != nil {
				return nil, fmt.Errorf("table '%s': invalid record id %q", name, key)
			}
			t[id] = types.Record(normalize(r).(map[string]any))
		}
		data[name] = t
	}
	return data, nil
}

// EncodeRecord serializes one record with the number rules of Encode.
func EncodeRecord(r types.Record) ([]byte, error) {
	return json.Marshal(wire(map[string]any(r)))
}

// EncodeValue serializes a single value with the number rules of Encode.
func EncodeValue(v any) ([]byte, error) {
	return json.Marshal(wire(v))
}

// wire copies maps and slices, replacing floats with number literals that
// keep a fraction. Values of other kinds marshal themselves.
func wire(v any) any {
	switch t := v.(type) {
	case nil, string, bool, json.Number, types.Handle, []types.Handle, json.Marshaler:
		return v
	case float64:
		return floatLiteral(t, 64)
	case float32:
		return floatLiteral(float64(t), 32)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return v
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = wire(iter.Value().Interface())
		}
		return out
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return v
		}
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return v
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = wire(rv.Index(i).Interface())
		}
		return out
	case reflect.Float32, reflect.Float64:
		return floatLiteral(rv.Float(), rv.Type().Bits())
	}
	return v
}

// floatLiteral formats f so that it reads back as a float. NaN and the
// infinities are passed through for the encoder to reject.
func floatLiteral(f float64, bits int) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return f
	}
	s := strconv.FormatFloat(f, 'g', -1, bits)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return json.Number(s)
}

// DecodeRecord parses one record with the same number rules as Decode.
func DecodeRecord(b []byte) (types.Record, error) {
	var m map[string]any
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	return types.Record(normalize(m).(map[string]any)), nil
}

// DecodeValue parses a single JSON value with the same number rules as
// Decode.
func DecodeValue(b []byte) (any, error) {
	var v any
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return normalize(v), nil
}

func normalize(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]any:
		for k, e := range t {
			t[k] = normalize(e)
		}
		return t
	case []any:
		for i, e := range t {
			t[i] = normalize(e)
		}
		return t
	}
	return v
}

// sortedIDs returns the ids of a table in ascending order.
func sortedIDs(t Table) []int {
	ids := make([]int, 0, len(t))
	for id := range t {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
