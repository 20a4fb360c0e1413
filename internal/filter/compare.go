package filter

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/mesh-intelligence/slate/internal/fieldtype"
	"github.com/mesh-intelligence/slate/pkg/types"
)

// compare orders a against b. It reports false when the two values have no
// common ordering.
func compare(a, b any) (int, bool) {
	if x, ok := number(a); ok {
		if y, ok := number(b); ok {
			return cmpNumbers(x, y), true
		}
		return 0, false
	}
	if ta, ok := asTime(a); ok {
		if tb, ok := asTime(b); ok {
			return cmpTimes(ta, tb), true
		}
	}
	if sa, ok := a.(string); ok {
		if sb, ok := b.(string); ok {
			return strings.Compare(sa, sb), true
		}
		return 0, false
	}
	if ba, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			switch {
			case ba == bb:
				return 0, true
			case !ba:
				return -1, true
			default:
				return 1, true
			}
		}
		return 0, false
	}
	if ha, ok := types.AsHandle(a); ok {
		if hb, ok := types.AsHandle(b); ok {
			if ha.Same(hb) {
				return 0, true
			}
			if ha.Type == hb.Type {
				return cmpNumbers(numeric{i: int64(ha.ID), integral: true}, numeric{i: int64(hb.ID), integral: true}), true
			}
			return strings.Compare(ha.Type, hb.Type), true
		}
	}
	return 0, false
}

// equal reports whether a and b hold the same value. Handles are equal when
// they reference the same entity, whatever their display data.
func equal(a, b any) bool {
	if c, ok := compare(a, b); ok {
		return c == 0
	}
	return reflect.DeepEqual(a, b)
}

type numeric struct {
	i        int64
	f        float64
	integral bool
}

func number(v any) (numeric, bool) {
	switch n := v.(type) {
	case int:
		return numeric{i: int64(n), integral: true}, true
	case int8:
		return numeric{i: int64(n), integral: true}, true
	case int16:
		return numeric{i: int64(n), integral: true}, true
	case int32:
		return numeric{i: int64(n), integral: true}, true
	case int64:
		return numeric{i: n, integral: true}, true
	case uint:
		return numeric{i: int64(n), integral: true}, true
	case uint8:
		return numeric{i: int64(n), integral: true}, true
	case uint16:
		return numeric{i: int64(n), integral: true}, true
	case uint32:
		return numeric{i: int64(n), integral: true}, true
	case uint64:
		if n <= math.MaxInt64 {
			return numeric{i: int64(n), integral: true}, true
		}
		return numeric{f: float64(n)}, true
	case float32:
		return numeric{f: float64(n)}, true
	case float64:
		return numeric{f: n}, true
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return numeric{i: i, integral: true}, true
		}
		if f, err := n.Float64(); err == nil {
			return numeric{f: f}, true
		}
	}
	return numeric{}, false
}

func (n numeric) float() float64 {
	if n.integral {
		return float64(n.i)
	}
	return n.f
}

func cmpNumbers(a, b numeric) int {
	if a.integral && b.integral {
		switch {
		case a.i < b.i:
			return -1
		case a.i > b.i:
			return 1
		}
		return 0
	}
	x, y := a.float(), b.float()
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

func cmpTimes(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

// asTime reads a time.Time, or a string in one of the stored date layouts.
// Strings only count as times when the other side of a comparison is one.
func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		return parseStored(t)
	}
	return time.Time{}, false
}

func parseStored(s string) (time.Time, bool) {
	for _, layout := range []string{fieldtype.DateTimeLayout, fieldtype.DateLayout} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// elements returns the members of a sequence value, or false if v is not a
// sequence. Strings are not sequences.
func elements(v any) ([]any, bool) {
	switch t := v.(type) {
	case nil, string, []byte, json.Number:
		return nil, false
	case []any:
		return t, true
	case []types.Handle:
		out := make([]any, len(t))
		for i, h := range t {
			out[i] = h
		}
		return out, true
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out, true
	}
	return nil, false
}

func member(v any, set []any) bool {
	for _, e := range set {
		if equal(v, e) {
			return true
		}
	}
	return false
}

func ordered(value, arg any) (int, error) {
	c, ok := compare(value, arg)
	if !ok {
		return 0, fmt.Errorf("%w: cannot compare %T with %T", types.ErrFilterSpec, value, arg)
	}
	return c, nil
}
