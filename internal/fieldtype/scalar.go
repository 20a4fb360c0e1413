package fieldtype

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/mesh-intelligence/slate/internal/clock"
	"github.com/mesh-intelligence/slate/internal/docstore"
	"github.com/mesh-intelligence/slate/pkg/types"
)

type boolKind struct{}

func (boolKind) kind()                 {}
func (boolKind) Type() types.FieldType { return types.FieldBool }

func (boolKind) ValidateSpec(spec types.FieldSpec) error {
	if spec.Default == nil {
		return nil
	}
	if _, ok := spec.Default.(bool); !ok {
		return errors.New("default value for a 'bool' field must be true/false")
	}
	return nil
}

func (boolKind) Coerce(v any, spec types.FieldSpec) (any, error) {
	if v == nil {
		d, _ := spec.Default.(bool)
		return d, nil
	}
	if b, ok := v.(bool); ok {
		return b, nil
	}
	if n, ok := asInt64(v); ok {
		return n != 0, nil
	}
	return nil, mismatch(v, spec)
}

type dateKind struct{}

func (dateKind) kind()                 {}
func (dateKind) Type() types.FieldType { return types.FieldDate }

func (dateKind) ValidateSpec(spec types.FieldSpec) error {
	return validateDateDefault(spec)
}

func (dateKind) Coerce(v any, spec types.FieldSpec) (any, error) {
	return coerceTime(v, spec, DateLayout)
}

type dateTimeKind struct{}

func (dateTimeKind) kind()                 {}
func (dateTimeKind) Type() types.FieldType { return types.FieldDateTime }

func (dateTimeKind) ValidateSpec(spec types.FieldSpec) error {
	return validateDateDefault(spec)
}

func (dateTimeKind) Coerce(v any, spec types.FieldSpec) (any, error) {
	return coerceTime(v, spec, DateTimeLayout)
}

func validateDateDefault(spec types.FieldSpec) error {
	if spec.Default == nil {
		return nil
	}
	if _, ok := spec.Default.(bool); !ok {
		return fmt.Errorf("default value for a '%s' field must be true/false", spec.Type)
	}
	return nil
}

// coerceTime formats a time value. A nil value becomes the current time when
// the field's default is true.
func coerceTime(v any, spec types.FieldSpec, layout string) (any, error) {
	if v == nil {
		if d, _ := spec.Default.(bool); !d {
			return nil, nil
		}
		v = clock.Now()
	}
	switch t := v.(type) {
	case time.Time:
		return t.Format(layout), nil
	case *time.Time:
		if t != nil {
			return t.Format(layout), nil
		}
	}
	return nil, mismatch(v, spec)
}

type enumKind struct{}

func (enumKind) kind()                 {}
func (enumKind) Type() types.FieldType { return types.FieldEnum }

func (enumKind) ValidateSpec(spec types.FieldSpec) error {
	if len(spec.Values) == 0 {
		return errors.New("must specify 'values' list for an enum field")
	}
	if spec.Default == nil {
		return nil
	}
	d, ok := spec.Default.(string)
	if !ok {
		return fmt.Errorf("enum field default must be a string, got %T", spec.Default)
	}
	if d != "" && !contains(spec.Values, d) {
		return fmt.Errorf("enum field default '%s' is not one of its allowed values: %s", d, strings.Join(spec.Values, ", "))
	}
	return nil
}

func (enumKind) Coerce(v any, spec types.FieldSpec) (any, error) {
	if v == nil || v == "" {
		if d, ok := spec.Default.(string); ok && d != "" {
			return d, nil
		}
		return nil, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, mismatch(v, spec)
	}
	if !contains(spec.Values, s) {
		return nil, fmt.Errorf("%w: enum field '%s.%s' expects one of '%s', got '%s'",
			types.ErrInvalidValue, spec.EntityType, spec.Name, strings.Join(spec.Values, ", "), s)
	}
	return s, nil
}

type floatKind struct{}

func (floatKind) kind()                 {}
func (floatKind) Type() types.FieldType { return types.FieldFloat }

func (floatKind) ValidateSpec(spec types.FieldSpec) error {
	if spec.Default == nil {
		return nil
	}
	if _, ok := asFloat64(spec.Default); !ok {
		return errors.New("default value for a float field must be a float")
	}
	return nil
}

func (floatKind) Coerce(v any, spec types.FieldSpec) (any, error) {
	if v == nil {
		if spec.Default == nil {
			return nil, nil
		}
		d, _ := asFloat64(spec.Default)
		return d, nil
	}
	f, ok := asFloat64(v)
	if !ok {
		return nil, mismatch(v, spec)
	}
	return f, nil
}

type numberKind struct{}

func (numberKind) kind()                 {}
func (numberKind) Type() types.FieldType { return types.FieldNumber }

func (numberKind) ValidateSpec(spec types.FieldSpec) error {
	if spec.Default == nil {
		return nil
	}
	if _, ok := asInt64(spec.Default); !ok {
		return errors.New("must specify a valid default for a number field")
	}
	return nil
}

func (numberKind) Coerce(v any, spec types.FieldSpec) (any, error) {
	if v == nil {
		if spec.Default == nil {
			return nil, nil
		}
		d, _ := asInt64(spec.Default)
		return d, nil
	}
	n, ok := asInt64(v)
	if !ok {
		return nil, mismatch(v, spec)
	}
	return n, nil
}

type jsonKind struct{}

func (jsonKind) kind()                 {}
func (jsonKind) Type() types.FieldType { return types.FieldJSON }

func (jsonKind) ValidateSpec(spec types.FieldSpec) error {
	if spec.Default != nil {
		return errors.New("a JSON field cannot have a default")
	}
	return nil
}

func (jsonKind) Coerce(v any, spec types.FieldSpec) (any, error) {
	if v == nil {
		return nil, nil
	}
	b, err := docstore.EncodeValue(v)
	if err != nil {
		return nil, fmt.Errorf("%w: JSON field '%s.%s' expects a valid JSON value: %v",
			types.ErrInvalidValue, spec.EntityType, spec.Name, err)
	}
	// The stored value is a private copy in the shape it reads back as.
	out, err := docstore.DecodeValue(b)
	if err != nil {
		return nil, fmt.Errorf("%w: JSON field '%s.%s': %v", types.ErrInvalidValue, spec.EntityType, spec.Name, err)
	}
	return out, nil
}

type textKind struct{}

func (textKind) kind()                 {}
func (textKind) Type() types.FieldType { return types.FieldText }

func (textKind) ValidateSpec(spec types.FieldSpec) error {
	if spec.Default != nil {
		return errors.New("a text field cannot have a default")
	}
	return nil
}

func (textKind) Coerce(v any, spec types.FieldSpec) (any, error) {
	if v == nil || v == "" {
		return nil, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, mismatch(v, spec)
	}
	return s, nil
}

type textListKind struct{}

func (textListKind) kind()                 {}
func (textListKind) Type() types.FieldType { return types.FieldTextList }

func (textListKind) ValidateSpec(spec types.FieldSpec) error {
	if spec.Default != nil {
		return errors.New("a text list field cannot have a default")
	}
	return nil
}

func (textListKind) Coerce(v any, spec types.FieldSpec) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case []string:
		if len(t) == 0 {
			return nil, nil
		}
		return append([]string(nil), t...), nil
	case []any:
		if len(t) == 0 {
			return nil, nil
		}
		out := make([]string, 0, len(t))
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				return nil, mismatch(e, spec)
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, mismatch(v, spec)
}

// asInt64 converts integral values: Go integer kinds and integral
// json.Number. Floats are rejected even when whole.
func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	}
	return 0, false
}

func asFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	if i, ok := asInt64(v); ok {
		return float64(i), true
	}
	return 0, false
}

func contains(list []string, s string) bool {
	for _, e := range list {
		if e == s {
			return true
		}
	}
	return false
}
