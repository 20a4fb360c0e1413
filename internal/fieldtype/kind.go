// Package fieldtype validates field definitions and coerces field values.
// Every field type is one Kind variant; the set of variants is closed and
// each variant implements both spec validation and value coercion.
package fieldtype

import (
	"fmt"
	"strings"

	"github.com/mesh-intelligence/slate/pkg/types"
)

// Stored date layouts.
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"
)

// Kind is the behavior of one field type.
type Kind interface {
	// Type returns the field type this kind implements.
	Type() types.FieldType

	// ValidateSpec checks the type-specific properties of a field definition.
	ValidateSpec(spec types.FieldSpec) error

	// Coerce normalizes a value for storage in a field of this kind.
	Coerce(v any, spec types.FieldSpec) (any, error)

	kind()
}

var kinds = map[types.FieldType]Kind{
	types.FieldBool:        boolKind{},
	types.FieldDate:        dateKind{},
	types.FieldDateTime:    dateTimeKind{},
	types.FieldEntity:      entityKind{},
	types.FieldMultiEntity: multiEntityKind{},
	types.FieldEnum:        enumKind{},
	types.FieldFloat:       floatKind{},
	types.FieldJSON:        jsonKind{},
	types.FieldNumber:      numberKind{},
	types.FieldText:        textKind{},
	types.FieldTextList:    textListKind{},
}

// Lookup returns the Kind for a field type.
func Lookup(t types.FieldType) (Kind, error) {
	k, ok := kinds[t]
	if !ok {
		return nil, fmt.Errorf("%w: invalid data type '%s' - expected %s", types.ErrSchema, t, strings.Join(Names(), ", "))
	}
	return k, nil
}

// Names returns the field type names in a stable order.
func Names() []string {
	return []string{
		string(types.FieldBool),
		string(types.FieldDate),
		string(types.FieldDateTime),
		string(types.FieldEntity),
		string(types.FieldEnum),
		string(types.FieldFloat),
		string(types.FieldJSON),
		string(types.FieldMultiEntity),
		string(types.FieldNumber),
		string(types.FieldText),
		string(types.FieldTextList),
	}
}

// ValidateSpec checks a complete field definition.
func ValidateSpec(spec types.FieldSpec) error {
	if spec.Name == "" {
		return fmt.Errorf("%w: field name must not be empty", types.ErrSchema)
	}
	if spec.Type == "" {
		return fmt.Errorf("%w: field properties must include 'type' - %s", types.ErrSchema, strings.Join(Names(), ", "))
	}
	k, err := Lookup(spec.Type)
	if err != nil {
		return err
	}
	if err := k.ValidateSpec(spec); err != nil {
		return fmt.Errorf("%w: field '%s.%s': %v", types.ErrSchema, spec.EntityType, spec.Name, err)
	}
	return nil
}

// HandleValue coerces v for the field described by spec.
func HandleValue(v any, spec types.FieldSpec) (any, error) {
	k, err := Lookup(spec.Type)
	if err != nil {
		return nil, err
	}
	return k.Coerce(v, spec)
}

func mismatch(v any, spec types.FieldSpec) error {
	return fmt.Errorf("%w: field '%s.%s' expects a(n) '%s' value, got %T",
		types.ErrInvalidValue, spec.EntityType, spec.Name, spec.Type, v)
}
