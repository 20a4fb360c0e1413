package types

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// FieldType names the kind of value a field holds.
type FieldType string

// Field types.
const (
	FieldBool        FieldType = "bool"
	FieldDate        FieldType = "date"
	FieldDateTime    FieldType = "date_time"
	FieldEntity      FieldType = "entity"
	FieldMultiEntity FieldType = "multi_entity"
	FieldEnum        FieldType = "enum"
	FieldFloat       FieldType = "float"
	FieldJSON        FieldType = "json"
	FieldNumber      FieldType = "number"
	FieldText        FieldType = "text"
	FieldTextList    FieldType = "text_list"
)

// IsLink reports whether the field type holds handles.
func (t FieldType) IsLink() bool {
	return t == FieldEntity || t == FieldMultiEntity
}

// Implicit field names synthesized for every entity type.
const (
	FieldNameID   = "id"
	FieldNameType = "type"
)

// FieldSpec defines one field of an entity type.
type FieldSpec struct {
	EntityType string    `json:"entity_type" yaml:"entity_type" mapstructure:"entity_type"`
	Name       string    `json:"name" yaml:"name" mapstructure:"name"`
	Type       FieldType `json:"type" yaml:"type" mapstructure:"type"`
	Default    any       `json:"default,omitempty" yaml:"default,omitempty" mapstructure:"default"`
	Required   bool      `json:"required,omitempty" yaml:"required,omitempty" mapstructure:"required"`
	Identifier bool      `json:"identifier,omitempty" yaml:"identifier,omitempty" mapstructure:"identifier"`

	// Link lists the entity types a link field may reference.
	Link []string `json:"link,omitempty" yaml:"link,omitempty" mapstructure:"link"`

	// LinkField names the reverse field on the linked entity types.
	LinkField string `json:"link_field,omitempty" yaml:"link_field,omitempty" mapstructure:"link_field"`

	// Table names the relation table shared by a link field and its reverse.
	Table string `json:"table,omitempty" yaml:"table,omitempty" mapstructure:"table"`

	Values []string `json:"values,omitempty" yaml:"values,omitempty" mapstructure:"values"`
}

// IsLink reports whether the field holds handles.
func (f FieldSpec) IsLink() bool {
	return f.Type.IsLink()
}

// Links reports whether the field may reference entityType.
func (f FieldSpec) Links(entityType string) bool {
	for _, l := range f.Link {
		if l == entityType {
			return true
		}
	}
	return false
}

// RelationTable returns the relation table backing a link field. Without a
// declared table the field gets one of its own.
func (f FieldSpec) RelationTable() string {
	if f.Table != "" {
		return f.Table
	}
	return f.EntityType + "_" + f.Name
}

// HasDefault reports whether a default was declared.
func (f FieldSpec) HasDefault() bool {
	return f.Default != nil
}

// Record returns the field spec as a flat record for the fields table.
func (f FieldSpec) Record() Record {
	r := Record{
		"entity_type": f.EntityType,
		"name":        f.Name,
		"type":        string(f.Type),
	}
	if f.Default != nil {
		r["default"] = f.Default
	}
	if f.Required {
		r["required"] = true
	}
	if f.Identifier {
		r["identifier"] = true
	}
	if len(f.Link) > 0 {
		links := make([]any, len(f.Link))
		for i, l := range f.Link {
			links[i] = l
		}
		r["link"] = links
	}
	if f.LinkField != "" {
		r["link_field"] = f.LinkField
	}
	if f.Table != "" {
		r["table"] = f.Table
	}
	if len(f.Values) > 0 {
		values := make([]any, len(f.Values))
		for i, v := range f.Values {
			values[i] = v
		}
		r["values"] = values
	}
	return r
}

// DecodeFieldSpec builds a FieldSpec from a loosely typed map, as read from
// the fields table, a YAML schema file or CLI input. A single link string is
// accepted in place of a list.
func DecodeFieldSpec(m map[string]any) (FieldSpec, error) {
	var spec FieldSpec
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &spec,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return FieldSpec{}, err
	}
	if err := dec.Decode(m); err != nil {
		return FieldSpec{}, fmt.Errorf("%w: decode field spec: %v", ErrSchema, err)
	}
	return spec, nil
}

// ImplicitField returns the synthesized definition of "id" or "type".
func ImplicitField(entityType, name string) (FieldSpec, bool) {
	switch name {
	case FieldNameID:
		return FieldSpec{EntityType: entityType, Name: FieldNameID, Type: FieldNumber}, true
	case FieldNameType:
		return FieldSpec{EntityType: entityType, Name: FieldNameType, Type: FieldText}, true
	}
	return FieldSpec{}, false
}

// UpdateMode selects how a multi_entity update merges with the stored value.
type UpdateMode string

// Multi entity update modes.
const (
	UpdateSet    UpdateMode = "set"
	UpdateAdd    UpdateMode = "add"
	UpdateRemove UpdateMode = "remove"
)

// Valid reports whether m is a known update mode.
func (m UpdateMode) Valid() bool {
	switch m {
	case UpdateSet, UpdateAdd, UpdateRemove:
		return true
	}
	return false
}

// EntityType is a registered entity type and its field definitions.
type EntityType struct {
	Name   string      `json:"entity_type" yaml:"entity_type"`
	Fields []FieldSpec `json:"fields" yaml:"fields"`
}
