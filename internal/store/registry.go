// This file implements the in-memory schema registry rebuilt from the schema tables.
package store

import (
	"fmt"
	"sort"

	"github.com/mesh-intelligence/slate/internal/docstore"
	"github.com/mesh-intelligence/slate/pkg/types"
)

type fieldEntry struct {
	id   int
	spec types.FieldSpec
}

type reverseKey struct {
	table      string
	entityType string
}

// registry indexes the schema tables. It is rebuilt whenever the schema
// changes.
type registry struct {
	typeIDs map[string]int
	fields  map[string]map[string]fieldEntry
	order   map[string][]string

	// reverse maps a relation table and entity type to the link fields of
	// that type backed by the table.
	reverse map[reverseKey][]types.FieldSpec
}

func (s *Store) rebuildSchema() error {
	r := &registry{
		typeIDs: map[string]int{},
		fields:  map[string]map[string]fieldEntry{},
		order:   map[string][]string{},
		reverse: map[reverseKey][]types.FieldSpec{},
	}
	schemaTable := s.db.Table(types.SchemaTable)
	for _, id := range sortedKeys(schemaTable) {
		name, _ := schemaTable[id]["entity_type"].(string)
		if name == "" {
			continue
		}
		r.typeIDs[name] = id
		r.fields[name] = map[string]fieldEntry{}
	}
	fieldsTable := s.db.Table(types.FieldsTable)
	for _, id := range sortedKeys(fieldsTable) {
		spec, err := types.DecodeFieldSpec(fieldsTable[id])
		if err != nil {
			return fmt.Errorf("field definition %d: %w", id, err)
		}
		if _, ok := r.fields[spec.EntityType]; !ok {
			continue
		}
		r.fields[spec.EntityType][spec.Name] = fieldEntry{id: id, spec: spec}
		r.order[spec.EntityType] = append(r.order[spec.EntityType], spec.Name)
		if spec.IsLink() {
			k := reverseKey{table: spec.RelationTable(), entityType: spec.EntityType}
			r.reverse[k] = append(r.reverse[k], spec)
		}
	}
	s.schema = r
	return nil
}

func sortedKeys(t docstore.Table) []int {
	ids := make([]int, 0, len(t))
	for id := range t {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (r *registry) entityTypes() []string {
	names := make([]string, 0, len(r.typeIDs))
	for name := range r.typeIDs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// isRelationTable reports whether any link field stores its rows in name.
func (r *registry) isRelationTable(name string) bool {
	for k := range r.reverse {
		if k.table == name {
			return true
		}
	}
	return false
}

func (r *registry) hasType(entityType string) bool {
	_, ok := r.typeIDs[entityType]
	return ok
}

func (r *registry) checkType(entityType string) error {
	if !r.hasType(entityType) {
		return fmt.Errorf("%w: A(n) '%s' entity has not been registered", types.ErrSchema, entityType)
	}
	return nil
}

// field returns a field definition, synthesizing id and type.
func (r *registry) field(entityType, name string) (types.FieldSpec, error) {
	if err := r.checkType(entityType); err != nil {
		return types.FieldSpec{}, err
	}
	if spec, ok := types.ImplicitField(entityType, name); ok {
		return spec, nil
	}
	e, ok := r.fields[entityType][name]
	if !ok {
		return types.FieldSpec{}, fmt.Errorf("%w: Entity '%s' has no '%s' field", types.ErrSchema, entityType, name)
	}
	return e.spec, nil
}

// declared returns the stored field definitions of a type in definition order.
func (r *registry) declared(entityType string) []types.FieldSpec {
	names := r.order[entityType]
	out := make([]types.FieldSpec, 0, len(names))
	for _, name := range names {
		out = append(out, r.fields[entityType][name].spec)
	}
	return out
}

func (r *registry) linkFields(entityType string) []types.FieldSpec {
	var out []types.FieldSpec
	for _, f := range r.declared(entityType) {
		if f.IsLink() {
			out = append(out, f)
		}
	}
	return out
}

func (r *registry) identifierFields(entityType string) []string {
	var out []string
	for _, f := range r.declared(entityType) {
		if f.Identifier {
			out = append(out, f.Name)
		}
	}
	sort.Strings(out)
	return out
}

func (r *registry) requiredFields(entityType string) []types.FieldSpec {
	var out []types.FieldSpec
	for _, f := range r.declared(entityType) {
		if f.Required {
			out = append(out, f)
		}
	}
	return out
}

// reverseFields returns the fields on linkType that mirror f: they share f's
// relation table, link back to f's entity type, and name each other through
// link_field. A field without link_field has no reverse.
func (r *registry) reverseFields(f types.FieldSpec, linkType string) []types.FieldSpec {
	if f.LinkField == "" {
		return nil
	}
	var out []types.FieldSpec
	for _, cand := range r.reverse[reverseKey{table: f.RelationTable(), entityType: linkType}] {
		if cand.Links(f.EntityType) && cand.Name == f.LinkField && cand.LinkField == f.Name {
			out = append(out, cand)
		}
	}
	return out
}
