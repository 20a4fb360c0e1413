// This file implements entity type and field definition operations.
package store

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/slate/internal/fieldtype"
	"github.com/mesh-intelligence/slate/pkg/types"
)

// CreateEntityType registers a new entity type.
func (s *Store) CreateEntityType(name string) (types.EntityType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := time.Now()

	et, err := s.createEntityType(name)
	s.observe("schema_entity_create", name, start, err)
	return et, err
}

func (s *Store) createEntityType(name string) (types.EntityType, error) {
	if name == "" || types.IsRetiredTable(name) {
		return types.EntityType{}, fmt.Errorf("%w: invalid entity type name '%s'", types.ErrSchema, name)
	}
	for _, reserved := range types.ReservedTableNames {
		if name == reserved {
			return types.EntityType{}, fmt.Errorf("%w: '%s' is a reserved name", types.ErrSchema, name)
		}
	}
	if s.schema.hasType(name) {
		return types.EntityType{}, fmt.Errorf("%w: A(n) '%s' entity has already been registered", types.ErrSchema, name)
	}
	if s.schema.isRelationTable(name) {
		return types.EntityType{}, fmt.Errorf("%w: '%s' is already used as a relation table", types.ErrSchema, name)
	}
	id := s.db.NextID(types.SchemaTable)
	if err := s.db.Insert(types.SchemaTable, id, types.Record{"entity_type": name}); err != nil {
		return types.EntityType{}, err
	}
	if err := s.commitSchema(); err != nil {
		return types.EntityType{}, err
	}
	s.logger.Info("entity type created", zap.String("entity_type", name))
	return s.readEntityType(name)
}

// ReadEntityType returns an entity type with its declared fields.
func (s *Store) ReadEntityType(name string) (types.EntityType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readEntityType(name)
}

func (s *Store) readEntityType(name string) (types.EntityType, error) {
	if err := s.schema.checkType(name); err != nil {
		return types.EntityType{}, err
	}
	return types.EntityType{Name: name, Fields: s.schema.declared(name)}, nil
}

// CheckEntityType reports whether name is a registered entity type.
func (s *Store) CheckEntityType(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.schema.hasType(name)
}

// ListEntityTypes returns the registered entity type names, sorted.
func (s *Store) ListEntityTypes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.schema.entityTypes()
}

// CreateField adds a field to an entity type. Link fields without a relation
// table get one named after the entity type and field.
func (s *Store) CreateField(entityType, name string, spec types.FieldSpec) (types.FieldSpec, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := time.Now()

	out, err := s.createField(entityType, name, spec)
	s.observe("schema_field_create", entityType, start, err)
	return out, err
}

func (s *Store) createField(entityType, name string, spec types.FieldSpec) (types.FieldSpec, error) {
	if err := s.schema.checkType(entityType); err != nil {
		return types.FieldSpec{}, err
	}
	if _, err := s.schema.field(entityType, name); err == nil {
		return types.FieldSpec{}, fmt.Errorf("%w: A(n) '%s.%s' field already exists", types.ErrSchema, entityType, name)
	}
	spec.EntityType = entityType
	spec.Name = name
	if spec.IsLink() && spec.Table == "" {
		spec.Table = spec.RelationTable()
	}
	if err := fieldtype.ValidateSpec(spec); err != nil {
		return types.FieldSpec{}, err
	}
	if err := s.checkRelationTable(spec); err != nil {
		return types.FieldSpec{}, err
	}
	for _, link := range spec.Link {
		if !s.schema.hasType(link) {
			s.logger.Warn("link field targets an unregistered entity type",
				zap.String("field", entityType+"."+name),
				zap.String("link", link))
		}
	}

	id := s.db.NextID(types.FieldsTable)
	if err := s.db.Insert(types.FieldsTable, id, spec.Record()); err != nil {
		return types.FieldSpec{}, err
	}
	if err := s.commitSchema(); err != nil {
		return types.FieldSpec{}, err
	}
	s.logger.Info("field created",
		zap.String("entity_type", entityType),
		zap.String("field", name),
		zap.String("type", string(spec.Type)))
	return s.schema.field(entityType, name)
}

// ReadField returns a field definition. The implicit id and type fields are
// synthesized.
func (s *Store) ReadField(entityType, name string) (types.FieldSpec, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.schema.field(entityType, name)
}

// CheckField reports whether the entity type has the field.
func (s *Store) CheckField(entityType, name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.schema.field(entityType, name)
	return err == nil
}

// ReadAllFields returns every field of an entity type in definition order,
// followed by the implicit id and type fields.
func (s *Store) ReadAllFields(entityType string) ([]types.FieldSpec, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.schema.checkType(entityType); err != nil {
		return nil, err
	}
	out := s.schema.declared(entityType)
	for _, name := range []string{types.FieldNameID, types.FieldNameType} {
		spec, _ := types.ImplicitField(entityType, name)
		out = append(out, spec)
	}
	return out, nil
}

// UpdateField merges props over the stored definition and validates the
// result. The entity type and name of a field cannot change.
func (s *Store) UpdateField(entityType, name string, props map[string]any) (types.FieldSpec, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := time.Now()

	out, err := s.updateField(entityType, name, props)
	s.observe("schema_field_update", entityType, start, err)
	return out, err
}

func (s *Store) updateField(entityType, name string, props map[string]any) (types.FieldSpec, error) {
	entry, err := s.storedField(entityType, name)
	if err != nil {
		return types.FieldSpec{}, err
	}
	merged := entry.spec.Record()
	for k, v := range props {
		if (k == "entity_type" && v != entityType) || (k == "name" && v != name) {
			return types.FieldSpec{}, fmt.Errorf("%w: cannot change '%s' of field '%s.%s'", types.ErrSchema, k, entityType, name)
		}
		if v == nil {
			delete(merged, k)
			continue
		}
		merged[k] = v
	}
	spec, err := types.DecodeFieldSpec(merged)
	if err != nil {
		return types.FieldSpec{}, err
	}
	if spec.IsLink() && spec.Table == "" {
		spec.Table = spec.RelationTable()
	}
	if err := fieldtype.ValidateSpec(spec); err != nil {
		return types.FieldSpec{}, err
	}
	if err := s.checkRelationTable(spec); err != nil {
		return types.FieldSpec{}, err
	}

	if err := s.db.Update(types.FieldsTable, entry.id, func(r types.Record) {
		for k := range r {
			delete(r, k)
		}
		for k, v := range spec.Record() {
			r[k] = v
		}
	}); err != nil {
		return types.FieldSpec{}, err
	}
	if err := s.commitSchema(); err != nil {
		return types.FieldSpec{}, err
	}
	s.logger.Info("field updated", zap.String("entity_type", entityType), zap.String("field", name))
	return s.schema.field(entityType, name)
}

// DeleteField removes a field definition and strips its value from every
// active and retired record of the entity type. Reverse fields on linked
// entity types are left as they are.
func (s *Store) DeleteField(entityType, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := time.Now()

	err := s.deleteField(entityType, name)
	s.observe("schema_field_delete", entityType, start, err)
	return err
}

func (s *Store) deleteField(entityType, name string) error {
	entry, err := s.storedField(entityType, name)
	if err != nil {
		return err
	}
	if _, err := s.db.Remove(types.FieldsTable, entry.id); err != nil {
		return err
	}
	strip := func(r types.Record) { delete(r, name) }
	s.db.UpdateAll(types.TableName(entityType, false), strip)
	s.db.UpdateAll(types.TableName(entityType, true), strip)

	if entry.spec.IsLink() {
		for _, link := range entry.spec.Link {
			for _, rev := range s.schema.reverseFields(entry.spec, link) {
				s.logger.Warn("deleted link field has a reverse field that keeps its values",
					zap.String("field", entityType+"."+name),
					zap.String("reverse", rev.EntityType+"."+rev.Name))
			}
		}
	}
	if err := s.commitSchema(); err != nil {
		return err
	}
	s.logger.Info("field deleted", zap.String("entity_type", entityType), zap.String("field", name))
	return nil
}

// checkRelationTable rejects a link field whose relation table would share a
// name with a reserved table or with the active or retired table of an
// entity type. Relation rows replace the whole table on every commit.
func (s *Store) checkRelationTable(spec types.FieldSpec) error {
	if !spec.IsLink() {
		return nil
	}
	table := spec.RelationTable()
	bad := types.IsRetiredTable(table) || s.schema.hasType(table)
	for _, reserved := range types.ReservedTableNames {
		if table == reserved {
			bad = true
		}
	}
	if bad {
		return fmt.Errorf("%w: field '%s.%s' cannot use '%s' as its relation table",
			types.ErrSchema, spec.EntityType, spec.Name, table)
	}
	return nil
}

func (s *Store) storedField(entityType, name string) (fieldEntry, error) {
	if err := s.schema.checkType(entityType); err != nil {
		return fieldEntry{}, err
	}
	if _, ok := types.ImplicitField(entityType, name); ok {
		return fieldEntry{}, fmt.Errorf("%w: field '%s.%s' is implicit and cannot be changed", types.ErrSchema, entityType, name)
	}
	e, ok := s.schema.fields[entityType][name]
	if !ok {
		return fieldEntry{}, fmt.Errorf("%w: Entity '%s' has no '%s' field", types.ErrSchema, entityType, name)
	}
	return e, nil
}

// commitSchema commits and reindexes the schema.
func (s *Store) commitSchema() error {
	if err := s.commit(); err != nil {
		return err
	}
	return s.rebuildSchema()
}
