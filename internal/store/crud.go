// This file implements create, update, delete and revive of entities.
package store

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/slate/internal/fieldtype"
	"github.com/mesh-intelligence/slate/pkg/types"
)

// Create adds an active entity and returns it restricted to returnFields.
// A nil returnFields returns every field.
func (s *Store) Create(entityType string, data map[string]any, returnFields []string) (types.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := time.Now()

	out, err := s.create(entityType, data, returnFields)
	s.observe("create", entityType, start, err)
	return out, err
}

func (s *Store) create(entityType string, data map[string]any, returnFields []string) (types.Record, error) {
	if err := s.schema.checkType(entityType); err != nil {
		return nil, err
	}
	payload, err := s.payload(entityType, data, false)
	if err != nil {
		return nil, err
	}
	if err := s.applyDefaults(entityType, payload); err != nil {
		return nil, err
	}
	if missing := s.missingRequired(entityType, payload, nil); len(missing) > 0 {
		return nil, types.NewRequiredFieldsError(entityType, missing)
	}
	taken, err := s.identifierTaken(entityType, payload, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, types.NewUniquenessError(entityType, s.schema.identifierFields(entityType))
	}
	if err := s.checkReturnFields(entityType, returnFields); err != nil {
		return nil, err
	}

	id := s.db.NextID(types.TableName(entityType, false), types.TableName(entityType, true))
	rec := types.Record{types.FieldNameID: id, types.FieldNameType: entityType}
	links := map[string]types.FieldSpec{}
	for name, v := range payload {
		spec, _ := s.schema.field(entityType, name)
		if spec.IsLink() {
			links[name] = spec
			continue
		}
		rec[name] = v
	}
	if err := s.db.Insert(entityType, id, rec); err != nil {
		return nil, err
	}
	for _, name := range sortedNames(links) {
		s.setLinks(rec, links[name], handlesOf(payload[name]))
	}

	if err := s.commit(); err != nil {
		return nil, err
	}
	s.logger.Info("entity created", zap.String("entity_type", entityType), zap.Int("id", id))
	return s.present(entityType, s.db.Get(entityType, id), returnFields)
}

// Update changes fields of an active entity. A nil value clears a field.
// modes selects how each named multi_entity field merges with its current
// value; fields not named use set. The result holds the fields in data.
func (s *Store) Update(entityType string, id int, data map[string]any, modes map[string]types.UpdateMode) (types.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := time.Now()

	out, err := s.update(entityType, id, data, modes)
	s.observe("update", entityType, start, err)
	return out, err
}

func (s *Store) update(entityType string, id int, data map[string]any, modes map[string]types.UpdateMode) (types.Record, error) {
	if err := s.schema.checkType(entityType); err != nil {
		return nil, err
	}
	rec := s.db.Get(entityType, id)
	if rec == nil {
		return nil, entityNotFound(entityType, id)
	}
	payload, err := s.payload(entityType, data, true)
	if err != nil {
		return nil, err
	}
	if cleared := s.missingRequired(entityType, payload, data); len(cleared) > 0 {
		return nil, types.NewClearedRequiredFieldsError(entityType, cleared)
	}

	merged := map[string]any(rec.Clone())
	for k, v := range payload {
		merged[k] = v
	}
	taken, err := s.identifierTaken(entityType, merged, id)
	if err != nil {
		return nil, err
	}
	if taken {
		var inData []string
		for _, name := range s.schema.identifierFields(entityType) {
			if _, ok := data[name]; ok {
				inData = append(inData, name)
			}
		}
		if len(inData) > 0 {
			return nil, types.NewUniquenessError(entityType, inData)
		}
	}
	if err := s.checkUpdateModes(entityType, modes); err != nil {
		return nil, err
	}

	for _, name := range sortedNames(payload) {
		spec, _ := s.schema.field(entityType, name)
		v := payload[name]
		switch spec.Type {
		case types.FieldEntity:
			s.setLinks(rec, spec, handlesOf(v))
		case types.FieldMultiEntity:
			next := fieldtype.UpdateMultiEntity(handlesOf(rec[name]), handlesOf(v), modes[name])
			s.setLinks(rec, spec, next)
		default:
			if v == nil {
				delete(rec, name)
			} else {
				rec[name] = v
			}
		}
	}

	if err := s.commit(); err != nil {
		return nil, err
	}
	s.logger.Info("entity updated",
		zap.String("entity_type", entityType),
		zap.Int("id", id),
		zap.Strings("fields", sortedNames(data)))
	return s.present(entityType, s.db.Get(entityType, id), sortedNames(data))
}

func (s *Store) checkUpdateModes(entityType string, modes map[string]types.UpdateMode) error {
	for _, name := range sortedNames(modes) {
		spec, err := s.schema.field(entityType, name)
		if err != nil {
			return err
		}
		if spec.Type != types.FieldMultiEntity {
			return fmt.Errorf("%w: '%s.%s' is not a multi-entity field", types.ErrUpdateMode, entityType, name)
		}
		if mode := modes[name]; mode != "" && !mode.Valid() {
			return fmt.Errorf("%w: invalid update mode '%s' for multi-entity field '%s.%s' - expected add, remove, set",
				types.ErrUpdateMode, mode, entityType, name)
		}
	}
	return nil
}

// Delete retires an active entity. Its link values are removed from every
// partner and kept verbatim on the retired record. It returns false if the
// entity is already retired.
func (s *Store) Delete(entityType string, id int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := time.Now()

	ok, err := s.delete(entityType, id)
	s.observe("delete", entityType, start, err)
	return ok, err
}

func (s *Store) delete(entityType string, id int) (bool, error) {
	if err := s.schema.checkType(entityType); err != nil {
		return false, err
	}
	active := s.db.Get(types.TableName(entityType, false), id)
	retired := s.db.Get(types.TableName(entityType, true), id)
	switch {
	case active == nil && retired == nil:
		return false, entityNotFound(entityType, id)
	case active == nil:
		return false, nil
	}

	kept := active.Clone()
	for _, f := range s.schema.linkFields(entityType) {
		s.setLinks(active, f, nil)
	}
	if _, err := s.db.Remove(types.TableName(entityType, false), id); err != nil {
		return false, err
	}
	if err := s.db.Insert(types.TableName(entityType, true), id, kept); err != nil {
		return false, err
	}

	if err := s.commit(); err != nil {
		return false, err
	}
	s.logger.Info("entity retired", zap.String("entity_type", entityType), zap.Int("id", id))
	return true, nil
}

// Revive returns a retired entity to the active state. Links to entities
// that are no longer active are dropped, as are links a single-valued
// reverse field has since given to another entity. It returns false if the
// entity is already active.
func (s *Store) Revive(entityType string, id int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := time.Now()

	ok, err := s.revive(entityType, id)
	s.observe("revive", entityType, start, err)
	return ok, err
}

func (s *Store) revive(entityType string, id int) (bool, error) {
	if err := s.schema.checkType(entityType); err != nil {
		return false, err
	}
	active := s.db.Get(types.TableName(entityType, false), id)
	retired := s.db.Get(types.TableName(entityType, true), id)
	switch {
	case active == nil && retired == nil:
		return false, entityNotFound(entityType, id)
	case active != nil:
		return false, nil
	}

	self := types.Handle{Type: entityType, ID: id}
	for _, f := range s.schema.linkFields(entityType) {
		var live []types.Handle
		for _, h := range handlesOf(retired[f.Name]) {
			if s.canRelink(f, self, h) {
				live = append(live, h.Ref())
			}
		}
		switch {
		case len(live) == 0:
			delete(retired, f.Name)
		case f.Type == types.FieldEntity:
			retired[f.Name] = live[0]
		default:
			retired[f.Name] = live
		}
	}
	if _, err := s.db.Remove(types.TableName(entityType, true), id); err != nil {
		return false, err
	}
	if err := s.db.Insert(types.TableName(entityType, false), id, retired); err != nil {
		return false, err
	}

	// Partners regain their reverse links when the commit re-reads the
	// relation rows this record now emits.
	if err := s.commit(); err != nil {
		return false, err
	}
	s.logger.Info("entity revived", zap.String("entity_type", entityType), zap.Int("id", id))
	return true, nil
}

// canRelink reports whether a retired link from self to h may be restored.
func (s *Store) canRelink(f types.FieldSpec, self, h types.Handle) bool {
	target := s.db.Get(h.Type, h.ID)
	if target == nil {
		return false
	}
	for _, rev := range s.schema.reverseFields(f, h.Type) {
		if rev.Type != types.FieldEntity {
			continue
		}
		if cur, ok := types.AsHandle(target[rev.Name]); ok && !cur.Same(self) {
			return false
		}
	}
	return true
}
