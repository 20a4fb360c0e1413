// This file implements payload coercion, defaults and the required and identifier checks.
package store

import (
	"fmt"
	"sort"

	"github.com/mesh-intelligence/slate/internal/fieldtype"
	"github.com/mesh-intelligence/slate/internal/filter"
	"github.com/mesh-intelligence/slate/pkg/types"
)

// payload coerces input values for an entity type. With keepNulls set, a
// field whose coerced value is nil stays in the payload as an explicit clear;
// otherwise it is dropped.
func (s *Store) payload(entityType string, data map[string]any, keepNulls bool) (map[string]any, error) {
	out := make(map[string]any, len(data))
	for _, name := range sortedNames(data) {
		if name == types.FieldNameID || name == types.FieldNameType {
			return nil, fmt.Errorf("%w: field '%s.%s' cannot be set", types.ErrSchema, entityType, name)
		}
		spec, err := s.schema.field(entityType, name)
		if err != nil {
			return nil, err
		}
		v, err := fieldtype.HandleValue(data[name], spec)
		if err != nil {
			return nil, err
		}
		if v == nil && !keepNulls {
			continue
		}
		out[name] = v
	}
	if err := s.checkLinkTargets(entityType, out); err != nil {
		return nil, err
	}
	return out, nil
}

// applyDefaults fills omitted fields that declare a default.
func (s *Store) applyDefaults(entityType string, payload map[string]any) error {
	for _, spec := range s.schema.declared(entityType) {
		if _, ok := payload[spec.Name]; ok || !spec.HasDefault() {
			continue
		}
		v, err := fieldtype.HandleValue(nil, spec)
		if err != nil {
			return err
		}
		if v != nil {
			payload[spec.Name] = v
		}
	}
	return nil
}

// checkLinkTargets verifies that every linked entity exists and is active.
func (s *Store) checkLinkTargets(entityType string, payload map[string]any) error {
	for _, name := range sortedNames(payload) {
		spec, _ := s.schema.field(entityType, name)
		if !spec.IsLink() {
			continue
		}
		byType := map[string][]int{}
		for _, h := range handlesOf(payload[name]) {
			byType[h.Type] = append(byType[h.Type], h.ID)
		}
		for _, linkType := range sortedNames(byType) {
			var missing []int
			seen := map[int]bool{}
			for _, id := range byType[linkType] {
				if seen[id] {
					continue
				}
				seen[id] = true
				if s.db.Get(linkType, id) == nil {
					missing = append(missing, id)
				}
			}
			if len(missing) > 0 {
				sort.Ints(missing)
				return &types.LinkNotFoundError{LinkType: linkType, Field: entityType + "." + name, IDs: missing}
			}
		}
	}
	return nil
}

// missingRequired lists required fields whose value in values is nil or
// absent. With only set, fields not in only are skipped.
func (s *Store) missingRequired(entityType string, values map[string]any, only map[string]any) []string {
	var out []string
	for _, spec := range s.schema.requiredFields(entityType) {
		if only != nil {
			if _, ok := only[spec.Name]; !ok {
				continue
			}
		}
		if values[spec.Name] == nil {
			out = append(out, spec.Name)
		}
	}
	sort.Strings(out)
	return out
}

// identifierTaken reports whether another active entity holds the same
// values in every identifier field. An unset identifier matches only
// entities where that field is unset too.
func (s *Store) identifierTaken(entityType string, values map[string]any, selfID int) (bool, error) {
	idFields := s.schema.identifierFields(entityType)
	if len(idFields) == 0 {
		return false, nil
	}
	var filters []types.Filter
	var unset []string
	for _, name := range idFields {
		if v := values[name]; v != nil {
			filters = append(filters, types.F(name, filter.OpIs, v))
		} else {
			unset = append(unset, name)
		}
	}
	matches, err := s.db.Search(types.TableName(entityType, false), func(r types.Record) (bool, error) {
		if r.ID() == selfID {
			return false, nil
		}
		for _, name := range unset {
			if r[name] != nil {
				return false, nil
			}
		}
		return filter.Match(r, filters)
	})
	if err != nil {
		return false, err
	}
	return len(matches) > 0, nil
}

// handlesOf returns the handles held by a link value.
func handlesOf(v any) []types.Handle {
	switch t := v.(type) {
	case nil:
		return nil
	case types.Handle:
		return []types.Handle{t}
	case []types.Handle:
		return t
	}
	if h, ok := types.AsHandle(v); ok {
		return []types.Handle{h}
	}
	hs, _ := types.AsHandles(v)
	return hs
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
