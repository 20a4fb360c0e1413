// This file implements return-field selection and link hydration for read results.
package store

import (
	"strings"

	"github.com/mesh-intelligence/slate/pkg/types"
)

// displayField names the field whose value becomes a handle's display name.
const displayField = "code"

// checkReturnFields validates return field names of entityType, including
// the tails of deep names.
func (s *Store) checkReturnFields(entityType string, names []string) error {
	for _, name := range names {
		if name == types.FieldNameID || name == types.FieldNameType {
			continue
		}
		if !strings.Contains(name, types.DeepSeparator) {
			if _, err := s.schema.field(entityType, name); err != nil {
				return err
			}
			continue
		}
		path, err := s.splitDeep(entityType, name)
		if err != nil {
			return err
		}
		if err := s.checkReturnFields(path.linkType, []string{path.tail}); err != nil {
			return err
		}
	}
	return nil
}

// present copies rec restricted to returnFields, with id and type always
// present, and hydrates its link values. A nil returnFields keeps every
// field. A deep name <link>.<Type>.<tail> keeps <link> and attaches <tail>
// to every hydrated handle of <Type>.
func (s *Store) present(entityType string, rec types.Record, returnFields []string) (types.Record, error) {
	if rec == nil {
		return nil, nil
	}

	out := types.Record{}
	extras := map[string][]string{}
	if returnFields == nil {
		out = rec.Clone()
	} else {
		out[types.FieldNameID] = rec[types.FieldNameID]
		out[types.FieldNameType] = rec[types.FieldNameType]
		for _, name := range returnFields {
			field := name
			if strings.Contains(name, types.DeepSeparator) {
				path, err := s.splitDeep(entityType, name)
				if err != nil {
					return nil, err
				}
				field = path.head
				extras[path.linkType] = appendMissing(extras[path.linkType], path.tail)
			}
			if v, ok := rec[field]; ok {
				out[field] = types.CloneValue(v)
			}
		}
	}

	for _, f := range s.schema.linkFields(entityType) {
		v, ok := out[f.Name]
		if !ok {
			continue
		}
		hs := handlesOf(v)
		hydrated := make([]types.Handle, 0, len(hs))
		for _, h := range hs {
			hh, err := s.hydrate(h, extras[h.Type])
			if err != nil {
				return nil, err
			}
			hydrated = append(hydrated, hh)
		}
		switch {
		case len(hydrated) == 0:
			delete(out, f.Name)
		case f.Type == types.FieldEntity:
			out[f.Name] = hydrated[0]
		default:
			out[f.Name] = hydrated
		}
	}
	return out, nil
}

// hydrate fills a handle's display name and the extra fields requested for
// its type. A handle to a missing entity comes back bare.
func (s *Store) hydrate(h types.Handle, extra []string) (types.Handle, error) {
	out := h.Ref()
	linked := s.db.Get(h.Type, h.ID)
	if linked == nil {
		return out, nil
	}
	if name, ok := linked[displayField].(string); ok {
		out.Name = name
	}
	if len(extra) == 0 {
		return out, nil
	}
	projected, err := s.present(h.Type, linked, extra)
	if err != nil {
		return out, err
	}
	for k, v := range projected {
		if k == types.FieldNameID || k == types.FieldNameType || k == displayField {
			continue
		}
		if out.Fields == nil {
			out.Fields = map[string]any{}
		}
		out.Fields[k] = v
	}
	return out, nil
}

func appendMissing(list []string, s string) []string {
	for _, x := range list {
		if x == s {
			return list
		}
	}
	return append(list, s)
}
