// This file implements the read side of the pivot: relation rows back into link fields.
package pivot

import (
	"go.uber.org/zap"

	"github.com/mesh-intelligence/slate/internal/docstore"
	"github.com/mesh-intelligence/slate/pkg/types"
)

// Read reads the inner snapshot and rebuilds link fields from relation rows.
func (s *Storage) Read() (docstore.Data, error) {
	data, err := s.inner.Read()
	if err != nil {
		return nil, err
	}
	if data == nil {
		data = docstore.Data{}
	}
	if err := Denormalize(data); err != nil {
		return nil, err
	}
	s.logger.Debug("pivot read", zap.Int("tables", len(data)))
	return data, nil
}

// Denormalize rebuilds link fields in place. Active and retired records get
// their id and type; active link fields are recomputed from relation rows
// sorted by linked id, retired link values are kept as stored. Relation
// tables are removed from data.
func Denormalize(data docstore.Data) error {
	sc, err := loadSchema(data)
	if err != nil {
		return err
	}
	relationTables := sc.relationTables()

	partners := map[string]map[endpoint][]endpoint{}
	for name := range relationTables {
		idx := map[endpoint][]endpoint{}
		for _, rec := range data[name] {
			r, ok := rowFromRecord(rec)
			if !ok {
				continue
			}
			idx[r.left] = appendUnique(idx[r.left], r.right)
			if r.right != r.left {
				idx[r.right] = appendUnique(idx[r.right], r.left)
			}
		}
		partners[name] = idx
	}

	for _, et := range sc.entityTypes {
		fields := sc.fields[et]
		for id, rec := range data[et] {
			rec[types.FieldNameID] = id
			rec[types.FieldNameType] = et
			conform(rec, fields, false)
			for _, f := range fields {
				if !f.IsLink() {
					continue
				}
				delete(rec, f.Name)
				linked := joined(f, partners[f.RelationTable()][endpoint{ThisKey(f), id}])
				if len(linked) == 0 {
					continue
				}
				if f.Type == types.FieldEntity {
					rec[f.Name] = linked[0]
				} else {
					rec[f.Name] = linked
				}
			}
		}
		for id, rec := range data[types.TableName(et, true)] {
			rec[types.FieldNameID] = id
			rec[types.FieldNameType] = et
			conform(rec, fields, true)
		}
	}

	for name := range relationTables {
		delete(data, name)
	}
	return nil
}

func appendUnique(list []endpoint, e endpoint) []endpoint {
	for _, x := range list {
		if x == e {
			return list
		}
	}
	return append(list, e)
}

// joined turns the partner endpoints of one entity into the handles of field
// f, keeping only partners on the side f points to.
func joined(f types.FieldSpec, ends []endpoint) []types.Handle {
	var out []types.Handle
	for _, e := range ends {
		linkType := endpointType(e.key)
		if !f.Links(linkType) || e.key != LinkKey(f, linkType) {
			continue
		}
		out = append(out, types.Handle{Type: linkType, ID: e.id})
	}
	types.SortHandles(out)
	return out
}

// conform restores Go value shapes lost in the wire format: float fields as
// float64, text lists as []string and, for retired records, link values as
// handles.
func conform(rec types.Record, fields []types.FieldSpec, retired bool) {
	for _, f := range fields {
		v, ok := rec[f.Name]
		if !ok || v == nil {
			continue
		}
		switch f.Type {
		case types.FieldFloat:
			switch n := v.(type) {
			case int64:
				rec[f.Name] = float64(n)
			case int:
				rec[f.Name] = float64(n)
			}
		case types.FieldNumber:
			if n, ok := v.(int); ok {
				rec[f.Name] = int64(n)
			}
		case types.FieldTextList:
			if list, ok := v.([]any); ok {
				out := make([]string, 0, len(list))
				for _, e := range list {
					if s, ok := e.(string); ok {
						out = append(out, s)
					}
				}
				rec[f.Name] = out
			}
		case types.FieldEntity:
			if retired {
				if h, ok := types.AsHandle(v); ok {
					rec[f.Name] = h.Ref()
				}
			}
		case types.FieldMultiEntity:
			if retired {
				if hs, ok := types.AsHandles(v); ok {
					refs := make([]types.Handle, len(hs))
					for i, h := range hs {
						refs[i] = h.Ref()
					}
					rec[f.Name] = refs
				}
			}
		}
	}
}
