// This file implements the write side of the pivot: link fields into relation rows.
package pivot

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/slate/internal/docstore"
	"github.com/mesh-intelligence/slate/pkg/types"
)

// Write normalizes the snapshot and passes it to the inner storage. The
// given data is not modified.
func (s *Storage) Write(data docstore.Data) error {
	out, rows, err := Normalize(data)
	if err != nil {
		return err
	}
	s.logger.Debug("pivot write",
		zap.Int("tables", len(out)),
		zap.Int("relation_rows", rows))
	return s.inner.Write(out)
}

// Normalize returns a copy of data in which active entity records carry no
// link fields and every link is a row of its relation table. Rows are keyed
// by both endpoints, deduplicated, and numbered from 1 in sorted order.
func Normalize(data docstore.Data) (docstore.Data, int, error) {
	sc, err := loadSchema(data)
	if err != nil {
		return nil, 0, err
	}
	relationTables := sc.relationTables()
	if err := sc.checkCollisions(relationTables); err != nil {
		return nil, 0, err
	}

	out := make(docstore.Data, len(data))
	for name, table := range data {
		if relationTables[name] {
			continue
		}
		out[name] = table
	}

	rows := map[string]map[row]bool{}
	for _, et := range sc.entityTypes {
		links := sc.linkFields(et)
		drop := map[string]bool{types.FieldNameID: true, types.FieldNameType: true}
		for _, f := range links {
			drop[f.Name] = true
		}

		active := docstore.Table{}
		for id, rec := range data[et] {
			for _, f := range links {
				handles, err := linkValues(rec[f.Name])
				if err != nil {
					return nil, 0, fmt.Errorf("%w: %s(%d).%s: %v", types.ErrStorage, et, id, f.Name, err)
				}
				for _, h := range handles {
					if !f.Links(h.Type) {
						continue
					}
					r := newRow(endpoint{ThisKey(f), id}, endpoint{LinkKey(f, h.Type), h.ID})
					table := f.RelationTable()
					if rows[table] == nil {
						rows[table] = map[row]bool{}
					}
					rows[table][r] = true
				}
			}
			active[id] = strip(rec, drop)
		}
		if _, ok := data[et]; ok {
			out[et] = active
		}

		retiredName := types.TableName(et, true)
		if retired, ok := data[retiredName]; ok {
			kept := docstore.Table{}
			for id, rec := range retired {
				kept[id] = strip(rec, map[string]bool{types.FieldNameID: true, types.FieldNameType: true})
			}
			out[retiredName] = kept
		}
	}

	total := 0
	for name := range relationTables {
		set := rows[name]
		ordered := make([]row, 0, len(set))
		for r := range set {
			ordered = append(ordered, r)
		}
		sort.Slice(ordered, func(i, j int) bool {
			if ordered[i].left != ordered[j].left {
				return ordered[i].left.less(ordered[j].left)
			}
			return ordered[i].right.less(ordered[j].right)
		})
		t := make(docstore.Table, len(ordered))
		for i, r := range ordered {
			t[i+1] = r.record()
		}
		out[name] = t
		total += len(ordered)
	}
	return out, total, nil
}

func strip(rec types.Record, drop map[string]bool) types.Record {
	out := make(types.Record, len(rec))
	for k, v := range rec {
		if !drop[k] {
			out[k] = v
		}
	}
	return out
}

// linkValues reads the handles held by a link field value: nil, one
// handle-shaped value, or a sequence of them.
func linkValues(v any) ([]types.Handle, error) {
	if v == nil {
		return nil, nil
	}
	if h, ok := types.AsHandle(v); ok {
		return []types.Handle{h}, nil
	}
	if hs, ok := types.AsHandles(v); ok {
		return hs, nil
	}
	return nil, fmt.Errorf("not a link value: %T", v)
}
