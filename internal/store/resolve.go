// This file implements filter resolution, including deep filters through link fields.
package store

import (
	"fmt"
	"strings"

	"github.com/mesh-intelligence/slate/internal/filter"
	"github.com/mesh-intelligence/slate/pkg/types"
)

// deepPath is a parsed <link field>.<linked type>.<tail> name.
type deepPath struct {
	head     string
	linkType string
	tail     string
}

func (d deepPath) key() string { return d.head + types.DeepSeparator + d.linkType }

// splitDeep parses a deep field name of entityType and checks that its head
// is a link field able to reach the named type.
func (s *Store) splitDeep(entityType, name string) (deepPath, error) {
	parts := strings.SplitN(name, types.DeepSeparator, 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return deepPath{}, fmt.Errorf("%w: deep field '%s' must have the form <field>.<entity type>.<field>", types.ErrFilterSpec, name)
	}
	spec, err := s.schema.field(entityType, parts[0])
	if err != nil {
		return deepPath{}, err
	}
	if !spec.IsLink() {
		return deepPath{}, fmt.Errorf("%w: Cannot do deep filter on non-link field '%s.%s'.", types.ErrSchema, entityType, parts[0])
	}
	if err := s.schema.checkType(parts[1]); err != nil {
		return deepPath{}, err
	}
	if !spec.Links(parts[1]) {
		return deepPath{}, fmt.Errorf("%w: field '%s.%s' does not link to '%s'", types.ErrLinkType, entityType, parts[0], parts[1])
	}
	return deepPath{head: parts[0], linkType: parts[1], tail: parts[2]}, nil
}

// ResolveFilters checks filters against the schema of entityType and
// replaces deep filters with filters on the local link fields. Deep filters
// sharing a link field and linked type run as one query on the linked type.
// The result is conjunctive.
func (s *Store) ResolveFilters(entityType string, filters []types.Filter) ([]types.Filter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolve(entityType, filters)
}

func (s *Store) resolve(entityType string, filters []types.Filter) ([]types.Filter, error) {
	if err := s.schema.checkType(entityType); err != nil {
		return nil, err
	}

	var out []types.Filter
	var groups []deepPath
	tails := map[string][]types.Filter{}
	for _, f := range filters {
		if err := filter.Validate(f); err != nil {
			return nil, err
		}
		if !f.IsDeep() {
			if f.Field != types.FieldNameID && f.Field != types.FieldNameType {
				if _, err := s.schema.field(entityType, f.Field); err != nil {
					return nil, err
				}
			}
			out = append(out, f)
			continue
		}
		path, err := s.splitDeep(entityType, f.Field)
		if err != nil {
			return nil, err
		}
		if _, ok := tails[path.key()]; !ok {
			groups = append(groups, path)
		}
		tails[path.key()] = append(tails[path.key()], types.Filter{Field: path.tail, Op: f.Op, Args: f.Args})
	}

	for _, g := range groups {
		linked, err := s.search(g.linkType, tails[g.key()], false)
		if err != nil {
			return nil, err
		}
		switch len(linked) {
		case 0:
			out = append(out, types.F(g.head, filter.OpIs, types.NullHandle(g.linkType)))
		case 1:
			out = append(out, types.F(g.head, filter.OpIs, linked[0].Handle()))
		default:
			set := make([]types.Handle, len(linked))
			for i, r := range linked {
				set[i] = r.Handle()
			}
			out = append(out, types.F(g.head, filter.OpIn, set))
		}
	}
	return out, nil
}

// search resolves filters and returns the matching cached records, ordered
// by id.
func (s *Store) search(entityType string, filters []types.Filter, retiredOnly bool) ([]types.Record, error) {
	resolved, err := s.resolve(entityType, filters)
	if err != nil {
		return nil, err
	}
	return s.db.Search(types.TableName(entityType, retiredOnly), func(r types.Record) (bool, error) {
		return filter.Match(r, resolved)
	})
}
