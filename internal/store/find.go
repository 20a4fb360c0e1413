// This file implements ReadOne and ReadAll over active or retired entities.
package store

import (
	"time"

	"github.com/mesh-intelligence/slate/pkg/types"
)

// ReadOne returns the first entity, by id, that matches every filter, or nil
// if none does. With retiredOnly set it searches retired entities instead of
// active ones.
func (s *Store) ReadOne(entityType string, filters []types.Filter, returnFields []string, retiredOnly bool) (types.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := time.Now()

	recs, err := s.find(entityType, filters, returnFields, retiredOnly, 1)
	s.observe("read_one", entityType, start, err)
	if err != nil || len(recs) == 0 {
		return nil, err
	}
	return recs[0], nil
}

// ReadAll returns every entity that matches every filter, ordered by id.
func (s *Store) ReadAll(entityType string, filters []types.Filter, returnFields []string, retiredOnly bool) ([]types.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := time.Now()

	recs, err := s.find(entityType, filters, returnFields, retiredOnly, 0)
	s.observe("read_all", entityType, start, err)
	return recs, err
}

// find searches and presents up to limit records; zero means no limit.
func (s *Store) find(entityType string, filters []types.Filter, returnFields []string, retiredOnly bool, limit int) ([]types.Record, error) {
	if err := s.schema.checkType(entityType); err != nil {
		return nil, err
	}
	if err := s.checkReturnFields(entityType, returnFields); err != nil {
		return nil, err
	}
	matches, err := s.search(entityType, filters, retiredOnly)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	out := make([]types.Record, 0, len(matches))
	for _, r := range matches {
		rec, err := s.present(entityType, r, returnFields)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
