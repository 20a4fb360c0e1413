// This file implements the bookkeeping that keeps both ends of a link in step.
package store

import (
	"github.com/mesh-intelligence/slate/pkg/types"
)

// setLinks replaces the value of link field f on rec with next and mirrors
// the change on the reverse fields of every target added or removed. The
// cache stays symmetric without waiting for a commit.
func (s *Store) setLinks(rec types.Record, f types.FieldSpec, next []types.Handle) {
	prev := handlesOf(rec[f.Name])
	prev = append([]types.Handle(nil), prev...)

	switch {
	case len(next) == 0:
		delete(rec, f.Name)
	case f.Type == types.FieldEntity:
		rec[f.Name] = next[0].Ref()
		next = next[:1]
	default:
		refs := make([]types.Handle, len(next))
		for i, h := range next {
			refs[i] = h.Ref()
		}
		rec[f.Name] = refs
	}

	self := rec.Handle()
	before := keySet(prev)
	after := keySet(next)

	for _, h := range prev {
		if after[h.Key()] {
			continue
		}
		target := s.db.Get(h.Type, h.ID)
		if target == nil {
			continue
		}
		for _, rev := range s.schema.reverseFields(f, h.Type) {
			unlink(target, rev, self)
		}
	}
	for _, h := range next {
		if before[h.Key()] {
			continue
		}
		target := s.db.Get(h.Type, h.ID)
		if target == nil {
			continue
		}
		for _, rev := range s.schema.reverseFields(f, h.Type) {
			s.link(target, rev, self)
		}
	}
}

// link adds self to field rev of target. A single-valued field that already
// points elsewhere first releases its previous partner.
func (s *Store) link(target types.Record, rev types.FieldSpec, self types.Handle) {
	if rev.Type == types.FieldMultiEntity {
		list := handlesOf(target[rev.Name])
		for _, h := range list {
			if h.Same(self) {
				return
			}
		}
		target[rev.Name] = append(append([]types.Handle(nil), list...), self.Ref())
		return
	}

	if prev, ok := types.AsHandle(target[rev.Name]); ok && !prev.Same(self) {
		if partner := s.db.Get(prev.Type, prev.ID); partner != nil {
			for _, back := range s.schema.reverseFields(rev, prev.Type) {
				unlink(partner, back, target.Handle())
			}
		}
	}
	target[rev.Name] = self.Ref()
}

// unlink removes self from field rev of target.
func unlink(target types.Record, rev types.FieldSpec, self types.Handle) {
	if rev.Type == types.FieldMultiEntity {
		list := handlesOf(target[rev.Name])
		kept := make([]types.Handle, 0, len(list))
		for _, h := range list {
			if !h.Same(self) {
				kept = append(kept, h)
			}
		}
		if len(kept) == 0 {
			delete(target, rev.Name)
		} else {
			target[rev.Name] = kept
		}
		return
	}
	if cur, ok := types.AsHandle(target[rev.Name]); ok && cur.Same(self) {
		delete(target, rev.Name)
	}
}

func keySet(hs []types.Handle) map[string]bool {
	out := make(map[string]bool, len(hs))
	for _, h := range hs {
		out[h.Key()] = true
	}
	return out
}
