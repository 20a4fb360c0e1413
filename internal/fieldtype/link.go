package fieldtype

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/slate/pkg/types"
)

type entityKind struct{}

func (entityKind) kind()                 {}
func (entityKind) Type() types.FieldType { return types.FieldEntity }

func (entityKind) ValidateSpec(spec types.FieldSpec) error {
	return validateLinkSpec(spec)
}

func (entityKind) Coerce(v any, spec types.FieldSpec) (any, error) {
	if v == nil {
		return nil, nil
	}
	return coerceHandle(v, spec)
}

type multiEntityKind struct{}

func (multiEntityKind) kind()                 {}
func (multiEntityKind) Type() types.FieldType { return types.FieldMultiEntity }

func (multiEntityKind) ValidateSpec(spec types.FieldSpec) error {
	return validateLinkSpec(spec)
}

// Coerce converts a sequence of handle-shaped values. The first invalid
// element fails the whole value.
func (multiEntityKind) Coerce(v any, spec types.FieldSpec) (any, error) {
	var elems []any
	switch t := v.(type) {
	case nil:
		return nil, nil
	case []types.Handle:
		elems = make([]any, len(t))
		for i, h := range t {
			elems[i] = h
		}
	case []map[string]any:
		elems = make([]any, len(t))
		for i, m := range t {
			elems[i] = m
		}
	case []any:
		elems = t
	default:
		return nil, mismatch(v, spec)
	}
	out := make([]types.Handle, 0, len(elems))
	for _, e := range elems {
		h, err := coerceHandle(e, spec)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, nil
}

func validateLinkSpec(spec types.FieldSpec) error {
	if len(spec.Link) == 0 {
		return fmt.Errorf("must specify 'link' entity type list for a(n) %s field", spec.Type)
	}
	if spec.Default != nil {
		return fmt.Errorf("a(n) %s field cannot have a default", spec.Type)
	}
	return nil
}

// coerceHandle truncates a handle-shaped value to its type and id. A type
// outside the field's link set fails with ErrLinkType.
func coerceHandle(v any, spec types.FieldSpec) (types.Handle, error) {
	h, ok := types.AsHandle(v)
	if !ok {
		return types.Handle{}, mismatch(v, spec)
	}
	if !spec.Links(h.Type) {
		return types.Handle{}, fmt.Errorf("%w: field '%s.%s' expects a '%s' entity, got %s",
			types.ErrLinkType, spec.EntityType, spec.Name, strings.Join(spec.Link, ", "), h.Type)
	}
	return h.Ref(), nil
}

// ErrUnknownUpdateMode is the panic value raised by UpdateMultiEntity for a
// mode outside add, remove and set.
var ErrUnknownUpdateMode = errors.New("unsupported update mode")

// UpdateMultiEntity merges next into prev as ordered sets keyed by type and
// id. An empty mode means set. Any other unknown mode panics before prev is
// touched; callers validate modes beforehand.
func UpdateMultiEntity(prev, next []types.Handle, mode types.UpdateMode) []types.Handle {
	if mode == "" {
		mode = types.UpdateSet
	}
	if !mode.Valid() {
		panic(fmt.Errorf("%w: %s", ErrUnknownUpdateMode, mode))
	}

	out := make([]types.Handle, 0, len(prev)+len(next))
	index := make(map[string]int, len(prev)+len(next))
	put := func(h types.Handle) {
		if i, ok := index[h.Key()]; ok {
			out[i] = h
			return
		}
		index[h.Key()] = len(out)
		out = append(out, h)
	}

	switch mode {
	case types.UpdateSet:
		for _, h := range next {
			put(h)
		}
	case types.UpdateAdd:
		for _, h := range prev {
			put(h)
		}
		for _, h := range next {
			put(h)
		}
	case types.UpdateRemove:
		drop := make(map[string]bool, len(next))
		for _, h := range next {
			drop[h.Key()] = true
		}
		for _, h := range prev {
			if !drop[h.Key()] {
				put(h)
			}
		}
	}
	return out
}
