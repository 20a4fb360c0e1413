package filter

import (
	"fmt"
	"strings"

	"github.com/mesh-intelligence/slate/pkg/types"
)

// is tests equality. Against a multi-valued field it tests membership.
func is(value any, args []any) (bool, error) {
	if elems, ok := elements(value); ok {
		if _, argIsList := elements(args[0]); !argIsList {
			return member(args[0], elems), nil
		}
	}
	return equal(value, args[0]), nil
}

// in tests membership in the argument list. A multi-valued field matches when
// any of its elements is a member.
func in(value any, args []any) (bool, error) {
	set, ok := elements(args[0])
	if !ok {
		return false, fmt.Errorf("%w: 'in' expects a list, got %T", types.ErrFilterSpec, args[0])
	}
	if elems, ok := elements(value); ok {
		for _, e := range elems {
			if member(e, set) {
				return true, nil
			}
		}
		return false, nil
	}
	return member(value, set), nil
}

func contains(value any, args []any) (bool, error) {
	if s, ok := value.(string); ok {
		sub, ok := args[0].(string)
		if !ok {
			return false, fmt.Errorf("%w: 'contains' on text expects text, got %T", types.ErrFilterSpec, args[0])
		}
		return strings.Contains(s, sub), nil
	}
	if elems, ok := elements(value); ok {
		return member(args[0], elems), nil
	}
	if m, ok := value.(map[string]any); ok {
		key, ok := args[0].(string)
		if !ok {
			return false, nil
		}
		_, found := m[key]
		return found, nil
	}
	return false, fmt.Errorf("%w: 'contains' not supported on %T", types.ErrFilterSpec, value)
}

func startsWith(value any, args []any) (bool, error) {
	return textTest(value, args[0], strings.HasPrefix)
}

func endsWith(value any, args []any) (bool, error) {
	return textTest(value, args[0], strings.HasSuffix)
}

func textTest(value, arg any, test func(s, affix string) bool) (bool, error) {
	affix, ok := arg.(string)
	if !ok {
		return false, fmt.Errorf("%w: expected text argument, got %T", types.ErrFilterSpec, arg)
	}
	if s, ok := value.(string); ok {
		return test(s, affix), nil
	}
	if elems, ok := elements(value); ok {
		for _, e := range elems {
			if s, ok := e.(string); ok && test(s, affix) {
				return true, nil
			}
		}
	}
	return false, nil
}

func greaterThan(value any, args []any) (bool, error) {
	c, err := ordered(value, args[0])
	return c > 0, err
}

func lessThan(value any, args []any) (bool, error) {
	c, err := ordered(value, args[0])
	return c < 0, err
}

// between is exclusive at both bounds.
func between(value any, args []any) (bool, error) {
	lo, err := ordered(value, args[0])
	if err != nil {
		return false, err
	}
	hi, err := ordered(value, args[1])
	if err != nil {
		return false, err
	}
	return lo > 0 && hi < 0, nil
}

// typeIs tests a handle's entity type against one type name or a list of
// names. A multi-valued field matches when any handle does.
func typeIs(value any, args []any) (bool, error) {
	var wanted []string
	switch t := args[0].(type) {
	case string:
		wanted = []string{t}
	default:
		elems, ok := elements(t)
		if !ok {
			return false, fmt.Errorf("%w: 'type_is' expects a type name or list, got %T", types.ErrFilterSpec, t)
		}
		for _, e := range elems {
			s, ok := e.(string)
			if !ok {
				return false, fmt.Errorf("%w: 'type_is' expects type names, got %T", types.ErrFilterSpec, e)
			}
			wanted = append(wanted, s)
		}
	}
	test := func(v any) bool {
		h, ok := types.AsHandle(v)
		if !ok {
			return false
		}
		for _, w := range wanted {
			if h.Type == w {
				return true
			}
		}
		return false
	}
	if elems, ok := elements(value); ok {
		for _, e := range elems {
			if test(e) {
				return true, nil
			}
		}
		return false, nil
	}
	return test(value), nil
}
