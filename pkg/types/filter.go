package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DeepSeparator splits a deep field name into
// <local link field>.<linked entity type>.<field on linked entity>.
const DeepSeparator = "."

// Filter is one conjunctive condition of a query: a field, an operator and
// one or two arguments.
type Filter struct {
	Field string
	Op    string
	Args  []any
}

// F builds a Filter.
func F(field, op string, args ...any) Filter {
	return Filter{Field: field, Op: op, Args: args}
}

// IsDeep reports whether the filter addresses a field of a linked entity.
func (f Filter) IsDeep() bool {
	return strings.Contains(f.Field, DeepSeparator)
}

// Value returns the first argument.
func (f Filter) Value() any {
	if len(f.Args) == 0 {
		return nil
	}
	return f.Args[0]
}

func (f Filter) String() string {
	return fmt.Sprintf("[%s %s %v]", f.Field, f.Op, f.Args)
}

// ParseFilter builds a Filter from its list form [field, operator, value...].
// The list must hold three or four elements.
func ParseFilter(spec []any) (Filter, error) {
	if len(spec) < 3 || len(spec) > 4 {
		return Filter{}, fmt.Errorf("%w: filter must have 3 or 4 elements, got %d: %v", ErrFilterSpec, len(spec), spec)
	}
	field, ok := spec[0].(string)
	if !ok || field == "" {
		return Filter{}, fmt.Errorf("%w: filter field must be a non-empty string: %v", ErrFilterSpec, spec[0])
	}
	op, ok := spec[1].(string)
	if !ok || op == "" {
		return Filter{}, fmt.Errorf("%w: filter operator must be a non-empty string: %v", ErrFilterSpec, spec[1])
	}
	return Filter{Field: field, Op: op, Args: append([]any(nil), spec[2:]...)}, nil
}

// ParseFilters builds filters from a list of list-form filters.
func ParseFilters(specs [][]any) ([]Filter, error) {
	out := make([]Filter, 0, len(specs))
	for _, s := range specs {
		f, err := ParseFilter(s)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// MarshalJSON writes the filter in list form.
func (f Filter) MarshalJSON() ([]byte, error) {
	list := append([]any{f.Field, f.Op}, f.Args...)
	return json.Marshal(list)
}

// UnmarshalJSON reads the list form [field, operator, value...].
func (f *Filter) UnmarshalJSON(data []byte) error {
	var list []any
	dec := json.NewDecoder(bytesReader(data))
	dec.UseNumber()
	if err := dec.Decode(&list); err != nil {
		return fmt.Errorf("%w: %v", ErrFilterSpec, err)
	}
	parsed, err := ParseFilter(list)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}
