// Package filter evaluates filter operators against stored field values.
//
// Operators are registered by name. Every name starting with "not_" or ending
// with "_not" is registered as the negation of its base predicate.
package filter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mesh-intelligence/slate/pkg/types"
)

// Operator names.
const (
	OpBetween       = "between"
	OpNotBetween    = "not_between"
	OpContains      = "contains"
	OpNotContains   = "not_contains"
	OpEndsWith      = "ends_with"
	OpNotEndsWith   = "not_ends_with"
	OpGreaterThan   = "greater_than"
	OpIn            = "in"
	OpNotIn         = "not_in"
	OpInCalendar    = "in_calendar"
	OpNotInCalendar = "not_in_calendar"
	OpInLast        = "in_last"
	OpNotInLast     = "not_in_last"
	OpInNext        = "in_next"
	OpNotInNext     = "not_in_next"
	OpIs            = "is"
	OpIsNot         = "is_not"
	OpLessThan      = "less_than"
	OpStartsWith    = "starts_with"
	OpNotStartsWith = "not_starts_with"
	OpTypeIs        = "type_is"
	OpTypeIsNot     = "type_is_not"
)

// Predicate reports whether a field value satisfies an operator with the
// given arguments.
type Predicate func(value any, args []any) (bool, error)

type operator struct {
	arity int
	pred  Predicate
}

var operators = map[string]operator{}

// register binds pred to every name, negating it for not_/_not names.
func register(arity int, pred Predicate, names ...string) {
	for _, name := range names {
		p := pred
		if isNegation(name) {
			p = negate(pred)
		}
		operators[name] = operator{arity: arity, pred: p}
	}
}

func isNegation(name string) bool {
	return strings.HasPrefix(name, "not_") || strings.HasSuffix(name, "_not")
}

func negate(p Predicate) Predicate {
	return func(value any, args []any) (bool, error) {
		ok, err := p(value, args)
		if err != nil {
			return false, err
		}
		return !ok, nil
	}
}

func init() {
	register(2, between, OpBetween, OpNotBetween)
	register(1, contains, OpContains, OpNotContains)
	register(1, endsWith, OpEndsWith, OpNotEndsWith)
	register(1, greaterThan, OpGreaterThan)
	register(1, in, OpIn, OpNotIn)
	register(2, inCalendar, OpInCalendar, OpNotInCalendar)
	register(2, inLast, OpInLast, OpNotInLast)
	register(2, inNext, OpInNext, OpNotInNext)
	register(1, is, OpIs, OpIsNot)
	register(1, lessThan, OpLessThan)
	register(1, startsWith, OpStartsWith, OpNotStartsWith)
	register(1, typeIs, OpTypeIs, OpTypeIsNot)
}

// Operators returns the registered operator names, sorted.
func Operators() []string {
	names := make([]string, 0, len(operators))
	for name := range operators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the predicate registered for op.
func Lookup(op string) (Predicate, error) {
	o, ok := operators[op]
	if !ok {
		return nil, fmt.Errorf("%w: invalid filter operator '%s' - expected: %s",
			types.ErrFilterSpec, op, strings.Join(Operators(), ", "))
	}
	return o.pred, nil
}

// Validate checks that the filter names a registered operator and carries
// the number of arguments the operator takes.
func Validate(f types.Filter) error {
	o, ok := operators[f.Op]
	if !ok {
		_, err := Lookup(f.Op)
		return err
	}
	if len(f.Args) != o.arity {
		return fmt.Errorf("%w: operator '%s' takes %d value(s), got %d in %s",
			types.ErrFilterSpec, f.Op, o.arity, len(f.Args), f)
	}
	return nil
}

// Match reports whether record satisfies every filter. A record that lacks a
// filtered field, or holds null in it, never matches that filter.
func Match(record types.Record, filters []types.Filter) (bool, error) {
	for _, f := range filters {
		if err := Validate(f); err != nil {
			return false, err
		}
		value, ok := record[f.Field]
		if !ok || value == nil {
			return false, nil
		}
		ok, err := operators[f.Op].pred(value, f.Args)
		if err != nil {
			return false, fmt.Errorf("filter %s: %w", f, err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}
