package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/mesh-intelligence/slate/internal/clock"
	"github.com/mesh-intelligence/slate/pkg/types"
)

// Calendar units accepted by in_calendar, in_last and in_next.
const (
	UnitDay   = "DAY"
	UnitWeek  = "WEEK"
	UnitMonth = "MONTH"
	UnitYear  = "YEAR"
)

func calendarArgs(value any, args []any) (time.Time, int, string, error) {
	date, ok := asTime(value)
	if !ok {
		return time.Time{}, 0, "", fmt.Errorf("%w: calendar operators need a date value, got %v", types.ErrFilterSpec, value)
	}
	n, ok := types.ToInt(args[0])
	if !ok {
		return time.Time{}, 0, "", fmt.Errorf("%w: calendar offset must be an integer, got %v", types.ErrFilterSpec, args[0])
	}
	unit, ok := args[1].(string)
	if !ok {
		return time.Time{}, 0, "", fmt.Errorf("%w: calendar unit must be text, got %T", types.ErrFilterSpec, args[1])
	}
	unit = strings.ToUpper(unit)
	switch unit {
	case UnitDay, UnitWeek, UnitMonth, UnitYear:
	default:
		return time.Time{}, 0, "", fmt.Errorf("%w: unknown unit of time: %s", types.ErrFilterSpec, args[1])
	}
	return clock.DateOf(date), n, unit, nil
}

// inCalendar reports whether the date lies n calendar units from today:
// 0 is the current unit, 1 the next and -1 the previous. Months are compared
// from the first of each month.
func inCalendar(value any, args []any) (bool, error) {
	date, n, unit, err := calendarArgs(value, args)
	if err != nil {
		return false, err
	}
	today := clock.Today()
	switch unit {
	case UnitDay:
		return daysBetween(today, date) == n, nil
	case UnitWeek:
		return daysBetween(today, date)/7 == n, nil
	case UnitMonth:
		return monthIndex(date)-monthIndex(today) == n, nil
	default:
		return monthsElapsed(today, date)/12 == n, nil
	}
}

// inLast reports whether the date lies within [today - n units, today].
func inLast(value any, args []any) (bool, error) {
	date, n, unit, err := calendarArgs(value, args)
	if err != nil {
		return false, err
	}
	if n < 0 {
		return false, fmt.Errorf("%w: number of %ss must not be negative", types.ErrFilterSpec, strings.ToLower(unit))
	}
	today := clock.Today()
	from := addUnits(today, -n, unit)
	return !date.Before(from) && !date.After(today), nil
}

// inNext reports whether the date lies within [today, today + n units].
func inNext(value any, args []any) (bool, error) {
	date, n, unit, err := calendarArgs(value, args)
	if err != nil {
		return false, err
	}
	if n < 0 {
		return false, fmt.Errorf("%w: number of %ss must not be negative", types.ErrFilterSpec, strings.ToLower(unit))
	}
	today := clock.Today()
	to := addUnits(today, n, unit)
	return !date.Before(today) && !date.After(to), nil
}

func daysBetween(from, to time.Time) int {
	a := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

func monthIndex(t time.Time) int {
	return t.Year()*12 + int(t.Month()) - 1
}

// monthsElapsed counts whole months from one date to another, negative when
// to is earlier.
func monthsElapsed(from, to time.Time) int {
	m := monthIndex(to) - monthIndex(from)
	switch {
	case m > 0 && to.Day() < from.Day():
		m--
	case m < 0 && to.Day() > from.Day():
		m++
	}
	return m
}

// addUnits shifts a date by n units. Month and year shifts clamp to the last
// day of the target month.
func addUnits(t time.Time, n int, unit string) time.Time {
	switch unit {
	case UnitDay:
		return t.AddDate(0, 0, n)
	case UnitWeek:
		return t.AddDate(0, 0, 7*n)
	case UnitMonth:
		return addMonths(t, n)
	default:
		return addMonths(t, 12*n)
	}
}

func addMonths(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()).AddDate(0, n, 0)
	last := first.AddDate(0, 1, -1).Day()
	day := t.Day()
	if day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, t.Location())
}
