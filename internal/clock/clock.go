// Package clock provides the current time to date coercion and calendar
// filters. Tests replace Now to pin "today".
package clock

import "time"

// Now returns the current local time.
var Now = time.Now

// Today returns the current date at midnight in the local zone.
func Today() time.Time {
	return DateOf(Now())
}

// DateOf truncates t to midnight in its own location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Freeze pins Now to t and returns a function that restores it.
func Freeze(t time.Time) func() {
	prev := Now
	Now = func() time.Time { return t }
	return func() { Now = prev }
}
