// Package recurrence decides whether a recurring template has an
// occurrence on a given day and materialises it as a transient instance.
//
// Matching is closed-form: one call costs O(1) regardless of how far the
// candidate day is from the origin, because it runs once per calendar cell
// per visible recurring template.
package recurrence

import (
	"github.com/roach88/mydays/internal/date"
	"github.com/roach88/mydays/internal/task"
)

// MaxCount bounds the occurrence count of a limited series.
const MaxCount = 365

// Instance is one occurrence of a recurring template. It is never stored.
type Instance struct {
	task.Template
	OriginalID string
}

// InstanceID is the transient id of the occurrence of templateID on d.
func InstanceID(templateID string, d date.Day) string {
	return templateID + "_rec_" + d.String()
}

// InstanceOn returns the occurrence of t on d, if any. The origin day
// itself is not an instance; it is the template.
func InstanceOn(t task.Template, d date.Day) (Instance, bool) {
	if !Matches(t, d) {
		return Instance{}, false
	}
	inst := t.Clone()
	inst.ID = InstanceID(t.ID, d)
	inst.Date = d
	inst.Completed = false
	return Instance{Template: inst, OriginalID: t.ID}, true
}

// Matches reports whether d is a non-origin occurrence day of t.
func Matches(t task.Template, d date.Day) bool {
	if !t.Recurring() {
		return false
	}
	if !d.After(t.Date) {
		return false
	}
	if t.RecurrenceEnd != nil && d.After(*t.RecurrenceEnd) {
		return false
	}

	diff := date.Between(t.Date, d)
	origin := t.Date

	switch t.Recurrence {
	case task.RecurrenceDaily:
		return diff > 0
	case task.RecurrenceWeekly:
		return diff%7 == 0
	case task.RecurrenceBiweekly:
		return diff%14 == 0
	case task.RecurrenceMonthly:
		// Day 29-31 origins have no occurrence in months lacking that day.
		if d.DayOfMonth() != origin.DayOfMonth() {
			return false
		}
		return d.Year() > origin.Year() ||
			(d.Year() == origin.Year() && d.Month() > origin.Month())
	case task.RecurrenceYearly:
		return d.Month() == origin.Month() &&
			d.DayOfMonth() == origin.DayOfMonth() &&
			d.Year() > origin.Year()
	default:
		return false
	}
}

// EndAfter returns the inclusive last day of a series starting at origin
// that has count occurrences in total, origin included. count is clamped
// to [1, MaxCount].
func EndAfter(r task.Recurrence, origin date.Day, count int) date.Day {
	count = ClampCount(count)
	extra := count - 1

	switch r {
	case task.RecurrenceDaily:
		return origin.AddDays(extra)
	case task.RecurrenceWeekly:
		return origin.AddDays(extra * 7)
	case task.RecurrenceBiweekly:
		return origin.AddDays(extra * 14)
	case task.RecurrenceMonthly:
		return origin.AddDate(0, extra, 0)
	case task.RecurrenceYearly:
		return origin.AddDate(extra, 0, 0)
	default:
		return origin
	}
}

// ClampCount limits an occurrence count to [1, MaxCount].
func ClampCount(count int) int {
	switch {
	case count < 1:
		return 1
	case count > MaxCount:
		return MaxCount
	default:
		return count
	}
}
