package engine

import (
	"math"
	"time"
)

// =============================================================================
// CALENDAR HELPERS - Day counting conventions
// =============================================================================

// DaysBetween returns the number of whole days from `from` to `to`,
// truncating both to midnight UTC first. Negative when `to` precedes `from`.
func DaysBetween(from, to time.Time) int {
	return int(midnight(to).Sub(midnight(from)).Hours() / 24)
}

// DaysLate returns floor((now - dueDate) / 1 day). Zero or negative values
// mean the invoice is not yet past due. The floor matters before the due
// date: a partial day still owed must report -1, not round up to 0, or a
// zero-day first-notice threshold would fire early.
func DaysLate(dueDate, now time.Time) int {
	return int(math.Floor(now.Sub(dueDate).Hours() / 24))
}

// DaysInMonth returns the number of calendar days in the month containing t.
func DaysInMonth(t time.Time) int {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return first.AddDate(0, 1, -1).Day()
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
