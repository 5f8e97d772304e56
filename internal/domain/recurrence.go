package domain

import "time"

// RecurrenceType identifies the interval by which a recurring task's due
// date advances when the task is completed.
type RecurrenceType string

// Supported recurrence intervals.
const (
	RecurrenceDaily   RecurrenceType = "daily"
	RecurrenceWeekly  RecurrenceType = "weekly"
	RecurrenceMonthly RecurrenceType = "monthly"
	RecurrenceYearly  RecurrenceType = "yearly"
)

// Valid reports whether the recurrence type is one of the supported
// intervals.
func (r RecurrenceType) Valid() bool {
	switch r {
	case RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly, RecurrenceYearly:
		return true
	default:
		return false
	}
}

// NextDueDate returns the due date one recurrence interval after dueDate.
// It is a pure function: it never fails and reads no external state.
// An unknown recurrence type returns dueDate unchanged.
//
// Month and year arithmetic follows time.AddDate's normalization rule:
// overflow days roll into the following month, so Jan 31 plus one month is
// Mar 2 in a leap year and Mar 3 otherwise. This is the documented convention
// for this codebase and is pinned by tests.
func NextDueDate(dueDate time.Time, recurrence RecurrenceType) time.Time {
	switch recurrence {
	case RecurrenceDaily:
		return dueDate.AddDate(0, 0, 1)
	case RecurrenceWeekly:
		return dueDate.AddDate(0, 0, 7)
	case RecurrenceMonthly:
		return dueDate.AddDate(0, 1, 0)
	case RecurrenceYearly:
		return dueDate.AddDate(1, 0, 0)
	default:
		return dueDate
	}
}
