package service

import "time"

// addMonths advances t by whole calendar months, clamping the day to the
// target month's length (Jan 31 + 1 month is Feb 28, never Mar 3).
func addMonths(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	firstOfTarget := time.Date(y, m+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := daysIn(firstOfTarget.Year(), firstOfTarget.Month()); d > last {
		d = last
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), d,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// monthsBetween counts whole calendar months from a to b, ignoring days.
func monthsBetween(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// dueDateFor places month n's deadline: the cycle start advanced n-1
// months, on the configured deadline day (clamped to the month's length).
func dueDateFor(start time.Time, monthNumber, deadlineDay int) time.Time {
	base := addMonths(start, monthNumber-1)
	day := deadlineDay
	if last := daysIn(base.Year(), base.Month()); day > last {
		day = last
	}
	return time.Date(base.Year(), base.Month(), day,
		base.Hour(), base.Minute(), base.Second(), base.Nanosecond(), base.Location())
}

