package warranty

import "time"

// Date builds a calendar day at UTC midnight.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// CalendarDay drops the clock part of t, keeping the day as seen in t's
// own location.
func CalendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return Date(y, m, d)
}

// AddYears moves t by years keeping month and day. Feb 29 becomes Feb 28
// when the target year is not a leap year.
func AddYears(t time.Time, years int) time.Time {
	y, m, d := t.Date()
	target := y + years
	if m == time.February && d == 29 && !isLeap(target) {
		d = 28
	}
	return Date(target, m, d)
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

func sameDay(a, b time.Time) bool {
	return CalendarDay(a).Equal(CalendarDay(b))
}
