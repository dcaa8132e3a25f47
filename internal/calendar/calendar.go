// Package calendar computes US equity trading sessions: business days minus
// the market holiday set. It is pure date arithmetic with no I/O, so the
// same (start, end) pair always yields the same sequence.
package calendar

import "time"

// TradingDates returns every trading day in [start, end], ascending. Both
// endpoints are included when they are trading days. Saturdays, Sundays, and
// market holidays are excluded; an inverted range yields an empty result.
func TradingDates(start, end time.Time) []time.Time {
	start = day(start)
	end = day(end)

	var dates []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if IsTradingDay(d) {
			dates = append(dates, d)
		}
	}
	return dates
}

// IsTradingDay reports whether d is a weekday that is not a market holiday.
func IsTradingDay(d time.Time) bool {
	switch d.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return !IsHoliday(d)
}

// IsHoliday reports whether d is an observed US equity-market holiday.
func IsHoliday(d time.Time) bool {
	d = day(d)
	for _, h := range holidays(d.Year()) {
		if h.Equal(d) {
			return true
		}
	}
	return false
}

// holidays returns the observed market holidays for one year.
func holidays(year int) []time.Time {
	hs := []time.Time{
		nthWeekday(year, time.January, time.Monday, 3),    // Martin Luther King Jr. Day
		nthWeekday(year, time.February, time.Monday, 3),   // Washington's Birthday
		goodFriday(year),
		lastWeekday(year, time.May, time.Monday),          // Memorial Day
		observed(date(year, time.July, 4)),                // Independence Day
		nthWeekday(year, time.September, time.Monday, 1),  // Labor Day
		nthWeekday(year, time.November, time.Thursday, 4), // Thanksgiving
		observed(date(year, time.December, 25)),           // Christmas
	}

	// A New Year's Day falling on Saturday is not shifted: the Friday before
	// belongs to the prior year and the exchange stays open.
	newYear := date(year, time.January, 1)
	switch newYear.Weekday() {
	case time.Saturday:
	case time.Sunday:
		hs = append(hs, newYear.AddDate(0, 0, 1))
	default:
		hs = append(hs, newYear)
	}

	// Juneteenth became an exchange holiday in 2022.
	if year >= 2022 {
		hs = append(hs, observed(date(year, time.June, 19)))
	}

	return hs
}

// observed shifts a fixed-date holiday off the weekend: Saturday holidays
// are observed the Friday before, Sunday holidays the Monday after.
func observed(d time.Time) time.Time {
	switch d.Weekday() {
	case time.Saturday:
		return d.AddDate(0, 0, -1)
	case time.Sunday:
		return d.AddDate(0, 0, 1)
	}
	return d
}

// nthWeekday returns the n-th given weekday of a month.
func nthWeekday(year int, month time.Month, wd time.Weekday, n int) time.Time {
	d := date(year, month, 1)
	offset := (int(wd) - int(d.Weekday()) + 7) % 7
	return d.AddDate(0, 0, offset+7*(n-1))
}

// lastWeekday returns the last given weekday of a month.
func lastWeekday(year int, month time.Month, wd time.Weekday) time.Time {
	d := date(year, month+1, 1).AddDate(0, 0, -1)
	offset := (int(d.Weekday()) - int(wd) + 7) % 7
	return d.AddDate(0, 0, -offset)
}

// goodFriday returns the Friday before Easter Sunday, via the anonymous
// Gregorian computus.
func goodFriday(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := time.Month((h + l - 7*m + 114) / 31)
	dayOfMonth := (h+l-7*m+114)%31 + 1
	return date(year, month, dayOfMonth).AddDate(0, 0, -2)
}

func date(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
