// Package scheduling derives and validates activity dates.
package scheduling

import "time"

// Clock supplies the current instant. Dates are taken in the clock's zone.
type Clock interface {
	Now() time.Time
}

type systemClock struct {
	loc *time.Location
}

// SystemClock reads the wall clock in loc; nil means UTC.
func SystemClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return systemClock{loc: loc}
}

func (c systemClock) Now() time.Time { return time.Now().In(c.loc) }

// FixedClock always returns the same instant.
type FixedClock time.Time

func (c FixedClock) Now() time.Time { return time.Time(c) }

// Today is the calendar date of clock's now, as UTC midnight.
func Today(clock Clock) time.Time {
	return DateOf(clock.Now())
}

// DateOf drops the time of day, keeping t's calendar date in t's zone.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// AddDays shifts a date by n calendar days.
func AddDays(d time.Time, n int) time.Time {
	return DateOf(d).AddDate(0, 0, n)
}

// DaysBetween counts calendar days from a to b; negative when b is earlier.
func DaysBetween(a, b time.Time) int {
	return int((DateOf(b).Unix() - DateOf(a).Unix()) / 86400)
}

// ParseDate reads a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, err
	}
	return DateOf(t), nil
}

func datePtr(t time.Time) *time.Time {
	d := DateOf(t)
	return &d
}
