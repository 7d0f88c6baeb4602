// Package timeline lays out activities on a Gantt time axis.
package timeline

import (
	"time"

	"github.com/huangang/campy/internal/scheduling"
	"github.com/jinzhu/now"
)

var mondayWeeks = &now.Config{WeekStartDay: time.Monday, TimeLocation: time.UTC}

// WeekStart is the Monday on or before d.
func WeekStart(d time.Time) time.Time {
	return scheduling.DateOf(mondayWeeks.With(scheduling.DateOf(d)).BeginningOfWeek())
}

// WeekEnd is the Sunday on or after d.
func WeekEnd(d time.Time) time.Time {
	return scheduling.DateOf(mondayWeeks.With(scheduling.DateOf(d)).EndOfWeek())
}

func MonthStart(d time.Time) time.Time {
	return scheduling.DateOf(mondayWeeks.With(scheduling.DateOf(d)).BeginningOfMonth())
}

func MonthEnd(d time.Time) time.Time {
	return scheduling.DateOf(mondayWeeks.With(scheduling.DateOf(d)).EndOfMonth())
}

// MonthGrid is the Monday-to-Sunday range covering the month containing d.
func MonthGrid(d time.Time) Range {
	return Range{Start: WeekStart(MonthStart(d)), End: WeekEnd(MonthEnd(d))}
}

func isWeekend(d time.Time) bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func minDate(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

func maxDate(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func clampDate(d, lo, hi time.Time) time.Time {
	return minDate(maxDate(d, lo), hi)
}
