package timeline

import (
	"math"
	"strconv"
	"time"

	"github.com/huangang/campy/internal/models"
	"github.com/huangang/campy/internal/scheduling"
)

// Range is an inclusive span of calendar dates.
type Range struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Days is the inclusive day count, never less than 1.
func (r Range) Days() int {
	return max(scheduling.DaysBetween(r.Start, r.End)+1, 1)
}

func (r Range) Contains(d time.Time) bool {
	d = scheduling.DateOf(d)
	return !d.Before(r.Start) && !d.After(r.End)
}

// ComputeProjectRange spans the earliest start_on to the latest due_on.
// An empty set, or one with no dates, collapses to [today, today].
func ComputeProjectRange(activities []models.Activity, today time.Time) Range {
	today = scheduling.DateOf(today)

	var start, end *time.Time
	for i := range activities {
		a := &activities[i]
		if a.StartOn != nil {
			s := scheduling.DateOf(*a.StartOn)
			if start == nil || s.Before(*start) {
				start = &s
			}
		}
		if a.DueOn != nil {
			e := scheduling.DateOf(*a.DueOn)
			if end == nil || e.After(*end) {
				end = &e
			}
		}
	}

	if start == nil {
		if end == nil {
			return Range{Start: today, End: today}
		}
		start = end
	}
	if end == nil || end.Before(*start) {
		end = start
	}
	return Range{Start: *start, End: *end}
}

// Padded widens r to start one week before its Monday and end on its Sunday.
func Padded(r Range) Range {
	return Range{
		Start: scheduling.AddDays(WeekStart(r.Start), -7),
		End:   WeekEnd(r.End),
	}
}

// Granularity is the time-axis resolution.
type Granularity string

const (
	Day   Granularity = "day"
	Week  Granularity = "week"
	Month Granularity = "month"
)

// Coarseness orders granularities from finest to coarsest.
func (g Granularity) Coarseness() int {
	switch g {
	case Day:
		return 1
	case Week:
		return 2
	case Month:
		return 3
	}
	return 0
}

// ParseGranularity accepts day, week or month. "auto" and "" return
// ok with an empty granularity.
func ParseGranularity(s string) (Granularity, bool) {
	switch s {
	case "", "auto":
		return "", true
	case string(Day), string(Week), string(Month):
		return Granularity(s), true
	}
	return "", false
}

const (
	DayColumnPx      = 60
	WeekColumnPx     = 72
	MinMonthColumnPx = 100
	DayScaleMaxDays  = 90
	WeekScaleMaxDays = 365

	// MaxUnits bounds the header segments of any axis.
	MaxUnits = 4000
)

type Scale struct {
	Granularity   Granularity `json:"granularity"`
	ColumnWidthPx int         `json:"column_width_px"`
}

// MonthSpan counts the calendar months touched by [start, end].
func MonthSpan(start, end time.Time) int {
	span := (end.Year()*12 + int(end.Month())) - (start.Year()*12 + int(start.Month())) + 1
	return max(span, 1)
}

// SelectScale picks the finest granularity that fits renderWidthPx.
func SelectScale(start, end time.Time, renderWidthPx int) Scale {
	totalDays := Range{Start: start, End: end}.Days()

	if totalDays <= DayScaleMaxDays {
		return Scale{Granularity: Day, ColumnWidthPx: DayColumnPx}
	}
	weeks := (totalDays + 6) / 7
	if totalDays <= WeekScaleMaxDays && weeks*WeekColumnPx <= renderWidthPx {
		return Scale{Granularity: Week, ColumnWidthPx: WeekColumnPx}
	}
	return monthScale(start, end, renderWidthPx)
}

// ScaleFor returns the scale for an explicit granularity; empty selects
// automatically. A granularity that would need more than MaxUnits columns
// falls back to the next coarser one.
func ScaleFor(g Granularity, start, end time.Time, renderWidthPx int) Scale {
	days := Range{Start: start, End: end}.Days()
	if g == Day && days > MaxUnits {
		g = Week
	}
	// Weekly units split at month ends, so a week axis has at most one
	// extra unit per month.
	if g == Week && (days+6)/7+MonthSpan(start, end) > MaxUnits {
		g = Month
	}

	switch g {
	case Day:
		return Scale{Granularity: Day, ColumnWidthPx: DayColumnPx}
	case Week:
		return Scale{Granularity: Week, ColumnWidthPx: WeekColumnPx}
	case Month:
		return monthScale(start, end, renderWidthPx)
	}
	return SelectScale(start, end, renderWidthPx)
}

// ClipRange shortens r to the first MaxUnits calendar months.
func ClipRange(r Range) Range {
	if MonthSpan(r.Start, r.End) <= MaxUnits {
		return r
	}
	r.End = MonthEnd(MonthStart(r.Start).AddDate(0, MaxUnits-1, 0))
	return r
}

func monthScale(start, end time.Time, renderWidthPx int) Scale {
	width := max(renderWidthPx/MonthSpan(start, end), MinMonthColumnPx)
	return Scale{Granularity: Month, ColumnWidthPx: width}
}

// Unit is one header segment of the time axis.
type Unit struct {
	Label      string    `json:"label"`
	MonthLabel string    `json:"month_label"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	SpanDays   int       `json:"span_days"`
	Weekend    bool      `json:"weekend"`
	Holiday    bool      `json:"holiday"`
}

func (u Unit) Contains(d time.Time) bool {
	return !d.Before(u.Start) && !d.After(u.End)
}

const monthLabelLayout = "Jan 2006"

// BuildUnits partitions [start, end] into consecutive units of g.
func BuildUnits(start, end time.Time, g Granularity) []Unit {
	start, end = scheduling.DateOf(start), scheduling.DateOf(end)
	if end.Before(start) {
		end = start
	}

	switch g {
	case Day:
		return dailyUnits(start, end)
	case Week:
		return weeklyUnits(start, end)
	default:
		return monthlyUnits(start, end)
	}
}

func dailyUnits(start, end time.Time) []Unit {
	units := make([]Unit, 0, scheduling.DaysBetween(start, end)+1)
	for d := start; !d.After(end); d = scheduling.AddDays(d, 1) {
		units = append(units, Unit{
			Label:      d.Format("02"),
			MonthLabel: d.Format(monthLabelLayout),
			Start:      d,
			End:        d,
			SpanDays:   1,
			Weekend:    isWeekend(d),
		})
	}
	return units
}

// weeklyUnits splits Monday weeks at month ends and numbers them W1, W2, ...
// within each month.
func weeklyUnits(start, end time.Time) []Unit {
	var units []Unit
	weekOfMonth := 0
	var month time.Month
	var year int

	for cursor := start; !cursor.After(end); {
		unitEnd := minDate(minDate(WeekEnd(cursor), MonthEnd(cursor)), end)

		if cursor.Month() != month || cursor.Year() != year {
			month, year = cursor.Month(), cursor.Year()
			weekOfMonth = 0
		}
		weekOfMonth++

		units = append(units, Unit{
			Label:      "W" + strconv.Itoa(weekOfMonth),
			MonthLabel: cursor.Format(monthLabelLayout),
			Start:      cursor,
			End:        unitEnd,
			SpanDays:   scheduling.DaysBetween(cursor, unitEnd) + 1,
		})
		cursor = scheduling.AddDays(unitEnd, 1)
	}
	return units
}

func monthlyUnits(start, end time.Time) []Unit {
	var units []Unit
	for cursor := MonthStart(start); !cursor.After(end); cursor = cursor.AddDate(0, 1, 0) {
		unitStart := maxDate(cursor, start)
		unitEnd := minDate(MonthEnd(cursor), end)
		label := cursor.Format(monthLabelLayout)
		units = append(units, Unit{
			Label:      label,
			MonthLabel: label,
			Start:      unitStart,
			End:        unitEnd,
			SpanDays:   scheduling.DaysBetween(unitStart, unitEnd) + 1,
		})
	}
	return units
}

// MarkHolidays flags units whose single day is a holiday.
func MarkHolidays(units []Unit, isHoliday func(time.Time) bool) {
	if isHoliday == nil {
		return
	}
	for i := range units {
		if units[i].SpanDays == 1 && isHoliday(units[i].Start) {
			units[i].Holiday = true
		}
	}
}

// MonthGroup is a run of consecutive units sharing a month label.
type MonthGroup struct {
	Label string `json:"label"`
	Span  int    `json:"span"`
}

func GroupByMonth(units []Unit) []MonthGroup {
	var groups []MonthGroup
	for _, u := range units {
		if n := len(groups); n > 0 && groups[n-1].Label == u.MonthLabel {
			groups[n-1].Span++
			continue
		}
		groups = append(groups, MonthGroup{Label: u.MonthLabel, Span: 1})
	}
	return groups
}

// MapDateToOffset places date on the axis as a percentage in [0, 100].
// Month units each take an equal slice regardless of their day count.
func MapDateToOffset(date time.Time, r Range, units []Unit, g Granularity) float64 {
	date = scheduling.DateOf(date)
	if g == Month && len(units) > 0 {
		return monthOffset(date, units)
	}

	denom := max(scheduling.DaysBetween(r.Start, r.End), 1)
	pct := float64(scheduling.DaysBetween(r.Start, date)) / float64(denom) * 100
	return math.Min(math.Max(pct, 0), 100)
}

func monthOffset(date time.Time, units []Unit) float64 {
	n := float64(len(units))
	if date.Before(units[0].Start) {
		return 0
	}
	for i, u := range units {
		if u.Contains(date) {
			fraction := float64(scheduling.DaysBetween(u.Start, date)) / float64(max(u.SpanDays, 1))
			return (float64(i) + fraction) / n * 100
		}
	}
	return 100
}

// Bar is a percentage-positioned bar.
type Bar struct {
	LeftPercent  float64 `json:"left_percent"`
	WidthPercent float64 `json:"width_percent"`
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// BarGeometry positions an activity within [rangeStart, rangeEnd]. A missing
// start falls back to rangeStart and a missing due to the start.
func BarGeometry(a *models.Activity, rangeStart, rangeEnd time.Time) Bar {
	rangeStart, rangeEnd = scheduling.DateOf(rangeStart), scheduling.DateOf(rangeEnd)
	if rangeEnd.Before(rangeStart) {
		rangeEnd = rangeStart
	}

	start := rangeStart
	if a.StartOn != nil {
		start = scheduling.DateOf(*a.StartOn)
	}
	due := start
	if a.DueOn != nil {
		due = scheduling.DateOf(*a.DueOn)
	}

	clippedStart := clampDate(start, rangeStart, rangeEnd)
	clippedEnd := clampDate(due, rangeStart, rangeEnd)

	offsetDays := scheduling.DaysBetween(rangeStart, clippedStart)
	spanDays := max(scheduling.DaysBetween(clippedStart, clippedEnd)+1, 1)
	totalDays := max(scheduling.DaysBetween(rangeStart, rangeEnd)+1, 1)

	return Bar{
		LeftPercent:  round2(float64(offsetDays) / float64(totalDays) * 100),
		WidthPercent: round2(float64(spanDays) / float64(totalDays) * 100),
	}
}

// GridSpan is a CSS-grid style column span: 1-indexed, end exclusive.
type GridSpan struct {
	StartColumn int `json:"start_column"`
	EndColumn   int `json:"end_column"`
}

// GridColumns spans the units containing the activity's start and due dates.
// A missing start falls back to the first unit and a missing due to the start.
// Dates past either end of the axis clip to the edge column, so an activity
// lying wholly outside collapses to a single edge column.
func GridColumns(a *models.Activity, units []Unit) GridSpan {
	if len(units) == 0 {
		return GridSpan{StartColumn: 1, EndColumn: 1}
	}
	first, last := units[0].Start, units[len(units)-1].End

	start := first
	if a.StartOn != nil {
		start = scheduling.DateOf(*a.StartOn)
	}
	due := start
	if a.DueOn != nil {
		due = scheduling.DateOf(*a.DueOn)
	}
	if due.Before(start) {
		due = start
	}

	switch {
	case due.Before(first):
		return GridSpan{StartColumn: 1, EndColumn: 2}
	case start.After(last):
		return GridSpan{StartColumn: len(units), EndColumn: len(units) + 1}
	}

	startCol, endCol := 1, len(units)+1
	if i := UnitIndex(units, start); i >= 0 {
		startCol = i + 1
	}
	if i := UnitIndex(units, due); i >= 0 {
		endCol = i + 2
	}
	return GridSpan{StartColumn: startCol, EndColumn: max(endCol, startCol+1)}
}

// UnitIndex returns the index of the unit containing d, or -1.
func UnitIndex(units []Unit, d time.Time) int {
	d = scheduling.DateOf(d)
	for i, u := range units {
		if u.Contains(d) {
			return i
		}
	}
	return -1
}

type Status string

const (
	StatusDone       Status = "done"
	StatusPlanned    Status = "planned"
	StatusInProgress Status = "in_progress"
)

// ActivityStatus classifies an activity relative to today.
func ActivityStatus(a *models.Activity, today time.Time) Status {
	if a.IsDone {
		return StatusDone
	}
	if a.StartOn != nil && scheduling.DateOf(*a.StartOn).After(scheduling.DateOf(today)) {
		return StatusPlanned
	}
	return StatusInProgress
}

// OffsetToDate converts a drag position back to a start date on r.
func OffsetToDate(percent float64, r Range) time.Time {
	percent = math.Min(math.Max(percent, 0), 100)
	totalDays := scheduling.DaysBetween(r.Start, r.End)
	offset := int(math.Round(percent / 100 * float64(totalDays)))
	return scheduling.AddDays(r.Start, offset)
}
