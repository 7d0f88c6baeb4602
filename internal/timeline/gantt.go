package timeline

import (
	"time"

	"github.com/huangang/campy/internal/models"
	"github.com/huangang/campy/internal/scheduling"
)

// Options control BuildChart. Zero values select an automatic scale over the
// unpadded project range.
type Options struct {
	RenderWidthPx int
	Granularity   Granularity
	Padded        bool
	Today         time.Time
	// IsHoliday flags day units; nil skips holiday marking.
	IsHoliday func(time.Time) bool
	// Workdays counts working days in an inclusive range; nil leaves
	// ActivityBar.Workdays unset.
	Workdays func(start, end time.Time) int
}

type TodayMarker struct {
	Date          time.Time `json:"date"`
	OffsetPercent float64   `json:"offset_percent"`
	Column        GridSpan  `json:"column"`
}

// ActivityBar is the layout of one activity row.
type ActivityBar struct {
	ActivityID    uint       `json:"activity_id"`
	Title         string     `json:"title"`
	StartOn       *time.Time `json:"start_on"`
	DueOn         *time.Time `json:"due_on"`
	DurationDays  *int       `json:"duration_days"`
	AssigneeID    *uint      `json:"assignee_id"`
	Status        Status     `json:"status"`
	Bar           Bar        `json:"bar"`
	Grid          GridSpan   `json:"grid"`
	OffsetPercent float64    `json:"offset_percent"`
	Workdays      *int       `json:"workdays,omitempty"`
}

type Chart struct {
	Range  Range         `json:"range"`
	Scale  Scale         `json:"scale"`
	Units  []Unit        `json:"units"`
	Months []MonthGroup  `json:"months"`
	Today  *TodayMarker  `json:"today,omitempty"`
	Bars   []ActivityBar `json:"bars"`
}

// BuildChart lays out activities in their given order.
func BuildChart(activities []models.Activity, opts Options) Chart {
	r := ComputeProjectRange(activities, opts.Today)
	if opts.Padded {
		r = Padded(r)
	}
	r = ClipRange(r)

	scale := ScaleFor(opts.Granularity, r.Start, r.End, opts.RenderWidthPx)
	units := BuildUnits(r.Start, r.End, scale.Granularity)
	if scale.Granularity == Day {
		MarkHolidays(units, opts.IsHoliday)
	}

	chart := Chart{
		Range:  r,
		Scale:  scale,
		Units:  units,
		Months: GroupByMonth(units),
		Bars:   make([]ActivityBar, 0, len(activities)),
	}

	if !opts.Today.IsZero() && r.Contains(opts.Today) {
		idx := UnitIndex(units, opts.Today)
		chart.Today = &TodayMarker{
			Date:          scheduling.DateOf(opts.Today),
			OffsetPercent: round2(MapDateToOffset(opts.Today, r, units, scale.Granularity)),
			Column:        GridSpan{StartColumn: idx + 1, EndColumn: idx + 2},
		}
	}

	for i := range activities {
		a := &activities[i]
		bar := ActivityBar{
			ActivityID:   a.ID,
			Title:        a.Title,
			StartOn:      a.StartOn,
			DueOn:        a.DueOn,
			DurationDays: a.DurationDays,
			AssigneeID:   a.AssigneeID,
			Status:       ActivityStatus(a, opts.Today),
			Bar:          BarGeometry(a, r.Start, r.End),
			Grid:         GridColumns(a, units),
		}
		if a.StartOn != nil {
			bar.OffsetPercent = round2(MapDateToOffset(*a.StartOn, r, units, scale.Granularity))
		}
		if opts.Workdays != nil && a.StartOn != nil && a.DueOn != nil && !a.DueOn.Before(*a.StartOn) {
			n := opts.Workdays(*a.StartOn, *a.DueOn)
			bar.Workdays = &n
		}
		chart.Bars = append(chart.Bars, bar)
	}
	return chart
}
