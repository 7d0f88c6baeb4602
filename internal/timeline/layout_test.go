package timeline

import (
	"testing"
	"time"

	"github.com/huangang/campy/internal/models"
	"github.com/huangang/campy/internal/scheduling"
)

func d(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func act(start, due *time.Time) models.Activity {
	return models.Activity{Title: "task", StartOn: start, DueOn: due}
}

func ptr(t time.Time) *time.Time { return &t }

func TestComputeProjectRange(t *testing.T) {
	today := d(2025, 6, 15)

	t.Run("empty", func(t *testing.T) {
		r := ComputeProjectRange(nil, today)
		if !r.Start.Equal(today) || !r.End.Equal(today) {
			t.Errorf("got %v", r)
		}
	})

	t.Run("min start max due", func(t *testing.T) {
		r := ComputeProjectRange([]models.Activity{
			act(ptr(d(2025, 3, 10)), ptr(d(2025, 3, 20))),
			act(ptr(d(2025, 3, 1)), ptr(d(2025, 3, 5))),
			act(nil, ptr(d(2025, 4, 2))),
		}, today)
		if !r.Start.Equal(d(2025, 3, 1)) || !r.End.Equal(d(2025, 4, 2)) {
			t.Errorf("got %v", r)
		}
	})

	t.Run("end before start clamps", func(t *testing.T) {
		r := ComputeProjectRange([]models.Activity{act(ptr(d(2025, 5, 10)), ptr(d(2025, 5, 1)))}, today)
		if !r.End.Equal(r.Start) {
			t.Errorf("expected clamp, got %v", r)
		}
	})

	t.Run("no dates", func(t *testing.T) {
		r := ComputeProjectRange([]models.Activity{act(nil, nil)}, today)
		if !r.Start.Equal(today) || !r.End.Equal(today) {
			t.Errorf("got %v", r)
		}
	})
}

func TestPadded(t *testing.T) {
	// Wednesday 2025-10-22 .. Thursday 2025-10-30
	r := Padded(Range{Start: d(2025, 10, 22), End: d(2025, 10, 30)})
	if !r.Start.Equal(d(2025, 10, 13)) {
		t.Errorf("start = %s, want Monday a week earlier", r.Start.Format("2006-01-02"))
	}
	if !r.End.Equal(d(2025, 11, 2)) {
		t.Errorf("end = %s, want following Sunday", r.End.Format("2006-01-02"))
	}

	sunday := Padded(Range{Start: d(2025, 10, 26), End: d(2025, 10, 26)})
	if !sunday.Start.Equal(d(2025, 10, 13)) || !sunday.End.Equal(d(2025, 10, 26)) {
		t.Errorf("sunday padding = %v", sunday)
	}
}

func TestSelectScale(t *testing.T) {
	start := d(2025, 1, 1)
	tests := []struct {
		name  string
		days  int
		width int
		want  Scale
	}{
		{"single day", 1, 1200, Scale{Day, 60}},
		{"90 days", 90, 100, Scale{Day, 60}},
		{"91 days fits weeks", 91, 1200, Scale{Week, 72}},
		{"200 days too narrow", 200, 1000, Scale{Month, 142}},
		{"365 days wide", 365, 4000, Scale{Week, 72}},
		{"366 days", 366, 10000, Scale{Month, 769}},
		{"floor of 100", 300, 400, Scale{Month, 100}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			end := scheduling.AddDays(start, tt.days-1)
			if got := SelectScale(start, end, tt.width); got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSelectScale_Monotonic(t *testing.T) {
	start := d(2024, 1, 1)
	for _, width := range []int{200, 1200, 2400, 4000} {
		prev := 0
		for days := 1; days <= 800; days++ {
			g := SelectScale(start, scheduling.AddDays(start, days-1), width).Granularity
			if g.Coarseness() < prev {
				t.Fatalf("width %d: granularity went back to %s at %d days", width, g, days)
			}
			prev = g.Coarseness()
		}
	}
}

func TestScaleFor(t *testing.T) {
	start, end := d(2025, 1, 1), d(2025, 12, 31)
	if got := ScaleFor(Day, start, end, 1200); got.Granularity != Day {
		t.Errorf("forced day got %v", got)
	}
	if got := ScaleFor(Month, start, end, 2400); got != (Scale{Month, 200}) {
		t.Errorf("forced month got %v", got)
	}
	if got := ScaleFor("", start, end, 1200); got != SelectScale(start, end, 1200) {
		t.Errorf("auto should defer to SelectScale")
	}
}

func TestScaleFor_CoarsensPastMaxUnits(t *testing.T) {
	tests := []struct {
		name string
		g    Granularity
		end  time.Time
		want Granularity
	}{
		{"day fits", Day, d(2034, 12, 31), Day},
		{"day to week", Day, d(2039, 12, 31), Week},
		{"day to month", Day, d(2124, 12, 31), Month},
		{"week to month", Week, d(2124, 12, 31), Month},
	}
	start := d(2025, 1, 1)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScaleFor(tt.g, start, tt.end, 1200)
			if got.Granularity != tt.want {
				t.Fatalf("granularity = %s, want %s", got.Granularity, tt.want)
			}
			if n := len(BuildUnits(start, tt.end, got.Granularity)); n > MaxUnits {
				t.Errorf("%d units, want at most %d", n, MaxUnits)
			}
		})
	}
}

func TestClipRange(t *testing.T) {
	short := Range{Start: d(2025, 1, 15), End: d(2026, 6, 1)}
	if got := ClipRange(short); got != short {
		t.Errorf("short range changed to %+v", got)
	}

	long := Range{Start: d(2025, 1, 15), End: d(3000000, 1, 1)}
	got := ClipRange(long)
	if !got.Start.Equal(long.Start) || !got.End.Equal(d(2358, 4, 30)) {
		t.Errorf("clipped to %+v", got)
	}
	if MonthSpan(got.Start, got.End) != MaxUnits {
		t.Errorf("month span %d", MonthSpan(got.Start, got.End))
	}
}

func assertPartition(t *testing.T, units []Unit, start, end time.Time) {
	t.Helper()
	if len(units) == 0 {
		t.Fatal("no units")
	}
	if !units[0].Start.Equal(start) || !units[len(units)-1].End.Equal(end) {
		t.Fatalf("units cover %s..%s, want %s..%s", units[0].Start, units[len(units)-1].End, start, end)
	}
	total := 0
	for i, u := range units {
		if u.SpanDays != scheduling.DaysBetween(u.Start, u.End)+1 {
			t.Errorf("unit %d span %d does not match dates", i, u.SpanDays)
		}
		if i > 0 && !u.Start.Equal(scheduling.AddDays(units[i-1].End, 1)) {
			t.Errorf("gap or overlap before unit %d", i)
		}
		total += u.SpanDays
	}
	if want := scheduling.DaysBetween(start, end) + 1; total != want {
		t.Errorf("total span %d, want %d", total, want)
	}
}

func TestBuildUnits_Partition(t *testing.T) {
	ranges := []Range{
		{d(2025, 1, 1), d(2025, 1, 1)},
		{d(2025, 1, 29), d(2025, 3, 4)},
		{d(2024, 2, 10), d(2025, 2, 10)},
		{d(2025, 12, 20), d(2026, 1, 12)},
	}
	for _, r := range ranges {
		for _, g := range []Granularity{Day, Week, Month} {
			t.Run(string(g)+" "+r.Start.Format("2006-01-02"), func(t *testing.T) {
				assertPartition(t, BuildUnits(r.Start, r.End, g), r.Start, r.End)
			})
		}
	}
}

func TestBuildUnits_Daily(t *testing.T) {
	units := BuildUnits(d(2025, 10, 24), d(2025, 10, 27), Day)
	weekend := []bool{false, true, true, false}
	for i, u := range units {
		if u.Weekend != weekend[i] {
			t.Errorf("%s weekend = %v", u.Start.Format("Mon 02"), u.Weekend)
		}
	}
	if units[0].Label != "24" || units[0].MonthLabel != "Oct 2025" {
		t.Errorf("unexpected labels %q %q", units[0].Label, units[0].MonthLabel)
	}
}

func TestBuildUnits_WeeklySplitsAtMonthEnd(t *testing.T) {
	// Monday 2025-09-29 .. Sunday 2025-10-12; the first week crosses into October.
	units := BuildUnits(d(2025, 9, 29), d(2025, 10, 12), Week)
	want := []struct {
		label string
		month string
		start time.Time
		span  int
	}{
		{"W1", "Sep 2025", d(2025, 9, 29), 2},
		{"W1", "Oct 2025", d(2025, 10, 1), 5},
		{"W2", "Oct 2025", d(2025, 10, 6), 7},
	}
	if len(units) != len(want) {
		t.Fatalf("got %d units: %+v", len(units), units)
	}
	for i, w := range want {
		u := units[i]
		if u.Label != w.label || u.MonthLabel != w.month || !u.Start.Equal(w.start) || u.SpanDays != w.span {
			t.Errorf("unit %d = %s %s %s span %d", i, u.Label, u.MonthLabel, u.Start.Format("01-02"), u.SpanDays)
		}
	}
	for _, u := range units {
		if u.Start.Month() != u.End.Month() {
			t.Errorf("unit %s spans two months", u.Label)
		}
	}
}

func TestBuildUnits_MonthlyClipped(t *testing.T) {
	units := BuildUnits(d(2025, 1, 15), d(2025, 3, 10), Month)
	if len(units) != 3 {
		t.Fatalf("got %d units", len(units))
	}
	if units[0].SpanDays != 17 || units[1].SpanDays != 28 || units[2].SpanDays != 10 {
		t.Errorf("spans = %d %d %d", units[0].SpanDays, units[1].SpanDays, units[2].SpanDays)
	}
	if units[1].Label != "Feb 2025" {
		t.Errorf("label = %q", units[1].Label)
	}
}

func TestMarkHolidays(t *testing.T) {
	units := BuildUnits(d(2025, 12, 24), d(2025, 12, 26), Day)
	MarkHolidays(units, func(t time.Time) bool { return t.Day() == 25 })
	if units[0].Holiday || !units[1].Holiday || units[2].Holiday {
		t.Errorf("unexpected holiday flags %+v", units)
	}
	MarkHolidays(units, nil)
}

func TestGroupByMonth(t *testing.T) {
	units := BuildUnits(d(2025, 1, 30), d(2025, 2, 2), Day)
	groups := GroupByMonth(units)
	if len(groups) != 2 || groups[0] != (MonthGroup{"Jan 2025", 2}) || groups[1] != (MonthGroup{"Feb 2025", 2}) {
		t.Errorf("got %+v", groups)
	}
}

func TestMapDateToOffset(t *testing.T) {
	r := Range{Start: d(2025, 1, 1), End: d(2025, 1, 11)}
	units := BuildUnits(r.Start, r.End, Day)

	tests := []struct {
		date time.Time
		want float64
	}{
		{d(2025, 1, 1), 0},
		{d(2025, 1, 6), 50},
		{d(2025, 1, 11), 100},
		{d(2024, 12, 1), 0},
		{d(2025, 3, 1), 100},
	}
	for _, tt := range tests {
		if got := MapDateToOffset(tt.date, r, units, Day); got != tt.want {
			t.Errorf("offset(%s) = %v, want %v", tt.date.Format("01-02"), got, tt.want)
		}
	}

	single := Range{Start: d(2025, 1, 1), End: d(2025, 1, 1)}
	if got := MapDateToOffset(single.Start, single, nil, Day); got != 0 {
		t.Errorf("zero-length range offset = %v", got)
	}
}

func TestMapDateToOffset_MonthEqualSlices(t *testing.T) {
	r := Range{Start: d(2025, 1, 1), End: d(2025, 4, 30)}
	units := BuildUnits(r.Start, r.End, Month)

	if got := MapDateToOffset(d(2025, 2, 1), r, units, Month); got != 25 {
		t.Errorf("Feb 1 = %v, want 25", got)
	}
	if got := MapDateToOffset(d(2025, 2, 15), r, units, Month); got != 37.5 {
		t.Errorf("Feb 15 = %v, want 37.5", got)
	}
	if got := MapDateToOffset(d(2025, 6, 1), r, units, Month); got != 100 {
		t.Errorf("after range = %v", got)
	}
	if got := MapDateToOffset(d(2024, 6, 1), r, units, Month); got != 0 {
		t.Errorf("before range = %v", got)
	}
}

func TestBarGeometry(t *testing.T) {
	start, end := d(2025, 1, 1), d(2025, 1, 10)

	tests := []struct {
		name string
		a    models.Activity
		want Bar
	}{
		{"inside", act(ptr(d(2025, 1, 3)), ptr(d(2025, 1, 5))), Bar{20, 30}},
		{"clipped left", act(ptr(d(2024, 12, 20)), ptr(d(2025, 1, 2))), Bar{0, 20}},
		{"clipped right", act(ptr(d(2025, 1, 9)), ptr(d(2025, 2, 1))), Bar{80, 20}},
		{"no dates", act(nil, nil), Bar{0, 10}},
		{"single day at start", act(ptr(d(2025, 1, 1)), ptr(d(2025, 1, 1))), Bar{0, 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BarGeometry(&tt.a, start, end); got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}

	t.Run("rounds to two places", func(t *testing.T) {
		a := act(ptr(d(2025, 1, 2)), ptr(d(2025, 1, 2)))
		got := BarGeometry(&a, d(2025, 1, 1), d(2025, 1, 3))
		if got != (Bar{33.33, 33.33}) {
			t.Errorf("got %+v", got)
		}
	})
}

func TestBarGeometry_ZeroLengthRange(t *testing.T) {
	day := d(2025, 5, 5)
	a := act(ptr(day), ptr(day))
	got := BarGeometry(&a, day, day)
	if got.LeftPercent != 0 || got.WidthPercent != 100 {
		t.Errorf("got %+v", got)
	}
}

func TestGridColumns(t *testing.T) {
	units := BuildUnits(d(2025, 1, 1), d(2025, 1, 5), Day)

	tests := []struct {
		name string
		a    models.Activity
		want GridSpan
	}{
		{"inside", act(ptr(d(2025, 1, 2)), ptr(d(2025, 1, 3))), GridSpan{2, 4}},
		{"single day", act(ptr(d(2025, 1, 5)), ptr(d(2025, 1, 5))), GridSpan{5, 6}},
		{"starts before", act(ptr(d(2024, 12, 1)), ptr(d(2025, 1, 2))), GridSpan{1, 3}},
		{"ends after", act(ptr(d(2025, 1, 4)), ptr(d(2025, 3, 1))), GridSpan{4, 6}},
		{"spans whole axis", act(ptr(d(2024, 12, 1)), ptr(d(2025, 2, 1))), GridSpan{1, 6}},
		{"entirely before", act(ptr(d(2024, 12, 1)), ptr(d(2024, 12, 20))), GridSpan{1, 2}},
		{"entirely after", act(ptr(d(2025, 2, 1)), ptr(d(2025, 2, 9))), GridSpan{5, 6}},
		{"missing due", act(ptr(d(2025, 1, 4)), nil), GridSpan{4, 5}},
		{"missing due after axis", act(ptr(d(2025, 3, 1)), nil), GridSpan{5, 6}},
		{"missing start", act(nil, ptr(d(2025, 1, 3))), GridSpan{1, 4}},
		{"no dates", act(nil, nil), GridSpan{1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GridColumns(&tt.a, units); got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
	a := act(ptr(d(2025, 1, 2)), ptr(d(2025, 1, 3)))
	if got := GridColumns(&a, nil); got != (GridSpan{1, 1}) {
		t.Errorf("no units got %+v", got)
	}
}

func TestActivityStatus(t *testing.T) {
	today := d(2025, 6, 10)
	future := act(ptr(d(2025, 6, 11)), nil)
	current := act(ptr(today), nil)
	done := act(ptr(d(2025, 7, 1)), nil)
	done.IsDone = true

	if ActivityStatus(&future, today) != StatusPlanned {
		t.Error("future start should be planned")
	}
	if ActivityStatus(&current, today) != StatusInProgress {
		t.Error("start today should be in progress")
	}
	if ActivityStatus(&done, today) != StatusDone {
		t.Error("done flag wins")
	}
	noStart := act(nil, nil)
	if ActivityStatus(&noStart, today) != StatusInProgress {
		t.Error("no start should be in progress")
	}
}

func TestOffsetToDate(t *testing.T) {
	r := Range{Start: d(2025, 1, 1), End: d(2025, 1, 11)}
	if got := OffsetToDate(50, r); !got.Equal(d(2025, 1, 6)) {
		t.Errorf("50%% = %s", got)
	}
	if got := OffsetToDate(-10, r); !got.Equal(r.Start) {
		t.Errorf("negative = %s", got)
	}
	if got := OffsetToDate(140, r); !got.Equal(r.End) {
		t.Errorf("overflow = %s", got)
	}
}

func TestMonthGrid(t *testing.T) {
	g := MonthGrid(d(2025, 10, 15))
	if !g.Start.Equal(d(2025, 9, 29)) || !g.End.Equal(d(2025, 11, 2)) {
		t.Errorf("got %s..%s", g.Start.Format("2006-01-02"), g.End.Format("2006-01-02"))
	}
	if g.Start.Weekday() != time.Monday || g.End.Weekday() != time.Sunday {
		t.Error("grid must run Monday to Sunday")
	}
}
