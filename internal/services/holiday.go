package services

import (
	"strings"
	"time"

	"github.com/6tail/lunar-go/HolidayUtil"
	"github.com/6tail/lunar-go/calendar"
	"github.com/huangang/campy/internal/scheduling"
	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/au"
	"github.com/rickar/cal/v2/ca"
	"github.com/rickar/cal/v2/de"
	"github.com/rickar/cal/v2/es"
	"github.com/rickar/cal/v2/fr"
	"github.com/rickar/cal/v2/gb"
	"github.com/rickar/cal/v2/ie"
	"github.com/rickar/cal/v2/it"
	"github.com/rickar/cal/v2/jp"
	"github.com/rickar/cal/v2/nl"
	"github.com/rickar/cal/v2/nz"
	"github.com/rickar/cal/v2/us"
)

// Country codes with special handling.
const (
	CountryChina    = "CN"
	CountryWeekdays = "NONE"
)

type CountryInfo struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

var holidayCountries = []struct {
	CountryInfo
	holidays []*cal.Holiday
}{
	{CountryInfo{"US", "United States"}, us.Holidays},
	{CountryInfo{"GB", "United Kingdom"}, gb.Holidays},
	{CountryInfo{"IE", "Ireland"}, ie.Holidays},
	{CountryInfo{"CA", "Canada"}, ca.Holidays},
	{CountryInfo{"AU", "Australia"}, au.HolidaysNSW},
	{CountryInfo{"NZ", "New Zealand"}, nz.Holidays},
	{CountryInfo{"DE", "Germany"}, de.Holidays},
	{CountryInfo{"FR", "France"}, fr.Holidays},
	{CountryInfo{"ES", "Spain"}, es.Holidays},
	{CountryInfo{"IT", "Italy"}, it.Holidays},
	{CountryInfo{"NL", "Netherlands"}, nl.Holidays},
	{CountryInfo{"JP", "Japan"}, jp.Holidays},
}

// HolidayService answers workday questions per country. Unknown codes and
// NONE treat every weekday as a workday.
type HolidayService struct {
	calendars map[string]*cal.BusinessCalendar
}

func NewHolidayService() *HolidayService {
	s := &HolidayService{
		calendars: make(map[string]*cal.BusinessCalendar, len(holidayCountries)),
	}
	for _, c := range holidayCountries {
		bc := cal.NewBusinessCalendar()
		bc.Name = c.Name
		bc.AddHoliday(c.holidays...)
		s.calendars[c.Code] = bc
	}
	return s
}

func (s *HolidayService) IsWorkday(t time.Time, countryCode string) bool {
	countryCode = strings.ToUpper(countryCode)
	if countryCode == CountryChina {
		return isWorkdayChina(t)
	}

	c, ok := s.calendars[countryCode]
	if !ok {
		return !cal.IsWeekend(t)
	}
	return c.IsWorkday(t)
}

// isWorkdayChina uses the official adjusted schedule, where some weekend days
// are working days.
func isWorkdayChina(t time.Time) bool {
	solar := calendar.NewSolarFromDate(t)
	holiday := HolidayUtil.GetHolidayByYmd(solar.GetYear(), solar.GetMonth(), solar.GetDay())
	if holiday != nil {
		return holiday.IsWork()
	}
	return !cal.IsWeekend(t)
}

// IsHoliday reports a weekday that is not a workday. Weekends are flagged
// separately on the Gantt axis, so they are never holidays here.
func (s *HolidayService) IsHoliday(t time.Time, countryCode string) bool {
	if cal.IsWeekend(t) {
		return false
	}
	return !s.IsWorkday(t, countryCode)
}

// HolidayFunc returns a predicate for countryCode, or nil when no country is
// configured.
func (s *HolidayService) HolidayFunc(countryCode string) func(time.Time) bool {
	if countryCode == "" || strings.EqualFold(countryCode, CountryWeekdays) {
		return nil
	}
	return func(t time.Time) bool { return s.IsHoliday(t, countryCode) }
}

// WorkdaysBetween counts workdays in the inclusive range [start, end].
func (s *HolidayService) WorkdaysBetween(start, end time.Time, countryCode string) int {
	start, end = scheduling.DateOf(start), scheduling.DateOf(end)
	n := 0
	for d := start; !d.After(end); d = scheduling.AddDays(d, 1) {
		if s.IsWorkday(d, countryCode) {
			n++
		}
	}
	return n
}

func (s *HolidayService) GetSupportedCountries() []CountryInfo {
	countries := []CountryInfo{{Code: CountryChina, Name: "China"}}
	for _, c := range holidayCountries {
		countries = append(countries, c.CountryInfo)
	}
	return append(countries, CountryInfo{Code: CountryWeekdays, Name: "Weekdays Only (Mon-Fri)"})
}
