package services

import (
	"sort"
	"strings"
	"time"

	"github.com/huangang/campy/internal/models"
	"github.com/huangang/campy/internal/scheduling"
	"github.com/huangang/campy/internal/timeline"
	"gorm.io/gorm"
)

const msgEndBeforeStart = "must be after the start"

// Calendar entry categories.
const (
	EntryActivity = "activity"
	EntryEvent    = "calendar_event"
)

type CalendarService struct {
	db       *gorm.DB
	clock    scheduling.Clock
	holidays *HolidayService
	country  string
}

func NewCalendarService(db *gorm.DB, clock scheduling.Clock, holidays *HolidayService, country string) *CalendarService {
	return &CalendarService{db: db, clock: clock, holidays: holidays, country: country}
}

type CalendarEntry struct {
	Category string                `json:"category"`
	Activity *models.Activity      `json:"activity,omitempty"`
	Event    *models.CalendarEvent `json:"calendar_event,omitempty"`
	MultiDay bool                  `json:"multi_day"`
	AllDay   bool                  `json:"all_day"`
	SortKey  time.Time             `json:"-"`
}

type CalendarDay struct {
	Date      time.Time       `json:"date"`
	InMonth   bool            `json:"in_month"`
	IsToday   bool            `json:"is_today"`
	IsHoliday bool            `json:"is_holiday"`
	Entries   []CalendarEntry `json:"entries"`
}

type CalendarMonth struct {
	Month time.Time       `json:"month"`
	Range timeline.Range  `json:"range"`
	Weeks [][]CalendarDay `json:"weeks"`
}

// Month builds the Monday-to-Sunday grid around the month containing
// month, or the current month when month is empty or unparseable.
func (s *CalendarService) Month(actor Actor, month string) (*CalendarMonth, error) {
	today := scheduling.Today(s.clock)
	current := today
	if month != "" {
		if d := parseImportDate(month); d != nil {
			current = *d
		} else if t, err := time.Parse("2006-01", month); err == nil {
			current = scheduling.DateOf(t)
		}
	}
	r := timeline.MonthGrid(current)

	var activities []models.Activity
	if err := s.db.Preload("Project").Preload("Zone").Preload("Discipline").
		Where("assignee_id = ? AND start_on <= ? AND due_on >= ?", actor.UserID, r.End, r.Start).
		Find(&activities).Error; err != nil {
		return nil, err
	}

	var events []models.CalendarEvent
	if err := s.db.Where("user_id = ? AND start_at < ? AND end_at >= ?", actor.UserID, r.End.AddDate(0, 0, 1), r.Start).
		Order("start_at").
		Find(&events).Error; err != nil {
		return nil, err
	}

	entries := BuildEntries(r, activities, events)

	var isHoliday func(time.Time) bool
	if s.holidays != nil {
		isHoliday = s.holidays.HolidayFunc(s.country)
	}

	out := &CalendarMonth{Month: timeline.MonthStart(current), Range: r}
	var week []CalendarDay
	for d := r.Start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
		day := CalendarDay{
			Date:    d,
			InMonth: d.Month() == current.Month(),
			IsToday: d.Equal(today),
			Entries: entries[d],
		}
		if day.Entries == nil {
			day.Entries = []CalendarEntry{}
		}
		if isHoliday != nil {
			day.IsHoliday = isHoliday(d)
		}
		week = append(week, day)
		if len(week) == 7 {
			out.Weeks = append(out.Weeks, week)
			week = nil
		}
	}
	return out, nil
}

// BuildEntries places activities and events on every day of r they cover,
// each day sorted by start.
func BuildEntries(r timeline.Range, activities []models.Activity, events []models.CalendarEvent) map[time.Time][]CalendarEntry {
	grouped := map[time.Time][]CalendarEntry{}

	for i := range activities {
		a := &activities[i]
		if a.StartOn == nil || a.DueOn == nil {
			continue
		}
		start := scheduling.DateOf(*a.StartOn)
		end := scheduling.DateOf(*a.DueOn)
		from, to := start, end
		if from.Before(r.Start) {
			from = r.Start
		}
		if to.After(r.End) {
			to = r.End
		}
		for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
			grouped[d] = append(grouped[d], CalendarEntry{
				Category: EntryActivity,
				Activity: a,
				MultiDay: !start.Equal(end),
				AllDay:   true,
				SortKey:  start,
			})
		}
	}

	for i := range events {
		e := &events[i]
		start := scheduling.DateOf(e.StartAt)
		end := scheduling.DateOf(e.EndAt)
		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			if !r.Contains(d) {
				continue
			}
			grouped[d] = append(grouped[d], CalendarEntry{
				Category: EntryEvent,
				Event:    e,
				MultiDay: !start.Equal(end),
				AllDay:   e.AllDay,
				SortKey:  e.StartAt,
			})
		}
	}

	for d := range grouped {
		day := grouped[d]
		sort.SliceStable(day, func(i, j int) bool { return day[i].SortKey.Before(day[j].SortKey) })
	}
	return grouped
}

type CalendarEventInput struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	StartAt     *time.Time `json:"start_at"`
	EndAt       *time.Time `json:"end_at"`
	EventType   string     `json:"event_type"`
	Location    string     `json:"location"`
	AllDay      bool       `json:"all_day"`
	ActivityID  *uint      `json:"activity_id"`
}

// ValidateEvent checks the event fields in a fixed order.
func ValidateEvent(e *models.CalendarEvent) scheduling.FieldErrors {
	var errs scheduling.FieldErrors
	if strings.TrimSpace(e.Title) == "" {
		errs.Add("title", scheduling.MsgBlank)
	}
	if e.StartAt.IsZero() {
		errs.Add("start_at", scheduling.MsgBlank)
	} else if !scheduling.InHorizon(e.StartAt) {
		errs.Add("start_at", scheduling.MsgOutOfRange)
	}
	if e.EndAt.IsZero() {
		errs.Add("end_at", scheduling.MsgBlank)
	} else if !scheduling.InHorizon(e.EndAt) {
		errs.Add("end_at", scheduling.MsgOutOfRange)
	}
	valid := false
	for _, t := range models.EventTypes {
		if e.EventType == t {
			valid = true
		}
	}
	if !valid {
		errs.Add("event_type", msgNotInList)
	}
	if !e.StartAt.IsZero() && !e.EndAt.IsZero() && e.EndAt.Before(e.StartAt) {
		errs.Add("end_at", msgEndBeforeStart)
	}
	return errs
}

func (s *CalendarService) applyEvent(actor Actor, e *models.CalendarEvent, in *CalendarEventInput) error {
	e.Title = strings.TrimSpace(in.Title)
	e.Description = in.Description
	e.Location = in.Location
	e.AllDay = in.AllDay
	e.EventType = in.EventType
	if e.EventType == "" {
		e.EventType = models.EventTypeCustom
	}
	e.StartAt, e.EndAt = time.Time{}, time.Time{}
	if in.StartAt != nil {
		e.StartAt = *in.StartAt
	}
	if in.EndAt != nil {
		e.EndAt = *in.EndAt
	}

	e.ActivityID = optionalID(in.ActivityID)
	if e.ActivityID != nil {
		var a models.Activity
		if err := s.db.First(&a, *e.ActivityID).Error; err != nil {
			return notFound(err)
		}
		if !actor.Authz.CanViewActivity(&a, actor.UserID) {
			return ErrForbidden
		}
	}
	return newValidationError(ValidateEvent(e))
}

func (s *CalendarService) CreateEvent(actor Actor, in *CalendarEventInput) (*models.CalendarEvent, error) {
	e := &models.CalendarEvent{UserID: actor.UserID}
	if err := s.applyEvent(actor, e, in); err != nil {
		return nil, err
	}
	if err := s.db.Create(e).Error; err != nil {
		return nil, err
	}
	return e, nil
}

func (s *CalendarService) findEvent(actor Actor, id uint) (*models.CalendarEvent, error) {
	var e models.CalendarEvent
	if err := s.db.Where("user_id = ?", actor.UserID).First(&e, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &e, nil
}

func (s *CalendarService) GetEvent(actor Actor, id uint) (*models.CalendarEvent, error) {
	return s.findEvent(actor, id)
}

func (s *CalendarService) UpdateEvent(actor Actor, id uint, in *CalendarEventInput) (*models.CalendarEvent, error) {
	e, err := s.findEvent(actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.applyEvent(actor, e, in); err != nil {
		return nil, err
	}
	if err := s.db.Save(e).Error; err != nil {
		return nil, err
	}
	return e, nil
}

func (s *CalendarService) DeleteEvent(actor Actor, id uint) error {
	e, err := s.findEvent(actor, id)
	if err != nil {
		return err
	}
	return s.db.Delete(e).Error
}
