package services

import (
	"time"

	"github.com/huangang/campy/internal/models"
	"github.com/huangang/campy/internal/scheduling"
	"github.com/huangang/campy/internal/timeline"
	"gorm.io/gorm"
)

const maxRenderWidth = 20000

// GanttService lays out a project's activities for the Gantt view.
type GanttService struct {
	db           *gorm.DB
	projects     *ProjectService
	clock        scheduling.Clock
	holidays     *HolidayService
	country      string
	defaultWidth int
}

func NewGanttService(db *gorm.DB, clock scheduling.Clock, holidays *HolidayService, country string, defaultWidth int) *GanttService {
	return &GanttService{
		db:           db,
		projects:     NewProjectService(db),
		clock:        clock,
		holidays:     holidays,
		country:      country,
		defaultWidth: defaultWidth,
	}
}

type GanttRequest struct {
	Width  int    `form:"width"`
	Scale  string `form:"scale"`
	Padded bool   `form:"padded"`
}

type GanttResponse struct {
	Project *models.Project `json:"project"`
	timeline.Chart
}

func (s *GanttService) Chart(actor Actor, projectID uint, req *GanttRequest) (*GanttResponse, error) {
	granularity, ok := timeline.ParseGranularity(req.Scale)
	if !ok {
		return nil, fieldError("scale", msgNotInList)
	}
	project, err := s.projects.Authorize(actor, projectID, canAccess)
	if err != nil {
		return nil, err
	}

	width := req.Width
	if width <= 0 {
		width = s.defaultWidth
	}
	width = min(width, maxRenderWidth)

	var activities []models.Activity
	if err := s.db.Where("project_id = ?", project.ID).
		Order("start_on ASC, due_on ASC, id ASC").
		Find(&activities).Error; err != nil {
		return nil, err
	}

	opts := timeline.Options{
		RenderWidthPx: width,
		Granularity:   granularity,
		Padded:        req.Padded,
		Today:         scheduling.Today(s.clock),
	}
	if s.holidays != nil {
		opts.IsHoliday = s.holidays.HolidayFunc(s.country)
		opts.Workdays = func(start, end time.Time) int {
			return s.holidays.WorkdaysBetween(start, end, s.country)
		}
	}
	return &GanttResponse{Project: project, Chart: timeline.BuildChart(activities, opts)}, nil
}
