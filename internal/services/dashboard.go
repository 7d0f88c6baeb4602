package services

import (
	"math"
	"time"

	"github.com/huangang/campy/internal/models"
	"github.com/huangang/campy/internal/scheduling"
	"gorm.io/gorm"
)

const (
	dashboardListLimit = 5
	upcomingWindowDays = 7
)

type DashboardService struct {
	db    *gorm.DB
	clock scheduling.Clock
}

func NewDashboardService(db *gorm.DB, clock scheduling.Clock) *DashboardService {
	return &DashboardService{db: db, clock: clock}
}

type ActivityStats struct {
	Total      int64 `json:"total"`
	Done       int64 `json:"done"`
	Overdue    int64 `json:"overdue"`
	Upcoming   int64 `json:"upcoming"`
	DonePct    int   `json:"done_pct"`
	OverduePct int   `json:"overdue_pct"`
}

type ProjectStats struct {
	Total  int64 `json:"total"`
	Owned  int64 `json:"owned"`
	Active int64 `json:"active"`
}

type DashboardResponse struct {
	Projects           []models.Project       `json:"projects"`
	AssignedActivities []models.Activity      `json:"assigned_activities"`
	UpcomingEvents     []models.CalendarEvent `json:"upcoming_events"`
	ActivityStats      ActivityStats          `json:"activity_stats"`
	ProjectStats       ProjectStats           `json:"project_stats"`
}

func percent(part, total int64) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}

func (s *DashboardService) accessible(userID uint) *gorm.DB {
	memberOf := s.db.Model(&models.ProjectMembership{}).Select("project_id").Where("user_id = ?", userID)
	return s.db.Model(&models.Project{}).Where(
		s.db.Where("owner_id = ?", userID).Or("id IN (?)", memberOf),
	)
}

func (s *DashboardService) Get(actor Actor) (*DashboardResponse, error) {
	today := scheduling.Today(s.clock)
	resp := &DashboardResponse{
		Projects:           []models.Project{},
		AssignedActivities: []models.Activity{},
		UpcomingEvents:     []models.CalendarEvent{},
	}

	if err := s.accessible(actor.UserID).Preload("Owner").
		Order("updated_at DESC").Limit(dashboardListLimit).
		Find(&resp.Projects).Error; err != nil {
		return nil, err
	}

	if err := s.db.Preload("Project").Preload("Discipline").Preload("Zone").
		Where("assignee_id = ?", actor.UserID).
		Order("due_on ASC").Limit(dashboardListLimit).
		Find(&resp.AssignedActivities).Error; err != nil {
		return nil, err
	}

	startOfToday := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, s.clock.Now().Location())
	if err := s.db.Where("user_id = ? AND start_at >= ?", actor.UserID, startOfToday).
		Order("start_at").Limit(dashboardListLimit).
		Find(&resp.UpcomingEvents).Error; err != nil {
		return nil, err
	}

	stats, err := s.activityStats(actor.UserID, today)
	if err != nil {
		return nil, err
	}
	resp.ActivityStats = *stats

	projectStats, err := s.projectStats(actor.UserID)
	if err != nil {
		return nil, err
	}
	resp.ProjectStats = *projectStats
	return resp, nil
}

func (s *DashboardService) activityStats(userID uint, today time.Time) (*ActivityStats, error) {
	assigned := func() *gorm.DB {
		return s.db.Model(&models.Activity{}).Where("assignee_id = ?", userID)
	}

	var stats ActivityStats
	if err := assigned().Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	if err := assigned().Where("is_done = ?", true).Count(&stats.Done).Error; err != nil {
		return nil, err
	}
	if err := assigned().Where("due_on < ? AND is_done = ?", today, false).Count(&stats.Overdue).Error; err != nil {
		return nil, err
	}
	if err := assigned().Where("due_on >= ? AND due_on <= ?", today, scheduling.AddDays(today, upcomingWindowDays)).
		Count(&stats.Upcoming).Error; err != nil {
		return nil, err
	}
	stats.DonePct = percent(stats.Done, stats.Total)
	stats.OverduePct = percent(stats.Overdue, stats.Total)
	return &stats, nil
}

func (s *DashboardService) projectStats(userID uint) (*ProjectStats, error) {
	var stats ProjectStats
	if err := s.accessible(userID).Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.Project{}).Where("owner_id = ?", userID).Count(&stats.Owned).Error; err != nil {
		return nil, err
	}
	withOpenWork := s.db.Model(&models.Activity{}).Select("project_id").Where("is_done = ?", false)
	if err := s.accessible(userID).Where("id IN (?)", withOpenWork).Count(&stats.Active).Error; err != nil {
		return nil, err
	}
	return &stats, nil
}
