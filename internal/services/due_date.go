package services

import (
	"time"

	"github.com/huangang/campy/internal/models"
	"github.com/huangang/campy/internal/scheduling"
	"github.com/huangang/campy/pkg/logger"
	"gorm.io/gorm"
)

// DueDateChecker notifies assignees of activities coming due or overdue.
type DueDateChecker struct {
	db            *gorm.DB
	notifications *NotificationService
	clock         scheduling.Clock
	reminderDays  []int
}

func NewDueDateChecker(db *gorm.DB, notifications *NotificationService, clock scheduling.Clock, reminderDays []int) *DueDateChecker {
	if len(reminderDays) == 0 {
		reminderDays = []int{1, 3, 7}
	}
	return &DueDateChecker{db: db, notifications: notifications, clock: clock, reminderDays: reminderDays}
}

type DueDateResult struct {
	DueSoon int `json:"due_soon"`
	Overdue int `json:"overdue"`
}

// Run sends at most one due-soon and one overdue notification per activity
// per day.
func (c *DueDateChecker) Run() (*DueDateResult, error) {
	today := scheduling.Today(c.clock)
	now := c.clock.Now()
	dayStart := startOfDay(now)
	result := &DueDateResult{}

	for _, days := range c.reminderDays {
		due := scheduling.AddDays(today, days)
		var activities []models.Activity
		err := c.pending().
			Where("due_on >= ? AND due_on < ?", due, scheduling.AddDays(due, 1)).
			Find(&activities).Error
		if err != nil {
			return result, err
		}
		for i := range activities {
			a := &activities[i]
			if c.notify(a, models.ActionActivityDueSoon, dayStart, map[string]interface{}{MetaDaysUntilDue: days}) {
				result.DueSoon++
			}
		}
	}

	var overdue []models.Activity
	if err := c.pending().Where("due_on < ?", today).Find(&overdue).Error; err != nil {
		return result, err
	}
	for i := range overdue {
		if c.notify(&overdue[i], models.ActionActivityOverdue, dayStart, nil) {
			result.Overdue++
		}
	}

	logger.Info().Int("due_soon", result.DueSoon).Int("overdue", result.Overdue).Msg("due date check finished")
	return result, nil
}

func (c *DueDateChecker) pending() *gorm.DB {
	return c.db.Preload("Project").
		Where("is_done = ? AND assignee_id IS NOT NULL", false).
		Order("id")
}

func (c *DueDateChecker) notify(a *models.Activity, action models.Action, dayStart time.Time, extra map[string]interface{}) bool {
	target := models.ActivityTarget(a.ID)
	done, err := c.notifications.NotifiedSince(target, action, dayStart)
	if err != nil {
		logger.Error().Err(err).Uint("activity_id", a.ID).Msg("dedupe lookup failed")
		return false
	}
	if done {
		return false
	}

	projectName := ""
	if a.Project != nil {
		projectName = a.Project.Name
	}
	meta := activityMeta(a, projectName)
	for k, v := range extra {
		meta[k] = v
	}

	_, err = c.notifications.Notify(NotifyParams{
		RecipientID: *a.AssigneeID,
		Target:      target,
		Action:      action,
		Metadata:    meta,
	})
	if err != nil {
		logger.Error().Err(err).Uint("activity_id", a.ID).Str("action", string(action)).Msg("due date notify failed")
		return false
	}
	return true
}

// startOfDay is midnight of t's calendar day in t's location.
func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
