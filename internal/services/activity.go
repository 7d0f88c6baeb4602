package services

import (
	"strings"
	"time"

	"github.com/huangang/campy/internal/models"
	"github.com/huangang/campy/internal/scheduling"
	"github.com/huangang/campy/internal/timeline"
	"github.com/huangang/campy/pkg/logger"
	"gorm.io/gorm"
)

const msgInvalidDate = "is not a valid date"

type ActivityService struct {
	db            *gorm.DB
	projects      *ProjectService
	notifications *NotificationService
	clock         scheduling.Clock
}

func NewActivityService(db *gorm.DB, notifications *NotificationService, clock scheduling.Clock) *ActivityService {
	return &ActivityService{
		db:            db,
		projects:      NewProjectService(db),
		notifications: notifications,
		clock:         clock,
	}
}

// ActivityInput is a create or update submission. Nil fields are left
// unchanged; an empty date string or a zero id clears the field.
type ActivityInput struct {
	Title        *string                   `json:"title"`
	Description  *string                   `json:"description"`
	StartOn      *string                   `json:"start_on"`
	DueOn        *string                   `json:"due_on"`
	DurationDays *scheduling.DurationInput `json:"duration_days"`
	IsDone       *bool                     `json:"is_done"`
	DisciplineID *uint                     `json:"discipline_id"`
	ZoneID       *uint                     `json:"zone_id"`
	AssigneeID   *uint                     `json:"assignee_id"`
}

func optionalID(id *uint) *uint {
	if id == nil || *id == 0 {
		return nil
	}
	v := *id
	return &v
}

func parseDateInput(errs *scheduling.FieldErrors, field, raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	d, err := scheduling.ParseDate(raw)
	if err != nil {
		errs.Add(field, msgInvalidDate)
		return nil
	}
	return &d
}

// apply copies the submitted fields onto a and returns the checks the
// scheduler needs plus any parse failures.
func (in *ActivityInput) apply(a *models.Activity) (scheduling.Checks, scheduling.FieldErrors) {
	var checks scheduling.Checks
	var errs scheduling.FieldErrors

	if in.Title != nil {
		a.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		a.Description = *in.Description
	}
	if in.StartOn != nil {
		a.StartOn = parseDateInput(&errs, "start_on", *in.StartOn)
	}
	if in.DueOn != nil {
		a.DueOn = parseDateInput(&errs, "due_on", *in.DueOn)
	}
	if in.DurationDays != nil {
		days, problem := in.DurationDays.Days()
		a.DurationDays = days
		checks.DurationProblem = problem
	}
	if in.IsDone != nil {
		a.IsDone = *in.IsDone
	}
	if in.DisciplineID != nil {
		a.DisciplineID = optionalID(in.DisciplineID)
	}
	if in.ZoneID != nil {
		a.ZoneID = optionalID(in.ZoneID)
	}
	if in.AssigneeID != nil {
		a.AssigneeID = optionalID(in.AssigneeID)
	}
	return checks, errs
}

// prepare runs defaults, derivation and validation against the project's
// assignable members.
func (s *ActivityService) prepare(db *gorm.DB, a *models.Activity, project *models.Project, checks scheduling.Checks, parseErrs scheduling.FieldErrors) error {
	scheduling.ApplyDefaults(a, s.clock)

	ids, err := AssignableIDs(db, project)
	if err != nil {
		return err
	}
	checks.AssignableIDs = ids

	errs := scheduling.Prepare(a, checks)
	if !parseErrs.Empty() {
		merged := append(scheduling.FieldErrors{}, parseErrs...)
		for _, fe := range errs {
			if len(parseErrs.On(fe.Field)) == 0 {
				merged = append(merged, fe)
			}
		}
		errs = merged
	}
	return newValidationError(errs)
}

// Create adds an activity to a project the caller manages.
func (s *ActivityService) Create(actor Actor, projectID uint, in *ActivityInput) (*models.Activity, error) {
	project, err := s.projects.Authorize(actor, projectID, canManage)
	if err != nil {
		return nil, err
	}

	a := &models.Activity{ProjectID: project.ID}
	checks, parseErrs := in.apply(a)
	if err := s.prepare(s.db, a, project, checks, parseErrs); err != nil {
		return nil, err
	}
	if err := s.db.Create(a).Error; err != nil {
		return nil, err
	}
	a.Project = project

	s.notifyAssigned(actor, a)
	logger.Info().Uint("project_id", project.ID).Uint("activity_id", a.ID).Msg("activity created")
	return s.load(a.ID)
}

func (s *ActivityService) load(id uint) (*models.Activity, error) {
	var a models.Activity
	if err := s.db.Preload("Project.Owner").Preload("Assignee").Preload("Discipline").Preload("Zone").
		First(&a, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

func (s *ActivityService) Get(actor Actor, id uint) (*models.Activity, error) {
	a, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if !actor.Authz.CanViewActivity(a, actor.UserID) {
		return nil, ErrForbidden
	}
	return a, nil
}

func (s *ActivityService) Update(actor Actor, id uint, in *ActivityInput) (*models.Activity, error) {
	a, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if !actor.Authz.CanManageProject(a.Project, actor.UserID) {
		return nil, ErrForbidden
	}

	previousAssignee := a.AssigneeID
	checks, parseErrs := in.apply(a)
	if err := s.prepare(s.db, a, a.Project, checks, parseErrs); err != nil {
		return nil, err
	}
	if err := s.save(a); err != nil {
		return nil, err
	}

	reassigned := !sameID(previousAssignee, a.AssigneeID)
	if reassigned {
		s.notifyAssigned(actor, a)
	}
	s.notifyUpdated(actor, a, reassigned)
	return s.load(a.ID)
}

func (s *ActivityService) save(a *models.Activity) error {
	return s.db.Model(&models.Activity{ID: a.ID}).Updates(map[string]interface{}{
		"title":         a.Title,
		"description":   a.Description,
		"is_done":       a.IsDone,
		"start_on":      a.StartOn,
		"due_on":        a.DueOn,
		"duration_days": a.DurationDays,
		"discipline_id": a.DisciplineID,
		"zone_id":       a.ZoneID,
		"assignee_id":   a.AssigneeID,
	}).Error
}

func sameID(a, b *uint) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// ToggleDone flips is_done for anyone allowed to update the status.
func (s *ActivityService) ToggleDone(actor Actor, id uint) (*models.Activity, error) {
	a, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if !actor.Authz.CanUpdateActivityStatus(a, actor.UserID) {
		return nil, ErrForbidden
	}
	a.IsDone = !a.IsDone
	if err := s.db.Model(&models.Activity{ID: a.ID}).Update("is_done", a.IsDone).Error; err != nil {
		return nil, err
	}
	return a, nil
}

// Delete removes an activity with its comments and reactions.
func (s *ActivityService) Delete(actor Actor, id uint) error {
	a, err := s.load(id)
	if err != nil {
		return err
	}
	if !actor.Authz.CanManageProject(a.Project, actor.UserID) {
		return ErrForbidden
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		selected := tx.Model(&models.Activity{}).Select("id").Where("id = ?", a.ID)
		if err := deleteActivityChildren(tx, selected); err != nil {
			return err
		}
		return tx.Delete(&models.Activity{}, a.ID).Error
	})
}

type ListActivitiesRequest struct {
	Status       string `form:"status" binding:"omitempty,oneof=all active done"`
	DisciplineID uint   `form:"discipline_id"`
	ZoneID       uint   `form:"zone_id"`
	AssigneeID   uint   `form:"assignee_id"`
}

// List returns a project's activities ordered by start, then due date.
func (s *ActivityService) List(actor Actor, projectID uint, req *ListActivitiesRequest) ([]models.Activity, error) {
	project, err := s.projects.Authorize(actor, projectID, canAccess)
	if err != nil {
		return nil, err
	}

	query := s.db.Preload("Assignee").Preload("Discipline").Preload("Zone").
		Where("project_id = ?", project.ID)
	switch req.Status {
	case "active":
		query = query.Where("is_done = ?", false)
	case "done":
		query = query.Where("is_done = ?", true)
	}
	if req.DisciplineID != 0 {
		query = query.Where("discipline_id = ?", req.DisciplineID)
	}
	if req.ZoneID != 0 {
		query = query.Where("zone_id = ?", req.ZoneID)
	}
	if req.AssigneeID != 0 {
		query = query.Where("assignee_id = ?", req.AssigneeID)
	}

	activities := []models.Activity{}
	err = query.Order("start_on ASC, due_on ASC, created_at DESC").Find(&activities).Error
	return activities, err
}

// Assigned lists the caller's activities, open ones first by due date.
func (s *ActivityService) Assigned(actor Actor) ([]models.Activity, error) {
	activities := []models.Activity{}
	err := s.db.Preload("Project").Preload("Discipline").Preload("Zone").
		Where("assignee_id = ?", actor.UserID).
		Order("is_done ASC, due_on ASC, start_on ASC").
		Find(&activities).Error
	return activities, err
}

// RescheduleRequest moves an activity by date or by a percentage offset
// along the project's Gantt range.
type RescheduleRequest struct {
	StartOn       string   `json:"start_on"`
	OffsetPercent *float64 `json:"offset_percent"`
	Padded        bool     `json:"padded"`
}

func (s *ActivityService) Reschedule(actor Actor, id uint, req *RescheduleRequest) (*models.Activity, error) {
	a, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if !actor.Authz.CanManageProject(a.Project, actor.UserID) {
		return nil, ErrForbidden
	}

	var start time.Time
	switch {
	case req.OffsetPercent != nil:
		r, err := s.projectRange(a.ProjectID, req.Padded)
		if err != nil {
			return nil, err
		}
		start = timeline.OffsetToDate(*req.OffsetPercent, r)
	case req.StartOn != "":
		d, err := scheduling.ParseDate(req.StartOn)
		if err != nil {
			return nil, fieldError("start_on", msgInvalidDate)
		}
		start = d
	default:
		return nil, fieldError("start_on", scheduling.MsgBlank)
	}

	scheduling.Reschedule(a, start)
	if err := newValidationError(scheduling.Validate(a, scheduling.Checks{})); err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.Activity{ID: a.ID}).Updates(map[string]interface{}{
		"start_on": a.StartOn,
		"due_on":   a.DueOn,
	}).Error; err != nil {
		return nil, err
	}
	return a, nil
}

func (s *ActivityService) projectRange(projectID uint, padded bool) (timeline.Range, error) {
	var activities []models.Activity
	if err := s.db.Select("id", "start_on", "due_on").Where("project_id = ?", projectID).Find(&activities).Error; err != nil {
		return timeline.Range{}, err
	}
	r := timeline.ComputeProjectRange(activities, scheduling.Today(s.clock))
	if padded {
		r = timeline.Padded(r)
	}
	return r, nil
}

func (s *ActivityService) notifyAssigned(actor Actor, a *models.Activity) {
	if a.AssigneeID == nil {
		return
	}
	s.notifications.NotifyEach([]uint{*a.AssigneeID}, NotifyParams{
		ActorID:  &actor.UserID,
		Target:   models.ActivityTarget(a.ID),
		Action:   models.ActionActivityAssigned,
		Metadata: activityMeta(a, a.Project.Name),
	})
}

// notifyUpdated tells the assignee and the owner. A new assignee already
// got an assignment notification.
func (s *ActivityService) notifyUpdated(actor Actor, a *models.Activity, reassigned bool) {
	var recipients []uint
	if a.AssigneeID != nil && !reassigned {
		recipients = append(recipients, *a.AssigneeID)
	}
	recipients = append(recipients, a.Project.OwnerID)
	s.notifications.NotifyEach(recipients, NotifyParams{
		ActorID:  &actor.UserID,
		Target:   models.ActivityTarget(a.ID),
		Action:   models.ActionActivityUpdated,
		Metadata: activityMeta(a, a.Project.Name),
	})
}
