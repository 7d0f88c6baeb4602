package services

import (
	"strings"

	"github.com/huangang/campy/internal/authz"
	"github.com/huangang/campy/internal/models"
	"github.com/huangang/campy/internal/scheduling"
	"gorm.io/gorm"
)

type ProjectService struct {
	db *gorm.DB
}

func NewProjectService(db *gorm.DB) *ProjectService {
	return &ProjectService{db: db}
}

type CreateProjectRequest struct {
	Name        string `json:"name" binding:"required,max=255"`
	Description string `json:"description"`
}

type UpdateProjectRequest struct {
	Name        *string `json:"name" binding:"omitempty,max=255"`
	Description *string `json:"description"`
}

// ProjectSummary is a project with the caller's role and progress counts.
type ProjectSummary struct {
	models.Project
	Role          string `json:"role"`
	ActivityCount int64  `json:"activity_count"`
	DoneCount     int64  `json:"done_count"`
}

// TeamMember is one person on a project. The owner has no membership row.
type TeamMember struct {
	User         *models.User `json:"user"`
	Role         string       `json:"role"`
	MembershipID *uint        `json:"membership_id,omitempty"`
}

// Create makes the caller the owner of a new project.
func (s *ProjectService) Create(actor Actor, req *CreateProjectRequest) (*models.Project, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fieldError("name", scheduling.MsgBlank)
	}
	project := models.Project{
		Name:        name,
		Description: req.Description,
		OwnerID:     actor.UserID,
	}
	if err := s.db.Create(&project).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

func (s *ProjectService) load(id uint) (*models.Project, error) {
	var project models.Project
	if err := s.db.Preload("Owner").First(&project, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &project, nil
}

// Get returns a project the caller can access.
func (s *ProjectService) Get(actor Actor, id uint) (*ProjectSummary, error) {
	project, err := s.load(id)
	if err != nil {
		return nil, err
	}
	role := actor.Authz.ResolveRole(project, actor.UserID)
	if !role.CanView() {
		return nil, ErrForbidden
	}
	summaries, err := s.summarize([]models.Project{*project}, map[uint]authz.Role{project.ID: role})
	if err != nil {
		return nil, err
	}
	return &summaries[0], nil
}

// Authorize loads a project and checks it against allowed.
func (s *ProjectService) Authorize(actor Actor, id uint, allowed func(*authz.Checker, *models.Project, uint) bool) (*models.Project, error) {
	project, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if !allowed(actor.Authz, project, actor.UserID) {
		return nil, ErrForbidden
	}
	return project, nil
}

func canManage(c *authz.Checker, p *models.Project, userID uint) bool { return c.CanManageProject(p, userID) }
func canAccess(c *authz.Checker, p *models.Project, userID uint) bool { return c.CanAccessProject(p, userID) }

func (s *ProjectService) Update(actor Actor, id uint, req *UpdateProjectRequest) (*models.Project, error) {
	project, err := s.Authorize(actor, id, canManage)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, fieldError("name", scheduling.MsgBlank)
		}
		updates["name"] = name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if len(updates) > 0 {
		if err := s.db.Model(project).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return s.load(id)
}

// Delete removes the project with its activities, memberships and
// invitations.
func (s *ProjectService) Delete(actor Actor, id uint) error {
	project, err := s.Authorize(actor, id, canManage)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		return deleteProjectTx(tx, project.ID)
	})
}

// deleteProjectTx removes a project and everything hanging off it.
func deleteProjectTx(tx *gorm.DB, projectID uint) error {
	activityIDs := tx.Model(&models.Activity{}).Select("id").Where("project_id = ?", projectID)
	if err := deleteActivityChildren(tx, activityIDs); err != nil {
		return err
	}
	if err := tx.Where("project_id = ?", projectID).Delete(&models.Activity{}).Error; err != nil {
		return err
	}
	if err := tx.Where("project_id = ?", projectID).Delete(&models.ProjectMembership{}).Error; err != nil {
		return err
	}
	if err := tx.Where("project_id = ?", projectID).Delete(&models.ProjectInvitation{}).Error; err != nil {
		return err
	}
	if err := tx.Where("notifiable_kind = ? AND notifiable_id = ?", models.NotifiableProject, projectID).
		Delete(&models.Notification{}).Error; err != nil {
		return err
	}
	return tx.Delete(&models.Project{}, projectID).Error
}

// deleteActivityChildren removes comments, reactions and notifications of
// the selected activities and unlinks their calendar events.
func deleteActivityChildren(tx *gorm.DB, activityIDs *gorm.DB) error {
	commentIDs := tx.Model(&models.Comment{}).Select("id").Where("activity_id IN (?)", activityIDs)
	if err := tx.Where("comment_id IN (?)", commentIDs).Delete(&models.CommentReaction{}).Error; err != nil {
		return err
	}
	if err := tx.Where("notifiable_kind = ? AND notifiable_id IN (?)", models.NotifiableComment, commentIDs).
		Delete(&models.Notification{}).Error; err != nil {
		return err
	}
	if err := tx.Where("activity_id IN (?)", activityIDs).Delete(&models.Comment{}).Error; err != nil {
		return err
	}
	if err := tx.Where("notifiable_kind = ? AND notifiable_id IN (?)", models.NotifiableActivity, activityIDs).
		Delete(&models.Notification{}).Error; err != nil {
		return err
	}
	return tx.Model(&models.CalendarEvent{}).
		Where("activity_id IN (?)", activityIDs).
		Update("activity_id", nil).Error
}

// List returns every project the caller owns or belongs to, newest first.
func (s *ProjectService) List(actor Actor) ([]ProjectSummary, error) {
	memberOf := s.db.Model(&models.ProjectMembership{}).Select("project_id").Where("user_id = ?", actor.UserID)

	var projects []models.Project
	if err := s.db.Preload("Owner").
		Where("owner_id = ?", actor.UserID).
		Or("id IN (?)", memberOf).
		Order("created_at DESC, id DESC").
		Find(&projects).Error; err != nil {
		return nil, err
	}

	roles := make(map[uint]authz.Role, len(projects))
	for i := range projects {
		roles[projects[i].ID] = actor.Authz.ResolveRole(&projects[i], actor.UserID)
	}
	return s.summarize(projects, roles)
}

func (s *ProjectService) summarize(projects []models.Project, roles map[uint]authz.Role) ([]ProjectSummary, error) {
	out := make([]ProjectSummary, len(projects))
	if len(projects) == 0 {
		return out, nil
	}

	ids := make([]uint, len(projects))
	for i, p := range projects {
		ids[i] = p.ID
	}

	var rows []struct {
		ProjectID uint
		Total     int64
		Done      int64
	}
	if err := s.db.Model(&models.Activity{}).
		Select("project_id, COUNT(*) AS total, SUM(CASE WHEN is_done THEN 1 ELSE 0 END) AS done").
		Where("project_id IN ?", ids).
		Group("project_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[uint][2]int64, len(rows))
	for _, r := range rows {
		counts[r.ProjectID] = [2]int64{r.Total, r.Done}
	}

	for i, p := range projects {
		c := counts[p.ID]
		out[i] = ProjectSummary{Project: p, Role: roles[p.ID].String(), ActivityCount: c[0], DoneCount: c[1]}
	}
	return out, nil
}

// Members lists the owner followed by members in join order.
func (s *ProjectService) Members(actor Actor, id uint) ([]TeamMember, error) {
	project, err := s.Authorize(actor, id, canAccess)
	if err != nil {
		return nil, err
	}
	return s.team(project, nil)
}

// AssignableMembers lists the owner, contributors and subcontractors.
func (s *ProjectService) AssignableMembers(actor Actor, id uint) ([]TeamMember, error) {
	project, err := s.Authorize(actor, id, canAccess)
	if err != nil {
		return nil, err
	}
	return s.team(project, func(r authz.Role) bool { return r.CanBeAssigned() })
}

func (s *ProjectService) team(project *models.Project, keep func(authz.Role) bool) ([]TeamMember, error) {
	var memberships []models.ProjectMembership
	if err := s.db.Preload("User").
		Where("project_id = ?", project.ID).
		Order("created_at, id").
		Find(&memberships).Error; err != nil {
		return nil, err
	}

	members := []TeamMember{{User: project.Owner, Role: authz.RoleOwner.String()}}
	for i := range memberships {
		m := &memberships[i]
		role, ok := authz.ParseMembershipRole(m.Role)
		if !ok || (keep != nil && !keep(role)) {
			continue
		}
		members = append(members, TeamMember{User: m.User, Role: role.String(), MembershipID: &m.ID})
	}
	return members, nil
}

// AssignableIDs is the set of users who may be assigned on project.
func AssignableIDs(db *gorm.DB, project *models.Project) (map[uint]struct{}, error) {
	var ids []uint
	if err := db.Model(&models.ProjectMembership{}).
		Where("project_id = ? AND role IN ?", project.ID, []string{models.MemberRoleContributor, models.MemberRoleSubcontractor}).
		Pluck("user_id", &ids).Error; err != nil {
		return nil, err
	}
	set := map[uint]struct{}{project.OwnerID: {}}
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}
