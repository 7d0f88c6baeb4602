package authz

import (
	"context"

	"github.com/huangang/campy/internal/models"
	"github.com/huangang/campy/pkg/logger"
)

// Member is one membership row as seen by the checker.
type Member struct {
	UserID uint
	Role   Role
}

// Team is a project the current user can access, with its owner and members.
type Team struct {
	ProjectID uint
	OwnerID   uint
	Members   []Member
}

// Store loads the membership data the checker needs.
type Store interface {
	MembershipRole(ctx context.Context, projectID, userID uint) (Role, error)
	ProjectOwnerID(ctx context.Context, projectID uint) (uint, error)
	AccessibleTeams(ctx context.Context, userID uint) ([]Team, error)
}

type roleKey struct {
	projectID uint
	userID    uint
}

// Checker answers authorization questions for one request. Role and teammate
// lookups are memoized on the checker, so a new one must be made per request.
// Store failures are logged and answered as denials.
type Checker struct {
	ctx   context.Context
	store Store

	roles     map[roleKey]Role
	owners    map[uint]uint
	teammates map[uint]map[uint]struct{}
}

func NewChecker(ctx context.Context, store Store) *Checker {
	return &Checker{
		ctx:       ctx,
		store:     store,
		roles:     make(map[roleKey]Role),
		owners:    make(map[uint]uint),
		teammates: make(map[uint]map[uint]struct{}),
	}
}

// ResolveRole returns the user's role on project, or RoleNone.
func (c *Checker) ResolveRole(project *models.Project, userID uint) Role {
	if project == nil || project.ID == 0 || userID == 0 {
		return RoleNone
	}
	c.owners[project.ID] = project.OwnerID
	if project.OwnerID == userID {
		return RoleOwner
	}
	return c.memberRole(project.ID, userID)
}

func (c *Checker) memberRole(projectID, userID uint) Role {
	key := roleKey{projectID: projectID, userID: userID}
	if role, ok := c.roles[key]; ok {
		return role
	}

	role, err := c.store.MembershipRole(c.ctx, projectID, userID)
	if err != nil {
		logger.Error().Err(err).Uint("project_id", projectID).Uint("user_id", userID).Msg("membership lookup failed")
		return RoleNone
	}
	if !role.Valid() || role == RoleOwner {
		role = RoleNone
	}
	c.roles[key] = role
	return role
}

// roleForActivity resolves the role on the activity's project, loading the
// project owner when the project is not preloaded.
func (c *Checker) roleForActivity(activity *models.Activity, userID uint) Role {
	if activity == nil || userID == 0 {
		return RoleNone
	}
	if activity.Project != nil && activity.Project.ID == activity.ProjectID {
		return c.ResolveRole(activity.Project, userID)
	}

	ownerID, ok := c.owners[activity.ProjectID]
	if !ok {
		id, err := c.store.ProjectOwnerID(c.ctx, activity.ProjectID)
		if err != nil {
			logger.Error().Err(err).Uint("project_id", activity.ProjectID).Msg("project owner lookup failed")
			return RoleNone
		}
		ownerID = id
		c.owners[activity.ProjectID] = ownerID
	}
	return c.ResolveRole(&models.Project{ID: activity.ProjectID, OwnerID: ownerID}, userID)
}

func (c *Checker) CanManageProject(project *models.Project, userID uint) bool {
	return c.ResolveRole(project, userID).CanManageProject()
}

func (c *Checker) CanAccessProject(project *models.Project, userID uint) bool {
	return c.ResolveRole(project, userID).CanView()
}

func (c *Checker) CanAccessFiles(project *models.Project, userID uint) bool {
	return c.ResolveRole(project, userID).CanAccessFiles()
}

// CanBeAssigned reports whether userID may be an assignee on project.
func (c *Checker) CanBeAssigned(project *models.Project, userID uint) bool {
	return c.ResolveRole(project, userID).CanBeAssigned()
}

func (c *Checker) CanCommentOnActivity(activity *models.Activity, userID uint) bool {
	return c.roleForActivity(activity, userID).CanComment(activity.AssignedTo(userID))
}

func (c *Checker) CanUpdateActivityStatus(activity *models.Activity, userID uint) bool {
	return c.roleForActivity(activity, userID).CanToggleDone(activity.AssignedTo(userID))
}

func (c *Checker) CanViewActivity(activity *models.Activity, userID uint) bool {
	return c.roleForActivity(activity, userID).CanView()
}

// CanMessageUser reports whether targetID is one of currentID's teammates.
func (c *Checker) CanMessageUser(targetID, currentID uint) bool {
	if targetID == 0 || currentID == 0 || targetID == currentID {
		return false
	}
	_, ok := c.Teammates(currentID)[targetID]
	return ok
}

// Teammates returns the set of users currentID may message.
func (c *Checker) Teammates(currentID uint) map[uint]struct{} {
	if set, ok := c.teammates[currentID]; ok {
		return set
	}
	if currentID == 0 {
		return map[uint]struct{}{}
	}

	teams, err := c.store.AccessibleTeams(c.ctx, currentID)
	if err != nil {
		logger.Error().Err(err).Uint("user_id", currentID).Msg("teammate lookup failed")
		return map[uint]struct{}{}
	}

	set := TeammateSet(currentID, teams)
	c.teammates[currentID] = set
	for _, team := range teams {
		c.owners[team.ProjectID] = team.OwnerID
	}
	return set
}

// TeammateSet unions each team's owner and messaging members, minus userID.
func TeammateSet(userID uint, teams []Team) map[uint]struct{} {
	set := make(map[uint]struct{})
	for _, team := range teams {
		set[team.OwnerID] = struct{}{}
		for _, m := range team.Members {
			if m.Role.CanMessage() {
				set[m.UserID] = struct{}{}
			}
		}
	}
	delete(set, userID)
	delete(set, 0)
	return set
}
