package authz

import (
	"context"
	"errors"

	"github.com/huangang/campy/internal/models"
	"gorm.io/gorm"
)

// GormStore reads memberships from the database.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// MembershipRole returns RoleNone with a nil error when no row exists.
func (s *GormStore) MembershipRole(ctx context.Context, projectID, userID uint) (Role, error) {
	var m models.ProjectMembership
	err := s.db.WithContext(ctx).
		Select("role").
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return RoleNone, nil
	}
	if err != nil {
		return RoleNone, err
	}
	role, ok := ParseMembershipRole(m.Role)
	if !ok {
		return RoleNone, nil
	}
	return role, nil
}

func (s *GormStore) ProjectOwnerID(ctx context.Context, projectID uint) (uint, error) {
	var p models.Project
	if err := s.db.WithContext(ctx).Select("id", "owner_id").Take(&p, projectID).Error; err != nil {
		return 0, err
	}
	return p.OwnerID, nil
}

// AccessibleTeams lists every project userID owns or belongs to, with all of
// its members. Two queries regardless of project count.
func (s *GormStore) AccessibleTeams(ctx context.Context, userID uint) ([]Team, error) {
	db := s.db.WithContext(ctx)

	memberOf := db.Model(&models.ProjectMembership{}).Select("project_id").Where("user_id = ?", userID)

	var projects []models.Project
	if err := db.Select("id", "owner_id").
		Where("owner_id = ?", userID).
		Or("id IN (?)", memberOf).
		Order("id").
		Find(&projects).Error; err != nil {
		return nil, err
	}
	if len(projects) == 0 {
		return nil, nil
	}

	ids := make([]uint, len(projects))
	teams := make([]Team, len(projects))
	index := make(map[uint]int, len(projects))
	for i, p := range projects {
		ids[i] = p.ID
		teams[i] = Team{ProjectID: p.ID, OwnerID: p.OwnerID}
		index[p.ID] = i
	}

	var rows []models.ProjectMembership
	if err := db.Select("project_id", "user_id", "role").
		Where("project_id IN ?", ids).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		role, ok := ParseMembershipRole(row.Role)
		if !ok {
			continue
		}
		i := index[row.ProjectID]
		teams[i].Members = append(teams[i].Members, Member{UserID: row.UserID, Role: role})
	}
	return teams, nil
}
