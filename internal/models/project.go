package models

import "time"

// Project groups activities. The owner is never stored as a membership row.
type Project struct {
	ID          uint                `gorm:"primaryKey" json:"id"`
	Name        string              `gorm:"size:255;not null" json:"name"`
	Description string              `gorm:"type:text" json:"description"`
	OwnerID     uint                `gorm:"index;not null" json:"owner_id"`
	Owner       *User               `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Memberships []ProjectMembership `gorm:"foreignKey:ProjectID" json:"memberships,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

func (Project) TableName() string { return "projects" }

// Stored membership roles.
const (
	MemberRoleContributor   = "contributor"
	MemberRoleSubcontractor = "subcontractor"
	MemberRoleObserver      = "observer"
)

// ProjectMembership is a (project, user, role) triple.
type ProjectMembership struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProjectID uint      `gorm:"uniqueIndex:idx_membership_project_user;not null" json:"project_id"`
	Project   *Project  `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	UserID    uint      `gorm:"uniqueIndex:idx_membership_project_user;index;not null" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Role      string    `gorm:"size:20;default:contributor;not null" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ProjectMembership) TableName() string { return "project_memberships" }

// ProjectInvitation is an invite for an email with no account yet.
type ProjectInvitation struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	ProjectID   uint       `gorm:"uniqueIndex:idx_invitation_project_email;not null" json:"project_id"`
	Project     *Project   `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	InvitedByID uint       `gorm:"index;not null" json:"invited_by_id"`
	InvitedBy   *User      `gorm:"foreignKey:InvitedByID" json:"invited_by,omitempty"`
	Email       string     `gorm:"uniqueIndex:idx_invitation_project_email;size:255;not null" json:"email"`
	Token       string     `gorm:"uniqueIndex;size:64;not null" json:"-"`
	Role        string     `gorm:"size:20;default:contributor;not null" json:"role"`
	AcceptedAt  *time.Time `json:"accepted_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (ProjectInvitation) TableName() string { return "project_invitations" }

func (i *ProjectInvitation) Pending() bool {
	return i.AcceptedAt == nil
}
