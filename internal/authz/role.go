// Package authz resolves a user's role on a project and answers capability
// questions about projects, activities and messaging.
package authz

import (
	"strings"

	"github.com/huangang/campy/internal/models"
)

// Role is a user's effective role on one project.
type Role string

const (
	// RoleNone means neither owner nor member. It is not observer.
	RoleNone          Role = ""
	RoleObserver      Role = models.MemberRoleObserver
	RoleSubcontractor Role = models.MemberRoleSubcontractor
	RoleContributor   Role = models.MemberRoleContributor
	RoleOwner         Role = "owner"
)

// MembershipRoles are the roles a membership row may carry.
var MembershipRoles = []Role{RoleContributor, RoleSubcontractor, RoleObserver}

// ParseMembershipRole accepts a stored membership role, case-insensitively.
// Owner is derived and never accepted here.
func ParseMembershipRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	for _, m := range MembershipRoles {
		if r == m {
			return r, true
		}
	}
	return RoleNone, false
}

// Rank orders roles; RoleNone ranks 0.
func (r Role) Rank() int {
	switch r {
	case RoleOwner:
		return 4
	case RoleContributor:
		return 3
	case RoleSubcontractor:
		return 2
	case RoleObserver:
		return 1
	default:
		return 0
	}
}

// Valid reports whether r grants any access at all.
func (r Role) Valid() bool {
	return r.Rank() > 0
}

func (r Role) AtLeast(other Role) bool {
	return r.Rank() >= other.Rank()
}

func (r Role) String() string {
	if r == RoleNone {
		return "none"
	}
	return string(r)
}

func (r Role) CanManageProject() bool {
	return r == RoleOwner || r == RoleContributor
}

func (r Role) CanBeAssigned() bool {
	return r == RoleOwner || r == RoleContributor || r == RoleSubcontractor
}

// CanComment covers both the any-activity and self-assigned cases.
func (r Role) CanComment(selfAssigned bool) bool {
	if r.CanManageProject() {
		return true
	}
	return r == RoleSubcontractor && selfAssigned
}

// CanToggleDone follows the same rule as CanComment.
func (r Role) CanToggleDone(selfAssigned bool) bool {
	return r.CanComment(selfAssigned)
}

func (r Role) CanMessage() bool {
	return r == RoleOwner || r == RoleContributor || r == RoleSubcontractor
}

func (r Role) CanView() bool {
	return r.Valid()
}

// CanAccessFiles gates attachments; observers are read-only on records only.
func (r Role) CanAccessFiles() bool {
	return r == RoleOwner || r == RoleContributor || r == RoleSubcontractor
}
