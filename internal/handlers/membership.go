package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/campy/internal/middleware"
	"github.com/huangang/campy/internal/services"
	"github.com/huangang/campy/pkg/response"
)

type MembershipHandler struct {
	membershipService *services.MembershipService
}

func NewMembershipHandler(membershipService *services.MembershipService) *MembershipHandler {
	return &MembershipHandler{membershipService: membershipService}
}

// Add adds a user by email, or invites the email when no account exists
// POST /api/projects/:id/members
func (h *MembershipHandler) Add(c *gin.Context) {
	projectID, ok := parseID(c, "id", "project")
	if !ok {
		return
	}

	var req services.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.membershipService.AddMember(middleware.GetActor(c), projectID, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Created(c, result)
}

// UpdateRole
// PUT /api/projects/:id/members/:membership_id
func (h *MembershipHandler) UpdateRole(c *gin.Context) {
	projectID, ok := parseID(c, "id", "project")
	if !ok {
		return
	}
	membershipID, ok := parseID(c, "membership_id", "membership")
	if !ok {
		return
	}

	var req services.UpdateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	membership, err := h.membershipService.UpdateRole(middleware.GetActor(c), projectID, membershipID, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, membership)
}

// Remove
// DELETE /api/projects/:id/members/:membership_id
func (h *MembershipHandler) Remove(c *gin.Context) {
	projectID, ok := parseID(c, "id", "project")
	if !ok {
		return
	}
	membershipID, ok := parseID(c, "membership_id", "membership")
	if !ok {
		return
	}

	if err := h.membershipService.RemoveMember(middleware.GetActor(c), projectID, membershipID); err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "member removed successfully"})
}

// Invitations lists pending invitations
// GET /api/projects/:id/invitations
func (h *MembershipHandler) Invitations(c *gin.Context) {
	projectID, ok := parseID(c, "id", "project")
	if !ok {
		return
	}

	invitations, err := h.membershipService.PendingInvitations(middleware.GetActor(c), projectID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, invitations)
}

// CancelInvitation
// DELETE /api/projects/:id/invitations/:invitation_id
func (h *MembershipHandler) CancelInvitation(c *gin.Context) {
	projectID, ok := parseID(c, "id", "project")
	if !ok {
		return
	}
	invitationID, ok := parseID(c, "invitation_id", "invitation")
	if !ok {
		return
	}

	if err := h.membershipService.CancelInvitation(middleware.GetActor(c), projectID, invitationID); err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "invitation cancelled"})
}
