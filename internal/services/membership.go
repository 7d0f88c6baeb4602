package services

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/huangang/campy/internal/authz"
	"github.com/huangang/campy/internal/models"
	"github.com/huangang/campy/internal/scheduling"
	"github.com/huangang/campy/internal/utils"
	"github.com/huangang/campy/pkg/logger"
	"gorm.io/gorm"
)

const invitationTokenBytes = 24

// MembershipService manages project members and pending invitations.
type MembershipService struct {
	db            *gorm.DB
	projects      *ProjectService
	notifications *NotificationService
	queue         DeliveryQueue
	baseURL       string
}

func NewMembershipService(db *gorm.DB, notifications *NotificationService, queue DeliveryQueue, baseURL string) *MembershipService {
	return &MembershipService{
		db:            db,
		projects:      NewProjectService(db),
		notifications: notifications,
		queue:         queue,
		baseURL:       baseURL,
	}
}

type AddMemberRequest struct {
	Email string `json:"email" binding:"required,email"`
	Role  string `json:"role"`
}

type UpdateMemberRequest struct {
	Role string `json:"role" binding:"required"`
}

// AddMemberResult holds either the new membership or, for an unknown
// email, the invitation created instead.
type AddMemberResult struct {
	Membership *models.ProjectMembership `json:"membership,omitempty"`
	Invitation *models.ProjectInvitation `json:"invitation,omitempty"`
}

func parseRole(s string) (authz.Role, error) {
	if s == "" {
		return authz.RoleContributor, nil
	}
	role, ok := authz.ParseMembershipRole(s)
	if !ok {
		return authz.RoleNone, ErrInvalidRole
	}
	return role, nil
}

// AddMember adds an existing user by email, or invites the address when no
// account exists.
func (s *MembershipService) AddMember(actor Actor, projectID uint, req *AddMemberRequest) (*AddMemberResult, error) {
	project, err := s.projects.Authorize(actor, projectID, canManage)
	if err != nil {
		return nil, err
	}
	role, err := parseRole(req.Role)
	if err != nil {
		return nil, err
	}
	email := models.NormalizeEmail(req.Email)
	if email == "" {
		return nil, fieldError("email", scheduling.MsgBlank)
	}

	var user models.User
	err = s.db.Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		invitation, err := s.invite(actor, project, email, role)
		if err != nil {
			return nil, err
		}
		return &AddMemberResult{Invitation: invitation}, nil
	}
	if err != nil {
		return nil, err
	}

	if user.ID == project.OwnerID {
		return nil, ErrAlreadyMember
	}
	membership := &models.ProjectMembership{ProjectID: project.ID, UserID: user.ID, Role: string(role)}
	if err := s.db.Create(membership).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAlreadyMember
		}
		return nil, err
	}
	membership.User = &user

	s.notifications.NotifyEach([]uint{user.ID}, NotifyParams{
		ActorID:  &actor.UserID,
		Target:   models.ProjectTarget(project.ID),
		Action:   models.ActionProjectInvitation,
		Metadata: map[string]interface{}{MetaProjectName: project.Name},
	})
	logger.Info().Uint("project_id", project.ID).Uint("user_id", user.ID).Str("role", string(role)).Msg("member added")
	return &AddMemberResult{Membership: membership}, nil
}

func (s *MembershipService) invite(actor Actor, project *models.Project, email string, role authz.Role) (*models.ProjectInvitation, error) {
	token, err := utils.RandomToken(invitationTokenBytes)
	if err != nil {
		return nil, err
	}
	invitation := &models.ProjectInvitation{
		ProjectID:   project.ID,
		InvitedByID: actor.UserID,
		Email:       email,
		Token:       token,
		Role:        string(role),
	}
	if err := s.db.Create(invitation).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateInvitation
		}
		return nil, err
	}

	var inviter models.User
	if err := s.db.First(&inviter, actor.UserID).Error; err == nil {
		invitation.InvitedBy = &inviter
	}
	s.sendInvitation(project, invitation)
	return invitation, nil
}

func (s *MembershipService) sendInvitation(project *models.Project, invitation *models.ProjectInvitation) {
	if s.queue == nil {
		return
	}
	task := &DeliveryTask{
		Channel: ChannelEmail,
		To:      invitation.Email,
		Subject: InvitationSubject(project.Name),
		Body:    s.invitationBody(project, invitation),
	}
	if err := s.queue.Enqueue(task); err != nil {
		logger.Error().Err(err).Uint("invitation_id", invitation.ID).Msg("failed to enqueue invitation email")
	}
}

func InvitationSubject(projectName string) string {
	return fmt.Sprintf("You're invited to join %s on Campy", projectName)
}

func (s *MembershipService) invitationBody(project *models.Project, invitation *models.ProjectInvitation) string {
	signup := s.baseURL + "/register?email=" + url.QueryEscape(invitation.Email)
	return fmt.Sprintf("%s invited you to join %s as %s.\n\nCreate your account to accept:\n%s\n",
		invitation.InvitedBy.DisplayName(), project.Name, invitation.Role, signup)
}

func (s *MembershipService) findMembership(projectID, membershipID uint) (*models.ProjectMembership, error) {
	var m models.ProjectMembership
	if err := s.db.Preload("User").Where("project_id = ?", projectID).First(&m, membershipID).Error; err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

func (s *MembershipService) UpdateRole(actor Actor, projectID, membershipID uint, req *UpdateMemberRequest) (*models.ProjectMembership, error) {
	if _, err := s.projects.Authorize(actor, projectID, canManage); err != nil {
		return nil, err
	}
	role, ok := authz.ParseMembershipRole(req.Role)
	if !ok {
		return nil, ErrInvalidRole
	}
	m, err := s.findMembership(projectID, membershipID)
	if err != nil {
		return nil, err
	}
	if err := s.db.Model(m).Update("role", string(role)).Error; err != nil {
		return nil, err
	}
	m.Role = string(role)
	return m, nil
}

// RemoveMember deletes the membership. Activities stay assigned.
func (s *MembershipService) RemoveMember(actor Actor, projectID, membershipID uint) error {
	if _, err := s.projects.Authorize(actor, projectID, canManage); err != nil {
		return err
	}
	m, err := s.findMembership(projectID, membershipID)
	if err != nil {
		return err
	}
	if err := s.db.Delete(m).Error; err != nil {
		return err
	}
	logger.Info().Uint("project_id", projectID).Uint("user_id", m.UserID).Msg("member removed")
	return nil
}

func (s *MembershipService) PendingInvitations(actor Actor, projectID uint) ([]models.ProjectInvitation, error) {
	if _, err := s.projects.Authorize(actor, projectID, canManage); err != nil {
		return nil, err
	}
	var invitations []models.ProjectInvitation
	err := s.db.Preload("InvitedBy").
		Where("project_id = ? AND accepted_at IS NULL", projectID).
		Order("created_at DESC").
		Find(&invitations).Error
	return invitations, err
}

func (s *MembershipService) CancelInvitation(actor Actor, projectID, invitationID uint) error {
	if _, err := s.projects.Authorize(actor, projectID, canManage); err != nil {
		return err
	}
	res := s.db.Where("project_id = ?", projectID).Delete(&models.ProjectInvitation{}, invitationID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// AcceptPendingInvitations turns every pending invitation for the user's
// email into a membership and tells each project owner.
func (s *MembershipService) AcceptPendingInvitations(user *models.User) (int, error) {
	var invitations []models.ProjectInvitation
	if err := s.db.Preload("Project").
		Where("email = ? AND accepted_at IS NULL", models.NormalizeEmail(user.Email)).
		Find(&invitations).Error; err != nil {
		return 0, err
	}
	if len(invitations) == 0 {
		return 0, nil
	}

	var joined []models.ProjectInvitation
	err := s.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		for _, inv := range invitations {
			if inv.Project == nil {
				continue
			}
			if inv.Project.OwnerID != user.ID {
				role, ok := authz.ParseMembershipRole(inv.Role)
				if !ok {
					role = authz.RoleContributor
				}
				var m models.ProjectMembership
				if err := tx.Where(models.ProjectMembership{ProjectID: inv.ProjectID, UserID: user.ID}).
					Attrs(models.ProjectMembership{Role: string(role)}).
					FirstOrCreate(&m).Error; err != nil {
					return err
				}
			}
			if err := tx.Model(&models.ProjectInvitation{}).Where("id = ?", inv.ID).Update("accepted_at", now).Error; err != nil {
				return err
			}
			joined = append(joined, inv)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, inv := range joined {
		s.notifications.NotifyEach([]uint{inv.Project.OwnerID}, NotifyParams{
			ActorID:  &user.ID,
			Target:   models.ProjectTarget(inv.ProjectID),
			Action:   models.ActionMemberJoined,
			Metadata: map[string]interface{}{MetaProjectName: inv.Project.Name},
		})
	}
	return len(joined), nil
}
