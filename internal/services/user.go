package services

import (
	"errors"
	"strings"
	"time"

	"github.com/huangang/campy/internal/models"
	"github.com/huangang/campy/internal/scheduling"
	"gorm.io/gorm"
)

const onlineWindow = 10 * time.Minute

var themes = map[string]bool{"light": true, "dark": true}

type UserService struct {
	db    *gorm.DB
	clock scheduling.Clock
}

func NewUserService(db *gorm.DB, clock scheduling.Clock) *UserService {
	return &UserService{db: db, clock: clock}
}

// UpdateSettingsRequest changes only the fields that are set.
type UpdateSettingsRequest struct {
	Username           *string `json:"username"`
	PreferredTheme     *string `json:"preferred_theme"`
	EmailNotifications *bool   `json:"email_notifications"`
	InAppNotifications *bool   `json:"in_app_notifications"`
	SMSNotifications   *bool   `json:"sms_notifications"`
	PhoneNumber        *string `json:"phone_number"`
	DailyDigest        *bool   `json:"daily_digest"`
	DigestTime         *string `json:"digest_time"`
}

func (s *UserService) Get(userID uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// UpdateSettings validates and saves the caller's own settings.
func (s *UserService) UpdateSettings(userID uint, req *UpdateSettingsRequest) (*models.User, error) {
	user, err := s.Get(userID)
	if err != nil {
		return nil, err
	}

	var fields scheduling.FieldErrors
	updates := map[string]interface{}{}

	if req.Username != nil {
		username := models.NormalizeUsername(*req.Username)
		if msg := ValidateUsername(username); msg != "" {
			fields.Add("username", msg)
		}
		updates["username"] = username
	}
	if req.PreferredTheme != nil {
		theme := strings.ToLower(strings.TrimSpace(*req.PreferredTheme))
		if !themes[theme] {
			fields.Add("preferred_theme", msgNotInList)
		}
		updates["preferred_theme"] = theme
	}
	if req.DigestTime != nil {
		t, err := time.Parse("15:04", strings.TrimSpace(*req.DigestTime))
		if err != nil {
			fields.Add("digest_time", "must be formatted as HH:MM")
		} else {
			updates["digest_time"] = t.Format("15:04")
		}
	}
	phone := user.PhoneNumber
	if req.PhoneNumber != nil {
		phone = strings.TrimSpace(*req.PhoneNumber)
		updates["phone_number"] = phone
	}
	sms := user.SMSNotifications
	if req.SMSNotifications != nil {
		sms = *req.SMSNotifications
		updates["sms_notifications"] = sms
	}
	if sms && phone == "" {
		fields.Add("phone_number", "is required for SMS notifications")
	}
	if req.EmailNotifications != nil {
		updates["email_notifications"] = *req.EmailNotifications
	}
	if req.InAppNotifications != nil {
		updates["in_app_notifications"] = *req.InAppNotifications
	}
	if req.DailyDigest != nil {
		updates["daily_digest"] = *req.DailyDigest
	}
	if err := newValidationError(fields); err != nil {
		return nil, err
	}

	if len(updates) > 0 {
		if err := s.db.Model(user).Updates(updates).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil, ErrUsernameTaken
			}
			return nil, err
		}
	}
	return s.Get(userID)
}

// Profile is another user's page as seen by the caller.
type Profile struct {
	User           *models.User      `json:"user"`
	Own            bool              `json:"own"`
	Online         bool              `json:"online"`
	LastSeenAt     time.Time         `json:"last_seen_at"`
	CanMessage     bool              `json:"can_message"`
	SharedProjects []models.Project  `json:"shared_projects"`
	OpenActivities []models.Activity `json:"open_activities"`
}

// Profile is visible to the user themselves and to their teammates.
func (s *UserService) Profile(actor Actor, userID uint) (*Profile, error) {
	user, err := s.Get(userID)
	if err != nil {
		return nil, err
	}
	own := userID == actor.UserID
	canMessage := actor.Authz.CanMessageUser(userID, actor.UserID)
	if !own && !canMessage {
		return nil, ErrForbidden
	}

	lastSeen := user.UpdatedAt
	if user.LastLogin != nil && user.LastLogin.After(lastSeen) {
		lastSeen = *user.LastLogin
	}
	profile := &Profile{
		User:       user,
		Own:        own,
		Online:     s.clock.Now().Sub(lastSeen) < onlineWindow,
		LastSeenAt: lastSeen,
		CanMessage: canMessage,
	}

	visible := accessibleProjectIDs(s.db, actor.UserID)
	targetOf := accessibleProjectIDs(s.db, userID)

	profile.SharedProjects = []models.Project{}
	if err := s.db.Preload("Owner").
		Where("id IN (?) AND id IN (?)", visible, targetOf).
		Order("name").
		Find(&profile.SharedProjects).Error; err != nil {
		return nil, err
	}

	profile.OpenActivities = []models.Activity{}
	if err := s.db.Preload("Project").Preload("Discipline").Preload("Zone").
		Where("assignee_id = ? AND is_done = ? AND project_id IN (?)", userID, false, visible).
		Order("due_on IS NULL, due_on, start_on IS NULL, start_on, created_at").
		Find(&profile.OpenActivities).Error; err != nil {
		return nil, err
	}
	return profile, nil
}

// accessibleProjectIDs selects the projects userID owns or belongs to.
func accessibleProjectIDs(db *gorm.DB, userID uint) *gorm.DB {
	memberOf := db.Model(&models.ProjectMembership{}).Select("project_id").Where("user_id = ?", userID)
	return db.Model(&models.Project{}).Select("id").Where("owner_id = ? OR id IN (?)", userID, memberOf)
}

// Delete removes the account and everything it owns. Activities assigned
// to the user in other projects are unassigned.
func (s *UserService) Delete(userID uint) error {
	if _, err := s.Get(userID); err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		var owned []uint
		if err := tx.Model(&models.Project{}).Where("owner_id = ?", userID).Pluck("id", &owned).Error; err != nil {
			return err
		}
		for _, id := range owned {
			if err := deleteProjectTx(tx, id); err != nil {
				return err
			}
		}

		if err := tx.Model(&models.Activity{}).Where("assignee_id = ?", userID).
			Update("assignee_id", nil).Error; err != nil {
			return err
		}

		// Authored comments go with their replies.
		authored := tx.Model(&models.Comment{}).Select("id").Where("author_id = ?", userID)
		threads := tx.Model(&models.Comment{}).Select("id").Where("author_id = ? OR parent_id IN (?)", userID, authored)
		var commentIDs []uint
		if err := threads.Pluck("id", &commentIDs).Error; err != nil {
			return err
		}
		if len(commentIDs) > 0 {
			if err := tx.Where("comment_id IN ?", commentIDs).Delete(&models.CommentReaction{}).Error; err != nil {
				return err
			}
			if err := tx.Where("notifiable_kind = ? AND notifiable_id IN ?", models.NotifiableComment, commentIDs).
				Delete(&models.Notification{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", commentIDs).Delete(&models.Comment{}).Error; err != nil {
				return err
			}
		}

		messageIDs := tx.Model(&models.Message{}).Select("id").Where("user_id = ?", userID)
		if err := tx.Where("notifiable_kind = ? AND notifiable_id IN (?)", models.NotifiableMessage, messageIDs).
			Delete(&models.Notification{}).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Notification{}).Where("actor_id = ?", userID).
			Update("actor_id", nil).Error; err != nil {
			return err
		}
		owns := []interface{}{
			&models.Message{},
			&models.ConversationMembership{},
			&models.ProjectMembership{},
			&models.CommentReaction{},
			&models.CalendarEvent{},
			&models.RefreshToken{},
		}
		for _, model := range owns {
			if err := tx.Where("user_id = ?", userID).Delete(model).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("recipient_id = ?", userID).Delete(&models.Notification{}).Error; err != nil {
			return err
		}
		if err := tx.Where("invited_by_id = ?", userID).Delete(&models.ProjectInvitation{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.User{}, userID).Error
	})
}
