package services

import (
	"errors"
	"regexp"
	"strings"

	"github.com/huangang/campy/internal/models"
	"github.com/huangang/campy/internal/scheduling"
	"gorm.io/gorm"
)

const msgNotInList = "is not included in the list"

var mentionPattern = regexp.MustCompile(`(?:^|[^\w@])@([a-zA-Z0-9_.-]{1,30})`)

// Mentions returns the distinct lowercased usernames mentioned in body.
func Mentions(body string) []string {
	seen := map[string]bool{}
	var out []string
	for _, m := range mentionPattern.FindAllStringSubmatch(body, -1) {
		name := strings.ToLower(strings.TrimRight(m[1], "."))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

type CommentService struct {
	db            *gorm.DB
	notifications *NotificationService
}

func NewCommentService(db *gorm.DB, notifications *NotificationService) *CommentService {
	return &CommentService{db: db, notifications: notifications}
}

type CreateCommentRequest struct {
	Body     string `json:"body" binding:"required"`
	ParentID *uint  `json:"parent_id"`
}

func (s *CommentService) loadActivity(id uint) (*models.Activity, error) {
	var a models.Activity
	if err := s.db.Preload("Project").First(&a, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

// List returns top-level comments newest first, each with its replies
// oldest first.
func (s *CommentService) List(actor Actor, activityID uint) ([]models.Comment, error) {
	a, err := s.loadActivity(activityID)
	if err != nil {
		return nil, err
	}
	if !actor.Authz.CanViewActivity(a, actor.UserID) {
		return nil, ErrForbidden
	}

	comments := []models.Comment{}
	err = s.db.Preload("Author").Preload("Reactions").
		Preload("Replies", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Preload("Replies.Author").Preload("Replies.Reactions").
		Where("activity_id = ? AND parent_id IS NULL", a.ID).
		Order("created_at DESC, id DESC").
		Find(&comments).Error
	return comments, err
}

func (s *CommentService) Create(actor Actor, activityID uint, req *CreateCommentRequest) (*models.Comment, error) {
	a, err := s.loadActivity(activityID)
	if err != nil {
		return nil, err
	}
	if !actor.Authz.CanCommentOnActivity(a, actor.UserID) {
		return nil, ErrForbidden
	}

	body := strings.TrimSpace(req.Body)
	if body == "" {
		return nil, fieldError("body", scheduling.MsgBlank)
	}

	comment := &models.Comment{ActivityID: a.ID, AuthorID: actor.UserID, Body: body}
	if req.ParentID != nil && *req.ParentID != 0 {
		var parent models.Comment
		if err := s.db.Select("id", "activity_id", "parent_id").First(&parent, *req.ParentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrInvalidParent
			}
			return nil, err
		}
		if parent.ActivityID != a.ID {
			return nil, ErrInvalidParent
		}
		// Replies to a reply attach to its thread root.
		if parent.ParentID != nil {
			comment.ParentID = parent.ParentID
		} else {
			comment.ParentID = &parent.ID
		}
	}

	if err := s.db.Create(comment).Error; err != nil {
		return nil, err
	}
	var author models.User
	if err := s.db.First(&author, actor.UserID).Error; err == nil {
		comment.Author = &author
	}

	s.notifyComment(actor, a, comment)
	return comment, nil
}

// notifyComment sends mentions first, then tells the assignee and owner
// unless they were already mentioned.
func (s *CommentService) notifyComment(actor Actor, a *models.Activity, c *models.Comment) {
	meta := activityMeta(a, a.Project.Name)

	mentioned := map[uint]bool{}
	if names := Mentions(c.Body); len(names) > 0 {
		var users []models.User
		s.db.Where("username IN ?", names).Find(&users)
		var ids []uint
		for i := range users {
			if actor.Authz.CanViewActivity(a, users[i].ID) {
				ids = append(ids, users[i].ID)
				mentioned[users[i].ID] = true
			}
		}
		s.notifications.NotifyEach(ids, NotifyParams{
			ActorID:  &actor.UserID,
			Target:   models.CommentTarget(c.ID),
			Action:   models.ActionCommentMentioned,
			Metadata: meta,
		})
	}

	var recipients []uint
	if a.AssigneeID != nil && !mentioned[*a.AssigneeID] {
		recipients = append(recipients, *a.AssigneeID)
	}
	if !mentioned[a.Project.OwnerID] {
		recipients = append(recipients, a.Project.OwnerID)
	}
	s.notifications.NotifyEach(recipients, NotifyParams{
		ActorID:  &actor.UserID,
		Target:   models.CommentTarget(c.ID),
		Action:   models.ActionCommentAdded,
		Metadata: meta,
	})
}

// Delete removes a comment with its replies. Managers and the author may
// delete.
func (s *CommentService) Delete(actor Actor, id uint) error {
	var c models.Comment
	if err := s.db.Preload("Activity.Project").First(&c, id).Error; err != nil {
		return notFound(err)
	}
	if c.Activity == nil {
		return ErrNotFound
	}
	if c.AuthorID != actor.UserID && !actor.Authz.CanManageProject(c.Activity.Project, actor.UserID) {
		return ErrForbidden
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		ids := tx.Model(&models.Comment{}).Select("id").Where("id = ? OR parent_id = ?", c.ID, c.ID)
		if err := tx.Where("comment_id IN (?)", ids).Delete(&models.CommentReaction{}).Error; err != nil {
			return err
		}
		if err := tx.Where("notifiable_kind = ? AND notifiable_id IN (?)", models.NotifiableComment, ids).
			Delete(&models.Notification{}).Error; err != nil {
			return err
		}
		if err := tx.Where("parent_id = ?", c.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Comment{}, c.ID).Error
	})
}

type ReactionRequest struct {
	Emoji string `json:"emoji" binding:"required"`
}

// ReactionSummary is the reaction state of one comment after a toggle.
type ReactionSummary struct {
	CommentID uint           `json:"comment_id"`
	Added     bool           `json:"added"`
	Counts    map[string]int `json:"counts"`
	Mine      []string       `json:"mine"`
}

// ToggleReaction adds the caller's reaction, or removes it when present.
func (s *CommentService) ToggleReaction(actor Actor, commentID uint, req *ReactionRequest) (*ReactionSummary, error) {
	if !models.IsReactionEmoji(req.Emoji) {
		return nil, fieldError("emoji", msgNotInList)
	}
	var c models.Comment
	if err := s.db.Preload("Activity.Project").First(&c, commentID).Error; err != nil {
		return nil, notFound(err)
	}
	if c.Activity == nil || !actor.Authz.CanAccessProject(c.Activity.Project, actor.UserID) {
		return nil, ErrForbidden
	}

	res := s.db.Where("comment_id = ? AND user_id = ? AND emoji = ?", c.ID, actor.UserID, req.Emoji).
		Delete(&models.CommentReaction{})
	if res.Error != nil {
		return nil, res.Error
	}
	added := res.RowsAffected == 0
	if added {
		reaction := models.CommentReaction{CommentID: c.ID, UserID: actor.UserID, Emoji: req.Emoji}
		if err := s.db.Create(&reaction).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil, ErrDuplicateReaction
			}
			return nil, err
		}
	}

	summary, err := s.reactionSummary(c.ID, actor.UserID)
	if err != nil {
		return nil, err
	}
	summary.Added = added
	return summary, nil
}

func (s *CommentService) reactionSummary(commentID, userID uint) (*ReactionSummary, error) {
	var reactions []models.CommentReaction
	if err := s.db.Where("comment_id = ?", commentID).Find(&reactions).Error; err != nil {
		return nil, err
	}
	summary := &ReactionSummary{CommentID: commentID, Counts: map[string]int{}, Mine: []string{}}
	for _, r := range reactions {
		summary.Counts[r.Emoji]++
		if r.UserID == userID {
			summary.Mine = append(summary.Mine, r.Emoji)
		}
	}
	return summary, nil
}
