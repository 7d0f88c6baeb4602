package services

import (
	"sort"
	"strings"
	"time"

	"github.com/huangang/campy/internal/models"
	"github.com/huangang/campy/internal/scheduling"
	"github.com/huangang/campy/pkg/logger"
	"gorm.io/gorm"
)

// MessagingService runs one-to-one conversations between teammates.
type MessagingService struct {
	db            *gorm.DB
	notifications *NotificationService
	hub           *EventHub
}

func NewMessagingService(db *gorm.DB, notifications *NotificationService, hub *EventHub) *MessagingService {
	return &MessagingService{db: db, notifications: notifications, hub: hub}
}

type StartConversationRequest struct {
	UserID uint `json:"user_id" binding:"required"`
}

type SendMessageRequest struct {
	Body string `json:"body" binding:"required"`
}

// ConversationView is a conversation as seen by one participant.
type ConversationView struct {
	ID          uint            `json:"id"`
	Users       []models.User   `json:"users"`
	LastMessage *models.Message `json:"last_message,omitempty"`
	CanMessage  bool            `json:"can_message"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Teammates lists the users the caller may message, by display name.
func (s *MessagingService) Teammates(actor Actor) ([]models.User, error) {
	set := actor.Authz.Teammates(actor.UserID)
	users := []models.User{}
	if len(set) == 0 {
		return users, nil
	}
	ids := make([]uint, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	if err := s.db.Where("id IN ? AND is_active = ?", ids, true).Find(&users).Error; err != nil {
		return nil, err
	}
	sort.Slice(users, func(i, j int) bool {
		return strings.ToLower(users[i].DisplayName()) < strings.ToLower(users[j].DisplayName())
	})
	return users, nil
}

func (s *MessagingService) forUser(userID uint) *gorm.DB {
	return s.db.Model(&models.ConversationMembership{}).Select("conversation_id").Where("user_id = ?", userID)
}

// List returns the caller's conversations, most recently active first.
func (s *MessagingService) List(actor Actor) ([]ConversationView, error) {
	var conversations []models.Conversation
	if err := s.db.Preload("Memberships.User").
		Where("id IN (?)", s.forUser(actor.UserID)).
		Order("updated_at DESC, id DESC").
		Find(&conversations).Error; err != nil {
		return nil, err
	}

	views := make([]ConversationView, 0, len(conversations))
	for i := range conversations {
		c := &conversations[i]
		view := s.view(actor, c)
		var last models.Message
		if err := s.db.Preload("User").Where("conversation_id = ?", c.ID).
			Order("created_at DESC, id DESC").Limit(1).Find(&last).Error; err != nil {
			return nil, err
		}
		if last.ID != 0 {
			view.LastMessage = &last
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *MessagingService) view(actor Actor, c *models.Conversation) ConversationView {
	view := ConversationView{ID: c.ID, UpdatedAt: c.UpdatedAt, CanMessage: true}
	for _, m := range c.Memberships {
		if m.User != nil {
			view.Users = append(view.Users, *m.User)
		}
		if m.UserID != actor.UserID && !actor.Authz.CanMessageUser(m.UserID, actor.UserID) {
			view.CanMessage = false
		}
	}
	return view
}

func (s *MessagingService) load(actor Actor, id uint) (*models.Conversation, error) {
	var c models.Conversation
	if err := s.db.Preload("Memberships.User").
		Where("id IN (?)", s.forUser(actor.UserID)).
		First(&c, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

// Get returns a conversation with its messages oldest first. Every other
// participant must still be a teammate.
func (s *MessagingService) Get(actor Actor, id uint) (*ConversationView, []models.Message, error) {
	c, err := s.load(actor, id)
	if err != nil {
		return nil, nil, err
	}
	for _, m := range c.Memberships {
		if m.UserID == actor.UserID {
			continue
		}
		if _, ok := actor.Authz.Teammates(actor.UserID)[m.UserID]; !ok {
			return nil, nil, ErrNotTeammate
		}
	}

	messages := []models.Message{}
	if err := s.db.Preload("User").Where("conversation_id = ?", c.ID).
		Order("created_at ASC, id ASC").Find(&messages).Error; err != nil {
		return nil, nil, err
	}
	view := s.view(actor, c)
	return &view, messages, nil
}

// Start returns the existing conversation between the caller and a
// teammate, creating it when there is none.
func (s *MessagingService) Start(actor Actor, req *StartConversationRequest) (*models.Conversation, error) {
	if req.UserID == actor.UserID {
		return nil, ErrSelfMessage
	}
	if !actor.Authz.CanMessageUser(req.UserID, actor.UserID) {
		return nil, ErrNotTeammate
	}

	if c, err := s.between(actor.UserID, req.UserID); err != nil || c != nil {
		return c, err
	}

	c := &models.Conversation{}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(c).Error; err != nil {
			return err
		}
		members := []models.ConversationMembership{
			{ConversationID: c.ID, UserID: actor.UserID},
			{ConversationID: c.ID, UserID: req.UserID},
		}
		return tx.Create(&members).Error
	})
	if err != nil {
		return nil, err
	}
	return s.load(actor, c.ID)
}

// between finds the conversation whose participants are exactly a and b.
func (s *MessagingService) between(a, b uint) (*models.Conversation, error) {
	ids := []uint{a, b}
	outsiders := s.db.Model(&models.ConversationMembership{}).Select("conversation_id").Where("user_id NOT IN ?", ids)

	var conversationIDs []uint
	if err := s.db.Model(&models.ConversationMembership{}).
		Where("user_id IN ?", ids).
		Where("conversation_id NOT IN (?)", outsiders).
		Group("conversation_id").
		Having("COUNT(DISTINCT user_id) = ?", len(ids)).
		Order("conversation_id").
		Limit(1).
		Pluck("conversation_id", &conversationIDs).Error; err != nil {
		return nil, err
	}
	if len(conversationIDs) == 0 {
		return nil, nil
	}
	var c models.Conversation
	if err := s.db.Preload("Memberships.User").First(&c, conversationIDs[0]).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// Send posts a message. Permission to message every other participant is
// checked on each call.
func (s *MessagingService) Send(actor Actor, conversationID uint, req *SendMessageRequest) (*models.Message, error) {
	c, err := s.load(actor, conversationID)
	if err != nil {
		return nil, err
	}
	body := strings.TrimSpace(req.Body)
	if body == "" {
		return nil, fieldError("body", scheduling.MsgBlank)
	}

	var recipients []uint
	for _, m := range c.Memberships {
		if m.UserID == actor.UserID {
			continue
		}
		if !actor.Authz.CanMessageUser(m.UserID, actor.UserID) {
			return nil, ErrNotTeammate
		}
		recipients = append(recipients, m.UserID)
	}

	msg := &models.Message{ConversationID: c.ID, UserID: actor.UserID, Body: body}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		return tx.Model(&models.Conversation{ID: c.ID}).Update("updated_at", time.Now()).Error
	})
	if err != nil {
		return nil, err
	}
	for _, m := range c.Memberships {
		if m.UserID == actor.UserID {
			msg.User = m.User
		}
	}

	if s.hub != nil {
		for _, m := range c.Memberships {
			s.hub.Publish(m.UserID, Event{Type: EventMessage, Data: msg})
		}
	}
	s.notifications.NotifyEach(recipients, NotifyParams{
		ActorID:  &actor.UserID,
		Target:   models.MessageTarget(msg.ID),
		Action:   models.ActionMessageReceived,
		Metadata: map[string]interface{}{MetaConversationID: c.ID},
	})
	logger.Debug().Uint("conversation_id", c.ID).Uint("message_id", msg.ID).Msg("message sent")
	return msg, nil
}
