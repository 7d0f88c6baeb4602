package services

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/huangang/campy/internal/models"
	"github.com/huangang/campy/pkg/logger"
	"gorm.io/gorm"
)

// Notification list limits.
const (
	NotificationListLimit     = 50
	NotificationDropdownLimit = 20
	notificationMaxLimit      = 100
)

// Metadata keys stored on notifications for rendering.
const (
	MetaActivityID     = "activity_id"
	MetaActivityTitle  = "activity_title"
	MetaProjectName    = "project_name"
	MetaConversationID = "conversation_id"
	MetaDaysUntilDue   = "days_until_due"
)

type NotificationService struct {
	db    *gorm.DB
	queue DeliveryQueue
	hub   *EventHub
}

// NewNotificationService accepts nil queue or hub to skip that delivery path.
func NewNotificationService(db *gorm.DB, queue DeliveryQueue, hub *EventHub) *NotificationService {
	return &NotificationService{db: db, queue: queue, hub: hub}
}

// NotifyParams describes one notification to create.
type NotifyParams struct {
	RecipientID uint
	ActorID     *uint
	Target      models.Notifiable
	Action      models.Action
	Metadata    map[string]interface{}
}

// Notify validates and stores a notification, then delivers it according to
// the recipient's preferences. Call it after the triggering change commits.
func (s *NotificationService) Notify(p NotifyParams) (*models.Notification, error) {
	if _, err := models.ParseAction(string(p.Action)); err != nil {
		return nil, err
	}
	if !p.Target.Kind.Valid() || p.Target.ID == 0 {
		return nil, fmt.Errorf("invalid notification target %q/%d", p.Target.Kind, p.Target.ID)
	}

	var recipient models.User
	if err := s.db.First(&recipient, p.RecipientID).Error; err != nil {
		return nil, notFound(err)
	}

	n := &models.Notification{
		RecipientID:    recipient.ID,
		ActorID:        p.ActorID,
		NotifiableKind: p.Target.Kind,
		NotifiableID:   p.Target.ID,
		Action:         p.Action,
	}
	if len(p.Metadata) > 0 {
		b, err := json.Marshal(p.Metadata)
		if err != nil {
			return nil, err
		}
		n.Metadata = string(b)
	}
	if err := s.db.Create(n).Error; err != nil {
		return nil, err
	}

	if n.ActorID != nil {
		var actor models.User
		if err := s.db.First(&actor, *n.ActorID).Error; err == nil {
			n.Actor = &actor
		}
	}

	s.deliver(n, &recipient)
	return n, nil
}

// NotifyEach notifies every distinct recipient except the actor. Failures
// are logged and skipped.
func (s *NotificationService) NotifyEach(recipientIDs []uint, p NotifyParams) {
	seen := make(map[uint]bool, len(recipientIDs))
	for _, id := range recipientIDs {
		if id == 0 || seen[id] || (p.ActorID != nil && *p.ActorID == id) {
			continue
		}
		seen[id] = true
		p.RecipientID = id
		if _, err := s.Notify(p); err != nil {
			logger.Error().Err(err).Uint("recipient_id", id).Str("action", string(p.Action)).Msg("notify failed")
		}
	}
}

func (s *NotificationService) deliver(n *models.Notification, recipient *models.User) {
	view := Present(n)

	if s.hub != nil && recipient.InAppNotifications {
		s.hub.Publish(recipient.ID, Event{Type: EventNotification, Data: view})
	}
	if s.queue == nil {
		return
	}

	if recipient.EmailNotifications {
		task := &DeliveryTask{
			NotificationID: n.ID,
			RecipientID:    recipient.ID,
			Channel:        ChannelEmail,
			To:             recipient.Email,
			Subject:        EmailSubject(n),
			Body:           view.Message + "\n\n" + view.URL,
		}
		if err := s.queue.Enqueue(task); err != nil {
			logger.Error().Err(err).Uint("notification_id", n.ID).Msg("failed to enqueue email")
		}
	}

	if recipient.SMSNotifications && recipient.PhoneNumber != "" {
		task := &DeliveryTask{
			NotificationID: n.ID,
			RecipientID:    recipient.ID,
			Channel:        ChannelSMS,
			To:             recipient.PhoneNumber,
			Body:           SMSMessage(n),
		}
		if err := s.queue.Enqueue(task); err != nil {
			logger.Error().Err(err).Uint("notification_id", n.ID).Msg("failed to enqueue sms")
		}
	}
}

// NotificationView is a notification with its rendered text.
type NotificationView struct {
	models.Notification
	Title    string `json:"title"`
	Message  string `json:"message"`
	URL      string `json:"url"`
	Category string `json:"category"`
	IconType string `json:"icon_type"`
	Read     bool   `json:"read"`
}

func Present(n *models.Notification) NotificationView {
	return NotificationView{
		Notification: *n,
		Title:        n.Action.Title(),
		Message:      Message(n),
		URL:          URL(n),
		Category:     n.Action.Category(),
		IconType:     n.Action.IconType(),
		Read:         n.IsRead(),
	}
}

func metaString(meta map[string]interface{}, key, fallback string) string {
	if v, ok := meta[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func metaUint(meta map[string]interface{}, key string) uint {
	switch v := meta[key].(type) {
	case float64:
		if v > 0 {
			return uint(v)
		}
	case string:
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			return uint(n)
		}
	}
	return 0
}

func metaInt(meta map[string]interface{}, key string) int {
	if v, ok := meta[key].(float64); ok {
		return int(v)
	}
	return 0
}

// Message is the one-line display text.
func Message(n *models.Notification) string {
	meta := n.Meta()
	actor := n.Actor.DisplayName()
	title := metaString(meta, MetaActivityTitle, "an activity")
	project := metaString(meta, MetaProjectName, "a project")

	switch n.Action {
	case models.ActionActivityAssigned:
		return actor + " assigned you to " + title
	case models.ActionActivityUpdated:
		return actor + " updated " + title
	case models.ActionActivityDueSoon:
		return fmt.Sprintf("%s is due in %d days", title, metaInt(meta, MetaDaysUntilDue))
	case models.ActionActivityOverdue:
		return title + " is overdue"
	case models.ActionCommentAdded:
		return actor + " commented on " + title
	case models.ActionCommentMentioned:
		return actor + " mentioned you in a comment"
	case models.ActionMessageReceived:
		return actor + " sent you a message"
	case models.ActionProjectInvitation:
		return actor + " invited you to join " + project
	case models.ActionMemberJoined:
		return actor + " joined " + project
	}
	return "New notification"
}

// EmailSubject is the subject line for the notification email.
func EmailSubject(n *models.Notification) string {
	meta := n.Meta()
	title := metaString(meta, MetaActivityTitle, "an activity")
	project := metaString(meta, MetaProjectName, "a project")

	switch n.Action {
	case models.ActionActivityAssigned:
		return "You've been assigned to: " + title
	case models.ActionActivityUpdated:
		return "Activity updated: " + title
	case models.ActionActivityDueSoon:
		return "Reminder: " + title + " is due soon"
	case models.ActionActivityOverdue:
		return "Overdue: " + title
	case models.ActionCommentAdded:
		return "New comment on: " + title
	case models.ActionCommentMentioned:
		return "You were mentioned in a comment"
	case models.ActionMessageReceived:
		return "New message from " + n.Actor.DisplayName()
	case models.ActionProjectInvitation:
		return "You've been invited to join " + project
	case models.ActionMemberJoined:
		return n.Actor.DisplayName() + " joined " + project
	}
	return "New notification"
}

// SMSMessage is the short text sent by SMS.
func SMSMessage(n *models.Notification) string {
	title := metaString(n.Meta(), MetaActivityTitle, "an activity")
	switch n.Action {
	case models.ActionActivityAssigned:
		return "New task: " + truncate(title, 100)
	case models.ActionActivityDueSoon:
		return "Reminder: " + truncate(title, 90) + " due soon"
	case models.ActionActivityOverdue:
		return "Overdue: " + truncate(title, 100)
	case models.ActionMessageReceived:
		return "New message from " + n.Actor.DisplayName()
	}
	return "New notification from Campy"
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n-3]) + "..."
}

// URL is the app path the notification links to.
func URL(n *models.Notification) string {
	meta := n.Meta()
	switch n.NotifiableKind {
	case models.NotifiableActivity:
		return fmt.Sprintf("/activities/%d", n.NotifiableID)
	case models.NotifiableComment:
		if id := metaUint(meta, MetaActivityID); id != 0 {
			return fmt.Sprintf("/activities/%d", id)
		}
	case models.NotifiableMessage:
		if id := metaUint(meta, MetaConversationID); id != 0 {
			return fmt.Sprintf("/conversations/%d", id)
		}
	case models.NotifiableProject:
		return fmt.Sprintf("/projects/%d", n.NotifiableID)
	}
	return "/"
}

type ListNotificationsRequest struct {
	Category string `form:"category"`
	Unread   bool   `form:"unread"`
	Limit    int    `form:"limit"`
}

// actionsIn returns the actions belonging to category.
func actionsIn(category string) []models.Action {
	var out []models.Action
	for _, a := range models.Actions {
		if a.Category() == category {
			out = append(out, a)
		}
	}
	return out
}

// List returns the user's most recent notifications.
func (s *NotificationService) List(userID uint, req *ListNotificationsRequest) ([]NotificationView, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = NotificationListLimit
	}
	if limit > notificationMaxLimit {
		limit = notificationMaxLimit
	}

	query := s.db.Preload("Actor").Where("recipient_id = ?", userID)
	if req.Category != "" && req.Category != "all" {
		query = query.Where("action IN ?", actionsIn(req.Category))
	}
	if req.Unread {
		query = query.Where("read_at IS NULL")
	}

	var notifications []models.Notification
	if err := query.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&notifications).Error; err != nil {
		return nil, err
	}

	views := make([]NotificationView, len(notifications))
	for i := range notifications {
		views[i] = Present(&notifications[i])
	}
	return views, nil
}

// NotificationCounts are unread totals per filter tab.
type NotificationCounts struct {
	Unread   int64 `json:"unread"`
	Mention  int64 `json:"mention"`
	Activity int64 `json:"activity"`
	Project  int64 `json:"project"`
}

func (s *NotificationService) unread(userID uint) *gorm.DB {
	return s.db.Model(&models.Notification{}).Where("recipient_id = ? AND read_at IS NULL", userID)
}

func (s *NotificationService) UnreadCount(userID uint) (int64, error) {
	var count int64
	err := s.unread(userID).Count(&count).Error
	return count, err
}

func (s *NotificationService) Counts(userID uint) (*NotificationCounts, error) {
	counts := &NotificationCounts{}
	if err := s.unread(userID).Count(&counts.Unread).Error; err != nil {
		return nil, err
	}
	for category, dst := range map[string]*int64{
		"mention":  &counts.Mention,
		"activity": &counts.Activity,
		"project":  &counts.Project,
	} {
		if err := s.unread(userID).Where("action IN ?", actionsIn(category)).Count(dst).Error; err != nil {
			return nil, err
		}
	}
	return counts, nil
}

func (s *NotificationService) find(userID, id uint) (*models.Notification, error) {
	var n models.Notification
	if err := s.db.Preload("Actor").Where("id = ? AND recipient_id = ?", id, userID).First(&n).Error; err != nil {
		return nil, notFound(err)
	}
	return &n, nil
}

// MarkRead is idempotent: an already read notification keeps its read_at.
func (s *NotificationService) MarkRead(userID, id uint) (*NotificationView, error) {
	n, err := s.find(userID, id)
	if err != nil {
		return nil, err
	}
	if n.ReadAt == nil {
		now := time.Now()
		if err := s.db.Model(n).Update("read_at", now).Error; err != nil {
			return nil, err
		}
		n.ReadAt = &now
		s.publishUnreadCount(userID)
	}
	view := Present(n)
	return &view, nil
}

func (s *NotificationService) MarkUnread(userID, id uint) (*NotificationView, error) {
	n, err := s.find(userID, id)
	if err != nil {
		return nil, err
	}
	if n.ReadAt != nil {
		if err := s.db.Model(n).Update("read_at", nil).Error; err != nil {
			return nil, err
		}
		n.ReadAt = nil
		s.publishUnreadCount(userID)
	}
	view := Present(n)
	return &view, nil
}

// MarkAllRead returns how many notifications changed.
func (s *NotificationService) MarkAllRead(userID uint) (int64, error) {
	result := s.unread(userID).Update("read_at", time.Now())
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected > 0 {
		s.publishUnreadCount(userID)
	}
	return result.RowsAffected, nil
}

func (s *NotificationService) Delete(userID, id uint) error {
	result := s.db.Where("id = ? AND recipient_id = ?", id, userID).Delete(&models.Notification{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *NotificationService) publishUnreadCount(userID uint) {
	if s.hub == nil {
		return
	}
	count, err := s.UnreadCount(userID)
	if err != nil {
		return
	}
	s.hub.Publish(userID, Event{Type: EventUnreadCount, Data: map[string]int64{"count": count}})
}

// NotifiedSince reports whether a notification for target and action was
// created at or after since.
func (s *NotificationService) NotifiedSince(target models.Notifiable, action models.Action, since time.Time) (bool, error) {
	var count int64
	err := s.db.Model(&models.Notification{}).
		Where("notifiable_kind = ? AND notifiable_id = ? AND action = ? AND created_at >= ?", target.Kind, target.ID, action, since).
		Count(&count).Error
	return count > 0, err
}

// activityMeta is the rendering metadata for an activity target.
func activityMeta(a *models.Activity, projectName string) map[string]interface{} {
	meta := map[string]interface{}{
		MetaActivityID:    a.ID,
		MetaActivityTitle: a.Title,
	}
	if projectName != "" {
		meta[MetaProjectName] = projectName
	}
	return meta
}
