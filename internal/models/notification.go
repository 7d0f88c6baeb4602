package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Action is the closed set of notification actions.
type Action string

const (
	ActionActivityAssigned  Action = "activity_assigned"
	ActionActivityUpdated   Action = "activity_updated"
	ActionActivityDueSoon   Action = "activity_due_soon"
	ActionActivityOverdue   Action = "activity_overdue"
	ActionCommentAdded      Action = "comment_added"
	ActionCommentMentioned  Action = "comment_mentioned"
	ActionMessageReceived   Action = "message_received"
	ActionProjectInvitation Action = "project_invitation"
	ActionMemberJoined      Action = "member_joined"
)

var Actions = []Action{
	ActionActivityAssigned,
	ActionActivityUpdated,
	ActionActivityDueSoon,
	ActionActivityOverdue,
	ActionCommentAdded,
	ActionCommentMentioned,
	ActionMessageReceived,
	ActionProjectInvitation,
	ActionMemberJoined,
}

// ParseAction validates s against the action set.
func ParseAction(s string) (Action, error) {
	for _, a := range Actions {
		if string(a) == s {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown notification action %q", s)
}

func (a Action) Valid() bool {
	_, err := ParseAction(string(a))
	return err == nil
}

// Category groups actions for the notification filter tabs.
func (a Action) Category() string {
	switch a {
	case ActionCommentMentioned:
		return "mention"
	case ActionActivityAssigned, ActionActivityUpdated, ActionActivityDueSoon, ActionActivityOverdue:
		return "activity"
	case ActionProjectInvitation, ActionMemberJoined:
		return "project"
	default:
		return "all"
	}
}

func (a Action) Title() string {
	switch a {
	case ActionActivityAssigned:
		return "Activity Assigned"
	case ActionActivityUpdated:
		return "Activity Updated"
	case ActionActivityDueSoon:
		return "Due Date Approaching"
	case ActionActivityOverdue:
		return "Activity Overdue"
	case ActionCommentAdded:
		return "New Comment"
	case ActionCommentMentioned:
		return "You Were Mentioned"
	case ActionMessageReceived:
		return "New Message"
	case ActionProjectInvitation:
		return "Project Invitation"
	case ActionMemberJoined:
		return "New Member Added"
	default:
		return "Notification"
	}
}

func (a Action) IconType() string {
	switch a {
	case ActionActivityAssigned, ActionActivityUpdated:
		return "task"
	case ActionActivityDueSoon:
		return "calendar"
	case ActionActivityOverdue:
		return "warning"
	case ActionCommentAdded, ActionCommentMentioned:
		return "comment"
	case ActionMessageReceived:
		return "message"
	case ActionProjectInvitation:
		return "invite"
	case ActionMemberJoined:
		return "user"
	default:
		return "default"
	}
}

// NotifiableKind discriminates the notification target.
type NotifiableKind string

const (
	NotifiableActivity NotifiableKind = "activity"
	NotifiableComment  NotifiableKind = "comment"
	NotifiableMessage  NotifiableKind = "message"
	NotifiableProject  NotifiableKind = "project"
)

func (k NotifiableKind) Valid() bool {
	switch k {
	case NotifiableActivity, NotifiableComment, NotifiableMessage, NotifiableProject:
		return true
	}
	return false
}

// Notifiable is the tagged reference to a notification's subject.
type Notifiable struct {
	Kind NotifiableKind `json:"kind"`
	ID   uint           `json:"id"`
}

func ActivityTarget(id uint) Notifiable { return Notifiable{Kind: NotifiableActivity, ID: id} }
func CommentTarget(id uint) Notifiable  { return Notifiable{Kind: NotifiableComment, ID: id} }
func MessageTarget(id uint) Notifiable  { return Notifiable{Kind: NotifiableMessage, ID: id} }
func ProjectTarget(id uint) Notifiable  { return Notifiable{Kind: NotifiableProject, ID: id} }

type Notification struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	RecipientID    uint           `gorm:"index;index:idx_notification_recipient_created,priority:1;index:idx_notification_recipient_read,priority:1;not null" json:"recipient_id"`
	Recipient      *User          `gorm:"foreignKey:RecipientID" json:"-"`
	ActorID        *uint          `gorm:"index" json:"actor_id"`
	Actor          *User          `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
	NotifiableKind NotifiableKind `gorm:"size:20;index:idx_notification_target,priority:1;not null" json:"notifiable_kind"`
	NotifiableID   uint           `gorm:"index:idx_notification_target,priority:2;not null" json:"notifiable_id"`
	Action         Action         `gorm:"size:40;not null" json:"action"`
	Metadata       string         `gorm:"type:text" json:"-"`
	ReadAt         *time.Time     `gorm:"index:idx_notification_recipient_read,priority:2" json:"read_at"`
	CreatedAt      time.Time      `gorm:"index:idx_notification_recipient_created,priority:2" json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

func (Notification) TableName() string { return "notifications" }

func (n *Notification) Target() Notifiable {
	return Notifiable{Kind: n.NotifiableKind, ID: n.NotifiableID}
}

func (n *Notification) IsRead() bool {
	return n.ReadAt != nil
}

// Meta decodes Metadata; malformed JSON yields an empty map.
func (n *Notification) Meta() map[string]interface{} {
	out := map[string]interface{}{}
	if n.Metadata == "" {
		return out
	}
	if err := json.Unmarshal([]byte(n.Metadata), &out); err != nil {
		return map[string]interface{}{}
	}
	return out
}
