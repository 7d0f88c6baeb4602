package models

import "time"

// Calendar event types.
const (
	EventTypeCustom  = "custom"
	EventTypeMeeting = "meeting"
	EventTypeTask    = "task"
)

var EventTypes = []string{EventTypeCustom, EventTypeMeeting, EventTypeTask}

// CalendarEvent is a personal event, optionally linked to an activity.
type CalendarEvent struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"index;index:idx_event_user_start,priority:1;not null" json:"user_id"`
	ActivityID  *uint     `gorm:"index" json:"activity_id"`
	Activity    *Activity `gorm:"foreignKey:ActivityID" json:"activity,omitempty"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	StartAt     time.Time `gorm:"index;index:idx_event_user_start,priority:2;not null" json:"start_at"`
	EndAt       time.Time `gorm:"index;not null" json:"end_at"`
	EventType   string    `gorm:"size:20;default:custom;not null" json:"event_type"`
	Location    string    `gorm:"size:255" json:"location"`
	AllDay      bool      `gorm:"not null;default:false" json:"all_day"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (CalendarEvent) TableName() string { return "calendar_events" }
