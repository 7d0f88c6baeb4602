package models

import "time"

type Conversation struct {
	ID          uint                     `gorm:"primaryKey" json:"id"`
	Memberships []ConversationMembership `gorm:"foreignKey:ConversationID" json:"memberships,omitempty"`
	Messages    []Message                `gorm:"foreignKey:ConversationID" json:"messages,omitempty"`
	CreatedAt   time.Time                `json:"created_at"`
	UpdatedAt   time.Time                `json:"updated_at"`
}

func (Conversation) TableName() string { return "conversations" }

type ConversationMembership struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ConversationID uint      `gorm:"uniqueIndex:idx_conversation_user;not null" json:"conversation_id"`
	UserID         uint      `gorm:"uniqueIndex:idx_conversation_user;index;not null" json:"user_id"`
	User           *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func (ConversationMembership) TableName() string { return "conversation_memberships" }

type Message struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ConversationID uint      `gorm:"index;not null" json:"conversation_id"`
	UserID         uint      `gorm:"index;not null" json:"user_id"`
	User           *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Body           string    `gorm:"type:text;not null" json:"body"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (Message) TableName() string { return "messages" }
