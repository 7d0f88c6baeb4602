package models

import (
	"strings"
	"time"
)

// User is an account. Notification preferences live on the row.
type User struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	Email              string     `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Username           *string    `gorm:"uniqueIndex;size:30" json:"username"`
	Password           string     `gorm:"size:255;not null" json:"-"`
	PreferredTheme     string     `gorm:"size:10;default:light;not null" json:"preferred_theme"`
	EmailNotifications bool       `gorm:"not null;default:false" json:"email_notifications"`
	InAppNotifications bool       `gorm:"not null;default:false" json:"in_app_notifications"`
	SMSNotifications   bool       `gorm:"not null;default:false" json:"sms_notifications"`
	PhoneNumber        string     `gorm:"size:30" json:"phone_number"`
	DailyDigest        bool       `gorm:"not null;default:false" json:"daily_digest"`
	DigestTime         string     `gorm:"size:5;default:09:00;not null" json:"digest_time"`
	IsActive           bool       `gorm:"not null;default:true" json:"is_active"`
	LastLogin          *time.Time `json:"last_login"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func (User) TableName() string { return "users" }

// DisplayName is the username when set, else the email.
func (u *User) DisplayName() string {
	if u == nil {
		return "Someone"
	}
	if u.Username != nil && *u.Username != "" {
		return *u.Username
	}
	return u.Email
}

// NormalizeEmail trims and lowercases an address for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeUsername returns nil for blank input.
func NormalizeUsername(username string) *string {
	u := strings.ToLower(strings.TrimSpace(username))
	if u == "" {
		return nil
	}
	return &u
}
