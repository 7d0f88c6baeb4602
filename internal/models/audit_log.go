package models

import "time"

// AuditLog records one write request against the API.
type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    *uint     `gorm:"index" json:"user_id"`
	ProjectID *uint     `gorm:"index" json:"project_id"`
	Module    string    `gorm:"size:100;index" json:"module"`
	Action    string    `gorm:"size:50;index" json:"action"`
	Message   string    `gorm:"type:text" json:"message"`
	Status    int       `json:"status"`
	IP        string    `gorm:"size:50" json:"ip"`
	UserAgent string    `gorm:"size:500" json:"user_agent"`
	Extra     string    `gorm:"type:text" json:"extra"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (AuditLog) TableName() string { return "audit_logs" }
