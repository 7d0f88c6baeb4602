package models

import "time"

// JobLock marks one run of a scheduled job, keyed by job name and period.
type JobLock struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	JobName   string    `gorm:"uniqueIndex:idx_job_lock_name_key;size:100;not null" json:"job_name"`
	RunKey    string    `gorm:"uniqueIndex:idx_job_lock_name_key;size:100;not null" json:"run_key"`
	LockedBy  string    `gorm:"size:100" json:"locked_by"`
	LockedAt  time.Time `json:"locked_at"`
	ExpiresAt time.Time `gorm:"index" json:"expires_at"`
}

func (JobLock) TableName() string { return "job_locks" }
