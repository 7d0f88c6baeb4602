package services

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/huangang/campy/internal/models"
	"gorm.io/gorm"
)

// AcquireJobLock claims the (name, key) run for holder. It returns false when
// another holder owns an unexpired lock.
func AcquireJobLock(db *gorm.DB, name, key, holder string, ttl time.Duration) (bool, error) {
	now := time.Now()
	lock := models.JobLock{
		JobName:   name,
		RunKey:    key,
		LockedBy:  holder,
		LockedAt:  now,
		ExpiresAt: now.Add(ttl),
	}
	err := db.Create(&lock).Error
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return false, err
	}

	result := db.Model(&models.JobLock{}).
		Where("job_name = ? AND run_key = ? AND expires_at < ?", name, key, now).
		Updates(map[string]interface{}{
			"locked_by":  holder,
			"locked_at":  now,
			"expires_at": now.Add(ttl),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// lockHolder identifies this process in job locks.
func lockHolder() string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return fmt.Sprintf("%s:%d", host, os.Getpid())
}
