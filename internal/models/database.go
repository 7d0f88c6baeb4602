package models

import (
	"fmt"

	"github.com/huangang/campy/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Open connects to the configured database without touching DB.
func Open(cfg *config.DatabaseConfig, logLevel logger.LogLevel) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	return db, nil
}

func InitDB(cfg *config.DatabaseConfig) error {
	db, err := Open(cfg, logger.Warn)
	if err != nil {
		return err
	}
	DB = db
	return nil
}

// Migrate creates or updates every table on db.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&RefreshToken{},
		&Project{},
		&ProjectMembership{},
		&ProjectInvitation{},
		&Discipline{},
		&Zone{},
		&Activity{},
		&Comment{},
		&CommentReaction{},
		&Conversation{},
		&ConversationMembership{},
		&Message{},
		&CalendarEvent{},
		&Notification{},
		&JobLock{},
		&AuditLog{},
	)
}

func AutoMigrate() error {
	return Migrate(DB)
}

func GetDB() *gorm.DB {
	return DB
}

var defaultDisciplines = []string{"Architecture", "Structural", "Mechanical", "Electrical", "Plumbing"}

// SeedDefaultData inserts the default disciplines when none exist.
func SeedDefaultData() error {
	var count int64
	if err := DB.Model(&Discipline{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	for _, name := range defaultDisciplines {
		if err := DB.Create(&Discipline{Name: name}).Error; err != nil {
			return err
		}
	}
	return nil
}
