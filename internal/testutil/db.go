// Package testutil opens throwaway databases and seeds fixtures for tests.
package testutil

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/huangang/campy/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

// NewDB opens a migrated in-memory SQLite database private to t.
// The pool is capped at one connection, so code running inside a
// transaction must only use the tx handle.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, dbSeq.Add(1))

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := models.Migrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

// CreateUser inserts a user with messaging-friendly defaults.
func CreateUser(t testing.TB, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := &models.User{
		Email:              models.NormalizeEmail(email),
		Username:           models.NormalizeUsername(strings.Split(email, "@")[0]),
		Password:           "x",
		EmailNotifications: true,
		InAppNotifications: true,
		IsActive:           true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user %s: %v", email, err)
	}
	return user
}

func CreateProject(t testing.TB, db *gorm.DB, owner *models.User, name string) *models.Project {
	t.Helper()
	project := &models.Project{Name: name, OwnerID: owner.ID}
	if err := db.Create(project).Error; err != nil {
		t.Fatalf("failed to create project %s: %v", name, err)
	}
	return project
}

func AddMember(t testing.TB, db *gorm.DB, project *models.Project, user *models.User, role string) *models.ProjectMembership {
	t.Helper()
	m := &models.ProjectMembership{ProjectID: project.ID, UserID: user.ID, Role: role}
	if err := db.Create(m).Error; err != nil {
		t.Fatalf("failed to add member: %v", err)
	}
	return m
}

// CreateActivity inserts an activity spanning start..due without validation.
func CreateActivity(t testing.TB, db *gorm.DB, project *models.Project, title string, start, due time.Time, assignee *models.User) *models.Activity {
	t.Helper()
	a := &models.Activity{ProjectID: project.ID, Title: title, StartOn: &start, DueOn: &due}
	if assignee != nil {
		a.AssigneeID = &assignee.ID
	}
	if err := db.Create(a).Error; err != nil {
		t.Fatalf("failed to create activity: %v", err)
	}
	return a
}

// Date builds a UTC midnight date.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
