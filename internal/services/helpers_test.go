package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/huangang/campy/internal/models"
	"github.com/huangang/campy/internal/scheduling"
	"github.com/huangang/campy/internal/testutil"
	"gorm.io/gorm"
)

// testNow is a Wednesday.
var testNow = time.Date(2025, 6, 11, 10, 30, 0, 0, time.UTC)

type testEnv struct {
	db            *gorm.DB
	clock         scheduling.Clock
	hub           *EventHub
	notifications *NotificationService
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.NewDB(t)
	hub := NewEventHub()
	return &testEnv{
		db:            db,
		clock:         scheduling.FixedClock(testNow),
		hub:           hub,
		notifications: NewNotificationService(db, nil, hub),
	}
}

// as returns a fresh actor so role lookups see the latest memberships.
func (e *testEnv) as(u *models.User) Actor {
	return NewActor(context.Background(), e.db, u.ID)
}

func notificationsOf(t *testing.T, db *gorm.DB, userID uint) []models.Notification {
	t.Helper()
	var out []models.Notification
	if err := db.Preload("Actor").Where("recipient_id = ?", userID).Order("id").Find(&out).Error; err != nil {
		t.Fatalf("failed to load notifications: %v", err)
	}
	return out
}

func actionsOf(ns []models.Notification) []models.Action {
	out := make([]models.Action, len(ns))
	for i, n := range ns {
		out[i] = n.Action
	}
	return out
}

func count(t *testing.T, db *gorm.DB, model interface{}, where string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	q := db.Model(model)
	if where != "" {
		q = q.Where(where, args...)
	}
	if err := q.Count(&n).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	return n
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }
func uintPtr(u uint) *uint    { return &u }

func wantErr(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("err = %v, want %v", err, target)
	}
}

// wantField asserts err is a ValidationError mentioning field.
func wantField(t *testing.T, err error, field string) {
	t.Helper()
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want validation error", err)
	}
	if len(ve.Fields.On(field)) == 0 {
		t.Fatalf("no error on %q: %v", field, ve.Fields)
	}
}
