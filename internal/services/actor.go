package services

import (
	"context"
	"errors"

	"github.com/huangang/campy/internal/authz"
	"gorm.io/gorm"
)

// Actor is the user a service call acts for, with the request's
// authorization checker.
type Actor struct {
	UserID uint
	Authz  *authz.Checker
}

// NewActor builds an Actor with a fresh checker, for callers outside an
// HTTP request such as jobs and scripts.
func NewActor(ctx context.Context, db *gorm.DB, userID uint) Actor {
	return Actor{UserID: userID, Authz: authz.NewChecker(ctx, authz.NewGormStore(db))}
}

// notFound maps gorm's missing-row error onto ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
