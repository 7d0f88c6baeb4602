package services

import (
	"errors"

	"github.com/huangang/campy/internal/scheduling"
)

var (
	ErrNotFound            = errors.New("record not found")
	ErrForbidden           = errors.New("not allowed")
	ErrAlreadyMember       = errors.New("user is already a member of this project")
	ErrDuplicateInvitation = errors.New("an invitation for this email is already pending")
	ErrDuplicateReaction   = errors.New("reaction already added")
	ErrDuplicateName       = errors.New("name has already been taken")
	ErrInUse               = errors.New("record is still referenced by activities")
	ErrInvalidRole         = errors.New("invalid role")
	ErrSelfMessage         = errors.New("cannot message yourself")
	ErrNotTeammate         = errors.New("user is not a teammate")
	ErrInvalidParent       = errors.New("parent comment belongs to another activity")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrUserDisabled        = errors.New("user is disabled")
	ErrEmailTaken          = errors.New("email has already been taken")
	ErrUsernameTaken       = errors.New("username has already been taken")
	ErrInvalidToken        = errors.New("invalid refresh token")
	ErrIncorrectPassword   = errors.New("incorrect current password")
)

// ValidationError carries field-scoped validation failures.
type ValidationError struct {
	Fields scheduling.FieldErrors
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Fields.Error()
}

func newValidationError(fields scheduling.FieldErrors) error {
	if fields.Empty() {
		return nil
	}
	return &ValidationError{Fields: fields}
}

// fieldError builds a ValidationError with a single failure.
func fieldError(field, message string) error {
	var fields scheduling.FieldErrors
	fields.Add(field, message)
	return &ValidationError{Fields: fields}
}
