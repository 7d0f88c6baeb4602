package handlers

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/huangang/campy/internal/services"
	"github.com/huangang/campy/pkg/logger"
	"github.com/huangang/campy/pkg/response"
)

// handleServiceError writes the envelope matching a service error.
func handleServiceError(c *gin.Context, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		fields := make([]response.FieldError, len(verr.Fields))
		for i, f := range verr.Fields {
			fields[i] = response.FieldError{Field: f.Field, Message: f.Message}
		}
		response.Unprocessable(c, "validation failed", fields)
	case errors.Is(err, services.ErrNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, services.ErrForbidden), errors.Is(err, services.ErrNotTeammate):
		response.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrAlreadyMember),
		errors.Is(err, services.ErrDuplicateInvitation),
		errors.Is(err, services.ErrDuplicateReaction),
		errors.Is(err, services.ErrDuplicateName),
		errors.Is(err, services.ErrInUse),
		errors.Is(err, services.ErrEmailTaken),
		errors.Is(err, services.ErrUsernameTaken):
		response.Conflict(c, err.Error())
	case errors.Is(err, services.ErrInvalidRole),
		errors.Is(err, services.ErrSelfMessage),
		errors.Is(err, services.ErrInvalidParent):
		response.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrInvalidToken),
		errors.Is(err, services.ErrIncorrectPassword),
		errors.Is(err, services.ErrUserDisabled):
		response.Unauthorized(c, err.Error())
	default:
		log := logger.With(c)
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		response.ServerError(c, "internal server error")
	}
}

// parseID reads a positive numeric path parameter, writing a 400 when it
// is malformed.
func parseID(c *gin.Context, name, label string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		response.BadRequest(c, "invalid "+label+" id")
		return 0, false
	}
	return uint(id), true
}
