package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/campy/internal/middleware"
	"github.com/huangang/campy/internal/services"
	"github.com/huangang/campy/pkg/logger"
	"github.com/huangang/campy/pkg/response"
)

type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// GetSettings
// GET /api/settings
func (h *UserHandler) GetSettings(c *gin.Context) {
	user, err := h.userService.Get(middleware.GetUserID(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, user)
}

// UpdateSettings changes profile and notification preferences
// PUT /api/settings
func (h *UserHandler) UpdateSettings(c *gin.Context) {
	var req services.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user, err := h.userService.UpdateSettings(middleware.GetUserID(c), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, user)
}

// Profile shows a teammate's shared projects and open work
// GET /api/users/:id
func (h *UserHandler) Profile(c *gin.Context) {
	id, ok := parseID(c, "id", "user")
	if !ok {
		return
	}

	profile, err := h.userService.Profile(middleware.GetActor(c), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, profile)
}

// DeleteAccount removes the caller and everything they own
// DELETE /api/settings
func (h *UserHandler) DeleteAccount(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if err := h.userService.Delete(userID); err != nil {
		handleServiceError(c, err)
		return
	}
	logger.Info().Uint("user_id", userID).Msg("account deleted")
	response.Success(c, gin.H{"message": "account deleted"})
}
