package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/huangang/campy/internal/middleware"
	"github.com/huangang/campy/internal/models"
	"github.com/huangang/campy/internal/services"
	"github.com/huangang/campy/pkg/response"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type tokenResponse struct {
	AccessToken     string       `json:"access_token"`
	AccessExpireAt  time.Time    `json:"access_expire_at"`
	RefreshToken    string       `json:"refresh_token"`
	RefreshExpireAt time.Time    `json:"refresh_expire_at"`
	User            *models.User `json:"user,omitempty"`
}

func loginResponse(r *services.LoginResult) tokenResponse {
	return tokenResponse{
		AccessToken:     r.AccessToken,
		AccessExpireAt:  r.AccessExpireAt,
		RefreshToken:    r.RefreshToken,
		RefreshExpireAt: r.RefreshExpireAt,
		User:            r.User,
	}
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Register creates an account and signs it in
// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req services.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.authService.Register(&req, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Created(c, loginResponse(result))
}

// Login handles user login by email or username
// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.authService.Login(&req, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, loginResponse(result))
}

// Refresh rotates a refresh token
// POST /api/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.authService.Refresh(req.RefreshToken, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, tokenResponse{
		AccessToken:     result.AccessToken,
		AccessExpireAt:  result.AccessExpireAt,
		RefreshToken:    result.RefreshToken,
		RefreshExpireAt: result.RefreshExpireAt,
	})
}

// Logout revokes the given refresh token; access tokens expire on their own
// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	var req refreshRequest
	_ = c.ShouldBindJSON(&req)

	if err := h.authService.RevokeRefreshToken(req.RefreshToken); err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "logged out successfully"})
}

// GetCurrentUser returns the current logged-in user
// GET /api/auth/me
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	user, err := h.authService.GetUserByID(middleware.GetUserID(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, user)
}

// ChangePassword
// PUT /api/auth/password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req services.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.authService.ChangePassword(middleware.GetUserID(c), &req); err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "password changed, please sign in again"})
}
