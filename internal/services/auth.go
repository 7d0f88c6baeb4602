package services

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/huangang/campy/internal/config"
	"github.com/huangang/campy/internal/models"
	"github.com/huangang/campy/internal/scheduling"
	"github.com/huangang/campy/internal/utils"
	"github.com/huangang/campy/pkg/logger"
	"gorm.io/gorm"
)

const (
	refreshTokenBytes        = 32
	defaultRefreshExpireHour = 720
	usernameMaxLength        = 30
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9_]+$`)

type AuthService struct {
	db          *gorm.DB
	jwtConfig   *config.JWTConfig
	memberships *MembershipService
}

func NewAuthService(db *gorm.DB, jwtCfg *config.JWTConfig, memberships *MembershipService) *AuthService {
	return &AuthService{db: db, jwtConfig: jwtCfg, memberships: memberships}
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Username string `json:"username"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginRequest struct {
	// Login is an email or a username.
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResult struct {
	AccessToken     string
	AccessExpireAt  time.Time
	RefreshToken    string
	RefreshExpireAt time.Time
	User            *models.User
}

type RefreshResult struct {
	AccessToken     string
	AccessExpireAt  time.Time
	RefreshToken    string
	RefreshExpireAt time.Time
}

// ValidateUsername checks a normalized username; nil is allowed.
func ValidateUsername(username *string) string {
	if username == nil {
		return ""
	}
	if len(*username) > usernameMaxLength {
		return "is too long (maximum is 30 characters)"
	}
	if !usernamePattern.MatchString(*username) {
		return "allows letters, numbers, and underscores only"
	}
	return ""
}

// Register creates an account, accepts pending invitations for its email
// and signs the user in.
func (s *AuthService) Register(req *RegisterRequest, clientIP, userAgent string) (*LoginResult, error) {
	email := models.NormalizeEmail(req.Email)
	username := models.NormalizeUsername(req.Username)

	var fields scheduling.FieldErrors
	if email == "" {
		fields.Add("email", scheduling.MsgBlank)
	}
	if msg := ValidateUsername(username); msg != "" {
		fields.Add("username", msg)
	}
	if err := newValidationError(fields); err != nil {
		return nil, err
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Email:              email,
		Username:           username,
		Password:           hash,
		PreferredTheme:     "light",
		EmailNotifications: true,
		InAppNotifications: true,
		DigestTime:         "09:00",
		IsActive:           true,
	}
	if err := s.db.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, s.duplicateUserError(email)
		}
		return nil, err
	}

	if s.memberships != nil {
		if n, err := s.memberships.AcceptPendingInvitations(user); err != nil {
			logger.Error().Err(err).Uint("user_id", user.ID).Msg("failed to accept invitations")
		} else if n > 0 {
			logger.Info().Uint("user_id", user.ID).Int("invitations", n).Msg("invitations accepted")
		}
	}

	return s.issue(user, clientIP, userAgent)
}

func (s *AuthService) duplicateUserError(email string) error {
	var count int64
	s.db.Model(&models.User{}).Where("email = ?", email).Count(&count)
	if count > 0 {
		return ErrEmailTaken
	}
	return ErrUsernameTaken
}

// Login authenticates by email or username.
func (s *AuthService) Login(req *LoginRequest, clientIP, userAgent string) (*LoginResult, error) {
	login := strings.ToLower(strings.TrimSpace(req.Login))

	var user models.User
	if err := s.db.Where("email = ? OR username = ?", login, login).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !utils.CheckPassword(req.Password, user.Password) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrUserDisabled
	}

	result, err := s.issue(&user, clientIP, userAgent)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user.LastLogin = &now
	s.db.Model(&user).Update("last_login", now)
	return result, nil
}

func (s *AuthService) accessHours() int {
	if s.jwtConfig.ExpireHour > 0 {
		return s.jwtConfig.ExpireHour
	}
	return 24
}

func (s *AuthService) refreshHours() int {
	if s.jwtConfig.RefreshExpireHour > 0 {
		return s.jwtConfig.RefreshExpireHour
	}
	return defaultRefreshExpireHour
}

func (s *AuthService) newRefreshRecord(userID uint, clientIP, userAgent string) (string, *models.RefreshToken, error) {
	token, err := utils.RandomToken(refreshTokenBytes)
	if err != nil {
		return "", nil, err
	}
	record := &models.RefreshToken{
		UserID:      userID,
		TokenHash:   utils.HashToken(token),
		ExpiresAt:   time.Now().Add(time.Duration(s.refreshHours()) * time.Hour),
		CreatedByIP: clientIP,
		UserAgent:   userAgent,
	}
	return token, record, nil
}

func (s *AuthService) issue(user *models.User, clientIP, userAgent string) (*LoginResult, error) {
	accessHours := s.accessHours()
	access, err := utils.GenerateToken(user.ID, user.Email, accessHours)
	if err != nil {
		return nil, err
	}

	refresh, record, err := s.newRefreshRecord(user.ID, clientIP, userAgent)
	if err != nil {
		return nil, err
	}
	if err := s.db.Create(record).Error; err != nil {
		return nil, err
	}

	return &LoginResult{
		AccessToken:     access,
		AccessExpireAt:  time.Now().Add(time.Duration(accessHours) * time.Hour),
		RefreshToken:    refresh,
		RefreshExpireAt: record.ExpiresAt,
		User:            user,
	}, nil
}

// Refresh rotates a refresh token, revoking the old one.
func (s *AuthService) Refresh(refreshToken string, clientIP, userAgent string) (*RefreshResult, error) {
	if refreshToken == "" {
		return nil, ErrInvalidToken
	}

	var stored models.RefreshToken
	if err := s.db.Where("token_hash = ?", utils.HashToken(refreshToken)).First(&stored).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	now := time.Now()
	if !stored.Usable(now) {
		return nil, ErrInvalidToken
	}

	var user models.User
	if err := s.db.First(&user, stored.UserID).Error; err != nil {
		return nil, notFound(err)
	}
	if !user.IsActive {
		return nil, ErrUserDisabled
	}

	accessHours := s.accessHours()
	access, err := utils.GenerateToken(user.ID, user.Email, accessHours)
	if err != nil {
		return nil, err
	}
	refresh, record, err := s.newRefreshRecord(user.ID, clientIP, userAgent)
	if err != nil {
		return nil, err
	}

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(record).Error; err != nil {
			return err
		}
		return tx.Model(&stored).Updates(map[string]interface{}{
			"revoked_at":           now,
			"replaced_by_token_id": record.ID,
		}).Error
	}); err != nil {
		return nil, err
	}

	return &RefreshResult{
		AccessToken:     access,
		AccessExpireAt:  now.Add(time.Duration(accessHours) * time.Hour),
		RefreshToken:    refresh,
		RefreshExpireAt: record.ExpiresAt,
	}, nil
}

func (s *AuthService) RevokeRefreshToken(refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.db.Model(&models.RefreshToken{}).
		Where("token_hash = ? AND revoked_at IS NULL", utils.HashToken(refreshToken)).
		Update("revoked_at", time.Now()).Error
}

func (s *AuthService) GetUserByID(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=6"`
}

// ChangePassword also revokes every outstanding refresh token.
func (s *AuthService) ChangePassword(userID uint, req *ChangePasswordRequest) error {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return err
	}
	if !utils.CheckPassword(req.CurrentPassword, user.Password) {
		return ErrIncorrectPassword
	}
	hash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(user).Update("password", hash).Error; err != nil {
			return err
		}
		return tx.Model(&models.RefreshToken{}).
			Where("user_id = ? AND revoked_at IS NULL", user.ID).
			Update("revoked_at", time.Now()).Error
	})
}
