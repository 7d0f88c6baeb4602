package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/huangang/campy/internal/models"
	"github.com/huangang/campy/internal/services"
	"github.com/huangang/campy/internal/utils"
	"github.com/huangang/campy/pkg/response"
	"gorm.io/gorm"
)

const (
	ContextUserID = "user_id"
	ContextEmail  = "email"
	ContextActor  = "actor"
)

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(c *gin.Context) (string, bool) {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// AuthRequired rejects requests without a valid access token.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			response.Unauthorized(c, "authorization header required")
			c.Abort()
			return
		}
		token, ok := BearerToken(c)
		if !ok {
			response.Unauthorized(c, "invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := utils.ParseToken(token)
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextEmail, claims.Email)
		c.Next()
	}
}

// LoadActor attaches a per-request authorization actor. It must run after
// AuthRequired.
func LoadActor(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ContextActor, services.NewActor(c.Request.Context(), db, GetUserID(c)))
		c.Next()
	}
}

func GetUserID(c *gin.Context) uint {
	if id, exists := c.Get(ContextUserID); exists {
		return id.(uint)
	}
	return 0
}

func GetEmail(c *gin.Context) string {
	return c.GetString(ContextEmail)
}

// GetActor returns the actor set by LoadActor, building one on the global
// database when the route has none.
func GetActor(c *gin.Context) services.Actor {
	if v, exists := c.Get(ContextActor); exists {
		if actor, ok := v.(services.Actor); ok {
			return actor
		}
	}
	actor := services.NewActor(c.Request.Context(), models.GetDB(), GetUserID(c))
	c.Set(ContextActor, actor)
	return actor
}
