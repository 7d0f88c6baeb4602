package handlers

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/huangang/campy/internal/middleware"
	"github.com/huangang/campy/internal/services"
	"github.com/huangang/campy/internal/utils"
	"github.com/huangang/campy/pkg/logger"
	"github.com/huangang/campy/pkg/response"
)

// SSEHandler streams notification, message and unread-count events.
type SSEHandler struct {
	hub           *services.EventHub
	notifications *services.NotificationService
}

func NewSSEHandler(hub *services.EventHub, notifications *services.NotificationService) *SSEHandler {
	return &SSEHandler{hub: hub, notifications: notifications}
}

// Stream accepts the token as ?token= since EventSource cannot set headers
// GET /api/events
func (h *SSEHandler) Stream(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token, _ = middleware.BearerToken(c)
	}
	if token == "" {
		response.Unauthorized(c, "Unauthorized")
		return
	}

	claims, err := utils.ParseToken(token)
	if err != nil {
		response.Unauthorized(c, "Invalid token")
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	clientID := uuid.New().String()
	events := h.hub.Subscribe(clientID, claims.UserID)
	defer h.hub.Unsubscribe(clientID)

	logger.Info().Str("client_id", clientID).Uint("user_id", claims.UserID).Int("total", h.hub.ClientCount()).Msg("SSE client connected")

	if n, err := h.notifications.UnreadCount(claims.UserID); err == nil {
		writeEvent(c, services.Event{Type: services.EventUnreadCount, Data: gin.H{"count": n}})
	}

	c.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-events:
			if !ok {
				return false
			}
			writeEvent(c, event)
			return true
		case <-c.Request.Context().Done():
			logger.Info().Str("client_id", clientID).Msg("SSE client disconnected")
			return false
		}
	})
}

func writeEvent(c *gin.Context, event services.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		logger.Error().Err(err).Msg("SSE marshal error")
		return
	}
	fmt.Fprintf(c.Writer, "data: %s\n\n", data)
	c.Writer.Flush()
}
