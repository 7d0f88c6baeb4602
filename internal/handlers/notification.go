package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/campy/internal/middleware"
	"github.com/huangang/campy/internal/services"
	"github.com/huangang/campy/pkg/response"
)

type NotificationHandler struct {
	notificationService *services.NotificationService
}

func NewNotificationHandler(notificationService *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// List returns recent notifications, optionally by category or unread only
// GET /api/notifications
func (h *NotificationHandler) List(c *gin.Context) {
	var req services.ListNotificationsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	notifications, err := h.notificationService.List(middleware.GetUserID(c), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, notifications)
}

// Counts returns unread counts per category
// GET /api/notifications/counts
func (h *NotificationHandler) Counts(c *gin.Context) {
	counts, err := h.notificationService.Counts(middleware.GetUserID(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, counts)
}

// UnreadCount
// GET /api/notifications/unread-count
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	n, err := h.notificationService.UnreadCount(middleware.GetUserID(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"count": n})
}

// MarkRead
// POST /api/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, ok := parseID(c, "id", "notification")
	if !ok {
		return
	}

	view, err := h.notificationService.MarkRead(middleware.GetUserID(c), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, view)
}

// MarkUnread
// POST /api/notifications/:id/unread
func (h *NotificationHandler) MarkUnread(c *gin.Context) {
	id, ok := parseID(c, "id", "notification")
	if !ok {
		return
	}

	view, err := h.notificationService.MarkUnread(middleware.GetUserID(c), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, view)
}

// MarkAllRead
// POST /api/notifications/read-all
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	n, err := h.notificationService.MarkAllRead(middleware.GetUserID(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"updated": n})
}

// Delete
// DELETE /api/notifications/:id
func (h *NotificationHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id", "notification")
	if !ok {
		return
	}

	if err := h.notificationService.Delete(middleware.GetUserID(c), id); err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "notification deleted"})
}
