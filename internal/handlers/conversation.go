package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/campy/internal/middleware"
	"github.com/huangang/campy/internal/services"
	"github.com/huangang/campy/pkg/response"
)

type ConversationHandler struct {
	messagingService *services.MessagingService
}

func NewConversationHandler(messagingService *services.MessagingService) *ConversationHandler {
	return &ConversationHandler{messagingService: messagingService}
}

// Teammates lists the users the caller may message
// GET /api/teammates
func (h *ConversationHandler) Teammates(c *gin.Context) {
	users, err := h.messagingService.Teammates(middleware.GetActor(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, users)
}

// List
// GET /api/conversations
func (h *ConversationHandler) List(c *gin.Context) {
	conversations, err := h.messagingService.List(middleware.GetActor(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, conversations)
}

// GetByID returns a conversation with its messages
// GET /api/conversations/:id
func (h *ConversationHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c, "id", "conversation")
	if !ok {
		return
	}

	view, messages, err := h.messagingService.Get(middleware.GetActor(c), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"conversation": view, "messages": messages})
}

// Start opens a conversation with a teammate, reusing an existing one
// POST /api/conversations
func (h *ConversationHandler) Start(c *gin.Context) {
	var req services.StartConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	conversation, err := h.messagingService.Start(middleware.GetActor(c), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, conversation)
}

// Send
// POST /api/conversations/:id/messages
func (h *ConversationHandler) Send(c *gin.Context) {
	id, ok := parseID(c, "id", "conversation")
	if !ok {
		return
	}

	var req services.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	message, err := h.messagingService.Send(middleware.GetActor(c), id, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Created(c, message)
}
