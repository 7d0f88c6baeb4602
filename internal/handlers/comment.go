package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/campy/internal/middleware"
	"github.com/huangang/campy/internal/services"
	"github.com/huangang/campy/pkg/response"
)

type CommentHandler struct {
	commentService *services.CommentService
}

func NewCommentHandler(commentService *services.CommentService) *CommentHandler {
	return &CommentHandler{commentService: commentService}
}

// List returns threads on an activity
// GET /api/activities/:id/comments
func (h *CommentHandler) List(c *gin.Context) {
	activityID, ok := parseID(c, "id", "activity")
	if !ok {
		return
	}

	comments, err := h.commentService.List(middleware.GetActor(c), activityID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, comments)
}

// Create posts a comment or a reply
// POST /api/activities/:id/comments
func (h *CommentHandler) Create(c *gin.Context) {
	activityID, ok := parseID(c, "id", "activity")
	if !ok {
		return
	}

	var req services.CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	comment, err := h.commentService.Create(middleware.GetActor(c), activityID, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Created(c, comment)
}

// Delete
// DELETE /api/comments/:id
func (h *CommentHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id", "comment")
	if !ok {
		return
	}

	if err := h.commentService.Delete(middleware.GetActor(c), id); err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "comment deleted successfully"})
}

// ToggleReaction
// POST /api/comments/:id/reactions
func (h *CommentHandler) ToggleReaction(c *gin.Context) {
	id, ok := parseID(c, "id", "comment")
	if !ok {
		return
	}

	var req services.ReactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	summary, err := h.commentService.ToggleReaction(middleware.GetActor(c), id, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, summary)
}
