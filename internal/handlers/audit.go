package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/campy/internal/middleware"
	"github.com/huangang/campy/internal/services"
	"github.com/huangang/campy/pkg/response"
)

type AuditHandler struct {
	auditService *services.AuditService
}

func NewAuditHandler(auditService *services.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

// List pages through a project's audit trail
// GET /api/projects/:id/audit-logs
func (h *AuditHandler) List(c *gin.Context) {
	projectID, ok := parseID(c, "id", "project")
	if !ok {
		return
	}

	var req services.AuditListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	logs, err := h.auditService.ListForProject(middleware.GetActor(c), projectID, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, logs)
}
