package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/campy/internal/middleware"
	"github.com/huangang/campy/internal/services"
	"github.com/huangang/campy/pkg/response"
)

type GanttHandler struct {
	ganttService *services.GanttService
}

func NewGanttHandler(ganttService *services.GanttService) *GanttHandler {
	return &GanttHandler{ganttService: ganttService}
}

// Chart lays out a project's activities on a timeline
// GET /api/projects/:id/gantt?width=&scale=&padded=
func (h *GanttHandler) Chart(c *gin.Context) {
	projectID, ok := parseID(c, "id", "project")
	if !ok {
		return
	}

	var req services.GanttRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	chart, err := h.ganttService.Chart(middleware.GetActor(c), projectID, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, chart)
}
