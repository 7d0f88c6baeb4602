package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/campy/internal/middleware"
	"github.com/huangang/campy/internal/services"
	"github.com/huangang/campy/pkg/response"
)

type DashboardHandler struct {
	dashboardService *services.DashboardService
}

func NewDashboardHandler(dashboardService *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

// GetStats returns the caller's activity and project overview
// GET /api/dashboard
func (h *DashboardHandler) GetStats(c *gin.Context) {
	stats, err := h.dashboardService.Get(middleware.GetActor(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, stats)
}
