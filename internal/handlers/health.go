package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/huangang/campy/internal/services"
	"gorm.io/gorm"
)

// HealthHandler reports the state of each subsystem.
type HealthHandler struct {
	db    *gorm.DB
	queue services.DeliveryQueue
	hub   *services.EventHub
}

func NewHealthHandler(db *gorm.DB, queue services.DeliveryQueue, hub *services.EventHub) *HealthHandler {
	return &HealthHandler{db: db, queue: queue, hub: hub}
}

// CheckHealth
// GET /health
func (h *HealthHandler) CheckHealth(c *gin.Context) {
	overall := "healthy"
	status := http.StatusOK

	dbStatus := "ok"
	sqlDB, err := h.db.DB()
	if err != nil {
		dbStatus = "error: " + err.Error()
	} else if err := sqlDB.Ping(); err != nil {
		dbStatus = "error: " + err.Error()
	}
	if dbStatus != "ok" {
		overall = "unhealthy"
		status = http.StatusServiceUnavailable
	}

	queueMode := "sync"
	if h.queue != nil && h.queue.IsAsync() {
		queueMode = "async (Redis)"
	}

	c.JSON(status, gin.H{
		"status":  overall,
		"service": "campy",
		"components": gin.H{
			"database":    dbStatus,
			"queue_mode":  queueMode,
			"sse_clients": h.hub.ClientCount(),
		},
	})
}
