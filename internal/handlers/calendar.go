package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/campy/internal/middleware"
	"github.com/huangang/campy/internal/services"
	"github.com/huangang/campy/pkg/response"
)

type CalendarHandler struct {
	calendarService *services.CalendarService
}

func NewCalendarHandler(calendarService *services.CalendarService) *CalendarHandler {
	return &CalendarHandler{calendarService: calendarService}
}

// Month returns the grid for ?month=YYYY-MM, defaulting to the current month
// GET /api/calendar
func (h *CalendarHandler) Month(c *gin.Context) {
	month, err := h.calendarService.Month(middleware.GetActor(c), c.Query("month"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, month)
}

// CreateEvent
// POST /api/calendar/events
func (h *CalendarHandler) CreateEvent(c *gin.Context) {
	var in services.CalendarEventInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	event, err := h.calendarService.CreateEvent(middleware.GetActor(c), &in)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Created(c, event)
}

// GetEvent
// GET /api/calendar/events/:id
func (h *CalendarHandler) GetEvent(c *gin.Context) {
	id, ok := parseID(c, "id", "event")
	if !ok {
		return
	}

	event, err := h.calendarService.GetEvent(middleware.GetActor(c), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, event)
}

// UpdateEvent
// PUT /api/calendar/events/:id
func (h *CalendarHandler) UpdateEvent(c *gin.Context) {
	id, ok := parseID(c, "id", "event")
	if !ok {
		return
	}

	var in services.CalendarEventInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	event, err := h.calendarService.UpdateEvent(middleware.GetActor(c), id, &in)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, event)
}

// DeleteEvent
// DELETE /api/calendar/events/:id
func (h *CalendarHandler) DeleteEvent(c *gin.Context) {
	id, ok := parseID(c, "id", "event")
	if !ok {
		return
	}

	if err := h.calendarService.DeleteEvent(middleware.GetActor(c), id); err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "event deleted successfully"})
}
