package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/campy/internal/middleware"
	"github.com/huangang/campy/internal/services"
	"github.com/huangang/campy/pkg/response"
)

type ActivityHandler struct {
	activityService *services.ActivityService
}

func NewActivityHandler(activityService *services.ActivityService) *ActivityHandler {
	return &ActivityHandler{activityService: activityService}
}

// List returns a project's activities, optionally filtered
// GET /api/projects/:id/activities
func (h *ActivityHandler) List(c *gin.Context) {
	projectID, ok := parseID(c, "id", "project")
	if !ok {
		return
	}

	var req services.ListActivitiesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	activities, err := h.activityService.List(middleware.GetActor(c), projectID, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, activities)
}

// Create
// POST /api/projects/:id/activities
func (h *ActivityHandler) Create(c *gin.Context) {
	projectID, ok := parseID(c, "id", "project")
	if !ok {
		return
	}

	var in services.ActivityInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	activity, err := h.activityService.Create(middleware.GetActor(c), projectID, &in)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Created(c, activity)
}

// GetByID
// GET /api/activities/:id
func (h *ActivityHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c, "id", "activity")
	if !ok {
		return
	}

	activity, err := h.activityService.Get(middleware.GetActor(c), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, activity)
}

// Update changes only the fields present in the body
// PUT /api/activities/:id
func (h *ActivityHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id", "activity")
	if !ok {
		return
	}

	var in services.ActivityInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	activity, err := h.activityService.Update(middleware.GetActor(c), id, &in)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, activity)
}

// ToggleDone
// PATCH /api/activities/:id/toggle
func (h *ActivityHandler) ToggleDone(c *gin.Context) {
	id, ok := parseID(c, "id", "activity")
	if !ok {
		return
	}

	activity, err := h.activityService.ToggleDone(middleware.GetActor(c), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, activity)
}

// Reschedule moves an activity along the Gantt chart
// PUT /api/activities/:id/reschedule
func (h *ActivityHandler) Reschedule(c *gin.Context) {
	id, ok := parseID(c, "id", "activity")
	if !ok {
		return
	}

	var req services.RescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	activity, err := h.activityService.Reschedule(middleware.GetActor(c), id, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, activity)
}

// Delete
// DELETE /api/activities/:id
func (h *ActivityHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id", "activity")
	if !ok {
		return
	}

	if err := h.activityService.Delete(middleware.GetActor(c), id); err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "activity deleted successfully"})
}

// Assigned lists the caller's own activities
// GET /api/my-activities
func (h *ActivityHandler) Assigned(c *gin.Context) {
	activities, err := h.activityService.Assigned(middleware.GetActor(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, activities)
}
