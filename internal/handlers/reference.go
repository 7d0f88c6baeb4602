package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/campy/internal/services"
	"github.com/huangang/campy/pkg/response"
)

// ReferenceHandler serves the shared discipline and zone lists and the
// supported holiday calendars.
type ReferenceHandler struct {
	referenceService *services.ReferenceService
	holidayService   *services.HolidayService
}

func NewReferenceHandler(referenceService *services.ReferenceService, holidayService *services.HolidayService) *ReferenceHandler {
	return &ReferenceHandler{referenceService: referenceService, holidayService: holidayService}
}

// GET /api/disciplines
func (h *ReferenceHandler) Disciplines(c *gin.Context) {
	disciplines, err := h.referenceService.Disciplines()
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, disciplines)
}

// POST /api/disciplines
func (h *ReferenceHandler) CreateDiscipline(c *gin.Context) {
	var req services.NameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	discipline, err := h.referenceService.CreateDiscipline(&req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Created(c, discipline)
}

// PUT /api/disciplines/:id
func (h *ReferenceHandler) UpdateDiscipline(c *gin.Context) {
	id, ok := parseID(c, "id", "discipline")
	if !ok {
		return
	}

	var req services.NameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	discipline, err := h.referenceService.UpdateDiscipline(id, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, discipline)
}

// DELETE /api/disciplines/:id
func (h *ReferenceHandler) DeleteDiscipline(c *gin.Context) {
	id, ok := parseID(c, "id", "discipline")
	if !ok {
		return
	}

	if err := h.referenceService.DeleteDiscipline(id); err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "discipline deleted successfully"})
}

// GET /api/zones
func (h *ReferenceHandler) Zones(c *gin.Context) {
	zones, err := h.referenceService.Zones()
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, zones)
}

// POST /api/zones
func (h *ReferenceHandler) CreateZone(c *gin.Context) {
	var req services.NameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	zone, err := h.referenceService.CreateZone(&req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Created(c, zone)
}

// PUT /api/zones/:id
func (h *ReferenceHandler) UpdateZone(c *gin.Context) {
	id, ok := parseID(c, "id", "zone")
	if !ok {
		return
	}

	var req services.NameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	zone, err := h.referenceService.UpdateZone(id, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, zone)
}

// DELETE /api/zones/:id
func (h *ReferenceHandler) DeleteZone(c *gin.Context) {
	id, ok := parseID(c, "id", "zone")
	if !ok {
		return
	}

	if err := h.referenceService.DeleteZone(id); err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "zone deleted successfully"})
}

// GET /api/holidays/countries
func (h *ReferenceHandler) HolidayCountries(c *gin.Context) {
	response.Success(c, h.holidayService.GetSupportedCountries())
}
