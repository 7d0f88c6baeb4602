package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/huangang/campy/internal/middleware"
	"github.com/huangang/campy/internal/services"
	"github.com/huangang/campy/pkg/response"
)

const importTemplateName = "activities_import_template.csv"

type ImportHandler struct {
	importService *services.ImportService
}

func NewImportHandler(importService *services.ImportService) *ImportHandler {
	return &ImportHandler{importService: importService}
}

// Preview parses the first rows of an uploaded CSV without saving
// POST /api/projects/:id/import/preview
func (h *ImportHandler) Preview(c *gin.Context) {
	h.handleUpload(c, h.importService.Preview)
}

// Import saves every valid row of an uploaded CSV
// POST /api/projects/:id/import
func (h *ImportHandler) Import(c *gin.Context) {
	h.handleUpload(c, h.importService.Import)
}

func (h *ImportHandler) handleUpload(c *gin.Context, run func(services.Actor, uint, io.Reader) (*services.ImportResult, error)) {
	projectID, ok := parseID(c, "id", "project")
	if !ok {
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "Please select a file to import")
		return
	}
	file, err := header.Open()
	if err != nil {
		response.BadRequest(c, "Error opening file: "+err.Error())
		return
	}
	defer file.Close()

	result, err := run(middleware.GetActor(c), projectID, file)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, result)
}

// Template downloads a sample import file
// GET /api/import/template
func (h *ImportHandler) Template(c *gin.Context) {
	data, err := h.importService.Template()
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+importTemplateName+`"`)
	c.Data(http.StatusOK, "text/csv", data)
}
