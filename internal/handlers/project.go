package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/campy/internal/middleware"
	"github.com/huangang/campy/internal/services"
	"github.com/huangang/campy/pkg/response"
)

type ProjectHandler struct {
	projectService *services.ProjectService
}

func NewProjectHandler(projectService *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{projectService: projectService}
}

// List returns the projects the caller owns or belongs to
// GET /api/projects
func (h *ProjectHandler) List(c *gin.Context) {
	projects, err := h.projectService.List(middleware.GetActor(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, projects)
}

// GetByID returns a project by ID
// GET /api/projects/:id
func (h *ProjectHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c, "id", "project")
	if !ok {
		return
	}

	project, err := h.projectService.Get(middleware.GetActor(c), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, project)
}

// Create creates a new project owned by the caller
// POST /api/projects
func (h *ProjectHandler) Create(c *gin.Context) {
	var req services.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	project, err := h.projectService.Create(middleware.GetActor(c), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Created(c, project)
}

// Update updates a project
// PUT /api/projects/:id
func (h *ProjectHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id", "project")
	if !ok {
		return
	}

	var req services.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	project, err := h.projectService.Update(middleware.GetActor(c), id, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, project)
}

// Delete deletes a project with everything attached to it
// DELETE /api/projects/:id
func (h *ProjectHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id", "project")
	if !ok {
		return
	}

	if err := h.projectService.Delete(middleware.GetActor(c), id); err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "project deleted successfully"})
}

// Members lists the team
// GET /api/projects/:id/members
func (h *ProjectHandler) Members(c *gin.Context) {
	id, ok := parseID(c, "id", "project")
	if !ok {
		return
	}

	members, err := h.projectService.Members(middleware.GetActor(c), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, members)
}

// AssignableMembers lists who activities can be assigned to
// GET /api/projects/:id/assignable
func (h *ProjectHandler) AssignableMembers(c *gin.Context) {
	id, ok := parseID(c, "id", "project")
	if !ok {
		return
	}

	members, err := h.projectService.AssignableMembers(middleware.GetActor(c), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, members)
}
