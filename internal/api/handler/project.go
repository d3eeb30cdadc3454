package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/timmy/folio/internal/domain"
)

// ProjectStore is the project persistence used by the handler.
type ProjectStore interface {
	Create(ctx context.Context, project *domain.Project) error
	List(ctx context.Context, limit int) ([]domain.Project, error)
}

// ProjectHandler handles project endpoints.
type ProjectHandler struct {
	projects ProjectStore
}

func NewProjectHandler(projects ProjectStore) *ProjectHandler {
	return &ProjectHandler{projects: projects}
}

// List handles GET /api/v1/projects.
func (h *ProjectHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	projects, err := h.projects.List(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"projects": projects,
		"total":    len(projects),
	})
}

// Create handles POST /api/v1/projects.
func (h *ProjectHandler) Create(c *gin.Context) {
	var project domain.Project
	if err := c.ShouldBindJSON(&project); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}
	project.ID = ""
	project.Name = strings.TrimSpace(project.Name)
	if project.Name == "" {
		respondError(c, &domain.ValidationError{Field: "name", Message: "name is required"})
		return
	}

	if err := h.projects.Create(c.Request.Context(), &project); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, project)
}
