package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"titanhub/internal/middleware"
	"titanhub/internal/services"
)

type ProjectHandler struct {
	content *services.ContentService
	log     *slog.Logger
}

func NewProjectHandler(content *services.ContentService, log *slog.Logger) *ProjectHandler {
	return &ProjectHandler{content: content, log: log}
}

func (h *ProjectHandler) List(c *gin.Context) {
	projects, err := h.content.ListProjects(c.Request.Context())
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, projects)
}

func (h *ProjectHandler) Top(c *gin.Context) {
	limit, err := topLimit(c)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	projects, err := h.content.TopProjects(c.Request.Context(), limit)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, projects)
}

func (h *ProjectHandler) Get(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	project, err := h.content.GetProject(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

func (h *ProjectHandler) Create(c *gin.Context) {
	var in services.ProjectInput
	if err := bindJSON(c, &in); err != nil {
		writeError(c, h.log, err)
		return
	}
	project, err := h.content.CreateProject(c.Request.Context(), middleware.CurrentUser(c), in)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, project)
}
