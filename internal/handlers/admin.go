package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"titanhub/internal/middleware"
	"titanhub/internal/services"
)

// AdminHandler serves moderation endpoints. The router gates them with
// middleware.AdminRequired and the service checks the role again.
type AdminHandler struct {
	content *services.ContentService
	log     *slog.Logger
}

func NewAdminHandler(content *services.ContentService, log *slog.Logger) *AdminHandler {
	return &AdminHandler{content: content, log: log}
}

type statusRequest struct {
	Status string `json:"status"`
}

// SetDiscussionStatus 修改讨论状态 (active / done / rejected)
func (h *AdminHandler) SetDiscussionStatus(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	var req statusRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, h.log, err)
		return
	}
	discussion, err := h.content.SetDiscussionStatus(c.Request.Context(), middleware.CurrentUser(c), id, req.Status)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, discussion)
}
