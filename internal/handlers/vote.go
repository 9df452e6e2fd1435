package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"titanhub/internal/services"
)

// VoteHandler takes upvotes. Voting needs no login and is not deduplicated;
// the router puts a rate limiter in front of it.
type VoteHandler struct {
	content *services.ContentService
	log     *slog.Logger
}

func NewVoteHandler(content *services.ContentService, log *slog.Logger) *VoteHandler {
	return &VoteHandler{content: content, log: log}
}

func (h *VoteHandler) UpvoteProject(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	project, err := h.content.UpvoteProject(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

func (h *VoteHandler) UpvoteDiscussion(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	discussion, err := h.content.UpvoteDiscussion(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, discussion)
}
