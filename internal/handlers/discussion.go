package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"titanhub/internal/middleware"
	"titanhub/internal/services"
)

type DiscussionHandler struct {
	content *services.ContentService
	log     *slog.Logger
}

func NewDiscussionHandler(content *services.ContentService, log *slog.Logger) *DiscussionHandler {
	return &DiscussionHandler{content: content, log: log}
}

func (h *DiscussionHandler) List(c *gin.Context) {
	discussions, err := h.content.ListDiscussions(c.Request.Context())
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, discussions)
}

func (h *DiscussionHandler) Top(c *gin.Context) {
	limit, err := topLimit(c)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	discussions, err := h.content.TopDiscussions(c.Request.Context(), limit)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, discussions)
}

// Get includes the rendered description as descriptionHtml.
func (h *DiscussionHandler) Get(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	discussion, err := h.content.GetDiscussion(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, discussion)
}

func (h *DiscussionHandler) Create(c *gin.Context) {
	var in services.DiscussionInput
	if err := bindJSON(c, &in); err != nil {
		writeError(c, h.log, err)
		return
	}
	discussion, err := h.content.CreateDiscussion(c.Request.Context(), middleware.CurrentUser(c), in)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, discussion)
}

func (h *DiscussionHandler) ListComments(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	comments, err := h.content.ListComments(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, comments)
}

func (h *DiscussionHandler) AddComment(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	var in services.CommentInput
	if err := bindJSON(c, &in); err != nil {
		writeError(c, h.log, err)
		return
	}
	comment, err := h.content.AddComment(c.Request.Context(), middleware.CurrentUser(c), id, in)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}
