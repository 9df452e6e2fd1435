package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"titanhub/internal/middleware"
	"titanhub/internal/services"
)

type UserHandler struct {
	auth *services.AuthService
	log  *slog.Logger
}

func NewUserHandler(auth *services.AuthService, log *slog.Logger) *UserHandler {
	return &UserHandler{auth: auth, log: log}
}

// Profile - 用户主页 /api/user/:id
func (h *UserHandler) Profile(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	user, err := h.auth.GetProfile(c.Request.Context(), middleware.CurrentUser(c), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) List(c *gin.Context) {
	users, err := h.auth.ListUsers(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// UpdateProfile edits the caller's own profile.
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var in services.ProfileInput
	if err := bindJSON(c, &in); err != nil {
		writeError(c, h.log, err)
		return
	}
	user, err := h.auth.UpdateProfile(c.Request.Context(), middleware.CurrentUser(c), in)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
