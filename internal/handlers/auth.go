package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"titanhub/internal/middleware"
	"titanhub/internal/services"
)

type AuthHandler struct {
	auth *services.AuthService
	log  *slog.Logger
}

func NewAuthHandler(auth *services.AuthService, log *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, log: log}
}

// Register creates an account and logs it in.
func (h *AuthHandler) Register(c *gin.Context) {
	var in services.RegisterInput
	if err := bindJSON(c, &in); err != nil {
		writeError(c, h.log, err)
		return
	}
	user, sid, err := h.auth.Register(c.Request.Context(), in)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	if !h.startSession(c, sid) {
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var in services.LoginInput
	if err := bindJSON(c, &in); err != nil {
		writeError(c, h.log, err)
		return
	}
	user, sid, err := h.auth.Login(c.Request.Context(), in)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	if !h.startSession(c, sid) {
		return
	}
	c.JSON(http.StatusOK, user)
}

// startSession retires the session the request came with, if any, and
// points the cookie at sid.
func (h *AuthHandler) startSession(c *gin.Context, sid string) bool {
	if old := middleware.SessionID(c); old != "" && old != sid {
		if err := h.auth.Logout(c.Request.Context(), old); err != nil {
			h.log.WarnContext(c.Request.Context(), "previous session not destroyed", "error", err)
		}
	}
	if err := middleware.SaveSessionID(c, sid); err != nil {
		writeError(c, h.log, err)
		return false
	}
	return true
}

// Logout always succeeds for the client; the cookie is cleared either way.
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.auth.Logout(c.Request.Context(), middleware.SessionID(c)); err != nil {
		h.log.WarnContext(c.Request.Context(), "logout failed", "error", err)
	}
	_ = middleware.ClearSessionID(c)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// Me returns the logged-in user.
func (h *AuthHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, middleware.CurrentUser(c))
}
