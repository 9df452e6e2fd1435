// Package handlers exposes the services as JSON over HTTP.
package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"titanhub/internal/apperror"
	"titanhub/internal/logging"
	"titanhub/internal/services"
	"titanhub/internal/utils"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeError maps err to its status. Uncoded errors are logged and answered
// with a generic 500 so no internal detail reaches the client.
func writeError(c *gin.Context, log *slog.Logger, err error) {
	status := apperror.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logging.LogError(c.Request.Context(), log, "request failed", err)
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error:   apperror.Code(err),
		Message: apperror.PublicMessage(err),
	})
}

// bindJSON decodes the body into dst. Validation is left to the services.
func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperror.InvalidArgument("Request body is required")
		}
		return apperror.InvalidArgument("Invalid request body")
	}
	return nil
}

// pathID reads a positive numeric path parameter.
func pathID(c *gin.Context, name string) (uint, error) {
	id, ok := utils.ParseID(c.Param(name))
	if !ok {
		return 0, apperror.InvalidArgument("Invalid %s", name)
	}
	return id, nil
}

// topLimit reads ?limit=, defaulting to services.DefaultTopLimit.
func topLimit(c *gin.Context) (int, error) {
	raw, ok := c.GetQuery("limit")
	if !ok || raw == "" {
		return services.DefaultTopLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.InvalidArgument("limit must be an integer")
	}
	return services.ClampTopLimit(n), nil
}
