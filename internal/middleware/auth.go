package middleware

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	"titanhub/internal/apperror"
	"titanhub/internal/models"
	"titanhub/internal/session"
)

const CheckUserKey = "user"

// PrincipalResolver maps a session id to its user; AuthService implements it.
// session.ErrNotFound means the session is gone, any other error that the
// lookup could not be done.
type PrincipalResolver interface {
	LookupPrincipal(ctx context.Context, sessionID string) (*models.User, error)
}

// LoadUser resolves the session cookie to a user once per request and stores
// it under CheckUserKey. The cookie is cleared only when its session is gone;
// a failed lookup leaves the request anonymous but keeps the cookie.
func LoadUser(resolver PrincipalResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if sid := SessionID(c); sid != "" {
			user, err := resolver.LookupPrincipal(c.Request.Context(), sid)
			switch {
			case err == nil:
				c.Set(CheckUserKey, user)
			case errors.Is(err, session.ErrNotFound):
				_ = ClearSessionID(c)
			}
		}
		c.Next()
	}
}

// CurrentUser returns the user LoadUser stored, or nil for anonymous requests.
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(CheckUserKey); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}

// AuthRequired ensures a user is logged in
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			abortWithError(c, apperror.Unauthenticated())
			return
		}
		c.Next()
	}
}

// AdminRequired lets only administrators through: 401 for anonymous
// requests, 403 for everyone else.
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		u := CurrentUser(c)
		switch {
		case u == nil:
			abortWithError(c, apperror.Unauthenticated())
			return
		case !u.IsAdmin:
			abortWithError(c, apperror.Forbidden())
			return
		}
		c.Next()
	}
}

func abortWithError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(apperror.HTTPStatus(err), gin.H{
		"error":   apperror.Code(err),
		"message": apperror.PublicMessage(err),
	})
}
