// Package apperror defines the coded errors the services return and how they
// surface over HTTP. Anything without one of these codes is an internal error
// and is reported to clients as a generic 500.
package apperror

import (
	"net/http"

	"github.com/samber/oops"
)

const (
	CodeInvalidArgument    = "INVALID_ARGUMENT"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeUsernameTaken      = "USERNAME_TAKEN"
	CodeUnauthenticated    = "UNAUTHENTICATED"
	CodeForbidden          = "FORBIDDEN"
	CodeNotFound           = "NOT_FOUND"
	CodeRateLimited        = "RATE_LIMITED"
	CodeInternal           = "INTERNAL"
)

// InternalMessage is the only text clients ever see for uncoded errors.
const InternalMessage = "An internal error occurred"

var statusByCode = map[string]int{
	CodeInvalidArgument:    http.StatusBadRequest,
	CodeUsernameTaken:      http.StatusBadRequest,
	CodeInvalidCredentials: http.StatusUnauthorized,
	CodeUnauthenticated:    http.StatusUnauthorized,
	CodeForbidden:          http.StatusForbidden,
	CodeNotFound:           http.StatusNotFound,
	CodeRateLimited:        http.StatusTooManyRequests,
}

func InvalidArgument(format string, args ...any) error {
	return oops.Code(CodeInvalidArgument).Errorf(format, args...)
}

func InvalidCredentials() error {
	return oops.Code(CodeInvalidCredentials).Errorf("Invalid username or password")
}

func UsernameTaken(username string) error {
	return oops.Code(CodeUsernameTaken).With("username", username).Errorf("Username already exists")
}

func Unauthenticated() error {
	return oops.Code(CodeUnauthenticated).Errorf("Not authenticated")
}

func Forbidden() error {
	return oops.Code(CodeForbidden).Errorf("Admin privileges required")
}

func NotFound(resource string, id any) error {
	return oops.Code(CodeNotFound).With("resource", resource, "id", id).Errorf("%s not found", resource)
}

func RateLimited() error {
	return oops.Code(CodeRateLimited).Errorf("Too many requests")
}

// Code returns the error code carried by err, or CodeInternal.
func Code(err error) string {
	if err == nil {
		return ""
	}
	if oopsErr, ok := oops.AsOops(err); ok {
		if code, ok := oopsErr.Code().(string); ok && code != "" {
			if _, known := statusByCode[code]; known {
				return code
			}
		}
	}
	return CodeInternal
}

// Is reports whether err carries the given code.
func Is(err error, code string) bool {
	return err != nil && Code(err) == code
}

// HTTPStatus maps err to a response status. Unknown errors are 500.
func HTTPStatus(err error) int {
	if status, ok := statusByCode[Code(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// PublicMessage is the text that may be shown to an untrusted client.
func PublicMessage(err error) string {
	if Code(err) == CodeInternal {
		return InternalMessage
	}
	if oopsErr, ok := oops.AsOops(err); ok {
		return oopsErr.Error()
	}
	return InternalMessage
}
