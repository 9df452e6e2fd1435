// Package services holds the business rules of the platform. Handlers call
// into it; it talks to storage only through the store and session contracts.
package services

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"titanhub/internal/apperror"
	"titanhub/internal/metrics"
	"titanhub/internal/session"
	"titanhub/internal/store"
	"titanhub/internal/utils"
)

// Deps are the collaborators shared by the services. Zero fields get
// working defaults in withDefaults.
type Deps struct {
	Store    store.Store
	Sessions session.Store
	Hasher   *utils.PasswordHasher
	Events   Publisher
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Sessions == nil {
		d.Sessions = session.NewMemoryStore()
	}
	if d.Hasher == nil {
		d.Hasher = utils.NewPasswordHasher()
	}
	if d.Events == nil {
		d.Events = NopPublisher{}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return d
}

var handlePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("handle", func(fl validator.FieldLevel) bool {
		return handlePattern.MatchString(fl.Field().String())
	})
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// checkInput runs struct validation and turns the first failure into an
// INVALID_ARGUMENT error with a readable message.
func checkInput(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperror.InvalidArgument("invalid input")
	}
	return apperror.InvalidArgument("%s", describe(verrs[0]))
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	if field != "" {
		field = strings.ToUpper(field[:1]) + field[1:]
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "email":
		return "Please enter a valid email"
	case "url", "http_url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "handle":
		return fmt.Sprintf("%s may only contain letters, digits, '.', '_' and '-'", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", field, fe.Param())
	}
	return fmt.Sprintf("%s is invalid", field)
}

// notFound converts the store sentinel into the coded error, leaving every
// other error untouched.
func notFound(err error, resource string, id any) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperror.NotFound(resource, id)
	}
	return err
}
