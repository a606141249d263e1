// Package validate checks user input at the orchestrator boundary before any
// request is dispatched to the backend.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
)

// ErrValidation is wrapped by every error returned from this package.
var ErrValidation = errors.New("validation error")

var validate = validator.New()

// The backend accepts both five-field and six-field (with seconds) expressions.
var cronParser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

func init() {
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	validate.RegisterValidation("cron", func(fl validator.FieldLevel) bool {
		return Cron(fl.Field().String()) == nil
	})
}

// Struct validates v against its `validate` tags.
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(msgs, "; "))
}

// ConnectionID rejects empty or blank connection IDs.
func ConnectionID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: connection_id is required", ErrValidation)
	}
	return nil
}

// Page rejects page numbers below 1.
func Page(page int) error {
	if page < 1 {
		return fmt.Errorf("%w: page must be at least 1, got %d", ErrValidation, page)
	}
	return nil
}

// Cron parses expr with the same field layout the backend scheduler uses.
func Cron(expr string) error {
	if strings.TrimSpace(expr) == "" {
		return fmt.Errorf("%w: cron_schedule is required", ErrValidation)
	}
	if _, err := cronParser.Parse(expr); err != nil {
		return fmt.Errorf("%w: invalid cron schedule %q: %v", ErrValidation, expr, err)
	}
	return nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "cron":
		return fmt.Sprintf("%s %q is not a valid cron expression", fe.Field(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}
