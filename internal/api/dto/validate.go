package dto

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/spec-kit/agency-dashboard/pkg/util/errorutil"
)

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the struct tags of a request and returns a validation
// error whose details name every failing field.
func Validate(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	details := make(map[string]any, len(validationErrs))
	for _, fieldErr := range validationErrs {
		field := fieldErr.Field()
		param := fieldErr.Param()
		switch fieldErr.Tag() {
		case "required":
			details[field] = "required"
		case "min":
			details[field] = "must be at least " + param + " characters"
		case "email":
			details[field] = "invalid email"
		case "len", "numeric":
			details[field] = "must be exactly 10 digits"
		case "datetime":
			details[field] = "must match " + param
		case "oneof":
			details[field] = "must be one of " + param
		default:
			details[field] = "invalid"
		}
	}
	return apperrors.NewValidationError("validation failed", details)
}
