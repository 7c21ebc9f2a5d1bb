package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// RequestValidator implements echo.Validator with go-playground/validator.
// Field names in errors are the JSON names of the request struct.
type RequestValidator struct {
	validate *validator.Validate
}

// NewRequestValidator creates a new RequestValidator
func NewRequestValidator() *RequestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterValidation("decimal", func(fl validator.FieldLevel) bool {
		_, err := decimal.NewFromString(fl.Field().String())
		return err == nil
	})
	return &RequestValidator{validate: v}
}

// Validate validates a bound request struct
func (v *RequestValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

// bindAndValidate binds the request body into req and validates it. On failure the
// problem response has already been written and the returned error is the handler's result.
func bindAndValidate(c echo.Context, req interface{}) (bool, error) {
	if err := c.Bind(req); err != nil {
		return false, NewValidationError(c, "Invalid request body", nil)
	}
	if err := c.Validate(req); err != nil {
		return false, NewValidationError(c, "Validation failed", toValidationErrors(err))
	}
	return true, nil
}

func toValidationErrors(err error) []ValidationError {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []ValidationError{{Field: "body", Message: err.Error()}}
	}

	result := make([]ValidationError, len(fieldErrs))
	for i, fe := range fieldErrs {
		result[i] = ValidationError{Field: fieldPath(fe), Message: fieldMessage(fe)}
	}
	return result
}

// fieldPath drops the root struct name: "PaymentRequest.discount.kind" → "discount.kind"
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Is required"
	case "min":
		return fmt.Sprintf("Must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("Must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("Must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "uuid":
		return "Must be a UUID"
	case "datetime":
		return fmt.Sprintf("Must be a date in %s format", fe.Param())
	case "decimal":
		return "Must be a valid decimal number"
	}
	return fmt.Sprintf("Failed %s validation", fe.Tag())
}

var _ echo.Validator = (*RequestValidator)(nil)
