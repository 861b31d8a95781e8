package utils

import (
	"errors"
	"reflect"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared validator. decimal.Decimal fields are validated as
// float64 so tags like `validate:"gte=0,lte=100"` work on percentages.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
			if d, ok := field.Interface().(decimal.Decimal); ok {
				f, _ := d.Float64()
				return f
			}
			return nil
		}, decimal.Decimal{})
	})
	return validate
}

// ValidateStruct runs struct tag validation and converts failures into a
// VALIDATION_ERROR carrying field -> tag details.
func ValidateStruct(input any) error {
	err := Validator().Struct(input)
	if err == nil {
		return nil
	}
	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		return err
	}
	details := make(map[string]any)
	for field, tag := range ProcessValidationErrors(err) {
		details[field] = tag
	}
	return &DomainError{Code: ErrCodeValidation, Message: "invalid input", Details: details, Err: err}
}

func ProcessValidationErrors(err error) map[string]string {
	errorResponse := make(map[string]string)

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return errorResponse
	}
	for _, ve := range validationErrors {
		errorResponse[ve.Field()] = ve.Tag()
	}

	return errorResponse
}

// ValidationFailed builds a VALIDATION_ERROR for a single field.
func ValidationFailed(field string, message string) error {
	return &DomainError{Code: ErrCodeValidation, Message: message, Details: map[string]any{field: message}}
}
