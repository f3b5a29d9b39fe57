package serrors

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

type BaseError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	LocaleKey string `json:"-"`
}

func (e *BaseError) Error() string {
	return e.Message
}

func NewError(code, message, localeKey string) *BaseError {
	return &BaseError{
		Code:      code,
		Message:   message,
		LocaleKey: localeKey,
	}
}

func NewFieldRequiredError(field, localeKey string) *BaseError {
	return NewError("FIELD_REQUIRED", fmt.Sprintf("%s is required", field), localeKey)
}

// ValidationErrors maps a struct field name to a human readable problem.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for field, msg := range v {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	return strings.Join(parts, "; ")
}

// ProcessValidatorErrors turns validator output into ValidationErrors keyed by field name.
// fieldName may rename a field for display; an empty result keeps the struct name.
func ProcessValidatorErrors(errs validator.ValidationErrors, fieldName func(string) string) ValidationErrors {
	out := make(ValidationErrors, len(errs))
	for _, fe := range errs {
		name := fe.Field()
		if fieldName != nil {
			if renamed := fieldName(fe.Field()); renamed != "" {
				name = renamed
			}
		}
		out[fe.Field()] = describe(name, fe)
	}
	return out
}

func describe(name string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", name)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", name, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", name, fe.Param())
	case "gtefield":
		return fmt.Sprintf("%s must not be before %s", name, fe.Param())
	case "uuid", "uuid4":
		return fmt.Sprintf("%s must be a valid id", name)
	default:
		return fmt.Sprintf("%s is invalid (%s)", name, fe.Tag())
	}
}
