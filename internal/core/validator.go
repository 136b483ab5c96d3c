package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"floodwatch/internal/types"
)

// ValidationError describes a single failed field validation.
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationResult collects validation errors plus non-fatal warnings.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []string
}

// IsValid reports whether the result carries no errors. Warnings alone do
// not invalidate a request.
func (r ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

// Validator wraps go-playground/validator with the platform's custom tags.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a Validator and registers the custom validation tags.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// hazard_parameter: the field must be one of the monitored parameters.
	_ = v.RegisterValidation("hazard_parameter", func(fl validator.FieldLevel) bool {
		return types.Parameter(fl.Field().String()).Valid()
	})

	// severity_tier: the integer field must be a tier on the threshold ladder.
	_ = v.RegisterValidation("severity_tier", func(fl validator.FieldLevel) bool {
		t := fl.Field().Int()
		return t >= int64(types.TierNormal) && t <= int64(types.TierCatastrophic)
	})

	// probability: a percentage in [0, 100].
	_ = v.RegisterValidation("probability", func(fl validator.FieldLevel) bool {
		p := fl.Field().Float()
		return p >= 0 && p <= 100
	})

	return &Validator{validate: v}
}

// ValidateStruct validates a request struct against its validate tags.
// Returns nil on success, or an AppError whose details carry the full list
// of per-field failures.
func (v *Validator) ValidateStruct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "validation could not be performed", err)
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "validation failed", err)
	}

	result := ValidationResult{Errors: make([]ValidationError, 0, len(fieldErrs))}
	for _, fe := range fieldErrs {
		result.Errors = append(result.Errors, ValidationError{
			Field:   strings.ToLower(fe.Field()),
			Code:    fe.Tag(),
			Message: messageForTag(fe),
		})
	}

	code := codeForTag(fieldErrs[0].Tag())
	return types.NewAppErrorWithDetails(code, result.Errors[0].Message, nil, map[string]any{
		"validation_errors": result.Errors,
	})
}

func codeForTag(tag string) types.ErrorCode {
	switch tag {
	case "required":
		return types.ErrCodeValidationMissingField
	case "hazard_parameter":
		return types.ErrCodeValidationInvalidParameter
	default:
		return types.ErrCodeValidationInvalidValue
	}
}

func messageForTag(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "hazard_parameter":
		return fmt.Sprintf("%s must be a monitored parameter", field)
	case "severity_tier":
		return fmt.Sprintf("%s must be a severity tier between 0 and 5", field)
	case "probability":
		return fmt.Sprintf("%s must be between 0 and 100", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}
