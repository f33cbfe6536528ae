package validation

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"

	"header-rules/internal/common/errors"
)

// headerNamePattern is the character set the host accepts for header names
var headerNamePattern = regexp.MustCompile(`^[a-zA-Z0-9-]+$`)

// IsValidHeaderName reports whether name can be handed to the host engine.
// Names must be non-empty, use only letters, digits and hyphens, and not
// start with a hyphen or underscore.
func IsValidHeaderName(name string) bool {
	if name == "" || strings.HasPrefix(name, "-") || strings.HasPrefix(name, "_") {
		return false
	}
	return headerNamePattern.MatchString(name)
}

// CentralizedValidator provides unified validation using go-playground/validator
type CentralizedValidator struct {
	validator *validator.Validate
}

// ValidationError represents a single validation error with context
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message"`
	Param   string `json:"param,omitempty"`
}

var (
	defaultValidator *CentralizedValidator
	defaultOnce      sync.Once
)

// Default returns a process-wide validator. validator.Validate caches struct
// metadata, so sharing one instance is preferred.
func Default() *CentralizedValidator {
	defaultOnce.Do(func() {
		defaultValidator = NewCentralizedValidator()
	})
	return defaultValidator
}

// NewCentralizedValidator creates a new centralized validator instance
func NewCentralizedValidator() *CentralizedValidator {
	v := validator.New()

	registerRuleValidators(v)

	// Report json names instead of Go field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	return &CentralizedValidator{validator: v}
}

// ValidateStruct validates a struct using struct tags
func (cv *CentralizedValidator) ValidateStruct(s interface{}) error {
	if err := cv.validator.Struct(s); err != nil {
		return cv.formatValidationErrors(err)
	}
	return nil
}

// ValidateVar validates a single variable with validation rules
func (cv *CentralizedValidator) ValidateVar(field interface{}, tag string) error {
	if err := cv.validator.Var(field, tag); err != nil {
		return cv.formatValidationErrors(err)
	}
	return nil
}

// Errors returns the structured errors for s, or nil when it is valid
func (cv *CentralizedValidator) Errors(s interface{}) []ValidationError {
	err := cv.validator.Struct(s)
	if err == nil {
		return nil
	}
	return cv.extractValidationErrors(err)
}

func (cv *CentralizedValidator) formatValidationErrors(err error) error {
	validationErrors := cv.extractValidationErrors(err)
	if len(validationErrors) == 1 {
		return errors.ValidationError(validationErrors[0].Message)
	}

	messages := make([]string, len(validationErrors))
	for i, e := range validationErrors {
		messages[i] = e.Message
	}

	return errors.ValidationError(fmt.Sprintf("validation failed: %s", strings.Join(messages, "; ")))
}

func (cv *CentralizedValidator) extractValidationErrors(err error) []ValidationError {
	var validationErrors []ValidationError

	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		for _, fieldError := range validationErrs {
			validationErrors = append(validationErrors, ValidationError{
				Field:   fieldError.Namespace(),
				Tag:     fieldError.Tag(),
				Value:   fmt.Sprintf("%v", fieldError.Value()),
				Message: cv.formatFieldError(fieldError),
				Param:   fieldError.Param(),
			})
		}
	} else {
		validationErrors = append(validationErrors, ValidationError{
			Field:   "unknown",
			Tag:     "error",
			Message: err.Error(),
		})
	}

	return validationErrors
}

func (cv *CentralizedValidator) formatFieldError(err validator.FieldError) string {
	switch err.Tag() {
	case "required", "required_unless":
		return fmt.Sprintf("field '%s' is required", err.Field())
	case "gte":
		return fmt.Sprintf("field '%s' must be at least %s", err.Field(), err.Param())
	case "lte":
		return fmt.Sprintf("field '%s' must be at most %s", err.Field(), err.Param())
	case "oneof":
		return fmt.Sprintf("field '%s' must be one of: %s", err.Field(), err.Param())
	case "header_name":
		return fmt.Sprintf("field '%s' must be a valid header name", err.Field())
	case "cron_expression":
		return fmt.Sprintf("field '%s' must be a valid cron expression", err.Field())
	default:
		return fmt.Sprintf("field '%s' failed validation: %s", err.Field(), err.Tag())
	}
}

// ValidCronExpression reports whether expr is accepted by the scheduler.
// Standard five-field specs and descriptors such as @every 5m are allowed.
func ValidCronExpression(expr string) bool {
	if strings.TrimSpace(expr) == "" {
		return false
	}
	_, err := cron.ParseStandard(expr)
	return err == nil
}

func registerRuleValidators(v *validator.Validate) {
	_ = v.RegisterValidation("header_name", func(fl validator.FieldLevel) bool {
		return IsValidHeaderName(fl.Field().String())
	})

	_ = v.RegisterValidation("cron_expression", func(fl validator.FieldLevel) bool {
		return ValidCronExpression(fl.Field().String())
	})
}
