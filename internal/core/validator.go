package core

import (
	"fmt"
	"log/slog"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"weatheralert/internal/types"
)

// ValidationError describes one rejected field.
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationResult separates blocking errors from advisory warnings.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []string
}

// IsValid reports whether there are no blocking errors.
func (r ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

// Err returns nil or an AppError for the first failure, with every failure
// listed under "validation_errors".
func (r ValidationResult) Err() error {
	if r.IsValid() {
		return nil
	}
	first := r.Errors[0]
	return types.NewAppErrorWithDetails(
		types.ErrorCode(first.Code),
		first.Message,
		nil,
		map[string]any{"validation_errors": r.Errors},
	)
}

// Warner is implemented by request types that can report non-blocking issues,
// such as ignored custom threshold keys.
type Warner interface {
	ValidationWarnings() []string
}

// Validator wraps go-playground/validator with the domain tags:
//
//	user_type         one of the five personas, case-insensitive
//	temperature_unit  celsius or fahrenheit
//	finite            a float that is neither NaN nor Inf
type Validator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// NewValidator builds a Validator. Field names in errors use the json tag.
func NewValidator(logger *slog.Logger) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	mustRegister(v, "user_type", validateUserType)
	mustRegister(v, "temperature_unit", validateTemperatureUnit)
	mustRegister(v, "finite", validateFinite)

	return &Validator{validate: v, logger: logger}
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register validation %q: %v", tag, err))
	}
}

// ValidateStruct returns nil or an AppError whose code matches the first
// failure and whose details list every failure under "validation_errors".
func (v *Validator) ValidateStruct(s any) error {
	return v.ValidateStructWithWarnings(s).Err()
}

// ValidateStructWithWarnings validates s and collects warnings from Warner.
func (v *Validator) ValidateStructWithWarnings(s any) ValidationResult {
	var result ValidationResult
	if w, ok := s.(Warner); ok {
		result.Warnings = w.ValidationWarnings()
	}

	err := v.validate.Struct(s)
	if err == nil {
		return result
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		if v.logger != nil {
			v.logger.Error("validator misuse", "error", err)
		}
		result.Errors = append(result.Errors, ValidationError{
			Field:   "",
			Code:    string(types.ErrCodeMalformedInput),
			Message: "request could not be validated",
		})
		return result
	}

	for _, fe := range verrs {
		result.Errors = append(result.Errors, ValidationError{
			Field:   fe.Field(),
			Code:    tagToErrorCode(fe.Tag()),
			Message: fieldMessage(fe),
		})
	}
	return result
}

func tagToErrorCode(tag string) string {
	switch tag {
	case "required":
		return string(types.ErrCodeValidationMissingField)
	case "user_type":
		return string(types.ErrCodeInvalidUserType)
	default:
		return string(types.ErrCodeMalformedInput)
	}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "user_type":
		return fmt.Sprintf("%s must be one of STUDENT, FARMER, TRAVELLER, DELIVERY_WORKER, GENERAL", fe.Field())
	case "temperature_unit":
		return fmt.Sprintf("%s must be celsius or fahrenheit", fe.Field())
	case "finite":
		return fmt.Sprintf("%s must be a number", fe.Field())
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}

func validateUserType(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}
	_, err := types.ParseUserType(s)
	return err == nil
}

func validateTemperatureUnit(fl validator.FieldLevel) bool {
	switch types.TemperatureUnit(fl.Field().String()) {
	case "", types.UnitCelsius, types.UnitFahrenheit:
		return true
	}
	return false
}

func validateFinite(fl validator.FieldLevel) bool {
	switch fl.Field().Kind() {
	case reflect.Float32, reflect.Float64:
		f := fl.Field().Float()
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	}
	return true
}
