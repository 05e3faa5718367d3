// internal/utils/validator.go
package utils

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

var (
	panPattern     = regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]$`)
	pincodePattern = regexp.MustCompile(`^[0-9]{6}$`)
	mobilePattern  = regexp.MustCompile(`^[0-9]{10}$`)
	aadhaarPattern = regexp.MustCompile(`^[0-9]{12}$`)
)

const MinPassingYear = 1900

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(jsonFieldName)
	validate.RegisterValidation("pan", matches(panPattern))
	validate.RegisterValidation("pincode", matches(pincodePattern))
	validate.RegisterValidation("mobile", matches(mobilePattern))
	validate.RegisterValidation("aadhaar", matches(aadhaarPattern))
	validate.RegisterValidation("passing_year", validatePassingYear)
}

func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return fld.Name
	}
	return name
}

func matches(pattern *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return pattern.MatchString(fl.Field().String())
	}
}

func validatePassingYear(fl validator.FieldLevel) bool {
	year := fl.Field().Int()
	return year >= MinPassingYear && year <= int64(time.Now().Year())
}

// Validation tags for common fields
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// GetValidationErrors flattens validator errors. Field paths use JSON names
// rooted at prefix, e.g. "form_data.personnel[0].panNumber".
func GetValidationErrors(err error, prefix string) []ValidationError {
	var validationErrors []ValidationError

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		for _, e := range validationErrs {
			validationErrors = append(validationErrors, ValidationError{
				Field:   fieldPath(prefix, e.Namespace()),
				Tag:     e.Tag(),
				Message: getValidationMessage(e),
			})
		}
	}

	return validationErrors
}

func fieldPath(prefix, namespace string) string {
	// Drop the top-level struct name
	if i := strings.Index(namespace, "."); i >= 0 {
		namespace = namespace[i+1:]
	}
	if prefix == "" {
		return namespace
	}
	return prefix + "." + namespace
}

func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return e.Field() + " is required"
	case "email":
		return "Invalid email format"
	case "min":
		return e.Field() + " must be at least " + e.Param()
	case "max":
		return e.Field() + " must be at most " + e.Param()
	case "oneof":
		return e.Field() + " must be one of: " + e.Param()
	case "unique":
		return e.Field() + " must not contain duplicate entries"
	case "pan":
		return e.Field() + " must be 5 uppercase letters, 4 digits and 1 uppercase letter"
	case "pincode":
		return e.Field() + " must be a 6-digit postal code"
	case "mobile":
		return e.Field() + " must be a 10-digit mobile number"
	case "aadhaar":
		return e.Field() + " must be a 12-digit number"
	case "passing_year":
		return e.Field() + " must be between 1900 and the current year"
	default:
		return e.Field() + " is invalid"
	}
}
