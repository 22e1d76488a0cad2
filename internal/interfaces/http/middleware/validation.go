package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/erp/procurement/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// SetupValidator configures the shared Gin binding validator so error
// messages reference the wire field names instead of Go struct fields.
func SetupValidator() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("unexpected validator engine type")
	}

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := tagName(fld.Tag.Get("json"))
		if name == "" {
			name = tagName(fld.Tag.Get("form"))
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	return nil
}

func tagName(tag string) string {
	name := strings.SplitN(tag, ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}

// FormatValidationErrors converts validator errors into response details.
func FormatValidationErrors(err error) []dto.ValidationDetail {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return []dto.ValidationDetail{{Field: "request", Message: err.Error()}}
	}

	details := make([]dto.ValidationDetail, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		details = append(details, dto.ValidationDetail{
			Field:   fieldErr.Field(),
			Message: getValidationMessage(fieldErr),
		})
	}
	return details
}

// HandleValidationError writes a 400 validation response for a binding error.
func HandleValidationError(c *gin.Context, err error) {
	requestID := ""
	if rid, exists := c.Get("request_id"); exists {
		requestID, _ = rid.(string)
	}

	c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse(
		"Request validation failed",
		requestID,
		FormatValidationErrors(err),
	))
}

func getValidationMessage(fieldErr validator.FieldError) string {
	switch fieldErr.Tag() {
	case "required":
		return "This field is required"
	case "uuid":
		return "Must be a valid UUID"
	case "email":
		return "Must be a valid email address"
	case "min":
		return fmt.Sprintf("Must be at least %s", fieldErr.Param())
	case "max":
		return fmt.Sprintf("Must be at most %s", fieldErr.Param())
	case "gt":
		return fmt.Sprintf("Must be greater than %s", fieldErr.Param())
	case "gte":
		return fmt.Sprintf("Must be greater than or equal to %s", fieldErr.Param())
	case "lt":
		return fmt.Sprintf("Must be less than %s", fieldErr.Param())
	case "lte":
		return fmt.Sprintf("Must be less than or equal to %s", fieldErr.Param())
	case "oneof":
		return fmt.Sprintf("Must be one of: %s", fieldErr.Param())
	case "len":
		return fmt.Sprintf("Must be exactly %s characters long", fieldErr.Param())
	case "datetime":
		return fmt.Sprintf("Must be a valid datetime in format %s", fieldErr.Param())
	default:
		return fmt.Sprintf("Failed validation rule %q", fieldErr.Tag())
	}
}
