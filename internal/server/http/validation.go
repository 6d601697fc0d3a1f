package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/researchhub/platform-service/internal/domain"
)

// validate is the shared request validator. The instance caches struct
// metadata, so one serves every handler.
var validate = newRequestValidator()

func newRequestValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report json field names so error messages match the wire format.
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Enum tags delegate to the domain types, keeping them the single
	// source of truth for allowed values.
	enumTags := map[string]func(string) bool{
		"contenttype":      func(s string) bool { return domain.ContentType(s).Valid() },
		"feedaction":       func(s string) bool { return domain.FeedAction(s).Valid() },
		"contributiontype": func(s string) bool { return domain.ContributionType(s).Valid() },
	}
	for tag, valid := range enumTags {
		check := valid
		if err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return check(fl.Field().String())
		}); err != nil {
			panic(fmt.Sprintf("register %s validation: %v", tag, err))
		}
	}

	return v
}

// validateRequest runs struct validation on a decoded request body, writing a
// 400 with a message for the first failing field. Returns true when valid.
func validateRequest(w http.ResponseWriter, req interface{}) bool {
	err := validate.Struct(req)
	if err == nil {
		return true
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}

	writeError(w, http.StatusBadRequest, fieldErrorMessage(fieldErrs[0]))
	return false
}

// fieldErrorMessage translates a validator failure into the API's error
// message style.
func fieldErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "uuid":
		return fmt.Sprintf("%s must be a valid UUID", fe.Field())
	case "contenttype":
		return fmt.Sprintf("unsupported content_type: %v", fe.Value())
	case "feedaction":
		return fmt.Sprintf("unsupported action: %v", fe.Value())
	case "contributiontype":
		return fmt.Sprintf("unsupported contribution type: %v", fe.Value())
	case "gte", "lte", "gt", "lt":
		return fmt.Sprintf("%s is out of range", fe.Field())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}
