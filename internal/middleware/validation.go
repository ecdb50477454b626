package middleware

import (
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	apierrors "bikedash/internal/errors"
)

// DateLayout is the only accepted layout for date query parameters.
const DateLayout = "2006-01-02"

// ValidationMiddleware validates request parameters using struct tags.
type ValidationMiddleware struct {
	validator    *validator.Validate
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewValidationMiddleware creates a validator with the custom "date" and
// "filename" tags registered. Field names in errors follow the json tag.
func NewValidationMiddleware(logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ValidationMiddleware {
	v := validator.New()

	v.RegisterValidation("date", isDate)
	v.RegisterValidation("filename", isValidFilename)

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &ValidationMiddleware{
		validator:    v,
		logger:       logger.With(slog.String("component", "validation_middleware")),
		errorHandler: errorHandler,
	}
}

// Validator exposes the configured validator.
func (m *ValidationMiddleware) Validator() *validator.Validate {
	return m.validator
}

// ValidateStruct validates v and converts failures into a 400 APIError
// listing every offending field.
func (m *ValidationMiddleware) ValidateStruct(v interface{}) error {
	err := m.validator.Struct(v)
	if err == nil {
		return nil
	}
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	validationErrors := make([]apierrors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		validationErrors = append(validationErrors, apierrors.ValidationError{
			Field:   fe.Field(),
			Message: formatValidationError(fe),
		})
	}
	return apierrors.NewValidationErrors(validationErrors)
}

// ContentTypeValidator rejects bodies whose media type is not listed.
// Requests without a body method pass through.
func (m *ValidationMiddleware) ContentTypeValidator(contentTypes ...string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodDelete || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			contentType := r.Header.Get("Content-Type")
			if contentType == "" {
				m.errorHandler.HandleError(w, r, apierrors.New(
					http.StatusBadRequest,
					apierrors.CodeInvalidRequest,
					"Content-Type header is required",
				))
				return
			}

			mediaType, _, err := mime.ParseMediaType(contentType)
			if err == nil {
				for _, allowed := range contentTypes {
					if strings.EqualFold(mediaType, allowed) {
						next.ServeHTTP(w, r)
						return
					}
				}
			}

			m.logger.WarnContext(r.Context(), "unsupported content type",
				slog.String("content_type", contentType),
				slog.String("path", r.URL.Path),
			)
			m.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
				http.StatusUnsupportedMediaType,
				apierrors.CodeInvalidRequest,
				"Unsupported content type",
				map[string]interface{}{
					"content_type": contentType,
					"allowed":      contentTypes,
				},
			))
		})
	}
}

func formatValidationError(err validator.FieldError) string {
	field := err.Field()
	param := err.Param()

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "uuid":
		return fmt.Sprintf("%s must be a valid UUID", field)
	case "date":
		return fmt.Sprintf("%s must be a date in YYYY-MM-DD form", field)
	case "datetime":
		return fmt.Sprintf("%s must match the layout %s", field, param)
	case "filename":
		return fmt.Sprintf("%s must be a plain file name", field)
	case "dive":
		return fmt.Sprintf("%s contains an invalid entry", field)
	default:
		return fmt.Sprintf("%s failed %s validation", field, err.Tag())
	}
}

// isDate accepts a calendar-valid YYYY-MM-DD string.
func isDate(fl validator.FieldLevel) bool {
	_, err := time.Parse(DateLayout, fl.Field().String())
	return err == nil
}

// isValidFilename rejects anything that could escape the upload directory.
func isValidFilename(fl validator.FieldLevel) bool {
	filename := fl.Field().String()
	if filename == "" || len(filename) > 255 {
		return false
	}
	if strings.Contains(filename, "..") || strings.ContainsAny(filename, `/\`) {
		return false
	}
	return filepath.Base(filename) == filename
}
