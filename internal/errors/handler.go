package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"bikedash/internal/dataprocessing"
	"bikedash/internal/exporter"
	"bikedash/internal/services"
	"bikedash/internal/validation"
)

// Common error types following RFC 7807
const (
	TypeValidation      = "/errors/validation"
	TypeNotFound        = "/errors/not-found"
	TypeRateLimit       = "/errors/rate-limit"
	TypeInternal        = "/errors/internal"
	TypeServiceDown     = "/errors/service-unavailable"
	TypeTimeout         = "/errors/timeout"
	TypeMethod          = "/errors/method-not-allowed"
	TypePayloadTooLarge = "/errors/payload-too-large"
)

// Domain-specific error types
const (
	TypeDatasetNotFound = "/errors/dataset/not-found"
	TypeNoDataset       = "/errors/dataset/none-loaded"
	TypeChartNotFound   = "/errors/chart/not-found"
	TypeChartEmpty      = "/errors/chart/empty"
	TypeDataFileMissing = "/errors/data/missing-file"
	TypeDataInvalid     = "/errors/data/invalid"
	TypeInvalidGrouping = "/errors/data/invalid-grouping"
	TypeUnsupportedFile = "/errors/data/unsupported-file"
)

// ErrorHandler provides centralized error handling
type ErrorHandler struct {
	logger       *slog.Logger
	includeStack bool
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *slog.Logger, includeStack bool) *ErrorHandler {
	return &ErrorHandler{
		logger:       logger.With(slog.String("component", "error_handler")),
		includeStack: includeStack,
	}
}

// HandleError converts any error to RFC 7807 format and responds
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	reqID := middleware.GetReqID(r.Context())
	problem := h.ErrorToProblem(err, r)
	problem.WithExtension("trace_id", reqID)

	level := slog.LevelWarn
	if problem.Status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(r.Context(), level, "request failed",
		slog.String("error", err.Error()),
		slog.Int("status", problem.Status),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	if h.includeStack && problem.Status >= http.StatusInternalServerError {
		problem.WithExtension("stack", getStackTrace())
	}

	render.Render(w, r, problem)
}

// ErrorToProblem converts an error to RFC 7807 Problem Details
func (h *ErrorHandler) ErrorToProblem(err error, r *http.Request) *ProblemDetails {
	path := r.URL.Path

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewProblemDetails(http.StatusGatewayTimeout, TypeTimeout, "Request Timeout",
			"The request took too long to process and was cancelled", path).
			WithExtension("error_code", CodeTimeout)
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return h.apiErrorToProblem(apiErr, r)
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		return NewProblemDetails(http.StatusBadRequest, TypeValidation, "Validation Failed",
			"One or more request parameters are invalid", path).
			WithExtension("error_code", CodeValidationFailed).
			WithExtension("errors", fieldErrors(fieldErrs))
	}

	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) || errors.Is(err, validation.ErrFileTooLarge) {
		return NewProblemDetails(http.StatusRequestEntityTooLarge, TypePayloadTooLarge, "Payload Too Large",
			err.Error(), path).
			WithExtension("error_code", CodePayloadTooLarge)
	}

	if validation.IsRejection(err) {
		return NewProblemDetails(http.StatusBadRequest, TypeUnsupportedFile, "Unsupported File",
			err.Error(), path).
			WithExtension("error_code", CodeInvalidRequest)
	}

	var missing *dataprocessing.MissingFileError
	if errors.As(err, &missing) {
		return NewProblemDetails(http.StatusNotFound, TypeDataFileMissing, "Data File Missing",
			err.Error(), path).
			WithExtension("error_code", CodeDataFileMissing)
	}

	if dataprocessing.IsInputError(err) {
		problem := NewProblemDetails(http.StatusUnprocessableEntity, TypeDataInvalid, "Invalid Data",
			err.Error(), path).
			WithExtension("error_code", CodeInvalidData)
		var parseErr *dataprocessing.ParseError
		var flagErr *dataprocessing.InvalidFlagError
		switch {
		case errors.As(err, &parseErr):
			problem.WithExtension("row", parseErr.Row).
				WithExtension("column", parseErr.Column).
				WithExtension("value", parseErr.Value)
		case errors.As(err, &flagErr):
			problem.WithExtension("row", flagErr.Row).
				WithExtension("column", dataprocessing.ColumnWorkingDay).
				WithExtension("value", flagErr.Value)
		}
		return problem
	}

	if errors.Is(err, dataprocessing.ErrInvalidGrouping) {
		return NewProblemDetails(http.StatusBadRequest, TypeInvalidGrouping, "Invalid Grouping",
			err.Error(), path).
			WithExtension("error_code", CodeInvalidGrouping)
	}

	switch {
	case errors.Is(err, services.ErrNoDataset):
		return NewProblemDetails(http.StatusNotFound, TypeNoDataset, "No Dataset Loaded",
			"Upload a dataset before requesting a dashboard", path).
			WithExtension("error_code", CodeNoDataset)
	case errors.Is(err, services.ErrDatasetNotFound):
		return NewProblemDetails(http.StatusNotFound, TypeDatasetNotFound, "Dataset Not Found",
			err.Error(), path).
			WithExtension("error_code", CodeDatasetNotFound)
	case errors.Is(err, services.ErrUnknownChart):
		return NewProblemDetails(http.StatusNotFound, TypeChartNotFound, "Chart Not Found",
			err.Error(), path).
			WithExtension("error_code", CodeChartNotFound)
	case errors.Is(err, exporter.ErrEmptyChart):
		return NewProblemDetails(http.StatusNotFound, TypeChartEmpty, "Chart Empty",
			"The selected range has no rows to draw", path).
			WithExtension("error_code", CodeChartEmpty)
	case errors.Is(err, services.ErrInvalidRange):
		return NewProblemDetails(http.StatusBadRequest, TypeValidation, "Validation Failed",
			err.Error(), path).
			WithExtension("error_code", CodeValidationFailed)
	}

	return NewProblemDetails(http.StatusInternalServerError, TypeInternal, "Internal Server Error",
		"An unexpected error occurred while processing your request", path).
		WithExtension("error_code", CodeInternal)
}

// apiErrorToProblem converts APIError to ProblemDetails
func (h *ErrorHandler) apiErrorToProblem(apiErr *APIError, r *http.Request) *ProblemDetails {
	problemType := TypeInternal
	switch apiErr.ErrorCode {
	case CodeValidationFailed, CodeInvalidRequest:
		problemType = TypeValidation
	case CodeNotFound:
		problemType = TypeNotFound
	case CodeDatasetNotFound:
		problemType = TypeDatasetNotFound
	case CodeNoDataset:
		problemType = TypeNoDataset
	case CodeChartNotFound:
		problemType = TypeChartNotFound
	case CodeRateLimited:
		problemType = TypeRateLimit
	case CodeUnavailable:
		problemType = TypeServiceDown
	case CodePayloadTooLarge:
		problemType = TypePayloadTooLarge
	}

	problem := NewProblemDetails(
		apiErr.StatusCode,
		problemType,
		http.StatusText(apiErr.StatusCode),
		apiErr.Message,
		r.URL.Path,
	).WithExtension("error_code", apiErr.ErrorCode)

	if apiErr.Details != nil {
		problem.WithExtension("details", apiErr.Details)
	}

	return problem
}

// fieldErrors flattens validator output into the API's field list.
func fieldErrors(errs validator.ValidationErrors) []ValidationError {
	out := make([]ValidationError, 0, len(errs))
	for _, fe := range errs {
		msg := fmt.Sprintf("failed on the '%s' rule", fe.Tag())
		if fe.Param() != "" {
			msg = fmt.Sprintf("failed on the '%s=%s' rule", fe.Tag(), fe.Param())
		}
		out = append(out, ValidationError{
			Field:   strings.ToLower(fe.Field()),
			Message: msg,
		})
	}
	return out
}

// HandlePanic recovers from panics and returns RFC 7807 error
func (h *ErrorHandler) HandlePanic(w http.ResponseWriter, r *http.Request, recovered interface{}) {
	reqID := middleware.GetReqID(r.Context())

	h.logger.ErrorContext(r.Context(), "panic recovered",
		slog.Any("panic", recovered),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("stack", string(debug.Stack())),
	)

	problem := NewProblemDetails(
		http.StatusInternalServerError,
		TypeInternal,
		"Internal Server Error",
		"An unexpected error occurred",
		r.URL.Path,
	).WithExtension("trace_id", reqID).
		WithExtension("error_code", CodeInternal)

	if h.includeStack {
		problem.WithExtension("panic", fmt.Sprintf("%v", recovered))
		problem.WithExtension("stack", getStackTrace())
	}

	render.Render(w, r, problem)
}

// NotFound returns a standard 404 error
func (h *ErrorHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(
		http.StatusNotFound,
		TypeNotFound,
		"Not Found",
		"The requested resource was not found",
		r.URL.Path,
	).WithExtension("trace_id", middleware.GetReqID(r.Context())).
		WithExtension("error_code", CodeNotFound)

	render.Render(w, r, problem)
}

// MethodNotAllowed returns a standard 405 error
func (h *ErrorHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(
		http.StatusMethodNotAllowed,
		TypeMethod,
		"Method Not Allowed",
		fmt.Sprintf("Method %s is not allowed for this endpoint", r.Method),
		r.URL.Path,
	).WithExtension("trace_id", middleware.GetReqID(r.Context()))

	render.Render(w, r, problem)
}

// getStackTrace returns the current stack trace
func getStackTrace() string {
	buf := make([]byte, 1024*8)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}
