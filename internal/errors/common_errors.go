package errors

import (
	"context"
	"errors"

	"bikedash/internal/dataprocessing"
	"bikedash/internal/exporter"
	"bikedash/internal/services"
	"bikedash/internal/validation"
)

// ErrorType classifies an error independently of the transport reporting it.
type ErrorType string

const (
	ErrTypeInput      ErrorType = "INPUT"
	ErrTypeNotFound   ErrorType = "NOT_FOUND"
	ErrTypeValidation ErrorType = "VALIDATION"
	ErrTypeTimeout    ErrorType = "TIMEOUT"
	ErrTypeInternal   ErrorType = "INTERNAL"
)

// Classify maps an error from the pipeline or services to its ErrorType.
func Classify(err error) ErrorType {
	var missing *dataprocessing.MissingFileError
	var apiErr *APIError

	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ErrTypeTimeout
	case errors.As(err, &missing),
		errors.Is(err, services.ErrDatasetNotFound),
		errors.Is(err, services.ErrNoDataset),
		errors.Is(err, services.ErrUnknownChart),
		errors.Is(err, exporter.ErrEmptyChart):
		return ErrTypeNotFound
	case dataprocessing.IsInputError(err), validation.IsRejection(err):
		return ErrTypeInput
	case errors.Is(err, dataprocessing.ErrInvalidGrouping), errors.Is(err, services.ErrInvalidRange):
		return ErrTypeValidation
	case errors.As(err, &apiErr):
		switch {
		case apiErr.StatusCode == 404:
			return ErrTypeNotFound
		case apiErr.StatusCode < 500:
			return ErrTypeValidation
		}
	}
	return ErrTypeInternal
}

// Process exit codes used by the command line tools.
const (
	ExitOK          = 0
	ExitInternal    = 1
	ExitUsage       = 2
	ExitNotFound    = 3
	ExitInvalidData = 4
	ExitTimeout     = 5
)

// ExitCode maps err to a process exit status.
func ExitCode(err error) int {
	switch Classify(err) {
	case "":
		return ExitOK
	case ErrTypeNotFound:
		return ExitNotFound
	case ErrTypeInput:
		return ExitInvalidData
	case ErrTypeValidation:
		return ExitUsage
	case ErrTypeTimeout:
		return ExitTimeout
	default:
		return ExitInternal
	}
}
