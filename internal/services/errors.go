package services

import "errors"

// Service errors
var (
	// ErrDatasetNotFound is returned for an id that is not in the store.
	ErrDatasetNotFound = errors.New("dataset not found")
	// ErrNoDataset is returned when "latest" is requested from an empty store.
	ErrNoDataset = errors.New("no dataset loaded")
	// ErrUnknownChart is returned for a chart id outside the catalog.
	ErrUnknownChart = errors.New("unknown chart")
	// ErrInvalidRange is returned when a range bound cannot be parsed.
	ErrInvalidRange = errors.New("invalid date range")
)
