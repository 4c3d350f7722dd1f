package model

import "errors"

var (
	// ErrInsufficientData is returned when there are too few transactions,
	// months, or feature rows for the requested operation.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrUntrainedModel is returned when prediction is requested before training.
	ErrUntrainedModel = errors.New("model not trained")

	// ErrInvalidConfiguration is returned for malformed weights, non-positive
	// lags or windows, and searches where no candidate could be trained.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)
