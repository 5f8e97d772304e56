package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidRecurrence is returned when a recurrence type is not one
	// of the supported intervals.
	ErrInvalidRecurrence = errors.New("invalid recurrence type")
)
