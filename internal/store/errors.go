package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the store.
	ErrNotFound = errors.New("entity not found")

	// ErrStorageFailed is returned when the local blob backing the store
	// cannot be read or written. The wrapped error carries the I/O detail.
	ErrStorageFailed = errors.New("local storage failed")

	// ErrMalformedData is returned when the local blob's content cannot be
	// parsed as a task array.
	ErrMalformedData = errors.New("local task data is malformed")

	// ErrTaskNotFound indicates that the requested task does not exist in the store.
	ErrTaskNotFound = fmt.Errorf("%w: task", ErrNotFound)

	// ErrCredentialsNotFound indicates that no sync credentials have been saved.
	ErrCredentialsNotFound = fmt.Errorf("%w: sync credentials", ErrNotFound)
)
