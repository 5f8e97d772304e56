// Package service provides application-level services for managing tasks.
package service

import "fmt"

// TaskServiceError is a custom error type for task service errors.
// Expected conditions (missing task, empty title) surface as the sentinel
// errors from the domain and store packages; this type wraps the unexpected
// ones with operation context. Callers use errors.Is/errors.As to check for
// specific conditions, and the API layer maps them to HTTP status codes.
type TaskServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for TaskServiceError.
func (e *TaskServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("task service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("task service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *TaskServiceError) Unwrap() error {
	return e.Err
}

// NewTaskServiceError creates a new TaskServiceError.
func NewTaskServiceError(operation, message string, err error) *TaskServiceError {
	return &TaskServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
