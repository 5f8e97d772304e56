package gist

import (
	"errors"
	"fmt"
)

// Errors returned by the remote sync client.
var (
	// ErrRemoteUnavailable is returned when the remote document store
	// cannot be reached or answers with a failure status. Wrap with a
	// RemoteError to carry the HTTP status code.
	ErrRemoteUnavailable = errors.New("remote document store unavailable")

	// ErrInvalidCredential is returned when an operation that requires a
	// bearer token is attempted without one.
	ErrInvalidCredential = errors.New("missing sync credential")

	// ErrMalformedRemoteData is returned when the remote file content is
	// not parseable as a task array.
	ErrMalformedRemoteData = errors.New("remote task data is malformed")
)

// RemoteError is a remote-store failure carrying the HTTP status code of the
// failed request. It unwraps to ErrRemoteUnavailable so callers can match
// with errors.Is without caring about the specific status.
type RemoteError struct {
	// Op is the high-level operation that failed: "pull", "push", or "create".
	Op string

	// StatusCode is the HTTP status of the failed response, or 0 when the
	// request never produced one (transport failure).
	StatusCode int

	// Err is the underlying transport error, if any.
	Err error
}

func (e *RemoteError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %v (status %d)", e.Op, ErrRemoteUnavailable, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, ErrRemoteUnavailable, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return ErrRemoteUnavailable
}
