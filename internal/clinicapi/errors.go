package clinicapi

import (
	"errors"
	"fmt"
)

// Failure kinds.  Every error returned by Client wraps exactly one of these,
// so callers branch with errors.Is.
var (
	// ErrTransport means the API could not be reached.
	ErrTransport = errors.New("clinicapi: transport failure")
	// ErrUnauthorized means the API answered 401.
	ErrUnauthorized = errors.New("clinicapi: unauthorized")
	// ErrStatus means the API answered with another non-2xx status.
	ErrStatus = errors.New("clinicapi: unexpected status")
	// ErrRejected means the API answered 2xx with "status": false.
	ErrRejected = errors.New("clinicapi: rejected")
	// ErrDecode means the body was not the expected JSON envelope.
	ErrDecode = errors.New("clinicapi: malformed response")
)

// Error carries the HTTP status and the server-provided message, if any.
type Error struct {
	Kind    error
	Op      string
	Status  int
	Message string
	Cause   error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Op, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (http %d)", e.Status)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Kind }

// Message returns the server-provided message carried by err, or "".
func Message(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}
