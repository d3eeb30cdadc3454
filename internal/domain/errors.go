package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrPermissionDenied is returned when the store rejects the caller.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrUnavailable is returned when the store cannot be reached.
	ErrUnavailable = errors.New("service unavailable")

	// ErrEmptyQueue is returned when a run is started without jobs.
	ErrEmptyQueue = errors.New("upload queue is empty")
	// ErrRunInProgress is returned when a run is active.
	ErrRunInProgress = errors.New("an upload run is in progress")
	// ErrNoActiveRun is returned by run controls when nothing is running.
	ErrNoActiveRun = errors.New("no upload run is active")

	// ErrRequestInFlight is returned when a chat request is already outstanding.
	ErrRequestInFlight = errors.New("a chat request is already in progress")
	// ErrSessionClosed is returned when the chat session is not open.
	ErrSessionClosed = errors.New("chat session is closed")
	// ErrSessionChanged is returned when a response arrives for a superseded request.
	ErrSessionChanged = errors.New("chat session changed before the response arrived")
)

// ValidationError reports invalid user input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// UserMessage returns a human-readable message for store errors.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPermissionDenied):
		return "Permission denied: check the database security rules"
	case errors.Is(err, ErrUnavailable):
		return "The database is currently unavailable, please try again"
	case errors.Is(err, ErrNotFound):
		return "The requested record does not exist"
	default:
		return err.Error()
	}
}
