package application

import "errors"

var (
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrConflict is returned when concurrent writes raced and the caller
	// should re-read current state.
	ErrConflict = errors.New("application: conflict")
	// ErrAlreadyCancelled is returned when the actor already holds an
	// active cancellation for the session.
	ErrAlreadyCancelled = errors.New("application: already cancelled")
	// ErrSessionStarted is returned when the session start has passed and
	// its cancellation state can no longer change.
	ErrSessionStarted = errors.New("application: session already started")
	// ErrAlreadyAcknowledged is returned when an alert was acknowledged
	// before; acknowledgement is not repeatable.
	ErrAlreadyAcknowledged = errors.New("application: alert already acknowledged")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}
