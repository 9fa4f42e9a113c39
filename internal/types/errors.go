package types

import (
	"errors"
	"fmt"
)

// Engine error taxonomy. Handlers map these onto HTTP statuses via
// pkg/response; everything else is treated as a store failure.
var (
	// ErrNotFound indicates a referenced auction, bid or user does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrValidation indicates a malformed or rule-violating request.
	// No mutation has occurred; the caller may resubmit.
	ErrValidation = errors.New("validation failed")

	// ErrConflict indicates a lost race for an auction's critical section.
	// The engine retries internally; it must never reach a caller for an
	// otherwise-valid bid.
	ErrConflict = errors.New("concurrent modification")
)

// RejectedError is a bid rejection with a user-visible reason.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string {
	return e.Reason
}

func (e *RejectedError) Unwrap() error {
	return ErrValidation
}

// Rejectf builds a RejectedError from a format string.
func Rejectf(format string, args ...interface{}) *RejectedError {
	return &RejectedError{Reason: fmt.Sprintf(format, args...)}
}
