package domain

import (
	"errors"
	"fmt"

	"example.com/coursetrack/internal/calendar"
)

var (
	// ErrMissingUser is returned when an operation is invoked without a user identifier.
	ErrMissingUser = errors.New("user id is required")
	// ErrInvalidProgress indicates progress fields violate the record constraints.
	ErrInvalidProgress = errors.New("invalid progress fields")
	// ErrStoreUnavailable matches persistence errors raised because the store could not be reached.
	ErrStoreUnavailable = errors.New("progress store unavailable")
)

// InvalidDayError is returned for day numbers outside the program range.
type InvalidDayError = calendar.InvalidDayError

// PersistenceError wraps a failure of the underlying progress store.
type PersistenceError struct {
	Op          string
	Err         error
	Unavailable bool
}

// NewPersistenceError wraps err as a generic store failure.
func NewPersistenceError(op string, err error) *PersistenceError {
	return &PersistenceError{Op: op, Err: err}
}

// NewStoreUnavailable wraps err as a connectivity failure.
func NewStoreUnavailable(op string, err error) *PersistenceError {
	return &PersistenceError{Op: op, Err: err, Unavailable: true}
}

func (e *PersistenceError) Error() string {
	if e.Unavailable {
		return fmt.Sprintf("%s: %v: %v", e.Op, ErrStoreUnavailable, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrStoreUnavailable) match unreachable-store failures.
func (e *PersistenceError) Is(target error) bool {
	return e.Unavailable && target == ErrStoreUnavailable
}

// IsValidation reports whether err was raised by input validation rather than the store.
func IsValidation(err error) bool {
	var dayErr *InvalidDayError
	return errors.As(err, &dayErr) || errors.Is(err, ErrInvalidProgress) || errors.Is(err, ErrMissingUser)
}

// wrapStoreError leaves typed and validation errors untouched and wraps everything else.
func wrapStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PersistenceError
	if errors.As(err, &pe) || IsValidation(err) {
		return err
	}
	return NewPersistenceError(op, err)
}
