package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown source or connector type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrCursorConflict indicates a compare-and-swap lost to another run.
	// Not an error condition for the scheduler: it simply does not start
	// a second run for the source.
	ErrCursorConflict = errors.New("cursor held by another run")

	// ErrEmptyContent indicates an item had no usable title or body after
	// normalisation. Recorded as a skip, never as a run failure.
	ErrEmptyContent = errors.New("empty content after normalisation")

	// ErrShuttingDown indicates the scheduler is stopping and refuses new work.
	ErrShuttingDown = errors.New("scheduler shutting down")
)

// TransientError marks a connector failure worth retrying: network
// timeouts, 5xx responses, rate limiting.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// FatalError marks a connector failure that aborts the run immediately:
// bad credentials, missing space/project, malformed configuration.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal: %v", e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// Transient wraps err as retryable. Returns nil for nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// Fatal wraps err as non-retryable. Returns nil for nil.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &FatalError{Err: err}
}

// IsTransient checks whether err is retryable.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsFatal checks whether err aborts the run without retry.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}
