package dispatch

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means a referenced job or technician does not exist.
	ErrNotFound = errors.New("dispatch: not found")
	// ErrValidation means the input was malformed: unknown enum value, bad timestamp, missing field.
	ErrValidation = errors.New("dispatch: validation failed")
	// ErrInvalidState means the operation is not legal for the job's current status.
	ErrInvalidState = errors.New("dispatch: invalid state")
	// ErrNoCapacity means no technician is available for a single-job dispatch.
	ErrNoCapacity = errors.New("dispatch: no available technicians")
	// ErrPersistence means the store failed. A job write that preceded a failed
	// audit append is not rolled back.
	ErrPersistence = errors.New("dispatch: persistence failure")
)

func notFound(kind, id string) error {
	return fmt.Errorf("%w: %s %q", ErrNotFound, kind, id)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func persistence(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}
