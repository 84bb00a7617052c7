package storage

import (
	"errors"
	"fmt"
)

// ErrStoreUnavailable is returned when the underlying database cannot be reached.
var ErrStoreUnavailable = errors.New("store unavailable")

// UnavailableError wraps a platform failure for a store operation.
type UnavailableError struct {
	Op  string
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("store unavailable: %s: %v", e.Op, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

func (e *UnavailableError) Is(target error) bool {
	return target == ErrStoreUnavailable
}

func unavailable(op string, err error) error {
	return &UnavailableError{Op: op, Err: err}
}
