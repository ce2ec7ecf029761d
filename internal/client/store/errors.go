package store

import (
	"errors"
	"fmt"
)

var (
	// ErrStorageWrite wraps every failure of the underlying medium.
	ErrStorageWrite = errors.New("storage write failed")

	// ErrTerminalStatus is returned when updating a clip that is already synced.
	ErrTerminalStatus = errors.New("clip status is terminal")

	// ErrInvalidTransition is returned when the requested status cannot
	// follow the current one, e.g. pending -> synced.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("store closed")
)

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorageWrite, op, err)
}
