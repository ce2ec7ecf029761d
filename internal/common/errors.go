// Package common defines shared constants and sentinel errors used across
// clipvault packages. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// repository specific errors
	ErrNotFound = errors.New("not found")

	// service specific errors
	ErrInternal = errors.New("internal error")

	// item-specific errors
	ErrIncorrectMetadata = errors.New("incorrect metadata")
)
