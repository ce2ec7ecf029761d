package metadata

import (
	"context"
)

// Repository is a small key/value store for installation-wide settings such
// as the device id.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	// SetIfAbsent stores value only when key is missing and returns whatever
	// is stored afterwards.
	SetIfAbsent(ctx context.Context, key string, value []byte) ([]byte, error)
}
