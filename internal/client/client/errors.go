package client

import "errors"

var (
	ErrUnavailable  = errors.New("health endpoint unavailable")
	ErrUnauthorized = errors.New("health check unauthorized")
)
