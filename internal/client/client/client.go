package client

import (
	"context"
)

type Client interface {
	Close() error
	Ping(ctx context.Context) error
}
