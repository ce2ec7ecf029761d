// Package client talks to the upload backend.
//
// The Client contract is used for connectivity checks: the CLI pings the
// backend periodically and switches between online and offline modes. The
// gRPC implementation (GRPCClient) uses the standard gRPC health service and
// maps status codes to sentinel errors that callers match with errors.Is:
// ErrUnavailable and ErrUnauthorized.
package client
