package transport

import (
	"fmt"
	"net/http"
	"time"
)

const (
	KindSimulated = "simulated"
	KindS3        = "s3"
	KindMinIO     = "minio"
)

type Options struct {
	Kind string

	S3    S3Config
	MinIO MinIOConfig

	SimulatedLatency     time.Duration
	SimulatedFailureRate float64
}

// New builds the transport selected by opts.Kind.
func New(opts Options, deviceID string) (Transport, error) {
	switch opts.Kind {
	case "", KindSimulated:
		return NewSimulated(opts.SimulatedLatency, opts.SimulatedFailureRate), nil
	case KindS3:
		return NewS3(opts.S3, deviceID, &http.Client{}), nil
	case KindMinIO:
		t, err := NewMinIO(opts.MinIO, deviceID)
		if err != nil {
			return nil, err
		}
		return t, nil
	default:
		return nil, fmt.Errorf("unknown transport kind %q", opts.Kind)
	}
}
