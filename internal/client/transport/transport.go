// Package transport delivers finalized clip bytes to remote storage.
//
// A Transport is the only outbound collaborator of the sync coordinator:
// Send returning nil means the clip is stored remotely. Implementations are
// S3 (presigned PUT), MinIO (minio-go) and Simulated, which reproduces a
// flaky network for local runs.
package transport

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/clipvault/internal/client/models"
)

// ErrTransfer marks a failed delivery.
var ErrTransfer = errors.New("transfer failed")

// Payload is one clip to deliver.
type Payload struct {
	ClipID      int64
	Data        []byte
	ContentType string
	Digest      []byte
	CapturedAt  time.Time
}

type Transport interface {
	Send(ctx context.Context, p Payload) error
}

// Func adapts a function to Transport.
type Func func(ctx context.Context, p Payload) error

func (f Func) Send(ctx context.Context, p Payload) error { return f(ctx, p) }

// ObjectKey returns the remote key for p, namespaced by device and capture
// date: clips/<device>/<yyyy>/<mm>/<dd>/<id><ext>.
func ObjectKey(deviceID string, p Payload) string {
	d := p.CapturedAt.UTC()
	device := strings.TrimSpace(deviceID)
	if device == "" {
		device = "unknown"
	}
	return fmt.Sprintf("clips/%s/%04d/%02d/%02d/%d%s",
		device, d.Year(), int(d.Month()), d.Day(), p.ClipID, models.ExtensionFor(p.ContentType))
}

func transferErr(err error) error {
	if errors.Is(err, ErrTransfer) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrTransfer, err)
}
