package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/clipvault/internal/client/models"
	"github.com/dmitrijs2005/clipvault/internal/client/transport"
	"github.com/dmitrijs2005/clipvault/internal/logging"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrUploadInProgress rejects an upload for a clip that is already being
	// uploaded.
	ErrUploadInProgress = errors.New("upload already in progress")

	errDigestMismatch = errors.New("media digest mismatch")
)

// ClipStore is the part of the record store the coordinator needs.
type ClipStore interface {
	Get(ctx context.Context, id int64) (*models.Clip, error)
	Update(ctx context.Context, id int64, status models.Status) error
	ListByStatus(ctx context.Context, statuses ...models.Status) ([]models.Clip, error)
}

// UploadSummary counts the outcomes of UploadAll.
type UploadSummary struct {
	Synced  int
	Failed  int
	Skipped int
}

type SyncCoordinator interface {
	// Upload drives one clip through uploading to synced or failed and
	// returns the resulting status. Transfer failures are not errors: they
	// leave the clip failed and retryable. Store failures are returned.
	Upload(ctx context.Context, id int64) (models.Status, error)

	// UploadAll uploads every clip in statuses (pending and failed when
	// none are given) with bounded concurrency.
	UploadAll(ctx context.Context, statuses ...models.Status) (UploadSummary, error)
}

type syncCoordinator struct {
	store       ClipStore
	transport   transport.Transport
	log         logging.Logger
	concurrency int

	mu       sync.Mutex
	inFlight map[int64]struct{}
}

func NewSyncCoordinator(store ClipStore, tr transport.Transport, log logging.Logger, concurrency int) SyncCoordinator {
	if log == nil {
		log = logging.Discard()
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &syncCoordinator{
		store:       store,
		transport:   tr,
		log:         log.With("module", "sync"),
		concurrency: concurrency,
		inFlight:    make(map[int64]struct{}),
	}
}

func (s *syncCoordinator) acquire(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[id]; busy {
		return false
	}
	s.inFlight[id] = struct{}{}
	return true
}

func (s *syncCoordinator) release(id int64) {
	s.mu.Lock()
	delete(s.inFlight, id)
	s.mu.Unlock()
}

func (s *syncCoordinator) Upload(ctx context.Context, id int64) (models.Status, error) {
	if !s.acquire(id) {
		return models.StatusUploading, ErrUploadInProgress
	}
	defer s.release(id)

	clip, err := s.store.Get(ctx, id)
	if err != nil {
		return "", fmt.Errorf("error retrieving clip %d: %w", id, err)
	}

	switch clip.Status {
	case models.StatusUploading:
		return clip.Status, ErrUploadInProgress
	case models.StatusSynced:
		return clip.Status, nil
	}

	if err := s.store.Update(ctx, id, models.StatusUploading); err != nil {
		return clip.Status, fmt.Errorf("error marking clip %d uploading: %w", id, err)
	}

	// once started an upload runs to completion
	ctx = context.WithoutCancel(ctx)

	next := models.StatusSynced
	if err := s.send(ctx, clip); err != nil {
		s.log.Warn(ctx, "upload failed", "clip_id", id, "error", err)
		next = models.StatusFailed
	} else {
		s.log.Info(ctx, "clip synced", "clip_id", id, "bytes", clip.Size)
	}

	if err := s.store.Update(ctx, id, next); err != nil {
		return models.StatusUploading, fmt.Errorf("error marking clip %d %s: %w", id, next, err)
	}
	return next, nil
}

func (s *syncCoordinator) send(ctx context.Context, clip *models.Clip) error {
	sum := blake2b.Sum256(clip.Media)
	if len(clip.Digest) > 0 && !bytes.Equal(sum[:], clip.Digest) {
		return errDigestMismatch
	}

	return s.transport.Send(ctx, transport.Payload{
		ClipID:      clip.ID,
		Data:        clip.Media,
		ContentType: clip.MIMEType,
		Digest:      clip.Digest,
		CapturedAt:  clip.CapturedAt,
	})
}

func (s *syncCoordinator) UploadAll(ctx context.Context, statuses ...models.Status) (UploadSummary, error) {
	if len(statuses) == 0 {
		statuses = []models.Status{models.StatusPending, models.StatusFailed}
	}

	clips, err := s.store.ListByStatus(ctx, statuses...)
	if err != nil {
		return UploadSummary{}, fmt.Errorf("error retrieving clips: %w", err)
	}

	var (
		mu      sync.Mutex
		summary UploadSummary
	)

	var g errgroup.Group
	g.SetLimit(s.concurrency)

	for _, c := range clips {
		id := c.ID
		g.Go(func() error {
			status, err := s.Upload(ctx, id)

			mu.Lock()
			defer mu.Unlock()

			switch {
			case errors.Is(err, ErrUploadInProgress):
				summary.Skipped++
				return nil
			case err != nil:
				return err
			case status == models.StatusSynced:
				summary.Synced++
			case status == models.StatusFailed:
				summary.Failed++
			}
			return nil
		})
	}

	err = g.Wait()
	return summary, err
}
