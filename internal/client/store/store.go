package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/dmitrijs2005/clipvault/internal/client/models"
	"github.com/dmitrijs2005/clipvault/internal/client/repositories/clips"
	"github.com/dmitrijs2005/clipvault/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/clipvault/internal/common"
	"github.com/dmitrijs2005/clipvault/internal/dbx"
	"github.com/dmitrijs2005/clipvault/internal/filex"
	"github.com/dmitrijs2005/clipvault/internal/logging"
	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

type Options struct {
	// DSN is passed to the sqlite driver. See DSNForPath.
	DSN string

	// PreviewDir receives one playable file per clip. Empty disables
	// previews.
	PreviewDir string

	Logger logging.Logger

	// Now stamps CapturedAt when the caller leaves it zero.
	Now func() time.Time
}

type Store struct {
	db         *sql.DB
	clips      clips.Repository
	previewDir string
	deviceID   string
	now        func() time.Time
	log        logging.Logger

	locks *keyedMutex

	// pubMu serializes snapshot publication and guards subs and closed.
	pubMu  sync.Mutex
	subs   map[*Subscription]struct{}
	closed bool

	closeOnce sync.Once
	done      chan struct{}
}

// Open opens (creating if needed) the database and preview directory,
// resets clips left in uploading by a previous run to failed and loads the
// device id.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.DSN == "" {
		return nil, errors.New("store: empty DSN")
	}

	previewDir := ""
	if opts.PreviewDir != "" {
		dir, err := filex.EnsureDir(opts.PreviewDir)
		if err != nil {
			return nil, fmt.Errorf("failed to prepare preview dir: %w", err)
		}
		previewDir = dir
	}

	db, err := openDatabase(ctx, opts.DSN)
	if err != nil {
		return nil, storageErr("open", err)
	}

	s := newStore(db, previewDir, opts.Logger, opts.Now)

	if err := s.recover(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	id, err := metadata.NewSQLiteRepository(db).SetIfAbsent(ctx, common.DeviceIDKey, []byte(uuid.NewString()))
	if err != nil {
		_ = db.Close()
		return nil, storageErr("device id", err)
	}
	s.deviceID = string(id)

	return s, nil
}

func newStore(db *sql.DB, previewDir string, log logging.Logger, now func() time.Time) *Store {
	if log == nil {
		log = logging.Discard()
	}
	if now == nil {
		now = time.Now
	}
	return &Store{
		db:         db,
		clips:      clips.NewSQLiteRepository(db),
		previewDir: previewDir,
		now:        now,
		log:        log.With("module", "store"),
		locks:      newKeyedMutex(),
		subs:       make(map[*Subscription]struct{}),
		done:       make(chan struct{}),
	}
}

// recover moves clips stuck in uploading to failed. Nothing can own an
// upload across a restart.
func (s *Store) recover(ctx context.Context) error {
	n, err := s.clips.ResetStatus(ctx, models.StatusUploading, models.StatusFailed)
	if err != nil {
		return storageErr("recover", err)
	}
	if n > 0 {
		s.log.Warn(ctx, "reset interrupted uploads", "count", n)
	}
	return nil
}

// DeviceID is the persistent id of this installation.
func (s *Store) DeviceID() string {
	return s.deviceID
}

// Close ends all subscriptions and closes the database.
func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.pubMu.Lock()
		s.closed = true
		for sub := range s.subs {
			sub.shutdown()
			delete(s.subs, sub)
		}
		s.pubMu.Unlock()

		close(s.done)
		err = s.db.Close()
	})
	return err
}

func (s *Store) isClosed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Create persists a new pending clip from in.Media and in.MIMEType. The
// returned clip carries its id, digest and preview handle.
func (s *Store) Create(ctx context.Context, in models.Clip) (*models.Clip, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	if len(in.Media) == 0 {
		return nil, errors.New("store: empty media")
	}

	sum := blake2b.Sum256(in.Media)
	clip := models.Clip{
		Media:      append([]byte(nil), in.Media...),
		Size:       int64(len(in.Media)),
		MIMEType:   in.MIMEType,
		Digest:     sum[:],
		CapturedAt: in.CapturedAt,
		Status:     models.StatusPending,
	}
	if clip.CapturedAt.IsZero() {
		clip.CapturedAt = s.now()
	}
	// stored with millisecond precision
	clip.CapturedAt = time.UnixMilli(clip.CapturedAt.UnixMilli())

	var written string
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := clips.NewSQLiteRepository(tx)

		id, err := repo.Insert(ctx, &clip)
		if err != nil {
			return err
		}
		clip.ID = id

		if s.previewDir == "" {
			return nil
		}
		handle := filepath.Join(s.previewDir, strconv.FormatInt(id, 10)+clip.Extension())
		if err := filex.WriteFileAtomic(handle, clip.Media, 0o600); err != nil {
			return fmt.Errorf("failed to write preview: %w", err)
		}
		written = handle
		clip.PreviewHandle = handle
		return repo.SetPreviewHandle(ctx, id, handle)
	})
	if err != nil {
		if written != "" {
			_ = os.Remove(written)
		}
		return nil, storageErr("create", err)
	}

	s.log.Info(ctx, "clip persisted", "clip_id", clip.ID, "bytes", clip.Size, "mime", clip.MIMEType)
	s.publish(ctx)
	return &clip, nil
}

// Update moves clip id to status. Only the transitions allowed by
// models.CanTransition are accepted.
func (s *Store) Update(ctx context.Context, id int64, status models.Status) error {
	if s.isClosed() {
		return ErrClosed
	}
	if !status.Valid() {
		return fmt.Errorf("store: invalid status %q", status)
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := clips.NewSQLiteRepository(tx)

		current, err := repo.GetStatus(ctx, id)
		if err != nil {
			return err
		}
		if current.IsTerminal() {
			return ErrTerminalStatus
		}
		if !models.CanTransition(current, status) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, status)
		}
		return repo.UpdateStatus(ctx, id, status)
	})
	switch {
	case err == nil:
	case errors.Is(err, common.ErrNotFound), errors.Is(err, ErrTerminalStatus),
		errors.Is(err, ErrInvalidTransition):
		return fmt.Errorf("update clip %d: %w", id, err)
	default:
		return storageErr("update", err)
	}

	s.log.Debug(ctx, "clip status updated", "clip_id", id, "status", status)
	s.publish(ctx)
	return nil
}

// Delete removes clip id and its preview file. Deleting an absent id is a
// no-op.
func (s *Store) Delete(ctx context.Context, id int64) error {
	if s.isClosed() {
		return ErrClosed
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	res, err := dbx.WithTxResult(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) (deletion, error) {
		h, ok, err := clips.NewSQLiteRepository(tx).DeleteByID(ctx, id)
		return deletion{handle: h, deleted: ok}, err
	})
	if err != nil {
		return storageErr("delete", err)
	}
	if !res.deleted {
		return nil
	}

	if res.handle != "" {
		if err := os.Remove(res.handle); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.log.Warn(ctx, "failed to release preview", "clip_id", id, "path", res.handle, "error", err)
		}
	}

	s.log.Info(ctx, "clip deleted", "clip_id", id)
	s.publish(ctx)
	return nil
}

// Get returns the full clip including media.
func (s *Store) Get(ctx context.Context, id int64) (*models.Clip, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	c, err := s.clips.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, err
		}
		return nil, storageErr("get", err)
	}
	return c, nil
}

// List returns clip summaries in display order.
func (s *Store) List(ctx context.Context) ([]models.Clip, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	all, err := s.clips.GetAll(ctx)
	if err != nil {
		return nil, storageErr("list", err)
	}
	return all, nil
}

// ListByStatus returns summaries of clips in any of statuses.
func (s *Store) ListByStatus(ctx context.Context, statuses ...models.Status) ([]models.Clip, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	res, err := s.clips.GetByStatus(ctx, statuses...)
	if err != nil {
		return nil, storageErr("list by status", err)
	}
	return res, nil
}

// ObserveAll subscribes to clip list snapshots. The current list is
// delivered immediately and a fresh one follows every committed mutation.
// The subscription ends when ctx is done, on Close or when the store closes.
func (s *Store) ObserveAll(ctx context.Context) (*Subscription, error) {
	sub := newSubscription(s.unsubscribe)

	s.pubMu.Lock()
	if s.closed {
		s.pubMu.Unlock()
		return nil, ErrClosed
	}
	snap, err := s.clips.GetAll(ctx)
	if err != nil {
		s.pubMu.Unlock()
		return nil, storageErr("observe", err)
	}
	s.subs[sub] = struct{}{}
	sub.offer(snap)
	s.pubMu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-sub.Done():
		}
	}()

	return sub, nil
}

func (s *Store) unsubscribe(sub *Subscription) {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()
	delete(s.subs, sub)
	sub.shutdown()
}

// publish re-reads the clip list and offers it to every subscriber. The
// read happens under pubMu, so snapshots go out in commit order.
func (s *Store) publish(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)

	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	if s.closed || len(s.subs) == 0 {
		return
	}

	snap, err := s.clips.GetAll(ctx)
	if err != nil {
		s.log.Error(ctx, "failed to read snapshot", "error", err)
		return
	}
	for sub := range s.subs {
		sub.offer(cloneSnapshot(snap))
	}
}

func cloneSnapshot(in []models.Clip) []models.Clip {
	out := make([]models.Clip, len(in))
	copy(out, in)
	return out
}

type deletion struct {
	handle  string
	deleted bool
}
