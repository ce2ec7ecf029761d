package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/clipvault/internal/client/capture"
	"github.com/dmitrijs2005/clipvault/internal/client/models"
	"github.com/dmitrijs2005/clipvault/internal/client/services"
)

var (
	errNoSession = errors.New("camera is not started, use 'start'")
	errOffline   = errors.New("offline, uploads resume when the endpoint is reachable")
)

const listTimeLayout = "2006-01-02 15:04:05"

// Start acquires the camera and shows the live preview.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.session != nil && a.session.State() != capture.StateEnded {
		a.mu.Unlock()
		return fmt.Errorf("%w: camera already started", capture.ErrInvalidState)
	}
	s := a.newSession()
	a.session = s
	a.mu.Unlock()

	if err := s.Start(ctx); err != nil {
		a.mu.Lock()
		a.session = nil
		a.mu.Unlock()
		return err
	}
	go a.watchSession(s)

	printlnFn(fmt.Sprintf("camera live %dx%d", s.Surface().Bounds().Dx(), s.Surface().Bounds().Dy()))
	return nil
}

// watchSession reports a session that ended on its own.
func (a *App) watchSession(s *capture.Session) {
	<-s.Done()
	if err := s.Err(); err != nil {
		printlnFn("session ended:", err)
	}
}

func (a *App) currentSession() (*capture.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session == nil {
		return nil, errNoSession
	}
	return a.session, nil
}

func (a *App) Record(ctx context.Context) error {
	s, err := a.currentSession()
	if err != nil {
		return err
	}
	if err := s.BeginRecording(ctx); err != nil {
		return err
	}
	printlnFn("recording")
	return nil
}

func (a *App) StopRecord(ctx context.Context) error {
	s, err := a.currentSession()
	if err != nil {
		return err
	}
	clip, err := s.EndRecording(ctx)
	if err != nil {
		return err
	}
	printlnFn(fmt.Sprintf("saved clip #%d (%s, %d bytes)", clip.ID, clip.Status, clip.Size))
	return nil
}

// Stop ends the session, saving an active recording first. The returned
// clip is nil when nothing was recording.
func (a *App) Stop(ctx context.Context) (*models.Clip, error) {
	a.mu.Lock()
	s := a.session
	a.session = nil
	a.mu.Unlock()

	if s == nil {
		return nil, nil
	}
	clip, err := s.Stop(ctx)
	if clip != nil {
		printlnFn(fmt.Sprintf("saved clip #%d (%s, %d bytes)", clip.ID, clip.Status, clip.Size))
	}
	return clip, err
}

func (a *App) List(ctx context.Context) error {
	clips, err := a.store.List(ctx)
	if err != nil {
		return err
	}
	if len(clips) == 0 {
		printlnFn("no clips")
		return nil
	}
	for _, c := range clips {
		printlnFn(formatClip(c))
	}
	return nil
}

func formatClip(c models.Clip) string {
	return fmt.Sprintf("#%-4d %s  %-10s %8d B  %s",
		c.ID, c.CapturedAt.Local().Format(listTimeLayout), c.MIMEType, c.Size, c.Status)
}

func (a *App) canUpload() error {
	if a.Mode() == ModeOffline {
		return errOffline
	}
	return nil
}

// Upload retries a single clip.
func (a *App) Upload(ctx context.Context, arg string) error {
	id, err := parseID(arg)
	if err != nil {
		return err
	}
	if err := a.canUpload(); err != nil {
		return err
	}

	status, err := a.coord.Upload(ctx, id)
	if errors.Is(err, services.ErrUploadInProgress) {
		printlnFn(fmt.Sprintf("clip #%d: upload already in progress", id))
		return nil
	}
	if err != nil {
		return err
	}
	printlnFn(fmt.Sprintf("clip #%d: %s", id, status))
	return nil
}

// Sync uploads every pending and failed clip.
func (a *App) Sync(ctx context.Context) error {
	if err := a.canUpload(); err != nil {
		return err
	}
	start := time.Now()
	summary, err := a.coord.UploadAll(ctx)
	if err != nil {
		return err
	}
	printlnFn(fmt.Sprintf("synced %d, failed %d, skipped %d in %s",
		summary.Synced, summary.Failed, summary.Skipped, time.Since(start).Round(time.Millisecond)))
	return nil
}

func (a *App) Delete(ctx context.Context, arg string) error {
	id, err := parseID(arg)
	if err != nil {
		return err
	}
	if a.interactive && !confirm(a.scanner, fmt.Sprintf("Delete clip #%d?", id), a.out) {
		printlnFn("cancelled")
		return nil
	}
	if err := a.store.Delete(ctx, id); err != nil {
		return err
	}
	printlnFn(fmt.Sprintf("clip #%d deleted", id))
	return nil
}

// Play prints the preview file of a clip.
func (a *App) Play(ctx context.Context, arg string) error {
	id, err := parseID(arg)
	if err != nil {
		return err
	}
	clip, err := a.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if clip.PreviewHandle == "" {
		return fmt.Errorf("clip #%d has no preview", id)
	}
	printlnFn(clip.PreviewHandle)
	return nil
}

func parseID(arg string) (int64, error) {
	if arg == "" {
		return 0, errors.New("clip id is required")
	}
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid clip id %q", arg)
	}
	return id, nil
}
