package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/clipvault/internal/client/capture"
	"github.com/dmitrijs2005/clipvault/internal/client/client"
	"github.com/dmitrijs2005/clipvault/internal/client/config"
	"github.com/dmitrijs2005/clipvault/internal/client/media"
	"github.com/dmitrijs2005/clipvault/internal/client/models"
	"github.com/dmitrijs2005/clipvault/internal/client/services"
	"github.com/dmitrijs2005/clipvault/internal/client/store"
	"github.com/dmitrijs2005/clipvault/internal/client/transport"
	"github.com/dmitrijs2005/clipvault/internal/logging"
)

type Mode string

const (
	ModeOffline  Mode = "offline"
	ModeOnline   Mode = "online"
	ModeDisabled Mode = "disabled"
)

const defaultOnlineCheckInterval = 3 * time.Second

// pinger probes the backend; client.Client satisfies it.
type pinger interface {
	Ping(ctx context.Context) error
}

type App struct {
	config *config.Config
	log    logging.Logger

	store      *store.Store
	coord      services.SyncCoordinator
	health     client.Client
	pinger     pinger
	newSession func() *capture.Session

	out         io.Writer
	scanner     *bufio.Scanner
	interactive bool

	mu      sync.Mutex
	mode    Mode
	session *capture.Session
	counts  map[models.Status]int
	total   int
}

// NewApp opens the clip store and wires transport, sync, media and the
// optional health probe from c.
func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	st, err := store.Open(ctx, store.Options{
		DSN:        store.DSNForPath(c.DBPath),
		PreviewDir: c.PreviewDir,
		Logger:     log,
	})
	if err != nil {
		return nil, fmt.Errorf("error opening clip store: %w", err)
	}

	tr, err := transport.New(c.TransportOptions(), st.DeviceID())
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	a := &App{
		config:      c,
		log:         log.With("module", "cli"),
		store:       st,
		coord:       services.NewSyncCoordinator(st, tr, log, c.UploadConcurrency),
		out:         os.Stdout,
		scanner:     bufio.NewScanner(os.Stdin),
		interactive: isTerminal(int(os.Stdin.Fd())),
		mode:        ModeDisabled,
	}

	if c.HealthEndpoint != "" {
		hc, err := client.NewGRPCClient(c.HealthEndpoint, "")
		if err != nil {
			_ = st.Close()
			return nil, err
		}
		a.health = hc
		a.pinger = hc
		a.mode = ModeOffline
	}

	ff := media.NewFFmpeg(c.FFmpegPath, "", log)
	a.newSession = func() *capture.Session {
		return capture.NewSession(capture.Config{
			Constraints: capture.Constraints{
				FacingMode: "user",
				Width:      c.Width,
				Height:     c.Height,
				Audio:      true,
			},
			FPS:             c.FPS,
			MIMEPreferences: c.MIMEPreferences,
		}, capture.Deps{
			Devices:    capture.SyntheticDevices{FPS: c.FPS},
			Negotiator: ff,
			Muxers:     ff,
			Store:      st,
			Logger:     log,
		})
	}

	return a, nil
}

// Close stops a running session and releases the store and health client.
func (a *App) Close(ctx context.Context) error {
	if _, err := a.Stop(ctx); err != nil {
		a.log.Warn(ctx, "failed to stop session", "error", err)
	}
	if a.health != nil {
		_ = a.health.Close()
	}
	return a.store.Close()
}

func (a *App) Mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.mu.Unlock()

	if changed {
		a.log.Info(context.Background(), "switched mode", "mode", mode)
	}
}

// Run blocks in the REPL until the user exits or input ends.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sub, err := a.store.ObserveAll(ctx)
	if err != nil {
		return err
	}
	go a.watchClips(sub)

	if a.pinger != nil {
		go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)
	}

	printlnFn("Welcome to clipvault (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, a.scanner)
	return nil
}

// StartOnlineStatusWatcher probes the health endpoint every interval and
// flips between online and offline.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	check := func() {
		if err := a.pinger.Ping(ctx); err != nil {
			a.setMode(ModeOffline)
		} else {
			a.setMode(ModeOnline)
		}
	}
	check()

	if interval <= 0 {
		interval = defaultOnlineCheckInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			check()
		case <-ctx.Done():
			return
		}
	}
}

// watchClips keeps the per-status counters shown in the prompt current.
func (a *App) watchClips(sub *store.Subscription) {
	for snap := range sub.Updates() {
		counts := make(map[models.Status]int, 4)
		for _, c := range snap {
			counts[c.Status]++
		}
		a.mu.Lock()
		a.counts = counts
		a.total = len(snap)
		a.mu.Unlock()
	}
}

func (a *App) getStatus() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := string(a.mode)
	if a.session != nil {
		s += " " + a.session.State().String()
	}
	s += fmt.Sprintf(" %d clips", a.total)
	if n := a.counts[models.StatusPending] + a.counts[models.StatusFailed]; n > 0 {
		s += fmt.Sprintf(", %d unsynced", n)
	}
	if n := a.counts[models.StatusUploading]; n > 0 {
		s += fmt.Sprintf(", %d uploading", n)
	}
	return "(" + s + ")"
}
