package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/clipvault/internal/client/media"
	"github.com/dmitrijs2005/clipvault/internal/client/models"
	"github.com/dmitrijs2005/clipvault/internal/common"
	"github.com/dmitrijs2005/clipvault/internal/logging"
)

type State int

const (
	StateIdle State = iota
	StateLive
	StateRecording
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLive:
		return "live"
	case StateRecording:
		return "recording"
	case StateEnded:
		return "ended"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ClipStore persists finalized recordings.
type ClipStore interface {
	Create(ctx context.Context, clip models.Clip) (*models.Clip, error)
}

type Config struct {
	Constraints     Constraints
	FPS             int
	MIMEPreferences []string
	TimestampLayout string
}

type Deps struct {
	Devices    Devices
	Negotiator media.Negotiator
	Muxers     media.MuxerFactory
	Store      ClipStore
	Scheduler  Scheduler
	Clock      func() time.Time
	Logger     logging.Logger
}

// Session owns one device acquisition from Start to Stop. It moves
// idle -> live -> recording -> live ... -> ended and cannot be restarted.
type Session struct {
	cfg  Config
	deps Deps
	log  logging.Logger

	mu         sync.Mutex
	state      State
	stream     MediaStream
	surface    *Surface
	compositor *Compositor
	rec        *recording
	err        error

	releaseOnce sync.Once
	watchStop   chan struct{}
	done        chan struct{}
}

type recording struct {
	muxer     media.Muxer
	mime      string
	startedAt time.Time
	detach    func()

	audioStop chan struct{}
	audioWG   sync.WaitGroup
}

func NewSession(cfg Config, deps Deps) *Session {
	if cfg.Constraints == (Constraints{}) {
		cfg.Constraints = DefaultConstraints()
	}
	if cfg.FPS <= 0 {
		cfg.FPS = 30
	}
	if len(cfg.MIMEPreferences) == 0 {
		cfg.MIMEPreferences = common.DefaultMIMEPreferences
	}
	if deps.Scheduler == nil {
		deps.Scheduler = TickerScheduler{}
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}
	return &Session{
		cfg:       cfg,
		deps:      deps,
		log:       deps.Logger.With("module", "session"),
		watchStop: make(chan struct{}),
		done:      make(chan struct{}),
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err reports why the session ended on its own, e.g. ErrDeviceLost.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Done is closed once the session is ended.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Surface returns the render target, nil before Start.
func (s *Session) Surface() *Surface {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.surface
}

// Start acquires camera and microphone and starts the compositor.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		return fmt.Errorf("%w: start from %s", ErrInvalidState, s.state)
	}

	stream, err := s.deps.Devices.Acquire(ctx, s.cfg.Constraints)
	if err != nil {
		if errors.Is(err, ErrDeviceUnavailable) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}

	s.stream = stream
	s.surface = NewSurface(s.cfg.Constraints.Width, s.cfg.Constraints.Height)
	s.compositor = NewCompositor(s.surface, stream.Video(), CompositorOptions{
		FPS:    s.cfg.FPS,
		Clock:  s.deps.Clock,
		Layout: s.cfg.TimestampLayout,
		Logger: s.deps.Logger,
	})
	if err := s.compositor.Start(s.deps.Scheduler); err != nil {
		stream.Stop()
		return err
	}
	s.state = StateLive

	go s.watch(stream)

	s.log.Info(ctx, "session live",
		"width", s.cfg.Constraints.Width, "height", s.cfg.Constraints.Height, "fps", s.cfg.FPS)
	return nil
}

// BeginRecording negotiates a container and starts feeding frames and
// audio into a new muxer.
func (s *Session) BeginRecording(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateLive {
		return fmt.Errorf("%w: begin recording from %s", ErrInvalidState, s.state)
	}

	mime, err := media.Negotiate(s.deps.Negotiator, s.cfg.MIMEPreferences)
	if err != nil {
		return err
	}

	var audio AudioTrack
	var audioSpec media.AudioSpec
	if tracks := s.stream.Audio(); len(tracks) > 0 {
		audio = tracks[0]
		audioSpec = audio.Spec()
	}

	b := s.surface.Bounds()
	muxer, err := s.deps.Muxers.NewMuxer(mime,
		media.VideoSpec{Width: b.Dx(), Height: b.Dy(), FPS: s.cfg.FPS}, audioSpec)
	if err != nil {
		return fmt.Errorf("failed to open muxer: %w", err)
	}

	rec := &recording{
		muxer:     muxer,
		mime:      mime,
		startedAt: s.deps.Clock(),
		audioStop: make(chan struct{}),
	}
	rec.detach = s.surface.Attach(muxer)

	if audio != nil {
		rec.audioWG.Add(1)
		go s.forwardAudio(rec, audio)
	}

	s.rec = rec
	s.state = StateRecording
	s.log.Info(ctx, "recording started", "mime", mime)
	return nil
}

func (s *Session) forwardAudio(rec *recording, track AudioTrack) {
	defer rec.audioWG.Done()

	chunks := track.Chunks()
	for {
		select {
		case <-rec.audioStop:
			return
		case c, ok := <-chunks:
			if !ok {
				return
			}
			if err := rec.muxer.WriteAudio(c); err != nil {
				s.log.Warn(context.Background(), "audio chunk dropped", "error", err)
			}
		}
	}
}

// EndRecording finalizes the muxer, persists the clip as pending and
// returns to live.
func (s *Session) EndRecording(ctx context.Context) (*models.Clip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateRecording {
		return nil, fmt.Errorf("%w: end recording from %s", ErrInvalidState, s.state)
	}

	clip, err := s.finishLocked(ctx)
	s.state = StateLive
	return clip, err
}

// finishLocked stops feeding the muxer, finalizes it and stores the result.
func (s *Session) finishLocked(ctx context.Context) (*models.Clip, error) {
	rec := s.rec
	s.rec = nil

	rec.detach()
	close(rec.audioStop)
	rec.audioWG.Wait()

	data, err := rec.muxer.Finalize(ctx)
	if err != nil {
		rec.muxer.Abort()
		return nil, fmt.Errorf("failed to finalize recording: %w", err)
	}

	clip, err := s.deps.Store.Create(ctx, models.Clip{
		Media:      data,
		MIMEType:   rec.mime,
		CapturedAt: s.deps.Clock(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to persist recording: %w", err)
	}

	s.log.Info(ctx, "recording saved", "clip_id", clip.ID, "bytes", clip.Size,
		"duration", s.deps.Clock().Sub(rec.startedAt))
	return clip, nil
}

// Stop finalizes an active recording, stops the compositor and releases the
// devices. The returned clip is nil when nothing was recording.
func (s *Session) Stop(ctx context.Context) (*models.Clip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateEnded {
		return nil, nil
	}

	var clip *models.Clip
	var err error
	if s.state == StateRecording {
		clip, err = s.finishLocked(ctx)
	}

	s.endLocked()
	return clip, err
}

// endLocked tears down the compositor and devices exactly once.
func (s *Session) endLocked() {
	s.state = StateEnded
	if s.compositor != nil {
		s.compositor.Stop()
	}
	s.releaseOnce.Do(func() {
		close(s.watchStop)
		if s.stream != nil {
			s.stream.Stop()
		}
		close(s.done)
	})
}

// watch ends the session when a device disappears. Captured bytes are
// finalized and persisted on a best-effort basis.
func (s *Session) watch(stream MediaStream) {
	select {
	case <-s.watchStop:
		return
	case <-stream.Ended():
	}

	ctx := context.Background()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateEnded {
		return
	}

	s.err = ErrDeviceLost
	s.log.Error(ctx, "capture device lost", "state", s.state)

	if s.state == StateRecording {
		clip, err := s.finishLocked(ctx)
		if err != nil {
			s.err = errors.Join(ErrDeviceLost, err)
			s.log.Error(ctx, "failed to save interrupted recording", "error", err)
		} else {
			s.log.Info(ctx, "interrupted recording saved", "clip_id", clip.ID)
		}
	}

	s.endLocked()
}
