package capture

import (
	"context"
	"errors"
	"image/color"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/clipvault/internal/client/media"
	"github.com/dmitrijs2005/clipvault/internal/client/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAudio struct {
	ch chan media.AudioChunk
}

func (a *fakeAudio) Spec() media.AudioSpec             { return media.AudioSpec{SampleRate: 48000, Channels: 1} }
func (a *fakeAudio) Chunks() <-chan media.AudioChunk { return a.ch }

type fakeStream struct {
	video *fakeVideo
	audio *fakeAudio
	ended chan struct{}
	stops atomic.Int32
}

func newFakeStream() *fakeStream {
	return &fakeStream{
		video: &fakeVideo{img: solid(8, 8, color.RGBA{G: 0xff, A: 0xff})},
		audio: &fakeAudio{ch: make(chan media.AudioChunk, 4)},
		ended: make(chan struct{}),
	}
}

func (s *fakeStream) Video() VideoTrack      { return s.video }
func (s *fakeStream) Audio() []AudioTrack    { return []AudioTrack{s.audio} }
func (s *fakeStream) Ended() <-chan struct{} { return s.ended }
func (s *fakeStream) Stop()                  { s.stops.Add(1) }

type fakeDevices struct {
	stream *fakeStream
	err    error
	got    Constraints
}

func (d *fakeDevices) Acquire(ctx context.Context, c Constraints) (MediaStream, error) {
	d.got = c
	if d.err != nil {
		return nil, d.err
	}
	return d.stream, nil
}

type fakeMuxer struct {
	mu        sync.Mutex
	mime      string
	overlays  []string
	audio     int
	finalized bool
	aborted   bool
	err       error
}

func (m *fakeMuxer) WriteVideo(f media.Frame) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.finalized {
		return errors.New("write after finalize")
	}
	m.overlays = append(m.overlays, f.Overlay)
	return nil
}

func (m *fakeMuxer) WriteAudio(c media.AudioChunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audio++
	return nil
}

func (m *fakeMuxer) Finalize(ctx context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finalized = true
	if m.err != nil {
		return nil, m.err
	}
	return []byte(m.mime + ":" + string(rune('0'+len(m.overlays)))), nil
}

func (m *fakeMuxer) Abort() {
	m.mu.Lock()
	m.aborted = true
	m.mu.Unlock()
}

func (m *fakeMuxer) frames() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.overlays)
}

func (m *fakeMuxer) audioChunks() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.audio
}

type fakeMuxers struct {
	created []*fakeMuxer
	video   media.VideoSpec
	audio   media.AudioSpec
	err     error
}

func (f *fakeMuxers) NewMuxer(mime string, v media.VideoSpec, a media.AudioSpec) (media.Muxer, error) {
	m := &fakeMuxer{mime: mime, err: f.err}
	f.created = append(f.created, m)
	f.video, f.audio = v, a
	return m, nil
}

type fakeStore struct {
	mu     sync.Mutex
	clips  []models.Clip
	err    error
	nextID int64
}

func (s *fakeStore) Create(ctx context.Context, c models.Clip) (*models.Clip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.nextID++
	c.ID = s.nextID
	c.Status = models.StatusPending
	c.Size = int64(len(c.Media))
	s.clips = append(s.clips, c)
	return &c, nil
}

func (s *fakeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clips)
}

type harness struct {
	session *Session
	devices *fakeDevices
	stream  *fakeStream
	muxers  *fakeMuxers
	store   *fakeStore
	sched   *ManualScheduler
}

func newHarness(t *testing.T, negotiator media.Negotiator) *harness {
	t.Helper()
	h := &harness{
		stream: newFakeStream(),
		muxers: &fakeMuxers{},
		store:  &fakeStore{},
		sched:  NewManualScheduler(),
	}
	h.devices = &fakeDevices{stream: h.stream}
	if negotiator == nil {
		negotiator = media.StaticNegotiator{"video/mp4", "video/webm"}
	}
	h.session = NewSession(Config{
		Constraints: Constraints{FacingMode: "user", Width: 72, Height: 128, Audio: true},
		FPS:         30,
	}, Deps{
		Devices:    h.devices,
		Negotiator: negotiator,
		Muxers:     h.muxers,
		Store:      h.store,
		Scheduler:  h.sched,
		Clock:      fixedClock,
	})
	return h
}

func TestSession_StartFailureLeavesIdle(t *testing.T) {
	h := newHarness(t, nil)
	h.devices.err = errors.New("permission denied")

	err := h.session.Start(context.Background())
	require.ErrorIs(t, err, ErrDeviceUnavailable)
	assert.Equal(t, StateIdle, h.session.State())
	assert.Nil(t, h.session.Surface())
	assert.Equal(t, 0, h.sched.Active())

	h.devices.err = nil
	require.NoError(t, h.session.Start(context.Background()))
	assert.Equal(t, StateLive, h.session.State())
	assert.Equal(t, "user", h.devices.got.FacingMode)
}

func TestSession_InvalidTransitions(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	require.ErrorIs(t, h.session.BeginRecording(ctx), ErrInvalidState)
	_, err := h.session.EndRecording(ctx)
	require.ErrorIs(t, err, ErrInvalidState)

	require.NoError(t, h.session.Start(ctx))
	require.ErrorIs(t, h.session.Start(ctx), ErrInvalidState)
	_, err = h.session.EndRecording(ctx)
	require.ErrorIs(t, err, ErrInvalidState)

	require.NoError(t, h.session.BeginRecording(ctx))
	require.ErrorIs(t, h.session.BeginRecording(ctx), ErrInvalidState)
}

func TestSession_UnsupportedFormat(t *testing.T) {
	h := newHarness(t, media.StaticNegotiator{})
	ctx := context.Background()
	require.NoError(t, h.session.Start(ctx))

	err := h.session.BeginRecording(ctx)
	require.ErrorIs(t, err, media.ErrUnsupportedFormat)
	assert.Equal(t, StateLive, h.session.State())
	assert.Empty(t, h.muxers.created)
}

func TestSession_RecordPersistsPendingClip(t *testing.T) {
	h := newHarness(t, media.StaticNegotiator{"video/webm"})
	ctx := context.Background()

	require.NoError(t, h.session.Start(ctx))
	h.sched.Tick() // live frame, nothing recording yet

	require.NoError(t, h.session.BeginRecording(ctx))
	require.Len(t, h.muxers.created, 1)
	mux := h.muxers.created[0]
	assert.Equal(t, "video/webm", mux.mime)
	assert.Equal(t, media.VideoSpec{Width: 72, Height: 128, FPS: 30}, h.muxers.video)
	assert.Equal(t, 48000, h.muxers.audio.SampleRate)

	h.stream.audio.ch <- media.AudioChunk{Samples: make([]int16, 960)}
	for i := 0; i < 5; i++ {
		h.sched.Tick()
	}
	require.Eventually(t, func() bool { return mux.audioChunks() == 1 }, time.Second, time.Millisecond)

	clip, err := h.session.EndRecording(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateLive, h.session.State())
	assert.Equal(t, models.StatusPending, clip.Status)
	assert.Equal(t, "video/webm", clip.MIMEType)
	assert.Equal(t, []byte("video/webm:5"), clip.Media)
	assert.True(t, mux.finalized)

	for _, o := range mux.overlays {
		assert.Contains(t, o, "12:00:00")
	}

	h.sched.Tick()
	assert.Equal(t, 5, mux.frames(), "detached muxer receives no frames")
}

func TestSession_StopFinalizesAndReleasesOnce(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	require.NoError(t, h.session.Start(ctx))
	require.NoError(t, h.session.BeginRecording(ctx))
	h.sched.Tick()
	h.sched.Tick()

	clip, err := h.session.Stop(ctx)
	require.NoError(t, err)
	require.NotNil(t, clip)
	assert.Equal(t, 1, h.store.count())
	assert.Equal(t, StateEnded, h.session.State())
	assert.EqualValues(t, 1, h.stream.stops.Load())
	assert.Equal(t, 0, h.sched.Active())

	h.sched.Tick()
	assert.Equal(t, 2, h.muxers.created[0].frames())

	clip, err = h.session.Stop(ctx)
	require.NoError(t, err)
	assert.Nil(t, clip)
	assert.EqualValues(t, 1, h.stream.stops.Load())

	select {
	case <-h.session.Done():
	default:
		t.Fatal("done not closed")
	}
	require.ErrorIs(t, h.session.Start(ctx), ErrInvalidState)
}

func TestSession_StopWhileLive(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	require.NoError(t, h.session.Start(ctx))
	clip, err := h.session.Stop(ctx)
	require.NoError(t, err)
	assert.Nil(t, clip)
	assert.Equal(t, 0, h.store.count())
	assert.EqualValues(t, 1, h.stream.stops.Load())
}

func TestSession_DeviceLossSavesRecording(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	require.NoError(t, h.session.Start(ctx))
	require.NoError(t, h.session.BeginRecording(ctx))
	h.sched.Tick()
	h.sched.Tick()
	h.sched.Tick()

	close(h.stream.ended)

	select {
	case <-h.session.Done():
	case <-time.After(time.Second):
		t.Fatal("session did not end after device loss")
	}

	assert.Equal(t, StateEnded, h.session.State())
	require.ErrorIs(t, h.session.Err(), ErrDeviceLost)
	assert.Equal(t, 1, h.store.count())
	assert.EqualValues(t, 1, h.stream.stops.Load())
	assert.Equal(t, 0, h.sched.Active())

	clip, err := h.session.Stop(ctx)
	require.NoError(t, err)
	assert.Nil(t, clip)
}

func TestSession_DeviceLossWithFailedFinalize(t *testing.T) {
	h := newHarness(t, nil)
	h.muxers.err = errors.New("encoder crashed")
	ctx := context.Background()

	require.NoError(t, h.session.Start(ctx))
	require.NoError(t, h.session.BeginRecording(ctx))
	close(h.stream.ended)

	<-h.session.Done()
	err := h.session.Err()
	require.ErrorIs(t, err, ErrDeviceLost)
	require.ErrorContains(t, err, "encoder crashed")
	assert.True(t, h.muxers.created[0].aborted)
	assert.Equal(t, 0, h.store.count())
}

func TestSession_StoreFailureSurfaces(t *testing.T) {
	h := newHarness(t, nil)
	h.store.err = errors.New("disk full")
	ctx := context.Background()

	require.NoError(t, h.session.Start(ctx))
	require.NoError(t, h.session.BeginRecording(ctx))
	h.sched.Tick()

	_, err := h.session.EndRecording(ctx)
	require.ErrorContains(t, err, "disk full")
	assert.Equal(t, StateLive, h.session.State())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "recording", StateRecording.String())
	assert.Equal(t, "State(9)", State(9).String())
}
