package capture

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/clipvault/internal/client/media"
)

// SyntheticDevices produces a moving color-bar test pattern and a quiet
// tone instead of real hardware.
type SyntheticDevices struct {
	FPS        int
	SampleRate int
	// Unavailable makes Acquire fail, as if permission was denied.
	Unavailable bool
}

func (d SyntheticDevices) Acquire(ctx context.Context, c Constraints) (MediaStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.Unavailable {
		return nil, fmt.Errorf("%w: synthetic device disabled", ErrDeviceUnavailable)
	}
	if c.Width <= 0 || c.Height <= 0 {
		return nil, fmt.Errorf("%w: invalid resolution %dx%d", ErrDeviceUnavailable, c.Width, c.Height)
	}

	fps := d.FPS
	if fps <= 0 {
		fps = 30
	}
	rate := d.SampleRate
	if rate <= 0 {
		rate = 48000
	}

	s := &SyntheticStream{
		width:  c.Width,
		height: c.Height,
		fps:    fps,
		stopCh: make(chan struct{}),
		ended:  make(chan struct{}),
	}
	s.video = &syntheticVideo{}
	s.video.latest.Store(s.createFrame())

	s.wg.Add(1)
	go s.generateFrames()

	if c.Audio {
		s.audio = &syntheticAudio{
			spec:   media.AudioSpec{SampleRate: rate, Channels: 1},
			chunks: make(chan media.AudioChunk, 8),
		}
		s.wg.Add(1)
		go s.generateAudio()
	}
	return s, nil
}

// SyntheticStream is the MediaStream returned by SyntheticDevices.
type SyntheticStream struct {
	width, height, fps int

	video *syntheticVideo
	audio *syntheticAudio

	seq atomic.Uint64

	stopCh   chan struct{}
	stopOnce sync.Once
	ended    chan struct{}
	lostOnce sync.Once
	wg       sync.WaitGroup
}

type syntheticVideo struct {
	latest atomic.Pointer[image.RGBA]
}

func (v *syntheticVideo) Current() image.Image {
	if img := v.latest.Load(); img != nil {
		return img
	}
	return nil
}

type syntheticAudio struct {
	spec   media.AudioSpec
	chunks chan media.AudioChunk
}

func (a *syntheticAudio) Spec() media.AudioSpec             { return a.spec }
func (a *syntheticAudio) Chunks() <-chan media.AudioChunk { return a.chunks }

func (s *SyntheticStream) Video() VideoTrack { return s.video }

func (s *SyntheticStream) Audio() []AudioTrack {
	if s.audio == nil {
		return nil
	}
	return []AudioTrack{s.audio}
}

func (s *SyntheticStream) Ended() <-chan struct{} { return s.ended }

func (s *SyntheticStream) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		s.wg.Wait()
	})
}

// Lose simulates the device disappearing: generators stop and Ended fires.
func (s *SyntheticStream) Lose() {
	s.Stop()
	s.lostOnce.Do(func() { close(s.ended) })
}

func (s *SyntheticStream) generateFrames() {
	defer s.wg.Done()

	ticker := time.NewTicker(time.Second / time.Duration(s.fps))
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.video.latest.Store(s.createFrame())
		}
	}
}

var bars = []color.RGBA{
	{0xc0, 0xc0, 0xc0, 0xff},
	{0xc0, 0xc0, 0x00, 0xff},
	{0x00, 0xc0, 0xc0, 0xff},
	{0x00, 0xc0, 0x00, 0xff},
	{0xc0, 0x00, 0xc0, 0xff},
	{0xc0, 0x00, 0x00, 0xff},
	{0x00, 0x00, 0xc0, 0xff},
}

// createFrame draws vertical color bars shifted by the frame number so
// motion is visible in the recording.
func (s *SyntheticStream) createFrame() *image.RGBA {
	seq := int(s.seq.Add(1))
	img := image.NewRGBA(image.Rect(0, 0, s.width, s.height))
	barWidth := s.width/len(bars) + 1
	shift := (seq * 4) % s.width

	for y := 0; y < s.height; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < s.width; x++ {
			c := bars[((x+shift)%s.width)/barWidth]
			i := x * 4
			row[i], row[i+1], row[i+2], row[i+3] = c.R, c.G, c.B, c.A
		}
	}
	return img
}

func (s *SyntheticStream) generateAudio() {
	defer s.wg.Done()
	defer close(s.audio.chunks)

	const chunkEvery = 20 * time.Millisecond
	perChunk := s.audio.spec.SampleRate / 50
	ticker := time.NewTicker(chunkEvery)
	defer ticker.Stop()

	phase := 0.0
	step := 2 * math.Pi * 440 / float64(s.audio.spec.SampleRate)

	for {
		select {
		case <-s.stopCh:
			return
		case now := <-ticker.C:
			samples := make([]int16, perChunk)
			for i := range samples {
				samples[i] = int16(1000 * math.Sin(phase))
				phase += step
			}
			phase = math.Mod(phase, 2*math.Pi)

			select {
			case s.audio.chunks <- media.AudioChunk{Timestamp: now, Samples: samples}:
			default:
				// nobody is listening; drop
			}
		}
	}
}
