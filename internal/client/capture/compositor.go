package capture

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"

	"github.com/dmitrijs2005/clipvault/internal/client/media"
	"github.com/dmitrijs2005/clipvault/internal/logging"
	xdraw "golang.org/x/image/draw"
)

// DefaultTimestampLayout is the overlay format.
const DefaultTimestampLayout = "2006-01-02 15:04:05"

type CompositorOptions struct {
	FPS    int
	Clock  func() time.Time
	Layout string
	Logger logging.Logger
}

// Compositor redraws the latest camera frame scaled to the surface, stamps
// the current time over it and publishes the result to the surface sinks.
type Compositor struct {
	surface  *Surface
	source   VideoTrack
	interval time.Duration
	clock    func() time.Time
	layout   string
	stamp    textStamp
	log      logging.Logger

	// guarded by the scheduler: ticks never overlap
	seq int64

	mu     sync.Mutex
	handle Handle
}

func NewCompositor(surface *Surface, source VideoTrack, opts CompositorOptions) *Compositor {
	if opts.FPS <= 0 {
		opts.FPS = 30
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Layout == "" {
		opts.Layout = DefaultTimestampLayout
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	c := &Compositor{
		surface:  surface,
		source:   source,
		interval: time.Second / time.Duration(opts.FPS),
		clock:    opts.Clock,
		layout:   opts.Layout,
		log:      opts.Logger.With("module", "compositor"),
	}
	if surface != nil {
		c.stamp = newTextStamp(surface.Bounds().Dy())
	}
	return c
}

var errCompositorUnbound = errors.New("compositor needs a surface and a video source")

// Start schedules a tick every 1/FPS seconds.
func (c *Compositor) Start(s Scheduler) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.surface == nil || c.source == nil {
		return errCompositorUnbound
	}
	if c.handle != nil {
		return errors.New("compositor already running")
	}
	c.handle = s.Every(c.interval, c.tick)
	return nil
}

// Stop cancels the render loop. No tick runs after Stop returns.
func (c *Compositor) Stop() {
	c.mu.Lock()
	h := c.handle
	c.handle = nil
	c.mu.Unlock()

	if h != nil {
		h.Cancel()
	}
}

func (c *Compositor) tick() {
	if c.surface == nil || c.source == nil {
		return
	}
	src := c.source.Current()
	if src == nil {
		return
	}

	now := c.clock()
	text := now.Format(c.layout)

	err := c.surface.Render(func(dst *image.RGBA) {
		xdraw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
		c.stamp.draw(dst, text)
	}, media.Frame{Seq: c.seq, Timestamp: now, Overlay: text})
	c.seq++

	if err != nil {
		c.log.Warn(context.Background(), "sink rejected frame", "seq", c.seq-1, "error", err)
	}
}
