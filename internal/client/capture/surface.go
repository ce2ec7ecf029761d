package capture

import (
	"errors"
	"image"
	"sync"

	"github.com/dmitrijs2005/clipvault/internal/client/media"
)

// Sink receives composited frames. The frame image belongs to the surface
// and is only valid for the duration of the call.
type Sink interface {
	WriteVideo(f media.Frame) error
}

// Surface is the fixed-size render target shared by the compositor and the
// recorder.
type Surface struct {
	img *image.RGBA

	mu     sync.Mutex
	sinks  map[int]Sink
	nextID int
}

func NewSurface(width, height int) *Surface {
	return &Surface{
		img:   image.NewRGBA(image.Rect(0, 0, width, height)),
		sinks: make(map[int]Sink),
	}
}

func (s *Surface) Bounds() image.Rectangle { return s.img.Bounds() }

// Attach registers sink and returns a function that detaches it. After the
// detach function returns the sink receives no more frames.
func (s *Surface) Attach(sink Sink) (detach func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.sinks[id] = sink
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.sinks, id)
			s.mu.Unlock()
		})
	}
}

// Render lets draw update the surface pixels and then hands the result to
// every attached sink as frame f.
func (s *Surface) Render(draw func(dst *image.RGBA), f media.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	draw(s.img)

	f.Image = s.img
	var errs []error
	for _, sink := range s.sinks {
		if err := sink.WriteVideo(f); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
