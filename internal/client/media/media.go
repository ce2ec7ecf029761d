// Package media negotiates a container format and muxes captured video
// frames and audio chunks into one clip.
package media

import (
	"context"
	"errors"
	"image"
	"strings"
	"time"
)

// ErrUnsupportedFormat is returned when no preferred container is supported.
var ErrUnsupportedFormat = errors.New("no supported container format")

// Negotiator reports which container MIME types can be produced.
type Negotiator interface {
	IsTypeSupported(mime string) bool
}

// Negotiate returns the first entry of prefs supported by n.
func Negotiate(n Negotiator, prefs []string) (string, error) {
	for _, mime := range prefs {
		if n.IsTypeSupported(mime) {
			return mime, nil
		}
	}
	return "", ErrUnsupportedFormat
}

// BaseType strips parameters such as ";codecs=vp9" and lowercases the type.
func BaseType(mime string) string {
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	return strings.ToLower(strings.TrimSpace(mime))
}

// StaticNegotiator supports a fixed list of container types.
type StaticNegotiator []string

func (s StaticNegotiator) IsTypeSupported(mime string) bool {
	want := BaseType(mime)
	for _, m := range s {
		if BaseType(m) == want {
			return true
		}
	}
	return false
}

type VideoSpec struct {
	Width  int
	Height int
	FPS    int
}

type AudioSpec struct {
	SampleRate int
	Channels   int
}

// Enabled reports whether the spec describes an audio track.
func (a AudioSpec) Enabled() bool {
	return a.SampleRate > 0 && a.Channels > 0
}

// Frame is one composited video frame.
type Frame struct {
	Seq       int64
	Timestamp time.Time
	Image     *image.RGBA
	// Overlay is the text drawn on the frame, kept for inspection.
	Overlay string
}

// AudioChunk is interleaved signed 16-bit PCM.
type AudioChunk struct {
	Timestamp time.Time
	Samples   []int16
}

// Muxer accumulates one recording. Finalize or Abort ends it; further
// writes fail.
type Muxer interface {
	WriteVideo(f Frame) error
	WriteAudio(c AudioChunk) error
	Finalize(ctx context.Context) ([]byte, error)
	Abort()
}

type MuxerFactory interface {
	NewMuxer(mime string, video VideoSpec, audio AudioSpec) (Muxer, error)
}
