package capture

import (
	"context"
	"image"

	"github.com/dmitrijs2005/clipvault/internal/client/media"
)

// Constraints describe the requested devices.
type Constraints struct {
	// FacingMode is "user" for the front camera, "environment" for the rear.
	FacingMode string
	Width      int
	Height     int
	Audio      bool
}

// DefaultConstraints asks for the front camera in portrait 720x1280 with
// audio.
func DefaultConstraints() Constraints {
	return Constraints{FacingMode: "user", Width: 720, Height: 1280, Audio: true}
}

type VideoTrack interface {
	// Current returns the latest camera frame, or nil before the first one.
	Current() image.Image
}

type AudioTrack interface {
	Spec() media.AudioSpec
	// Chunks is closed when the track stops.
	Chunks() <-chan media.AudioChunk
}

type MediaStream interface {
	Video() VideoTrack
	Audio() []AudioTrack
	// Ended is closed when a device goes away on its own.
	Ended() <-chan struct{}
	// Stop releases the devices. Safe to call more than once.
	Stop()
}

type Devices interface {
	Acquire(ctx context.Context, c Constraints) (MediaStream, error)
}
