package capture

import "errors"

var (
	// ErrDeviceUnavailable is returned when the camera or microphone cannot
	// be acquired (denied, missing or busy).
	ErrDeviceUnavailable = errors.New("capture device unavailable")

	// ErrInvalidState is returned for a call that the session's current
	// state does not allow.
	ErrInvalidState = errors.New("invalid session state")

	// ErrDeviceLost is reported when a track ends while the session is live.
	ErrDeviceLost = errors.New("capture device lost")
)
