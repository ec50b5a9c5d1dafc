package link

import "errors"

// Sentinel errors for common error conditions.
var (
	// ErrNoGamepad is returned when no fresh gamepad sample is available.
	ErrNoGamepad = errors.New("link: no gamepad input")

	// ErrNoRobot is returned when no robot is connected or none has reported state.
	ErrNoRobot = errors.New("link: no robot connected")

	// ErrStale is returned when the latest robot state is too old to trust.
	ErrStale = errors.New("link: robot state is stale")
)
