package teleop

import (
	"github.com/teslashibe/go-mecanum/pkg/drive"
	"github.com/teslashibe/go-mecanum/pkg/input"
)

// InputSource yields the current gamepad sample.
type InputSource interface {
	Read() (input.Gamepad, error)
}

// HeadingSource yields the chassis heading in degrees, counter-clockwise positive.
type HeadingSource interface {
	Heading() (float64, error)
}

// Sink receives one wheel command per tick.
type Sink interface {
	Apply(cmd drive.WheelCommand) error
}

// HeadingResetter is implemented by heading sources (or sinks) that can zero
// the heading reference.
type HeadingResetter interface {
	ResetHeading() error
}

// PositionResetter is implemented by collaborators that can zero the
// position estimate.
type PositionResetter interface {
	ResetPosition() error
}

// Publisher receives a telemetry snapshot after every tick.
type Publisher interface {
	Publish(t Telemetry)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(t Telemetry)

// Publish calls f(t).
func (f PublisherFunc) Publish(t Telemetry) {
	f(t)
}
