// Package simbot is a simulated mecanum robot. It connects to the station
// like real firmware would, integrates the wheel commands it receives into a
// pose and reports that pose back as state.
package simbot

import (
	"sync"
	"time"

	"github.com/teslashibe/go-mecanum/pkg/actuator"
	"github.com/teslashibe/go-mecanum/pkg/drive"
	"github.com/teslashibe/go-mecanum/pkg/input"
)

// Pose is the simulated position in metres and heading in degrees,
// counter-clockwise positive. X is field right, Y is field forward.
type Pose struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Heading float64 `json:"heading"`
}

// Physics sets how wheel power turns into motion.
type Physics struct {
	MaxSpeed   float64            // Metres per second at full power
	MaxYawRate float64            // Degrees per second at full turn
	Motors     actuator.Inversion // Wiring of the simulated motors
	Watchdog   time.Duration      // Stop if no command arrives for this long; zero disables
}

// DefaultPhysics returns a small indoor robot wired like the station's
// default motor inversion.
func DefaultPhysics() Physics {
	return Physics{
		MaxSpeed:   1.5,
		MaxYawRate: 180,
		Motors:     actuator.DefaultInversion(),
		Watchdog:   500 * time.Millisecond,
	}
}

// Body integrates wheel commands into a pose.
type Body struct {
	physics Physics

	mu      sync.Mutex
	pose    Pose
	cmd     drive.WheelCommand // As the motors see it, wiring undone
	cmdAt   time.Time
	expired bool
}

// NewBody creates a body at the origin facing field forward.
func NewBody(p Physics) *Body {
	return &Body{physics: p}
}

// Command sets the wheel command received from the station at time now.
func (b *Body) Command(cmd drive.WheelCommand, now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cmd = b.physics.Motors.Apply(cmd)
	b.cmdAt = now
	b.expired = false
}

// Step advances the simulation by dt, ending at now.
func (b *Body) Step(dt time.Duration, now time.Time) Pose {
	b.mu.Lock()
	defer b.mu.Unlock()

	if w := b.physics.Watchdog; w > 0 && !b.cmdAt.IsZero() && now.Sub(b.cmdAt) > w {
		b.cmd = drive.Stop()
		b.expired = true
	}

	sec := dt.Seconds()
	chassis := b.cmd.Chassis()

	// Positive turn spins clockwise; heading is counter-clockwise positive.
	b.pose.Heading = input.NormalizeAngle(b.pose.Heading - chassis.Z*b.physics.MaxYawRate*sec)

	move := drive.ToChassisFrame(chassis, -b.pose.Heading).Mul(b.physics.MaxSpeed * sec)
	b.pose.X += move.X
	b.pose.Y += move.Y
	return b.pose
}

// Pose returns the current pose.
func (b *Body) Pose() Pose {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pose
}

// Wheels returns the command the motors are running.
func (b *Body) Wheels() drive.WheelCommand {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cmd
}

// Expired reports whether the watchdog has stopped the motors.
func (b *Body) Expired() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.expired
}

// ResetHeading zeroes the heading.
func (b *Body) ResetHeading() {
	b.mu.Lock()
	b.pose.Heading = 0
	b.mu.Unlock()
}

// ResetPosition moves the origin to the current position.
func (b *Body) ResetPosition() {
	b.mu.Lock()
	b.pose.X, b.pose.Y = 0, 0
	b.mu.Unlock()
}
