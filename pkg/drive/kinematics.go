package drive

import (
	"math"

	"github.com/golang/geo/r3"
)

// Chassis velocity commands are r3 vectors in the chassis (or field) frame:
// X is strafe (right positive), Y is forward, Z is turn (clockwise positive).
// All three are normalized powers, not physical speeds.

// Velocity builds a chassis velocity command.
func Velocity(strafe, forward, turn float64) r3.Vector {
	return r3.Vector{X: strafe, Y: forward, Z: turn}
}

// WheelCommand holds one power per wheel, each in [-1, 1] once normalized.
type WheelCommand struct {
	FrontLeft  float64 `json:"front_left"`
	FrontRight float64 `json:"front_right"`
	BackLeft   float64 `json:"back_left"`
	BackRight  float64 `json:"back_right"`
}

// Array returns the powers in front-left, front-right, back-left, back-right order.
func (w WheelCommand) Array() [4]float64 {
	return [4]float64{w.FrontLeft, w.FrontRight, w.BackLeft, w.BackRight}
}

// MaxMagnitude returns the largest absolute wheel power.
func (w WheelCommand) MaxMagnitude() float64 {
	m := 0.0
	for _, p := range w.Array() {
		m = math.Max(m, math.Abs(p))
	}
	return m
}

// IsZero reports whether every wheel is stopped.
func (w WheelCommand) IsZero() bool {
	return w == WheelCommand{}
}

// Scale multiplies every wheel power by k.
func (w WheelCommand) Scale(k float64) WheelCommand {
	return WheelCommand{
		FrontLeft:  w.FrontLeft * k,
		FrontRight: w.FrontRight * k,
		BackLeft:   w.BackLeft * k,
		BackRight:  w.BackRight * k,
	}
}

// Normalize scales all four powers down together when any exceeds 1, so the
// largest becomes exactly 1 and the direction of travel is kept.
func (w WheelCommand) Normalize() WheelCommand {
	m := w.MaxMagnitude()
	if m <= 1 {
		return w
	}
	return w.Scale(1 / m)
}

// Roller axes: each wheel's power is the dot product of the chassis velocity
// with its axis. The three columns are orthogonal with squared norm 4, so the
// mix inverts as a transpose divided by 4.
var (
	frontLeftAxis  = r3.Vector{X: 1, Y: 1, Z: 1}
	frontRightAxis = r3.Vector{X: -1, Y: 1, Z: -1}
	backLeftAxis   = r3.Vector{X: -1, Y: 1, Z: 1}
	backRightAxis  = r3.Vector{X: 1, Y: 1, Z: -1}
)

// Chassis inverts the mecanum mix, recovering the chassis velocity a wheel
// command produces.
func (w WheelCommand) Chassis() r3.Vector {
	return frontLeftAxis.Mul(w.FrontLeft).
		Add(frontRightAxis.Mul(w.FrontRight)).
		Add(backLeftAxis.Mul(w.BackLeft)).
		Add(backRightAxis.Mul(w.BackRight)).
		Mul(0.25)
}

// RobotCentric mixes a chassis-frame velocity into wheel powers.
//
// Positive turn drives the left side forward and the right side backward,
// a clockwise spin seen from above.
func RobotCentric(v r3.Vector) WheelCommand {
	return WheelCommand{
		FrontLeft:  v.Dot(frontLeftAxis),
		FrontRight: v.Dot(frontRightAxis),
		BackLeft:   v.Dot(backLeftAxis),
		BackRight:  v.Dot(backRightAxis),
	}.Normalize()
}

// FieldCentric rotates the field-frame translation by -heading into the chassis
// frame, then mixes it. heading is in degrees, counter-clockwise positive.
func FieldCentric(v r3.Vector, heading float64) WheelCommand {
	return RobotCentric(ToChassisFrame(v, heading))
}

// ToChassisFrame rotates the X/Y part of a field-frame velocity by -heading
// degrees. Z (turn) is frame-independent and passes through.
func ToChassisFrame(v r3.Vector, heading float64) r3.Vector {
	sin, cos := math.Sincos(-heading * math.Pi / 180)
	return r3.Vector{
		X: v.Dot(r3.Vector{X: cos, Y: -sin}),
		Y: v.Dot(r3.Vector{X: sin, Y: cos}),
		Z: v.Z,
	}
}

// Compute mixes v in the given mode. heading is ignored in robot-centric mode.
func Compute(mode Mode, v r3.Vector, heading float64) WheelCommand {
	if mode == ModeFieldCentric {
		return FieldCentric(v, heading)
	}
	return RobotCentric(v)
}

// Stop returns the all-zero command.
func Stop() WheelCommand {
	return WheelCommand{}
}
