// Package teleop runs the teleoperated drive pipeline: gamepad sample in,
// wheel command out, once per control tick.
//
// Step is the pure per-tick function. Loop binds it to an input source,
// heading source and sink; Runner drives a Loop from a ticker.
package teleop

import (
	"github.com/golang/geo/r3"

	"github.com/teslashibe/go-mecanum/pkg/drive"
	"github.com/teslashibe/go-mecanum/pkg/input"
)

// State is everything the pipeline remembers between ticks.
type State struct {
	FieldCentric  input.Toggle
	HeadingReset  input.EdgeDetector
	PositionReset input.EdgeDetector
}

// NewState returns the session-start state for cfg.
func NewState(cfg Config) State {
	return State{FieldCentric: input.NewToggle(cfg.DefaultFieldCentric)}
}

// Mode returns the drive mode the state currently selects.
func (s State) Mode() drive.Mode {
	return drive.ModeFromFieldCentric(s.FieldCentric.Get())
}

// Events are the one-shot button events of a tick.
type Events struct {
	ModeChanged   bool `json:"mode_changed"`
	HeadingReset  bool `json:"heading_reset"`
	PositionReset bool `json:"position_reset"`
}

// Resolve feeds the tick's buttons to the toggle and edge detectors.
// It returns the advanced state; the receiver is not modified.
func (s State) Resolve(b Bindings, pad input.Gamepad) (State, Events) {
	var ev Events
	ev.ModeChanged = s.FieldCentric.Update(pad.Pressed(b.ToggleFieldCentric))
	ev.HeadingReset = s.HeadingReset.Detect(pad.Pressed(b.ResetHeading))
	ev.PositionReset = s.PositionReset.Detect(pad.Pressed(b.ResetPosition))
	return s, ev
}

// Output is the result of one tick, with the intermediate values kept for
// diagnostics.
type Output struct {
	Mode        drive.Mode         `json:"mode"`
	SpeedMode   drive.SpeedMode    `json:"speed_mode"`
	Multiplier  float64            `json:"multiplier"`
	Raw         r3.Vector          `json:"raw"`         // Sanitized stick axes: X strafe, Y forward, Z turn
	Conditioned r3.Vector          `json:"conditioned"` // After deadband, squaring and scaling
	Heading     float64            `json:"heading"`
	Wheels      drive.WheelCommand `json:"wheels"`

	Events
}

// RawAxes maps a gamepad sample onto sanitized (strafe, forward, turn).
func RawAxes(axes Axes, pad input.Gamepad) r3.Vector {
	v := drive.Velocity(
		input.Sanitize(pad.LeftX),
		input.Sanitize(pad.LeftY),
		input.Sanitize(pad.RightX),
	)
	if axes.InvertStrafe {
		v.X = -v.X
	}
	if axes.InvertForward {
		v.Y = -v.Y
	}
	if axes.InvertTurn {
		v.Z = -v.Z
	}
	return v
}

// Command conditions the gamepad axes and mixes them for mode. heading is
// only used in field-centric mode.
func Command(cfg Config, mode drive.Mode, pad input.Gamepad, heading float64) Output {
	speed := cfg.Speed.ResolveMode(pad.Pressed(cfg.Bindings.Precision), pad.Pressed(cfg.Bindings.Turbo))
	mult := cfg.Speed.Multiplier(speed)

	raw := RawAxes(cfg.Axes, pad)
	linear := cfg.MaxLinearSpeed * mult
	angular := cfg.MaxAngularSpeed * mult
	v := drive.Velocity(
		input.ProcessInput(raw.X, cfg.Deadband, linear, cfg.SquareInputs),
		input.ProcessInput(raw.Y, cfg.Deadband, linear, cfg.SquareInputs),
		input.ProcessInput(raw.Z, cfg.Deadband, angular, cfg.SquareInputs),
	)

	if mode != drive.ModeFieldCentric {
		heading = 0
	}
	return Output{
		Mode:        mode,
		SpeedMode:   speed,
		Multiplier:  mult,
		Raw:         raw,
		Conditioned: v,
		Heading:     heading,
		Wheels:      drive.Compute(mode, v, heading),
	}
}

// Step runs one full tick: buttons, then speed, then conditioning, then
// kinematics. The toggle always resolves before the mix, so a press takes
// effect on the tick it happens.
func Step(cfg Config, state State, pad input.Gamepad, heading float64) (Output, State) {
	next, ev := state.Resolve(cfg.Bindings, pad)
	out := Command(cfg, next.Mode(), pad, heading)
	out.Events = ev
	return out, next
}
