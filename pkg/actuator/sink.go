// Package actuator provides wheel command sinks and the decorators that sit
// between the drive loop and a transport.
package actuator

import (
	"log/slog"
	"sync"

	"github.com/teslashibe/go-mecanum/pkg/drive"
	"github.com/teslashibe/go-mecanum/pkg/input"
)

// Sink accepts wheel commands.
type Sink interface {
	Apply(cmd drive.WheelCommand) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(cmd drive.WheelCommand) error

// Apply calls f(cmd).
func (f SinkFunc) Apply(cmd drive.WheelCommand) error {
	return f(cmd)
}

// Inversion marks motors mounted mirrored, whose power must be negated.
type Inversion struct {
	FrontLeft  bool `yaml:"front_left" json:"front_left"`
	FrontRight bool `yaml:"front_right" json:"front_right"`
	BackLeft   bool `yaml:"back_left" json:"back_left"`
	BackRight  bool `yaml:"back_right" json:"back_right"`
}

// DefaultInversion inverts the right-hand motors, which face the other way
// on a typical mecanum chassis.
func DefaultInversion() Inversion {
	return Inversion{FrontRight: true, BackRight: true}
}

// Apply negates the inverted wheels of cmd.
func (inv Inversion) Apply(cmd drive.WheelCommand) drive.WheelCommand {
	if inv.FrontLeft {
		cmd.FrontLeft = -cmd.FrontLeft
	}
	if inv.FrontRight {
		cmd.FrontRight = -cmd.FrontRight
	}
	if inv.BackLeft {
		cmd.BackLeft = -cmd.BackLeft
	}
	if inv.BackRight {
		cmd.BackRight = -cmd.BackRight
	}
	return cmd
}

// Inverted applies motor inversion before forwarding to Next.
type Inverted struct {
	Next      Sink
	Inversion Inversion
}

// Apply implements Sink.
func (s Inverted) Apply(cmd drive.WheelCommand) error {
	return s.Next.Apply(s.Inversion.Apply(cmd))
}

// Clamped saturates each power to [-1, 1] before forwarding to Next.
// A NaN power is sent as zero.
type Clamped struct {
	Next Sink
}

// Apply implements Sink.
func (s Clamped) Apply(cmd drive.WheelCommand) error {
	return s.Next.Apply(drive.WheelCommand{
		FrontLeft:  input.Sanitize(cmd.FrontLeft),
		FrontRight: input.Sanitize(cmd.FrontRight),
		BackLeft:   input.Sanitize(cmd.BackLeft),
		BackRight:  input.Sanitize(cmd.BackRight),
	})
}

// Recorder keeps every command it receives. Safe for concurrent use.
type Recorder struct {
	mu       sync.Mutex
	commands []drive.WheelCommand
}

// Apply implements Sink.
func (r *Recorder) Apply(cmd drive.WheelCommand) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, cmd)
	return nil
}

// Commands returns a copy of everything recorded so far.
func (r *Recorder) Commands() []drive.WheelCommand {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]drive.WheelCommand, len(r.commands))
	copy(out, r.commands)
	return out
}

// Last returns the most recent command, if any.
func (r *Recorder) Last() (drive.WheelCommand, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.commands) == 0 {
		return drive.WheelCommand{}, false
	}
	return r.commands[len(r.commands)-1], true
}

// Count returns how many commands were recorded.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.commands)
}

// LogSink logs commands at debug level instead of driving motors.
type LogSink struct {
	Logger *slog.Logger
}

// Apply implements Sink.
func (s LogSink) Apply(cmd drive.WheelCommand) error {
	s.Logger.Debug("wheels",
		"fl", cmd.FrontLeft,
		"fr", cmd.FrontRight,
		"bl", cmd.BackLeft,
		"br", cmd.BackRight,
	)
	return nil
}
