package teleop

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-mecanum/internal/log"
	"github.com/teslashibe/go-mecanum/pkg/drive"
	"github.com/teslashibe/go-mecanum/pkg/input"
)

// errorLogInterval caps collaborator error logs to one per interval.
const errorLogInterval = 5 * time.Second

// Stats counts ticks and collaborator failures since the loop was built.
type Stats struct {
	Ticks         uint64 `json:"ticks"`
	InputErrors   uint64 `json:"input_errors"`
	HeadingErrors uint64 `json:"heading_errors"`
	SinkErrors    uint64 `json:"sink_errors"`
	ResetErrors   uint64 `json:"reset_errors"`
}

// Telemetry is the snapshot published after each tick.
type Telemetry struct {
	Session string    `json:"session"`
	Time    time.Time `json:"time"`
	Output  Output    `json:"output"`
	Stats   Stats     `json:"stats"`
}

// Loop binds Step to its collaborators. A single Loop is ticked from one
// goroutine; the mutex only serialises the web API's mode and reset calls
// against ticks.
type Loop struct {
	cfg     Config
	in      InputSource
	heading HeadingSource // nil when no heading is available
	sink    Sink
	logger  *slog.Logger

	mu          sync.Mutex
	state       State
	lastPad     input.Gamepad
	lastHeading float64
	last        Output
	stopped     bool
	session     string

	stats         Stats
	lastErrorTime time.Time
}

// NewLoop validates cfg and builds a loop. heading may be nil, in which case
// the loop stays robot-centric and ignores the field-centric toggle.
func NewLoop(cfg Config, in InputSource, heading HeadingSource, sink Sink) (*Loop, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if in == nil || sink == nil {
		return nil, ErrNilSource
	}
	if cfg.DefaultFieldCentric && heading == nil {
		return nil, ErrNoHeadingSource
	}
	return &Loop{
		cfg:     cfg,
		in:      in,
		heading: heading,
		sink:    sink,
		logger:  log.With("component", "teleop"),
		state:   NewState(cfg),
		session: uuid.NewString(),
	}, nil
}

// Start begins a new session: mode state goes back to the configured
// default and a stopped loop accepts ticks again.
func (l *Loop) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = NewState(l.cfg)
	l.lastPad = input.Gamepad{}
	l.stopped = false
	l.session = uuid.NewString()
	l.logger.Info("session started", "session", l.session, "mode", l.state.Mode())
}

// Tick runs one control cycle and hands the result to the sink.
// A stopped loop does nothing and returns the zero output.
func (l *Loop) Tick() Output {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stopped {
		return Output{Mode: l.state.Mode()}
	}

	pad, err := l.in.Read()
	if err != nil {
		l.stats.InputErrors++
		l.logLimited("input read failed", err)
		pad = l.lastPad.Neutral()
	} else {
		l.lastPad = pad
	}

	next, ev := l.state.Resolve(l.cfg.Bindings, pad)
	if ev.ModeChanged && next.Mode() == drive.ModeFieldCentric && l.heading == nil {
		next.FieldCentric.Set(false)
		ev.ModeChanged = false
		l.logger.Warn("field-centric toggle ignored", "error", ErrNoHeadingSource)
	}
	l.state = next
	mode := next.Mode()
	if ev.ModeChanged {
		l.logger.Info("drive mode changed", "mode", mode)
	}

	// Resets land before the heading read so this tick already drives
	// against the new zero.
	zeroed := false
	if ev.HeadingReset {
		zeroed = l.resetHeading()
	}
	if ev.PositionReset {
		l.resetPosition()
	}

	heading := l.lastHeading
	if mode == drive.ModeFieldCentric && l.heading != nil && !zeroed {
		h, err := l.heading.Heading()
		if err == nil && (math.IsNaN(h) || math.IsInf(h, 0)) {
			err = fmt.Errorf("%w: %v", ErrBadHeading, h)
		}
		if err != nil {
			l.stats.HeadingErrors++
			l.logLimited("heading read failed", err)
		} else {
			heading = input.NormalizeAngle(h)
			l.lastHeading = heading
		}
	}

	out := Command(l.cfg, mode, pad, heading)
	out.Events = ev

	if err := l.sink.Apply(out.Wheels); err != nil {
		l.stats.SinkErrors++
		l.logLimited("sink apply failed", err)
	}

	l.stats.Ticks++
	l.last = out
	return out
}

// Stop sends the zero command once. Later calls are no-ops until Start.
func (l *Loop) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		return nil
	}
	l.stopped = true
	l.last.Wheels = drive.Stop()
	l.logger.Info("drive stopped", "session", l.session, "ticks", l.stats.Ticks)
	return l.sink.Apply(drive.Stop())
}

// Reset clears button memory and sets the drive mode, as at the start of a
// session. It does not resume a stopped loop.
func (l *Loop) Reset(fieldCentric bool) error {
	if fieldCentric && l.heading == nil {
		return ErrNoHeadingSource
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = State{FieldCentric: input.NewToggle(fieldCentric)}
	l.logger.Info("drive state reset", "mode", l.state.Mode())
	return nil
}

// SetFieldCentric forces the drive mode without touching button memory.
func (l *Loop) SetFieldCentric(on bool) error {
	if on && l.heading == nil {
		return ErrNoHeadingSource
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state.FieldCentric.Get() != on {
		l.state.FieldCentric.Set(on)
		l.logger.Info("drive mode set", "mode", l.state.Mode())
	}
	return nil
}

// Mode returns the current drive mode.
func (l *Loop) Mode() drive.Mode {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.Mode()
}

// Last returns the output of the most recent tick.
func (l *Loop) Last() Output {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.last
}

// Stats returns a copy of the loop counters.
func (l *Loop) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}

// Stopped reports whether Stop has run since the last Start.
func (l *Loop) Stopped() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stopped
}

// Config returns the loop configuration.
func (l *Loop) Config() Config {
	return l.cfg
}

// Telemetry returns a snapshot of the last tick.
func (l *Loop) Telemetry() Telemetry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Telemetry{
		Session: l.session,
		Time:    time.Now(),
		Output:  l.last,
		Stats:   l.stats,
	}
}

func (l *Loop) resetHeading() bool {
	r, ok := l.heading.(HeadingResetter)
	if !ok {
		r, ok = l.sink.(HeadingResetter)
	}
	if !ok {
		l.logger.Warn("heading reset requested but nothing can reset heading")
		return false
	}
	if err := r.ResetHeading(); err != nil {
		l.stats.ResetErrors++
		l.logger.Error("heading reset failed", "error", err)
		return false
	}
	l.lastHeading = 0
	l.logger.Info("heading reset")
	return true
}

func (l *Loop) resetPosition() {
	r, ok := l.heading.(PositionResetter)
	if !ok {
		r, ok = l.sink.(PositionResetter)
	}
	if !ok {
		l.logger.Warn("position reset requested but nothing can reset position")
		return
	}
	if err := r.ResetPosition(); err != nil {
		l.stats.ResetErrors++
		l.logger.Error("position reset failed", "error", err)
		return
	}
	l.logger.Info("position reset")
}

// logLimited logs collaborator errors at most once per errorLogInterval.
func (l *Loop) logLimited(msg string, err error) {
	if !l.lastErrorTime.IsZero() && time.Since(l.lastErrorTime) < errorLogInterval {
		return
	}
	l.lastErrorTime = time.Now()
	l.logger.Warn(msg,
		"error", err,
		"input_errors", l.stats.InputErrors,
		"heading_errors", l.stats.HeadingErrors,
		"sink_errors", l.stats.SinkErrors,
	)
}
