package teleop

import (
	"context"
	"log/slog"
	"time"

	"github.com/teslashibe/go-mecanum/internal/log"
)

// Runner ticks a Loop at a fixed rate until its context is cancelled.
type Runner struct {
	loop      *Loop
	period    time.Duration
	heartbeat uint64
	pub       Publisher
	logger    *slog.Logger
}

// NewRunner creates a runner ticking loop every period.
func NewRunner(loop *Loop, period time.Duration) *Runner {
	return &Runner{
		loop:      loop,
		period:    period,
		heartbeat: loop.Config().HeartbeatTicks,
		logger:    log.With("component", "runner"),
	}
}

// SetPublisher registers a receiver for per-tick telemetry.
func (r *Runner) SetPublisher(p Publisher) {
	r.pub = p
}

// Run starts a session and ticks until ctx is done, then stops the loop,
// which sends the zero command exactly once. The context error is returned.
func (r *Runner) Run(ctx context.Context) error {
	r.loop.Start()

	ticker := time.NewTicker(r.period)
	defer ticker.Stop()

	r.logger.Info("control loop running", "period", r.period)
	for {
		select {
		case <-ctx.Done():
			if err := r.loop.Stop(); err != nil {
				r.logger.Error("stop command failed", "error", err)
			}
			return ctx.Err()
		case <-ticker.C:
			r.tick()
		}
	}
}

func (r *Runner) tick() {
	out := r.loop.Tick()

	if r.pub != nil {
		r.pub.Publish(r.loop.Telemetry())
	}

	if r.heartbeat == 0 {
		return
	}
	if s := r.loop.Stats(); s.Ticks > 0 && s.Ticks%r.heartbeat == 0 {
		r.logger.Info("heartbeat",
			"ticks", s.Ticks,
			"input_errors", s.InputErrors,
			"heading_errors", s.HeadingErrors,
			"sink_errors", s.SinkErrors,
			"mode", out.Mode,
			"speed", out.SpeedMode,
			"heading", out.Heading,
		)
	}
}
