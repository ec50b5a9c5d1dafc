// simbot: simulated mecanum robot for driving the station without hardware.
// Connects to the station's robot endpoint, integrates wheel commands into a
// pose and reports heading and position back.
package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"github.com/teslashibe/go-mecanum/internal/config"
	"github.com/teslashibe/go-mecanum/internal/log"
	"github.com/teslashibe/go-mecanum/pkg/simbot"
)

var (
	station   = flag.String("station", config.StationURL("localhost"), "Station WebSocket base URL")
	robotID   = flag.String("robot", config.RobotID(), "Robot ID")
	period    = flag.Duration("period", 20*time.Millisecond, "Physics step and state report period")
	maxSpeed  = flag.Float64("max-speed", 1.5, "Metres per second at full wheel power")
	maxYaw    = flag.Float64("max-yaw-rate", 180, "Degrees per second at full turn")
	watchdog  = flag.Duration("watchdog", 500*time.Millisecond, "Stop motors when commands stop for this long (0 disables)")
	logLevel  = flag.String("log-level", "info", "Log level: debug, info, warn, error")
	retryWait = flag.Duration("retry", 2*time.Second, "Delay between reconnect attempts")
)

func main() {
	flag.Parse()
	log.Init(*logLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := simbot.DefaultConfig(*station, *robotID)
	cfg.StatePeriod = *period
	cfg.Physics.MaxSpeed = *maxSpeed
	cfg.Physics.MaxYawRate = *maxYaw
	cfg.Physics.Watchdog = *watchdog

	robot := simbot.New(cfg)
	go reportPose(ctx, robot)

	for {
		err := robot.Connect(ctx)
		if err == nil {
			err = robot.Run(ctx)
		}
		if ctx.Err() != nil {
			log.Info("simbot stopped", "stats", robot.GetStats(), "pose", robot.Body().Pose())
			return
		}
		log.Warn("station unavailable, retrying", "error", err, "in", *retryWait)

		select {
		case <-ctx.Done():
			return
		case <-time.After(*retryWait):
		}
	}
}

// reportPose logs the pose every few seconds.
func reportPose(ctx context.Context, robot *simbot.Robot) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p := robot.Body().Pose()
			log.Info("pose", "x", p.X, "y", p.Y, "heading", p.Heading, "watchdog", robot.Body().Expired())
		}
	}
}
