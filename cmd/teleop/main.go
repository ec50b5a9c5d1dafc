// teleop: drive station for a mecanum robot.
// Reads a gamepad over WebSocket, mixes wheel commands at a fixed rate and
// sends them to the robot over WebSocket or MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/teslashibe/go-mecanum/internal/config"
	"github.com/teslashibe/go-mecanum/internal/log"
	"github.com/teslashibe/go-mecanum/pkg/actuator"
	"github.com/teslashibe/go-mecanum/pkg/auth"
	"github.com/teslashibe/go-mecanum/pkg/heading"
	"github.com/teslashibe/go-mecanum/pkg/link"
	"github.com/teslashibe/go-mecanum/pkg/mqttlink"
	"github.com/teslashibe/go-mecanum/pkg/teleop"
	"github.com/teslashibe/go-mecanum/pkg/web"
)

var (
	version = "0.1.0"

	configPath = flag.String("config", config.ConfigPath("teleop.yaml"), "Drive config file (YAML); missing file means defaults")
	listen     = flag.String("listen", config.ListenAddr(), "HTTP/WebSocket listen address")
	transport  = flag.String("transport", "websocket", "Robot transport: websocket or mqtt")
	broker     = flag.String("broker", config.MQTTBroker("localhost"), "MQTT broker URL (mqtt transport)")
	robotID    = flag.String("robot", config.RobotID(), "Robot ID for MQTT topics")
	dryRun     = flag.Bool("dry-run", false, "Log wheel commands instead of sending them")
	static     = flag.String("static", "", "Directory served at / (gamepad page)")
	logLevel   = flag.String("log-level", "info", "Log level: debug, info, warn, error")
	logFile    = flag.String("log-file", "", "Also write logs to this rotated file")
	debug      = flag.Bool("debug", false, "Enable HTTP access logs")
	issueToken = flag.String("issue-token", "", "Print an operator token for this subject and exit")
	tokenTTL   = flag.Duration("token-ttl", 12*time.Hour, "Lifetime of issued tokens")
)

// robotLink is what each transport offers the station.
type robotLink interface {
	teleop.Sink
	heading.Source
	ResetHeading() error
	ResetPosition() error
}

func main() {
	flag.Parse()

	if *logFile != "" {
		log.InitFile(*logLevel, *logFile)
	} else {
		log.Init(*logLevel)
	}

	if *issueToken != "" {
		if err := printToken(*issueToken); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("teleop exited", "error", err)
		os.Exit(1)
	}
}

func printToken(subject string) error {
	issuer, err := auth.NewIssuer(config.JWTSecret(), *tokenTTL)
	if err != nil {
		return fmt.Errorf("set TELEOP_JWT_SECRET to issue tokens: %w", err)
	}
	token, err := issuer.Issue(subject, auth.RoleOperator)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func loadConfig(path string) (teleop.Config, error) {
	cfg := teleop.DefaultConfig()
	if _, err := os.Stat(path); err == nil {
		if cfg, err = teleop.LoadFile(path); err != nil {
			return cfg, err
		}
		log.Info("loaded drive config", "path", path)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return cfg, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func run() error {
	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("mecanum station starting",
		"version", version,
		"transport", *transport,
		"loop_hz", cfg.LoopHz,
		"deadband", cfg.Deadband,
		"field_centric", cfg.DefaultFieldCentric,
		"dry_run", *dryRun,
	)

	// Gamepads always connect to the station's own hub; with the websocket
	// transport robots do too.
	pads := link.NewHub(cfg.StaleAfter)

	var robot robotLink
	switch *transport {
	case "websocket":
		robot = pads
	case "mqtt":
		mcfg := mqttlink.DefaultConfig(*robotID)
		mcfg.Broker = *broker
		mcfg.StaleAfter = cfg.StaleAfter
		ml := mqttlink.New(mcfg)
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := ml.Connect(connectCtx)
		cancel()
		if err != nil {
			return err
		}
		defer ml.Close()
		robot = ml
	default:
		return fmt.Errorf("unknown transport %q", *transport)
	}

	var (
		headings teleop.HeadingSource
		sink     teleop.Sink
	)
	if *dryRun {
		headings = heading.NewTracker(heading.NewStatic(0))
		sink = actuator.LogSink{Logger: log.With("component", "dry-run")}
	} else {
		headings = heading.NewTracker(robot)
		sink = actuator.Clamped{Next: actuator.Inverted{Next: robot, Inversion: cfg.Motors}}
	}

	loop, err := teleop.NewLoop(cfg, pads, headings, sink)
	if err != nil {
		return err
	}

	var verifier *auth.Verifier
	if secret := config.JWTSecret(); secret != "" {
		if verifier, err = auth.NewVerifier(secret); err != nil {
			return err
		}
	} else {
		log.Warn("TELEOP_JWT_SECRET not set; operator API disabled")
	}

	server := web.NewServer(web.Options{
		Addr:     *listen,
		Loop:     loop,
		Link:     pads,
		Verifier: verifier,
		Static:   *static,
		Debug:    *debug,
	})
	server.StartAsync()

	runner := teleop.NewRunner(loop, cfg.Period())
	runner.SetPublisher(server)

	err = runner.Run(ctx)

	log.Info("shutting down", "stats", loop.Stats())
	if serr := server.Shutdown(); serr != nil {
		log.Warn("web shutdown", "error", serr)
	}
	return err
}
