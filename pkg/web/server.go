// Package web serves the station's operator API and live telemetry feed.
package web

import (
	"log/slog"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-mecanum/internal/log"
	"github.com/teslashibe/go-mecanum/pkg/auth"
	"github.com/teslashibe/go-mecanum/pkg/hub"
	"github.com/teslashibe/go-mecanum/pkg/link"
	"github.com/teslashibe/go-mecanum/pkg/teleop"
)

// Options configures a Server.
type Options struct {
	Addr string // e.g. ":8080"

	Loop *teleop.Loop

	// Link, when set, has its robot and gamepad endpoints mounted on the
	// same app.
	Link *link.Hub

	// Verifier guards the mutating routes. Without one they answer 503.
	Verifier *auth.Verifier

	// Static is an optional directory served at "/".
	Static string

	// Debug enables per-request access logs.
	Debug bool
}

// Server is the station web server.
type Server struct {
	app      *fiber.App
	addr     string
	loop     *teleop.Loop
	verifier *auth.Verifier
	link     *link.Hub
	logger   *slog.Logger

	// Telemetry fan-out to dashboard clients
	status *hub.Hub

	mu   sync.RWMutex
	last teleop.Telemetry
	has  bool
}

// NewServer creates a server for opts.
func NewServer(opts Options) *Server {
	s := &Server{
		addr:     opts.Addr,
		loop:     opts.Loop,
		verifier: opts.Verifier,
		link:     opts.Link,
		logger:   log.With("component", "web"),
		status:   hub.New("status"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "Mecanum Station",
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type,Authorization",
	}))
	if opts.Debug {
		app.Use(logger.New())
	}

	if opts.Static != "" {
		app.Static("/", opts.Static)
	}

	app.Get("/health", s.handleHealth)
	app.Get("/metrics", s.handleMetrics)

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/config", s.handleConfig)

	guard := s.requireOperator()
	api.Post("/mode", guard, s.handleMode)
	api.Post("/reset", guard, s.handleReset)
	api.Post("/stop", guard, s.handleStop)
	api.Post("/start", guard, s.handleStart)

	if opts.Link != nil {
		opts.Link.RegisterAPIRoutes(api)
		opts.Link.RegisterRoutes(app)
	}

	app.Get("/ws/status", websocket.New(s.handleStatusWS))

	s.app = app
	return s
}

func (s *Server) requireOperator() fiber.Handler {
	if s.verifier == nil {
		return func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "operator routes disabled: no token secret configured",
			})
		}
	}
	return s.verifier.Require(auth.RoleOperator)
}

// App returns the underlying Fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start runs the telemetry hub and listens. It blocks until Shutdown.
func (s *Server) Start() error {
	go s.status.Run()
	s.logger.Info("web server listening", "addr", s.addr)
	return s.app.Listen(s.addr)
}

// StartAsync starts the web server in a goroutine.
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			s.logger.Error("web server error", "error", err)
		}
	}()
}

// Publish stores t as the latest telemetry and broadcasts it to dashboard
// clients. It never blocks the control loop.
func (s *Server) Publish(t teleop.Telemetry) {
	s.mu.Lock()
	s.last = t
	s.has = true
	s.mu.Unlock()

	if err := s.status.BroadcastJSON(t); err != nil {
		s.logger.Debug("telemetry encode failed", "error", err)
	}
}

// Telemetry returns the latest published telemetry, falling back to a
// snapshot from the loop before the first tick.
func (s *Server) Telemetry() teleop.Telemetry {
	s.mu.RLock()
	t, ok := s.last, s.has
	s.mu.RUnlock()
	if !ok {
		return s.loop.Telemetry()
	}
	return t
}

// Shutdown stops the listener and disconnects dashboard clients.
func (s *Server) Shutdown() error {
	s.status.Stop()
	return s.app.Shutdown()
}
