package web

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-mecanum/pkg/auth"
	"github.com/teslashibe/go-mecanum/pkg/hub"
	"github.com/teslashibe/go-mecanum/pkg/teleop"
)

func (s *Server) handleHealth(c *fiber.Ctx) error {
	resp := fiber.Map{
		"status":  "ok",
		"stopped": s.loop.Stopped(),
		"mode":    s.loop.Mode(),
	}
	if s.link != nil {
		resp["robots"] = s.link.RobotCount()
		resp["gamepads"] = s.link.GamepadCount()
	}
	return c.JSON(resp)
}

func (s *Server) handleMetrics(c *fiber.Ctx) error {
	stats := s.loop.Stats()
	var b strings.Builder
	counter := func(name, help string, v uint64) {
		fmt.Fprintf(&b, "# HELP %s %s\n# TYPE %s counter\n%s %d\n\n", name, help, name, name, v)
	}
	counter("teleop_ticks_total", "Control loop ticks", stats.Ticks)
	counter("teleop_input_errors_total", "Gamepad read failures", stats.InputErrors)
	counter("teleop_heading_errors_total", "Heading read failures", stats.HeadingErrors)
	counter("teleop_sink_errors_total", "Wheel command delivery failures", stats.SinkErrors)
	counter("teleop_reset_errors_total", "Heading or position reset failures", stats.ResetErrors)
	counter("teleop_telemetry_dropped_total", "Telemetry frames dropped for slow dashboards", s.status.Dropped())
	if s.link != nil {
		ls := s.link.GetStats()
		fmt.Fprintf(&b, "# HELP teleop_link_robots Connected robots\n# TYPE teleop_link_robots gauge\nteleop_link_robots %d\n\n", ls.RobotCount)
		counter("teleop_link_send_errors_total", "Robot send failures", ls.SendErrors)
	}
	c.Set(fiber.HeaderContentType, "text/plain; version=0.0.4")
	return c.SendString(b.String())
}

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	teleop.Telemetry
	Stopped bool `json:"stopped"`
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(StatusResponse{
		Telemetry: s.Telemetry(),
		Stopped:   s.loop.Stopped(),
	})
}

func (s *Server) handleConfig(c *fiber.Ctx) error {
	return c.JSON(s.loop.Config())
}

// ModeRequest is the body of POST /api/mode.
type ModeRequest struct {
	FieldCentric *bool `json:"field_centric"`
}

func (s *Server) handleMode(c *fiber.Ctx) error {
	var req ModeRequest
	if err := c.BodyParser(&req); err != nil || req.FieldCentric == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "field_centric (bool) required",
		})
	}
	if err := s.loop.SetFieldCentric(*req.FieldCentric); err != nil {
		return s.loopError(c, err)
	}
	s.audit(c, "mode", "field_centric", *req.FieldCentric)
	return c.JSON(fiber.Map{"mode": s.loop.Mode()})
}

// ResetRequest is the body of POST /api/reset. An empty body resets to
// the configured default mode.
type ResetRequest struct {
	FieldCentric *bool `json:"field_centric"`
}

func (s *Server) handleReset(c *fiber.Ctx) error {
	var req ResetRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
	}
	fieldCentric := s.loop.Config().DefaultFieldCentric
	if req.FieldCentric != nil {
		fieldCentric = *req.FieldCentric
	}
	if err := s.loop.Reset(fieldCentric); err != nil {
		return s.loopError(c, err)
	}
	s.audit(c, "reset", "field_centric", fieldCentric)
	return c.JSON(fiber.Map{"mode": s.loop.Mode()})
}

func (s *Server) handleStop(c *fiber.Ctx) error {
	if err := s.loop.Stop(); err != nil {
		// The loop is stopped either way; report the sink failure.
		s.logger.Error("stop command failed", "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error(), "stopped": true})
	}
	s.audit(c, "stop")
	return c.JSON(fiber.Map{"stopped": true})
}

func (s *Server) handleStart(c *fiber.Ctx) error {
	s.loop.Start()
	s.audit(c, "start")
	return c.JSON(fiber.Map{"stopped": false, "session": s.loop.Telemetry().Session})
}

func (s *Server) loopError(c *fiber.Ctx, err error) error {
	if errors.Is(err, teleop.ErrNoHeadingSource) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
}

func (s *Server) audit(c *fiber.Ctx, action string, args ...any) {
	subject := ""
	if claims, ok := auth.FromContext(c); ok {
		subject = claims.Subject
	}
	s.logger.Info("operator action", append([]any{"action", action, "subject", subject}, args...)...)
}

// handleStatusWS sends the latest telemetry, then streams every tick.
func (s *Server) handleStatusWS(c *websocket.Conn) {
	if err := c.WriteJSON(s.Telemetry()); err != nil {
		return
	}
	hub.NewClient(s.status, c).Run()
}
