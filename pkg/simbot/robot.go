package simbot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-mecanum/internal/log"
	"github.com/teslashibe/go-mecanum/pkg/protocol"
)

// Config holds the simulated robot's connection settings.
type Config struct {
	StationURL  string        // e.g. "ws://localhost:8080"
	RobotID     string        // Appears in the station's peer list
	StatePeriod time.Duration // How often state is reported and physics stepped
	Physics     Physics
}

// DefaultConfig returns settings for a robot on the local station.
func DefaultConfig(stationURL, robotID string) Config {
	return Config{
		StationURL:  stationURL,
		RobotID:     robotID,
		StatePeriod: 20 * time.Millisecond,
		Physics:     DefaultPhysics(),
	}
}

// URL returns the station endpoint the robot dials.
func (c Config) URL() string {
	return c.StationURL + "/ws/robot/" + c.RobotID
}

// Robot is a simulated robot connected to a station.
type Robot struct {
	cfg    Config
	body   *Body
	logger *slog.Logger
	now    func() time.Time

	ws   *websocket.Conn
	wsMu sync.Mutex // gorilla allows one concurrent writer

	received atomic.Uint64
	sent     atomic.Uint64
	resets   atomic.Uint64
}

// New creates a robot. Call Connect, then Run.
func New(cfg Config) *Robot {
	return &Robot{
		cfg:    cfg,
		body:   NewBody(cfg.Physics),
		logger: log.With("component", "simbot", "robot", cfg.RobotID),
		now:    time.Now,
	}
}

// Body returns the simulated body.
func (r *Robot) Body() *Body {
	return r.body
}

// Connect dials the station.
func (r *Robot) Connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	ws, _, err := dialer.DialContext(ctx, r.cfg.URL(), nil)
	if err != nil {
		return fmt.Errorf("simbot: dial %s: %w", r.cfg.URL(), err)
	}
	r.wsMu.Lock()
	r.ws = ws
	r.wsMu.Unlock()
	r.logger.Info("connected to station", "url", r.cfg.URL())
	return nil
}

// Run steps physics and reports state until ctx is done or the station
// closes the connection.
func (r *Robot) Run(ctx context.Context) error {
	r.wsMu.Lock()
	ws := r.ws
	r.wsMu.Unlock()
	if ws == nil {
		return fmt.Errorf("simbot: not connected")
	}
	readErr := make(chan error, 1)
	go func() {
		readErr <- r.readLoop(ws)
	}()

	ticker := time.NewTicker(r.cfg.StatePeriod)
	defer ticker.Stop()
	last := r.now()

	for {
		select {
		case <-ctx.Done():
			r.Close()
			return ctx.Err()
		case err := <-readErr:
			r.Close()
			return fmt.Errorf("simbot: station connection: %w", err)
		case <-ticker.C:
			now := r.now()
			pose := r.body.Step(now.Sub(last), now)
			last = now
			if err := r.sendState(pose); err != nil {
				r.logger.Warn("state send failed", "error", err)
			}
		}
	}
}

func (r *Robot) readLoop(ws *websocket.Conn) error {
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return err
		}
		r.handleMessage(data)
	}
}

func (r *Robot) handleMessage(data []byte) {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		r.logger.Debug("invalid message", "error", err)
		return
	}
	r.received.Add(1)

	switch msg.Type {
	case protocol.TypeWheels:
		wheels, err := msg.GetWheelsData()
		if err != nil {
			r.logger.Debug("invalid wheels", "error", err)
			return
		}
		r.body.Command(wheels.Command(), r.now())

	case protocol.TypeReset:
		reset, err := msg.GetResetData()
		if err != nil {
			r.logger.Debug("invalid reset", "error", err)
			return
		}
		switch reset.Target {
		case protocol.ResetHeading:
			r.body.ResetHeading()
		case protocol.ResetPosition:
			r.body.ResetPosition()
		default:
			return
		}
		r.resets.Add(1)
		r.logger.Info("reset", "target", reset.Target)

	case protocol.TypePing:
		ping, err := msg.GetPingData()
		if err != nil {
			r.logger.Debug("invalid ping", "error", err)
			return
		}
		pong, err := protocol.NewPongMessage(ping.ID, msg.Timestamp, r.now().UnixMilli())
		if err != nil {
			r.logger.Debug("pong encode failed", "error", err)
			return
		}
		if err := r.send(pong); err != nil {
			r.logger.Debug("pong send failed", "error", err)
		}
	}
}

func (r *Robot) sendState(p Pose) error {
	msg, err := protocol.NewStateMessage(p.Heading, p.X, p.Y)
	if err != nil {
		return err
	}
	return r.send(msg)
}

func (r *Robot) send(msg *protocol.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}
	r.wsMu.Lock()
	defer r.wsMu.Unlock()
	if r.ws == nil {
		return fmt.Errorf("simbot: not connected")
	}
	r.ws.SetWriteDeadline(time.Now().Add(time.Second))
	if err := r.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return err
	}
	r.sent.Add(1)
	return nil
}

// Close closes the station connection.
func (r *Robot) Close() error {
	r.wsMu.Lock()
	defer r.wsMu.Unlock()
	if r.ws == nil {
		return nil
	}
	r.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	err := r.ws.Close()
	r.ws = nil
	return err
}

// Stats counts robot traffic.
type Stats struct {
	Received uint64 `json:"received"`
	Sent     uint64 `json:"sent"`
	Resets   uint64 `json:"resets"`
}

// GetStats returns robot statistics.
func (r *Robot) GetStats() Stats {
	return Stats{
		Received: r.received.Load(),
		Sent:     r.sent.Load(),
		Resets:   r.resets.Load(),
	}
}
