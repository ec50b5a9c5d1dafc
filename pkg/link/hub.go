// Package link connects the drive station to robots and gamepad clients over
// WebSocket. The Hub is the station's input source, heading source and
// wheel sink all at once.
package link

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/teslashibe/go-mecanum/internal/log"
	"github.com/teslashibe/go-mecanum/pkg/drive"
	"github.com/teslashibe/go-mecanum/pkg/input"
	"github.com/teslashibe/go-mecanum/pkg/protocol"
)

// Peer kinds.
const (
	KindRobot   = "robot"
	KindGamepad = "gamepad"
)

// Peer is one connected robot or gamepad client.
type Peer struct {
	ID        string
	Kind      string
	Conn      *websocket.Conn
	Connected time.Time
	LastSeen  time.Time

	mu sync.Mutex
}

// Send writes a message to the peer.
func (p *Peer) Send(msg *protocol.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Conn.WriteMessage(websocket.TextMessage, data)
}

func (p *Peer) touch(t time.Time) {
	p.mu.Lock()
	p.LastSeen = t
	p.mu.Unlock()
}

// Hub manages robot and gamepad connections.
type Hub struct {
	staleAfter time.Duration
	logger     *slog.Logger
	now        func() time.Time

	mu       sync.RWMutex
	robots   map[string]*Peer
	gamepads map[string]*Peer

	pad     input.Gamepad
	padAt   time.Time
	hasPad  bool
	state   protocol.StateData
	stateAt time.Time
	hasPose bool

	onState func(robotID string, state *protocol.StateData)

	// Stats
	seq              atomic.Uint64
	messagesReceived atomic.Uint64
	messagesSent     atomic.Uint64
	gamepadFrames    atomic.Uint64
	stateFrames      atomic.Uint64
	sendErrors       atomic.Uint64
}

// NewHub creates a hub. Gamepad and state frames older than staleAfter are
// treated as missing; zero disables the check.
func NewHub(staleAfter time.Duration) *Hub {
	return &Hub{
		staleAfter: staleAfter,
		logger:     log.With("component", "link"),
		now:        time.Now,
		robots:     make(map[string]*Peer),
		gamepads:   make(map[string]*Peer),
	}
}

// OnState sets the callback for incoming robot state.
func (h *Hub) OnState(callback func(robotID string, state *protocol.StateData)) {
	h.mu.Lock()
	h.onState = callback
	h.mu.Unlock()
}

// RegisterRoutes registers the WebSocket endpoints on a Fiber app.
func (h *Hub) RegisterRoutes(app fiber.Router) {
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	robot := websocket.New(func(c *websocket.Conn) { h.serve(KindRobot, c) })
	gamepad := websocket.New(func(c *websocket.Conn) { h.serve(KindGamepad, c) })
	app.Get("/ws/robot", robot)
	app.Get("/ws/robot/:id", robot)
	app.Get("/ws/gamepad", gamepad)
	app.Get("/ws/gamepad/:id", gamepad)
}

// RegisterAPIRoutes registers the link status routes.
func (h *Hub) RegisterAPIRoutes(api fiber.Router) {
	g := api.Group("/link")

	g.Get("/stats", func(c *fiber.Ctx) error {
		return c.JSON(h.GetStats())
	})

	g.Get("/peers", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"robots":   h.peerInfos(KindRobot),
			"gamepads": h.peerInfos(KindGamepad),
		})
	})
}

func (h *Hub) peers(kind string) map[string]*Peer {
	if kind == KindRobot {
		return h.robots
	}
	return h.gamepads
}

// serve runs one connection until it closes.
func (h *Hub) serve(kind string, c *websocket.Conn) {
	id := c.Params("id")
	if id == "" {
		id = uuid.NewString()
	}

	now := h.now()
	peer := &Peer{ID: id, Kind: kind, Conn: c, Connected: now, LastSeen: now}

	h.mu.Lock()
	h.peers(kind)[id] = peer
	count := len(h.peers(kind))
	h.mu.Unlock()
	h.logger.Info("peer connected", "kind", kind, "id", id, "total", count)

	defer func() {
		h.mu.Lock()
		if h.peers(kind)[id] == peer {
			delete(h.peers(kind), id)
		}
		count := len(h.peers(kind))
		if kind == KindGamepad && count == 0 {
			// No driver left: never keep driving on the last sample.
			h.hasPad = false
		}
		h.mu.Unlock()
		h.logger.Info("peer disconnected", "kind", kind, "id", id, "remaining", count)
	}()

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			h.logger.Debug("read error", "kind", kind, "id", id, "error", err)
			return
		}
		peer.touch(h.now())
		h.messagesReceived.Add(1)
		h.handleMessage(peer, data)
	}
}

// handleMessage processes an incoming message from a peer.
func (h *Hub) handleMessage(peer *Peer, data []byte) {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		h.logger.Warn("parse error", "id", peer.ID, "error", err)
		return
	}

	switch msg.Type {
	case protocol.TypeGamepad:
		if peer.Kind != KindGamepad {
			return
		}
		pad, err := msg.GetGamepadData()
		if err != nil {
			h.logger.Warn("bad gamepad frame", "id", peer.ID, "error", err)
			return
		}
		h.gamepadFrames.Add(1)
		h.mu.Lock()
		h.pad = *pad
		h.padAt = h.now()
		h.hasPad = true
		h.mu.Unlock()

	case protocol.TypeState:
		if peer.Kind != KindRobot {
			return
		}
		state, err := msg.GetStateData()
		if err != nil {
			h.logger.Warn("bad state frame", "id", peer.ID, "error", err)
			return
		}
		h.stateFrames.Add(1)
		h.mu.Lock()
		h.state = *state
		h.stateAt = h.now()
		h.hasPose = true
		cb := h.onState
		h.mu.Unlock()
		if cb != nil {
			cb(peer.ID, state)
		}

	case protocol.TypePing:
		ping, err := msg.GetPingData()
		if err != nil {
			h.logger.Debug("invalid ping", "peer", peer.ID, "error", err)
			return
		}
		pong, err := protocol.NewPongMessage(ping.ID, msg.Timestamp, h.now().UnixMilli())
		if err != nil {
			h.logger.Debug("pong encode failed", "peer", peer.ID, "error", err)
			return
		}
		if err := h.send(peer, pong); err != nil {
			h.logger.Debug("pong send failed", "error", err)
		}
	}
}

func (h *Hub) send(peer *Peer, msg *protocol.Message) error {
	h.messagesSent.Add(1)
	if err := peer.Send(msg); err != nil {
		h.sendErrors.Add(1)
		return fmt.Errorf("link: send to %s: %w", peer.ID, err)
	}
	return nil
}

// broadcastRobots sends msg to every robot and returns the first error.
func (h *Hub) broadcastRobots(msg *protocol.Message) error {
	h.mu.RLock()
	robots := make([]*Peer, 0, len(h.robots))
	for _, r := range h.robots {
		robots = append(robots, r)
	}
	h.mu.RUnlock()

	if len(robots) == 0 {
		return ErrNoRobot
	}
	var first error
	for _, r := range robots {
		if err := h.send(r, msg); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Read returns the latest gamepad sample.
func (h *Hub) Read() (input.Gamepad, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.hasPad {
		return input.Gamepad{}, ErrNoGamepad
	}
	if age := h.now().Sub(h.padAt); h.staleAfter > 0 && age > h.staleAfter {
		return input.Gamepad{}, fmt.Errorf("%w: last frame %v ago", ErrNoGamepad, age)
	}
	return h.pad, nil
}

// Heading returns the heading last reported by a robot.
func (h *Hub) Heading() (float64, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.hasPose {
		return 0, ErrNoRobot
	}
	if age := h.now().Sub(h.stateAt); h.staleAfter > 0 && age > h.staleAfter {
		return h.state.Heading, fmt.Errorf("%w: state %v old", ErrStale, age)
	}
	return h.state.Heading, nil
}

// Apply sends a wheel command to every connected robot.
func (h *Hub) Apply(cmd drive.WheelCommand) error {
	msg, err := protocol.NewWheelsMessage(cmd, h.seq.Add(1))
	if err != nil {
		return err
	}
	return h.broadcastRobots(msg)
}

// ResetHeading asks robots to zero their heading.
func (h *Hub) ResetHeading() error {
	return h.reset(protocol.ResetHeading)
}

// ResetPosition asks robots to zero their position.
func (h *Hub) ResetPosition() error {
	return h.reset(protocol.ResetPosition)
}

func (h *Hub) reset(target string) error {
	msg, err := protocol.NewResetMessage(target)
	if err != nil {
		return err
	}
	return h.broadcastRobots(msg)
}

// RobotCount returns the number of connected robots.
func (h *Hub) RobotCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.robots)
}

// GamepadCount returns the number of connected gamepad clients.
func (h *Hub) GamepadCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.gamepads)
}

// Stats contains hub statistics
type Stats struct {
	RobotCount       int    `json:"robot_count"`
	GamepadCount     int    `json:"gamepad_count"`
	MessagesReceived uint64 `json:"messages_received"`
	MessagesSent     uint64 `json:"messages_sent"`
	GamepadFrames    uint64 `json:"gamepad_frames"`
	StateFrames      uint64 `json:"state_frames"`
	SendErrors       uint64 `json:"send_errors"`
}

// GetStats returns hub statistics
func (h *Hub) GetStats() Stats {
	return Stats{
		RobotCount:       h.RobotCount(),
		GamepadCount:     h.GamepadCount(),
		MessagesReceived: h.messagesReceived.Load(),
		MessagesSent:     h.messagesSent.Load(),
		GamepadFrames:    h.gamepadFrames.Load(),
		StateFrames:      h.stateFrames.Load(),
		SendErrors:       h.sendErrors.Load(),
	}
}

// PeerInfo contains info about a connected peer
type PeerInfo struct {
	ID        string    `json:"id"`
	Connected time.Time `json:"connected"`
	LastSeen  time.Time `json:"last_seen"`
}

func (h *Hub) peerInfos(kind string) []PeerInfo {
	h.mu.RLock()
	defer h.mu.RUnlock()

	peers := h.peers(kind)
	infos := make([]PeerInfo, 0, len(peers))
	for _, p := range peers {
		p.mu.Lock()
		infos = append(infos, PeerInfo{ID: p.ID, Connected: p.Connected, LastSeen: p.LastSeen})
		p.mu.Unlock()
	}
	return infos
}
