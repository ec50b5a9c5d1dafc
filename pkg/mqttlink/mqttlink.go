// Package mqttlink drives a robot through an MQTT broker instead of a direct
// WebSocket. Wheel commands and reset requests are published; the robot's
// state topic supplies the heading.
package mqttlink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/teslashibe/go-mecanum/internal/log"
	"github.com/teslashibe/go-mecanum/pkg/drive"
	"github.com/teslashibe/go-mecanum/pkg/protocol"
)

// Sentinel errors for common error conditions.
var (
	// ErrNoState is returned before the robot has published any state.
	ErrNoState = errors.New("mqttlink: no robot state")

	// ErrStale is returned when the last state is older than StaleAfter.
	ErrStale = errors.New("mqttlink: robot state is stale")

	// ErrTimeout is returned when the broker does not acknowledge in time.
	ErrTimeout = errors.New("mqttlink: broker timeout")
)

// Config holds broker and topic settings.
type Config struct {
	Broker     string        // e.g. "tcp://10.0.0.5:1883"
	ClientID   string        // Must be unique per broker
	Prefix     string        // Topic prefix, e.g. "mecanum/robot1"
	QoS        byte          // 0 for wheels is usual: a late command is worse than a lost one
	StaleAfter time.Duration // State older than this is reported as ErrStale; zero disables
	Timeout    time.Duration // Publish/subscribe acknowledgement timeout
}

// DefaultConfig returns settings for a local broker.
func DefaultConfig(robotID string) Config {
	return Config{
		Broker:     "tcp://localhost:1883",
		ClientID:   "mecanum-station-" + robotID,
		Prefix:     "mecanum/" + robotID,
		QoS:        0,
		StaleAfter: 500 * time.Millisecond,
		Timeout:    2 * time.Second,
	}
}

// Topic names under the prefix.
func (c Config) WheelsTopic() string { return c.Prefix + "/wheels" }
func (c Config) StateTopic() string  { return c.Prefix + "/state" }
func (c Config) ResetTopic() string  { return c.Prefix + "/reset" }

// client is the part of mqtt.Client the link uses.
type client interface {
	Connect() mqtt.Token
	Disconnect(quiesce uint)
	IsConnected() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
}

// Link is a teleop heading source and wheel sink over MQTT.
type Link struct {
	cfg    Config
	client client
	logger *slog.Logger
	now    func() time.Time

	mu      sync.RWMutex
	state   protocol.StateData
	stateAt time.Time
	has     bool

	seq       atomic.Uint64
	published atomic.Uint64
	received  atomic.Uint64
}

// New creates a link with a paho client for cfg. Call Connect before use.
func New(cfg Config) *Link {
	l := newLink(cfg, nil)

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetOrderMatters(false)
	opts.OnConnect = func(c mqtt.Client) {
		l.logger.Info("connected to broker", "broker", cfg.Broker)
		// Subscriptions do not survive a reconnect with a clean session.
		if err := l.subscribe(); err != nil {
			l.logger.Error("subscribe failed", "topic", cfg.StateTopic(), "error", err)
		}
	}
	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		l.logger.Warn("connection lost", "error", err)
	}
	l.client = mqtt.NewClient(opts)
	return l
}

func newLink(cfg Config, c client) *Link {
	return &Link{
		cfg:    cfg,
		client: c,
		logger: log.With("component", "mqttlink"),
		now:    time.Now,
	}
}

// Connect dials the broker and waits for the connection or ctx.
func (l *Link) Connect(ctx context.Context) error {
	token := l.client.Connect()
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("mqttlink: connect %s: %w", l.cfg.Broker, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close disconnects, giving in-flight messages a moment to drain.
func (l *Link) Close() {
	l.client.Disconnect(250)
}

func (l *Link) subscribe() error {
	return l.wait(l.client.Subscribe(l.cfg.StateTopic(), 0, l.handleState))
}

func (l *Link) wait(token mqtt.Token) error {
	if !token.WaitTimeout(l.cfg.Timeout) {
		return ErrTimeout
	}
	return token.Error()
}

func (l *Link) handleState(_ mqtt.Client, msg mqtt.Message) {
	m, err := protocol.ParseMessage(msg.Payload())
	if err != nil || m.Type != protocol.TypeState {
		l.logger.Debug("ignoring state payload", "topic", msg.Topic(), "error", err)
		return
	}
	state, err := m.GetStateData()
	if err != nil {
		return
	}
	l.received.Add(1)
	l.mu.Lock()
	l.state = *state
	l.stateAt = l.now()
	l.has = true
	l.mu.Unlock()
}

func (l *Link) publish(topic string, msg *protocol.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}
	l.published.Add(1)
	if err := l.wait(l.client.Publish(topic, l.cfg.QoS, false, data)); err != nil {
		return fmt.Errorf("mqttlink: publish %s: %w", topic, err)
	}
	return nil
}

// Apply publishes a wheel command.
func (l *Link) Apply(cmd drive.WheelCommand) error {
	msg, err := protocol.NewWheelsMessage(cmd, l.seq.Add(1))
	if err != nil {
		return err
	}
	return l.publish(l.cfg.WheelsTopic(), msg)
}

// Heading returns the heading from the last state message.
func (l *Link) Heading() (float64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if !l.has {
		return 0, ErrNoState
	}
	if age := l.now().Sub(l.stateAt); l.cfg.StaleAfter > 0 && age > l.cfg.StaleAfter {
		return l.state.Heading, fmt.Errorf("%w: %v old", ErrStale, age)
	}
	return l.state.Heading, nil
}

// ResetHeading publishes a heading reset request.
func (l *Link) ResetHeading() error {
	return l.reset(protocol.ResetHeading)
}

// ResetPosition publishes a position reset request.
func (l *Link) ResetPosition() error {
	return l.reset(protocol.ResetPosition)
}

func (l *Link) reset(target string) error {
	msg, err := protocol.NewResetMessage(target)
	if err != nil {
		return err
	}
	return l.publish(l.cfg.ResetTopic(), msg)
}

// Stats reports message counts.
type Stats struct {
	Connected bool   `json:"connected"`
	Published uint64 `json:"published"`
	Received  uint64 `json:"received"`
}

// GetStats returns link statistics.
func (l *Link) GetStats() Stats {
	return Stats{
		Connected: l.client.IsConnected(),
		Published: l.published.Load(),
		Received:  l.received.Load(),
	}
}
