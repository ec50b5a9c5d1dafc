// Package protocol defines the WebSocket and MQTT message types exchanged
// between the drive station, gamepad clients and robots.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/teslashibe/go-mecanum/pkg/input"
)

// MessageType identifies the type of message
type MessageType string

const (
	// Gamepad → Station messages
	TypeGamepad MessageType = "gamepad" // Controller sample

	// Robot → Station messages
	TypeState MessageType = "state" // Odometry and heading

	// Station → Robot messages
	TypeWheels MessageType = "wheels" // Wheel powers
	TypeReset  MessageType = "reset"  // Zero heading or position

	// Bidirectional
	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

// Reset targets.
const (
	ResetHeading  = "heading"
	ResetPosition = "position"
)

// Message is the base wrapper for all messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data interface{}) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v interface{}) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// Age returns how long ago the message was stamped.
func (m *Message) Age(now time.Time) time.Duration {
	return now.Sub(time.UnixMilli(m.Timestamp))
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	return &msg, nil
}

// GamepadData is one controller sample. It has the same shape as
// input.Gamepad so browser clients can send the standard gamepad fields.
type GamepadData = input.Gamepad

// StateData is the robot's own pose estimate.
type StateData struct {
	Heading float64 `json:"heading"` // Degrees, counter-clockwise positive
	X       float64 `json:"x"`       // Field position, meters
	Y       float64 `json:"y"`
}

// WheelsData carries one wheel command.
type WheelsData struct {
	FrontLeft  float64 `json:"front_left"`
	FrontRight float64 `json:"front_right"`
	BackLeft   float64 `json:"back_left"`
	BackRight  float64 `json:"back_right"`
	Seq        uint64  `json:"seq,omitempty"`
}

// ResetData asks the robot to zero one of its estimates.
type ResetData struct {
	Target string `json:"target"` // ResetHeading or ResetPosition
}

// PingData contains ping information
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains pong response
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
