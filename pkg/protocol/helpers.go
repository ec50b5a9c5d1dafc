package protocol

import (
	"fmt"

	"github.com/teslashibe/go-mecanum/pkg/drive"
)

// NewGamepadMessage creates a gamepad sample message
func NewGamepadMessage(pad GamepadData) (*Message, error) {
	return NewMessage(TypeGamepad, pad)
}

// NewStateMessage creates a robot state message
func NewStateMessage(heading, x, y float64) (*Message, error) {
	return NewMessage(TypeState, StateData{Heading: heading, X: x, Y: y})
}

// NewWheelsMessage creates a wheel command message
func NewWheelsMessage(cmd drive.WheelCommand, seq uint64) (*Message, error) {
	return NewMessage(TypeWheels, WheelsFromCommand(cmd, seq))
}

// NewResetMessage creates a reset request for target
func NewResetMessage(target string) (*Message, error) {
	if target != ResetHeading && target != ResetPosition {
		return nil, fmt.Errorf("unknown reset target %q", target)
	}
	return NewMessage(TypeReset, ResetData{Target: target})
}

// NewPingMessage creates a ping message
func NewPingMessage(id string) (*Message, error) {
	return NewMessage(TypePing, PingData{
		ID:        id,
		Timestamp: 0, // Will be set by NewMessage
	})
}

// NewPongMessage creates a pong response message
func NewPongMessage(id string, pingTS, pongTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ID:        id,
		PingTS:    pingTS,
		PongTS:    pongTS,
		LatencyMs: pongTS - pingTS,
	})
}

// WheelsFromCommand converts a drive command to its wire form
func WheelsFromCommand(cmd drive.WheelCommand, seq uint64) WheelsData {
	return WheelsData{
		FrontLeft:  cmd.FrontLeft,
		FrontRight: cmd.FrontRight,
		BackLeft:   cmd.BackLeft,
		BackRight:  cmd.BackRight,
		Seq:        seq,
	}
}

// Command converts the wire form back to a drive command
func (w WheelsData) Command() drive.WheelCommand {
	return drive.WheelCommand{
		FrontLeft:  w.FrontLeft,
		FrontRight: w.FrontRight,
		BackLeft:   w.BackLeft,
		BackRight:  w.BackRight,
	}
}

// GetGamepadData extracts a gamepad sample from a message
func (m *Message) GetGamepadData() (*GamepadData, error) {
	var data GamepadData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetStateData extracts robot state from a message
func (m *Message) GetStateData() (*StateData, error) {
	var data StateData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetWheelsData extracts a wheel command from a message
func (m *Message) GetWheelsData() (*WheelsData, error) {
	var data WheelsData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetResetData extracts a reset request from a message
func (m *Message) GetResetData() (*ResetData, error) {
	var data ResetData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPingData extracts ping data from a message
func (m *Message) GetPingData() (*PingData, error) {
	var data PingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPongData extracts pong data from a message
func (m *Message) GetPongData() (*PongData, error) {
	var data PongData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
