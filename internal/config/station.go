// Package config provides process-level configuration helpers for go-mecanum commands.
package config

import (
	"fmt"
	"os"
)

// Default station configuration.
const (
	DefaultListenPort = "8080"
	DefaultMQTTPort   = "1883"
	DefaultRobotID    = "mecanum"
)

// ConfigPath returns the drive config file from TELEOP_CONFIG.
// Falls back to the provided default if not set.
func ConfigPath(defaultPath string) string {
	if path := os.Getenv("TELEOP_CONFIG"); path != "" {
		return path
	}
	return defaultPath
}

// ListenAddr returns the station listen address from TELEOP_LISTEN or the default port.
func ListenAddr() string {
	if addr := os.Getenv("TELEOP_LISTEN"); addr != "" {
		return addr
	}
	return ":" + DefaultListenPort
}

// JWTSecret returns the operator token secret from TELEOP_JWT_SECRET.
// Empty means mutating API routes are disabled.
func JWTSecret() string {
	return os.Getenv("TELEOP_JWT_SECRET")
}

// MQTTBroker returns the broker URL from MQTT_BROKER.
// Falls back to the provided host on the default port.
func MQTTBroker(defaultHost string) string {
	if broker := os.Getenv("MQTT_BROKER"); broker != "" {
		return broker
	}
	return BrokerURL(defaultHost)
}

// BrokerURL returns the MQTT TCP URL for a broker host.
func BrokerURL(host string) string {
	return fmt.Sprintf("tcp://%s:%s", host, DefaultMQTTPort)
}

// RobotID returns the robot identity from ROBOT_ID or the default.
func RobotID() string {
	if id := os.Getenv("ROBOT_ID"); id != "" {
		return id
	}
	return DefaultRobotID
}

// StationURL returns the websocket base URL for a station host, e.g. "ws://10.0.0.2:8080".
func StationURL(host string) string {
	return fmt.Sprintf("ws://%s:%s", host, DefaultListenPort)
}
