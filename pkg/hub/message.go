// Package hub provides a thread-safe websocket broadcast hub
// using the channel-based fan-out pattern.
package hub

import "encoding/json"

// Message is one pre-encoded JSON frame for every client.
type Message struct {
	Data []byte
}

// NewJSONMessage wraps already encoded bytes.
func NewJSONMessage(data []byte) Message {
	return Message{Data: data}
}

// Encode marshals v into a Message.
func Encode(v interface{}) (Message, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Message{}, err
	}
	return NewJSONMessage(data), nil
}
