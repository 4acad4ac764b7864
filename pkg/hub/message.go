// Package hub fans navigation events out to websocket subscribers using a
// single goroutine that owns the client set.
package hub

import "encoding/json"

// Message is one encoded event, written to clients as a text frame.
type Message struct {
	Topic string
	Data  []byte
}

// NewMessage encodes v as JSON under topic.
func NewMessage(topic string, v any) (Message, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Message{}, err
	}
	return Message{Topic: topic, Data: data}, nil
}
