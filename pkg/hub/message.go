// Package hub fans JSON events out to WebSocket clients using a single
// goroutine that owns the client set.
package hub

import "encoding/json"

// Event is the envelope every client receives.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Message is an encoded event queued for clients.
type Message []byte

// Encode marshals an event of the given type.
func Encode(eventType string, data any) (Message, error) {
	b, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		return nil, err
	}
	return Message(b), nil
}
