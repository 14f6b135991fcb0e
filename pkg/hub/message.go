// Package hub fans recognition events out to websocket clients using a
// single goroutine that owns the client set.
package hub

import (
	"encoding/json"
	"time"
)

// Event types published by cuecam.
const (
	EventStatus       = "status"
	EventAnnouncement = "announcement"
	EventCue          = "cue"
	EventCamera       = "camera"
	EventSession      = "session"
)

// Event is the JSON envelope sent to clients.
type Event struct {
	Type string    `json:"type"`
	Time time.Time `json:"time"`
	Data any       `json:"data,omitempty"`
}

// Message is one encoded frame queued for clients.
type Message struct {
	Data []byte
}

// Encode wraps data in an Event of type t.
func Encode(t string, data any) (Message, error) {
	b, err := json.Marshal(Event{Type: t, Time: time.Now(), Data: data})
	if err != nil {
		return Message{}, err
	}
	return Message{Data: b}, nil
}
