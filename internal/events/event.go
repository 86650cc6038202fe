package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/edge-bridge/internal/registration"
)

// Type names a relay event. It doubles as the websocket channel and the
// last MQTT topic segment.
type Type string

// Relay event types.
const (
	TypeRegistrationAdded    Type = "registration.added"
	TypeRegistrationReplaced Type = "registration.replaced"
	TypeRegistrationRemoved  Type = "registration.removed"
	TypeRegistrationEvicted  Type = "registration.evicted"
	TypeHubDelivery          Type = "hub.delivery"
	TypeForwardCompleted     Type = "forward.completed"
)

// Types lists every event type in a stable order.
func Types() []Type {
	return []Type{
		TypeRegistrationAdded,
		TypeRegistrationReplaced,
		TypeRegistrationRemoved,
		TypeRegistrationEvicted,
		TypeHubDelivery,
		TypeForwardCompleted,
	}
}

// Event is one observable relay occurrence.
//
// Only the fields relevant to Type are set.
type Event struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	Timestamp time.Time `json:"timestamp"`

	// Registration events and hub deliveries.
	Record *registration.Record `json:"record,omitempty"`

	// Hub deliveries and forwards.
	URL        string  `json:"url,omitempty"`
	StatusCode int     `json:"status_code,omitempty"`
	Success    bool    `json:"success"`
	TimedOut   bool    `json:"timed_out,omitempty"`
	DurationMS float64 `json:"duration_ms,omitempty"`
	Failures   int     `json:"failures,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// New creates an event of type t with a fresh id and timestamp.
func New(t Type) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      t,
		Timestamp: time.Now().UTC(),
	}
}

// ForRecord creates a registration event for rec.
func ForRecord(t Type, rec registration.Record) Event {
	e := New(t)
	e.Record = &rec
	e.Success = true
	return e
}
