package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated EventType = "ticket.created"
	EventUserSignedUp  EventType = "user.signedup"
)

// KnownType reports whether t is one of the supported event types.
func KnownType(t EventType) bool {
	switch t {
	case EventTicketCreated, EventUserSignedUp:
		return true
	}
	return false
}

// Event is the delivery envelope handed to workflow handlers. The event ID
// doubles as the workflow run ID, so re-deliveries of the same event resume
// the same run. Payload stays raw so the envelope round-trips through the
// queue without knowing every payload shape.
type Event struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// New builds an event envelope with a fresh ID around the given payload.
func New(eventType EventType, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Payload:   raw,
	}, nil
}

// DecodePayload unmarshals the event payload into dst.
func (e Event) DecodePayload(dst any) error {
	if err := json.Unmarshal(e.Payload, dst); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	TicketID string `json:"ticket_id"`
}

// UserSignedUpPayload payload.
type UserSignedUpPayload struct {
	Email string `json:"email"`
}
