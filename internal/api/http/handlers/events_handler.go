package handlers

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/dib506676/TicketMate/internal/bus"
	"github.com/dib506676/TicketMate/internal/events"
	apperrors "github.com/dib506676/TicketMate/pkg/util/errorutil"
)

// EventsHandler accepts inbound workflow events from authenticated producers
// and hands them to the bus. Delivery to workflows is asynchronous; the
// response only acknowledges acceptance.
type EventsHandler struct {
	bus    bus.Bus
	logger *zap.Logger
}

// NewEventsHandler returns a new handler instance.
func NewEventsHandler(b bus.Bus, logger *zap.Logger) *EventsHandler {
	return &EventsHandler{bus: b, logger: logger}
}

type publishRequest struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Publish validates and enqueues one event.
func (h *EventsHandler) Publish(c *fiber.Ctx) error {
	var req publishRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid JSON body", nil)
	}

	eventType := events.EventType(req.Type)
	if !events.KnownType(eventType) {
		return apperrors.NewValidationError("unsupported event type", map[string]any{"type": req.Type})
	}
	if err := validatePayload(eventType, req.Payload); err != nil {
		return err
	}

	evt, err := events.New(eventType, req.Payload)
	if err != nil {
		return apperrors.NewInternalError(err)
	}

	if err := h.bus.Publish(c.UserContext(), evt); err != nil {
		return apperrors.NewInternalError(err)
	}

	h.logger.Info("event accepted",
		zap.String("event_id", evt.ID),
		zap.String("event_type", string(evt.Type)))

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"event_id": evt.ID})
}

func validatePayload(eventType events.EventType, raw json.RawMessage) error {
	switch eventType {
	case events.EventTicketCreated:
		var p events.TicketCreatedPayload
		if err := json.Unmarshal(raw, &p); err != nil || p.TicketID == "" {
			return apperrors.NewValidationError("payload requires ticket_id", nil)
		}
	case events.EventUserSignedUp:
		var p events.UserSignedUpPayload
		if err := json.Unmarshal(raw, &p); err != nil || p.Email == "" {
			return apperrors.NewValidationError("payload requires email", nil)
		}
	}
	return nil
}
