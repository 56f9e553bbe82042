package handlers

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dib506676/TicketMate/internal/auth"
	"github.com/dib506676/TicketMate/internal/bus"
	apperrors "github.com/dib506676/TicketMate/pkg/util/errorutil"
)

func newEventsApp(t *testing.T) (*fiber.App, *auth.TokenManager) {
	t.Helper()
	b := bus.NewInMemoryBus(bus.NewMemoryStepLog(), nil, nil, 0)
	handler := NewEventsHandler(b, zap.NewNop())
	tokens := auth.NewTokenManager("test-secret", 60)
	mw := auth.NewMiddleware(tokens)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).JSON(fiber.Map{"error": de.Code})
		},
	})
	app.Post("/events", mw.Handle, handler.Publish)
	return app, tokens
}

func postEvents(t *testing.T, app *fiber.App, token, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestEventsRequireToken(t *testing.T) {
	app, _ := newEventsApp(t)
	resp := postEvents(t, app, "", `{"type":"ticket.created","payload":{"ticket_id":"t-1"}}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestEventsRejectBadToken(t *testing.T) {
	app, _ := newEventsApp(t)
	resp := postEvents(t, app, "bogus", `{"type":"ticket.created","payload":{"ticket_id":"t-1"}}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestEventsAcceptValidEvent(t *testing.T) {
	app, tokens := newEventsApp(t)
	token, _, err := tokens.GenerateToken("api-service")
	require.NoError(t, err)

	resp := postEvents(t, app, token, `{"type":"ticket.created","payload":{"ticket_id":"t-1"}}`)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "event_id")
}

func TestEventsRejectUnknownType(t *testing.T) {
	app, tokens := newEventsApp(t)
	token, _, err := tokens.GenerateToken("api-service")
	require.NoError(t, err)

	resp := postEvents(t, app, token, `{"type":"ticket.deleted","payload":{}}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestEventsRejectMissingFields(t *testing.T) {
	app, tokens := newEventsApp(t)
	token, _, err := tokens.GenerateToken("api-service")
	require.NoError(t, err)

	resp := postEvents(t, app, token, `{"type":"user.signedup","payload":{}}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postEvents(t, app, token, `not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
