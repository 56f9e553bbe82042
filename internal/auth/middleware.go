package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/dib506676/TicketMate/pkg/util/errorutil"
)

// ProducerLocal is the fiber locals key carrying the authenticated producer
// name.
const ProducerLocal = "producer"

// Middleware guards the event-intake routes with producer tokens.
type Middleware struct {
	tokens *TokenManager
}

// NewMiddleware builds the middleware.
func NewMiddleware(tokens *TokenManager) *Middleware {
	return &Middleware{tokens: tokens}
}

// Handle validates the bearer token and stashes the producer name.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return apperrors.NewUnauthorized("missing bearer token")
	}

	claims, err := m.tokens.ParseToken(token)
	if err != nil {
		return apperrors.NewUnauthorized("invalid producer token")
	}

	c.Locals(ProducerLocal, claims.Producer)
	return c.Next()
}
