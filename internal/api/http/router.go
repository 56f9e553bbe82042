package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/dib506676/TicketMate/internal/api/http/handlers"
	"github.com/dib506676/TicketMate/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health       *handlers.HealthHandler
	Events       *handlers.EventsHandler
	Metrics      *handlers.MetricsHandler
	ProducerAuth *auth.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Metrics.Snapshot)

	app.Post("/events", cfg.ProducerAuth.Handle, cfg.Events.Publish)
}
