package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seat-booking/internal/handler"
)

// RegisterRoutes registers routes that do not require authentication and
// are not part of the versioned API.  Currently it exposes only a health
// check for load balancers and orchestrators.
func RegisterRoutes(e *echo.Echo, h *handler.HealthHandler) {
	e.GET("/healthz", h.Health)
}

// RegisterPublic registers unauthenticated browse endpoints.  The handler
// returns events and seat status with owner details removed.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler) {
	e.GET("/v1/events", p.ListEvents)
	e.GET("/v1/events/:id", p.GetEvent)
	e.GET("/v1/events/:id/seats", p.ListSeats)
}
