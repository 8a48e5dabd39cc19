package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seat-booking/internal/handler"
	"github.com/iliyamo/seat-booking/internal/middleware"
)

// RegisterAdmin registers admin-scoped endpoints under /v1/admin.  All routes
// require a valid JWT and the admin role.  cache wraps the analytics routes
// only; pass nil to serve them uncached.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, jwtSecret string, cache echo.MiddlewareFunc) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(middleware.RoleAdmin),
	)

	// ---- Events ----
	g.POST("/events", a.CreateEvent)
	g.PATCH("/events/:id", a.ResizeEvent)
	g.DELETE("/events/:id", a.DeactivateEvent)
	g.GET("/events/:id/waitlist", a.ListWaitlist)

	// ---- Analytics ----
	// keys live under admin:analytics and are dropped whenever seats move
	analytics := g.Group("/analytics")
	if cache != nil {
		analytics.Use(cache)
	}
	analytics.GET("/events/:id/utilization", a.Utilization)
}
