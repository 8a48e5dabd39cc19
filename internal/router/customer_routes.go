package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seat-booking/internal/handler"
	"github.com/iliyamo/seat-booking/internal/middleware"
)

// RegisterCustomer registers the endpoints any authenticated user may call.
// Booking and cancellation only enqueue work, so limiter guards the broker
// from bursts; pass nil to disable it.
func RegisterCustomer(e *echo.Echo, b *handler.BookingHandler, p *handler.PublicHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group("/v1", middleware.JWTAuth(jwtSecret))

	var guard []echo.MiddlewareFunc
	if limiter != nil {
		guard = append(guard, limiter)
	}
	g.POST("/bookings", b.Create, guard...)
	g.DELETE("/bookings/:bookingId", b.Cancel, guard...)

	g.GET("/me/history", p.MyHistory)
}
