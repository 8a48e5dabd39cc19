package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// BrokerStatus reports whether the message broker connection is up.
type BrokerStatus interface {
	Healthy() bool
}

// HealthHandler answers liveness checks.  Ping checks the store; a nil Ping
// or Broker is skipped.
type HealthHandler struct {
	Broker BrokerStatus
	Ping   func(ctx context.Context) error
}

// Health handles GET /healthz.  It returns 200 when every dependency is
// reachable and 503 otherwise, listing each dependency's state.
func (h *HealthHandler) Health(c echo.Context) error {
	status := http.StatusOK
	deps := echo.Map{}

	if h.Broker != nil {
		ok := h.Broker.Healthy()
		deps["broker"] = ok
		if !ok {
			status = http.StatusServiceUnavailable
		}
	}
	if h.Ping != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		ok := h.Ping(ctx) == nil
		deps["store"] = ok
		if !ok {
			status = http.StatusServiceUnavailable
		}
	}

	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}
	return c.JSON(status, echo.Map{"status": state, "deps": deps})
}
