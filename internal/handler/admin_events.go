package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/seat-booking/internal/model"
	"github.com/iliyamo/seat-booking/internal/service"
)

// EventAdmin is the administrative side of the event service.
type EventAdmin interface {
	CreateEvent(ctx context.Context, in service.CreateEventInput) (*model.Event, error)
	ResizeSeats(ctx context.Context, id string, seats int) (*model.Event, error)
	DeactivateEvent(ctx context.Context, id string) (int64, error)
	ListWaitlist(ctx context.Context, id string) ([]model.WaitlistEntry, error)
	Utilization(ctx context.Context, id string) (*service.Utilization, error)
}

// AdminHandler serves /v1/admin.  Every route requires the admin role.
type AdminHandler struct {
	events EventAdmin
	log    logrus.FieldLogger
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(events EventAdmin, log logrus.FieldLogger) *AdminHandler {
	return &AdminHandler{events: events, log: fieldLogger(log)}
}

type createEventRequest struct {
	Name      string    `json:"name"`
	Venue     string    `json:"venue"`
	StartTime time.Time `json:"startTime"`
	Capacity  int       `json:"capacity"`
	Seats     int       `json:"seats"`
}

// CreateEvent handles POST /v1/admin/events and creates the event with
// seats 1..seats.
func (h *AdminHandler) CreateEvent(c echo.Context) error {
	var body createEventRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	ev, err := h.events.CreateEvent(c.Request().Context(), service.CreateEventInput{
		Name:      body.Name,
		Venue:     body.Venue,
		StartTime: body.StartTime,
		Capacity:  body.Capacity,
		Seats:     body.Seats,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, ev)
}

// ResizeEvent handles PATCH /v1/admin/events/:id.  Shrinking below a taken
// seat answers 409.
func (h *AdminHandler) ResizeEvent(c echo.Context) error {
	var body struct {
		Seats *int `json:"seats"`
	}
	if err := c.Bind(&body); err != nil || body.Seats == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seats is required"})
	}
	ev, err := h.events.ResizeSeats(c.Request().Context(), c.Param("id"), *body.Seats)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, ev)
}

// DeactivateEvent handles DELETE /v1/admin/events/:id.
func (h *AdminHandler) DeactivateEvent(c echo.Context) error {
	n, err := h.events.DeactivateEvent(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"id": c.Param("id"), "waitlistCancelled": n})
}

// ListWaitlist handles GET /v1/admin/events/:id/waitlist.
func (h *AdminHandler) ListWaitlist(c echo.Context) error {
	items, err := h.events.ListWaitlist(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	if items == nil {
		items = []model.WaitlistEntry{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Utilization handles GET /v1/admin/analytics/events/:id/utilization.  The
// route is wrapped by the Redis response cache.
func (h *AdminHandler) Utilization(c echo.Context) error {
	u, err := h.events.Utilization(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, u)
}
