package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/seat-booking/internal/middleware"
	"github.com/iliyamo/seat-booking/internal/model"
)

// EventBrowser is the read side of the event service.
type EventBrowser interface {
	GetEvent(ctx context.Context, id string) (*model.Event, error)
	ListEvents(ctx context.Context) ([]model.Event, error)
	ListSeats(ctx context.Context, id string) ([]model.Seat, error)
	UserHistory(ctx context.Context, userID string, limit int) ([]model.BookingHistory, error)
}

// PublicHandler serves event browsing without authentication, plus the
// caller's own history.
type PublicHandler struct {
	events EventBrowser
	log    logrus.FieldLogger
}

// NewPublicHandler constructs a PublicHandler.
func NewPublicHandler(events EventBrowser, log logrus.FieldLogger) *PublicHandler {
	return &PublicHandler{events: events, log: fieldLogger(log)}
}

// PublicEvent is an event as shown to guests.
type PublicEvent struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Venue     string    `json:"venue"`
	StartTime time.Time `json:"startTime"`
	Seats     int       `json:"seats"`
}

// PublicSeat hides who holds a seat.
type PublicSeat struct {
	SeatNumber int              `json:"seatNumber"`
	Status     model.SeatStatus `json:"status"`
}

func publicEvent(e model.Event) PublicEvent {
	return PublicEvent{ID: e.ID, Name: e.Name, Venue: e.Venue, StartTime: e.StartTime, Seats: e.Seats}
}

// ListEvents handles GET /v1/events.
func (h *PublicHandler) ListEvents(c echo.Context) error {
	events, err := h.events.ListEvents(c.Request().Context())
	if err != nil {
		return writeError(c, h.log, err)
	}
	out := make([]PublicEvent, 0, len(events))
	for _, e := range events {
		out = append(out, publicEvent(e))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// GetEvent handles GET /v1/events/:id.
func (h *PublicHandler) GetEvent(c echo.Context) error {
	ev, err := h.events.GetEvent(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, publicEvent(*ev))
}

// ListSeats handles GET /v1/events/:id/seats.  ?status= filters by seat
// status.
func (h *PublicHandler) ListSeats(c echo.Context) error {
	seats, err := h.events.ListSeats(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	filter := model.SeatStatus(c.QueryParam("status"))
	out := make([]PublicSeat, 0, len(seats))
	for _, s := range seats {
		if filter != "" && s.Status != filter {
			continue
		}
		out = append(out, PublicSeat{SeatNumber: s.SeatNumber, Status: s.Status})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// MyHistory handles GET /v1/me/history?limit=n.
func (h *PublicHandler) MyHistory(c echo.Context) error {
	limit := 0
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "limit must be a positive integer"})
		}
		limit = n
	}
	items, err := h.events.UserHistory(c.Request().Context(), middleware.UserID(c), limit)
	if err != nil {
		return writeError(c, h.log, err)
	}
	if items == nil {
		items = []model.BookingHistory{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}
