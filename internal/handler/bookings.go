package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/seat-booking/internal/middleware"
)

// BookingProducer enqueues booking intents.
type BookingProducer interface {
	EnqueueBooking(ctx context.Context, userID, eventID string, seatNumber *int) (string, error)
	EnqueueCancellation(ctx context.Context, bookingID string) error
}

// BookingHandler accepts booking and cancellation requests.  Both only
// enqueue work: the answer is 202 and the outcome arrives as a
// notification.
type BookingHandler struct {
	producer BookingProducer
	log      logrus.FieldLogger
}

// NewBookingHandler constructs a BookingHandler.
func NewBookingHandler(p BookingProducer, log logrus.FieldLogger) *BookingHandler {
	return &BookingHandler{producer: p, log: fieldLogger(log)}
}

type createBookingRequest struct {
	EventID    string `json:"eventId"`
	SeatNumber *int   `json:"seatNumber"`
}

// Create handles POST /v1/bookings.
func (h *BookingHandler) Create(c echo.Context) error {
	var body createBookingRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	bookingID, err := h.producer.EnqueueBooking(c.Request().Context(), middleware.UserID(c), strings.TrimSpace(body.EventID), body.SeatNumber)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusAccepted, echo.Map{"bookingId": bookingID, "status": "accepted"})
}

// Cancel handles DELETE /v1/bookings/:bookingId.
func (h *BookingHandler) Cancel(c echo.Context) error {
	bookingID := strings.TrimSpace(c.Param("bookingId"))
	if err := h.producer.EnqueueCancellation(c.Request().Context(), bookingID); err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusAccepted, echo.Map{"bookingId": bookingID, "status": "accepted"})
}
