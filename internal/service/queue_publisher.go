package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/seat-booking/internal/queue"
)

// Enqueuer is the producer side of the booking queue.  Acceptance means the
// broker has persisted the intent; the allocation result arrives later on
// the notification queue.
type Enqueuer struct {
	pub   Publisher
	queue string
	log   logrus.FieldLogger
	newID func() string
}

// NewEnqueuer publishes intents to bookingQueue through pub.
func NewEnqueuer(pub Publisher, bookingQueue string, log logrus.FieldLogger) *Enqueuer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if bookingQueue == "" {
		bookingQueue = "booking_queue"
	}
	return &Enqueuer{
		pub:   pub,
		queue: bookingQueue,
		log:   log.WithField("component", "producer"),
		newID: uuid.NewString,
	}
}

// EnqueueBooking validates the request, assigns a booking id and publishes
// a BOOK intent.  The booking id is returned for later cancellation.
func (e *Enqueuer) EnqueueBooking(ctx context.Context, userID, eventID string, seatNumber *int) (string, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return "", fmt.Errorf("%w: invalid user id", ErrValidation)
	}
	if _, err := uuid.Parse(eventID); err != nil {
		return "", fmt.Errorf("%w: invalid event id", ErrValidation)
	}
	if seatNumber != nil && *seatNumber < 1 {
		return "", fmt.Errorf("%w: seat number must be positive", ErrValidation)
	}

	bookingID := e.newID()
	if err := e.publish(ctx, queue.BookIntent{
		BookingID:  bookingID,
		UserID:     userID,
		EventID:    eventID,
		SeatNumber: seatNumber,
	}); err != nil {
		return "", err
	}
	return bookingID, nil
}

// EnqueueCancellation publishes a CANCEL intent for bookingID.
func (e *Enqueuer) EnqueueCancellation(ctx context.Context, bookingID string) error {
	if bookingID == "" {
		return fmt.Errorf("%w: booking id is required", ErrValidation)
	}
	return e.publish(ctx, queue.CancelIntent{BookingID: bookingID})
}

func (e *Enqueuer) publish(ctx context.Context, intent queue.Intent) error {
	body, err := queue.EncodeIntent(intent)
	if err != nil {
		return err
	}
	if err := e.pub.PublishRaw(ctx, e.queue, body); err != nil {
		e.log.WithError(err).WithFields(logrus.Fields{
			"type":      intent.Type(),
			"bookingId": intent.CorrelationID(),
		}).Error("publish intent failed")
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
