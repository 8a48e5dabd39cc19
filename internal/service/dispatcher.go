package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/seat-booking/internal/model"
	"github.com/iliyamo/seat-booking/internal/queue"
)

// NotificationDispatcher consumes the notification queue.  Each message is
// logged and recorded as a notify history entry; outbound delivery (email,
// push) plugs in here.
type NotificationDispatcher struct {
	history HistoryStore
	log     logrus.FieldLogger
}

// NewNotificationDispatcher returns a dispatcher writing to history.
func NewNotificationDispatcher(history HistoryStore, log logrus.FieldLogger) *NotificationDispatcher {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &NotificationDispatcher{history: history, log: log.WithField("component", "notification")}
}

// HandleMessage is the notification-queue handler.
func (d *NotificationDispatcher) HandleMessage(ctx context.Context, body []byte) error {
	n, err := queue.DecodeNotification(body)
	if err != nil {
		return err
	}

	meta := map[string]any{"type": string(n.Type)}
	if n.SeatNumber != nil {
		meta["seatNumber"] = *n.SeatNumber
	}
	if n.RequestedSeat != nil {
		meta["requestedSeat"] = *n.RequestedSeat
	}

	d.log.WithFields(logrus.Fields{
		"type":      n.Type,
		"userId":    n.UserID,
		"eventId":   n.EventID,
		"bookingId": n.BookingID,
	}).Info("notification dispatched")

	if _, err := d.history.Create(ctx, model.BookingHistory{
		UserID:    n.UserID,
		EventID:   n.EventID,
		Action:    model.ActionNotify,
		BookingID: n.BookingID,
		Meta:      meta,
	}); err != nil {
		return err
	}
	return nil
}
