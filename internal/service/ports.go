package service

import (
	"context"

	"github.com/iliyamo/seat-booking/internal/model"
)

// SeatStore is the atomic seat-state contract.  ReserveSeat and ReleaseSeat
// return (nil, nil) when no seat matches; every transition is a single
// conditional update in the backing store.
type SeatStore interface {
	ReserveSeat(ctx context.Context, eventID string, seatNumber *int, userID, bookingID string) (*model.Seat, error)
	ReleaseSeat(ctx context.Context, q model.SeatQuery) (*model.Seat, error)
	FindByBookingID(ctx context.Context, bookingID string) (*model.Seat, error)
	CreateSeatRange(ctx context.Context, eventID string, from, to int) error
	DeleteAvailableAboveSeat(ctx context.Context, eventID string, seatNumber int) (int64, error)
	CountTakenAboveSeat(ctx context.Context, eventID string, seatNumber int) (int64, error)
	CountByStatus(ctx context.Context, eventID string, status model.SeatStatus) (int64, error)
	ListSeats(ctx context.Context, eventID string) ([]model.Seat, error)
}

// WaitlistStore is the FIFO waitlist.  PeekNext claims the oldest pending
// entry by moving it to processing.
type WaitlistStore interface {
	Enqueue(ctx context.Context, eventID, userID string, requestedSeat *int, bookingID string) (*model.WaitlistEntry, error)
	PeekNext(ctx context.Context, eventID string) (*model.WaitlistEntry, error)
	Complete(ctx context.Context, id string) error
	Requeue(ctx context.Context, id string) error
	CancelByBookingID(ctx context.Context, bookingID string) (*model.WaitlistEntry, error)
	CancelAllForEvent(ctx context.Context, eventID string) (int64, error)
	FindActiveByBookingID(ctx context.Context, bookingID string) (*model.WaitlistEntry, error)
	ListByEvent(ctx context.Context, eventID string) ([]model.WaitlistEntry, error)
}

// HistoryStore is the append-only booking log.
type HistoryStore interface {
	Create(ctx context.Context, h model.BookingHistory) (*model.BookingHistory, error)
	FindByUser(ctx context.Context, userID string, limit int) ([]model.BookingHistory, error)
}

// EventFinder resolves active events for seat range checks.
type EventFinder interface {
	FindActiveByID(ctx context.Context, id string) (*model.Event, error)
}

// EventStore is the full event repository used by the admin service.
type EventStore interface {
	EventFinder
	Create(ctx context.Context, e *model.Event) error
	FindByID(ctx context.Context, id string) (*model.Event, error)
	ListActive(ctx context.Context) ([]model.Event, error)
	Update(ctx context.Context, e *model.Event) error
	Deactivate(ctx context.Context, id string) error
}

// CacheInvalidator drops cached responses matching a key pattern.  It must
// not block the caller.
type CacheInvalidator interface {
	Invalidate(pattern string)
}

// Publisher sends messages to a named queue and waits for the broker to
// confirm them.
type Publisher interface {
	Publish(ctx context.Context, queue string, msg any) error
	PublishRaw(ctx context.Context, queue string, body []byte) error
}
