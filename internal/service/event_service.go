package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/seat-booking/internal/cache"
	"github.com/iliyamo/seat-booking/internal/model"
	"github.com/iliyamo/seat-booking/internal/repository"
)

const (
	maxSeatsPerEvent   = 100000
	defaultHistoryPage = 50
	maxHistoryPage     = 500
)

// CreateEventInput carries the fields needed to create an event.
type CreateEventInput struct {
	Name      string
	Venue     string
	StartTime time.Time
	Capacity  int
	Seats     int
}

// Utilization summarises the seats of one event.
type Utilization struct {
	EventID   string `json:"eventId"`
	Total     int64  `json:"total"`
	Booked    int64  `json:"booked"`
	Reserved  int64  `json:"reserved"`
	Available int64  `json:"available"`
}

// EventService holds the administrative operations on events and the read
// models exposed over HTTP.
type EventService struct {
	events   EventStore
	seats    SeatStore
	waitlist WaitlistStore
	history  HistoryStore
	cache    CacheInvalidator
	log      logrus.FieldLogger
}

// NewEventService wires an EventService.  A nil invalidator disables cache
// invalidation.
func NewEventService(events EventStore, seats SeatStore, waitlist WaitlistStore, history HistoryStore,
	inv CacheInvalidator, log logrus.FieldLogger) *EventService {
	if inv == nil {
		inv = cache.Noop{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &EventService{
		events:   events,
		seats:    seats,
		waitlist: waitlist,
		history:  history,
		cache:    inv,
		log:      log.WithField("component", "events"),
	}
}

// CreateEvent stores a new active event and creates seats 1..in.Seats.
func (s *EventService) CreateEvent(ctx context.Context, in CreateEventInput) (*model.Event, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Venue = strings.TrimSpace(in.Venue)
	switch {
	case in.Name == "":
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	case in.StartTime.IsZero():
		return nil, fmt.Errorf("%w: start time is required", ErrValidation)
	case in.Seats < 0 || in.Seats > maxSeatsPerEvent:
		return nil, fmt.Errorf("%w: seats must be between 0 and %d", ErrValidation, maxSeatsPerEvent)
	case in.Capacity < 0:
		return nil, fmt.Errorf("%w: capacity must not be negative", ErrValidation)
	}
	if in.Capacity == 0 {
		in.Capacity = in.Seats
	}

	now := time.Now().UTC()
	ev := &model.Event{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Venue:     in.Venue,
		StartTime: in.StartTime.UTC(),
		Capacity:  in.Capacity,
		Seats:     in.Seats,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.events.Create(ctx, ev); err != nil {
		return nil, mapStoreErr(err)
	}
	if ev.Seats > 0 {
		if err := s.seats.CreateSeatRange(ctx, ev.ID, 1, ev.Seats); err != nil {
			return nil, fmt.Errorf("create seats: %w", err)
		}
	}
	s.log.WithFields(logrus.Fields{"eventId": ev.ID, "seats": ev.Seats}).Info("event created")
	s.cache.Invalidate(cache.AnalyticsPattern)
	return ev, nil
}

// ResizeSeats changes the number of seats of an event.  Growing creates the
// missing numbers; shrinking deletes available seats above the new count
// and fails with ErrConflict when any of them is taken, restoring the
// deleted range if a seat was taken while the delete ran.
func (s *EventService) ResizeSeats(ctx context.Context, id string, seats int) (*model.Event, error) {
	if seats < 0 || seats > maxSeatsPerEvent {
		return nil, fmt.Errorf("%w: seats must be between 0 and %d", ErrValidation, maxSeatsPerEvent)
	}
	ev, err := s.events.FindActiveByID(ctx, id)
	if err != nil {
		return nil, mapStoreErr(err)
	}

	switch {
	case seats > ev.Seats:
		if err := s.seats.CreateSeatRange(ctx, id, ev.Seats+1, seats); err != nil {
			return nil, fmt.Errorf("create seats: %w", err)
		}
	case seats < ev.Seats:
		taken, err := s.seats.CountTakenAboveSeat(ctx, id, seats)
		if err != nil {
			return nil, fmt.Errorf("count taken seats: %w", err)
		}
		if taken > 0 {
			return nil, fmt.Errorf("%w: %d seats above %d are taken", ErrConflict, taken, seats)
		}
		if _, err := s.seats.DeleteAvailableAboveSeat(ctx, id, seats); err != nil {
			return nil, fmt.Errorf("delete seats: %w", err)
		}
		// A booking may have landed between the count and the delete.
		taken, err = s.seats.CountTakenAboveSeat(ctx, id, seats)
		if err != nil {
			return nil, fmt.Errorf("recount taken seats: %w", err)
		}
		if taken > 0 {
			if err := s.seats.CreateSeatRange(ctx, id, seats+1, ev.Seats); err != nil {
				return nil, fmt.Errorf("restore seats: %w", err)
			}
			return nil, fmt.Errorf("%w: %d seats above %d were taken during resize", ErrConflict, taken, seats)
		}
	default:
		return ev, nil
	}

	ev.Seats = seats
	if ev.Capacity < seats {
		ev.Capacity = seats
	}
	ev.UpdatedAt = time.Now().UTC()
	if err := s.events.Update(ctx, ev); err != nil {
		return nil, mapStoreErr(err)
	}
	s.log.WithFields(logrus.Fields{"eventId": id, "seats": seats}).Info("event resized")
	s.cache.Invalidate(cache.AnalyticsPattern)
	return ev, nil
}

// DeactivateEvent stops new bookings for an event and cancels its active
// waitlist entries.  It returns the number of entries cancelled.
func (s *EventService) DeactivateEvent(ctx context.Context, id string) (int64, error) {
	if err := s.events.Deactivate(ctx, id); err != nil {
		return 0, mapStoreErr(err)
	}
	n, err := s.waitlist.CancelAllForEvent(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("cancel waitlist: %w", err)
	}
	s.log.WithFields(logrus.Fields{"eventId": id, "waitlistCancelled": n}).Info("event deactivated")
	s.cache.Invalidate(cache.AnalyticsPattern)
	return n, nil
}

// GetEvent returns an active event.
func (s *EventService) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	ev, err := s.events.FindActiveByID(ctx, id)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return ev, nil
}

// ListEvents returns active events ordered by start time.
func (s *EventService) ListEvents(ctx context.Context) ([]model.Event, error) {
	return s.events.ListActive(ctx)
}

// ListSeats returns the seats of an active event ordered by number.
func (s *EventService) ListSeats(ctx context.Context, id string) ([]model.Seat, error) {
	if _, err := s.events.FindActiveByID(ctx, id); err != nil {
		return nil, mapStoreErr(err)
	}
	return s.seats.ListSeats(ctx, id)
}

// ListWaitlist returns every waitlist entry of an event in FIFO order.
func (s *EventService) ListWaitlist(ctx context.Context, id string) ([]model.WaitlistEntry, error) {
	if _, err := s.events.FindByID(ctx, id); err != nil {
		return nil, mapStoreErr(err)
	}
	return s.waitlist.ListByEvent(ctx, id)
}

// Utilization counts the seats of an event by status.
func (s *EventService) Utilization(ctx context.Context, id string) (*Utilization, error) {
	if _, err := s.events.FindByID(ctx, id); err != nil {
		return nil, mapStoreErr(err)
	}
	u := &Utilization{EventID: id}
	for _, c := range []struct {
		status model.SeatStatus
		dst    *int64
	}{
		{model.SeatBooked, &u.Booked},
		{model.SeatReserved, &u.Reserved},
		{model.SeatAvailable, &u.Available},
	} {
		n, err := s.seats.CountByStatus(ctx, id, c.status)
		if err != nil {
			return nil, fmt.Errorf("count %s seats: %w", c.status, err)
		}
		*c.dst = n
	}
	u.Total = u.Booked + u.Reserved + u.Available
	return u, nil
}

// UserHistory returns the newest history records of userID.  A limit of
// zero selects the default page size.
func (s *EventService) UserHistory(ctx context.Context, userID string, limit int) ([]model.BookingHistory, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, fmt.Errorf("%w: invalid user id", ErrValidation)
	}
	if limit <= 0 {
		limit = defaultHistoryPage
	}
	if limit > maxHistoryPage {
		limit = maxHistoryPage
	}
	return s.history.FindByUser(ctx, userID, limit)
}

// mapStoreErr translates repository sentinels into service sentinels.
func mapStoreErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, repository.ErrConflict):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	default:
		return err
	}
}
