package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/seat-booking/internal/cache"
	"github.com/iliyamo/seat-booking/internal/model"
	"github.com/iliyamo/seat-booking/internal/queue"
	"github.com/iliyamo/seat-booking/internal/repository"
)

// OutcomeKind names the terminal result of one intent.
type OutcomeKind string

const (
	OutcomeBooked            OutcomeKind = "booked"
	OutcomeWaitlisted        OutcomeKind = "waitlisted"
	OutcomeCancelled         OutcomeKind = "cancelled"
	OutcomeCancelledWaitlist OutcomeKind = "cancelled_waitlist"
	OutcomeNoOp              OutcomeKind = "noop"
)

// Outcome is what Book or Cancel did.  SeatNumber is set for booked and
// cancelled seats, WaitlistID for waitlist outcomes.  Promoted is the seat
// handed to the head of the waitlist after a cancellation, if any.
type Outcome struct {
	Kind       OutcomeKind
	SeatNumber int
	WaitlistID string
	Promoted   *model.Seat
}

// OrchestratorConfig tunes the orchestrator.
type OrchestratorConfig struct {
	// NotifyQueue receives user-visible outcomes.
	NotifyQueue string
	// RequeueOnLostRace returns a claimed waitlist entry to pending when
	// every seating attempt fails.  When false the entry stays processing.
	RequeueOnLostRace bool
}

// Orchestrator consumes booking intents.  It keeps no mutable state of its
// own; seat and waitlist atomics in the stores are the only coordination,
// so any number of orchestrators may consume the same queue.
type Orchestrator struct {
	seats    SeatStore
	waitlist WaitlistStore
	history  HistoryStore
	events   EventFinder
	cache    CacheInvalidator
	pub      Publisher
	cfg      OrchestratorConfig
	log      logrus.FieldLogger
}

// NewOrchestrator wires an orchestrator.  A nil invalidator disables cache
// invalidation.
func NewOrchestrator(seats SeatStore, waitlist WaitlistStore, history HistoryStore, events EventFinder,
	inv CacheInvalidator, pub Publisher, cfg OrchestratorConfig, log logrus.FieldLogger) *Orchestrator {
	if inv == nil {
		inv = cache.Noop{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	if cfg.NotifyQueue == "" {
		cfg.NotifyQueue = "notification_queue"
	}
	return &Orchestrator{
		seats:    seats,
		waitlist: waitlist,
		history:  history,
		events:   events,
		cache:    inv,
		pub:      pub,
		cfg:      cfg,
		log:      log.WithField("component", "booking-orchestrator"),
	}
}

// HandleMessage is the booking-queue handler.  Validation failures come back
// wrapped with queue.Permanent so the broker dead-letters the message
// instead of redelivering it.
func (o *Orchestrator) HandleMessage(ctx context.Context, body []byte) error {
	intent, err := queue.DecodeIntent(body)
	if err != nil {
		if errors.Is(err, queue.ErrUnknownIntent) {
			return queue.Permanent(fmt.Errorf("%w: %v", ErrUnknownIntent, err))
		}
		return err
	}

	var out Outcome
	switch in := intent.(type) {
	case queue.BookIntent:
		out, err = o.Book(ctx, in)
	case queue.CancelIntent:
		out, err = o.Cancel(ctx, in)
	default:
		return queue.Permanent(fmt.Errorf("%w: %T", ErrUnknownIntent, intent))
	}
	if err != nil {
		return err
	}
	o.log.WithFields(logrus.Fields{
		"bookingId": intent.CorrelationID(),
		"outcome":   out.Kind,
	}).Info("intent processed")
	return nil
}

// Book assigns a seat to in or waitlists it.
func (o *Orchestrator) Book(ctx context.Context, in queue.BookIntent) (Outcome, error) {
	if err := validateBook(in); err != nil {
		return Outcome{}, err
	}

	if out, done, err := o.replayedBook(ctx, in); done || err != nil {
		return out, err
	}
	if err := o.checkEvent(ctx, in); err != nil {
		return Outcome{}, err
	}

	seat, err := o.seats.ReserveSeat(ctx, in.EventID, in.SeatNumber, in.UserID, in.BookingID)
	if err != nil {
		return Outcome{}, fmt.Errorf("reserve seat: %w", err)
	}
	if seat != nil {
		if err := o.recordBooked(ctx, seat, false); err != nil {
			return Outcome{}, err
		}
		return Outcome{Kind: OutcomeBooked, SeatNumber: seat.SeatNumber}, nil
	}

	// Enqueue before the history write so a failed enqueue leaves nothing
	// behind for the redelivery to duplicate.
	entry, err := o.waitlist.Enqueue(ctx, in.EventID, in.UserID, in.SeatNumber, in.BookingID)
	if err != nil {
		return Outcome{}, fmt.Errorf("enqueue waitlist: %w", err)
	}
	if err := o.appendHistory(ctx, in.UserID, in.EventID, in.BookingID, model.ActionWaitlist, map[string]any{
		"requestedSeat": intOrNil(in.SeatNumber),
	}); err != nil {
		return Outcome{}, err
	}
	if err := o.notify(ctx, queue.Notification{
		Type:          queue.NotifyWaitlisted,
		UserID:        in.UserID,
		EventID:       in.EventID,
		BookingID:     in.BookingID,
		RequestedSeat: in.SeatNumber,
	}); err != nil {
		return Outcome{}, err
	}
	return Outcome{Kind: OutcomeWaitlisted, WaitlistID: entry.ID}, nil
}

func validateBook(in queue.BookIntent) error {
	if in.BookingID == "" {
		return queue.Permanent(fmt.Errorf("%w: bookingId is required", ErrValidation))
	}
	if _, err := uuid.Parse(in.UserID); err != nil {
		return queue.Permanent(fmt.Errorf("%w: userId %q", ErrValidation, in.UserID))
	}
	if _, err := uuid.Parse(in.EventID); err != nil {
		return queue.Permanent(fmt.Errorf("%w: eventId %q", ErrValidation, in.EventID))
	}
	return nil
}

// checkEvent rejects bookings for unknown or deactivated events, which
// would otherwise pile up on the waitlist, and requested seats outside
// 1..Seats.
func (o *Orchestrator) checkEvent(ctx context.Context, in queue.BookIntent) error {
	ev, err := o.events.FindActiveByID(ctx, in.EventID)
	if errors.Is(err, repository.ErrNotFound) {
		return queue.Permanent(fmt.Errorf("%w: event %s", ErrNotFound, in.EventID))
	}
	if err != nil {
		return fmt.Errorf("load event: %w", err)
	}
	if in.SeatNumber == nil {
		return nil
	}
	if n := *in.SeatNumber; n < 1 || n > ev.Seats {
		return queue.Permanent(fmt.Errorf("%w: seat %d outside 1..%d", ErrValidation, n, ev.Seats))
	}
	return nil
}

// replayedBook recognises a redelivered BOOK whose first delivery already
// took effect.  The earlier notification is re-sent because the crash that
// caused the redelivery may have happened before it was published; nothing
// new is written to the stores.
func (o *Orchestrator) replayedBook(ctx context.Context, in queue.BookIntent) (Outcome, bool, error) {
	seat, err := o.seats.FindByBookingID(ctx, in.BookingID)
	switch {
	case err == nil:
		o.log.WithField("bookingId", in.BookingID).Warn("duplicate booking delivery, seat already assigned")
		if err := o.notify(ctx, confirmed(seat)); err != nil {
			return Outcome{}, true, err
		}
		return Outcome{Kind: OutcomeBooked, SeatNumber: seat.SeatNumber}, true, nil
	case !errors.Is(err, repository.ErrNotFound):
		return Outcome{}, true, fmt.Errorf("find seat by booking: %w", err)
	}

	entry, err := o.waitlist.FindActiveByBookingID(ctx, in.BookingID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return Outcome{}, true, fmt.Errorf("find waitlist by booking: %w", err)
	}
	if entry == nil {
		return Outcome{}, false, nil
	}
	o.log.WithField("bookingId", in.BookingID).Warn("duplicate booking delivery, already waitlisted")
	if err := o.notify(ctx, queue.Notification{
		Type:          queue.NotifyWaitlisted,
		UserID:        entry.UserID,
		EventID:       entry.EventID,
		BookingID:     entry.BookingID,
		RequestedSeat: entry.RequestedSeat,
	}); err != nil {
		return Outcome{}, true, err
	}
	return Outcome{Kind: OutcomeWaitlisted, WaitlistID: entry.ID}, true, nil
}

// Cancel releases the seat or waitlist entry held by in.BookingID.  Nothing
// held is not an error.
func (o *Orchestrator) Cancel(ctx context.Context, in queue.CancelIntent) (Outcome, error) {
	if in.BookingID == "" {
		return Outcome{}, queue.Permanent(fmt.Errorf("%w: bookingId is required", ErrValidation))
	}

	seat, err := o.seats.ReleaseSeat(ctx, model.SeatQuery{BookingID: in.BookingID, Status: model.SeatBooked})
	if err != nil {
		return Outcome{}, fmt.Errorf("release seat: %w", err)
	}
	if seat != nil {
		return o.cancelledSeat(ctx, seat)
	}

	entry, err := o.waitlist.CancelByBookingID(ctx, in.BookingID)
	if err != nil {
		return Outcome{}, fmt.Errorf("cancel waitlist: %w", err)
	}
	if entry == nil {
		o.log.WithField("bookingId", in.BookingID).Debug("nothing to cancel")
		return Outcome{Kind: OutcomeNoOp}, nil
	}
	if err := o.appendHistory(ctx, entry.UserID, entry.EventID, entry.BookingID, model.ActionCancel, map[string]any{
		"waitlisted":    true,
		"requestedSeat": intOrNil(entry.RequestedSeat),
	}); err != nil {
		return Outcome{}, err
	}
	if err := o.notify(ctx, queue.Notification{
		Type:          queue.NotifyCancelled,
		UserID:        entry.UserID,
		EventID:       entry.EventID,
		BookingID:     entry.BookingID,
		RequestedSeat: entry.RequestedSeat,
	}); err != nil {
		return Outcome{}, err
	}
	o.cache.Invalidate(cache.AnalyticsPattern)
	return Outcome{Kind: OutcomeCancelledWaitlist, WaitlistID: entry.ID}, nil
}

// cancelledSeat completes a cancellation whose seat was released.  seat is
// the row as it was before the release, so it still carries the owner.
func (o *Orchestrator) cancelledSeat(ctx context.Context, seat *model.Seat) (Outcome, error) {
	if err := o.appendHistory(ctx, seat.UserID, seat.EventID, seat.BookingID, model.ActionCancel, map[string]any{
		"seatNumber": seat.SeatNumber,
	}); err != nil {
		return Outcome{}, err
	}
	n := seat.SeatNumber
	if err := o.notify(ctx, queue.Notification{
		Type:       queue.NotifyCancelled,
		UserID:     seat.UserID,
		EventID:    seat.EventID,
		BookingID:  seat.BookingID,
		SeatNumber: &n,
	}); err != nil {
		return Outcome{}, err
	}

	out := Outcome{Kind: OutcomeCancelled, SeatNumber: n}
	promoted, err := o.Promote(ctx, seat.EventID, &n)
	if err != nil {
		// The cancellation itself is done; redelivering it would not retry
		// the promotion because the seat is already free.
		o.log.WithError(err).WithFields(logrus.Fields{
			"eventId": seat.EventID,
			"seat":    n,
		}).Error("waitlist promotion failed")
	}
	out.Promoted = promoted
	o.cache.Invalidate(cache.AnalyticsPattern)
	return out, nil
}

// Promote seats the oldest pending waitlist entry of eventID.  Candidate
// seats are tried in order: the seat the entry asked for, the seat just
// freed, then any seat.  Returns the seat taken or nil when the waitlist is
// empty or every attempt lost its race.
func (o *Orchestrator) Promote(ctx context.Context, eventID string, freed *int) (*model.Seat, error) {
	entry, err := o.waitlist.PeekNext(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("claim waitlist entry: %w", err)
	}
	if entry == nil {
		return nil, nil
	}
	log := o.log.WithFields(logrus.Fields{"eventId": eventID, "bookingId": entry.BookingID, "waitlistId": entry.ID})

	for _, candidate := range seatCandidates(entry.RequestedSeat, freed) {
		seat, err := o.seats.ReserveSeat(ctx, eventID, candidate, entry.UserID, entry.BookingID)
		if err != nil {
			return nil, fmt.Errorf("reserve seat for waitlist entry %s: %w", entry.ID, err)
		}
		if seat == nil {
			continue
		}
		if err := o.waitlist.Complete(ctx, entry.ID); err != nil {
			return seat, fmt.Errorf("complete waitlist entry %s: %w", entry.ID, err)
		}
		if err := o.recordBooked(ctx, seat, true); err != nil {
			return seat, err
		}
		log.WithField("seat", seat.SeatNumber).Info("waitlist entry promoted")
		return seat, nil
	}

	if o.cfg.RequeueOnLostRace {
		if err := o.waitlist.Requeue(ctx, entry.ID); err != nil {
			return nil, fmt.Errorf("requeue waitlist entry %s: %w", entry.ID, err)
		}
		log.Warn("promotion lost every seat race, entry returned to pending")
		return nil, nil
	}
	log.Warn("promotion lost every seat race, entry left processing")
	return nil, nil
}

// seatCandidates lists the seat numbers to try, most preferred first.  A nil
// element means any seat.
func seatCandidates(requested, freed *int) []*int {
	out := make([]*int, 0, 3)
	if requested != nil {
		out = append(out, requested)
	}
	if freed != nil && (requested == nil || *requested != *freed) {
		out = append(out, freed)
	}
	return append(out, nil)
}

func (o *Orchestrator) recordBooked(ctx context.Context, seat *model.Seat, promoted bool) error {
	meta := map[string]any{"seatNumber": seat.SeatNumber}
	if promoted {
		meta["promoted"] = true
	}
	if err := o.appendHistory(ctx, seat.UserID, seat.EventID, seat.BookingID, model.ActionBook, meta); err != nil {
		return err
	}
	if err := o.notify(ctx, confirmed(seat)); err != nil {
		return err
	}
	o.cache.Invalidate(cache.AnalyticsPattern)
	return nil
}

func (o *Orchestrator) appendHistory(ctx context.Context, userID, eventID, bookingID string, action model.HistoryAction, meta map[string]any) error {
	_, err := o.history.Create(ctx, model.BookingHistory{
		UserID:    userID,
		EventID:   eventID,
		Action:    action,
		BookingID: bookingID,
		Meta:      meta,
	})
	if err != nil {
		return fmt.Errorf("append %s history: %w", action, err)
	}
	return nil
}

func (o *Orchestrator) notify(ctx context.Context, n queue.Notification) error {
	if err := o.pub.Publish(ctx, o.cfg.NotifyQueue, n); err != nil {
		return fmt.Errorf("publish %s notification: %w", n.Type, err)
	}
	return nil
}

func confirmed(seat *model.Seat) queue.Notification {
	n := seat.SeatNumber
	return queue.Notification{
		Type:       queue.NotifyBookConfirmed,
		UserID:     seat.UserID,
		EventID:    seat.EventID,
		BookingID:  seat.BookingID,
		SeatNumber: &n,
	}
}

func intOrNil(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}
