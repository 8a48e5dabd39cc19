package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/seat-booking/internal/model"
	"github.com/iliyamo/seat-booking/internal/queue"
)

type eventFixture struct {
	svc      *EventService
	orc      *Orchestrator
	seats    *memSeats
	waitlist *memWaitlist
	history  *memHistory
	events   *memEvents
	cache    *countingInvalidator
}

func newEventFixture() *eventFixture {
	f := &eventFixture{
		seats:    newMemSeats(),
		waitlist: newMemWaitlist(),
		history:  &memHistory{},
		events:   newMemEvents(),
		cache:    &countingInvalidator{},
	}
	f.svc = NewEventService(f.events, f.seats, f.waitlist, f.history, f.cache, nil)
	f.orc = NewOrchestrator(f.seats, f.waitlist, f.history, f.events, nil, &memPublisher{}, OrchestratorConfig{}, nil)
	return f
}

func (f *eventFixture) create(t *testing.T, seats int) *model.Event {
	t.Helper()
	ev, err := f.svc.CreateEvent(context.Background(), CreateEventInput{
		Name:      "Concert",
		Venue:     "Hall A",
		StartTime: time.Now().Add(24 * time.Hour),
		Seats:     seats,
	})
	require.NoError(t, err)
	return ev
}

func (f *eventFixture) book(t *testing.T, eventID, bookingID, userID string) {
	t.Helper()
	_, err := f.orc.Book(context.Background(), queue.BookIntent{BookingID: bookingID, UserID: userID, EventID: eventID})
	require.NoError(t, err)
}

func TestCreateEvent_CreatesSeats(t *testing.T) {
	f := newEventFixture()
	ev := f.create(t, 5)

	assert.True(t, ev.IsActive)
	assert.Equal(t, 5, ev.Capacity)
	seats, err := f.svc.ListSeats(context.Background(), ev.ID)
	require.NoError(t, err)
	require.Len(t, seats, 5)
	assert.Equal(t, 1, seats[0].SeatNumber)
	assert.Equal(t, 5, seats[4].SeatNumber)
	assert.Equal(t, 1, f.cache.count())
}

func TestCreateEvent_Validation(t *testing.T) {
	f := newEventFixture()
	for _, in := range []CreateEventInput{
		{Name: " ", StartTime: time.Now(), Seats: 1},
		{Name: "x", Seats: 1},
		{Name: "x", StartTime: time.Now(), Seats: -1},
		{Name: "x", StartTime: time.Now(), Seats: 1, Capacity: -3},
	} {
		_, err := f.svc.CreateEvent(context.Background(), in)
		assert.ErrorIs(t, err, ErrValidation)
	}
}

func TestResizeSeats(t *testing.T) {
	f := newEventFixture()
	ev := f.create(t, 3)
	ctx := context.Background()

	got, err := f.svc.ResizeSeats(ctx, ev.ID, 6)
	require.NoError(t, err)
	assert.Equal(t, 6, got.Seats)
	assert.Equal(t, 6, got.Capacity)
	n, _ := f.seats.CountByStatus(ctx, ev.ID, model.SeatAvailable)
	assert.EqualValues(t, 6, n)

	got, err = f.svc.ResizeSeats(ctx, ev.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Seats)
	seats, _ := f.seats.ListSeats(ctx, ev.ID)
	assert.Len(t, seats, 2)

	stored, _ := f.events.FindByID(ctx, ev.ID)
	assert.Equal(t, 2, stored.Seats)
}

func TestResizeSeats_RefusesToDropTakenSeats(t *testing.T) {
	f := newEventFixture()
	ev := f.create(t, 2)
	f.book(t, ev.ID, "a", uuid.NewString())
	f.book(t, ev.ID, "b", uuid.NewString())

	_, err := f.svc.ResizeSeats(context.Background(), ev.ID, 1)
	assert.ErrorIs(t, err, ErrConflict)

	seats, _ := f.seats.ListSeats(context.Background(), ev.ID)
	assert.Len(t, seats, 2)
}

func TestResizeSeats_BookingDuringShrinkRestoresSeats(t *testing.T) {
	f := newEventFixture()
	ev := f.create(t, 4)
	ctx := context.Background()
	f.seats.beforeDelete = func() {
		_, err := f.seats.ReserveSeat(ctx, ev.ID, seatPtr(4), uuid.NewString(), "late")
		require.NoError(t, err)
	}

	_, err := f.svc.ResizeSeats(ctx, ev.ID, 2)
	assert.ErrorIs(t, err, ErrConflict)

	seats, _ := f.seats.ListSeats(ctx, ev.ID)
	require.Len(t, seats, 4)
	assert.Equal(t, model.SeatAvailable, seats[2].Status)
	assert.Equal(t, model.SeatBooked, seats[3].Status)
	assert.Equal(t, "late", seats[3].BookingID)
	stored, _ := f.events.FindByID(ctx, ev.ID)
	assert.Equal(t, 4, stored.Seats)
}

func TestResizeSeats_UnknownEvent(t *testing.T) {
	f := newEventFixture()
	_, err := f.svc.ResizeSeats(context.Background(), uuid.NewString(), 4)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeactivateEvent_CancelsWaitlist(t *testing.T) {
	f := newEventFixture()
	ev := f.create(t, 1)
	f.book(t, ev.ID, "a", uuid.NewString())
	f.book(t, ev.ID, "b", uuid.NewString())
	f.book(t, ev.ID, "c", uuid.NewString())

	n, err := f.svc.DeactivateEvent(context.Background(), ev.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	assert.Equal(t, model.WaitlistCancelled, f.waitlist.byBooking("b").Status)

	_, err = f.svc.GetEvent(context.Background(), ev.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	entries, err := f.svc.ListWaitlist(context.Background(), ev.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestUtilization(t *testing.T) {
	f := newEventFixture()
	ev := f.create(t, 4)
	f.book(t, ev.ID, "a", uuid.NewString())

	u, err := f.svc.Utilization(context.Background(), ev.ID)
	require.NoError(t, err)
	assert.Equal(t, &Utilization{EventID: ev.ID, Total: 4, Booked: 1, Available: 3}, u)

	_, err = f.svc.Utilization(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserHistory(t *testing.T) {
	f := newEventFixture()
	ev := f.create(t, 1)
	user := uuid.NewString()
	f.book(t, ev.ID, "a", user)
	_, err := f.orc.Cancel(context.Background(), queue.CancelIntent{BookingID: "a"})
	require.NoError(t, err)

	recs, err := f.svc.UserHistory(context.Background(), user, 0)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, model.ActionCancel, recs[0].Action)
	assert.Equal(t, model.ActionBook, recs[1].Action)

	recs, err = f.svc.UserHistory(context.Background(), user, 1)
	require.NoError(t, err)
	assert.Len(t, recs, 1)

	_, err = f.svc.UserHistory(context.Background(), "nope", 0)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestListEvents(t *testing.T) {
	f := newEventFixture()
	f.create(t, 1)
	other := f.create(t, 1)
	_, err := f.svc.DeactivateEvent(context.Background(), other.ID)
	require.NoError(t, err)

	events, err := f.svc.ListEvents(context.Background())
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestBook_DeactivatedEventIsRejected(t *testing.T) {
	f := newEventFixture()
	ev := f.create(t, 1)
	_, err := f.svc.DeactivateEvent(context.Background(), ev.ID)
	require.NoError(t, err)

	_, err = f.orc.Book(context.Background(), queue.BookIntent{BookingID: "late", UserID: uuid.NewString(), EventID: ev.ID})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.True(t, queue.IsPermanent(err))
	assert.Empty(t, f.waitlist.byBooking("late").ID)
}
