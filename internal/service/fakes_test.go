package service

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/iliyamo/seat-booking/internal/model"
	"github.com/iliyamo/seat-booking/internal/queue"
	"github.com/iliyamo/seat-booking/internal/repository"
)

// memSeats mimics the conditional updates of the real seat stores.  The
// mutex stands in for the single-row atomicity the databases provide.
type memSeats struct {
	mu         sync.Mutex
	byEvent    map[string][]*model.Seat
	reserveErr error
	reserves   int

	// beforeDelete runs at the start of DeleteAvailableAboveSeat, outside
	// the lock.
	beforeDelete func()
}

func newMemSeats() *memSeats { return &memSeats{byEvent: map[string][]*model.Seat{}} }

func (m *memSeats) ReserveSeat(_ context.Context, eventID string, seatNumber *int, userID, bookingID string) (*model.Seat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reserves++
	if m.reserveErr != nil {
		return nil, m.reserveErr
	}
	for _, seats := range m.byEvent {
		for _, s := range seats {
			if s.BookingID == bookingID {
				return nil, repository.ErrConflict
			}
		}
	}
	for _, s := range m.byEvent[eventID] {
		if s.Status != model.SeatAvailable || (seatNumber != nil && s.SeatNumber != *seatNumber) {
			continue
		}
		s.Status = model.SeatBooked
		s.UserID = userID
		s.BookingID = bookingID
		s.UpdatedAt = time.Now().UTC()
		cp := *s
		return &cp, nil
	}
	return nil, nil
}

func (m *memSeats) ReleaseSeat(_ context.Context, q model.SeatQuery) (*model.Seat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for ev, seats := range m.byEvent {
		if q.EventID != "" && ev != q.EventID {
			continue
		}
		for _, s := range seats {
			if q.SeatNumber != nil && s.SeatNumber != *q.SeatNumber {
				continue
			}
			if q.BookingID != "" && s.BookingID != q.BookingID {
				continue
			}
			if q.Status != "" && s.Status != q.Status {
				continue
			}
			before := *s
			s.Status = model.SeatAvailable
			s.UserID = ""
			s.BookingID = ""
			return &before, nil
		}
	}
	return nil, nil
}

func (m *memSeats) FindByBookingID(_ context.Context, bookingID string) (*model.Seat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, seats := range m.byEvent {
		for _, s := range seats {
			if s.BookingID == bookingID {
				cp := *s
				return &cp, nil
			}
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memSeats) CreateSeatRange(_ context.Context, eventID string, from, to int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	have := map[int]bool{}
	for _, s := range m.byEvent[eventID] {
		have[s.SeatNumber] = true
	}
	for n := from; n <= to; n++ {
		if !have[n] {
			m.byEvent[eventID] = append(m.byEvent[eventID], &model.Seat{EventID: eventID, SeatNumber: n, Status: model.SeatAvailable})
		}
	}
	sort.Slice(m.byEvent[eventID], func(i, j int) bool {
		return m.byEvent[eventID][i].SeatNumber < m.byEvent[eventID][j].SeatNumber
	})
	return nil
}

func (m *memSeats) DeleteAvailableAboveSeat(_ context.Context, eventID string, seatNumber int) (int64, error) {
	if m.beforeDelete != nil {
		m.beforeDelete()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []*model.Seat
	var n int64
	for _, s := range m.byEvent[eventID] {
		if s.SeatNumber > seatNumber && s.Status == model.SeatAvailable {
			n++
			continue
		}
		kept = append(kept, s)
	}
	m.byEvent[eventID] = kept
	return n, nil
}

func (m *memSeats) CountTakenAboveSeat(_ context.Context, eventID string, seatNumber int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, s := range m.byEvent[eventID] {
		if s.SeatNumber > seatNumber && s.Status != model.SeatAvailable {
			n++
		}
	}
	return n, nil
}

func (m *memSeats) CountByStatus(_ context.Context, eventID string, status model.SeatStatus) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, s := range m.byEvent[eventID] {
		if s.Status == status {
			n++
		}
	}
	return n, nil
}

func (m *memSeats) ListSeats(_ context.Context, eventID string) ([]model.Seat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Seat, 0, len(m.byEvent[eventID]))
	for _, s := range m.byEvent[eventID] {
		out = append(out, *s)
	}
	return out, nil
}

func (m *memSeats) seat(eventID string, n int) model.Seat {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.byEvent[eventID] {
		if s.SeatNumber == n {
			return *s
		}
	}
	return model.Seat{}
}

func (m *memSeats) booked(eventID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.byEvent[eventID] {
		if s.Status == model.SeatBooked {
			n++
		}
	}
	return n
}

type memWaitlist struct {
	mu      sync.Mutex
	seq     int
	clock   time.Time
	entries []*model.WaitlistEntry
	peekErr error

	// enqueueErr fails the next Enqueue call once.
	enqueueErr error
}

func newMemWaitlist() *memWaitlist {
	return &memWaitlist{clock: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (m *memWaitlist) Enqueue(_ context.Context, eventID, userID string, requestedSeat *int, bookingID string) (*model.WaitlistEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enqueueErr; err != nil {
		m.enqueueErr = nil
		return nil, err
	}
	m.seq++
	m.clock = m.clock.Add(time.Millisecond)
	e := &model.WaitlistEntry{
		ID:            strconv.Itoa(m.seq),
		EventID:       eventID,
		UserID:        userID,
		RequestedSeat: requestedSeat,
		BookingID:     bookingID,
		Status:        model.WaitlistPending,
		CreatedAt:     m.clock,
		UpdatedAt:     m.clock,
	}
	m.entries = append(m.entries, e)
	cp := *e
	return &cp, nil
}

func (m *memWaitlist) PeekNext(_ context.Context, eventID string) (*model.WaitlistEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.peekErr != nil {
		return nil, m.peekErr
	}
	for _, e := range m.entries {
		if e.EventID == eventID && e.Status == model.WaitlistPending {
			e.Status = model.WaitlistProcessing
			cp := *e
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memWaitlist) transition(id string, from, to model.WaitlistStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.ID == id && e.Status == from {
			e.Status = to
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *memWaitlist) Complete(_ context.Context, id string) error {
	return m.transition(id, model.WaitlistProcessing, model.WaitlistCompleted)
}

func (m *memWaitlist) Requeue(_ context.Context, id string) error {
	return m.transition(id, model.WaitlistProcessing, model.WaitlistPending)
}

func (m *memWaitlist) CancelByBookingID(_ context.Context, bookingID string) (*model.WaitlistEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.BookingID == bookingID && e.IsActive() {
			e.Status = model.WaitlistCancelled
			cp := *e
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memWaitlist) CancelAllForEvent(_ context.Context, eventID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, e := range m.entries {
		if e.EventID == eventID && e.IsActive() {
			e.Status = model.WaitlistCancelled
			n++
		}
	}
	return n, nil
}

func (m *memWaitlist) FindActiveByBookingID(_ context.Context, bookingID string) (*model.WaitlistEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.BookingID == bookingID && e.IsActive() {
			cp := *e
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memWaitlist) ListByEvent(_ context.Context, eventID string) ([]model.WaitlistEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.WaitlistEntry
	for _, e := range m.entries {
		if e.EventID == eventID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *memWaitlist) byBooking(bookingID string) model.WaitlistEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.BookingID == bookingID {
			return *e
		}
	}
	return model.WaitlistEntry{}
}

type memHistory struct {
	mu      sync.Mutex
	records []model.BookingHistory
	err     error
}

func (m *memHistory) Create(_ context.Context, h model.BookingHistory) (*model.BookingHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	h.ID = strconv.Itoa(len(m.records) + 1)
	h.CreatedAt = time.Now().UTC()
	m.records = append(m.records, h)
	return &h, nil
}

func (m *memHistory) FindByUser(_ context.Context, userID string, limit int) ([]model.BookingHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.BookingHistory
	for i := len(m.records) - 1; i >= 0 && len(out) < limit; i-- {
		if m.records[i].UserID == userID {
			out = append(out, m.records[i])
		}
	}
	return out, nil
}

func (m *memHistory) actions(bookingID string) []model.HistoryAction {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.HistoryAction
	for _, r := range m.records {
		if r.BookingID == bookingID {
			out = append(out, r.Action)
		}
	}
	return out
}

func (m *memHistory) last(bookingID string, action model.HistoryAction) model.BookingHistory {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.records) - 1; i >= 0; i-- {
		if m.records[i].BookingID == bookingID && m.records[i].Action == action {
			return m.records[i]
		}
	}
	return model.BookingHistory{}
}

type memEvents struct {
	mu     sync.Mutex
	events map[string]*model.Event
}

func newMemEvents() *memEvents { return &memEvents{events: map[string]*model.Event{}} }

func (m *memEvents) Create(_ context.Context, e *model.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[e.ID]; ok {
		return repository.ErrConflict
	}
	cp := *e
	m.events[e.ID] = &cp
	return nil
}

func (m *memEvents) FindByID(_ context.Context, id string) (*model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *memEvents) FindActiveByID(ctx context.Context, id string) (*model.Event, error) {
	e, err := m.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !e.IsActive {
		return nil, repository.ErrNotFound
	}
	return e, nil
}

func (m *memEvents) ListActive(_ context.Context) ([]model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Event
	for _, e := range m.events {
		if e.IsActive {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (m *memEvents) Update(_ context.Context, e *model.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[e.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *e
	m.events[e.ID] = &cp
	return nil
}

func (m *memEvents) Deactivate(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok {
		return repository.ErrNotFound
	}
	e.IsActive = false
	return nil
}

// memPublisher collects published notifications and raw bodies.
type memPublisher struct {
	mu            sync.Mutex
	notifications []queue.Notification
	raw           [][]byte
	err           error
}

func (m *memPublisher) Publish(_ context.Context, _ string, msg any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if n, ok := msg.(queue.Notification); ok {
		m.notifications = append(m.notifications, n)
	}
	return nil
}

func (m *memPublisher) PublishRaw(_ context.Context, _ string, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.raw = append(m.raw, body)
	return nil
}

func (m *memPublisher) types(bookingID string) []queue.NotificationType {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []queue.NotificationType
	for _, n := range m.notifications {
		if n.BookingID == bookingID {
			out = append(out, n.Type)
		}
	}
	return out
}

type countingInvalidator struct {
	mu       sync.Mutex
	patterns []string
}

func (c *countingInvalidator) Invalidate(pattern string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.patterns = append(c.patterns, pattern)
}

func (c *countingInvalidator) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.patterns)
}
