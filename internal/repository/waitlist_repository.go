package repository

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/iliyamo/seat-booking/internal/model"
)

const waitlistColumns = `id, event_id, user_id, requested_seat, booking_id, status, created_at, updated_at`

// WaitlistRepo is the per-event FIFO of booking intents that found no seat.
// Claiming the head (PeekNext) is a single conditional UPDATE, so two
// concurrent promotions never claim the same entry.
type WaitlistRepo struct {
	db  *sql.DB
	now func() time.Time
}

// NewWaitlistRepo constructs a WaitlistRepo with the given DB handle.
func NewWaitlistRepo(db *sql.DB) *WaitlistRepo {
	return &WaitlistRepo{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func scanWaitlist(row rowScanner) (*model.WaitlistEntry, error) {
	var (
		w      model.WaitlistEntry
		id     uint64
		seat   sql.NullInt64
		status string
	)
	if err := row.Scan(&id, &w.EventID, &w.UserID, &seat, &w.BookingID, &status, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, err
	}
	w.ID = strconv.FormatUint(id, 10)
	w.Status = model.WaitlistStatus(status)
	if seat.Valid {
		n := int(seat.Int64)
		w.RequestedSeat = &n
	}
	return &w, nil
}

func parseWaitlistID(id string) (uint64, error) {
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return 0, ErrNotFound
	}
	return n, nil
}

// Enqueue appends a pending entry.  CreatedAt has microsecond precision and
// ties are broken by id.
func (r *WaitlistRepo) Enqueue(ctx context.Context, eventID, userID string, requestedSeat *int, bookingID string) (*model.WaitlistEntry, error) {
	const q = `INSERT INTO waitlist (event_id, user_id, requested_seat, booking_id, status, created_at, updated_at)
               VALUES (?, ?, ?, ?, 'pending', ?, ?)`
	now := r.now()
	var seat sql.NullInt64
	if requestedSeat != nil {
		seat = sql.NullInt64{Int64: int64(*requestedSeat), Valid: true}
	}
	res, err := r.db.ExecContext(ctx, q, eventID, userID, seat, bookingID, now, now)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &model.WaitlistEntry{
		ID:            strconv.FormatInt(id, 10),
		EventID:       eventID,
		UserID:        userID,
		RequestedSeat: requestedSeat,
		BookingID:     bookingID,
		Status:        model.WaitlistPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// PeekNext claims the oldest pending entry of eventID by moving it to
// processing.  It returns (nil, nil) when the waitlist is empty.
func (r *WaitlistRepo) PeekNext(ctx context.Context, eventID string) (*model.WaitlistEntry, error) {
	const q = `UPDATE waitlist
               SET status = 'processing', id = LAST_INSERT_ID(id), updated_at = ?
               WHERE event_id = ? AND status = 'pending'
               ORDER BY created_at, id LIMIT 1`
	return r.claimOne(ctx, q, r.now(), eventID)
}

// CancelByBookingID cancels the pending or processing entry of bookingID
// and returns it in its cancelled state, or (nil, nil) when none exists.
func (r *WaitlistRepo) CancelByBookingID(ctx context.Context, bookingID string) (*model.WaitlistEntry, error) {
	const q = `UPDATE waitlist
               SET status = 'cancelled', id = LAST_INSERT_ID(id), updated_at = ?
               WHERE booking_id = ? AND status IN ('pending', 'processing')
               ORDER BY created_at, id LIMIT 1`
	return r.claimOne(ctx, q, r.now(), bookingID)
}

// claimOne runs a single-row UPDATE that records the row id through
// LAST_INSERT_ID and reads the updated row back.
func (r *WaitlistRepo) claimOne(ctx context.Context, q string, args ...any) (*model.WaitlistEntry, error) {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	const sel = `SELECT ` + waitlistColumns + ` FROM waitlist WHERE id = ?`
	return scanWaitlist(r.db.QueryRowContext(ctx, sel, id))
}

// Complete marks a processing entry as completed.  It returns ErrNotFound
// when the entry is not processing anymore.
func (r *WaitlistRepo) Complete(ctx context.Context, id string) error {
	return r.transition(ctx, id, model.WaitlistProcessing, model.WaitlistCompleted)
}

// Requeue returns a processing entry to pending so a later promotion can
// pick it up again.
func (r *WaitlistRepo) Requeue(ctx context.Context, id string) error {
	return r.transition(ctx, id, model.WaitlistProcessing, model.WaitlistPending)
}

func (r *WaitlistRepo) transition(ctx context.Context, id string, from, to model.WaitlistStatus) error {
	n, err := parseWaitlistID(id)
	if err != nil {
		return err
	}
	const q = `UPDATE waitlist SET status = ?, updated_at = ? WHERE id = ? AND status = ?`
	res, err := r.db.ExecContext(ctx, q, string(to), r.now(), n, string(from))
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}

// CancelAllForEvent cancels every pending or processing entry of eventID.
func (r *WaitlistRepo) CancelAllForEvent(ctx context.Context, eventID string) (int64, error) {
	const q = `UPDATE waitlist SET status = 'cancelled', updated_at = ?
               WHERE event_id = ? AND status IN ('pending', 'processing')`
	res, err := r.db.ExecContext(ctx, q, r.now(), eventID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// FindActiveByBookingID returns the pending or processing entry of
// bookingID, or ErrNotFound.
func (r *WaitlistRepo) FindActiveByBookingID(ctx context.Context, bookingID string) (*model.WaitlistEntry, error) {
	const q = `SELECT ` + waitlistColumns + ` FROM waitlist
               WHERE booking_id = ? AND status IN ('pending', 'processing')
               ORDER BY created_at, id LIMIT 1`
	w, err := scanWaitlist(r.db.QueryRowContext(ctx, q, bookingID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return w, nil
}

// ListByEvent returns every entry of eventID in FIFO order.
func (r *WaitlistRepo) ListByEvent(ctx context.Context, eventID string) ([]model.WaitlistEntry, error) {
	const q = `SELECT ` + waitlistColumns + ` FROM waitlist WHERE event_id = ? ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.WaitlistEntry
	for rows.Next() {
		w, err := scanWaitlist(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
