package repository // repository implements the MySQL seat store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/seat-booking/internal/model"
)

// seatInsertBatch bounds the number of rows per INSERT statement so large
// events do not exceed max_allowed_packet.
const seatInsertBatch = 500

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

const seatColumns = `event_id, seat_number, status, user_id, booking_id, created_at, updated_at`

// SeatRepo provides the atomic seat transitions on the seats table.  Every
// mutation is a single conditional statement (or a single-row locking
// transaction for release), so any number of processes may share it.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo constructs a SeatRepo with the given DB handle.
func NewSeatRepo(db *sql.DB) *SeatRepo {
	return &SeatRepo{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSeat(row rowScanner, extra ...any) (*model.Seat, error) {
	var (
		s         model.Seat
		status    string
		userID    sql.NullString
		bookingID sql.NullString
	)
	dest := append(extra, &s.EventID, &s.SeatNumber, &status, &userID, &bookingID, &s.CreatedAt, &s.UpdatedAt)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	s.Status = model.SeatStatus(status)
	s.UserID = userID.String
	s.BookingID = bookingID.String
	return &s, nil
}

// ReserveSeat books one available seat of eventID for userID under
// bookingID.  When seatNumber is nil the lowest available number is taken.
// It returns (nil, nil) when no seat matches or the reserved row no longer
// carries bookingID when it is read back.
//
// The UPDATE stores the matched row id in LAST_INSERT_ID so the row can be
// read back without a second match.  A booking id that already holds a
// seat yields ErrConflict through the unique index on booking_id.
func (r *SeatRepo) ReserveSeat(ctx context.Context, eventID string, seatNumber *int, userID, bookingID string) (*model.Seat, error) {
	q := `UPDATE seats
          SET status = 'booked', user_id = ?, booking_id = ?, id = LAST_INSERT_ID(id), updated_at = CURRENT_TIMESTAMP
          WHERE event_id = ? AND status = 'available'`
	args := []any{userID, bookingID, eventID}
	if seatNumber != nil {
		q += ` AND seat_number = ?`
		args = append(args, *seatNumber)
	}
	q += ` ORDER BY seat_number LIMIT 1`

	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		if isDuplicate(err) {
			return nil, fmt.Errorf("reserve seat for booking %s: %w", bookingID, ErrConflict)
		}
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	// A concurrent release may have cleared the row between the two
	// statements, so it only counts while it still carries bookingID.
	const sel = `SELECT ` + seatColumns + ` FROM seats WHERE id = ? AND booking_id = ?`
	s, err := scanSeat(r.db.QueryRowContext(ctx, sel, id, bookingID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ReleaseSeat makes the first seat matching q available again and clears
// its owner.  It returns the seat as it was before the update, or
// (nil, nil) when nothing matches.
func (r *SeatRepo) ReleaseSeat(ctx context.Context, q model.SeatQuery) (*model.Seat, error) {
	where, args := seatWhere(q)
	if where == "" {
		return nil, errors.New("release seat: empty query")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	sel := `SELECT id, ` + seatColumns + ` FROM seats WHERE ` + where + ` ORDER BY seat_number LIMIT 1 FOR UPDATE`
	var id uint64
	prev, err := scanSeat(tx.QueryRowContext(ctx, sel, args...), &id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	const upd = `UPDATE seats
                 SET status = 'available', user_id = NULL, booking_id = NULL, updated_at = CURRENT_TIMESTAMP
                 WHERE id = ?`
	if _, err := tx.ExecContext(ctx, upd, id); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return prev, nil
}

// seatWhere renders the non-empty fields of q as an AND-ed condition.
func seatWhere(q model.SeatQuery) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if q.EventID != "" {
		conds = append(conds, "event_id = ?")
		args = append(args, q.EventID)
	}
	if q.SeatNumber != nil {
		conds = append(conds, "seat_number = ?")
		args = append(args, *q.SeatNumber)
	}
	if q.BookingID != "" {
		conds = append(conds, "booking_id = ?")
		args = append(args, q.BookingID)
	}
	if q.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(q.Status))
	}
	return strings.Join(conds, " AND "), args
}

// FindByBookingID returns the seat currently held by bookingID or
// ErrNotFound.
func (r *SeatRepo) FindByBookingID(ctx context.Context, bookingID string) (*model.Seat, error) {
	const q = `SELECT ` + seatColumns + ` FROM seats WHERE booking_id = ?`
	s, err := scanSeat(r.db.QueryRowContext(ctx, q, bookingID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s, nil
}

// CreateSeatRange inserts available seats from..to (inclusive) for eventID.
// Seat numbers that already exist are left untouched.
func (r *SeatRepo) CreateSeatRange(ctx context.Context, eventID string, from, to int) error {
	if from < 1 {
		from = 1
	}
	for start := from; start <= to; start += seatInsertBatch {
		end := start + seatInsertBatch - 1
		if end > to {
			end = to
		}
		query := `INSERT INTO seats (event_id, seat_number, status) VALUES `
		args := make([]any, 0, (end-start+1)*2)
		for n := start; n <= end; n++ {
			if n > start {
				query += ","
			}
			query += "(?, ?, 'available')"
			args = append(args, eventID, n)
		}
		query += ` ON DUPLICATE KEY UPDATE seat_number = seat_number`
		if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert seats %d..%d: %w", start, end, err)
		}
	}
	return nil
}

// DeleteAvailableAboveSeat removes seats numbered above seatNumber that are
// still available and returns how many were deleted.  Taken seats are
// never deleted.
func (r *SeatRepo) DeleteAvailableAboveSeat(ctx context.Context, eventID string, seatNumber int) (int64, error) {
	const q = `DELETE FROM seats WHERE event_id = ? AND seat_number > ? AND status = 'available'`
	res, err := r.db.ExecContext(ctx, q, eventID, seatNumber)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CountTakenAboveSeat counts reserved or booked seats numbered above
// seatNumber.  Used to refuse shrinking an event below its bookings.
func (r *SeatRepo) CountTakenAboveSeat(ctx context.Context, eventID string, seatNumber int) (int64, error) {
	const q = `SELECT COUNT(*) FROM seats WHERE event_id = ? AND seat_number > ? AND status <> 'available'`
	var n int64
	if err := r.db.QueryRowContext(ctx, q, eventID, seatNumber).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// CountByStatus counts the seats of eventID in the given status.
func (r *SeatRepo) CountByStatus(ctx context.Context, eventID string, status model.SeatStatus) (int64, error) {
	const q = `SELECT COUNT(*) FROM seats WHERE event_id = ? AND status = ?`
	var n int64
	if err := r.db.QueryRowContext(ctx, q, eventID, string(status)).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// ListSeats returns every seat of eventID ordered by seat number.
func (r *SeatRepo) ListSeats(ctx context.Context, eventID string) ([]model.Seat, error) {
	const q = `SELECT ` + seatColumns + ` FROM seats WHERE event_id = ? ORDER BY seat_number`
	rows, err := r.db.QueryContext(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Seat
	for rows.Next() {
		s, err := scanSeat(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
