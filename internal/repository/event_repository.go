package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/seat-booking/internal/model"
)

const eventColumns = `id, name, venue, start_time, capacity, seats, is_active, created_at, updated_at`

// EventRepo provides methods to work with events in the database.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo constructs an EventRepo with the given DB handle.
func NewEventRepo(db *sql.DB) *EventRepo {
	return &EventRepo{db: db}
}

func scanEvent(row rowScanner) (*model.Event, error) {
	var e model.Event
	if err := row.Scan(&e.ID, &e.Name, &e.Venue, &e.StartTime, &e.Capacity, &e.Seats, &e.IsActive, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

// Create inserts e.  The caller assigns e.ID.
func (r *EventRepo) Create(ctx context.Context, e *model.Event) error {
	const q = `INSERT INTO events (id, name, venue, start_time, capacity, seats, is_active)
               VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q, e.ID, e.Name, e.Venue, e.StartTime, e.Capacity, e.Seats, e.IsActive)
	if err != nil && isDuplicate(err) {
		return ErrConflict
	}
	return err
}

// FindByID returns the event regardless of its active flag.
func (r *EventRepo) FindByID(ctx context.Context, id string) (*model.Event, error) {
	const q = `SELECT ` + eventColumns + ` FROM events WHERE id = ?`
	return r.findOne(ctx, q, id)
}

// FindActiveByID returns the event only while it is active.
func (r *EventRepo) FindActiveByID(ctx context.Context, id string) (*model.Event, error) {
	const q = `SELECT ` + eventColumns + ` FROM events WHERE id = ? AND is_active = 1`
	return r.findOne(ctx, q, id)
}

func (r *EventRepo) findOne(ctx context.Context, q string, id string) (*model.Event, error) {
	e, err := scanEvent(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

// ListActive returns active events ordered by start time.
func (r *EventRepo) ListActive(ctx context.Context) ([]model.Event, error) {
	const q = `SELECT ` + eventColumns + ` FROM events WHERE is_active = 1 ORDER BY start_time, id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Update overwrites the descriptive fields and seat count of e.
// Returns ErrNotFound when the event does not exist.
func (r *EventRepo) Update(ctx context.Context, e *model.Event) error {
	const q = `UPDATE events
               SET name = ?, venue = ?, start_time = ?, capacity = ?, seats = ?, updated_at = CURRENT_TIMESTAMP
               WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, e.Name, e.Venue, e.StartTime, e.Capacity, e.Seats, e.ID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// Deactivate clears the active flag so no new bookings are accepted.
func (r *EventRepo) Deactivate(ctx context.Context, id string) error {
	const q = `UPDATE events SET is_active = 0, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND is_active = 1`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
