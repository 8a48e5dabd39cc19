package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/iliyamo/seat-booking/internal/model"
)

// HistoryRepo appends booking lifecycle records to booking_history.  Rows
// are never updated or deleted.
type HistoryRepo struct {
	db  *sql.DB
	now func() time.Time
}

// NewHistoryRepo constructs a HistoryRepo with the given DB handle.
func NewHistoryRepo(db *sql.DB) *HistoryRepo {
	return &HistoryRepo{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Create inserts h and returns it with ID and CreatedAt populated.
func (r *HistoryRepo) Create(ctx context.Context, h model.BookingHistory) (*model.BookingHistory, error) {
	const q = `INSERT INTO booking_history (user_id, event_id, action, booking_id, meta, created_at)
               VALUES (?, ?, ?, ?, ?, ?)`
	var meta []byte
	if len(h.Meta) > 0 {
		var err error
		if meta, err = json.Marshal(h.Meta); err != nil {
			return nil, fmt.Errorf("encode history meta: %w", err)
		}
	}
	h.CreatedAt = r.now()
	res, err := r.db.ExecContext(ctx, q, h.UserID, h.EventID, string(h.Action), h.BookingID, meta, h.CreatedAt)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	h.ID = strconv.FormatInt(id, 10)
	return &h, nil
}

// FindByUser returns the newest limit records of userID, newest first.
func (r *HistoryRepo) FindByUser(ctx context.Context, userID string, limit int) ([]model.BookingHistory, error) {
	const q = `SELECT id, user_id, event_id, action, booking_id, meta, created_at
               FROM booking_history
               WHERE user_id = ?
               ORDER BY created_at DESC, id DESC
               LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.BookingHistory
	for rows.Next() {
		var (
			h      model.BookingHistory
			id     uint64
			action string
			meta   []byte
		)
		if err := rows.Scan(&id, &h.UserID, &h.EventID, &action, &h.BookingID, &meta, &h.CreatedAt); err != nil {
			return nil, err
		}
		h.ID = strconv.FormatUint(id, 10)
		h.Action = model.HistoryAction(action)
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &h.Meta); err != nil {
				return nil, fmt.Errorf("decode history meta %d: %w", id, err)
			}
		}
		result = append(result, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
