package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema creates the tables used by the MySQL stores.  Statements are
// idempotent and run in order on every start.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS events (
        id         CHAR(36)     NOT NULL PRIMARY KEY,
        name       VARCHAR(255) NOT NULL,
        venue      VARCHAR(255) NOT NULL DEFAULT '',
        start_time DATETIME     NOT NULL,
        capacity   INT          NOT NULL DEFAULT 0,
        seats      INT          NOT NULL DEFAULT 0,
        is_active  TINYINT(1)   NOT NULL DEFAULT 1,
        created_at DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
        updated_at DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
        KEY idx_events_active_start (is_active, start_time)
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS seats (
        id          BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
        event_id    CHAR(36)        NOT NULL,
        seat_number INT             NOT NULL,
        status      ENUM('available','reserved','booked') NOT NULL DEFAULT 'available',
        user_id     CHAR(36)        NULL,
        booking_id  VARCHAR(64)     NULL,
        created_at  DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
        updated_at  DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
        UNIQUE KEY uq_seats_event_number (event_id, seat_number),
        UNIQUE KEY uq_seats_booking (booking_id),
        KEY idx_seats_event_status (event_id, status, seat_number)
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS waitlist (
        id             BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
        event_id       CHAR(36)        NOT NULL,
        user_id        CHAR(36)        NOT NULL,
        requested_seat INT             NULL,
        booking_id     VARCHAR(64)     NOT NULL,
        status         ENUM('pending','processing','completed','cancelled') NOT NULL DEFAULT 'pending',
        created_at     DATETIME(6)     NOT NULL,
        updated_at     DATETIME(6)     NOT NULL,
        KEY idx_waitlist_event_status (event_id, status, created_at, id),
        KEY idx_waitlist_booking (booking_id, status)
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS booking_history (
        id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
        user_id    CHAR(36)        NOT NULL,
        event_id   CHAR(36)        NOT NULL,
        action     ENUM('book','cancel','waitlist','notify') NOT NULL,
        booking_id VARCHAR(64)     NOT NULL,
        meta       JSON            NULL,
        created_at DATETIME(6)     NOT NULL,
        KEY idx_history_user_created (user_id, created_at),
        KEY idx_history_booking (booking_id)
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate applies the schema.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}
