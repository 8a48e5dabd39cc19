package model

import "time"

// HistoryAction names a booking lifecycle step.
type HistoryAction string

const (
	ActionBook     HistoryAction = "book"
	ActionCancel   HistoryAction = "cancel"
	ActionWaitlist HistoryAction = "waitlist"
	ActionNotify   HistoryAction = "notify"
)

// BookingHistory is an append-only audit record.  Records are never
// updated or deleted.
type BookingHistory struct {
	ID        string         `bson:"-" json:"id"`
	UserID    string         `bson:"userId" json:"userId"`
	EventID   string         `bson:"eventId" json:"eventId"`
	Action    HistoryAction  `bson:"action" json:"action"`
	BookingID string         `bson:"bookingId" json:"bookingId"`
	Meta      map[string]any `bson:"meta,omitempty" json:"meta,omitempty"`
	CreatedAt time.Time      `bson:"createdAt" json:"createdAt"`
}
