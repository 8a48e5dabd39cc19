package model

import "time"

// WaitlistStatus tracks a waitlist entry through promotion.
type WaitlistStatus string

const (
	WaitlistPending    WaitlistStatus = "pending"
	WaitlistProcessing WaitlistStatus = "processing"
	WaitlistCompleted  WaitlistStatus = "completed"
	WaitlistCancelled  WaitlistStatus = "cancelled"
)

// WaitlistEntry records interest in a seat that was not available when the
// booking intent was processed.  Entries are promoted in CreatedAt order.
//
// Fields:
//  ID            – store-assigned identifier.
//  EventID       – event the user is waiting for.
//  UserID        – waiting user.
//  RequestedSeat – specific seat asked for, nil when any seat will do.
//  BookingID     – id of the original intent, reused on promotion.
//  Status        – pending, processing, completed or cancelled.
//  CreatedAt     – FIFO order key.
//  UpdatedAt     – last transition timestamp.
type WaitlistEntry struct {
	ID            string         `bson:"-" json:"id"`                                            // waitlist.id
	EventID       string         `bson:"eventId" json:"eventId"`                                 // waitlist.event_id
	UserID        string         `bson:"userId" json:"userId"`                                   // waitlist.user_id
	RequestedSeat *int           `bson:"requestedSeat,omitempty" json:"requestedSeat,omitempty"` // waitlist.requested_seat (nullable)
	BookingID     string         `bson:"bookingId" json:"bookingId"`                             // waitlist.booking_id
	Status        WaitlistStatus `bson:"status" json:"status"`                                   // waitlist.status
	CreatedAt     time.Time      `bson:"createdAt" json:"createdAt"`                             // waitlist.created_at
	UpdatedAt     time.Time      `bson:"updatedAt" json:"updatedAt"`                             // waitlist.updated_at
}

// IsActive reports whether the entry can still be cancelled or promoted.
func (w *WaitlistEntry) IsActive() bool {
	return w.Status == WaitlistPending || w.Status == WaitlistProcessing
}
