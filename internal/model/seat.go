package model

import "time"

// SeatStatus is the allocation state of a single seat.
type SeatStatus string

const (
	SeatAvailable SeatStatus = "available"
	SeatReserved  SeatStatus = "reserved"
	SeatBooked    SeatStatus = "booked"
)

// Seat is the unit of allocation.  Exactly one seat exists per event and
// seat number.  UserID and BookingID are set while the seat is not
// available and are empty otherwise.
//
// Fields:
//  EventID    – event the seat belongs to.
//  SeatNumber – 1-based seat number, unique per event.
//  Status     – available, reserved or booked.
//  UserID     – owner of the seat while taken.
//  BookingID  – correlation id of the booking intent holding the seat.
//  CreatedAt  – creation timestamp.
//  UpdatedAt  – last transition timestamp.
type Seat struct {
	EventID    string     `bson:"eventId" json:"eventId"`                         // seats.event_id
	SeatNumber int        `bson:"seatNumber" json:"seatNumber"`                   // seats.seat_number
	Status     SeatStatus `bson:"status" json:"status"`                           // seats.status
	UserID     string     `bson:"userId,omitempty" json:"userId,omitempty"`       // seats.user_id (nullable)
	BookingID  string     `bson:"bookingId,omitempty" json:"bookingId,omitempty"` // seats.booking_id (nullable, unique)
	CreatedAt  time.Time  `bson:"createdAt" json:"createdAt"`                     // seats.created_at
	UpdatedAt  time.Time  `bson:"updatedAt" json:"updatedAt"`                     // seats.updated_at
}

// IsAvailable reports whether the seat can be reserved.
func (s *Seat) IsAvailable() bool {
	return s.Status == SeatAvailable
}

// SeatQuery selects a seat for release.  Empty fields are ignored, so a
// query carrying only BookingID and Status matches the seat that booking
// currently holds.
type SeatQuery struct {
	EventID    string
	SeatNumber *int
	BookingID  string
	Status     SeatStatus
}
