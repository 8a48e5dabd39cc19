package model

import "time"

// Event is a bookable occurrence with a fixed number of numbered seats.
// Seats counts seat documents 1..Seats; Capacity is informational.
//
// Fields:
//  ID        – UUID of the event.
//  Name      – display name.
//  Venue     – where the event takes place.
//  StartTime – when it starts.
//  Capacity  – advertised capacity.
//  Seats     – number of numbered seats.
//  IsActive  – inactive events cannot be booked.
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type Event struct {
	ID        string    `bson:"_id" json:"id"`              // events.id
	Name      string    `bson:"name" json:"name"`           // events.name
	Venue     string    `bson:"venue" json:"venue"`         // events.venue
	StartTime time.Time `bson:"startTime" json:"startTime"` // events.start_time
	Capacity  int       `bson:"capacity" json:"capacity"`   // events.capacity
	Seats     int       `bson:"seats" json:"seats"`         // events.seats
	IsActive  bool      `bson:"isActive" json:"isActive"`   // events.is_active
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"` // events.created_at
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"` // events.updated_at
}
