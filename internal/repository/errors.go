// Package repository holds the MySQL implementations of the seat, waitlist,
// history and event stores, plus the sentinel errors shared with the other
// store backends.  Higher layers use these sentinels to tell a missing row
// from a state conflict, for example refusing to shrink an event below its
// booked seats.
package repository

import "errors"

// ErrNotFound is returned when a lookup by id yields no rows.  Handlers
// translate it into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an update cannot be applied because of the
// current state of the data, such as removing seats that are still booked
// or inserting a second seat for the same booking id.  Handlers translate
// it into an HTTP 409 response.
var ErrConflict = errors.New("conflict")
