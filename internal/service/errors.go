// Package service implements the booking workflow: the orchestrator that
// consumes booking intents, the notification dispatcher, the producer used
// by the HTTP layer and the admin operations on events.
package service

import "errors"

var (
	// ErrValidation marks input that can never succeed, such as a malformed
	// id or a seat number outside the event.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is returned when the referenced event does not exist or is
	// no longer active.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when the current state forbids the change.
	ErrConflict = errors.New("conflict")
	// ErrUnknownIntent is returned for a booking message of unknown type.
	ErrUnknownIntent = errors.New("unknown intent")
	// ErrUnavailable wraps broker failures on the producer side.
	ErrUnavailable = errors.New("service unavailable")
)
