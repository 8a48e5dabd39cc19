// Package queue defines message payloads exchanged over the message broker
// and the connection-managing client used to publish and consume them.
package queue

import (
	"encoding/json"
	"errors"
	"fmt"
)

// IntentType tags a booking-queue message.
type IntentType string

const (
	IntentBook   IntentType = "BOOK"
	IntentCancel IntentType = "CANCEL"
)

var (
	// ErrMalformedMessage is returned when a message body is not valid JSON
	// or does not match the expected shape.
	ErrMalformedMessage = errors.New("malformed message")
	// ErrUnknownIntent is returned for a booking-queue message whose type
	// tag is neither BOOK nor CANCEL.
	ErrUnknownIntent = errors.New("unknown intent type")
)

// Intent is a booking-queue message.  It is implemented by BookIntent and
// CancelIntent only; callers switch on the concrete type.
type Intent interface {
	Type() IntentType
	CorrelationID() string
}

// BookIntent asks for a seat for UserID at EventID.  SeatNumber is nil when
// any seat will do.
type BookIntent struct {
	BookingID  string
	UserID     string
	EventID    string
	SeatNumber *int
}

func (BookIntent) Type() IntentType        { return IntentBook }
func (b BookIntent) CorrelationID() string { return b.BookingID }

// CancelIntent asks to cancel whatever BookingID currently holds, a seat or
// a waitlist entry.
type CancelIntent struct {
	BookingID string
}

func (CancelIntent) Type() IntentType        { return IntentCancel }
func (c CancelIntent) CorrelationID() string { return c.BookingID }

// intentEnvelope is the wire form shared by both intents.
type intentEnvelope struct {
	Type       IntentType `json:"type"`
	BookingID  string     `json:"bookingId"`
	UserID     string     `json:"userId,omitempty"`
	EventID    string     `json:"eventId,omitempty"`
	SeatNumber *int       `json:"seatNumber,omitempty"`
}

// EncodeIntent renders an intent in its JSON wire form.
func EncodeIntent(i Intent) ([]byte, error) {
	switch v := i.(type) {
	case BookIntent:
		return json.Marshal(intentEnvelope{
			Type:       IntentBook,
			BookingID:  v.BookingID,
			UserID:     v.UserID,
			EventID:    v.EventID,
			SeatNumber: v.SeatNumber,
		})
	case CancelIntent:
		return json.Marshal(intentEnvelope{Type: IntentCancel, BookingID: v.BookingID})
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownIntent, i)
	}
}

// DecodeIntent parses a booking-queue message.  Parse failures and unknown
// type tags are returned as permanent errors so the message is not
// redelivered.
func DecodeIntent(body []byte) (Intent, error) {
	var env intentEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, Permanent(fmt.Errorf("%w: %v", ErrMalformedMessage, err))
	}
	switch env.Type {
	case IntentBook:
		return BookIntent{
			BookingID:  env.BookingID,
			UserID:     env.UserID,
			EventID:    env.EventID,
			SeatNumber: env.SeatNumber,
		}, nil
	case IntentCancel:
		return CancelIntent{BookingID: env.BookingID}, nil
	default:
		return nil, Permanent(fmt.Errorf("%w: %q", ErrUnknownIntent, env.Type))
	}
}

// NotificationType tags a notification-queue message.
type NotificationType string

const (
	NotifyBookConfirmed NotificationType = "BOOK_CONFIRMED"
	NotifyWaitlisted    NotificationType = "WAITLISTED"
	NotifyCancelled     NotificationType = "CANCELLED"
)

// Notification is published by the booking orchestrator whenever an intent
// reaches a user-visible outcome.  SeatNumber is set for confirmed and
// cancelled seats; RequestedSeat for waitlist outcomes.
type Notification struct {
	Type          NotificationType `json:"type"`
	UserID        string           `json:"userId"`
	EventID       string           `json:"eventId"`
	BookingID     string           `json:"bookingId"`
	SeatNumber    *int             `json:"seatNumber,omitempty"`
	RequestedSeat *int             `json:"requestedSeat,omitempty"`
}

// DecodeNotification parses a notification-queue message.
func DecodeNotification(body []byte) (Notification, error) {
	var n Notification
	if err := json.Unmarshal(body, &n); err != nil {
		return Notification{}, Permanent(fmt.Errorf("%w: %v", ErrMalformedMessage, err))
	}
	switch n.Type {
	case NotifyBookConfirmed, NotifyWaitlisted, NotifyCancelled:
		return n, nil
	default:
		return Notification{}, Permanent(fmt.Errorf("%w: notification type %q", ErrMalformedMessage, n.Type))
	}
}
