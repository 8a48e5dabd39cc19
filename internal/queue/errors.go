package queue

import "errors"

var (
	// ErrNotConnected is returned by Publish when no channel is available
	// even after trying to connect.
	ErrNotConnected = errors.New("broker not connected")
	// ErrClosed is returned once Stop has been called.
	ErrClosed = errors.New("broker client stopped")
	// ErrNacked is returned when the broker refuses a published message.
	ErrNacked = errors.New("broker nacked publish")
)

// permanentError marks a handler failure that redelivery cannot fix.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so that the consumer acknowledges (and dead-letters)
// the message instead of requeueing it.  A nil err stays nil.
func Permanent(err error) error {
	if err == nil || IsPermanent(err) {
		return err
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err, or anything it wraps, was marked with
// Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}
