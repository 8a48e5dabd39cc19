// Package mongostore implements the seat, waitlist, history and event stores
// on MongoDB.  Seat and waitlist transitions are single-document
// findOneAndUpdate calls, which MongoDB applies atomically.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/iliyamo/seat-booking/internal/model"
	"github.com/iliyamo/seat-booking/internal/repository"
)

const (
	SeatsCollection    = "seats"
	WaitlistCollection = "waitlist"
	HistoryCollection  = "booking_history"
	EventsCollection   = "events"
)

const (
	seatInsertBatch   = 500
	duplicateKeyError = 11000
)

func utcNow() time.Time { return time.Now().UTC() }

// SeatStore keeps one document per (eventId, seatNumber).
type SeatStore struct {
	coll *mongo.Collection
	now  func() time.Time
}

// NewSeatStore returns a SeatStore on the seats collection of db.
func NewSeatStore(db *mongo.Database) *SeatStore {
	return &SeatStore{coll: db.Collection(SeatsCollection), now: utcNow}
}

// ReserveSeat books the lowest-numbered available seat matching the filter.
// It returns (nil, nil) when no seat matches.
func (s *SeatStore) ReserveSeat(ctx context.Context, eventID string, seatNumber *int, userID, bookingID string) (*model.Seat, error) {
	filter := bson.D{
		{Key: "eventId", Value: eventID},
		{Key: "status", Value: model.SeatAvailable},
	}
	if seatNumber != nil {
		filter = append(filter, bson.E{Key: "seatNumber", Value: *seatNumber})
	}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "status", Value: model.SeatBooked},
		{Key: "userId", Value: userID},
		{Key: "bookingId", Value: bookingID},
		{Key: "updatedAt", Value: s.now()},
	}}}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetSort(bson.D{{Key: "seatNumber", Value: 1}})

	var seat model.Seat
	err := s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&seat)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return nil, nil
	case mongo.IsDuplicateKeyError(err):
		return nil, fmt.Errorf("reserve seat for booking %s: %w", bookingID, repository.ErrConflict)
	case err != nil:
		return nil, err
	}
	return &seat, nil
}

// ReleaseSeat makes the first seat matching q available and unsets its
// owner fields.  The document is returned as it was before the update.
func (s *SeatStore) ReleaseSeat(ctx context.Context, q model.SeatQuery) (*model.Seat, error) {
	filter := seatFilter(q)
	if len(filter) == 0 {
		return nil, errors.New("release seat: empty query")
	}
	update := bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "status", Value: model.SeatAvailable},
			{Key: "updatedAt", Value: s.now()},
		}},
		{Key: "$unset", Value: bson.D{
			{Key: "userId", Value: ""},
			{Key: "bookingId", Value: ""},
		}},
	}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.Before).
		SetSort(bson.D{{Key: "seatNumber", Value: 1}})

	var seat model.Seat
	err := s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&seat)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &seat, nil
}

func seatFilter(q model.SeatQuery) bson.D {
	var f bson.D
	if q.EventID != "" {
		f = append(f, bson.E{Key: "eventId", Value: q.EventID})
	}
	if q.SeatNumber != nil {
		f = append(f, bson.E{Key: "seatNumber", Value: *q.SeatNumber})
	}
	if q.BookingID != "" {
		f = append(f, bson.E{Key: "bookingId", Value: q.BookingID})
	}
	if q.Status != "" {
		f = append(f, bson.E{Key: "status", Value: q.Status})
	}
	return f
}

// FindByBookingID returns the seat held by bookingID or ErrNotFound.
func (s *SeatStore) FindByBookingID(ctx context.Context, bookingID string) (*model.Seat, error) {
	var seat model.Seat
	err := s.coll.FindOne(ctx, bson.D{{Key: "bookingId", Value: bookingID}}).Decode(&seat)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &seat, nil
}

// CreateSeatRange inserts available seats from..to (inclusive).  Inserts are
// unordered so seat numbers that already exist are skipped.
func (s *SeatStore) CreateSeatRange(ctx context.Context, eventID string, from, to int) error {
	if from < 1 {
		from = 1
	}
	now := s.now()
	for start := from; start <= to; start += seatInsertBatch {
		end := start + seatInsertBatch - 1
		if end > to {
			end = to
		}
		docs := make([]any, 0, end-start+1)
		for n := start; n <= end; n++ {
			docs = append(docs, model.Seat{
				EventID:    eventID,
				SeatNumber: n,
				Status:     model.SeatAvailable,
				CreatedAt:  now,
				UpdatedAt:  now,
			})
		}
		_, err := s.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
		if err != nil && !onlyDuplicates(err) {
			return fmt.Errorf("insert seats %d..%d: %w", start, end, err)
		}
	}
	return nil
}

// onlyDuplicates reports whether err is a bulk write failure made of
// duplicate key errors only.
func onlyDuplicates(err error) bool {
	var bwe mongo.BulkWriteException
	if !errors.As(err, &bwe) || bwe.WriteConcernError != nil || len(bwe.WriteErrors) == 0 {
		return false
	}
	for _, we := range bwe.WriteErrors {
		if we.Code != duplicateKeyError {
			return false
		}
	}
	return true
}

// DeleteAvailableAboveSeat deletes available seats numbered above seatNumber.
func (s *SeatStore) DeleteAvailableAboveSeat(ctx context.Context, eventID string, seatNumber int) (int64, error) {
	res, err := s.coll.DeleteMany(ctx, bson.D{
		{Key: "eventId", Value: eventID},
		{Key: "seatNumber", Value: bson.D{{Key: "$gt", Value: seatNumber}}},
		{Key: "status", Value: model.SeatAvailable},
	})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// CountTakenAboveSeat counts seats above seatNumber that are not available.
func (s *SeatStore) CountTakenAboveSeat(ctx context.Context, eventID string, seatNumber int) (int64, error) {
	return s.coll.CountDocuments(ctx, bson.D{
		{Key: "eventId", Value: eventID},
		{Key: "seatNumber", Value: bson.D{{Key: "$gt", Value: seatNumber}}},
		{Key: "status", Value: bson.D{{Key: "$ne", Value: model.SeatAvailable}}},
	})
}

// CountByStatus counts the seats of eventID in status.
func (s *SeatStore) CountByStatus(ctx context.Context, eventID string, status model.SeatStatus) (int64, error) {
	return s.coll.CountDocuments(ctx, bson.D{
		{Key: "eventId", Value: eventID},
		{Key: "status", Value: status},
	})
}

// ListSeats returns the seats of eventID ordered by number.
func (s *SeatStore) ListSeats(ctx context.Context, eventID string) ([]model.Seat, error) {
	cur, err := s.coll.Find(ctx,
		bson.D{{Key: "eventId", Value: eventID}},
		options.Find().SetSort(bson.D{{Key: "seatNumber", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	var seats []model.Seat
	if err := cur.All(ctx, &seats); err != nil {
		return nil, err
	}
	return seats, nil
}
