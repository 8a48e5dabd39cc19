package mongostore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/iliyamo/seat-booking/internal/model"
	"github.com/iliyamo/seat-booking/internal/repository"
)

// waitlistDoc adds the ObjectID key to the shared model.
type waitlistDoc struct {
	ID                  primitive.ObjectID `bson:"_id,omitempty"`
	model.WaitlistEntry `bson:",inline"`
}

func (d waitlistDoc) entry() *model.WaitlistEntry {
	e := d.WaitlistEntry
	e.ID = d.ID.Hex()
	return &e
}

var activeWaitlist = bson.D{{Key: "$in", Value: bson.A{model.WaitlistPending, model.WaitlistProcessing}}}

// fifo orders entries by creation time, ties broken by ObjectID.
var fifo = bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}

// WaitlistStore is the Mongo backed waitlist.
type WaitlistStore struct {
	coll *mongo.Collection
	now  func() time.Time
}

// NewWaitlistStore returns a WaitlistStore on the waitlist collection of db.
func NewWaitlistStore(db *mongo.Database) *WaitlistStore {
	return &WaitlistStore{coll: db.Collection(WaitlistCollection), now: utcNow}
}

// Enqueue appends a pending entry.
func (s *WaitlistStore) Enqueue(ctx context.Context, eventID, userID string, requestedSeat *int, bookingID string) (*model.WaitlistEntry, error) {
	now := s.now()
	doc := waitlistDoc{
		ID: primitive.NewObjectID(),
		WaitlistEntry: model.WaitlistEntry{
			EventID:       eventID,
			UserID:        userID,
			RequestedSeat: requestedSeat,
			BookingID:     bookingID,
			Status:        model.WaitlistPending,
			CreatedAt:     now,
			UpdatedAt:     now,
		},
	}
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return nil, err
	}
	return doc.entry(), nil
}

// PeekNext claims the oldest pending entry by moving it to processing.
func (s *WaitlistStore) PeekNext(ctx context.Context, eventID string) (*model.WaitlistEntry, error) {
	filter := bson.D{
		{Key: "eventId", Value: eventID},
		{Key: "status", Value: model.WaitlistPending},
	}
	return s.claimOne(ctx, filter, model.WaitlistProcessing)
}

// CancelByBookingID cancels the active entry of bookingID and returns it.
func (s *WaitlistStore) CancelByBookingID(ctx context.Context, bookingID string) (*model.WaitlistEntry, error) {
	filter := bson.D{
		{Key: "bookingId", Value: bookingID},
		{Key: "status", Value: activeWaitlist},
	}
	return s.claimOne(ctx, filter, model.WaitlistCancelled)
}

func (s *WaitlistStore) claimOne(ctx context.Context, filter bson.D, to model.WaitlistStatus) (*model.WaitlistEntry, error) {
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "status", Value: to},
		{Key: "updatedAt", Value: s.now()},
	}}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After).SetSort(fifo)

	var doc waitlistDoc
	err := s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc.entry(), nil
}

// Complete marks a processing entry as completed.
func (s *WaitlistStore) Complete(ctx context.Context, id string) error {
	return s.transition(ctx, id, model.WaitlistProcessing, model.WaitlistCompleted)
}

// Requeue returns a processing entry to pending.
func (s *WaitlistStore) Requeue(ctx context.Context, id string) error {
	return s.transition(ctx, id, model.WaitlistProcessing, model.WaitlistPending)
}

func (s *WaitlistStore) transition(ctx context.Context, id string, from, to model.WaitlistStatus) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return repository.ErrNotFound
	}
	res, err := s.coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: oid}, {Key: "status", Value: from}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "status", Value: to},
			{Key: "updatedAt", Value: s.now()},
		}}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// CancelAllForEvent cancels every active entry of eventID.
func (s *WaitlistStore) CancelAllForEvent(ctx context.Context, eventID string) (int64, error) {
	res, err := s.coll.UpdateMany(ctx,
		bson.D{{Key: "eventId", Value: eventID}, {Key: "status", Value: activeWaitlist}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "status", Value: model.WaitlistCancelled},
			{Key: "updatedAt", Value: s.now()},
		}}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// FindActiveByBookingID returns the active entry of bookingID or
// ErrNotFound.
func (s *WaitlistStore) FindActiveByBookingID(ctx context.Context, bookingID string) (*model.WaitlistEntry, error) {
	var doc waitlistDoc
	err := s.coll.FindOne(ctx,
		bson.D{{Key: "bookingId", Value: bookingID}, {Key: "status", Value: activeWaitlist}},
		options.FindOne().SetSort(fifo),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.entry(), nil
}

// ListByEvent returns every entry of eventID in FIFO order.
func (s *WaitlistStore) ListByEvent(ctx context.Context, eventID string) ([]model.WaitlistEntry, error) {
	cur, err := s.coll.Find(ctx, bson.D{{Key: "eventId", Value: eventID}}, options.Find().SetSort(fifo))
	if err != nil {
		return nil, err
	}
	var docs []waitlistDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]model.WaitlistEntry, 0, len(docs))
	for _, d := range docs {
		out = append(out, *d.entry())
	}
	return out, nil
}
