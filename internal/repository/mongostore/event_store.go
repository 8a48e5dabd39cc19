package mongostore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/iliyamo/seat-booking/internal/model"
	"github.com/iliyamo/seat-booking/internal/repository"
)

// EventStore keeps events keyed by their UUID string.
type EventStore struct {
	coll *mongo.Collection
	now  func() time.Time
}

// NewEventStore returns an EventStore on the events collection of db.
func NewEventStore(db *mongo.Database) *EventStore {
	return &EventStore{coll: db.Collection(EventsCollection), now: utcNow}
}

// Create inserts e.  The caller assigns e.ID.
func (s *EventStore) Create(ctx context.Context, e *model.Event) error {
	now := s.now()
	e.CreatedAt, e.UpdatedAt = now, now
	_, err := s.coll.InsertOne(ctx, e)
	if mongo.IsDuplicateKeyError(err) {
		return repository.ErrConflict
	}
	return err
}

// FindByID returns the event regardless of its active flag.
func (s *EventStore) FindByID(ctx context.Context, id string) (*model.Event, error) {
	return s.findOne(ctx, bson.D{{Key: "_id", Value: id}})
}

// FindActiveByID returns the event only while it is active.
func (s *EventStore) FindActiveByID(ctx context.Context, id string) (*model.Event, error) {
	return s.findOne(ctx, bson.D{{Key: "_id", Value: id}, {Key: "isActive", Value: true}})
}

func (s *EventStore) findOne(ctx context.Context, filter bson.D) (*model.Event, error) {
	var e model.Event
	err := s.coll.FindOne(ctx, filter).Decode(&e)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListActive returns active events ordered by start time.
func (s *EventStore) ListActive(ctx context.Context) ([]model.Event, error) {
	cur, err := s.coll.Find(ctx,
		bson.D{{Key: "isActive", Value: true}},
		options.Find().SetSort(bson.D{{Key: "startTime", Value: 1}, {Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	var events []model.Event
	if err := cur.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// Update overwrites the descriptive fields and seat count of e.
func (s *EventStore) Update(ctx context.Context, e *model.Event) error {
	e.UpdatedAt = s.now()
	res, err := s.coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: e.ID}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "name", Value: e.Name},
			{Key: "venue", Value: e.Venue},
			{Key: "startTime", Value: e.StartTime},
			{Key: "capacity", Value: e.Capacity},
			{Key: "seats", Value: e.Seats},
			{Key: "updatedAt", Value: e.UpdatedAt},
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

// Deactivate clears the active flag.
func (s *EventStore) Deactivate(ctx context.Context, id string) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id}, {Key: "isActive", Value: true}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "isActive", Value: false},
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
