package mongostore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/iliyamo/seat-booking/internal/model"
)

type historyDoc struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty"`
	model.BookingHistory `bson:",inline"`
}

// HistoryStore appends booking history documents.
type HistoryStore struct {
	coll *mongo.Collection
	now  func() time.Time
}

// NewHistoryStore returns a HistoryStore on the booking_history collection.
func NewHistoryStore(db *mongo.Database) *HistoryStore {
	return &HistoryStore{coll: db.Collection(HistoryCollection), now: utcNow}
}

// Create inserts h and returns it with ID and CreatedAt set.
func (s *HistoryStore) Create(ctx context.Context, h model.BookingHistory) (*model.BookingHistory, error) {
	h.CreatedAt = s.now()
	doc := historyDoc{ID: primitive.NewObjectID(), BookingHistory: h}
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return nil, err
	}
	h.ID = doc.ID.Hex()
	return &h, nil
}

// FindByUser returns the newest limit records of userID.
func (s *HistoryStore) FindByUser(ctx context.Context, userID string, limit int) ([]model.BookingHistory, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))
	cur, err := s.coll.Find(ctx, bson.D{{Key: "userId", Value: userID}}, opts)
	if err != nil {
		return nil, err
	}
	var docs []historyDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]model.BookingHistory, 0, len(docs))
	for _, d := range docs {
		h := d.BookingHistory
		h.ID = d.ID.Hex()
		out = append(out, h)
	}
	return out, nil
}
