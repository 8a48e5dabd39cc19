package mongostore

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the indexes the stores rely on.  The unique
// (eventId, seatNumber) index keeps one document per seat; the partial
// unique bookingId index stops one booking from holding two seats.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		SeatsCollection: {
			{
				Keys:    bson.D{{Key: "eventId", Value: 1}, {Key: "seatNumber", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("uq_event_seat"),
			},
			{
				Keys: bson.D{{Key: "bookingId", Value: 1}},
				Options: options.Index().
					SetUnique(true).
					SetName("uq_booking").
					SetPartialFilterExpression(bson.D{{Key: "bookingId", Value: bson.D{{Key: "$exists", Value: true}}}}),
			},
			{
				Keys:    bson.D{{Key: "eventId", Value: 1}, {Key: "status", Value: 1}, {Key: "seatNumber", Value: 1}},
				Options: options.Index().SetName("idx_event_status_seat"),
			},
		},
		WaitlistCollection: {
			{
				Keys:    bson.D{{Key: "eventId", Value: 1}, {Key: "status", Value: 1}, {Key: "createdAt", Value: 1}},
				Options: options.Index().SetName("idx_event_status_created"),
			},
			{
				Keys:    bson.D{{Key: "bookingId", Value: 1}},
				Options: options.Index().SetName("idx_booking"),
			},
		},
		HistoryCollection: {
			{
				Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
				Options: options.Index().SetName("idx_user_created"),
			},
			{
				Keys:    bson.D{{Key: "bookingId", Value: 1}},
				Options: options.Index().SetName("idx_booking"),
			},
		},
		EventsCollection: {
			{
				Keys:    bson.D{{Key: "isActive", Value: 1}, {Key: "startTime", Value: 1}},
				Options: options.Index().SetName("idx_active_start"),
			},
		},
	}
	for coll, models := range specs {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
	}
	return nil
}
