package mongostore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/iliyamo/seat-booking/internal/model"
	"github.com/iliyamo/seat-booking/internal/repository"
)

func TestWaitlistStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	defer mt.Close()
	ctx := context.Background()
	oid := primitive.NewObjectID()
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mt.Run("enqueue", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		seat := 3

		w, err := NewWaitlistStore(mt.DB).Enqueue(ctx, "e1", "u1", &seat, "b1")
		require.NoError(mt, err)
		assert.Equal(mt, model.WaitlistPending, w.Status)
		assert.Len(mt, w.ID, 24)
		assert.Equal(mt, 3, *w.RequestedSeat)
	})

	mt.Run("peek next claims entry", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{
			{Key: "_id", Value: oid},
			{Key: "eventId", Value: "e1"},
			{Key: "userId", Value: "u3"},
			{Key: "bookingId", Value: "b3"},
			{Key: "status", Value: "processing"},
			{Key: "createdAt", Value: created},
		}}))

		w, err := NewWaitlistStore(mt.DB).PeekNext(ctx, "e1")
		require.NoError(mt, err)
		require.NotNil(mt, w)
		assert.Equal(mt, oid.Hex(), w.ID)
		assert.Equal(mt, model.WaitlistProcessing, w.Status)
		assert.Nil(mt, w.RequestedSeat)
		assert.True(mt, w.CreatedAt.Equal(created))
	})

	mt.Run("peek next on empty waitlist", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}))

		w, err := NewWaitlistStore(mt.DB).PeekNext(ctx, "e1")
		require.NoError(mt, err)
		assert.Nil(mt, w)
	})

	mt.Run("complete", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))
		require.NoError(mt, NewWaitlistStore(mt.DB).Complete(ctx, oid.Hex()))
	})

	mt.Run("complete on entry no longer processing", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}))
		assert.ErrorIs(mt, NewWaitlistStore(mt.DB).Complete(ctx, oid.Hex()), repository.ErrNotFound)
	})

	mt.Run("complete with malformed id", func(mt *mtest.T) {
		assert.ErrorIs(mt, NewWaitlistStore(mt.DB).Complete(ctx, "17"), repository.ErrNotFound)
	})

	mt.Run("cancel all for event", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 2}, bson.E{Key: "nModified", Value: 2}))

		n, err := NewWaitlistStore(mt.DB).CancelAllForEvent(ctx, "e1")
		require.NoError(mt, err)
		assert.EqualValues(mt, 2, n)
	})

	mt.Run("find active by booking id missing", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.waitlist", mtest.FirstBatch))

		_, err := NewWaitlistStore(mt.DB).FindActiveByBookingID(ctx, "b9")
		assert.ErrorIs(mt, err, repository.ErrNotFound)
	})

	mt.Run("list by event", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.waitlist", mtest.FirstBatch,
			bson.D{{Key: "_id", Value: oid}, {Key: "eventId", Value: "e1"}, {Key: "status", Value: "pending"}, {Key: "requestedSeat", Value: 2}},
		))

		list, err := NewWaitlistStore(mt.DB).ListByEvent(ctx, "e1")
		require.NoError(mt, err)
		require.Len(mt, list, 1)
		assert.Equal(mt, oid.Hex(), list[0].ID)
		assert.Equal(mt, 2, *list[0].RequestedSeat)
	})
}
