package queue

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeIntent(t *testing.T) {
	seat := 7
	tests := []struct {
		name    string
		body    string
		want    Intent
		wantErr error
	}{
		{
			name: "book any seat",
			body: `{"type":"BOOK","bookingId":"b1","userId":"u1","eventId":"e1"}`,
			want: BookIntent{BookingID: "b1", UserID: "u1", EventID: "e1"},
		},
		{
			name: "book specific seat",
			body: `{"type":"BOOK","bookingId":"b1","userId":"u1","eventId":"e1","seatNumber":7}`,
			want: BookIntent{BookingID: "b1", UserID: "u1", EventID: "e1", SeatNumber: &seat},
		},
		{
			name: "cancel",
			body: `{"type":"CANCEL","bookingId":"b2"}`,
			want: CancelIntent{BookingID: "b2"},
		},
		{
			name:    "unknown type",
			body:    `{"type":"REFUND","bookingId":"b3"}`,
			wantErr: ErrUnknownIntent,
		},
		{
			name:    "fractional seat",
			body:    `{"type":"BOOK","bookingId":"b4","seatNumber":1.5}`,
			wantErr: ErrMalformedMessage,
		},
		{
			name:    "not json",
			body:    `BOOK b5`,
			wantErr: ErrMalformedMessage,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeIntent([]byte(tt.body))
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.True(t, IsPermanent(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeIntent(t *testing.T) {
	seat := 3
	body, err := EncodeIntent(BookIntent{BookingID: "b1", UserID: "u1", EventID: "e1", SeatNumber: &seat})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"BOOK","bookingId":"b1","userId":"u1","eventId":"e1","seatNumber":3}`, string(body))

	body, err = EncodeIntent(CancelIntent{BookingID: "b2"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"CANCEL","bookingId":"b2"}`, string(body))
}

func TestDecodeNotification(t *testing.T) {
	n, err := DecodeNotification([]byte(`{"type":"WAITLISTED","userId":"u1","eventId":"e1","bookingId":"b1"}`))
	require.NoError(t, err)
	assert.Equal(t, NotifyWaitlisted, n.Type)
	assert.Nil(t, n.SeatNumber)

	_, err = DecodeNotification([]byte(`{"type":"SHIPPED"}`))
	assert.ErrorIs(t, err, ErrMalformedMessage)
	assert.True(t, IsPermanent(err))
}

func TestPermanent(t *testing.T) {
	assert.Nil(t, Permanent(nil))

	base := errors.New("boom")
	p := Permanent(base)
	assert.True(t, IsPermanent(p))
	assert.ErrorIs(t, p, base)
	assert.Equal(t, p, Permanent(p), "already permanent errors are not rewrapped")

	wrapped := fmt.Errorf("handle: %w", p)
	assert.True(t, IsPermanent(wrapped))
	assert.False(t, IsPermanent(base))
}
