package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/seat-booking/internal/handler"
	"github.com/iliyamo/seat-booking/internal/model"
	"github.com/iliyamo/seat-booking/internal/service"
	"github.com/iliyamo/seat-booking/internal/utils"
)

const secret = "router-secret"

type stubProducer struct{ cancelled []string }

func (s *stubProducer) EnqueueBooking(context.Context, string, string, *int) (string, error) {
	return "b1", nil
}

func (s *stubProducer) EnqueueCancellation(_ context.Context, id string) error {
	s.cancelled = append(s.cancelled, id)
	return nil
}

type stubEvents struct{}

func (stubEvents) CreateEvent(_ context.Context, in service.CreateEventInput) (*model.Event, error) {
	return &model.Event{ID: "e1", Name: in.Name, Seats: in.Seats}, nil
}
func (stubEvents) ResizeSeats(_ context.Context, id string, seats int) (*model.Event, error) {
	return &model.Event{ID: id, Seats: seats}, nil
}
func (stubEvents) DeactivateEvent(context.Context, string) (int64, error) { return 0, nil }
func (stubEvents) ListWaitlist(context.Context, string) ([]model.WaitlistEntry, error) {
	return nil, nil
}
func (stubEvents) Utilization(_ context.Context, id string) (*service.Utilization, error) {
	return &service.Utilization{EventID: id}, nil
}
func (stubEvents) GetEvent(_ context.Context, id string) (*model.Event, error) {
	return &model.Event{ID: id}, nil
}
func (stubEvents) ListEvents(context.Context) ([]model.Event, error)         { return nil, nil }
func (stubEvents) ListSeats(context.Context, string) ([]model.Seat, error) { return nil, nil }
func (stubEvents) UserHistory(context.Context, string, int) ([]model.BookingHistory, error) {
	return nil, nil
}

type upBroker struct{}

func (upBroker) Healthy() bool { return true }

func newServer(t *testing.T) (*echo.Echo, *stubProducer) {
	t.Helper()
	e := echo.New()
	p := &stubProducer{}
	public := handler.NewPublicHandler(stubEvents{}, nil)
	RegisterRoutes(e, &handler.HealthHandler{Broker: upBroker{}})
	RegisterPublic(e, public)
	RegisterCustomer(e, handler.NewBookingHandler(p, nil), public, secret, nil)
	RegisterAdmin(e, handler.NewAdminHandler(stubEvents{}, nil), secret, nil)
	return e, p
}

func bearer(t *testing.T, role string) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, uuid.NewString(), role, time.Hour)
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

func TestRoutes(t *testing.T) {
	e, p := newServer(t)
	user, admin := bearer(t, "customer"), bearer(t, "admin")

	for _, tc := range []struct {
		name   string
		method string
		path   string
		body   string
		auth   string
		status int
	}{
		{"health", http.MethodGet, "/healthz", "", "", http.StatusOK},
		{"list events", http.MethodGet, "/v1/events", "", "", http.StatusOK},
		{"event", http.MethodGet, "/v1/events/e1", "", "", http.StatusOK},
		{"seats", http.MethodGet, "/v1/events/e1/seats", "", "", http.StatusOK},
		{"book anonymous", http.MethodPost, "/v1/bookings", `{"eventId":"e1"}`, "", http.StatusUnauthorized},
		{"book", http.MethodPost, "/v1/bookings", `{"eventId":"e1"}`, user, http.StatusAccepted},
		{"cancel", http.MethodDelete, "/v1/bookings/b9", "", user, http.StatusAccepted},
		{"history", http.MethodGet, "/v1/me/history", "", user, http.StatusOK},
		{"admin as customer", http.MethodPost, "/v1/admin/events", `{"name":"x","seats":1}`, user, http.StatusForbidden},
		{"create event", http.MethodPost, "/v1/admin/events", `{"name":"x","seats":1}`, admin, http.StatusCreated},
		{"resize", http.MethodPatch, "/v1/admin/events/e1", `{"seats":4}`, admin, http.StatusOK},
		{"deactivate", http.MethodDelete, "/v1/admin/events/e1", "", admin, http.StatusOK},
		{"waitlist", http.MethodGet, "/v1/admin/events/e1/waitlist", "", admin, http.StatusOK},
		{"utilization", http.MethodGet, "/v1/admin/analytics/events/e1/utilization", "", admin, http.StatusOK},
		{"utilization anonymous", http.MethodGet, "/v1/admin/analytics/events/e1/utilization", "", "", http.StatusUnauthorized},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var req *http.Request
			if tc.body != "" {
				req = httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
				req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			} else {
				req = httptest.NewRequest(tc.method, tc.path, nil)
			}
			if tc.auth != "" {
				req.Header.Set(echo.HeaderAuthorization, tc.auth)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
		})
	}
	assert.Equal(t, []string{"b9"}, p.cancelled)
}

func TestAnalyticsCacheWrapsOnlyAnalytics(t *testing.T) {
	e := echo.New()
	hits := 0
	counter := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			hits++
			return next(c)
		}
	}
	RegisterAdmin(e, handler.NewAdminHandler(stubEvents{}, nil), secret, counter)
	admin := bearer(t, "admin")

	for _, path := range []string{"/v1/admin/events/e1/waitlist", "/v1/admin/analytics/events/e1/utilization"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set(echo.HeaderAuthorization, admin)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Equal(t, 1, hits)
}
