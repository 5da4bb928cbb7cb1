package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clubledger/internal/delivery/http/middleware"
	"clubledger/internal/domain"
)

// fakeEventService implements domain.EventService for handler tests.
type fakeEventService struct {
	createResult       *domain.Event
	createErr          error
	cloneResult        *domain.Event
	cloneErr           error
	updateResult       *domain.Event
	updateErr          error
	closeResult        *domain.Event
	closeErr           error
	listResult         []*domain.EventWithOptInCount
	listErr            error
	todaysResult       []*domain.EventWithOptInCount
	todaysErr          error
	optInResult        *domain.Participation
	optInErr           error
	participantsResult []*domain.ParticipationWithUser
	participantsErr    error
	myResult           []*domain.ParticipationWithEvent
	myErr              error

	listCalled   bool
	todaysCalled bool
	lastListMonth *domain.MonthKey
	lastOptInEvent string
	lastOptInUser  string
}

func (f *fakeEventService) CreateEvent(ctx context.Context, name string, price float64, endAt time.Time) (*domain.Event, error) {
	return f.createResult, f.createErr
}

func (f *fakeEventService) CloneEvent(ctx context.Context, sourceEventID string, newEndAt time.Time, name *string, price *float64) (*domain.Event, error) {
	return f.cloneResult, f.cloneErr
}

func (f *fakeEventService) UpdateEvent(ctx context.Context, id string, upd domain.EventUpdate) (*domain.Event, error) {
	return f.updateResult, f.updateErr
}

func (f *fakeEventService) CloseEvent(ctx context.Context, id string) (*domain.Event, error) {
	return f.closeResult, f.closeErr
}

func (f *fakeEventService) ListEvents(ctx context.Context, month *domain.MonthKey) ([]*domain.EventWithOptInCount, error) {
	f.listCalled = true
	f.lastListMonth = month
	return f.listResult, f.listErr
}

func (f *fakeEventService) ListTodaysOpenEvents(ctx context.Context) ([]*domain.EventWithOptInCount, error) {
	f.todaysCalled = true
	return f.todaysResult, f.todaysErr
}

func (f *fakeEventService) OptIn(ctx context.Context, eventID, userID string) (*domain.Participation, error) {
	f.lastOptInEvent = eventID
	f.lastOptInUser = userID
	return f.optInResult, f.optInErr
}

func (f *fakeEventService) ListParticipants(ctx context.Context, eventID string) ([]*domain.ParticipationWithUser, error) {
	return f.participantsResult, f.participantsErr
}

func (f *fakeEventService) MyParticipations(ctx context.Context, userID string) ([]*domain.ParticipationWithEvent, error) {
	return f.myResult, f.myErr
}

func TestEventController_CreateEvent(t *testing.T) {
	endAt := time.Date(2025, 8, 10, 18, 0, 0, 0, time.UTC)

	t.Run("success", func(t *testing.T) {
		svc := &fakeEventService{createResult: &domain.Event{ID: "ev-1", Name: "Dinner", Price: 100, EndAt: endAt}}
		c := NewEventController(testLogger, svc)

		price := 100.0
		raw, err := json.Marshal(CreateEventRequest{Name: "Dinner", Price: &price, EndAt: endAt})
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/events", bytes.NewReader(raw))
		rec := httptest.NewRecorder()
		c.CreateEvent(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("missing price", func(t *testing.T) {
		c := NewEventController(testLogger, &fakeEventService{})
		raw := []byte(`{"name":"Dinner","endAt":"2025-08-10T18:00:00Z"}`)
		req := httptest.NewRequest(http.MethodPost, "/events", bytes.NewReader(raw))
		rec := httptest.NewRecorder()
		c.CreateEvent(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestEventController_CloneEvent(t *testing.T) {
	t.Run("unknown source", func(t *testing.T) {
		c := NewEventController(testLogger, &fakeEventService{cloneErr: domain.ErrNotFound})
		raw := []byte(`{"sourceEventId":"missing","newEndAt":"2025-09-10T18:00:00Z"}`)
		req := httptest.NewRequest(http.MethodPost, "/events/clone", bytes.NewReader(raw))
		rec := httptest.NewRecorder()
		c.CloneEvent(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		resp := decodeResponse(t, rec)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "source event not found", resp.Error.Message)
	})
}

func TestEventController_UpdateEvent(t *testing.T) {
	t.Run("closed event", func(t *testing.T) {
		c := NewEventController(testLogger, &fakeEventService{updateErr: domain.ErrEventClosed})
		raw := []byte(`{"name":"Renamed"}`)
		req := httptest.NewRequest(http.MethodPut, "/events/ev-1", bytes.NewReader(raw))
		req.SetPathValue("eventID", "ev-1")
		rec := httptest.NewRecorder()
		c.UpdateEvent(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		resp := decodeResponse(t, rec)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "cannot update a closed event", resp.Error.Message)
	})
}

func TestEventController_ListEvents(t *testing.T) {
	t.Run("admin sees the full list", func(t *testing.T) {
		svc := &fakeEventService{listResult: []*domain.EventWithOptInCount{}}
		c := NewEventController(testLogger, svc)

		req := httptest.NewRequest(http.MethodGet, "/events", nil)
		req = req.WithContext(middleware.SetRoles(req.Context(), []string{"admin"}))
		rec := httptest.NewRecorder()
		c.ListEvents(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, svc.listCalled)
		assert.False(t, svc.todaysCalled)
		assert.Nil(t, svc.lastListMonth)
	})

	t.Run("admin month filter", func(t *testing.T) {
		svc := &fakeEventService{listResult: []*domain.EventWithOptInCount{}}
		c := NewEventController(testLogger, svc)

		req := httptest.NewRequest(http.MethodGet, "/events?month=2025-08", nil)
		req = req.WithContext(middleware.SetRoles(req.Context(), []string{"admin"}))
		rec := httptest.NewRecorder()
		c.ListEvents(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, svc.lastListMonth)
		assert.Equal(t, "2025-08", svc.lastListMonth.String())
	})

	t.Run("admin malformed month", func(t *testing.T) {
		c := NewEventController(testLogger, &fakeEventService{})
		req := httptest.NewRequest(http.MethodGet, "/events?month=nope", nil)
		req = req.WithContext(middleware.SetRoles(req.Context(), []string{"admin"}))
		rec := httptest.NewRecorder()
		c.ListEvents(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("member sees today's open events", func(t *testing.T) {
		svc := &fakeEventService{todaysResult: []*domain.EventWithOptInCount{}}
		c := NewEventController(testLogger, svc)

		req := httptest.NewRequest(http.MethodGet, "/events", nil)
		req = req.WithContext(middleware.SetRoles(req.Context(), []string{"member"}))
		rec := httptest.NewRecorder()
		c.ListEvents(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, svc.todaysCalled)
		assert.False(t, svc.listCalled)
	})
}

func TestEventController_OptIn(t *testing.T) {
	optIn := func(t *testing.T, svc *fakeEventService, withUser bool) *httptest.ResponseRecorder {
		t.Helper()
		c := NewEventController(testLogger, svc)
		req := httptest.NewRequest(http.MethodPost, "/events/ev-1/optin", nil)
		req.SetPathValue("eventID", "ev-1")
		if withUser {
			req = req.WithContext(middleware.SetUserID(req.Context(), "user-1"))
		}
		rec := httptest.NewRecorder()
		c.OptIn(rec, req)
		return rec
	}

	t.Run("success", func(t *testing.T) {
		svc := &fakeEventService{optInResult: &domain.Participation{ID: "part-1", EventID: "ev-1", UserID: "user-1"}}
		rec := optIn(t, svc, true)
		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "ev-1", svc.lastOptInEvent)
		assert.Equal(t, "user-1", svc.lastOptInUser)
	})

	t.Run("no user in context", func(t *testing.T) {
		rec := optIn(t, &fakeEventService{}, false)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("closed event", func(t *testing.T) {
		rec := optIn(t, &fakeEventService{optInErr: domain.ErrEventClosed}, true)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("double opt-in", func(t *testing.T) {
		rec := optIn(t, &fakeEventService{optInErr: domain.ErrAlreadyOptedIn}, true)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown event", func(t *testing.T) {
		rec := optIn(t, &fakeEventService{optInErr: domain.ErrNotFound}, true)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestUserController_GetMyParticipations(t *testing.T) {
	t.Run("shapes the response rows", func(t *testing.T) {
		endAt := time.Date(2025, 8, 10, 18, 0, 0, 0, time.UTC)
		optedInAt := time.Date(2025, 8, 1, 9, 0, 0, 0, time.UTC)
		svc := &fakeEventService{myResult: []*domain.ParticipationWithEvent{
			{
				Participation: &domain.Participation{ID: "part-1", EventID: "ev-1", UserID: "user-1", OptedInAt: optedInAt},
				Event:         &domain.Event{ID: "ev-1", Name: "Dinner", Price: 100, EndAt: endAt},
			},
		}}
		c := NewUserController(testLogger, svc)

		req := httptest.NewRequest(http.MethodGet, "/users/me/participations", nil)
		req = req.WithContext(middleware.SetUserID(req.Context(), "user-1"))
		rec := httptest.NewRecorder()
		c.GetMyParticipations(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		resp := decodeResponse(t, rec)
		rows, ok := resp.Data.([]any)
		require.True(t, ok)
		require.Len(t, rows, 1)
		row, ok := rows[0].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "ev-1", row["eventId"])
		assert.Equal(t, "Dinner", row["eventName"])
		assert.Equal(t, "2025-08-10", row["eventDate"])
	})

	t.Run("no user in context", func(t *testing.T) {
		c := NewUserController(testLogger, &fakeEventService{})
		req := httptest.NewRequest(http.MethodGet, "/users/me/participations", nil)
		rec := httptest.NewRecorder()
		c.GetMyParticipations(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
