package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// fakeCalendarAPI emulates the subset of the Calendar v3 REST API used by Client.
type fakeCalendarAPI struct {
	mu       sync.Mutex
	events   map[string]*calendar.Event
	requests []*http.Request
	lastBody map[string]any
	listResp []*calendar.Event
	failWith int
}

func newFakeCalendarAPI() *fakeCalendarAPI {
	return &fakeCalendarAPI{events: make(map[string]*calendar.Event)}
}

func (f *fakeCalendarAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, r)

	if f.failWith != 0 {
		writeAPIError(w, f.failWith)
		return
	}

	const prefix = "/calendars/primary/events"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		writeAPIError(w, http.StatusNotFound)
		return
	}
	id := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, prefix), "/")

	switch {
	case r.Method == http.MethodGet && id == "":
		writeJSON(w, &calendar.Events{Items: f.listResp})
	case r.Method == http.MethodPost && id == "":
		var event calendar.Event
		_ = json.NewDecoder(r.Body).Decode(&event)
		event.Id = "created1"
		f.events[event.Id] = &event
		writeJSON(w, &event)
	case r.Method == http.MethodGet:
		event, ok := f.events[id]
		if !ok {
			writeAPIError(w, http.StatusNotFound)
			return
		}
		writeJSON(w, event)
	case r.Method == http.MethodPut:
		if _, ok := f.events[id]; !ok {
			writeAPIError(w, http.StatusNotFound)
			return
		}
		var event calendar.Event
		_ = json.NewDecoder(r.Body).Decode(&event)
		event.Id = id
		f.events[id] = &event
		writeJSON(w, &event)
	case r.Method == http.MethodDelete:
		if _, ok := f.events[id]; !ok {
			writeAPIError(w, http.StatusGone)
			return
		}
		delete(f.events, id)
		w.WriteHeader(http.StatusNoContent)
	default:
		writeAPIError(w, http.StatusMethodNotAllowed)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": http.StatusText(code),
		},
	})
}

func newTestClient(t *testing.T, api *fakeCalendarAPI) *Client {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	svc, err := calendar.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)
	return NewClientWithService(svc, "primary")
}

func TestClient_ListEvents(t *testing.T) {
	api := newFakeCalendarAPI()
	api.listResp = []*calendar.Event{
		{
			Id:      "a",
			Summary: "Cleaning",
			Start:   &calendar.EventDateTime{DateTime: "2025-01-15T10:00:00Z"},
			End:     &calendar.EventDateTime{DateTime: "2025-01-15T11:00:00Z"},
		},
		{
			Id:      "holiday",
			Summary: "Closed",
			Start:   &calendar.EventDateTime{Date: "2025-01-16"},
			End:     &calendar.EventDateTime{Date: "2025-01-17"},
		},
		{Id: "broken", Summary: "No start"},
	}
	client := newTestClient(t, api)

	window := TimeWindow{
		Start: time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 1, 17, 0, 0, 0, 0, time.UTC),
	}
	events, err := client.ListEvents(context.Background(), window)
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, "a", events[0].ID)
	assert.Equal(t, "Cleaning", events[0].Title)
	assert.True(t, events[0].Start.Equal(time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)))
	assert.True(t, events[0].End.Equal(time.Date(2025, 1, 15, 11, 0, 0, 0, time.UTC)))

	assert.Equal(t, "holiday", events[1].ID)
	assert.True(t, events[1].Start.Equal(time.Date(2025, 1, 16, 0, 0, 0, 0, time.UTC)))
	assert.True(t, events[1].End.Equal(time.Date(2025, 1, 17, 0, 0, 0, 0, time.UTC)))

	require.Len(t, api.requests, 1)
	q := api.requests[0].URL.Query()
	assert.Equal(t, "2025-01-15T09:00:00Z", q.Get("timeMin"))
	assert.Equal(t, "2025-01-17T00:00:00Z", q.Get("timeMax"))
	assert.Equal(t, "true", q.Get("singleEvents"))
	assert.Equal(t, "startTime", q.Get("orderBy"))
}

func TestClient_ListEvents_InvalidWindow(t *testing.T) {
	api := newFakeCalendarAPI()
	client := newTestClient(t, api)

	at := time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)
	_, err := client.ListEvents(context.Background(), TimeWindow{Start: at, End: at})
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Empty(t, api.requests)
}

func TestClient_ErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{name: "forbidden is rejected", status: http.StatusForbidden, want: ErrUpstreamRejected},
		{name: "bad request is rejected", status: http.StatusBadRequest, want: ErrUpstreamRejected},
		{name: "not found", status: http.StatusNotFound, want: ErrNotFound},
	}

	window := TimeWindow{
		Start: time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 1, 15, 17, 0, 0, 0, time.UTC),
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeCalendarAPI()
			api.failWith = tt.status
			client := newTestClient(t, api)

			_, err := client.ListEvents(context.Background(), window)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestClient_InsertEvent(t *testing.T) {
	api := newFakeCalendarAPI()
	client := newTestClient(t, api)

	id, err := client.InsertEvent(context.Background(), AppointmentInput{
		Summary:       "Appointment - Jane Doe",
		Description:   "Service: Cleaning\nPatient: Jane Doe\nPhone: ",
		Start:         time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC),
		End:           time.Date(2025, 1, 15, 11, 0, 0, 0, time.UTC),
		AttendeeEmail: "jane@example.com",
		AttendeeName:  "Jane Doe",
	})
	require.NoError(t, err)
	assert.Equal(t, "created1", id)

	stored := api.events["created1"]
	require.NotNil(t, stored)
	assert.Equal(t, "Appointment - Jane Doe", stored.Summary)
	assert.Equal(t, "2025-01-15T10:00:00Z", stored.Start.DateTime)
	assert.Equal(t, "UTC", stored.Start.TimeZone)
	require.Len(t, stored.Attendees, 1)
	assert.Equal(t, "jane@example.com", stored.Attendees[0].Email)
}

func TestClient_InsertEvent_Validation(t *testing.T) {
	client := newTestClient(t, newFakeCalendarAPI())

	_, err := client.InsertEvent(context.Background(), AppointmentInput{
		Start: time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 1, 15, 11, 0, 0, 0, time.UTC),
	})
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "summary", verr.Field)
}

func TestClient_GetEvent(t *testing.T) {
	api := newFakeCalendarAPI()
	api.events["evt1"] = &calendar.Event{
		Id:          "evt1",
		Summary:     "Appointment - John",
		Description: "Service: Checkup",
		Status:      "confirmed",
		Start:       &calendar.EventDateTime{DateTime: "2025-01-15T14:00:00Z"},
		End:         &calendar.EventDateTime{DateTime: "2025-01-15T15:00:00Z"},
		Attendees:   []*calendar.EventAttendee{{Email: "john@example.com", ResponseStatus: "accepted"}},
	}
	client := newTestClient(t, api)

	event, err := client.GetEvent(context.Background(), "evt1")
	require.NoError(t, err)
	assert.Equal(t, "Appointment - John", event.Title)
	assert.Equal(t, "confirmed", event.Status)
	require.Len(t, event.Attendees, 1)
	assert.Equal(t, "accepted", event.Attendees[0].ResponseStatus)

	_, err = client.GetEvent(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClient_UpdateEvent(t *testing.T) {
	api := newFakeCalendarAPI()
	api.events["evt1"] = &calendar.Event{
		Id:      "evt1",
		Summary: "Appointment - John",
		Start:   &calendar.EventDateTime{DateTime: "2025-01-15T14:00:00Z", TimeZone: "Europe/Berlin"},
		End:     &calendar.EventDateTime{DateTime: "2025-01-15T15:00:00Z", TimeZone: "Europe/Berlin"},
	}
	client := newTestClient(t, api)

	window := TimeWindow{
		Start: time.Date(2025, 1, 20, 9, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 1, 20, 9, 30, 0, 0, time.UTC),
	}
	event, err := client.UpdateEvent(context.Background(), "evt1", window)
	require.NoError(t, err)
	assert.Equal(t, "Appointment - John", event.Title)
	assert.True(t, event.Start.Equal(window.Start))
	assert.True(t, event.End.Equal(window.End))
	assert.Equal(t, "Europe/Berlin", api.events["evt1"].Start.TimeZone)

	_, err = client.UpdateEvent(context.Background(), "missing", window)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClient_DeleteEvent(t *testing.T) {
	api := newFakeCalendarAPI()
	api.events["evt1"] = &calendar.Event{Id: "evt1"}
	client := newTestClient(t, api)

	require.NoError(t, client.DeleteEvent(context.Background(), "evt1"))
	assert.Empty(t, api.events)

	err := client.DeleteEvent(context.Background(), "evt1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNewClient_SendsBearerToken(t *testing.T) {
	api := newFakeCalendarAPI()
	srv := httptest.NewServer(api)
	defer srv.Close()

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test-access-token", TokenType: "Bearer"})
	client, err := NewClient(context.Background(), "", ts, option.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)
	assert.Equal(t, "primary", client.CalendarID())

	window := TimeWindow{
		Start: time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 1, 15, 17, 0, 0, 0, time.UTC),
	}
	_, err = client.ListEvents(context.Background(), window)
	require.NoError(t, err)

	require.Len(t, api.requests, 1)
	assert.Equal(t, "Bearer test-access-token", api.requests[0].Header.Get("Authorization"))
}

func TestNewClient_NilTokenSource(t *testing.T) {
	_, err := NewClient(context.Background(), "primary", nil)
	assert.Error(t, err)
}

func TestNewClientWithHTTPClient_SharesTransport(t *testing.T) {
	api := newFakeCalendarAPI()
	srv := httptest.NewServer(api)
	defer srv.Close()

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "shared-token", TokenType: "Bearer"})
	httpClient, err := NewHTTPClient(context.Background(), ts)
	require.NoError(t, err)

	transport, ok := httpClient.Transport.(*oauth2.Transport)
	require.True(t, ok)
	base, ok := transport.Base.(*http.Transport)
	require.True(t, ok)
	assert.False(t, base.ForceAttemptHTTP2)
	assert.NotZero(t, base.IdleConnTimeout, "idle connections must expire")

	window := TimeWindow{
		Start: time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 1, 15, 17, 0, 0, 0, time.UTC),
	}
	for range 3 {
		client, err := NewClientWithHTTPClient(context.Background(), "primary", httpClient, option.WithEndpoint(srv.URL+"/"))
		require.NoError(t, err)
		_, err = client.ListEvents(context.Background(), window)
		require.NoError(t, err)
	}

	require.Len(t, api.requests, 3)
	for _, r := range api.requests {
		assert.Equal(t, "Bearer shared-token", r.Header.Get("Authorization"))
	}
}

func TestNewClientWithHTTPClient_NilClient(t *testing.T) {
	_, err := NewClientWithHTTPClient(context.Background(), "primary", nil)
	assert.Error(t, err)
}

func TestCloseIdleConnections(t *testing.T) {
	assert.NotPanics(t, func() { CloseIdleConnections(nil) })

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "token"})
	httpClient, err := NewHTTPClient(context.Background(), ts)
	require.NoError(t, err)
	assert.NotPanics(t, func() { CloseIdleConnections(httpClient) })
	assert.NotPanics(t, func() { CloseIdleConnections(&http.Client{}) })
}
