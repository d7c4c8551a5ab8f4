package handlers

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "tripsync/internal/errors"
	"tripsync/internal/itinerary"
	"tripsync/internal/models"
	"tripsync/internal/services"
)

type mockEventService struct {
	createEventFn    func(userID, tripID string, in services.EventInput) (*models.Event, error)
	updateEventFn    func(userID, tripID, eventID string, in services.EventUpdate) (*models.Event, error)
	deleteEventFn    func(userID, tripID, eventID string) error
	reorderEventsFn  func(userID, tripID string, ids []string) ([]models.Event, error)
	exportCalendarFn func(userID, tripID string) (string, error)
}

func (m *mockEventService) CreateEvent(_ context.Context, userID, tripID string, in services.EventInput) (*models.Event, error) {
	if m.createEventFn != nil {
		return m.createEventFn(userID, tripID, in)
	}
	return &models.Event{Base: models.Base{ID: testItemID}, TripID: tripID, Title: in.Title}, nil
}

func (m *mockEventService) ListEvents(_ context.Context, _, tripID string) ([]models.Event, error) {
	return []models.Event{{TripID: tripID, Title: "Flight"}}, nil
}

func (m *mockEventService) GetEvent(_ context.Context, _, tripID, eventID string) (*models.Event, error) {
	return &models.Event{Base: models.Base{ID: eventID}, TripID: tripID}, nil
}

func (m *mockEventService) UpdateEvent(_ context.Context, userID, tripID, eventID string, in services.EventUpdate) (*models.Event, error) {
	if m.updateEventFn != nil {
		return m.updateEventFn(userID, tripID, eventID, in)
	}
	return &models.Event{Base: models.Base{ID: eventID}}, nil
}

func (m *mockEventService) DeleteEvent(_ context.Context, userID, tripID, eventID string) error {
	if m.deleteEventFn != nil {
		return m.deleteEventFn(userID, tripID, eventID)
	}
	return nil
}

func (m *mockEventService) ReorderEvents(_ context.Context, userID, tripID string, ids []string) ([]models.Event, error) {
	if m.reorderEventsFn != nil {
		return m.reorderEventsFn(userID, tripID, ids)
	}
	return []models.Event{}, nil
}

func (m *mockEventService) GetItinerary(_ context.Context, _, tripID string) (*itinerary.Itinerary, error) {
	return &itinerary.Itinerary{TripID: tripID}, nil
}

func (m *mockEventService) ExportCalendar(_ context.Context, userID, tripID string) (string, error) {
	if m.exportCalendarFn != nil {
		return m.exportCalendarFn(userID, tripID)
	}
	return "BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n", nil
}

func setupEventRouter(handler *EventHandler) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectUserID(testUserID))
	auth.POST("/trips/:id/events", handler.CreateEvent)
	auth.GET("/trips/:id/events", handler.ListEvents)
	auth.PUT("/trips/:id/events/reorder", handler.ReorderEvents)
	auth.GET("/trips/:id/events/:eventId", handler.GetEvent)
	auth.PATCH("/trips/:id/events/:eventId", handler.UpdateEvent)
	auth.DELETE("/trips/:id/events/:eventId", handler.DeleteEvent)
	auth.GET("/trips/:id/itinerary", handler.GetItinerary)
	auth.GET("/trips/:id/export/calendar", handler.ExportCalendar)
	return r
}

func TestEventHandler_CreateEvent(t *testing.T) {
	t.Run("returns 201 and maps fields", func(t *testing.T) {
		var got services.EventInput
		svc := &mockEventService{
			createEventFn: func(_, _ string, in services.EventInput) (*models.Event, error) {
				got = in
				return &models.Event{Base: models.Base{ID: testItemID}, Title: in.Title}, nil
			},
		}
		r := setupEventRouter(NewEventHandler(svc))

		rec := doRequest(r, "POST", "/trips/"+testTripID+"/events", `{
			"type":"activity","title":"Walking tour","start_time":"2024-06-02T10:00:00Z",
			"latitude":38.71,"longitude":-9.14,"cost_amount":25.5,"cost_currency":"EUR",
			"recurrence":"FREQ=DAILY;COUNT=3"}`)

		assertStatus(t, rec, http.StatusCreated)
		if got.Type != models.EventTypeActivity || got.Recurrence != "FREQ=DAILY;COUNT=3" {
			t.Errorf("unexpected input %+v", got)
		}
		if got.CostAmount.String() != "25.5" {
			t.Errorf("expected cost 25.5, got %s", got.CostAmount)
		}
		if got.Latitude == nil || *got.Latitude != 38.71 {
			t.Errorf("expected latitude 38.71, got %v", got.Latitude)
		}
		event := parseJSON(t, rec)["event"].(map[string]interface{})
		if event["title"] != "Walking tour" {
			t.Errorf("unexpected event %v", event)
		}
	})

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"unknown type", `{"type":"party","title":"x","start_time":"2024-06-02T10:00:00Z"}`, "type"},
		{"missing title", `{"type":"flight","start_time":"2024-06-02T10:00:00Z"}`, "title"},
		{"latitude out of range", `{"type":"flight","title":"x","start_time":"2024-06-02T10:00:00Z","latitude":91,"longitude":0}`, "latitude"},
		{"bad currency", `{"type":"flight","title":"x","start_time":"2024-06-02T10:00:00Z","cost_currency":"EURO"}`, "cost_currency"},
		{"bad recurrence", `{"type":"flight","title":"x","start_time":"2024-06-02T10:00:00Z","recurrence":"FREQ=SOMETIMES"}`, "recurrence"},
	}
	for _, tc := range tests {
		t.Run("returns 400 on "+tc.name, func(t *testing.T) {
			r := setupEventRouter(NewEventHandler(&mockEventService{}))

			rec := doRequest(r, "POST", "/trips/"+testTripID+"/events", tc.body)

			assertStatus(t, rec, http.StatusBadRequest)
			fields, _ := parseJSON(t, rec)["error"].(map[string]interface{})["fields"].(map[string]interface{})
			if _, ok := fields[tc.field]; !ok {
				t.Errorf("expected field error for %s, got %v", tc.field, fields)
			}
		})
	}

	t.Run("viewer gets 403", func(t *testing.T) {
		svc := &mockEventService{
			createEventFn: func(string, string, services.EventInput) (*models.Event, error) {
				return nil, apperrors.ErrForbidden
			},
		}
		r := setupEventRouter(NewEventHandler(svc))

		rec := doRequest(r, "POST", "/trips/"+testTripID+"/events",
			`{"type":"flight","title":"x","start_time":"2024-06-02T10:00:00Z"}`)

		assertStatus(t, rec, http.StatusForbidden)
	})
}

func TestEventHandler_UpdateAndDelete(t *testing.T) {
	t.Run("partial update", func(t *testing.T) {
		var got services.EventUpdate
		svc := &mockEventService{
			updateEventFn: func(_, _, eventID string, in services.EventUpdate) (*models.Event, error) {
				if eventID != testItemID {
					t.Errorf("unexpected event id %s", eventID)
				}
				got = in
				return &models.Event{Base: models.Base{ID: eventID}}, nil
			},
		}
		r := setupEventRouter(NewEventHandler(svc))

		rec := doRequest(r, "PATCH", "/trips/"+testTripID+"/events/"+testItemID, `{"type":"hotel","order":3}`)

		assertStatus(t, rec, http.StatusOK)
		if got.Type == nil || *got.Type != models.EventTypeHotel || got.Order == nil || *got.Order != 3 {
			t.Errorf("unexpected update %+v", got)
		}
		if got.Title != nil || got.StartTime != nil {
			t.Errorf("expected untouched fields to stay nil, got %+v", got)
		}
	})

	t.Run("bad event id", func(t *testing.T) {
		r := setupEventRouter(NewEventHandler(&mockEventService{}))

		rec := doRequest(r, "DELETE", "/trips/"+testTripID+"/events/nope", "")

		assertStatus(t, rec, http.StatusBadRequest)
	})

	t.Run("missing event", func(t *testing.T) {
		svc := &mockEventService{
			deleteEventFn: func(string, string, string) error { return apperrors.ErrEventNotFound },
		}
		r := setupEventRouter(NewEventHandler(svc))

		rec := doRequest(r, "DELETE", "/trips/"+testTripID+"/events/"+testItemID, "")

		assertStatus(t, rec, http.StatusNotFound)
		assertErrorCode(t, parseJSON(t, rec), "EVENT_NOT_FOUND")
	})
}

func TestEventHandler_ReorderEvents(t *testing.T) {
	t.Run("passes ids in order", func(t *testing.T) {
		var got []string
		svc := &mockEventService{
			reorderEventsFn: func(_, _ string, ids []string) ([]models.Event, error) {
				got = ids
				return []models.Event{}, nil
			},
		}
		r := setupEventRouter(NewEventHandler(svc))

		rec := doRequest(r, "PUT", "/trips/"+testTripID+"/events/reorder",
			`{"event_ids":["`+testItemID+`","`+otherUserID+`"]}`)

		assertStatus(t, rec, http.StatusOK)
		if len(got) != 2 || got[0] != testItemID {
			t.Errorf("unexpected ids %v", got)
		}
	})

	t.Run("rejects empty and malformed lists", func(t *testing.T) {
		r := setupEventRouter(NewEventHandler(&mockEventService{}))

		for _, body := range []string{`{"event_ids":[]}`, `{"event_ids":["x"]}`, `{}`} {
			rec := doRequest(r, "PUT", "/trips/"+testTripID+"/events/reorder", body)
			assertStatus(t, rec, http.StatusBadRequest)
		}
	})
}

func TestEventHandler_ItineraryAndCalendar(t *testing.T) {
	t.Run("itinerary", func(t *testing.T) {
		r := setupEventRouter(NewEventHandler(&mockEventService{}))

		rec := doRequest(r, "GET", "/trips/"+testTripID+"/itinerary", "")

		assertStatus(t, rec, http.StatusOK)
	})

	t.Run("calendar download", func(t *testing.T) {
		r := setupEventRouter(NewEventHandler(&mockEventService{}))

		rec := doRequest(r, "GET", "/trips/"+testTripID+"/export/calendar", "")

		assertStatus(t, rec, http.StatusOK)
		if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
			t.Errorf("expected text/calendar, got %q", ct)
		}
		if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "trip-"+testTripID+".ics") {
			t.Errorf("unexpected Content-Disposition %q", cd)
		}
		if !strings.HasPrefix(rec.Body.String(), "BEGIN:VCALENDAR") {
			t.Errorf("unexpected body %q", rec.Body.String())
		}
	})

	t.Run("calendar errors are JSON", func(t *testing.T) {
		svc := &mockEventService{
			exportCalendarFn: func(string, string) (string, error) { return "", apperrors.ErrTripNotFound },
		}
		r := setupEventRouter(NewEventHandler(svc))

		rec := doRequest(r, "GET", "/trips/"+testTripID+"/export/calendar", "")

		assertStatus(t, rec, http.StatusNotFound)
		assertErrorCode(t, parseJSON(t, rec), "TRIP_NOT_FOUND")
	})
}
