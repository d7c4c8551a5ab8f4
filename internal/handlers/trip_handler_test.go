package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "tripsync/internal/errors"
	"tripsync/internal/models"
	"tripsync/internal/pagination"
	"tripsync/internal/services"
)

// --- mock service ---

type mockTripService struct {
	createTripFn    func(userID string, in services.TripInput) (*models.Trip, error)
	listTripsFn     func(userID string, page pagination.PageRequest, archived *bool) (*pagination.PageResponse[models.Trip], error)
	getTripFn       func(userID, tripID string) (*models.Trip, error)
	updateTripFn    func(userID, tripID string, in services.TripUpdate) (*models.Trip, error)
	setArchivedFn   func(userID, tripID string, archived bool) (*models.Trip, error)
	deleteTripFn    func(userID, tripID string) error
	duplicateTripFn func(requesterID, tripID string, startDate *time.Time) (*models.Trip, error)
}

func (m *mockTripService) CreateTrip(_ context.Context, userID string, in services.TripInput) (*models.Trip, error) {
	if m.createTripFn != nil {
		return m.createTripFn(userID, in)
	}
	return &models.Trip{Base: models.Base{ID: testTripID}, Name: in.Name}, nil
}

func (m *mockTripService) ListTrips(_ context.Context, userID string, page pagination.PageRequest, archived *bool) (*pagination.PageResponse[models.Trip], error) {
	if m.listTripsFn != nil {
		return m.listTripsFn(userID, page, archived)
	}
	resp := pagination.NewPageResponse([]models.Trip{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockTripService) GetTrip(_ context.Context, userID, tripID string) (*models.Trip, error) {
	if m.getTripFn != nil {
		return m.getTripFn(userID, tripID)
	}
	return &models.Trip{Base: models.Base{ID: tripID}}, nil
}

func (m *mockTripService) UpdateTrip(_ context.Context, userID, tripID string, in services.TripUpdate) (*models.Trip, error) {
	if m.updateTripFn != nil {
		return m.updateTripFn(userID, tripID, in)
	}
	return &models.Trip{Base: models.Base{ID: tripID}}, nil
}

func (m *mockTripService) SetArchived(_ context.Context, userID, tripID string, archived bool) (*models.Trip, error) {
	if m.setArchivedFn != nil {
		return m.setArchivedFn(userID, tripID, archived)
	}
	return &models.Trip{Base: models.Base{ID: tripID}, IsArchived: archived}, nil
}

func (m *mockTripService) DeleteTrip(_ context.Context, userID, tripID string) error {
	if m.deleteTripFn != nil {
		return m.deleteTripFn(userID, tripID)
	}
	return nil
}

func (m *mockTripService) DuplicateTrip(_ context.Context, requesterID, tripID string, startDate *time.Time) (*models.Trip, error) {
	if m.duplicateTripFn != nil {
		return m.duplicateTripFn(requesterID, tripID, startDate)
	}
	return &models.Trip{Base: models.Base{ID: testItemID}}, nil
}

func setupTripRouter(handler *TripHandler) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectUserID(testUserID))
	auth.POST("/trips", handler.CreateTrip)
	auth.GET("/trips", handler.ListTrips)
	auth.GET("/trips/:id", handler.GetTrip)
	auth.PATCH("/trips/:id", handler.UpdateTrip)
	auth.PATCH("/trips/:id/archive", handler.ArchiveTrip)
	auth.DELETE("/trips/:id", handler.DeleteTrip)
	auth.POST("/trips/:id/duplicate", handler.DuplicateTrip)
	return r
}

// --- tests ---

func TestTripHandler_CreateTrip(t *testing.T) {
	t.Run("returns 201 and parses dates", func(t *testing.T) {
		var got services.TripInput
		svc := &mockTripService{
			createTripFn: func(userID string, in services.TripInput) (*models.Trip, error) {
				if userID != testUserID {
					t.Errorf("expected user %s, got %s", testUserID, userID)
				}
				got = in
				return &models.Trip{Base: models.Base{ID: testTripID}, Name: in.Name}, nil
			},
		}
		audit := &mockAuditService{}
		r := setupTripRouter(NewTripHandler(svc, audit))

		rec := doRequest(r, "POST", "/trips",
			`{"name":"Lisbon","start_date":"2024-06-01","end_date":"2024-06-05T00:00:00Z","destinations":["Lisbon","Porto"],"visibility":"shared"}`)

		assertStatus(t, rec, http.StatusCreated)
		if !got.StartDate.Equal(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("unexpected start date %v", got.StartDate)
		}
		if got.Visibility != models.TripVisibilityShared || len(got.Destinations) != 2 {
			t.Errorf("unexpected input %+v", got)
		}
		trip := parseJSON(t, rec)["trip"].(map[string]interface{})
		if trip["id"] != testTripID {
			t.Errorf("expected trip id %s, got %v", testTripID, trip["id"])
		}
		if a := audit.actions(); len(a) != 1 || a[0] != "CREATE_TRIP" {
			t.Errorf("expected CREATE_TRIP audit entry, got %v", a)
		}
	})

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"missing name", `{"start_date":"2024-06-01","end_date":"2024-06-05"}`, "name"},
		{"bad visibility", `{"name":"x","start_date":"2024-06-01","end_date":"2024-06-05","visibility":"secret"}`, "visibility"},
		{"bad start date", `{"name":"x","start_date":"June 1st","end_date":"2024-06-05"}`, "start_date"},
		{"bad end date", `{"name":"x","start_date":"2024-06-01","end_date":"2024/06/05"}`, "end_date"},
	}
	for _, tc := range tests {
		t.Run("returns 400 on "+tc.name, func(t *testing.T) {
			r := setupTripRouter(NewTripHandler(&mockTripService{}, &mockAuditService{}))

			rec := doRequest(r, "POST", "/trips", tc.body)

			assertStatus(t, rec, http.StatusBadRequest)
			result := parseJSON(t, rec)
			assertErrorCode(t, result, "INVALID_INPUT")
			fields, _ := result["error"].(map[string]interface{})["fields"].(map[string]interface{})
			if _, ok := fields[tc.field]; !ok {
				t.Errorf("expected field error for %s, got %v", tc.field, fields)
			}
		})
	}

	t.Run("passes through invalid date range", func(t *testing.T) {
		svc := &mockTripService{
			createTripFn: func(string, services.TripInput) (*models.Trip, error) {
				return nil, apperrors.ErrInvalidDateRange
			},
		}
		r := setupTripRouter(NewTripHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/trips", `{"name":"x","start_date":"2024-06-05","end_date":"2024-06-01"}`)

		assertStatus(t, rec, http.StatusBadRequest)
		assertErrorCode(t, parseJSON(t, rec), "INVALID_DATE_RANGE")
	})
}

func TestTripHandler_ListTrips(t *testing.T) {
	t.Run("binds pagination and archived filter", func(t *testing.T) {
		var gotPage pagination.PageRequest
		var gotArchived *bool
		svc := &mockTripService{
			listTripsFn: func(_ string, page pagination.PageRequest, archived *bool) (*pagination.PageResponse[models.Trip], error) {
				gotPage, gotArchived = page, archived
				resp := pagination.NewPageResponse([]models.Trip{{Name: "a"}}, 2, 5, 6)
				return &resp, nil
			},
		}
		r := setupTripRouter(NewTripHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/trips?page=2&page_size=5&sort=-start_date&archived=true", "")

		assertStatus(t, rec, http.StatusOK)
		if gotPage.Page != 2 || gotPage.PageSize != 5 || gotPage.Sort != "-start_date" {
			t.Errorf("unexpected page request %+v", gotPage)
		}
		if gotArchived == nil || !*gotArchived {
			t.Errorf("expected archived=true filter, got %v", gotArchived)
		}
		result := parseJSON(t, rec)
		if result["total_pages"] != float64(2) {
			t.Errorf("expected 2 total pages, got %v", result["total_pages"])
		}
	})

	t.Run("returns 400 on bad archived filter", func(t *testing.T) {
		r := setupTripRouter(NewTripHandler(&mockTripService{}, &mockAuditService{}))

		rec := doRequest(r, "GET", "/trips?archived=maybe", "")

		assertStatus(t, rec, http.StatusBadRequest)
	})
}

func TestTripHandler_GetTrip(t *testing.T) {
	t.Run("returns 400 on malformed id", func(t *testing.T) {
		r := setupTripRouter(NewTripHandler(&mockTripService{}, &mockAuditService{}))

		rec := doRequest(r, "GET", "/trips/42", "")

		assertStatus(t, rec, http.StatusBadRequest)
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})

	t.Run("maps service errors", func(t *testing.T) {
		cases := map[error]int{
			apperrors.ErrTripNotFound: http.StatusNotFound,
			apperrors.ErrForbidden:    http.StatusForbidden,
		}
		for svcErr, status := range cases {
			svc := &mockTripService{
				getTripFn: func(string, string) (*models.Trip, error) { return nil, svcErr },
			}
			r := setupTripRouter(NewTripHandler(svc, &mockAuditService{}))

			rec := doRequest(r, "GET", "/trips/"+testTripID, "")

			assertStatus(t, rec, status)
		}
	})
}

func TestTripHandler_UpdateAndArchive(t *testing.T) {
	t.Run("only sends provided fields", func(t *testing.T) {
		var got services.TripUpdate
		svc := &mockTripService{
			updateTripFn: func(_, _ string, in services.TripUpdate) (*models.Trip, error) {
				got = in
				return &models.Trip{Base: models.Base{ID: testTripID}}, nil
			},
		}
		r := setupTripRouter(NewTripHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "PATCH", "/trips/"+testTripID, `{"name":"Renamed","end_date":"2024-06-09"}`)

		assertStatus(t, rec, http.StatusOK)
		if got.Name == nil || *got.Name != "Renamed" {
			t.Errorf("expected name change, got %v", got.Name)
		}
		if got.StartDate != nil || got.Description != nil || got.Visibility != nil {
			t.Errorf("expected untouched fields to be nil, got %+v", got)
		}
		if got.EndDate == nil || got.EndDate.Day() != 9 {
			t.Errorf("expected end date 2024-06-09, got %v", got.EndDate)
		}
	})

	t.Run("archive requires the flag", func(t *testing.T) {
		r := setupTripRouter(NewTripHandler(&mockTripService{}, &mockAuditService{}))

		rec := doRequest(r, "PATCH", "/trips/"+testTripID+"/archive", `{}`)

		assertStatus(t, rec, http.StatusBadRequest)
	})

	t.Run("archive and unarchive", func(t *testing.T) {
		audit := &mockAuditService{}
		r := setupTripRouter(NewTripHandler(&mockTripService{}, audit))

		rec := doRequest(r, "PATCH", "/trips/"+testTripID+"/archive", `{"archived":false}`)

		assertStatus(t, rec, http.StatusOK)
		trip := parseJSON(t, rec)["trip"].(map[string]interface{})
		if trip["is_archived"] != false {
			t.Errorf("expected is_archived false, got %v", trip["is_archived"])
		}
		if a := audit.actions(); len(a) != 1 || a[0] != "ARCHIVE_TRIP" {
			t.Errorf("expected ARCHIVE_TRIP audit entry, got %v", a)
		}
	})

	t.Run("delete by non-creator is forbidden", func(t *testing.T) {
		svc := &mockTripService{
			deleteTripFn: func(string, string) error { return apperrors.ErrForbidden },
		}
		audit := &mockAuditService{}
		r := setupTripRouter(NewTripHandler(svc, audit))

		rec := doRequest(r, "DELETE", "/trips/"+testTripID, "")

		assertStatus(t, rec, http.StatusForbidden)
		if len(audit.actions()) != 0 {
			t.Error("failed delete should not be audited")
		}
	})
}

func TestTripHandler_DuplicateTrip(t *testing.T) {
	t.Run("returns 201 with both ids", func(t *testing.T) {
		var gotStart *time.Time
		svc := &mockTripService{
			duplicateTripFn: func(requesterID, tripID string, start *time.Time) (*models.Trip, error) {
				if requesterID != testUserID || tripID != testTripID {
					t.Errorf("unexpected ids %s %s", requesterID, tripID)
				}
				gotStart = start
				return &models.Trip{Base: models.Base{ID: testItemID}, Name: "Lisbon", CreatorID: requesterID}, nil
			},
		}
		audit := &mockAuditService{}
		r := setupTripRouter(NewTripHandler(svc, audit))

		rec := doRequest(r, "POST", "/trips/"+testTripID+"/duplicate", `{"start_date":"2025-08-15"}`)

		assertStatus(t, rec, http.StatusCreated)
		result := parseJSON(t, rec)
		if result["new_trip_id"] != testItemID || result["original_trip_id"] != testTripID {
			t.Errorf("unexpected ids in %v", result)
		}
		if result["message"] == "" {
			t.Error("expected a message")
		}
		trip := result["trip"].(map[string]interface{})
		if trip["creator_id"] != testUserID {
			t.Errorf("expected copy owned by requester, got %v", trip["creator_id"])
		}
		if gotStart == nil || !gotStart.Equal(time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("expected start 2025-08-15, got %v", gotStart)
		}
		audit.mu.Lock()
		defer audit.mu.Unlock()
		if len(audit.entries) != 1 || audit.entries[0].Action != "DUPLICATE_TRIP" ||
			audit.entries[0].ResourceID != testItemID || audit.entries[0].Changes["original_trip_id"] != testTripID {
			t.Errorf("unexpected audit entries %+v", audit.entries)
		}
	})

	t.Run("body is optional", func(t *testing.T) {
		called := false
		svc := &mockTripService{
			duplicateTripFn: func(_, _ string, start *time.Time) (*models.Trip, error) {
				called = true
				if start != nil {
					t.Errorf("expected nil start date, got %v", start)
				}
				return &models.Trip{Base: models.Base{ID: testItemID}}, nil
			},
		}
		r := setupTripRouter(NewTripHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/trips/"+testTripID+"/duplicate", "")

		assertStatus(t, rec, http.StatusCreated)
		if !called {
			t.Error("service was not called")
		}
	})

	t.Run("returns 400 on bad start date", func(t *testing.T) {
		r := setupTripRouter(NewTripHandler(&mockTripService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/trips/"+testTripID+"/duplicate", `{"start_date":"15/08/2025"}`)

		assertStatus(t, rec, http.StatusBadRequest)
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})

	t.Run("returns 400 on bad trip id", func(t *testing.T) {
		r := setupTripRouter(NewTripHandler(&mockTripService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/trips/not-a-uuid/duplicate", "")

		assertStatus(t, rec, http.StatusBadRequest)
	})

	t.Run("returns 401 without auth", func(t *testing.T) {
		handler := NewTripHandler(&mockTripService{}, &mockAuditService{})
		r := gin.New()
		r.POST("/trips/:id/duplicate", handler.DuplicateTrip)

		rec := doRequest(r, "POST", "/trips/"+testTripID+"/duplicate", "")

		assertStatus(t, rec, http.StatusUnauthorized)
	})

	errCases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"forbidden", apperrors.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
		{"not found", apperrors.ErrTripNotFound, http.StatusNotFound, "TRIP_NOT_FOUND"},
		{"rolled back", apperrors.Wrap(apperrors.ErrInternalServer, context.DeadlineExceeded), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tc := range errCases {
		t.Run("returns "+tc.name, func(t *testing.T) {
			svc := &mockTripService{
				duplicateTripFn: func(string, string, *time.Time) (*models.Trip, error) { return nil, tc.err },
			}
			audit := &mockAuditService{}
			r := setupTripRouter(NewTripHandler(svc, audit))

			rec := doRequest(r, "POST", "/trips/"+testTripID+"/duplicate", "")

			assertStatus(t, rec, tc.status)
			assertErrorCode(t, parseJSON(t, rec), tc.code)
			if len(audit.actions()) != 0 {
				t.Error("failed duplication should not be audited")
			}
		})
	}
}
