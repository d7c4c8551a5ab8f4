package services

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tripsync/internal/models"
	"tripsync/internal/testutil"
)

func TestCreateEvent(t *testing.T) {
	t.Run("appends after existing events", func(t *testing.T) {
		db := setupDB(t)
		notify := &recordingNotifier{}
		svc := NewEventService(db, notify)
		user := testutil.CreateTestUser(t, db)
		trip := testutil.CreateTestTrip(t, db, user.ID)

		first, err := svc.CreateEvent(ctx, user.ID, trip.ID, EventInput{
			Type:      models.EventTypeFlight,
			Title:     "Flight in",
			StartTime: date(2024, 6, 1).Add(8 * time.Hour),
		})
		testutil.AssertNoError(t, err)
		second, err := svc.CreateEvent(ctx, user.ID, trip.ID, EventInput{
			Type:       models.EventTypeActivity,
			Title:      "Tram 28",
			StartTime:  date(2024, 6, 2).Add(10 * time.Hour),
			CostAmount: decimal.NewFromInt(3),
		})
		testutil.AssertNoError(t, err)

		if first.Order != 0 || second.Order != 1 {
			t.Errorf("expected orders 0 and 1, got %d and %d", first.Order, second.Order)
		}
		if kinds := notify.kinds(); len(kinds) != 2 || kinds[0] != "event.created" {
			t.Errorf("expected two event.created notifications, got %v", kinds)
		}
	})

	t.Run("strips rrule prefix", func(t *testing.T) {
		db := setupDB(t)
		svc := NewEventService(db, nil)
		user := testutil.CreateTestUser(t, db)
		trip := testutil.CreateTestTrip(t, db, user.ID)

		ev, err := svc.CreateEvent(ctx, user.ID, trip.ID, EventInput{
			Type:       models.EventTypeRestaurant,
			Title:      "Breakfast",
			StartTime:  date(2024, 6, 1).Add(8 * time.Hour),
			Recurrence: "RRULE:FREQ=DAILY;COUNT=3",
		})
		testutil.AssertNoError(t, err)
		if ev.Recurrence != "FREQ=DAILY;COUNT=3" {
			t.Errorf("unexpected recurrence %q", ev.Recurrence)
		}
	})

	tests := []struct {
		name string
		in   EventInput
		code string
	}{
		{
			name: "invalid recurrence",
			in:   EventInput{Title: "x", StartTime: date(2024, 6, 1), Recurrence: "FREQ=SOMETIMES"},
			code: "INVALID_RECURRENCE",
		},
		{
			name: "end before start",
			in:   EventInput{Title: "x", StartTime: date(2024, 6, 2), EndTime: ptrTime(date(2024, 6, 1))},
			code: "INVALID_INPUT",
		},
		{
			name: "missing title",
			in:   EventInput{Title: "  ", StartTime: date(2024, 6, 1)},
			code: "INVALID_INPUT",
		},
		{
			name: "latitude without longitude",
			in:   EventInput{Title: "x", StartTime: date(2024, 6, 1), Latitude: ptrFloat(10)},
			code: "INVALID_INPUT",
		},
		{
			name: "latitude out of range",
			in:   EventInput{Title: "x", StartTime: date(2024, 6, 1), Latitude: ptrFloat(91), Longitude: ptrFloat(0)},
			code: "INVALID_INPUT",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := setupDB(t)
			svc := NewEventService(db, nil)
			user := testutil.CreateTestUser(t, db)
			trip := testutil.CreateTestTrip(t, db, user.ID)

			_, err := svc.CreateEvent(ctx, user.ID, trip.ID, tt.in)
			testutil.AssertAppError(t, err, tt.code)
		})
	}

	t.Run("viewer forbidden", func(t *testing.T) {
		db := setupDB(t)
		svc := NewEventService(db, nil)
		owner := testutil.CreateTestUser(t, db)
		viewer := testutil.CreateTestUser(t, db)
		trip := testutil.CreateTestTrip(t, db, owner.ID)
		testutil.CreateTestCollaborator(t, db, trip.ID, viewer.ID, models.RoleViewer)

		_, err := svc.CreateEvent(ctx, viewer.ID, trip.ID, EventInput{Title: "x", StartTime: date(2024, 6, 1)})
		testutil.AssertAppError(t, err, "FORBIDDEN")
	})
}

func TestUpdateEvent(t *testing.T) {
	db := setupDB(t)
	svc := NewEventService(db, nil)
	user := testutil.CreateTestUser(t, db)
	trip := testutil.CreateTestTrip(t, db, user.ID)
	ev := testutil.CreateTestEvent(t, db, trip.ID, user.ID, date(2024, 6, 2).Add(10*time.Hour))

	title := "Castle visit"
	end := date(2024, 6, 2).Add(12 * time.Hour)
	got, err := svc.UpdateEvent(ctx, user.ID, trip.ID, ev.ID, EventUpdate{Title: &title, EndTime: &end})
	testutil.AssertNoError(t, err)
	if got.Title != title || got.EndTime == nil || !got.EndTime.Equal(end) {
		t.Errorf("unexpected event after update: %+v", got)
	}

	before := date(2024, 6, 2).Add(9 * time.Hour)
	_, err = svc.UpdateEvent(ctx, user.ID, trip.ID, ev.ID, EventUpdate{EndTime: &before})
	testutil.AssertAppError(t, err, "INVALID_INPUT")

	_, err = svc.UpdateEvent(ctx, user.ID, trip.ID, "0190a1b2-c3d4-7e5f-8a9b-0c1d2e3f4a5b", EventUpdate{Title: &title})
	testutil.AssertAppError(t, err, "EVENT_NOT_FOUND")
}

func TestDeleteEvent_unlinksExpenses(t *testing.T) {
	db := setupDB(t)
	svc := NewEventService(db, nil)
	user := testutil.CreateTestUser(t, db)
	trip := testutil.CreateTestTrip(t, db, user.ID)
	ev := testutil.CreateTestEvent(t, db, trip.ID, user.ID, date(2024, 6, 2))
	expense := testutil.CreateTestExpense(t, db, trip.ID, user.ID, models.CategoryActivities, "25.00")
	db.Model(expense).Update("event_id", ev.ID)

	testutil.AssertNoError(t, svc.DeleteEvent(ctx, user.ID, trip.ID, ev.ID))

	var reloaded models.Expense
	db.First(&reloaded, "id = ?", expense.ID)
	if reloaded.EventID != nil {
		t.Errorf("expected expense unlinked, got event %s", *reloaded.EventID)
	}
	_, err := svc.GetEvent(ctx, user.ID, trip.ID, ev.ID)
	testutil.AssertAppError(t, err, "EVENT_NOT_FOUND")
}

func TestReorderEvents(t *testing.T) {
	db := setupDB(t)
	svc := NewEventService(db, nil)
	user := testutil.CreateTestUser(t, db)
	trip := testutil.CreateTestTrip(t, db, user.ID)
	other := testutil.CreateTestTrip(t, db, user.ID)
	a := testutil.CreateTestEvent(t, db, trip.ID, user.ID, date(2024, 6, 2))
	b := testutil.CreateTestEvent(t, db, trip.ID, user.ID, date(2024, 6, 2))
	c := testutil.CreateTestEvent(t, db, trip.ID, user.ID, date(2024, 6, 2))
	foreign := testutil.CreateTestEvent(t, db, other.ID, user.ID, date(2024, 6, 2))

	events, err := svc.ReorderEvents(ctx, user.ID, trip.ID, []string{c.ID, a.ID, b.ID})
	testutil.AssertNoError(t, err)
	want := []string{c.ID, a.ID, b.ID}
	for i, ev := range events {
		if ev.ID != want[i] || ev.Order != i {
			t.Errorf("position %d: got %s order %d, want %s", i, ev.ID, ev.Order, want[i])
		}
	}

	_, err = svc.ReorderEvents(ctx, user.ID, trip.ID, []string{a.ID, a.ID})
	testutil.AssertAppError(t, err, "INVALID_INPUT")

	_, err = svc.ReorderEvents(ctx, user.ID, trip.ID, []string{a.ID, foreign.ID})
	testutil.AssertAppError(t, err, "EVENT_NOT_FOUND")

	_, err = svc.ReorderEvents(ctx, user.ID, trip.ID, nil)
	testutil.AssertAppError(t, err, "INVALID_INPUT")
}

func TestGetItinerary(t *testing.T) {
	db := setupDB(t)
	svc := NewEventService(db, nil)
	user := testutil.CreateTestUser(t, db)
	trip := testutil.CreateTestTrip(t, db, user.ID)

	daily := testutil.CreateTestEvent(t, db, trip.ID, user.ID, date(2024, 6, 1).Add(8*time.Hour))
	db.Model(daily).Update("recurrence", "FREQ=DAILY;COUNT=10")
	testutil.CreateTestEvent(t, db, trip.ID, user.ID, date(2024, 6, 3).Add(15*time.Hour))
	testutil.CreateTestEvent(t, db, trip.ID, user.ID, date(2024, 7, 1))

	it, err := svc.GetItinerary(ctx, user.ID, trip.ID)
	testutil.AssertNoError(t, err)

	if len(it.Days) != 5 {
		t.Fatalf("expected 5 days, got %d", len(it.Days))
	}
	for _, d := range it.Days {
		want := 1
		if d.Number == 3 {
			want = 2
		}
		if len(d.Items) != want {
			t.Errorf("day %d: expected %d items, got %d", d.Number, want, len(d.Items))
		}
	}
	if len(it.Unscheduled) != 1 {
		t.Errorf("expected 1 unscheduled item, got %d", len(it.Unscheduled))
	}
}

func TestExportCalendar(t *testing.T) {
	db := setupDB(t)
	svc := NewEventService(db, nil).(*eventService)
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) }
	user := testutil.CreateTestUser(t, db)
	trip := testutil.CreateTestTrip(t, db, user.ID)
	ev := testutil.CreateTestEvent(t, db, trip.ID, user.ID, date(2024, 6, 2).Add(10*time.Hour))

	doc, err := svc.ExportCalendar(ctx, user.ID, trip.ID)
	testutil.AssertNoError(t, err)

	for _, want := range []string{"BEGIN:VCALENDAR", "UID:" + ev.ID + "@tripsync", "DTSTART:20240602T100000Z", "LOCATION:"} {
		if !strings.Contains(doc, want) {
			t.Errorf("calendar missing %q", want)
		}
	}
}

func ptrTime(t time.Time) *time.Time { return &t }

func ptrFloat(f float64) *float64 { return &f }
