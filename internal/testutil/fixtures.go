package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"tripsync/internal/models"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// TestPassword is the plain-text password of every fixture user.
const TestPassword = "password123"

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:     email,
		Password:  string(hash),
		FirstName: "Test",
		LastName:  fmt.Sprintf("User%d", nextID()),
		IsActive:  true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestTrip creates a private five-day trip starting 2024-06-01 UTC.
func CreateTestTrip(t *testing.T, db *gorm.DB, creatorID string) *models.Trip {
	t.Helper()
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	return CreateTestTripWithDates(t, db, creatorID, start, start.AddDate(0, 0, 4))
}

// CreateTestTripWithDates creates a trip spanning start..end.
func CreateTestTripWithDates(t *testing.T, db *gorm.DB, creatorID string, start, end time.Time) *models.Trip {
	t.Helper()

	trip := &models.Trip{
		Name:         fmt.Sprintf("Test Trip %d", nextID()),
		Description:  "fixture trip",
		StartDate:    start,
		EndDate:      end,
		Destinations: []string{"Lisbon", "Porto"},
		Visibility:   models.TripVisibilityPrivate,
		CreatorID:    creatorID,
	}
	if err := db.Create(trip).Error; err != nil {
		t.Fatalf("failed to create test trip: %v", err)
	}
	return trip
}

// CreateTestCollaborator adds an accepted collaborator with the given role.
func CreateTestCollaborator(t *testing.T, db *gorm.DB, tripID, userID string, role models.CollaboratorRole) *models.Collaborator {
	t.Helper()
	return createCollaborator(t, db, tripID, userID, role, models.InvitationAccepted)
}

// CreateTestInvitation adds a pending collaborator with the given role.
func CreateTestInvitation(t *testing.T, db *gorm.DB, tripID, userID string, role models.CollaboratorRole) *models.Collaborator {
	t.Helper()
	return createCollaborator(t, db, tripID, userID, role, models.InvitationPending)
}

func createCollaborator(t *testing.T, db *gorm.DB, tripID, userID string, role models.CollaboratorRole, status models.InvitationStatus) *models.Collaborator {
	t.Helper()

	var trip models.Trip
	if err := db.First(&trip, "id = ?", tripID).Error; err != nil {
		t.Fatalf("failed to load trip for collaborator: %v", err)
	}

	collab := &models.Collaborator{
		TripID:      tripID,
		UserID:      userID,
		Role:        role,
		Status:      status,
		InvitedByID: trip.CreatorID,
	}
	if status == models.InvitationAccepted {
		now := time.Now()
		collab.RespondedAt = &now
	}
	if err := db.Create(collab).Error; err != nil {
		t.Fatalf("failed to create test collaborator: %v", err)
	}
	return collab
}

// CreateTestEvent creates an activity event at start.
func CreateTestEvent(t *testing.T, db *gorm.DB, tripID, createdByID string, start time.Time) *models.Event {
	t.Helper()

	lat, lng := 38.7223, -9.1393
	event := &models.Event{
		TripID:       tripID,
		Type:         models.EventTypeActivity,
		Title:        fmt.Sprintf("Test Event %d", nextID()),
		StartTime:    start,
		LocationName: "Praça do Comércio",
		Latitude:     &lat,
		Longitude:    &lng,
		CostAmount:   decimal.NewFromInt(25),
		CostCurrency: "EUR",
		CreatedByID:  createdByID,
	}
	if err := db.Create(event).Error; err != nil {
		t.Fatalf("failed to create test event: %v", err)
	}
	return event
}

// CreateTestBudget creates a 1000 USD budget with food and accommodation allocations.
func CreateTestBudget(t *testing.T, db *gorm.DB, tripID string) *models.Budget {
	t.Helper()

	budget := &models.Budget{
		TripID:        tripID,
		TotalBudget:   decimal.NewFromInt(1000),
		Currency:      "USD",
		Accommodation: decimal.NewFromInt(500),
		Food:          decimal.NewFromInt(200),
	}
	if err := db.Create(budget).Error; err != nil {
		t.Fatalf("failed to create test budget: %v", err)
	}
	return budget
}

// CreateTestTag creates a tag on a trip.
func CreateTestTag(t *testing.T, db *gorm.DB, tripID, name string) *models.Tag {
	t.Helper()

	tag := &models.Tag{TripID: tripID, Name: name, Color: "#3366ff"}
	if err := db.Create(tag).Error; err != nil {
		t.Fatalf("failed to create test tag: %v", err)
	}
	return tag
}

// CreateTestExpense creates an unsplit expense paid by paidByID.
func CreateTestExpense(t *testing.T, db *gorm.DB, tripID, paidByID string, category models.ExpenseCategory, amount string) *models.Expense {
	t.Helper()

	expense := &models.Expense{
		TripID:      tripID,
		Category:    category,
		Description: fmt.Sprintf("Test Expense %d", nextID()),
		Amount:      decimal.RequireFromString(amount),
		Currency:    "USD",
		Date:        time.Date(2024, 6, 2, 12, 0, 0, 0, time.UTC),
		PaidByID:    paidByID,
	}
	if err := db.Create(expense).Error; err != nil {
		t.Fatalf("failed to create test expense: %v", err)
	}
	return expense
}
