package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"tripsync/internal/budgeting"
	"tripsync/internal/itinerary"
	"tripsync/internal/models"
	"tripsync/internal/pagination"
	"tripsync/internal/splits"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(ctx context.Context, email, password, firstName, lastName string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	AttemptLogin(ctx context.Context, email, password string) (*models.User, error)
	StoreRefreshTokenHash(ctx context.Context, userID, tokenHash string) error
	GetRefreshTokenHash(ctx context.Context, userID string) (string, error)
}

// TripInput holds the fields of a new trip.
type TripInput struct {
	Name         string
	Description  string
	StartDate    time.Time
	EndDate      time.Time
	Destinations []string
	Visibility   models.TripVisibility
}

// TripUpdate holds optional trip changes; nil fields are left untouched.
type TripUpdate struct {
	Name         *string
	Description  *string
	StartDate    *time.Time
	EndDate      *time.Time
	Destinations []string
	Visibility   *models.TripVisibility
}

// TripServicer defines the contract for trip-related business logic.
type TripServicer interface {
	CreateTrip(ctx context.Context, userID string, in TripInput) (*models.Trip, error)
	ListTrips(ctx context.Context, userID string, page pagination.PageRequest, archived *bool) (*pagination.PageResponse[models.Trip], error)
	GetTrip(ctx context.Context, userID, tripID string) (*models.Trip, error)
	UpdateTrip(ctx context.Context, userID, tripID string, in TripUpdate) (*models.Trip, error)
	SetArchived(ctx context.Context, userID, tripID string, archived bool) (*models.Trip, error)
	DeleteTrip(ctx context.Context, userID, tripID string) error
	DuplicateTrip(ctx context.Context, requesterID, tripID string, startDate *time.Time) (*models.Trip, error)
}

// EventInput holds the fields of a new event.
type EventInput struct {
	Type         models.EventType
	Title        string
	Description  string
	StartTime    time.Time
	EndTime      *time.Time
	LocationName string
	Latitude     *float64
	Longitude    *float64
	CostAmount   decimal.Decimal
	CostCurrency string
	Order        *int
	Recurrence   string
}

// EventUpdate holds optional event changes; nil fields are left untouched.
type EventUpdate struct {
	Type         *models.EventType
	Title        *string
	Description  *string
	StartTime    *time.Time
	EndTime      *time.Time
	LocationName *string
	Latitude     *float64
	Longitude    *float64
	CostAmount   *decimal.Decimal
	CostCurrency *string
	Order        *int
	Recurrence   *string
}

// EventServicer defines the contract for itinerary events.
type EventServicer interface {
	CreateEvent(ctx context.Context, userID, tripID string, in EventInput) (*models.Event, error)
	ListEvents(ctx context.Context, userID, tripID string) ([]models.Event, error)
	GetEvent(ctx context.Context, userID, tripID, eventID string) (*models.Event, error)
	UpdateEvent(ctx context.Context, userID, tripID, eventID string, in EventUpdate) (*models.Event, error)
	DeleteEvent(ctx context.Context, userID, tripID, eventID string) error
	ReorderEvents(ctx context.Context, userID, tripID string, eventIDs []string) ([]models.Event, error)
	GetItinerary(ctx context.Context, userID, tripID string) (*itinerary.Itinerary, error)
	ExportCalendar(ctx context.Context, userID, tripID string) (string, error)
}

// BudgetOverview pairs a trip's budget plan with its live spending summary.
// Budget is nil when no plan has been set yet.
type BudgetOverview struct {
	Budget  *models.Budget    `json:"budget"`
	Summary budgeting.Summary `json:"summary"`
}

// BudgetUpdate holds optional budget changes for an upsert.
type BudgetUpdate struct {
	TotalBudget *decimal.Decimal
	Currency    *string
	Categories  map[models.ExpenseCategory]decimal.Decimal
}

// BudgetServicer defines the contract for trip budgets.
type BudgetServicer interface {
	GetBudget(ctx context.Context, userID, tripID string) (*BudgetOverview, error)
	UpsertBudget(ctx context.Context, userID, tripID string, in BudgetUpdate) (*BudgetOverview, error)
}

// SplitInput is one caller-supplied share of a custom split.
type SplitInput struct {
	UserID     string
	Amount     *decimal.Decimal
	Percentage *decimal.Decimal
}

// ExpenseInput holds the fields of a new expense. SplitWith lists the
// participants of an equal split; Splits carries custom shares.
type ExpenseInput struct {
	Category    models.ExpenseCategory
	Description string
	Amount      decimal.Decimal
	Currency    string
	Date        *time.Time
	EventID     *string
	ReceiptURL  string
	PaidByID    string
	SplitType   *models.SplitType
	SplitWith   []string
	Splits      []SplitInput
}

// BalanceReport lists every participant's net position and the transfers
// that settle the trip.
type BalanceReport struct {
	Currency  string            `json:"currency"`
	Balances  []splits.Balance  `json:"balances"`
	Transfers []splits.Transfer `json:"transfers"`
}

// ExpenseServicer defines the contract for shared expenses.
type ExpenseServicer interface {
	CreateExpense(ctx context.Context, userID, tripID string, in ExpenseInput) (*models.Expense, error)
	ListExpenses(ctx context.Context, userID, tripID string, page pagination.PageRequest, category *models.ExpenseCategory) (*pagination.PageResponse[models.Expense], error)
	GetExpense(ctx context.Context, userID, tripID, expenseID string) (*models.Expense, error)
	DeleteExpense(ctx context.Context, userID, tripID, expenseID string) error
	GetBalances(ctx context.Context, userID, tripID string) (*BalanceReport, error)
}

// CollaboratorServicer defines the contract for trip sharing.
type CollaboratorServicer interface {
	InviteCollaborator(ctx context.Context, userID, tripID, email string, role models.CollaboratorRole) (*models.Collaborator, error)
	ListCollaborators(ctx context.Context, userID, tripID string) ([]models.Collaborator, error)
	AcceptInvitation(ctx context.Context, userID, tripID string) (*models.Collaborator, error)
	DeclineInvitation(ctx context.Context, userID, tripID string) error
	UpdateRole(ctx context.Context, userID, tripID, targetUserID string, role models.CollaboratorRole) (*models.Collaborator, error)
	RemoveCollaborator(ctx context.Context, userID, tripID, targetUserID string) error
	ListInvitations(ctx context.Context, userID string) ([]models.Collaborator, error)
}

// MessageServicer defines the contract for trip chat.
type MessageServicer interface {
	PostMessage(ctx context.Context, userID, tripID, content string) (*models.Message, error)
	ListMessages(ctx context.Context, userID, tripID string, page pagination.PageRequest) (*pagination.PageResponse[models.Message], error)
}

// IdeaSummary is an idea with its vote tally and the caller's own vote.
type IdeaSummary struct {
	models.Idea
	Score  int `json:"score"`
	MyVote int `json:"my_vote"`
}

// IdeaServicer defines the contract for trip ideas.
type IdeaServicer interface {
	CreateIdea(ctx context.Context, userID, tripID, title, description, url string) (*IdeaSummary, error)
	ListIdeas(ctx context.Context, userID, tripID string) ([]IdeaSummary, error)
	VoteIdea(ctx context.Context, userID, tripID, ideaID string, value int) (*IdeaSummary, error)
	RemoveVote(ctx context.Context, userID, tripID, ideaID string) (*IdeaSummary, error)
	DeleteIdea(ctx context.Context, userID, tripID, ideaID string) error
}

// OptionResult is a poll option with its vote count.
type OptionResult struct {
	models.PollOption
	Votes int `json:"votes"`
}

// PollResults is a poll with per-option counts.
type PollResults struct {
	models.Poll
	Options    []OptionResult `json:"options"`
	TotalVotes int            `json:"total_votes"`
	Closed     bool           `json:"closed"`
	MyOptionID *string        `json:"my_option_id,omitempty"`
}

// PollServicer defines the contract for trip polls.
type PollServicer interface {
	CreatePoll(ctx context.Context, userID, tripID, question string, options []string, closesAt *time.Time) (*PollResults, error)
	ListPolls(ctx context.Context, userID, tripID string) ([]PollResults, error)
	Vote(ctx context.Context, userID, tripID, pollID, optionID string) (*PollResults, error)
}

// TagServicer defines the contract for trip tags.
type TagServicer interface {
	CreateTag(ctx context.Context, userID, tripID, name, color string) (*models.Tag, error)
	ListTags(ctx context.Context, userID, tripID string) ([]models.Tag, error)
	DeleteTag(ctx context.Context, userID, tripID, tagID string) error
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(userID, action, resourceType, resourceID, ipAddress string, changes map[string]interface{})
}

// Notifier pushes trip activity to connected clients.
type Notifier interface {
	Publish(tripID, kind string, payload interface{})
}

type noopNotifier struct{}

func (noopNotifier) Publish(string, string, interface{}) {}

func notifierOrNoop(n Notifier) Notifier {
	if n == nil {
		return noopNotifier{}
	}
	return n
}
