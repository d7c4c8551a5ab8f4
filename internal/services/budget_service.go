package services

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"tripsync/internal/budgeting"
	apperrors "tripsync/internal/errors"
	"tripsync/internal/models"
	"tripsync/internal/validator"
)

// budgetService handles trip budgets.
type budgetService struct {
	db     *gorm.DB
	notify Notifier
}

// NewBudgetService creates a new BudgetServicer.
func NewBudgetService(db *gorm.DB, notify Notifier) BudgetServicer {
	return &budgetService{db: db, notify: notifierOrNoop(notify)}
}

// GetBudget returns the trip's budget plan and its spending summary. A trip
// without a plan still gets a summary with zero budgeted amounts.
func (s *budgetService) GetBudget(ctx context.Context, userID, tripID string) (*BudgetOverview, error) {
	if _, err := authorize(ctx, s.db, tripID, userID, AccessView); err != nil {
		return nil, err
	}
	return s.overview(ctx, tripID)
}

// UpsertBudget creates the trip's budget if needed and applies in.
func (s *budgetService) UpsertBudget(ctx context.Context, userID, tripID string, in BudgetUpdate) (*BudgetOverview, error) {
	if _, err := authorize(ctx, s.db, tripID, userID, AccessEdit); err != nil {
		return nil, err
	}
	if err := validateBudgetUpdate(in); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		budget, err := findBudget(tx, tripID)
		if err != nil {
			return err
		}
		if budget == nil {
			budget = &models.Budget{TripID: tripID, Currency: budgeting.DefaultCurrency}
		}

		if in.TotalBudget != nil {
			budget.TotalBudget = *in.TotalBudget
		}
		if in.Currency != nil {
			budget.Currency = strings.ToUpper(*in.Currency)
		}
		for category, amount := range in.Categories {
			budget.SetCategoryAmount(category, amount)
		}
		return tx.Save(budget).Error
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	overview, err := s.overview(ctx, tripID)
	if err != nil {
		return nil, err
	}
	s.notify.Publish(tripID, "budget.updated", overview.Summary)
	return overview, nil
}

func (s *budgetService) overview(ctx context.Context, tripID string) (*BudgetOverview, error) {
	budget, err := findBudget(s.db.WithContext(ctx), tripID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var expenses []models.Expense
	if err := s.db.WithContext(ctx).Where("trip_id = ?", tripID).Find(&expenses).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return &BudgetOverview{Budget: budget, Summary: budgeting.Aggregate(budget, expenses)}, nil
}

// findBudget returns nil without error when the trip has no budget.
func findBudget(db *gorm.DB, tripID string) (*models.Budget, error) {
	var budget models.Budget
	err := db.Where("trip_id = ?", tripID).First(&budget).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &budget, nil
}

func validateBudgetUpdate(in BudgetUpdate) error {
	fields := make(map[string]string)
	if in.TotalBudget != nil && in.TotalBudget.IsNegative() {
		fields["total_budget"] = "must not be negative"
	}
	if in.Currency != nil && !validator.IsCurrency(strings.ToUpper(*in.Currency)) {
		fields["currency"] = "must be a valid ISO 4217 currency code"
	}
	for category, amount := range in.Categories {
		key := "category_budgets." + string(category)
		switch {
		case !knownCategory(category):
			fields[key] = "unknown category"
		case amount.LessThan(decimal.Zero):
			fields[key] = "must not be negative"
		}
	}
	if len(fields) > 0 {
		return apperrors.WithFields(apperrors.ErrInvalidInput, "invalid budget", fields)
	}
	return nil
}

func knownCategory(c models.ExpenseCategory) bool {
	for _, known := range models.ExpenseCategories {
		if c == known {
			return true
		}
	}
	return false
}
