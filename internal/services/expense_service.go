package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"tripsync/internal/budgeting"
	apperrors "tripsync/internal/errors"
	"tripsync/internal/models"
	"tripsync/internal/pagination"
	"tripsync/internal/splits"
	"tripsync/internal/validator"
)

var expenseSortColumns = map[string]string{
	"date":       "date",
	"amount":     "amount",
	"created_at": "created_at",
}

// expenseService handles shared trip expenses.
type expenseService struct {
	db     *gorm.DB
	notify Notifier
	now    func() time.Time
}

// NewExpenseService creates a new ExpenseServicer.
func NewExpenseService(db *gorm.DB, notify Notifier) ExpenseServicer {
	return &expenseService{db: db, notify: notifierOrNoop(notify), now: time.Now}
}

// CreateExpense records an expense and, when participants are given, its
// split rows. The expense and its splits are written together or not at all.
func (s *expenseService) CreateExpense(ctx context.Context, userID, tripID string, in ExpenseInput) (*models.Expense, error) {
	access, err := authorize(ctx, s.db, tripID, userID, AccessEdit)
	if err != nil {
		return nil, err
	}
	if !in.Amount.IsPositive() {
		return nil, apperrors.WithFields(apperrors.ErrInvalidInput, "invalid expense", map[string]string{"amount": "must be greater than zero"})
	}
	if !knownCategory(in.Category) {
		return nil, apperrors.WithFields(apperrors.ErrInvalidInput, "invalid expense", map[string]string{"category": "unknown category"})
	}

	currency, err := s.resolveCurrency(ctx, tripID, in.Currency)
	if err != nil {
		return nil, err
	}
	if !splits.FitsCurrency(in.Amount, currency) {
		return nil, apperrors.WithFields(apperrors.ErrInvalidInput, "invalid expense", map[string]string{"amount": "has more decimal places than " + currency + " allows"})
	}

	members, err := tripMembers(ctx, s.db, access.Trip)
	if err != nil {
		return nil, err
	}

	paidBy := in.PaidByID
	if paidBy == "" {
		paidBy = userID
	}
	if _, ok := members[paidBy]; !ok {
		return nil, apperrors.WithFields(apperrors.ErrInvalidInput, "invalid expense", map[string]string{"paid_by": "payer must be a member of the trip"})
	}

	if in.EventID != nil {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.Event{}).
			Where("id = ? AND trip_id = ?", *in.EventID, tripID).
			Count(&count).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if count == 0 {
			return nil, apperrors.ErrEventNotFound
		}
	}

	mode, participants, err := resolveSplit(in)
	if err != nil {
		return nil, err
	}

	expense := &models.Expense{
		TripID:      tripID,
		EventID:     in.EventID,
		Category:    in.Category,
		Description: strings.TrimSpace(in.Description),
		Amount:      in.Amount,
		Currency:    currency,
		Date:        s.now(),
		PaidByID:    paidBy,
		ReceiptURL:  in.ReceiptURL,
	}
	if in.Date != nil {
		expense.Date = *in.Date
	}

	if mode != nil {
		for _, p := range participants {
			if _, ok := members[p.UserID]; !ok {
				return nil, apperrors.WithMessage(apperrors.ErrInvalidSplit, "user "+p.UserID+" is not a member of this trip")
			}
		}
		shares, err := splits.Calculate(in.Amount, currency, *mode, participants)
		if err != nil {
			return nil, err
		}
		expense.SplitType = mode
		expense.Splits = make([]models.ExpenseSplit, len(shares))
		for i, share := range shares {
			row := models.ExpenseSplit{UserID: share.UserID, Amount: share.Amount}
			if share.Percentage != nil {
				row.Percentage = decimal.NullDecimal{Decimal: *share.Percentage, Valid: true}
			}
			expense.Splits[i] = row
		}
	}

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(expense).Error
	}); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.notify.Publish(tripID, "expense.created", expense)
	return expense, nil
}

// resolveSplit works out the split mode and participants of in. A nil mode
// means the expense is not shared.
func resolveSplit(in ExpenseInput) (*models.SplitType, []splits.Participant, error) {
	mode := in.SplitType
	if mode == nil {
		var inferred models.SplitType
		switch {
		case len(in.SplitWith) > 0:
			inferred = models.SplitTypeEqual
		case len(in.Splits) > 0 && in.Splits[0].Percentage != nil:
			inferred = models.SplitTypeCustomPercentage
		case len(in.Splits) > 0:
			inferred = models.SplitTypeCustomAmount
		default:
			return nil, nil, nil
		}
		mode = &inferred
	}

	var participants []splits.Participant
	switch *mode {
	case models.SplitTypeEqual:
		ids := in.SplitWith
		if len(ids) == 0 {
			for _, sp := range in.Splits {
				ids = append(ids, sp.UserID)
			}
		}
		for _, id := range ids {
			participants = append(participants, splits.Participant{UserID: id})
		}
	case models.SplitTypeCustomAmount:
		for _, sp := range in.Splits {
			if sp.Amount == nil {
				return nil, nil, apperrors.WithMessage(apperrors.ErrInvalidSplit, "every split needs an amount")
			}
			participants = append(participants, splits.Participant{UserID: sp.UserID, Value: *sp.Amount})
		}
	case models.SplitTypeCustomPercentage:
		for _, sp := range in.Splits {
			if sp.Percentage == nil {
				return nil, nil, apperrors.WithMessage(apperrors.ErrInvalidSplit, "every split needs a percentage")
			}
			participants = append(participants, splits.Participant{UserID: sp.UserID, Value: *sp.Percentage})
		}
	}
	if len(participants) == 0 {
		return nil, nil, apperrors.WithMessage(apperrors.ErrInvalidSplit, "split participants are required")
	}
	return mode, participants, nil
}

func (s *expenseService) resolveCurrency(ctx context.Context, tripID, requested string) (string, error) {
	if requested != "" {
		code := strings.ToUpper(requested)
		if !validator.IsCurrency(code) {
			return "", apperrors.WithFields(apperrors.ErrInvalidInput, "invalid expense", map[string]string{"currency": "must be a valid ISO 4217 currency code"})
		}
		return code, nil
	}
	budget, err := findBudget(s.db.WithContext(ctx), tripID)
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if budget != nil && budget.Currency != "" {
		return budget.Currency, nil
	}
	return budgeting.DefaultCurrency, nil
}

// ListExpenses returns a page of the trip's expenses, newest first.
func (s *expenseService) ListExpenses(ctx context.Context, userID, tripID string, page pagination.PageRequest, category *models.ExpenseCategory) (*pagination.PageResponse[models.Expense], error) {
	if _, err := authorize(ctx, s.db, tripID, userID, AccessView); err != nil {
		return nil, err
	}
	page.Defaults()

	base := s.db.WithContext(ctx).Model(&models.Expense{}).Where("trip_id = ?", tripID)
	if category != nil {
		base = base.Where("category = ?", *category)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var expenses []models.Expense
	if err := base.Preload("Splits").
		Order(page.OrderClause(expenseSortColumns, "date DESC")).
		Scopes(pagination.Paginate(page)).
		Find(&expenses).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(expenses, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetExpense returns one expense with its splits.
func (s *expenseService) GetExpense(ctx context.Context, userID, tripID, expenseID string) (*models.Expense, error) {
	if _, err := authorize(ctx, s.db, tripID, userID, AccessView); err != nil {
		return nil, err
	}
	return s.findExpense(ctx, tripID, expenseID)
}

func (s *expenseService) findExpense(ctx context.Context, tripID, expenseID string) (*models.Expense, error) {
	var expense models.Expense
	if err := s.db.WithContext(ctx).Preload("Splits").
		Where("id = ? AND trip_id = ?", expenseID, tripID).
		First(&expense).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrExpenseNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &expense, nil
}

// DeleteExpense removes an expense and its splits. The payer or a trip
// admin may do this.
func (s *expenseService) DeleteExpense(ctx context.Context, userID, tripID, expenseID string) error {
	access, err := authorize(ctx, s.db, tripID, userID, AccessView)
	if err != nil {
		return err
	}
	expense, err := s.findExpense(ctx, tripID, expenseID)
	if err != nil {
		return err
	}
	if !access.isMember() || (expense.PaidByID != userID && access.rank() < models.RoleAdmin.Rank()) {
		return apperrors.ErrForbidden
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("expense_id = ?", expense.ID).Delete(&models.ExpenseSplit{}).Error; err != nil {
			return err
		}
		return tx.Delete(expense).Error
	})
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	s.notify.Publish(tripID, "expense.deleted", map[string]string{"expense_id": expenseID})
	return nil
}

// GetBalances reports who owes whom across the trip's expenses.
func (s *expenseService) GetBalances(ctx context.Context, userID, tripID string) (*BalanceReport, error) {
	if _, err := authorize(ctx, s.db, tripID, userID, AccessView); err != nil {
		return nil, err
	}

	var expenses []models.Expense
	if err := s.db.WithContext(ctx).Preload("Splits").Where("trip_id = ?", tripID).Find(&expenses).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	currency, err := s.resolveCurrency(ctx, tripID, "")
	if err != nil {
		return nil, err
	}

	balances := splits.Balances(expenses)
	transfers := splits.Settle(balances)
	if transfers == nil {
		transfers = []splits.Transfer{}
	}
	return &BalanceReport{Currency: currency, Balances: balances, Transfers: transfers}, nil
}
