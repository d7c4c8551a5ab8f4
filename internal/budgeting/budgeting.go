// Package budgeting derives spent and remaining amounts for a trip budget
// from its expenses. Nothing here is persisted; summaries are recomputed on
// every read.
package budgeting

import (
	"github.com/shopspring/decimal"

	"tripsync/internal/models"
)

// DefaultCurrency is reported when neither a budget nor any expense names one.
const DefaultCurrency = "USD"

// CategoryLine is the budget position of a single spending category.
type CategoryLine struct {
	Category   models.ExpenseCategory `json:"category"`
	Budgeted   decimal.Decimal        `json:"budgeted"`
	Spent      decimal.Decimal        `json:"spent"`
	Remaining  decimal.Decimal        `json:"remaining"`
	Percentage float64                `json:"percentage"`
	OverBudget bool                   `json:"over_budget"`
}

// Summary is the trip-level budget position.
type Summary struct {
	Currency       string          `json:"currency"`
	TotalBudget    decimal.Decimal `json:"total_budget"`
	Allocated      decimal.Decimal `json:"allocated"`
	TotalSpent     decimal.Decimal `json:"total_spent"`
	TotalRemaining decimal.Decimal `json:"total_remaining"`
	OverBudget     bool            `json:"over_budget"`
	Categories     []CategoryLine  `json:"categories"`
	Warnings       []string        `json:"warnings"`
}

// Aggregate computes the budget summary. budget may be nil, in which case
// every budgeted amount is zero. Expense amounts are assumed to already be
// in the trip currency.
func Aggregate(budget *models.Budget, expenses []models.Expense) Summary {
	spent := make(map[models.ExpenseCategory]decimal.Decimal, len(models.ExpenseCategories))
	totalSpent := decimal.Zero
	for _, e := range expenses {
		category := e.Category
		if !isKnown(category) {
			category = models.CategoryOther
		}
		spent[category] = spent[category].Add(e.Amount)
		totalSpent = totalSpent.Add(e.Amount)
	}

	s := Summary{
		Currency:    currencyOf(budget, expenses),
		TotalBudget: decimal.Zero,
		Allocated:   decimal.Zero,
		TotalSpent:  totalSpent,
		Categories:  make([]CategoryLine, 0, len(models.ExpenseCategories)),
		Warnings:    []string{},
	}
	if budget != nil {
		s.TotalBudget = budget.TotalBudget
	}

	for _, c := range models.ExpenseCategories {
		budgeted := decimal.Zero
		if budget != nil {
			budgeted = budget.CategoryAmount(c)
		}
		line := CategoryLine{
			Category:   c,
			Budgeted:   budgeted,
			Spent:      spent[c],
			Remaining:  budgeted.Sub(spent[c]),
			Percentage: percentage(spent[c], budgeted),
		}
		line.OverBudget = line.Remaining.IsNegative()
		if line.OverBudget {
			s.Warnings = append(s.Warnings, string(c)+" is over budget by "+line.Remaining.Neg().StringFixed(2))
		}
		s.Allocated = s.Allocated.Add(budgeted)
		s.Categories = append(s.Categories, line)
	}

	s.TotalRemaining = s.TotalBudget.Sub(s.TotalSpent)
	s.OverBudget = s.TotalRemaining.IsNegative()
	if s.OverBudget {
		s.Warnings = append(s.Warnings, "trip is over budget by "+s.TotalRemaining.Neg().StringFixed(2))
	}
	return s
}

// Line returns the summary line for a category.
func (s Summary) Line(c models.ExpenseCategory) (CategoryLine, bool) {
	for _, l := range s.Categories {
		if l.Category == c {
			return l, true
		}
	}
	return CategoryLine{}, false
}

func isKnown(c models.ExpenseCategory) bool {
	for _, k := range models.ExpenseCategories {
		if k == c {
			return true
		}
	}
	return false
}

func currencyOf(budget *models.Budget, expenses []models.Expense) string {
	if budget != nil && budget.Currency != "" {
		return budget.Currency
	}
	for _, e := range expenses {
		if e.Currency != "" {
			return e.Currency
		}
	}
	return DefaultCurrency
}

// percentage of budgeted already spent; zero when nothing is budgeted.
func percentage(spent, budgeted decimal.Decimal) float64 {
	if !budgeted.IsPositive() {
		return 0
	}
	return spent.Div(budgeted).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
}
