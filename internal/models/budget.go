package models

import "github.com/shopspring/decimal"

// ExpenseCategory is one of the fixed spending categories of a trip budget.
type ExpenseCategory string

const (
	CategoryAccommodation ExpenseCategory = "accommodation"
	CategoryFood          ExpenseCategory = "food"
	CategoryActivities    ExpenseCategory = "activities"
	CategoryTransport     ExpenseCategory = "transport"
	CategoryShopping      ExpenseCategory = "shopping"
	CategoryOther         ExpenseCategory = "other"
)

// ExpenseCategories lists every category in display order.
var ExpenseCategories = []ExpenseCategory{
	CategoryAccommodation,
	CategoryFood,
	CategoryActivities,
	CategoryTransport,
	CategoryShopping,
	CategoryOther,
}

// Budget is the single budget plan of a trip.
type Budget struct {
	Base
	TripID        string          `gorm:"type:uuid;not null;uniqueIndex" json:"trip_id"`
	TotalBudget   decimal.Decimal `gorm:"type:numeric(15,3);not null;default:0" json:"total_budget"`
	Currency      string          `gorm:"size:3;not null" json:"currency"`
	Accommodation decimal.Decimal `gorm:"type:numeric(15,3);not null;default:0" json:"accommodation"`
	Food          decimal.Decimal `gorm:"type:numeric(15,3);not null;default:0" json:"food"`
	Activities    decimal.Decimal `gorm:"type:numeric(15,3);not null;default:0" json:"activities"`
	Transport     decimal.Decimal `gorm:"type:numeric(15,3);not null;default:0" json:"transport"`
	Shopping      decimal.Decimal `gorm:"type:numeric(15,3);not null;default:0" json:"shopping"`
	Other         decimal.Decimal `gorm:"type:numeric(15,3);not null;default:0" json:"other"`
}

// CategoryAmount returns the budgeted amount for a category.
func (b *Budget) CategoryAmount(c ExpenseCategory) decimal.Decimal {
	switch c {
	case CategoryAccommodation:
		return b.Accommodation
	case CategoryFood:
		return b.Food
	case CategoryActivities:
		return b.Activities
	case CategoryTransport:
		return b.Transport
	case CategoryShopping:
		return b.Shopping
	case CategoryOther:
		return b.Other
	}
	return decimal.Zero
}

// SetCategoryAmount sets the budgeted amount for a category. Unknown
// categories are ignored.
func (b *Budget) SetCategoryAmount(c ExpenseCategory, amount decimal.Decimal) {
	switch c {
	case CategoryAccommodation:
		b.Accommodation = amount
	case CategoryFood:
		b.Food = amount
	case CategoryActivities:
		b.Activities = amount
	case CategoryTransport:
		b.Transport = amount
	case CategoryShopping:
		b.Shopping = amount
	case CategoryOther:
		b.Other = amount
	}
}
