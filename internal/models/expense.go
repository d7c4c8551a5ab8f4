package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SplitType selects how an expense is divided among participants.
type SplitType string

const (
	SplitTypeEqual            SplitType = "equal"
	SplitTypeCustomAmount     SplitType = "custom_amount"
	SplitTypeCustomPercentage SplitType = "custom_percentage"
)

// Expense is money spent on behalf of a trip.
type Expense struct {
	Base
	TripID      string          `gorm:"type:uuid;not null;index" json:"trip_id"`
	EventID     *string         `gorm:"type:uuid" json:"event_id,omitempty"`
	Category    ExpenseCategory `gorm:"not null" json:"category"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `gorm:"type:numeric(15,3);not null" json:"amount"`
	Currency    string          `gorm:"size:3;not null" json:"currency"`
	Date        time.Time       `gorm:"not null" json:"date"`
	PaidByID    string          `gorm:"type:uuid;not null" json:"paid_by_id"`
	ReceiptURL  string          `json:"receipt_url,omitempty"`
	SplitType   *SplitType      `json:"split_type,omitempty"`

	// Relationships
	Splits []ExpenseSplit `gorm:"foreignKey:ExpenseID" json:"splits"`
}

// ExpenseSplit is one participant's owed share of an expense.
type ExpenseSplit struct {
	Base
	ExpenseID  string              `gorm:"type:uuid;not null;index" json:"expense_id"`
	UserID     string              `gorm:"type:uuid;not null" json:"user_id"`
	Amount     decimal.Decimal     `gorm:"type:numeric(15,3);not null" json:"amount"`
	Percentage decimal.NullDecimal `gorm:"type:numeric(7,4)" json:"percentage,omitempty"`
}
