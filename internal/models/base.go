package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"tripsync/internal/uuid"
)

func init() {
	// Amounts are rendered as JSON numbers rather than quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Base contains common columns for all tables
type Base struct {
	ID        string         `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate hook generates a UUIDv7 for new records
func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.New()
	}
	return nil
}

// All lists every persistent model, in dependency order, for AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Trip{},
		&Collaborator{},
		&Tag{},
		&Event{},
		&Budget{},
		&Expense{},
		&ExpenseSplit{},
		&Message{},
		&Idea{},
		&IdeaVote{},
		&Poll{},
		&PollOption{},
		&PollVote{},
		&AuditLog{},
	}
}
