package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventType represents the kind of itinerary item.
type EventType string

const (
	EventTypeFlight         EventType = "flight"
	EventTypeHotel          EventType = "hotel"
	EventTypeActivity       EventType = "activity"
	EventTypeRestaurant     EventType = "restaurant"
	EventTypeTransportation EventType = "transportation"
	EventTypeDestination    EventType = "destination"
)

// Event is a single itinerary item of a trip.
type Event struct {
	Base
	TripID       string          `gorm:"type:uuid;not null;index" json:"trip_id"`
	Type         EventType       `gorm:"not null" json:"type"`
	Title        string          `gorm:"not null" json:"title"`
	Description  string          `json:"description"`
	StartTime    time.Time       `gorm:"not null" json:"start_time"`
	EndTime      *time.Time      `json:"end_time,omitempty"`
	LocationName string          `json:"location_name"`
	Latitude     *float64        `json:"latitude,omitempty"`
	Longitude    *float64        `json:"longitude,omitempty"`
	CostAmount   decimal.Decimal `gorm:"type:numeric(15,3);not null;default:0" json:"cost_amount"`
	CostCurrency string          `gorm:"size:3" json:"cost_currency"`
	Order        int             `gorm:"column:sort_order;not null;default:0" json:"order"`
	Recurrence   string          `json:"recurrence,omitempty"`
	CreatedByID  string          `gorm:"type:uuid;not null" json:"created_by_id"`
}
