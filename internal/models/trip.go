package models

import (
	"time"

	"gorm.io/datatypes"
)

// TripVisibility controls who can see a trip.
type TripVisibility string

const (
	TripVisibilityPrivate TripVisibility = "private"
	TripVisibilityShared  TripVisibility = "shared"
	TripVisibilityPublic  TripVisibility = "public"
)

// Trip is the root of the trip record graph.
type Trip struct {
	Base
	Name         string                      `gorm:"not null" json:"name"`
	Description  string                      `json:"description"`
	StartDate    time.Time                   `gorm:"not null" json:"start_date"`
	EndDate      time.Time                   `gorm:"not null" json:"end_date"`
	Destinations datatypes.JSONSlice[string] `json:"destinations"`
	Visibility   TripVisibility              `gorm:"not null;default:private" json:"visibility"`
	IsArchived   bool                        `gorm:"not null;default:false" json:"is_archived"`
	CreatorID    string                      `gorm:"type:uuid;not null;index" json:"creator_id"`

	// Relationships
	Creator       *User          `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
	Events        []Event        `gorm:"foreignKey:TripID" json:"events,omitempty"`
	Budget        *Budget        `gorm:"foreignKey:TripID" json:"budget,omitempty"`
	Tags          []Tag          `gorm:"foreignKey:TripID" json:"tags,omitempty"`
	Collaborators []Collaborator `gorm:"foreignKey:TripID" json:"collaborators,omitempty"`
}

// Duration returns the span between the trip's start and end dates.
func (t *Trip) Duration() time.Duration {
	return t.EndDate.Sub(t.StartDate)
}

// Tag is a labelled, colored marker attached to a trip.
type Tag struct {
	Base
	TripID string `gorm:"type:uuid;not null;uniqueIndex:idx_tag_trip_name" json:"trip_id"`
	Name   string `gorm:"not null;uniqueIndex:idx_tag_trip_name" json:"name"`
	Color  string `json:"color"`
}
