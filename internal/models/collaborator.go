package models

import "time"

// CollaboratorRole is the permission level granted on a trip.
type CollaboratorRole string

const (
	RoleOwner  CollaboratorRole = "owner"
	RoleAdmin  CollaboratorRole = "admin"
	RoleEditor CollaboratorRole = "editor"
	RoleViewer CollaboratorRole = "viewer"
)

// Rank orders roles from least to most privileged; unknown roles rank 0.
func (r CollaboratorRole) Rank() int {
	switch r {
	case RoleViewer:
		return 1
	case RoleEditor:
		return 2
	case RoleAdmin:
		return 3
	case RoleOwner:
		return 4
	}
	return 0
}

// InvitationStatus tracks whether an invitee has joined the trip.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
)

// Collaborator grants a user access to a trip.
type Collaborator struct {
	Base
	TripID      string           `gorm:"type:uuid;not null;uniqueIndex:idx_collab_trip_user" json:"trip_id"`
	UserID      string           `gorm:"type:uuid;not null;uniqueIndex:idx_collab_trip_user" json:"user_id"`
	Role        CollaboratorRole `gorm:"not null" json:"role"`
	Status      InvitationStatus `gorm:"not null;default:pending" json:"status"`
	InvitedByID string           `gorm:"type:uuid;not null" json:"invited_by_id"`
	RespondedAt *time.Time       `json:"responded_at,omitempty"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Trip *Trip `gorm:"foreignKey:TripID" json:"trip,omitempty"`
}
