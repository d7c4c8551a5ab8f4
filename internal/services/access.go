package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	apperrors "tripsync/internal/errors"
	"tripsync/internal/models"
)

// AccessLevel is the permission an operation requires on a trip.
type AccessLevel int

const (
	// AccessView allows reading a trip and its content.
	AccessView AccessLevel = iota + 1
	// AccessEdit allows changing itinerary, budget, expenses and tags.
	AccessEdit
	// AccessManage allows changing the trip's collaborators and archive state.
	AccessManage
)

func (l AccessLevel) minimumRole() models.CollaboratorRole {
	switch l {
	case AccessManage:
		return models.RoleAdmin
	case AccessEdit:
		return models.RoleEditor
	default:
		return models.RoleViewer
	}
}

// creatorRank sits above every collaborator role, owner included.
var creatorRank = models.RoleOwner.Rank() + 1

// tripAccess is the caller's resolved standing on a trip.
type tripAccess struct {
	Trip      *models.Trip
	Role      models.CollaboratorRole
	IsCreator bool
}

func (a *tripAccess) rank() int {
	if a.IsCreator {
		return creatorRank
	}
	return a.Role.Rank()
}

// authorize loads the trip and checks that userID holds at least level on
// it. A missing trip is TRIP_NOT_FOUND; an existing trip the caller cannot
// act on is FORBIDDEN. Public trips are readable by any signed-in user.
func authorize(ctx context.Context, db *gorm.DB, tripID, userID string, level AccessLevel) (*tripAccess, error) {
	var trip models.Trip
	if err := db.WithContext(ctx).Where("id = ?", tripID).First(&trip).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTripNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if trip.CreatorID == userID {
		return &tripAccess{Trip: &trip, Role: models.RoleOwner, IsCreator: true}, nil
	}

	var collab models.Collaborator
	err := db.WithContext(ctx).
		Where("trip_id = ? AND user_id = ? AND status = ?", tripID, userID, models.InvitationAccepted).
		First(&collab).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if level == AccessView && trip.Visibility == models.TripVisibilityPublic {
			return &tripAccess{Trip: &trip}, nil
		}
		return nil, apperrors.ErrForbidden
	case err != nil:
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	access := &tripAccess{Trip: &trip, Role: collab.Role}
	if access.rank() < level.minimumRole().Rank() {
		return nil, apperrors.ErrForbidden
	}
	return access, nil
}

// isMember reports whether the caller is the creator or an accepted
// collaborator. Public visibility does not make a user a member.
func (a *tripAccess) isMember() bool {
	return a.IsCreator || a.Role != ""
}

// tripMembers returns the ids of the creator and every accepted collaborator.
func tripMembers(ctx context.Context, db *gorm.DB, trip *models.Trip) (map[string]struct{}, error) {
	var ids []string
	if err := db.WithContext(ctx).Model(&models.Collaborator{}).
		Where("trip_id = ? AND status = ?", trip.ID, models.InvitationAccepted).
		Pluck("user_id", &ids).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	members := make(map[string]struct{}, len(ids)+1)
	members[trip.CreatorID] = struct{}{}
	for _, id := range ids {
		members[id] = struct{}{}
	}
	return members, nil
}
