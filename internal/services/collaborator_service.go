package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	apperrors "tripsync/internal/errors"
	"tripsync/internal/models"
)

// collaboratorService handles trip sharing and invitations.
type collaboratorService struct {
	db     *gorm.DB
	notify Notifier
	now    func() time.Time
}

// NewCollaboratorService creates a new CollaboratorServicer.
func NewCollaboratorService(db *gorm.DB, notify Notifier) CollaboratorServicer {
	return &collaboratorService{db: db, notify: notifierOrNoop(notify), now: time.Now}
}

// InviteCollaborator creates a pending invitation for the user registered
// under email. Only the trip creator may grant the owner role, and nobody
// may grant a role above their own.
func (s *collaboratorService) InviteCollaborator(ctx context.Context, userID, tripID, email string, role models.CollaboratorRole) (*models.Collaborator, error) {
	access, err := authorize(ctx, s.db, tripID, userID, AccessManage)
	if err != nil {
		return nil, err
	}
	if err := checkGrant(access, role); err != nil {
		return nil, err
	}

	var invitee models.User
	if err := s.db.WithContext(ctx).
		Where("email = ? AND is_active = ?", strings.ToLower(strings.TrimSpace(email)), true).
		First(&invitee).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if invitee.ID == access.Trip.CreatorID {
		return nil, apperrors.WithMessage(apperrors.ErrAlreadyCollaborator, "the trip creator already has full access")
	}

	var existing int64
	if err := s.db.WithContext(ctx).Model(&models.Collaborator{}).
		Where("trip_id = ? AND user_id = ?", tripID, invitee.ID).
		Count(&existing).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if existing > 0 {
		return nil, apperrors.ErrAlreadyCollaborator
	}

	collab := &models.Collaborator{
		TripID:      tripID,
		UserID:      invitee.ID,
		Role:        role,
		Status:      models.InvitationPending,
		InvitedByID: userID,
	}
	if err := s.db.WithContext(ctx).Create(collab).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	collab.User = &invitee
	return collab, nil
}

// ListCollaborators returns everyone invited to the trip, pending included.
func (s *collaboratorService) ListCollaborators(ctx context.Context, userID, tripID string) ([]models.Collaborator, error) {
	if _, err := authorize(ctx, s.db, tripID, userID, AccessView); err != nil {
		return nil, err
	}
	var collabs []models.Collaborator
	if err := s.db.WithContext(ctx).Preload("User").
		Where("trip_id = ?", tripID).
		Order("created_at ASC").
		Find(&collabs).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return collabs, nil
}

// AcceptInvitation turns the caller's pending invitation into membership.
func (s *collaboratorService) AcceptInvitation(ctx context.Context, userID, tripID string) (*models.Collaborator, error) {
	collab, err := s.pendingInvitation(ctx, userID, tripID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := s.db.WithContext(ctx).Model(collab).Updates(map[string]interface{}{
		"status":       models.InvitationAccepted,
		"responded_at": now,
	}).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	collab.Status = models.InvitationAccepted
	collab.RespondedAt = &now
	s.notify.Publish(tripID, "collaborator.joined", map[string]string{"user_id": userID, "role": string(collab.Role)})
	return collab, nil
}

// DeclineInvitation discards the caller's pending invitation.
func (s *collaboratorService) DeclineInvitation(ctx context.Context, userID, tripID string) error {
	collab, err := s.pendingInvitation(ctx, userID, tripID)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Unscoped().Delete(collab).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

func (s *collaboratorService) pendingInvitation(ctx context.Context, userID, tripID string) (*models.Collaborator, error) {
	var collab models.Collaborator
	if err := s.db.WithContext(ctx).
		Where("trip_id = ? AND user_id = ? AND status = ?", tripID, userID, models.InvitationPending).
		First(&collab).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvitationNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &collab, nil
}

// UpdateRole changes a collaborator's role. A manager can only act on
// collaborators ranked at or below themselves.
func (s *collaboratorService) UpdateRole(ctx context.Context, userID, tripID, targetUserID string, role models.CollaboratorRole) (*models.Collaborator, error) {
	access, err := authorize(ctx, s.db, tripID, userID, AccessManage)
	if err != nil {
		return nil, err
	}
	if err := checkGrant(access, role); err != nil {
		return nil, err
	}
	collab, err := s.findCollaborator(ctx, tripID, targetUserID)
	if err != nil {
		return nil, err
	}
	if collab.Role.Rank() > access.rank() {
		return nil, apperrors.WithMessage(apperrors.ErrForbidden, "cannot change the role of a higher-ranked collaborator")
	}

	if err := s.db.WithContext(ctx).Model(collab).Update("role", role).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	collab.Role = role
	s.notify.Publish(tripID, "collaborator.role_changed", map[string]string{"user_id": targetUserID, "role": string(role)})
	return collab, nil
}

// RemoveCollaborator revokes a collaborator's access. Any collaborator may
// remove themselves; removing others requires manage access and a rank at
// or above the target's.
func (s *collaboratorService) RemoveCollaborator(ctx context.Context, userID, tripID, targetUserID string) error {
	level := AccessManage
	if userID == targetUserID {
		level = AccessView
	}
	access, err := authorize(ctx, s.db, tripID, userID, level)
	if err != nil {
		if userID == targetUserID && isForbidden(err) {
			// a pending invitee leaving is the same as declining
			if _, pendingErr := s.pendingInvitation(ctx, userID, tripID); pendingErr == nil {
				return s.DeclineInvitation(ctx, userID, tripID)
			}
		}
		return err
	}
	collab, err := s.findCollaborator(ctx, tripID, targetUserID)
	if err != nil {
		return err
	}
	if userID != targetUserID && collab.Role.Rank() > access.rank() {
		return apperrors.WithMessage(apperrors.ErrForbidden, "cannot remove a higher-ranked collaborator")
	}

	// hard delete keeps the (trip, user) unique index free for a later invite
	if err := s.db.WithContext(ctx).Unscoped().Delete(collab).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	s.notify.Publish(tripID, "collaborator.removed", map[string]string{"user_id": targetUserID})
	return nil
}

func (s *collaboratorService) findCollaborator(ctx context.Context, tripID, userID string) (*models.Collaborator, error) {
	var collab models.Collaborator
	if err := s.db.WithContext(ctx).Preload("User").
		Where("trip_id = ? AND user_id = ?", tripID, userID).
		First(&collab).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCollaboratorNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &collab, nil
}

// ListInvitations returns the caller's pending invitations with their trips.
func (s *collaboratorService) ListInvitations(ctx context.Context, userID string) ([]models.Collaborator, error) {
	var invitations []models.Collaborator
	if err := s.db.WithContext(ctx).Preload("Trip").
		Where("user_id = ? AND status = ?", userID, models.InvitationPending).
		Order("created_at DESC").
		Find(&invitations).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return invitations, nil
}

func checkGrant(access *tripAccess, role models.CollaboratorRole) error {
	if role.Rank() == 0 {
		return apperrors.WithFields(apperrors.ErrInvalidInput, "invalid role", map[string]string{"role": "must be one of owner, admin, editor, viewer"})
	}
	if role == models.RoleOwner && !access.IsCreator {
		return apperrors.WithMessage(apperrors.ErrForbidden, "only the trip creator can grant the owner role")
	}
	if role.Rank() > access.rank() {
		return apperrors.WithMessage(apperrors.ErrForbidden, "cannot grant a role above your own")
	}
	return nil
}

func isForbidden(err error) bool {
	var appErr *apperrors.AppError
	return errors.As(err, &appErr) && appErr.Code == apperrors.ErrForbidden.Code
}
