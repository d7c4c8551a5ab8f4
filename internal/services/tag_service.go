package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	apperrors "tripsync/internal/errors"
	"tripsync/internal/models"
)

const defaultTagColor = "#6b7280"

// tagService handles trip tags.
type tagService struct {
	db *gorm.DB
}

// NewTagService creates a new TagServicer.
func NewTagService(db *gorm.DB) TagServicer {
	return &tagService{db: db}
}

// CreateTag adds a tag to a trip. Names are unique per trip, ignoring case.
func (s *tagService) CreateTag(ctx context.Context, userID, tripID, name, color string) (*models.Tag, error) {
	if _, err := authorize(ctx, s.db, tripID, userID, AccessEdit); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.WithFields(apperrors.ErrInvalidInput, "invalid tag", map[string]string{"name": "is required"})
	}
	if color == "" {
		color = defaultTagColor
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Tag{}).
		Where("trip_id = ? AND LOWER(name) = ?", tripID, strings.ToLower(name)).
		Count(&count).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return nil, apperrors.ErrDuplicateTag
	}

	tag := &models.Tag{TripID: tripID, Name: name, Color: strings.ToLower(color)}
	if err := s.db.WithContext(ctx).Create(tag).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return tag, nil
}

// ListTags returns a trip's tags sorted by name.
func (s *tagService) ListTags(ctx context.Context, userID, tripID string) ([]models.Tag, error) {
	if _, err := authorize(ctx, s.db, tripID, userID, AccessView); err != nil {
		return nil, err
	}
	var tags []models.Tag
	if err := s.db.WithContext(ctx).Where("trip_id = ?", tripID).Order("name ASC").Find(&tags).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return tags, nil
}

// DeleteTag removes a tag from a trip.
func (s *tagService) DeleteTag(ctx context.Context, userID, tripID, tagID string) error {
	if _, err := authorize(ctx, s.db, tripID, userID, AccessEdit); err != nil {
		return err
	}
	var tag models.Tag
	if err := s.db.WithContext(ctx).Where("id = ? AND trip_id = ?", tagID, tripID).First(&tag).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrTagNotFound
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := s.db.WithContext(ctx).Unscoped().Delete(&tag).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
