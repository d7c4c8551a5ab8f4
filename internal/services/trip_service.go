package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"tripsync/internal/duplicate"
	apperrors "tripsync/internal/errors"
	"tripsync/internal/logger"
	"tripsync/internal/models"
	"tripsync/internal/pagination"
)

var tripSortColumns = map[string]string{
	"name":       "name",
	"start_date": "start_date",
	"created_at": "created_at",
}

// tripService handles trip-related business logic.
type tripService struct {
	db     *gorm.DB
	notify Notifier
	now    func() time.Time
}

// NewTripService creates a new TripServicer.
func NewTripService(db *gorm.DB, notify Notifier) TripServicer {
	return &tripService{db: db, notify: notifierOrNoop(notify), now: time.Now}
}

// CreateTrip creates a trip owned by userID.
func (s *tripService) CreateTrip(ctx context.Context, userID string, in TripInput) (*models.Trip, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "name is required")
	}
	if in.EndDate.Before(in.StartDate) {
		return nil, apperrors.ErrInvalidDateRange
	}

	visibility := in.Visibility
	if visibility == "" {
		visibility = models.TripVisibilityPrivate
	}

	trip := &models.Trip{
		Name:         name,
		Description:  in.Description,
		StartDate:    in.StartDate,
		EndDate:      in.EndDate,
		Destinations: datatypes.JSONSlice[string](cleanDestinations(in.Destinations)),
		Visibility:   visibility,
		CreatorID:    userID,
	}
	if err := s.db.WithContext(ctx).Create(trip).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return trip, nil
}

// ListTrips returns the trips the user created or has joined.
func (s *tripService) ListTrips(ctx context.Context, userID string, page pagination.PageRequest, archived *bool) (*pagination.PageResponse[models.Trip], error) {
	page.Defaults()

	joined := s.db.Model(&models.Collaborator{}).
		Select("trip_id").
		Where("user_id = ? AND status = ?", userID, models.InvitationAccepted)

	base := s.db.WithContext(ctx).Model(&models.Trip{}).
		Where("creator_id = ? OR id IN (?)", userID, joined)
	if archived != nil {
		base = base.Where("is_archived = ?", *archived)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var trips []models.Trip
	if err := base.Preload("Tags").
		Order(page.OrderClause(tripSortColumns, "start_date ASC")).
		Scopes(pagination.Paginate(page)).
		Find(&trips).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(trips, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetTrip returns a trip with its tags, budget and accepted collaborators.
func (s *tripService) GetTrip(ctx context.Context, userID, tripID string) (*models.Trip, error) {
	if _, err := authorize(ctx, s.db, tripID, userID, AccessView); err != nil {
		return nil, err
	}
	return s.loadTrip(ctx, tripID)
}

func (s *tripService) loadTrip(ctx context.Context, tripID string) (*models.Trip, error) {
	var trip models.Trip
	err := s.db.WithContext(ctx).
		Preload("Tags").
		Preload("Budget").
		Preload("Creator").
		Preload("Collaborators", "status = ?", models.InvitationAccepted).
		Preload("Collaborators.User").
		Where("id = ?", tripID).
		First(&trip).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTripNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &trip, nil
}

// UpdateTrip applies the non-nil fields of in.
func (s *tripService) UpdateTrip(ctx context.Context, userID, tripID string, in TripUpdate) (*models.Trip, error) {
	access, err := authorize(ctx, s.db, tripID, userID, AccessEdit)
	if err != nil {
		return nil, err
	}
	trip := access.Trip

	updates := make(map[string]interface{})
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "name cannot be empty")
		}
		updates["name"] = name
	}
	if in.Description != nil {
		updates["description"] = *in.Description
	}
	start, end := trip.StartDate, trip.EndDate
	if in.StartDate != nil {
		start = *in.StartDate
		updates["start_date"] = start
	}
	if in.EndDate != nil {
		end = *in.EndDate
		updates["end_date"] = end
	}
	if end.Before(start) {
		return nil, apperrors.ErrInvalidDateRange
	}
	if in.Destinations != nil {
		updates["destinations"] = datatypes.JSONSlice[string](cleanDestinations(in.Destinations))
	}
	if in.Visibility != nil {
		updates["visibility"] = *in.Visibility
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(trip).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		s.notify.Publish(tripID, "trip.updated", updates)
	}

	return s.loadTrip(ctx, tripID)
}

// SetArchived archives or restores a trip.
func (s *tripService) SetArchived(ctx context.Context, userID, tripID string, archived bool) (*models.Trip, error) {
	access, err := authorize(ctx, s.db, tripID, userID, AccessManage)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(access.Trip).Update("is_archived", archived).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return s.loadTrip(ctx, tripID)
}

// DeleteTrip soft-deletes a trip. Only its creator may do this.
func (s *tripService) DeleteTrip(ctx context.Context, userID, tripID string) error {
	access, err := authorize(ctx, s.db, tripID, userID, AccessView)
	if err != nil {
		return err
	}
	if !access.IsCreator {
		return apperrors.WithMessage(apperrors.ErrForbidden, "only the trip creator can delete it")
	}
	if err := s.db.WithContext(ctx).Delete(access.Trip).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// DuplicateTrip copies a trip's itinerary, budget plan and tags into a new
// private trip owned by requesterID. Expenses, collaborators and social
// content stay with the original. The copy starts on startDate, or today
// when nil, and keeps the original duration and event offsets. All records
// are written in one transaction.
func (s *tripService) DuplicateTrip(ctx context.Context, requesterID, tripID string, startDate *time.Time) (*models.Trip, error) {
	access, err := authorize(ctx, s.db, tripID, requesterID, AccessView)
	if err != nil {
		return nil, err
	}
	if !access.isMember() {
		return nil, apperrors.ErrForbidden
	}

	src, err := s.loadSource(ctx, access.Trip)
	if err != nil {
		return nil, err
	}

	start := duplicate.StartOfDay(s.now())
	if startDate != nil {
		start = *startDate
	}
	plan := duplicate.Build(*src, requesterID, start)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&plan.Trip).Error; err != nil {
			return err
		}
		if len(plan.Events) > 0 {
			if err := tx.Create(&plan.Events).Error; err != nil {
				return err
			}
		}
		if plan.Budget != nil {
			if err := tx.Create(plan.Budget).Error; err != nil {
				return err
			}
		}
		if len(plan.Tags) > 0 {
			if err := tx.Create(&plan.Tags).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logger.Get().Errorw("trip duplication rolled back",
			"trip_id", tripID,
			"requester_id", requesterID,
			"error", err,
		)
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return s.loadTrip(ctx, plan.Trip.ID)
}

func (s *tripService) loadSource(ctx context.Context, trip *models.Trip) (*duplicate.Source, error) {
	src := &duplicate.Source{Trip: *trip}
	db := s.db.WithContext(ctx)

	if err := db.Where("trip_id = ?", trip.ID).Order("start_time ASC").Find(&src.Events).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := db.Where("trip_id = ?", trip.ID).Order("name ASC").Find(&src.Tags).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var budget models.Budget
	err := db.Where("trip_id = ?", trip.ID).First(&budget).Error
	switch {
	case err == nil:
		src.Budget = &budget
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return src, nil
}

func cleanDestinations(in []string) []string {
	out := make([]string, 0, len(in))
	for _, d := range in {
		if d = strings.TrimSpace(d); d != "" {
			out = append(out, d)
		}
	}
	return out
}
