package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	apperrors "tripsync/internal/errors"
	"tripsync/internal/itinerary"
	"tripsync/internal/models"
)

// eventService handles itinerary events.
type eventService struct {
	db     *gorm.DB
	notify Notifier
	now    func() time.Time
}

// NewEventService creates a new EventServicer.
func NewEventService(db *gorm.DB, notify Notifier) EventServicer {
	return &eventService{db: db, notify: notifierOrNoop(notify), now: time.Now}
}

// CreateEvent adds an event to a trip. Without an explicit order the event
// is placed after every existing one.
func (s *eventService) CreateEvent(ctx context.Context, userID, tripID string, in EventInput) (*models.Event, error) {
	if _, err := authorize(ctx, s.db, tripID, userID, AccessEdit); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "title is required")
	}
	if err := validateEventTimes(in.StartTime, in.EndTime, in.Recurrence); err != nil {
		return nil, err
	}
	if err := validateCoordinates(in.Latitude, in.Longitude); err != nil {
		return nil, err
	}

	event := &models.Event{
		TripID:       tripID,
		Type:         in.Type,
		Title:        strings.TrimSpace(in.Title),
		Description:  in.Description,
		StartTime:    in.StartTime,
		EndTime:      in.EndTime,
		LocationName: in.LocationName,
		Latitude:     in.Latitude,
		Longitude:    in.Longitude,
		CostAmount:   in.CostAmount,
		CostCurrency: strings.ToUpper(in.CostCurrency),
		Recurrence:   strings.TrimPrefix(strings.TrimSpace(in.Recurrence), "RRULE:"),
		CreatedByID:  userID,
	}

	if in.Order != nil {
		event.Order = *in.Order
	} else {
		var maxOrder sql.NullInt64
		row := s.db.WithContext(ctx).Model(&models.Event{}).
			Where("trip_id = ?", tripID).
			Select("MAX(sort_order)").
			Row()
		if err := row.Scan(&maxOrder); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if maxOrder.Valid {
			event.Order = int(maxOrder.Int64) + 1
		}
	}

	if err := s.db.WithContext(ctx).Create(event).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	s.notify.Publish(tripID, "event.created", event)
	return event, nil
}

// ListEvents returns a trip's events in itinerary order.
func (s *eventService) ListEvents(ctx context.Context, userID, tripID string) ([]models.Event, error) {
	if _, err := authorize(ctx, s.db, tripID, userID, AccessView); err != nil {
		return nil, err
	}
	return s.tripEvents(ctx, tripID)
}

func (s *eventService) tripEvents(ctx context.Context, tripID string) ([]models.Event, error) {
	var events []models.Event
	if err := s.db.WithContext(ctx).
		Where("trip_id = ?", tripID).
		Order("start_time ASC").
		Order("sort_order ASC").
		Find(&events).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return events, nil
}

// GetEvent returns one event of a trip.
func (s *eventService) GetEvent(ctx context.Context, userID, tripID, eventID string) (*models.Event, error) {
	if _, err := authorize(ctx, s.db, tripID, userID, AccessView); err != nil {
		return nil, err
	}
	return s.findEvent(ctx, tripID, eventID)
}

func (s *eventService) findEvent(ctx context.Context, tripID, eventID string) (*models.Event, error) {
	var event models.Event
	if err := s.db.WithContext(ctx).Where("id = ? AND trip_id = ?", eventID, tripID).First(&event).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrEventNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &event, nil
}

// UpdateEvent applies the non-nil fields of in.
func (s *eventService) UpdateEvent(ctx context.Context, userID, tripID, eventID string, in EventUpdate) (*models.Event, error) {
	if _, err := authorize(ctx, s.db, tripID, userID, AccessEdit); err != nil {
		return nil, err
	}
	event, err := s.findEvent(ctx, tripID, eventID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if in.Type != nil {
		updates["type"] = *in.Type
	}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "title cannot be empty")
		}
		updates["title"] = title
	}
	if in.Description != nil {
		updates["description"] = *in.Description
	}
	start, end, rule := event.StartTime, event.EndTime, event.Recurrence
	if in.StartTime != nil {
		start = *in.StartTime
		updates["start_time"] = start
	}
	if in.EndTime != nil {
		end = in.EndTime
		updates["end_time"] = *in.EndTime
	}
	if in.Recurrence != nil {
		rule = strings.TrimPrefix(strings.TrimSpace(*in.Recurrence), "RRULE:")
		updates["recurrence"] = rule
	}
	if err := validateEventTimes(start, end, rule); err != nil {
		return nil, err
	}
	if in.LocationName != nil {
		updates["location_name"] = *in.LocationName
	}
	lat, lng := event.Latitude, event.Longitude
	if in.Latitude != nil {
		lat = in.Latitude
		updates["latitude"] = *in.Latitude
	}
	if in.Longitude != nil {
		lng = in.Longitude
		updates["longitude"] = *in.Longitude
	}
	if err := validateCoordinates(lat, lng); err != nil {
		return nil, err
	}
	if in.CostAmount != nil {
		updates["cost_amount"] = *in.CostAmount
	}
	if in.CostCurrency != nil {
		updates["cost_currency"] = strings.ToUpper(*in.CostCurrency)
	}
	if in.Order != nil {
		updates["sort_order"] = *in.Order
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(event).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		s.notify.Publish(tripID, "event.updated", map[string]string{"event_id": eventID})
	}
	return s.findEvent(ctx, tripID, eventID)
}

// DeleteEvent soft-deletes an event. Expenses linked to it keep their
// amounts but lose the link.
func (s *eventService) DeleteEvent(ctx context.Context, userID, tripID, eventID string) error {
	if _, err := authorize(ctx, s.db, tripID, userID, AccessEdit); err != nil {
		return err
	}
	event, err := s.findEvent(ctx, tripID, eventID)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Expense{}).Where("event_id = ?", eventID).Update("event_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(event).Error
	})
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	s.notify.Publish(tripID, "event.deleted", map[string]string{"event_id": eventID})
	return nil
}

// ReorderEvents sets each listed event's order to its index in eventIDs.
// Every id must belong to the trip and appear once.
func (s *eventService) ReorderEvents(ctx context.Context, userID, tripID string, eventIDs []string) ([]models.Event, error) {
	if _, err := authorize(ctx, s.db, tripID, userID, AccessEdit); err != nil {
		return nil, err
	}
	if len(eventIDs) == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "event_ids cannot be empty")
	}
	seen := make(map[string]struct{}, len(eventIDs))
	for _, id := range eventIDs {
		if _, dup := seen[id]; dup {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "event "+id+" is listed more than once")
		}
		seen[id] = struct{}{}
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Event{}).
		Where("trip_id = ? AND id IN ?", tripID, eventIDs).
		Count(&count).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if int(count) != len(eventIDs) {
		return nil, apperrors.ErrEventNotFound
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, id := range eventIDs {
			if err := tx.Model(&models.Event{}).Where("id = ? AND trip_id = ?", id, tripID).Update("sort_order", i).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	s.notify.Publish(tripID, "events.reordered", map[string][]string{"event_ids": eventIDs})
	return s.tripEvents(ctx, tripID)
}

// GetItinerary returns the trip's events laid out day by day.
func (s *eventService) GetItinerary(ctx context.Context, userID, tripID string) (*itinerary.Itinerary, error) {
	access, err := authorize(ctx, s.db, tripID, userID, AccessView)
	if err != nil {
		return nil, err
	}
	events, err := s.tripEvents(ctx, tripID)
	if err != nil {
		return nil, err
	}
	it := itinerary.Build(*access.Trip, events)
	return &it, nil
}

// ExportCalendar renders the trip's events as an iCalendar document.
func (s *eventService) ExportCalendar(ctx context.Context, userID, tripID string) (string, error) {
	access, err := authorize(ctx, s.db, tripID, userID, AccessView)
	if err != nil {
		return "", err
	}
	events, err := s.tripEvents(ctx, tripID)
	if err != nil {
		return "", err
	}
	return itinerary.Calendar(*access.Trip, events, s.now()), nil
}

func validateEventTimes(start time.Time, end *time.Time, rule string) error {
	if start.IsZero() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "start_time is required")
	}
	if end != nil && end.Before(start) {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "end_time cannot be before start_time")
	}
	if rule != "" {
		if _, err := itinerary.ParseRecurrence(rule, start); err != nil {
			return apperrors.WithMessage(apperrors.ErrInvalidRecurrence, "invalid recurrence rule: "+err.Error())
		}
	}
	return nil
}

func validateCoordinates(lat, lng *float64) error {
	if (lat == nil) != (lng == nil) {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "latitude and longitude must be set together")
	}
	if lat != nil && (*lat < -90 || *lat > 90 || *lng < -180 || *lng > 180) {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "coordinates out of range")
	}
	return nil
}
