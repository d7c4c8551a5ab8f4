package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	apperrors "tripsync/internal/errors"
	"tripsync/internal/models"
	"tripsync/internal/pagination"
)

const maxMessageLength = 4000

// messageService handles trip chat.
type messageService struct {
	db     *gorm.DB
	notify Notifier
}

// NewMessageService creates a new MessageServicer.
func NewMessageService(db *gorm.DB, notify Notifier) MessageServicer {
	return &messageService{db: db, notify: notifierOrNoop(notify)}
}

// PostMessage stores a chat message and pushes it to connected clients.
func (s *messageService) PostMessage(ctx context.Context, userID, tripID, content string) (*models.Message, error) {
	access, err := authorize(ctx, s.db, tripID, userID, AccessView)
	if err != nil {
		return nil, err
	}
	if !access.isMember() {
		return nil, apperrors.ErrForbidden
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.WithFields(apperrors.ErrInvalidInput, "invalid message", map[string]string{"content": "is required"})
	}
	if utf8.RuneCountInString(content) > maxMessageLength {
		return nil, apperrors.WithFields(apperrors.ErrInvalidInput, "invalid message", map[string]string{"content": "is too long"})
	}

	msg := &models.Message{TripID: tripID, AuthorID: userID, Content: content}
	if err := s.db.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := s.db.WithContext(ctx).Preload("Author").First(msg, "id = ?", msg.ID).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.notify.Publish(tripID, "message.created", msg)
	return msg, nil
}

// ListMessages returns a page of messages, newest first.
func (s *messageService) ListMessages(ctx context.Context, userID, tripID string, page pagination.PageRequest) (*pagination.PageResponse[models.Message], error) {
	if _, err := authorize(ctx, s.db, tripID, userID, AccessView); err != nil {
		return nil, err
	}
	page.Defaults()

	base := s.db.WithContext(ctx).Model(&models.Message{}).Where("trip_id = ?", tripID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var messages []models.Message
	if err := base.Preload("Author").
		Order("created_at DESC").
		Scopes(pagination.Paginate(page)).
		Find(&messages).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(messages, page.Page, page.PageSize, totalItems)
	return &result, nil
}
