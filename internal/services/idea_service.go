package services

import (
	"context"
	"errors"
	"sort"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "tripsync/internal/errors"
	"tripsync/internal/models"
)

// ideaService handles trip ideas and their votes.
type ideaService struct {
	db     *gorm.DB
	notify Notifier
}

// NewIdeaService creates a new IdeaServicer.
func NewIdeaService(db *gorm.DB, notify Notifier) IdeaServicer {
	return &ideaService{db: db, notify: notifierOrNoop(notify)}
}

// CreateIdea posts a new idea to a trip.
func (s *ideaService) CreateIdea(ctx context.Context, userID, tripID, title, description, url string) (*IdeaSummary, error) {
	access, err := authorize(ctx, s.db, tripID, userID, AccessView)
	if err != nil {
		return nil, err
	}
	if !access.isMember() {
		return nil, apperrors.ErrForbidden
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperrors.WithFields(apperrors.ErrInvalidInput, "invalid idea", map[string]string{"title": "is required"})
	}

	idea := &models.Idea{TripID: tripID, AuthorID: userID, Title: title, Description: description, URL: url}
	if err := s.db.WithContext(ctx).Create(idea).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	summary := summarizeIdea(*idea, userID)
	s.notify.Publish(tripID, "idea.created", summary)
	return &summary, nil
}

// ListIdeas returns a trip's ideas, highest score first.
func (s *ideaService) ListIdeas(ctx context.Context, userID, tripID string) ([]IdeaSummary, error) {
	if _, err := authorize(ctx, s.db, tripID, userID, AccessView); err != nil {
		return nil, err
	}
	var ideas []models.Idea
	if err := s.db.WithContext(ctx).Preload("Votes").
		Where("trip_id = ?", tripID).
		Order("created_at ASC").
		Find(&ideas).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	out := make([]IdeaSummary, len(ideas))
	for i, idea := range ideas {
		out[i] = summarizeIdea(idea, userID)
	}
	sortByScore(out)
	return out, nil
}

// VoteIdea records the caller's +1 or -1, replacing any earlier vote.
func (s *ideaService) VoteIdea(ctx context.Context, userID, tripID, ideaID string, value int) (*IdeaSummary, error) {
	if value != 1 && value != -1 {
		return nil, apperrors.WithFields(apperrors.ErrInvalidInput, "invalid vote", map[string]string{"value": "must be 1 or -1"})
	}
	idea, err := s.memberIdea(ctx, userID, tripID, ideaID)
	if err != nil {
		return nil, err
	}

	vote := &models.IdeaVote{IdeaID: idea.ID, UserID: userID, Value: value}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "idea_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(vote).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return s.reload(ctx, tripID, idea.ID, userID)
}

// RemoveVote withdraws the caller's vote. Removing a missing vote is a no-op.
func (s *ideaService) RemoveVote(ctx context.Context, userID, tripID, ideaID string) (*IdeaSummary, error) {
	idea, err := s.memberIdea(ctx, userID, tripID, ideaID)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Unscoped().
		Where("idea_id = ? AND user_id = ?", idea.ID, userID).
		Delete(&models.IdeaVote{}).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return s.reload(ctx, tripID, idea.ID, userID)
}

// DeleteIdea removes an idea. Its author or a trip admin may do this.
func (s *ideaService) DeleteIdea(ctx context.Context, userID, tripID, ideaID string) error {
	access, err := authorize(ctx, s.db, tripID, userID, AccessView)
	if err != nil {
		return err
	}
	idea, err := s.findIdea(ctx, tripID, ideaID)
	if err != nil {
		return err
	}
	if !access.isMember() || (idea.AuthorID != userID && access.rank() < models.RoleAdmin.Rank()) {
		return apperrors.ErrForbidden
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("idea_id = ?", idea.ID).Delete(&models.IdeaVote{}).Error; err != nil {
			return err
		}
		return tx.Delete(idea).Error
	})
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

func (s *ideaService) memberIdea(ctx context.Context, userID, tripID, ideaID string) (*models.Idea, error) {
	access, err := authorize(ctx, s.db, tripID, userID, AccessView)
	if err != nil {
		return nil, err
	}
	if !access.isMember() {
		return nil, apperrors.ErrForbidden
	}
	return s.findIdea(ctx, tripID, ideaID)
}

func (s *ideaService) findIdea(ctx context.Context, tripID, ideaID string) (*models.Idea, error) {
	var idea models.Idea
	if err := s.db.WithContext(ctx).Preload("Votes").
		Where("id = ? AND trip_id = ?", ideaID, tripID).
		First(&idea).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrIdeaNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &idea, nil
}

func (s *ideaService) reload(ctx context.Context, tripID, ideaID, userID string) (*IdeaSummary, error) {
	idea, err := s.findIdea(ctx, tripID, ideaID)
	if err != nil {
		return nil, err
	}
	summary := summarizeIdea(*idea, userID)
	s.notify.Publish(tripID, "idea.voted", map[string]interface{}{"idea_id": ideaID, "score": summary.Score})
	return &summary, nil
}

func summarizeIdea(idea models.Idea, userID string) IdeaSummary {
	summary := IdeaSummary{Idea: idea}
	for _, v := range idea.Votes {
		summary.Score += v.Value
		if v.UserID == userID {
			summary.MyVote = v.Value
		}
	}
	return summary
}

func sortByScore(ideas []IdeaSummary) {
	sort.SliceStable(ideas, func(i, j int) bool { return ideas[i].Score > ideas[j].Score })
}
