package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "tripsync/internal/errors"
	"tripsync/internal/models"
)

const (
	minPollOptions = 2
	maxPollOptions = 20
)

// pollService handles trip polls.
type pollService struct {
	db     *gorm.DB
	notify Notifier
	now    func() time.Time
}

// NewPollService creates a new PollServicer.
func NewPollService(db *gorm.DB, notify Notifier) PollServicer {
	return &pollService{db: db, notify: notifierOrNoop(notify), now: time.Now}
}

// CreatePoll creates a poll with its options in one transaction.
func (s *pollService) CreatePoll(ctx context.Context, userID, tripID, question string, options []string, closesAt *time.Time) (*PollResults, error) {
	access, err := authorize(ctx, s.db, tripID, userID, AccessView)
	if err != nil {
		return nil, err
	}
	if !access.isMember() {
		return nil, apperrors.ErrForbidden
	}

	fields := make(map[string]string)
	question = strings.TrimSpace(question)
	if question == "" {
		fields["question"] = "is required"
	}
	var texts []string
	for _, o := range options {
		if o = strings.TrimSpace(o); o != "" {
			texts = append(texts, o)
		}
	}
	if len(texts) < minPollOptions || len(texts) > maxPollOptions {
		fields["options"] = "must have between 2 and 20 non-empty options"
	}
	if closesAt != nil && !closesAt.After(s.now()) {
		fields["closes_at"] = "must be in the future"
	}
	if len(fields) > 0 {
		return nil, apperrors.WithFields(apperrors.ErrInvalidInput, "invalid poll", fields)
	}

	poll := &models.Poll{TripID: tripID, AuthorID: userID, Question: question, ClosesAt: closesAt}
	for i, text := range texts {
		poll.Options = append(poll.Options, models.PollOption{Text: text, Position: i})
	}
	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(poll).Error
	}); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	results := s.tally(*poll, nil, userID)
	s.notify.Publish(tripID, "poll.created", results)
	return &results, nil
}

// ListPolls returns a trip's polls with their current counts, newest first.
func (s *pollService) ListPolls(ctx context.Context, userID, tripID string) ([]PollResults, error) {
	if _, err := authorize(ctx, s.db, tripID, userID, AccessView); err != nil {
		return nil, err
	}

	var polls []models.Poll
	if err := s.db.WithContext(ctx).
		Preload("Options", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("trip_id = ?", tripID).
		Order("created_at DESC").
		Find(&polls).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if len(polls) == 0 {
		return []PollResults{}, nil
	}

	ids := make([]string, len(polls))
	for i, p := range polls {
		ids[i] = p.ID
	}
	var votes []models.PollVote
	if err := s.db.WithContext(ctx).Where("poll_id IN ?", ids).Find(&votes).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	byPoll := make(map[string][]models.PollVote, len(polls))
	for _, v := range votes {
		byPoll[v.PollID] = append(byPoll[v.PollID], v)
	}

	out := make([]PollResults, len(polls))
	for i, p := range polls {
		out[i] = s.tally(p, byPoll[p.ID], userID)
	}
	return out, nil
}

// Vote records the caller's choice. A user has one vote per poll and may
// change it until the poll closes.
func (s *pollService) Vote(ctx context.Context, userID, tripID, pollID, optionID string) (*PollResults, error) {
	access, err := authorize(ctx, s.db, tripID, userID, AccessView)
	if err != nil {
		return nil, err
	}
	if !access.isMember() {
		return nil, apperrors.ErrForbidden
	}

	poll, err := s.findPoll(ctx, tripID, pollID)
	if err != nil {
		return nil, err
	}
	if poll.IsClosed(s.now()) {
		return nil, apperrors.ErrPollClosed
	}
	found := false
	for _, o := range poll.Options {
		if o.ID == optionID {
			found = true
			break
		}
	}
	if !found {
		return nil, apperrors.ErrOptionNotFound
	}

	vote := &models.PollVote{PollID: poll.ID, OptionID: optionID, UserID: userID}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "poll_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"option_id", "updated_at"}),
	}).Create(vote).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var votes []models.PollVote
	if err := s.db.WithContext(ctx).Where("poll_id = ?", poll.ID).Find(&votes).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	results := s.tally(*poll, votes, userID)
	s.notify.Publish(tripID, "poll.voted", map[string]interface{}{"poll_id": poll.ID, "total_votes": results.TotalVotes})
	return &results, nil
}

func (s *pollService) findPoll(ctx context.Context, tripID, pollID string) (*models.Poll, error) {
	var poll models.Poll
	if err := s.db.WithContext(ctx).
		Preload("Options", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("id = ? AND trip_id = ?", pollID, tripID).
		First(&poll).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrPollNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &poll, nil
}

func (s *pollService) tally(poll models.Poll, votes []models.PollVote, userID string) PollResults {
	counts := make(map[string]int, len(poll.Options))
	results := PollResults{Poll: poll, Closed: poll.IsClosed(s.now())}
	for _, v := range votes {
		counts[v.OptionID]++
		results.TotalVotes++
		if v.UserID == userID {
			id := v.OptionID
			results.MyOptionID = &id
		}
	}
	results.Options = make([]OptionResult, len(poll.Options))
	for i, o := range poll.Options {
		results.Options[i] = OptionResult{PollOption: o, Votes: counts[o.ID]}
	}
	return results
}
