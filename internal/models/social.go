package models

import "time"

// Message is a chat message posted to a trip.
type Message struct {
	Base
	TripID   string `gorm:"type:uuid;not null;index" json:"trip_id"`
	AuthorID string `gorm:"type:uuid;not null" json:"author_id"`
	Content  string `gorm:"not null" json:"content"`

	Author *User `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
}

// Idea is a suggestion collaborators can up- or down-vote.
type Idea struct {
	Base
	TripID      string     `gorm:"type:uuid;not null;index" json:"trip_id"`
	AuthorID    string     `gorm:"type:uuid;not null" json:"author_id"`
	Title       string     `gorm:"not null" json:"title"`
	Description string     `json:"description"`
	URL         string     `json:"url,omitempty"`
	Votes       []IdeaVote `gorm:"foreignKey:IdeaID" json:"votes,omitempty"`
}

// IdeaVote is one user's +1/-1 on an idea.
type IdeaVote struct {
	Base
	IdeaID string `gorm:"type:uuid;not null;uniqueIndex:idx_idea_vote_user" json:"idea_id"`
	UserID string `gorm:"type:uuid;not null;uniqueIndex:idx_idea_vote_user" json:"user_id"`
	Value  int    `gorm:"not null" json:"value"`
}

// Poll is a multiple-choice question asked to trip collaborators.
type Poll struct {
	Base
	TripID   string       `gorm:"type:uuid;not null;index" json:"trip_id"`
	AuthorID string       `gorm:"type:uuid;not null" json:"author_id"`
	Question string       `gorm:"not null" json:"question"`
	ClosesAt *time.Time   `json:"closes_at,omitempty"`
	Options  []PollOption `gorm:"foreignKey:PollID" json:"options,omitempty"`
}

// IsClosed reports whether the poll no longer accepts votes at t.
func (p *Poll) IsClosed(t time.Time) bool {
	return p.ClosesAt != nil && !t.Before(*p.ClosesAt)
}

// PollOption is one answer of a poll.
type PollOption struct {
	Base
	PollID   string `gorm:"type:uuid;not null;index" json:"poll_id"`
	Text     string `gorm:"not null" json:"text"`
	Position int    `gorm:"not null" json:"position"`
}

// PollVote records a user's chosen option; one per user per poll.
type PollVote struct {
	Base
	PollID   string `gorm:"type:uuid;not null;uniqueIndex:idx_poll_vote_user" json:"poll_id"`
	OptionID string `gorm:"type:uuid;not null" json:"option_id"`
	UserID   string `gorm:"type:uuid;not null;uniqueIndex:idx_poll_vote_user" json:"user_id"`
}
