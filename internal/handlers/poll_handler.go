package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tripsync/internal/services"
)

// PollHandler handles trip poll requests.
type PollHandler struct {
	pollService services.PollServicer
}

// NewPollHandler creates a new PollHandler.
func NewPollHandler(pollService services.PollServicer) *PollHandler {
	return &PollHandler{pollService: pollService}
}

// CreatePollRequest represents the request payload for opening a poll
type CreatePollRequest struct {
	Question string     `json:"question" binding:"required,min=1,max=300"`
	Options  []string   `json:"options" binding:"required,min=2,max=20,dive,required,max=200"`
	ClosesAt *time.Time `json:"closes_at"`
}

// PollVoteRequest represents a vote for one poll option
type PollVoteRequest struct {
	OptionID string `json:"option_id" binding:"required,uuid"`
}

// CreatePoll opens a poll on a trip
// @Summary     Create a poll
// @Tags        polls
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string            true "Trip ID"
// @Param       request body CreatePollRequest true "Poll"
// @Success     201 {object} services.PollResults
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Not a member of the trip"
// @Router      /trips/{id}/polls [post]
func (h *PollHandler) CreatePoll(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	tripID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreatePollRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}

	poll, err := h.pollService.CreatePoll(c.Request.Context(), userID, tripID, req.Question, req.Options, req.ClosesAt)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"poll": poll})
}

// ListPolls lists a trip's polls with their counts
// @Summary     List polls
// @Tags        polls
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Trip ID"
// @Success     200 {array} services.PollResults
// @Failure     403 {object} ErrorResponse "No access to trip"
// @Router      /trips/{id}/polls [get]
func (h *PollHandler) ListPolls(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	tripID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	polls, err := h.pollService.ListPolls(c.Request.Context(), userID, tripID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"polls": polls})
}

// Vote casts or changes the caller's vote
// @Summary     Vote in a poll
// @Tags        polls
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string          true "Trip ID"
// @Param       pollId  path string          true "Poll ID"
// @Param       request body PollVoteRequest true "Chosen option"
// @Success     200 {object} services.PollResults
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Poll or option not found"
// @Failure     409 {object} ErrorResponse "Poll closed"
// @Router      /trips/{id}/polls/{pollId}/vote [post]
func (h *PollHandler) Vote(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	tripID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}
	pollID, err := parsePathID(c, "pollId")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req PollVoteRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}

	poll, err := h.pollService.Vote(c.Request.Context(), userID, tripID, pollID, req.OptionID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"poll": poll})
}
