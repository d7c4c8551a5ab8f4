package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tripsync/internal/services"
)

// IdeaHandler handles trip idea requests.
type IdeaHandler struct {
	ideaService services.IdeaServicer
}

// NewIdeaHandler creates a new IdeaHandler.
func NewIdeaHandler(ideaService services.IdeaServicer) *IdeaHandler {
	return &IdeaHandler{ideaService: ideaService}
}

// CreateIdeaRequest represents the request payload for suggesting an idea
type CreateIdeaRequest struct {
	Title       string `json:"title" binding:"required,min=1,max=200"`
	Description string `json:"description" binding:"max=2000"`
	URL         string `json:"url" binding:"omitempty,url,max=2048"`
}

// VoteIdeaRequest represents an up or down vote
type VoteIdeaRequest struct {
	Value int `json:"value" binding:"required,oneof=1 -1"`
}

// CreateIdea suggests an idea for a trip
// @Summary     Create an idea
// @Tags        ideas
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string            true "Trip ID"
// @Param       request body CreateIdeaRequest true "Idea"
// @Success     201 {object} services.IdeaSummary
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Not a member of the trip"
// @Router      /trips/{id}/ideas [post]
func (h *IdeaHandler) CreateIdea(c *gin.Context) {
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

	var req CreateIdeaRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}

	idea, err := h.ideaService.CreateIdea(c.Request.Context(), userID, tripID, req.Title, req.Description, req.URL)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"idea": idea})
}

// ListIdeas lists a trip's ideas, highest score first
// @Summary     List ideas
// @Tags        ideas
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Trip ID"
// @Success     200 {array} services.IdeaSummary
// @Failure     403 {object} ErrorResponse "No access to trip"
// @Router      /trips/{id}/ideas [get]
func (h *IdeaHandler) ListIdeas(c *gin.Context) {
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

	ideas, err := h.ideaService.ListIdeas(c.Request.Context(), userID, tripID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ideas": ideas})
}

// VoteIdea records the caller's vote on an idea
// @Summary     Vote on an idea
// @Tags        ideas
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string          true "Trip ID"
// @Param       ideaId  path string          true "Idea ID"
// @Param       request body VoteIdeaRequest true "Vote"
// @Success     200 {object} services.IdeaSummary
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Idea not found"
// @Router      /trips/{id}/ideas/{ideaId}/vote [post]
func (h *IdeaHandler) VoteIdea(c *gin.Context) {
	userID, tripID, ideaID, ok := ideaParams(c)
	if !ok {
		return
	}

	var req VoteIdeaRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}

	idea, err := h.ideaService.VoteIdea(c.Request.Context(), userID, tripID, ideaID, req.Value)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"idea": idea})
}

// RemoveVote withdraws the caller's vote on an idea
// @Summary     Remove a vote
// @Tags        ideas
// @Produce     json
// @Security    BearerAuth
// @Param       id     path string true "Trip ID"
// @Param       ideaId path string true "Idea ID"
// @Success     200 {object} services.IdeaSummary
// @Failure     404 {object} ErrorResponse "Idea not found"
// @Router      /trips/{id}/ideas/{ideaId}/vote [delete]
func (h *IdeaHandler) RemoveVote(c *gin.Context) {
	userID, tripID, ideaID, ok := ideaParams(c)
	if !ok {
		return
	}

	idea, err := h.ideaService.RemoveVote(c.Request.Context(), userID, tripID, ideaID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"idea": idea})
}

// DeleteIdea deletes an idea
// @Summary     Delete an idea
// @Description The author or a trip admin may delete an idea
// @Tags        ideas
// @Produce     json
// @Security    BearerAuth
// @Param       id     path string true "Trip ID"
// @Param       ideaId path string true "Idea ID"
// @Success     200 {object} MessageResponse
// @Failure     403 {object} ErrorResponse "Forbidden"
// @Failure     404 {object} ErrorResponse "Idea not found"
// @Router      /trips/{id}/ideas/{ideaId} [delete]
func (h *IdeaHandler) DeleteIdea(c *gin.Context) {
	userID, tripID, ideaID, ok := ideaParams(c)
	if !ok {
		return
	}

	if err := h.ideaService.DeleteIdea(c.Request.Context(), userID, tripID, ideaID); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Idea deleted successfully"})
}

func ideaParams(c *gin.Context) (userID, tripID, ideaID string, ok bool) {
	var err error
	if userID, err = getUserID(c); err != nil {
		respondWithError(c, err)
		return "", "", "", false
	}
	if tripID, err = parsePathID(c, "id"); err != nil {
		respondWithError(c, err)
		return "", "", "", false
	}
	if ideaID, err = parsePathID(c, "ideaId"); err != nil {
		respondWithError(c, err)
		return "", "", "", false
	}
	return userID, tripID, ideaID, true
}
