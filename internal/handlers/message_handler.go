package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tripsync/internal/logger"
	"tripsync/internal/pagination"
	"tripsync/internal/services"
)

// StreamServer upgrades a request to a trip activity stream.
type StreamServer interface {
	Serve(w http.ResponseWriter, r *http.Request, tripID, userID string) error
}

// MessageHandler handles trip chat and the live activity stream.
type MessageHandler struct {
	messageService services.MessageServicer
	tripService    services.TripServicer
	stream         StreamServer
}

// NewMessageHandler creates a new MessageHandler.
func NewMessageHandler(messageService services.MessageServicer, tripService services.TripServicer, stream StreamServer) *MessageHandler {
	return &MessageHandler{messageService: messageService, tripService: tripService, stream: stream}
}

// PostMessageRequest represents the request payload for a chat message
type PostMessageRequest struct {
	Content string `json:"content" binding:"required,min=1,max=4000"`
}

// PostMessage posts a chat message to a trip
// @Summary     Post a message
// @Tags        messages
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string             true "Trip ID"
// @Param       request body PostMessageRequest true "Message"
// @Success     201 {object} models.Message
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Not a member of the trip"
// @Failure     404 {object} ErrorResponse "Trip not found"
// @Router      /trips/{id}/messages [post]
func (h *MessageHandler) PostMessage(c *gin.Context) {
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

	var req PostMessageRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}

	msg, err := h.messageService.PostMessage(c.Request.Context(), userID, tripID, req.Content)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

// ListMessages lists a trip's messages, newest first
// @Summary     List messages
// @Tags        messages
// @Produce     json
// @Security    BearerAuth
// @Param       id        path  string true  "Trip ID"
// @Param       page      query int    false "Page number"
// @Param       page_size query int    false "Items per page"
// @Success     200 {object} pagination.PageResponse[models.Message]
// @Failure     403 {object} ErrorResponse "No access to trip"
// @Failure     404 {object} ErrorResponse "Trip not found"
// @Router      /trips/{id}/messages [get]
func (h *MessageHandler) ListMessages(c *gin.Context) {
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

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, bindingError(err))
		return
	}

	result, err := h.messageService.ListMessages(c.Request.Context(), userID, tripID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Stream upgrades the connection to a WebSocket carrying the trip's live
// activity: messages, itinerary, expense and collaborator changes
// @Summary     Trip activity stream
// @Description WebSocket upgrade; browsers pass the token as access_token
// @Tags        messages
// @Security    BearerAuth
// @Param       id           path  string true  "Trip ID"
// @Param       access_token query string false "Access token for clients that cannot set headers"
// @Success     101 "Switching protocols"
// @Failure     403 {object} ErrorResponse "No access to trip"
// @Failure     404 {object} ErrorResponse "Trip not found"
// @Router      /trips/{id}/ws [get]
func (h *MessageHandler) Stream(c *gin.Context) {
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

	if _, err := h.tripService.GetTrip(c.Request.Context(), userID, tripID); err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.stream.Serve(c.Writer, c.Request, tripID, userID); err != nil {
		// the upgrader has already written its own response
		logger.Get().Debugw("stream ended", "trip_id", tripID, "user_id", userID, "error", err)
	}
}
