package handlers

import (
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"tripsync/internal/models"
	"tripsync/internal/services"
)

// EventHandler handles itinerary event requests.
type EventHandler struct {
	eventService services.EventServicer
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(eventService services.EventServicer) *EventHandler {
	return &EventHandler{eventService: eventService}
}

// CreateEventRequest represents the request payload for creating an event
type CreateEventRequest struct {
	Type         string          `json:"type" binding:"required,event_type"`
	Title        string          `json:"title" binding:"required,min=1,max=200"`
	Description  string          `json:"description" binding:"max=2000"`
	StartTime    time.Time       `json:"start_time" binding:"required"`
	EndTime      *time.Time      `json:"end_time"`
	LocationName string          `json:"location_name" binding:"max=300"`
	Latitude     *float64        `json:"latitude" binding:"omitempty,gte=-90,lte=90"`
	Longitude    *float64        `json:"longitude" binding:"omitempty,gte=-180,lte=180"`
	CostAmount   decimal.Decimal `json:"cost_amount" swaggertype:"number"`
	CostCurrency string          `json:"cost_currency" binding:"omitempty,iso4217"`
	Order        *int            `json:"order" binding:"omitempty,gte=0"`
	Recurrence   string          `json:"recurrence" binding:"omitempty,max=500,rrule"`
}

// UpdateEventRequest represents the request payload for updating an event.
// Omitted fields are left unchanged.
type UpdateEventRequest struct {
	Type         *string          `json:"type" binding:"omitempty,event_type"`
	Title        *string          `json:"title" binding:"omitempty,min=1,max=200"`
	Description  *string          `json:"description" binding:"omitempty,max=2000"`
	StartTime    *time.Time       `json:"start_time"`
	EndTime      *time.Time       `json:"end_time"`
	LocationName *string          `json:"location_name" binding:"omitempty,max=300"`
	Latitude     *float64         `json:"latitude" binding:"omitempty,gte=-90,lte=90"`
	Longitude    *float64         `json:"longitude" binding:"omitempty,gte=-180,lte=180"`
	CostAmount   *decimal.Decimal `json:"cost_amount" swaggertype:"number"`
	CostCurrency *string          `json:"cost_currency" binding:"omitempty,iso4217"`
	Order        *int             `json:"order" binding:"omitempty,gte=0"`
	Recurrence   *string          `json:"recurrence" binding:"omitempty,max=500"`
}

// ReorderEventsRequest lists event ids in their new order
type ReorderEventsRequest struct {
	EventIDs []string `json:"event_ids" binding:"required,min=1,max=500,dive,uuid"`
}

// CreateEvent adds an event to a trip
// @Summary     Create an event
// @Tags        events
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string             true "Trip ID"
// @Param       request body CreateEventRequest true "Event details"
// @Success     201 {object} models.Event
// @Failure     400 {object} ErrorResponse "Invalid input or recurrence rule"
// @Failure     403 {object} ErrorResponse "Editor access required"
// @Failure     404 {object} ErrorResponse "Trip not found"
// @Router      /trips/{id}/events [post]
func (h *EventHandler) CreateEvent(c *gin.Context) {
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

	var req CreateEventRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}

	event, err := h.eventService.CreateEvent(c.Request.Context(), userID, tripID, services.EventInput{
		Type:         models.EventType(req.Type),
		Title:        req.Title,
		Description:  req.Description,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		LocationName: req.LocationName,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		CostAmount:   req.CostAmount,
		CostCurrency: req.CostCurrency,
		Order:        req.Order,
		Recurrence:   req.Recurrence,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"event": event})
}

// ListEvents lists a trip's events
// @Summary     List events
// @Tags        events
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Trip ID"
// @Success     200 {array} models.Event
// @Failure     403 {object} ErrorResponse "No access to trip"
// @Failure     404 {object} ErrorResponse "Trip not found"
// @Router      /trips/{id}/events [get]
func (h *EventHandler) ListEvents(c *gin.Context) {
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

	events, err := h.eventService.ListEvents(c.Request.Context(), userID, tripID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

// GetEvent returns one event
// @Summary     Get an event
// @Tags        events
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string true "Trip ID"
// @Param       eventId path string true "Event ID"
// @Success     200 {object} models.Event
// @Failure     404 {object} ErrorResponse "Trip or event not found"
// @Router      /trips/{id}/events/{eventId} [get]
func (h *EventHandler) GetEvent(c *gin.Context) {
	userID, tripID, eventID, ok := eventParams(c)
	if !ok {
		return
	}

	event, err := h.eventService.GetEvent(c.Request.Context(), userID, tripID, eventID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"event": event})
}

// UpdateEvent updates an event
// @Summary     Update an event
// @Tags        events
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string             true "Trip ID"
// @Param       eventId path string             true "Event ID"
// @Param       request body UpdateEventRequest true "Fields to change"
// @Success     200 {object} models.Event
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Editor access required"
// @Failure     404 {object} ErrorResponse "Trip or event not found"
// @Router      /trips/{id}/events/{eventId} [patch]
func (h *EventHandler) UpdateEvent(c *gin.Context) {
	userID, tripID, eventID, ok := eventParams(c)
	if !ok {
		return
	}

	var req UpdateEventRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}

	in := services.EventUpdate{
		Title:        req.Title,
		Description:  req.Description,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		LocationName: req.LocationName,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		CostAmount:   req.CostAmount,
		CostCurrency: req.CostCurrency,
		Order:        req.Order,
		Recurrence:   req.Recurrence,
	}
	if req.Type != nil {
		t := models.EventType(*req.Type)
		in.Type = &t
	}

	event, err := h.eventService.UpdateEvent(c.Request.Context(), userID, tripID, eventID, in)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"event": event})
}

// DeleteEvent deletes an event
// @Summary     Delete an event
// @Description Expenses linked to the event are kept and unlinked
// @Tags        events
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string true "Trip ID"
// @Param       eventId path string true "Event ID"
// @Success     200 {object} MessageResponse
// @Failure     403 {object} ErrorResponse "Editor access required"
// @Failure     404 {object} ErrorResponse "Trip or event not found"
// @Router      /trips/{id}/events/{eventId} [delete]
func (h *EventHandler) DeleteEvent(c *gin.Context) {
	userID, tripID, eventID, ok := eventParams(c)
	if !ok {
		return
	}

	if err := h.eventService.DeleteEvent(c.Request.Context(), userID, tripID, eventID); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Event deleted successfully"})
}

// ReorderEvents sets the itinerary order of events
// @Summary     Reorder events
// @Tags        events
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string               true "Trip ID"
// @Param       request body ReorderEventsRequest true "Event ids in their new order"
// @Success     200 {array} models.Event
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Trip or event not found"
// @Router      /trips/{id}/events/reorder [put]
func (h *EventHandler) ReorderEvents(c *gin.Context) {
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

	var req ReorderEventsRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}

	events, err := h.eventService.ReorderEvents(c.Request.Context(), userID, tripID, req.EventIDs)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

// GetItinerary returns the day-by-day itinerary
// @Summary     Get itinerary
// @Description Events grouped by trip day; recurring events are expanded
// @Tags        events
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Trip ID"
// @Success     200 {object} itinerary.Itinerary
// @Failure     403 {object} ErrorResponse "No access to trip"
// @Failure     404 {object} ErrorResponse "Trip not found"
// @Router      /trips/{id}/itinerary [get]
func (h *EventHandler) GetItinerary(c *gin.Context) {
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

	it, err := h.eventService.GetItinerary(c.Request.Context(), userID, tripID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, it)
}

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ExportCalendar downloads the trip as an iCalendar file
// @Summary     Export calendar
// @Tags        events
// @Produce     text/calendar
// @Security    BearerAuth
// @Param       id path string true "Trip ID"
// @Success     200 {string} string "iCalendar document"
// @Failure     403 {object} ErrorResponse "No access to trip"
// @Failure     404 {object} ErrorResponse "Trip not found"
// @Router      /trips/{id}/export/calendar [get]
func (h *EventHandler) ExportCalendar(c *gin.Context) {
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

	doc, err := h.eventService.ExportCalendar(c.Request.Context(), userID, tripID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	filename := unsafeFilename.ReplaceAllString("trip-"+tripID, "-") + ".ics"
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(doc))
}

// eventParams reads the caller and the trip/event path ids, writing the
// error response itself when one is missing or malformed.
func eventParams(c *gin.Context) (userID, tripID, eventID string, ok bool) {
	var err error
	if userID, err = getUserID(c); err != nil {
		respondWithError(c, err)
		return "", "", "", false
	}
	if tripID, err = parsePathID(c, "id"); err != nil {
		respondWithError(c, err)
		return "", "", "", false
	}
	if eventID, err = parsePathID(c, "eventId"); err != nil {
		respondWithError(c, err)
		return "", "", "", false
	}
	return userID, tripID, eventID, true
}
