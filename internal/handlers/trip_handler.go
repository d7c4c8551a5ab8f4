package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "tripsync/internal/errors"
	"tripsync/internal/models"
	"tripsync/internal/pagination"
	"tripsync/internal/services"
)

// TripHandler handles trip-related requests.
type TripHandler struct {
	tripService  services.TripServicer
	auditService services.AuditServicer
}

// NewTripHandler creates a new TripHandler.
func NewTripHandler(tripService services.TripServicer, auditService services.AuditServicer) *TripHandler {
	return &TripHandler{tripService: tripService, auditService: auditService}
}

// CreateTripRequest represents the request payload for creating a trip
type CreateTripRequest struct {
	Name         string   `json:"name" binding:"required,min=1,max=200"`
	Description  string   `json:"description" binding:"max=2000"`
	StartDate    string   `json:"start_date" binding:"required"`
	EndDate      string   `json:"end_date" binding:"required"`
	Destinations []string `json:"destinations" binding:"max=50,dive,max=200"`
	Visibility   string   `json:"visibility" binding:"omitempty,trip_visibility"`
}

// UpdateTripRequest represents the request payload for updating a trip.
// Omitted fields are left unchanged.
type UpdateTripRequest struct {
	Name         *string  `json:"name" binding:"omitempty,min=1,max=200"`
	Description  *string  `json:"description" binding:"omitempty,max=2000"`
	StartDate    *string  `json:"start_date"`
	EndDate      *string  `json:"end_date"`
	Destinations []string `json:"destinations" binding:"omitempty,max=50,dive,max=200"`
	Visibility   *string  `json:"visibility" binding:"omitempty,trip_visibility"`
}

// ArchiveTripRequest represents the request payload for archiving a trip
type ArchiveTripRequest struct {
	Archived *bool `json:"archived" binding:"required"`
}

// DuplicateTripRequest represents the optional payload for duplicating a trip
type DuplicateTripRequest struct {
	StartDate *string `json:"start_date"`
}

// DuplicateTripResponse is returned after a successful duplication
type DuplicateTripResponse struct {
	Message        string      `json:"message"`
	NewTripID      string      `json:"new_trip_id"`
	OriginalTripID string      `json:"original_trip_id"`
	Trip           models.Trip `json:"trip"`
}

// CreateTrip handles trip creation
// @Summary     Create a trip
// @Description Create a new trip owned by the authenticated user
// @Tags        trips
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateTripRequest true "Trip details"
// @Success     201 {object} models.Trip "Trip created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /trips [post]
func (h *TripHandler) CreateTrip(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateTripRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}
	start, err := parseDate("start_date", req.StartDate)
	if err != nil {
		respondWithError(c, err)
		return
	}
	end, err := parseDate("end_date", req.EndDate)
	if err != nil {
		respondWithError(c, err)
		return
	}

	trip, err := h.tripService.CreateTrip(c.Request.Context(), userID, services.TripInput{
		Name:         req.Name,
		Description:  req.Description,
		StartDate:    start,
		EndDate:      end,
		Destinations: req.Destinations,
		Visibility:   models.TripVisibility(req.Visibility),
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CREATE_TRIP", "trip", trip.ID, c.ClientIP(),
		map[string]interface{}{"name": trip.Name})

	c.JSON(http.StatusCreated, gin.H{"trip": trip})
}

// ListTrips lists the caller's trips
// @Summary     List trips
// @Description Trips the user created or joined, paginated
// @Tags        trips
// @Produce     json
// @Security    BearerAuth
// @Param       page      query int    false "Page number"
// @Param       page_size query int    false "Items per page"
// @Param       sort      query string false "Sort key: name, start_date, created_at; prefix - for descending"
// @Param       archived  query bool   false "Filter by archive state"
// @Success     200 {object} pagination.PageResponse[models.Trip]
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /trips [get]
func (h *TripHandler) ListTrips(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, bindingError(err))
		return
	}

	var archived *bool
	if raw := c.Query("archived"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			respondWithError(c, apperrors.WithFields(apperrors.ErrInvalidInput, "Invalid archived filter",
				map[string]string{"archived": "must be true or false"}))
			return
		}
		archived = &v
	}

	result, err := h.tripService.ListTrips(c.Request.Context(), userID, page, archived)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetTrip returns one trip
// @Summary     Get a trip
// @Description Trip with tags, budget, creator and collaborators
// @Tags        trips
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Trip ID"
// @Success     200 {object} models.Trip
// @Failure     400 {object} ErrorResponse "Invalid trip ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "No access to trip"
// @Failure     404 {object} ErrorResponse "Trip not found"
// @Router      /trips/{id} [get]
func (h *TripHandler) GetTrip(c *gin.Context) {
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

	trip, err := h.tripService.GetTrip(c.Request.Context(), userID, tripID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trip": trip})
}

// UpdateTrip updates trip fields
// @Summary     Update a trip
// @Tags        trips
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string            true "Trip ID"
// @Param       request body UpdateTripRequest true "Fields to change"
// @Success     200 {object} models.Trip
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Editor access required"
// @Failure     404 {object} ErrorResponse "Trip not found"
// @Router      /trips/{id} [patch]
func (h *TripHandler) UpdateTrip(c *gin.Context) {
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

	var req UpdateTripRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}
	start, err := parseOptionalDate("start_date", req.StartDate)
	if err != nil {
		respondWithError(c, err)
		return
	}
	end, err := parseOptionalDate("end_date", req.EndDate)
	if err != nil {
		respondWithError(c, err)
		return
	}

	in := services.TripUpdate{
		Name:         req.Name,
		Description:  req.Description,
		StartDate:    start,
		EndDate:      end,
		Destinations: req.Destinations,
	}
	if req.Visibility != nil {
		v := models.TripVisibility(*req.Visibility)
		in.Visibility = &v
	}

	trip, err := h.tripService.UpdateTrip(c.Request.Context(), userID, tripID, in)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "UPDATE_TRIP", "trip", tripID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"trip": trip})
}

// ArchiveTrip archives or restores a trip
// @Summary     Archive or restore a trip
// @Tags        trips
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string             true "Trip ID"
// @Param       request body ArchiveTripRequest true "Archive state"
// @Success     200 {object} models.Trip
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Admin access required"
// @Failure     404 {object} ErrorResponse "Trip not found"
// @Router      /trips/{id}/archive [patch]
func (h *TripHandler) ArchiveTrip(c *gin.Context) {
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

	var req ArchiveTripRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}

	trip, err := h.tripService.SetArchived(c.Request.Context(), userID, tripID, *req.Archived)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "ARCHIVE_TRIP", "trip", tripID, c.ClientIP(),
		map[string]interface{}{"archived": *req.Archived})

	c.JSON(http.StatusOK, gin.H{"trip": trip})
}

// DeleteTrip deletes a trip
// @Summary     Delete a trip
// @Description Only the trip creator can delete it
// @Tags        trips
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Trip ID"
// @Success     200 {object} MessageResponse
// @Failure     403 {object} ErrorResponse "Not the trip creator"
// @Failure     404 {object} ErrorResponse "Trip not found"
// @Router      /trips/{id} [delete]
func (h *TripHandler) DeleteTrip(c *gin.Context) {
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

	if err := h.tripService.DeleteTrip(c.Request.Context(), userID, tripID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "DELETE_TRIP", "trip", tripID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Trip deleted successfully"})
}

// DuplicateTrip copies a trip
// @Summary     Duplicate a trip
// @Description Copies the itinerary, budget plan and tags into a new private trip owned by the caller. Expenses and collaborators are not copied. The copy starts on start_date, or today when omitted, and keeps the original duration.
// @Tags        trips
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string               true  "Trip ID"
// @Param       request body DuplicateTripRequest false "New start date (YYYY-MM-DD or RFC 3339)"
// @Success     201 {object} DuplicateTripResponse
// @Failure     400 {object} ErrorResponse "Invalid trip ID or date"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "No access to trip"
// @Failure     404 {object} ErrorResponse "Trip not found"
// @Failure     500 {object} ErrorResponse "Duplication failed"
// @Router      /trips/{id}/duplicate [post]
func (h *TripHandler) DuplicateTrip(c *gin.Context) {
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

	var req DuplicateTripRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}
	start, err := parseOptionalDate("start_date", req.StartDate)
	if err != nil {
		respondWithError(c, err)
		return
	}

	trip, err := h.tripService.DuplicateTrip(c.Request.Context(), userID, tripID, start)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "DUPLICATE_TRIP", "trip", trip.ID, c.ClientIP(),
		map[string]interface{}{"original_trip_id": tripID})

	c.JSON(http.StatusCreated, DuplicateTripResponse{
		Message:        "Trip duplicated successfully",
		NewTripID:      trip.ID,
		OriginalTripID: tripID,
		Trip:           *trip,
	})
}
