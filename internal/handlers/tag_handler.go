package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tripsync/internal/services"
)

// TagHandler handles trip tag requests.
type TagHandler struct {
	tagService services.TagServicer
}

// NewTagHandler creates a new TagHandler.
func NewTagHandler(tagService services.TagServicer) *TagHandler {
	return &TagHandler{tagService: tagService}
}

// CreateTagRequest represents the request payload for creating a tag
type CreateTagRequest struct {
	Name  string `json:"name" binding:"required,min=1,max=50"`
	Color string `json:"color" binding:"omitempty,hex_color"`
}

// CreateTag adds a tag to a trip
// @Summary     Create a tag
// @Tags        tags
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string           true "Trip ID"
// @Param       request body CreateTagRequest true "Tag"
// @Success     201 {object} models.Tag
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Editor access required"
// @Failure     409 {object} ErrorResponse "Duplicate tag"
// @Router      /trips/{id}/tags [post]
func (h *TagHandler) CreateTag(c *gin.Context) {
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

	var req CreateTagRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}

	tag, err := h.tagService.CreateTag(c.Request.Context(), userID, tripID, req.Name, req.Color)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"tag": tag})
}

// ListTags lists a trip's tags
// @Summary     List tags
// @Tags        tags
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Trip ID"
// @Success     200 {array} models.Tag
// @Failure     403 {object} ErrorResponse "No access to trip"
// @Router      /trips/{id}/tags [get]
func (h *TagHandler) ListTags(c *gin.Context) {
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

	tags, err := h.tagService.ListTags(c.Request.Context(), userID, tripID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tags": tags})
}

// DeleteTag deletes a tag
// @Summary     Delete a tag
// @Tags        tags
// @Produce     json
// @Security    BearerAuth
// @Param       id    path string true "Trip ID"
// @Param       tagId path string true "Tag ID"
// @Success     200 {object} MessageResponse
// @Failure     403 {object} ErrorResponse "Editor access required"
// @Failure     404 {object} ErrorResponse "Tag not found"
// @Router      /trips/{id}/tags/{tagId} [delete]
func (h *TagHandler) DeleteTag(c *gin.Context) {
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
	tagID, err := parsePathID(c, "tagId")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.tagService.DeleteTag(c.Request.Context(), userID, tripID, tagID); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Tag deleted successfully"})
}
