package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tripsync/internal/models"
	"tripsync/internal/services"
)

// CollaboratorHandler handles trip sharing requests.
type CollaboratorHandler struct {
	collaboratorService services.CollaboratorServicer
	auditService        services.AuditServicer
}

// NewCollaboratorHandler creates a new CollaboratorHandler.
func NewCollaboratorHandler(collaboratorService services.CollaboratorServicer, auditService services.AuditServicer) *CollaboratorHandler {
	return &CollaboratorHandler{collaboratorService: collaboratorService, auditService: auditService}
}

// InviteCollaboratorRequest represents the request payload for inviting a user
type InviteCollaboratorRequest struct {
	Email string `json:"email" binding:"required,email"`
	Role  string `json:"role" binding:"required,collaborator_role"`
}

// UpdateRoleRequest represents the request payload for changing a role
type UpdateRoleRequest struct {
	Role string `json:"role" binding:"required,collaborator_role"`
}

// InviteCollaborator invites a registered user to a trip
// @Summary     Invite a collaborator
// @Tags        collaborators
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                    true "Trip ID"
// @Param       request body InviteCollaboratorRequest true "Invitee and role"
// @Success     201 {object} models.Collaborator
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Admin access required"
// @Failure     404 {object} ErrorResponse "Trip or user not found"
// @Failure     409 {object} ErrorResponse "Already a collaborator"
// @Router      /trips/{id}/collaborators [post]
func (h *CollaboratorHandler) InviteCollaborator(c *gin.Context) {
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

	var req InviteCollaboratorRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}

	collab, err := h.collaboratorService.InviteCollaborator(c.Request.Context(), userID, tripID, req.Email, models.CollaboratorRole(req.Role))
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "INVITE_COLLABORATOR", "trip", tripID, c.ClientIP(),
		map[string]interface{}{"invitee_id": collab.UserID, "role": req.Role})

	c.JSON(http.StatusCreated, gin.H{"collaborator": collab})
}

// ListCollaborators lists everyone invited to a trip
// @Summary     List collaborators
// @Tags        collaborators
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Trip ID"
// @Success     200 {array} models.Collaborator
// @Failure     403 {object} ErrorResponse "No access to trip"
// @Failure     404 {object} ErrorResponse "Trip not found"
// @Router      /trips/{id}/collaborators [get]
func (h *CollaboratorHandler) ListCollaborators(c *gin.Context) {
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

	collabs, err := h.collaboratorService.ListCollaborators(c.Request.Context(), userID, tripID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"collaborators": collabs})
}

// AcceptInvitation accepts the caller's invitation to a trip
// @Summary     Accept an invitation
// @Tags        collaborators
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Trip ID"
// @Success     200 {object} models.Collaborator
// @Failure     404 {object} ErrorResponse "Invitation not found"
// @Router      /trips/{id}/collaborators/accept [post]
func (h *CollaboratorHandler) AcceptInvitation(c *gin.Context) {
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

	collab, err := h.collaboratorService.AcceptInvitation(c.Request.Context(), userID, tripID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "ACCEPT_INVITATION", "trip", tripID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"collaborator": collab})
}

// DeclineInvitation declines the caller's invitation to a trip
// @Summary     Decline an invitation
// @Tags        collaborators
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Trip ID"
// @Success     200 {object} MessageResponse
// @Failure     404 {object} ErrorResponse "Invitation not found"
// @Router      /trips/{id}/collaborators/decline [post]
func (h *CollaboratorHandler) DeclineInvitation(c *gin.Context) {
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

	if err := h.collaboratorService.DeclineInvitation(c.Request.Context(), userID, tripID); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Invitation declined"})
}

// UpdateRole changes a collaborator's role
// @Summary     Change a collaborator's role
// @Tags        collaborators
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string            true "Trip ID"
// @Param       userId  path string            true "Collaborator user ID"
// @Param       request body UpdateRoleRequest true "New role"
// @Success     200 {object} models.Collaborator
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Forbidden"
// @Failure     404 {object} ErrorResponse "Trip or collaborator not found"
// @Router      /trips/{id}/collaborators/{userId} [patch]
func (h *CollaboratorHandler) UpdateRole(c *gin.Context) {
	userID, tripID, targetID, ok := collaboratorParams(c)
	if !ok {
		return
	}

	var req UpdateRoleRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}

	collab, err := h.collaboratorService.UpdateRole(c.Request.Context(), userID, tripID, targetID, models.CollaboratorRole(req.Role))
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "UPDATE_COLLABORATOR_ROLE", "trip", tripID, c.ClientIP(),
		map[string]interface{}{"collaborator_id": targetID, "role": req.Role})

	c.JSON(http.StatusOK, gin.H{"collaborator": collab})
}

// RemoveCollaborator revokes a collaborator's access
// @Summary     Remove a collaborator
// @Description Collaborators may remove themselves to leave a trip
// @Tags        collaborators
// @Produce     json
// @Security    BearerAuth
// @Param       id     path string true "Trip ID"
// @Param       userId path string true "Collaborator user ID"
// @Success     200 {object} MessageResponse
// @Failure     403 {object} ErrorResponse "Forbidden"
// @Failure     404 {object} ErrorResponse "Trip or collaborator not found"
// @Router      /trips/{id}/collaborators/{userId} [delete]
func (h *CollaboratorHandler) RemoveCollaborator(c *gin.Context) {
	userID, tripID, targetID, ok := collaboratorParams(c)
	if !ok {
		return
	}

	if err := h.collaboratorService.RemoveCollaborator(c.Request.Context(), userID, tripID, targetID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "REMOVE_COLLABORATOR", "trip", tripID, c.ClientIP(),
		map[string]interface{}{"collaborator_id": targetID})

	c.JSON(http.StatusOK, gin.H{"message": "Collaborator removed"})
}

// ListInvitations lists the caller's pending invitations
// @Summary     List my invitations
// @Tags        collaborators
// @Produce     json
// @Security    BearerAuth
// @Success     200 {array} models.Collaborator
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /invitations [get]
func (h *CollaboratorHandler) ListInvitations(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	invitations, err := h.collaboratorService.ListInvitations(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invitations": invitations})
}

func collaboratorParams(c *gin.Context) (userID, tripID, targetID string, ok bool) {
	var err error
	if userID, err = getUserID(c); err != nil {
		respondWithError(c, err)
		return "", "", "", false
	}
	if tripID, err = parsePathID(c, "id"); err != nil {
		respondWithError(c, err)
		return "", "", "", false
	}
	if targetID, err = parsePathID(c, "userId"); err != nil {
		respondWithError(c, err)
		return "", "", "", false
	}
	return userID, tripID, targetID, true
}
