package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "tripsync/internal/errors"
	"tripsync/internal/models"
)

type mockCollaboratorService struct {
	inviteFn  func(userID, tripID, email string, role models.CollaboratorRole) (*models.Collaborator, error)
	acceptFn  func(userID, tripID string) (*models.Collaborator, error)
	declineFn func(userID, tripID string) error
	updateFn  func(userID, tripID, targetID string, role models.CollaboratorRole) (*models.Collaborator, error)
	removeFn  func(userID, tripID, targetID string) error
}

func (m *mockCollaboratorService) InviteCollaborator(_ context.Context, userID, tripID, email string, role models.CollaboratorRole) (*models.Collaborator, error) {
	if m.inviteFn != nil {
		return m.inviteFn(userID, tripID, email, role)
	}
	return &models.Collaborator{TripID: tripID, UserID: otherUserID, Role: role, Status: models.InvitationPending}, nil
}

func (m *mockCollaboratorService) ListCollaborators(_ context.Context, _, tripID string) ([]models.Collaborator, error) {
	return []models.Collaborator{{TripID: tripID, UserID: otherUserID, Role: models.RoleEditor}}, nil
}

func (m *mockCollaboratorService) AcceptInvitation(_ context.Context, userID, tripID string) (*models.Collaborator, error) {
	if m.acceptFn != nil {
		return m.acceptFn(userID, tripID)
	}
	return &models.Collaborator{TripID: tripID, UserID: userID, Status: models.InvitationAccepted}, nil
}

func (m *mockCollaboratorService) DeclineInvitation(_ context.Context, userID, tripID string) error {
	if m.declineFn != nil {
		return m.declineFn(userID, tripID)
	}
	return nil
}

func (m *mockCollaboratorService) UpdateRole(_ context.Context, userID, tripID, targetID string, role models.CollaboratorRole) (*models.Collaborator, error) {
	if m.updateFn != nil {
		return m.updateFn(userID, tripID, targetID, role)
	}
	return &models.Collaborator{TripID: tripID, UserID: targetID, Role: role}, nil
}

func (m *mockCollaboratorService) RemoveCollaborator(_ context.Context, userID, tripID, targetID string) error {
	if m.removeFn != nil {
		return m.removeFn(userID, tripID, targetID)
	}
	return nil
}

func (m *mockCollaboratorService) ListInvitations(_ context.Context, userID string) ([]models.Collaborator, error) {
	return []models.Collaborator{{UserID: userID, Status: models.InvitationPending}}, nil
}

func setupCollaboratorRouter(handler *CollaboratorHandler) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectUserID(testUserID))
	auth.GET("/invitations", handler.ListInvitations)
	auth.POST("/trips/:id/collaborators", handler.InviteCollaborator)
	auth.GET("/trips/:id/collaborators", handler.ListCollaborators)
	auth.POST("/trips/:id/collaborators/accept", handler.AcceptInvitation)
	auth.POST("/trips/:id/collaborators/decline", handler.DeclineInvitation)
	auth.PATCH("/trips/:id/collaborators/:userId", handler.UpdateRole)
	auth.DELETE("/trips/:id/collaborators/:userId", handler.RemoveCollaborator)
	return r
}

func TestCollaboratorHandler_Invite(t *testing.T) {
	t.Run("returns 201 with pending invitation", func(t *testing.T) {
		var gotEmail string
		var gotRole models.CollaboratorRole
		svc := &mockCollaboratorService{
			inviteFn: func(_, tripID, email string, role models.CollaboratorRole) (*models.Collaborator, error) {
				gotEmail, gotRole = email, role
				return &models.Collaborator{TripID: tripID, UserID: otherUserID, Role: role, Status: models.InvitationPending}, nil
			},
		}
		audit := &mockAuditService{}
		r := setupCollaboratorRouter(NewCollaboratorHandler(svc, audit))

		rec := doRequest(r, "POST", "/trips/"+testTripID+"/collaborators", `{"email":"friend@example.com","role":"editor"}`)

		assertStatus(t, rec, http.StatusCreated)
		if gotEmail != "friend@example.com" || gotRole != models.RoleEditor {
			t.Errorf("unexpected invite %s %s", gotEmail, gotRole)
		}
		collab := parseJSON(t, rec)["collaborator"].(map[string]interface{})
		if collab["status"] != "pending" {
			t.Errorf("expected pending status, got %v", collab["status"])
		}
		if a := audit.actions(); len(a) != 1 || a[0] != "INVITE_COLLABORATOR" {
			t.Errorf("expected INVITE_COLLABORATOR audit entry, got %v", a)
		}
	})

	tests := []struct {
		name   string
		body   string
		err    error
		status int
	}{
		{"bad role", `{"email":"friend@example.com","role":"boss"}`, nil, http.StatusBadRequest},
		{"bad email", `{"email":"friend","role":"viewer"}`, nil, http.StatusBadRequest},
		{"unknown user", `{"email":"ghost@example.com","role":"viewer"}`, apperrors.ErrUserNotFound, http.StatusNotFound},
		{"already invited", `{"email":"friend@example.com","role":"viewer"}`, apperrors.ErrAlreadyCollaborator, http.StatusConflict},
		{"not a manager", `{"email":"friend@example.com","role":"viewer"}`, apperrors.ErrForbidden, http.StatusForbidden},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockCollaboratorService{}
			if tc.err != nil {
				svc.inviteFn = func(string, string, string, models.CollaboratorRole) (*models.Collaborator, error) {
					return nil, tc.err
				}
			}
			r := setupCollaboratorRouter(NewCollaboratorHandler(svc, &mockAuditService{}))

			rec := doRequest(r, "POST", "/trips/"+testTripID+"/collaborators", tc.body)

			assertStatus(t, rec, tc.status)
		})
	}
}

func TestCollaboratorHandler_Respond(t *testing.T) {
	t.Run("accept", func(t *testing.T) {
		r := setupCollaboratorRouter(NewCollaboratorHandler(&mockCollaboratorService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/trips/"+testTripID+"/collaborators/accept", "")

		assertStatus(t, rec, http.StatusOK)
		collab := parseJSON(t, rec)["collaborator"].(map[string]interface{})
		if collab["status"] != "accepted" {
			t.Errorf("expected accepted, got %v", collab["status"])
		}
	})

	t.Run("decline without invitation", func(t *testing.T) {
		svc := &mockCollaboratorService{
			declineFn: func(string, string) error { return apperrors.ErrInvitationNotFound },
		}
		r := setupCollaboratorRouter(NewCollaboratorHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/trips/"+testTripID+"/collaborators/decline", "")

		assertStatus(t, rec, http.StatusNotFound)
		assertErrorCode(t, parseJSON(t, rec), "INVITATION_NOT_FOUND")
	})

	t.Run("list invitations", func(t *testing.T) {
		r := setupCollaboratorRouter(NewCollaboratorHandler(&mockCollaboratorService{}, &mockAuditService{}))

		rec := doRequest(r, "GET", "/invitations", "")

		assertStatus(t, rec, http.StatusOK)
		if list := parseJSON(t, rec)["invitations"].([]interface{}); len(list) != 1 {
			t.Errorf("expected 1 invitation, got %v", list)
		}
	})
}

func TestCollaboratorHandler_Manage(t *testing.T) {
	t.Run("update role", func(t *testing.T) {
		var target string
		svc := &mockCollaboratorService{
			updateFn: func(_, tripID, targetID string, role models.CollaboratorRole) (*models.Collaborator, error) {
				target = targetID
				return &models.Collaborator{TripID: tripID, UserID: targetID, Role: role}, nil
			},
		}
		audit := &mockAuditService{}
		r := setupCollaboratorRouter(NewCollaboratorHandler(svc, audit))

		rec := doRequest(r, "PATCH", "/trips/"+testTripID+"/collaborators/"+otherUserID, `{"role":"admin"}`)

		assertStatus(t, rec, http.StatusOK)
		if target != otherUserID {
			t.Errorf("expected target %s, got %s", otherUserID, target)
		}
		if a := audit.actions(); len(a) != 1 || a[0] != "UPDATE_COLLABORATOR_ROLE" {
			t.Errorf("expected UPDATE_COLLABORATOR_ROLE audit entry, got %v", a)
		}
	})

	t.Run("update role needs a valid user id", func(t *testing.T) {
		r := setupCollaboratorRouter(NewCollaboratorHandler(&mockCollaboratorService{}, &mockAuditService{}))

		rec := doRequest(r, "PATCH", "/trips/"+testTripID+"/collaborators/bob", `{"role":"admin"}`)

		assertStatus(t, rec, http.StatusBadRequest)
	})

	t.Run("remove", func(t *testing.T) {
		audit := &mockAuditService{}
		r := setupCollaboratorRouter(NewCollaboratorHandler(&mockCollaboratorService{}, audit))

		rec := doRequest(r, "DELETE", "/trips/"+testTripID+"/collaborators/"+otherUserID, "")

		assertStatus(t, rec, http.StatusOK)
		if a := audit.actions(); len(a) != 1 || a[0] != "REMOVE_COLLABORATOR" {
			t.Errorf("expected REMOVE_COLLABORATOR audit entry, got %v", a)
		}
	})

	t.Run("remove unknown collaborator", func(t *testing.T) {
		svc := &mockCollaboratorService{
			removeFn: func(string, string, string) error { return apperrors.ErrCollaboratorNotFound },
		}
		r := setupCollaboratorRouter(NewCollaboratorHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "DELETE", "/trips/"+testTripID+"/collaborators/"+otherUserID, "")

		assertStatus(t, rec, http.StatusNotFound)
	})
}
