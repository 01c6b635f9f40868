package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"homestead/models"
	"homestead/services/sessions"
	"homestead/services/users"
)

// UsersHandler handles admin user-management endpoints.
type UsersHandler struct {
	users    *users.Service
	sessions *sessions.Service
}

// NewUsersHandler creates a new users handler.
func NewUsersHandler(usersSvc *users.Service, sessionsSvc *sessions.Service) *UsersHandler {
	return &UsersHandler{
		users:    usersSvc,
		sessions: sessionsSvc,
	}
}

// List returns all user accounts.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]models.User{"users": h.users.List()})
}

// SetRoleRequest is the body for role changes.
type SetRoleRequest struct {
	Role models.Role `json:"role"`
}

// SetRole changes a user's role. Existing sessions keep their cached role
// until they expire, so the user's sessions are revoked to force re-login.
func (h *UsersHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userID"]

	var req SetRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.users.SetRole(userID, req.Role); err != nil {
		writeUserError(w, err)
		return
	}

	h.sessions.RevokeAllForUser(userID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "role updated"})
}

// SetActiveRequest is the body for enabling/disabling accounts.
type SetActiveRequest struct {
	IsActive bool `json:"isActive"`
}

// SetActive enables or disables an account. Disabling revokes all of the
// user's sessions immediately.
func (h *UsersHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userID"]

	var req SetActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.users.SetActive(userID, req.IsActive); err != nil {
		writeUserError(w, err)
		return
	}

	if !req.IsActive {
		h.sessions.RevokeAllForUser(userID)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "account updated"})
}

// ResetPassword generates a new password for the user and returns it once.
// All existing sessions for the user are revoked.
func (h *UsersHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userID"]

	generated, err := h.users.ResetPassword(userID)
	if err != nil {
		writeUserError(w, err)
		return
	}

	h.sessions.RevokeAllForUser(userID)
	writeJSON(w, http.StatusOK, map[string]string{"password": generated})
}

func writeUserError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, users.ErrUserNotFound):
		writeMessage(w, http.StatusNotFound, "user not found")
	case errors.Is(err, users.ErrInvalidRole), errors.Is(err, users.ErrCannotDemoteAdmin):
		writeMessage(w, http.StatusBadRequest, err.Error())
	default:
		writeMessage(w, http.StatusInternalServerError, "failed to update user")
	}
}
