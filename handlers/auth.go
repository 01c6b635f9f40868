package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"homestead/api"
	"homestead/models"
	"homestead/services/sessions"
	"homestead/services/users"
)

// AuthHandler handles authentication endpoints under /auth.
type AuthHandler struct {
	users    *users.Service
	sessions *sessions.Service
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(usersSvc *users.Service, sessionsSvc *sessions.Service) *AuthHandler {
	return &AuthHandler{
		users:    usersSvc,
		sessions: sessionsSvc,
	}
}

// LoginRequest represents the login request body.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest represents the register request body.
type RegisterRequest struct {
	Email     string `json:"email"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

// AuthResponse is returned by login and register.
type AuthResponse struct {
	User  models.User `json:"user"`
	Token string      `json:"token"`
}

// Login authenticates a user and returns the user plus a bearer token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.users.Authenticate(req.Email, req.Password)
	if err != nil {
		status := http.StatusUnauthorized
		if !errors.Is(err, users.ErrInvalidCredentials) && !errors.Is(err, users.ErrAccountDisabled) {
			status = http.StatusInternalServerError
		}
		writeMessage(w, status, err.Error())
		return
	}

	session, err := h.sessions.Create(user.ID, user.Role, r.Header.Get("User-Agent"), api.ClientIP(r))
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{User: user, Token: session.Token})
}

// Register creates a new account. The response carries a token for API
// completeness, but the web client intentionally discards it and sends the
// user through the login flow.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.users.Create(users.NewUserData{
		Email:     req.Email,
		Username:  req.Username,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, users.ErrEmailExists) || errors.Is(err, users.ErrUsernameExists) {
			status = http.StatusConflict
		}
		writeMessage(w, status, err.Error())
		return
	}

	session, err := h.sessions.Create(user.ID, user.Role, r.Header.Get("User-Agent"), api.ClientIP(r))
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	writeJSON(w, http.StatusCreated, AuthResponse{User: user, Token: session.Token})
}

// Logout invalidates the current session. A missing or already-revoked
// session is not an error; logout is always safe to call.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := api.ExtractBearerToken(r)
	if token != "" {
		if err := h.sessions.Revoke(token); err != nil && !errors.Is(err, sessions.ErrSessionNotFound) {
			writeMessage(w, http.StatusInternalServerError, "failed to revoke session")
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// Me returns the profile of the authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	token := api.ExtractBearerToken(r)
	if token == "" {
		writeMessage(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	session, err := h.sessions.Validate(token)
	if err != nil {
		writeMessage(w, http.StatusUnauthorized, "invalid or expired session")
		return
	}

	user, ok := h.users.Get(session.UserID)
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "account no longer exists")
		return
	}
	if !user.IsActive {
		writeMessage(w, http.StatusUnauthorized, "account is disabled")
		return
	}

	writeJSON(w, http.StatusOK, map[string]models.User{"user": user})
}

// writeMessage writes the auth wire error format: {"message": "..."}.
func writeMessage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
