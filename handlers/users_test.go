package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"

	"homestead/api"
	"homestead/handlers"
	"homestead/models"
	"homestead/services/sessions"
	"homestead/services/users"
)

type adminEnv struct {
	router   *mux.Router
	users    *users.Service
	sessions *sessions.Service
}

func setupAdminEnv(t *testing.T) *adminEnv {
	t.Helper()
	tmpDir := t.TempDir()

	usersSvc, err := users.NewService(tmpDir)
	if err != nil {
		t.Fatalf("failed to create users service: %v", err)
	}
	sessionsSvc, err := sessions.NewService(tmpDir, sessions.DefaultSessionDuration)
	if err != nil {
		t.Fatalf("failed to create sessions service: %v", err)
	}

	handler := handlers.NewUsersHandler(usersSvc, sessionsSvc)

	router := mux.NewRouter()
	admin := router.PathPrefix("/admin").Subrouter()
	admin.Use(api.RequireAuth(sessionsSvc), api.RequireRole(models.RoleAdmin))
	admin.HandleFunc("/users", handler.List).Methods(http.MethodGet)
	admin.HandleFunc("/users/{userID}/role", handler.SetRole).Methods(http.MethodPut)
	admin.HandleFunc("/users/{userID}/active", handler.SetActive).Methods(http.MethodPut)
	admin.HandleFunc("/users/{userID}/password", handler.ResetPassword).Methods(http.MethodPost)

	return &adminEnv{router: router, users: usersSvc, sessions: sessionsSvc}
}

func (env *adminEnv) adminToken(t *testing.T) string {
	t.Helper()
	session, err := env.sessions.Create(models.AdminUserID, models.RoleAdmin, "", "")
	if err != nil {
		t.Fatalf("Create session failed: %v", err)
	}
	return session.Token
}

func (env *adminEnv) do(t *testing.T, method, target, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func TestAdminUsers_RequiresAdminRole(t *testing.T) {
	env := setupAdminEnv(t)

	user, err := env.users.Create(users.NewUserData{
		Email:    "plain@example.com",
		Username: "plain",
		Password: "super-secret-1",
	})
	if err != nil {
		t.Fatalf("Create user failed: %v", err)
	}
	session, err := env.sessions.Create(user.ID, user.Role, "", "")
	if err != nil {
		t.Fatalf("Create session failed: %v", err)
	}

	rec := env.do(t, http.MethodGet, "/admin/users", session.Token, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected status 403 for non-admin, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/admin/users", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 without token, got %d", rec.Code)
	}
}

func TestAdminUsers_List(t *testing.T) {
	env := setupAdminEnv(t)
	token := env.adminToken(t)

	if _, err := env.users.Create(users.NewUserData{
		Email:    "one@example.com",
		Username: "one",
		Password: "super-secret-1",
	}); err != nil {
		t.Fatalf("Create user failed: %v", err)
	}

	rec := env.do(t, http.MethodGet, "/admin/users", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var resp map[string][]models.User
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp["users"]) != 2 {
		t.Errorf("expected 2 users, got %d", len(resp["users"]))
	}
	// Admins are listed first
	if resp["users"][0].Role != models.RoleAdmin {
		t.Errorf("expected admin first, got %q", resp["users"][0].Role)
	}
}

func TestAdminUsers_SetRoleRevokesSessions(t *testing.T) {
	env := setupAdminEnv(t)
	token := env.adminToken(t)

	user, err := env.users.Create(users.NewUserData{
		Email:    "promote@example.com",
		Username: "promote",
		Password: "super-secret-1",
	})
	if err != nil {
		t.Fatalf("Create user failed: %v", err)
	}
	userSession, err := env.sessions.Create(user.ID, user.Role, "", "")
	if err != nil {
		t.Fatalf("Create session failed: %v", err)
	}

	rec := env.do(t, http.MethodPut, "/admin/users/"+user.ID+"/role", token,
		handlers.SetRoleRequest{Role: models.RoleAgent})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	updated, ok := env.users.Get(user.ID)
	if !ok || updated.Role != models.RoleAgent {
		t.Errorf("expected role AGENT, got %q", updated.Role)
	}

	// Sessions cache the role, so a role change revokes them
	if _, err := env.sessions.Validate(userSession.Token); err != sessions.ErrSessionNotFound {
		t.Errorf("expected session revoked after role change, got %v", err)
	}
}

func TestAdminUsers_CannotDemoteBootstrapAdmin(t *testing.T) {
	env := setupAdminEnv(t)
	token := env.adminToken(t)

	rec := env.do(t, http.MethodPut, "/admin/users/"+models.AdminUserID+"/role", token,
		handlers.SetRoleRequest{Role: models.RoleUser})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestAdminUsers_DisableRevokesSessions(t *testing.T) {
	env := setupAdminEnv(t)
	token := env.adminToken(t)

	user, err := env.users.Create(users.NewUserData{
		Email:    "disable@example.com",
		Username: "disable",
		Password: "super-secret-1",
	})
	if err != nil {
		t.Fatalf("Create user failed: %v", err)
	}
	userSession, err := env.sessions.Create(user.ID, user.Role, "", "")
	if err != nil {
		t.Fatalf("Create session failed: %v", err)
	}

	rec := env.do(t, http.MethodPut, "/admin/users/"+user.ID+"/active", token,
		handlers.SetActiveRequest{IsActive: false})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	if _, err := env.sessions.Validate(userSession.Token); err != sessions.ErrSessionNotFound {
		t.Errorf("expected session revoked after disable, got %v", err)
	}
}

func TestAdminUsers_ResetPassword(t *testing.T) {
	env := setupAdminEnv(t)
	token := env.adminToken(t)

	user, err := env.users.Create(users.NewUserData{
		Email:    "reset@example.com",
		Username: "reset",
		Password: "super-secret-1",
	})
	if err != nil {
		t.Fatalf("Create user failed: %v", err)
	}

	rec := env.do(t, http.MethodPost, "/admin/users/"+user.ID+"/password", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["password"] == "" {
		t.Fatal("expected generated password in response")
	}

	// Old password no longer works, the generated one does
	if _, err := env.users.Authenticate("reset@example.com", "super-secret-1"); err == nil {
		t.Error("expected old password to be rejected")
	}
	if _, err := env.users.Authenticate("reset@example.com", resp["password"]); err != nil {
		t.Errorf("expected generated password to work, got %v", err)
	}
}

func TestAdminUsers_NotFound(t *testing.T) {
	env := setupAdminEnv(t)
	token := env.adminToken(t)

	rec := env.do(t, http.MethodPost, "/admin/users/missing/password", token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}
