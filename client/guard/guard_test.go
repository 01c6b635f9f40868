package guard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homestead/client/authapi"
	"homestead/client/credentials"
	"homestead/client/session"
	"homestead/models"
)

func snapshot(state session.State, user *models.User, token string) session.Snapshot {
	return session.Snapshot{User: user, Token: token, State: state}
}

func TestEvaluate_LoadingWhileHydrationPending(t *testing.T) {
	cfg := Config{RequireRole: models.RoleAdmin}

	for _, state := range []session.State{session.StateUninitialized, session.StateHydrating} {
		decision := cfg.Evaluate(snapshot(state, nil, ""))
		assert.Equal(t, Loading, decision.Kind, "state %s must show loading, never content", state)
	}
}

func TestEvaluate_UnauthenticatedRedirectsToLogin(t *testing.T) {
	cfg := Config{RequireRole: models.RoleAdmin}

	decision := cfg.Evaluate(snapshot(session.StateAnonymous, nil, ""))
	assert.Equal(t, Redirect, decision.Kind)
	assert.Equal(t, DefaultLoginPath, decision.Target)
}

func TestEvaluate_WrongRoleRedirectsHome(t *testing.T) {
	cfg := Config{RequireRole: models.RoleAdmin}
	user := &models.User{ID: "u1", Role: models.RoleUser}

	decision := cfg.Evaluate(snapshot(session.StateAuthenticated, user, "abc"))
	assert.Equal(t, Redirect, decision.Kind)
	assert.Equal(t, DefaultHomePath, decision.Target)
}

func TestEvaluate_MatchingRoleRenders(t *testing.T) {
	cfg := Config{RequireRole: models.RoleAdmin}
	user := &models.User{ID: "u1", Role: models.RoleAdmin}

	decision := cfg.Evaluate(snapshot(session.StateAuthenticated, user, "abc"))
	assert.Equal(t, Render, decision.Kind)
}

func TestEvaluate_NoRoleRequirement(t *testing.T) {
	cfg := Config{}
	user := &models.User{ID: "u1", Role: models.RoleUser}

	decision := cfg.Evaluate(snapshot(session.StateAuthenticated, user, "abc"))
	assert.Equal(t, Render, decision.Kind)
}

func TestEvaluate_CustomPaths(t *testing.T) {
	cfg := Config{RequireRole: models.RoleAdmin, LoginPath: "/signin", HomePath: "/dashboard"}

	decision := cfg.Evaluate(snapshot(session.StateAnonymous, nil, ""))
	assert.Equal(t, "/signin", decision.Target)

	user := &models.User{ID: "u1", Role: models.RoleAgent}
	decision = cfg.Evaluate(snapshot(session.StateAuthenticated, user, "abc"))
	assert.Equal(t, "/dashboard", decision.Target)
}

// stubAPI satisfies session.AuthAPI for driving a real manager.
type stubAPI struct {
	user *models.User
}

func (s *stubAPI) Login(context.Context, string, string) (*authapi.Credentials, error) {
	return &authapi.Credentials{User: s.user, Token: "abc"}, nil
}
func (s *stubAPI) Register(context.Context, authapi.RegisterData) error { return nil }
func (s *stubAPI) Logout(context.Context, string) error                 { return nil }
func (s *stubAPI) Profile(context.Context, string) (*models.User, error) {
	return s.user, nil
}

// TestWatch_NeverRendersForUnauthenticatedViewer walks an anonymous visitor
// through hydration against an admin-only view and checks the protected
// content is never rendered.
func TestWatch_NeverRendersForUnauthenticatedViewer(t *testing.T) {
	m := session.NewManager(&stubAPI{}, credentials.NewMemStore())
	cfg := Config{RequireRole: models.RoleAdmin}

	var decisions []Decision
	cancel := cfg.Watch(m, func(d Decision) {
		decisions = append(decisions, d)
	})
	defer cancel()

	m.Hydrate(context.Background())

	require.NotEmpty(t, decisions)
	assert.Equal(t, Loading, decisions[0].Kind, "initial evaluation happens before hydration")
	for _, d := range decisions {
		assert.NotEqual(t, Render, d.Kind, "protected content must never render")
	}
	last := decisions[len(decisions)-1]
	assert.Equal(t, Redirect, last.Kind)
	assert.Equal(t, DefaultLoginPath, last.Target)
}

func TestWatch_NonAdminRedirectsHome(t *testing.T) {
	api := &stubAPI{user: &models.User{ID: "u1", Role: models.RoleUser}}
	m := session.NewManager(api, credentials.NewMemStore())
	cfg := Config{RequireRole: models.RoleAdmin}

	require.NoError(t, m.Login(context.Background(), "demo@example.com", "password"))

	var decisions []Decision
	cancel := cfg.Watch(m, func(d Decision) {
		decisions = append(decisions, d)
	})
	defer cancel()

	require.NotEmpty(t, decisions)
	assert.Equal(t, Redirect, decisions[0].Kind)
	assert.Equal(t, DefaultHomePath, decisions[0].Target)

	// Logging out flips the target to the login path
	m.Logout(context.Background())
	last := decisions[len(decisions)-1]
	assert.Equal(t, Redirect, last.Kind)
	assert.Equal(t, DefaultLoginPath, last.Target)
}

func TestWatch_AdminRenders(t *testing.T) {
	api := &stubAPI{user: &models.User{ID: "u1", Role: models.RoleAdmin}}
	m := session.NewManager(api, credentials.NewMemStore())
	cfg := Config{RequireRole: models.RoleAdmin}

	require.NoError(t, m.Login(context.Background(), "demo@example.com", "password"))

	var last Decision
	cancel := cfg.Watch(m, func(d Decision) { last = d })
	defer cancel()

	assert.Equal(t, Render, last.Kind)
}
