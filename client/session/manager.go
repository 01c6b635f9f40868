// Package session owns the client-side authentication state machine.
package session

import (
	"context"
	"errors"
	"sync"

	"homestead/client/authapi"
	"homestead/client/credentials"
	"homestead/models"
)

// State is the session lifecycle state.
type State string

const (
	// StateUninitialized is the state before Hydrate has been called.
	StateUninitialized State = "UNINITIALIZED"
	// StateHydrating is the state while the startup profile fetch is in flight.
	StateHydrating State = "HYDRATING"
	// StateAuthenticated means a user and token are present.
	StateAuthenticated State = "AUTHENTICATED"
	// StateAnonymous means no valid session exists.
	StateAnonymous State = "ANONYMOUS"
)

// Snapshot is a point-in-time view of the session.
type Snapshot struct {
	User  *models.User
	Token string
	State State
	// Err is the last failed operation's message, shown to the user verbatim.
	Err string
}

// IsAuthenticated reports whether both a user and token are present.
func (s Snapshot) IsAuthenticated() bool {
	return s.User != nil && s.Token != ""
}

// IsLoading reports whether the initial hydration has not yet completed.
// Render decisions must wait for this to clear to avoid flashing the wrong
// content.
func (s Snapshot) IsLoading() bool {
	return s.State == StateUninitialized || s.State == StateHydrating
}

// AuthAPI is the remote auth service surface the manager depends on.
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (*authapi.Credentials, error)
	Register(ctx context.Context, data authapi.RegisterData) error
	Logout(ctx context.Context, token string) error
	Profile(ctx context.Context, token string) (*models.User, error)
}

// Manager is the session state machine. All transitions run to completion
// under the internal lock; subscribers are notified after each transition
// commits, outside the lock.
type Manager struct {
	api   AuthAPI
	store credentials.Store

	mu       sync.Mutex
	snap     Snapshot
	hydrated bool
	subs     map[int]func(Snapshot)
	nextSub  int
}

// NewManager creates a manager in StateUninitialized.
func NewManager(api AuthAPI, store credentials.Store) *Manager {
	return &Manager{
		api:   api,
		store: store,
		snap:  Snapshot{State: StateUninitialized},
		subs:  make(map[int]func(Snapshot)),
	}
}

// Snapshot returns the current session view.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}

// Subscribe registers a listener invoked after every state transition. The
// returned function cancels the subscription.
func (m *Manager) Subscribe(fn func(Snapshot)) func() {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// Hydrate reconciles a persisted token with a live profile fetch to establish
// the initial state. It runs at most once per manager; repeat calls and calls
// after a user is already set are no-ops.
func (m *Manager) Hydrate(ctx context.Context) {
	m.mu.Lock()
	if m.hydrated || m.snap.User != nil {
		m.mu.Unlock()
		return
	}
	m.hydrated = true
	m.snap.State = StateHydrating
	m.mu.Unlock()
	m.notify()

	token, ok := m.store.Get()
	if !ok {
		m.transition(func(snap *Snapshot) {
			snap.User = nil
			snap.Token = ""
			snap.State = StateAnonymous
		})
		return
	}

	user, err := m.api.Profile(ctx, token)
	if err != nil {
		// Expired or invalid token, assume unauthenticated
		_ = m.store.Remove()
		m.transition(func(snap *Snapshot) {
			snap.User = nil
			snap.Token = ""
			snap.State = StateAnonymous
		})
		return
	}

	m.transition(func(snap *Snapshot) {
		snap.User = user
		snap.Token = token
		snap.State = StateAuthenticated
		snap.Err = ""
	})
}

// Login submits credentials. On success the token is persisted and the
// session becomes authenticated. On failure the session stays anonymous and
// the server's message is recorded in the snapshot.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	creds, err := m.api.Login(ctx, email, password)
	if err != nil {
		m.transition(func(snap *Snapshot) {
			snap.Err = errorMessage(err)
			if !snap.IsAuthenticated() {
				snap.State = StateAnonymous
			}
		})
		return err
	}

	// Persistence failure keeps the in-memory session working; the token just
	// won't survive a restart.
	_ = m.store.Set(creds.Token)

	m.transition(func(snap *Snapshot) {
		snap.User = creds.User
		snap.Token = creds.Token
		snap.State = StateAuthenticated
		snap.Err = ""
	})
	return nil
}

// Register creates an account. A successful registration does not
// authenticate the new user; they go through the login flow themselves.
func (m *Manager) Register(ctx context.Context, data authapi.RegisterData) error {
	if err := m.api.Register(ctx, data); err != nil {
		m.transition(func(snap *Snapshot) {
			snap.Err = errorMessage(err)
		})
		return err
	}

	m.transition(func(snap *Snapshot) {
		snap.Err = ""
	})
	return nil
}

// Logout ends the session. The remote revocation is best-effort; locally the
// session always ends up anonymous with the persisted token removed.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	token := m.snap.Token
	m.mu.Unlock()

	if token != "" {
		_ = m.api.Logout(ctx, token)
	}
	_ = m.store.Remove()

	m.transition(func(snap *Snapshot) {
		snap.User = nil
		snap.Token = ""
		snap.State = StateAnonymous
		snap.Err = ""
	})
}

// ClearError drops the recorded error without touching authentication state.
func (m *Manager) ClearError() {
	m.transition(func(snap *Snapshot) {
		snap.Err = ""
	})
}

// transition applies fn to the snapshot under the lock, then notifies
// subscribers with the committed state.
func (m *Manager) transition(fn func(*Snapshot)) {
	m.mu.Lock()
	fn(&m.snap)
	m.mu.Unlock()
	m.notify()
}

func (m *Manager) notify() {
	m.mu.Lock()
	snap := m.snap
	listeners := make([]func(Snapshot), 0, len(m.subs))
	for _, fn := range m.subs {
		listeners = append(listeners, fn)
	}
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
}

// errorMessage prefers the server's wire message over Go error formatting.
func errorMessage(err error) string {
	var apiErr *authapi.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
