// Package guard gates rendering of protected views on session state.
package guard

import (
	"homestead/client/session"
	"homestead/models"
)

// Default redirect targets.
const (
	DefaultLoginPath = "/login"
	DefaultHomePath  = "/"
)

// Config describes one protected view.
type Config struct {
	// RequireRole, when set, additionally requires the user to hold this role.
	RequireRole models.Role
	// LoginPath is where unauthenticated viewers are sent.
	LoginPath string
	// HomePath is where authenticated viewers lacking the role are sent.
	HomePath string
}

func (c Config) withDefaults() Config {
	if c.LoginPath == "" {
		c.LoginPath = DefaultLoginPath
	}
	if c.HomePath == "" {
		c.HomePath = DefaultHomePath
	}
	return c
}

// Kind is the category of render decision.
type Kind int

const (
	// Loading means show a progress indicator; authentication is not settled.
	Loading Kind = iota
	// Redirect means navigate to Decision.Target without rendering the view.
	Redirect
	// Render means the viewer may see the protected content.
	Render
)

// Decision is the guard's verdict for one evaluation.
type Decision struct {
	Kind   Kind
	Target string
}

// Evaluate decides what to do with the protected view for the given session
// state. Protected content is never rendered while loading or redirecting.
func (c Config) Evaluate(snap session.Snapshot) Decision {
	cfg := c.withDefaults()

	if snap.IsLoading() {
		return Decision{Kind: Loading}
	}
	if !snap.IsAuthenticated() {
		return Decision{Kind: Redirect, Target: cfg.LoginPath}
	}
	if cfg.RequireRole != "" && snap.User.Role != cfg.RequireRole {
		return Decision{Kind: Redirect, Target: cfg.HomePath}
	}
	return Decision{Kind: Render}
}

// Watch evaluates immediately and then on every session transition. The
// returned function cancels the subscription.
func (c Config) Watch(m *session.Manager, fn func(Decision)) func() {
	fn(c.Evaluate(m.Snapshot()))
	return m.Subscribe(func(snap session.Snapshot) {
		fn(c.Evaluate(snap))
	})
}
