// Package activity forces logout after sustained user inactivity.
package activity

import (
	"context"
	"sync"
	"time"

	"homestead/client/session"
)

const (
	// DefaultTimeout is how long without interaction before forced logout.
	DefaultTimeout = 30 * time.Minute
	// DefaultWarningLead is how far before the timeout the warning fires.
	DefaultWarningLead = 5 * time.Minute
	// DefaultCoalesceWindow bounds how often interaction events re-arm the
	// timers. High-frequency events inside the window leave deadlines alone.
	DefaultCoalesceWindow = 60 * time.Second
	// DefaultLoginPath is where the user is sent after a forced logout.
	DefaultLoginPath = "/login"
)

// Config holds the tracker parameters. Zero values fall back to the defaults.
type Config struct {
	Timeout        time.Duration
	WarningLead    time.Duration
	CoalesceWindow time.Duration
	LoginPath      string
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.WarningLead <= 0 {
		c.WarningLead = DefaultWarningLead
	}
	if c.CoalesceWindow <= 0 {
		c.CoalesceWindow = DefaultCoalesceWindow
	}
	if c.LoginPath == "" {
		c.LoginPath = DefaultLoginPath
	}
	return c
}

// Session is the part of the session manager the tracker drives.
type Session interface {
	Logout(ctx context.Context)
}

// Option customizes a Tracker, mainly for tests.
type Option func(*Tracker)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithTimerFactory replaces timer creation. The factory returns a stop
// function reporting whether the timer was still pending.
func WithTimerFactory(newTimer func(d time.Duration, fn func()) func() bool) Option {
	return func(t *Tracker) { t.newTimer = newTimer }
}

// Tracker arms a warning timer and a logout timer while a session is
// authenticated, re-arming them on user interaction. Timer callbacks check the
// current generation at fire time, so canceled or replaced timers never act.
type Tracker struct {
	cfg      Config
	sess     Session
	now      func() time.Time
	newTimer func(d time.Duration, fn func()) func() bool

	// OnWarning is called once per armed cycle when the warning timer fires.
	// Informational only; it does not reset the clock.
	OnWarning func()
	// OnRedirect is called with the login path after a forced logout.
	OnRedirect func(path string)

	mu           sync.Mutex
	running      bool
	gen          int
	lastActivity time.Time
	lastArm      time.Time
	stopWarning  func() bool
	stopLogout   func() bool
}

// NewTracker creates a stopped tracker. Call Start (or Bind) to arm it.
func NewTracker(sess Session, cfg Config, opts ...Option) *Tracker {
	t := &Tracker{
		cfg:  cfg.withDefaults(),
		sess: sess,
		now:  time.Now,
		newTimer: func(d time.Duration, fn func()) func() bool {
			return time.AfterFunc(d, fn).Stop
		},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start arms both timers from now. Starting a running tracker is a no-op.
func (t *Tracker) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return
	}
	t.running = true
	t.lastActivity = t.now()
	t.armLocked(t.cfg.Timeout-t.cfg.WarningLead, t.cfg.Timeout)
}

// Touch records a qualifying interaction. Timers are only re-armed when at
// least the coalesce window has passed since the last arm.
func (t *Tracker) Touch() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return
	}
	now := t.now()
	t.lastActivity = now
	if now.Sub(t.lastArm) >= t.cfg.CoalesceWindow {
		t.armLocked(t.cfg.Timeout-t.cfg.WarningLead, t.cfg.Timeout)
	}
}

// Resume corrects for suspended timers after the process was backgrounded.
// If the inactivity budget is already spent, logout happens immediately;
// otherwise the timers are re-armed for the true remaining duration.
func (t *Tracker) Resume() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}

	elapsed := t.now().Sub(t.lastActivity)
	if elapsed >= t.cfg.Timeout {
		t.stopLocked()
		t.mu.Unlock()
		t.forceLogout()
		return
	}

	warningIn := t.cfg.Timeout - t.cfg.WarningLead - elapsed
	t.armLocked(warningIn, t.cfg.Timeout-elapsed)
	t.mu.Unlock()
}

// Stop cancels both timers. Safe to call repeatedly.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

// Bind subscribes the tracker to the session manager: it starts on entering
// the authenticated state and stops on every exit from it. The returned
// function cancels the subscription and stops the tracker.
func (t *Tracker) Bind(m *session.Manager) func() {
	cancel := m.Subscribe(func(snap session.Snapshot) {
		if snap.State == session.StateAuthenticated {
			t.Start()
		} else {
			t.Stop()
		}
	})
	return func() {
		cancel()
		t.Stop()
	}
}

// armLocked replaces both timers. A non-positive warning delay (possible
// after Resume close to the deadline) skips the warning.
func (t *Tracker) armLocked(warningIn, logoutIn time.Duration) {
	t.cancelTimersLocked()
	t.gen++
	gen := t.gen

	if warningIn > 0 {
		t.stopWarning = t.newTimer(warningIn, func() { t.fireWarning(gen) })
	}
	t.stopLogout = t.newTimer(logoutIn, func() { t.fireLogout(gen) })
	t.lastArm = t.now()
}

func (t *Tracker) stopLocked() {
	t.cancelTimersLocked()
	t.running = false
	t.gen++
}

func (t *Tracker) cancelTimersLocked() {
	if t.stopWarning != nil {
		t.stopWarning()
		t.stopWarning = nil
	}
	if t.stopLogout != nil {
		t.stopLogout()
		t.stopLogout = nil
	}
}

// fireWarning surfaces the inactivity notice if this timer generation is
// still current.
func (t *Tracker) fireWarning(gen int) {
	t.mu.Lock()
	stale := !t.running || gen != t.gen
	onWarning := t.OnWarning
	t.mu.Unlock()

	if stale || onWarning == nil {
		return
	}
	onWarning()
}

// fireLogout ends the session if this timer generation is still current.
func (t *Tracker) fireLogout(gen int) {
	t.mu.Lock()
	if !t.running || gen != t.gen {
		t.mu.Unlock()
		return
	}
	t.stopLocked()
	t.mu.Unlock()

	t.forceLogout()
}

func (t *Tracker) forceLogout() {
	t.sess.Logout(context.Background())
	if t.OnRedirect != nil {
		t.OnRedirect(t.cfg.LoginPath)
	}
}
