package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultIdleTimeout renews the session after this much caller inactivity.
const DefaultIdleTimeout = 30 * time.Minute

// Manager hands out the current browsing-session ID. A session lives until
// the caller has been idle longer than the timeout; the next activity then
// begins a fresh session. Store entries are keyed by this ID, which is what
// gives the persistence capability its session scope.
type Manager struct {
	mu       sync.Mutex
	id       string
	lastSeen time.Time
	idle     time.Duration
	now      func() time.Time
	onRenew  func(oldID, newID string)
}

// Option adjusts a Manager at construction.
type Option func(*Manager)

// WithIdleTimeout overrides the idle timeout.
func WithIdleTimeout(d time.Duration) Option {
	return func(m *Manager) { m.idle = d }
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithRenewHook registers a callback invoked after a session is renewed,
// typically to clear the old session's store entries.
func WithRenewHook(fn func(oldID, newID string)) Option {
	return func(m *Manager) { m.onRenew = fn }
}

// NewManager starts a fresh session immediately.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		idle: DefaultIdleTimeout,
		now:  time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	m.id = uuid.NewString()
	m.lastSeen = m.now()
	return m
}

// Touch records caller activity and returns the current session ID, renewing
// the session first when the idle timeout has elapsed.
func (m *Manager) Touch() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if now.Sub(m.lastSeen) > m.idle {
		old := m.id
		m.id = uuid.NewString()
		if m.onRenew != nil {
			m.onRenew(old, m.id)
		}
	}
	m.lastSeen = now
	return m.id
}

// ID returns the current session ID without counting as activity.
func (m *Manager) ID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.id
}
