package store

import (
	"context"
	"sync"
)

// Memory is an in-process session store. It is the default backend and doubles
// as the test fake; entries vanish with the process, matching session scope.
type Memory struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

func (m *Memory) Available() bool { return true }

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *Memory) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// Clear drops every entry. Used when a session is renewed.
func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string]string)
}

// UseSession is a no-op: an in-process store holds exactly one session.
func (m *Memory) UseSession(string) {}

// ClearSession drops every entry, since the whole store is the session.
func (m *Memory) ClearSession(context.Context) error {
	m.Clear()
	return nil
}

func (m *Memory) Close() error { return nil }

// Disabled models an absent persistence capability. All reads miss and all
// writes succeed without effect; Available reports false so callers can
// degrade to no-ops up front.
type Disabled struct{}

func (Disabled) Available() bool                             { return false }
func (Disabled) Get(context.Context, string) (string, error) { return "", ErrNotFound }
func (Disabled) Set(context.Context, string, string) error   { return nil }
func (Disabled) Remove(context.Context, string) error        { return nil }
func (Disabled) Close() error                                { return nil }
