package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when no value exists for the key.
var ErrNotFound = errors.New("store: key not found")

// Store is a minimal session-scoped key/value persistence capability.
// Entries live for the duration of one browsing session; a store opened
// for a different session never sees them.
//
// Available reports whether the capability can be used at all. When it
// returns false every other call is expected to fail or no-op; callers
// degrade gracefully instead of erroring.

type Store interface {
	Available() bool
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Close() error
}

// SessionScoped is implemented by stores that key entries by session ID.
// On session renewal the owner clears the dead session's entries and
// re-scopes the store to the new ID, so nothing from the old session leaks
// into the new one.
type SessionScoped interface {
	UseSession(id string)
	ClearSession(ctx context.Context) error
}

// Config represents configuration for different store types
type Config struct {
	Type string `toml:"type" yaml:"type" json:"type"` // "memory", "sqlite", "postgresql"

	// SessionID scopes all keys; entries written under other sessions are invisible.
	SessionID string `toml:"session_id,omitempty" yaml:"session_id,omitempty" json:"session_id,omitempty"`

	// SQLite specific
	Path string `toml:"path,omitempty" yaml:"path,omitempty" json:"path,omitempty"`

	// PostgreSQL specific
	Host     string `toml:"host,omitempty" yaml:"host,omitempty" json:"host,omitempty"`
	Port     int    `toml:"port,omitempty" yaml:"port,omitempty" json:"port,omitempty"`
	Database string `toml:"database,omitempty" yaml:"database,omitempty" json:"database,omitempty"`
	Username string `toml:"username,omitempty" yaml:"username,omitempty" json:"username,omitempty"`
	Password string `toml:"password,omitempty" yaml:"password,omitempty" json:"password,omitempty"`
	SSLMode  string `toml:"ssl_mode,omitempty" yaml:"ssl_mode,omitempty" json:"ssl_mode,omitempty"`

	// Connection pooling
	MaxOpenConns int           `toml:"max_open_conns,omitempty" yaml:"max_open_conns,omitempty" json:"max_open_conns,omitempty"`
	MaxIdleConns int           `toml:"max_idle_conns,omitempty" yaml:"max_idle_conns,omitempty" json:"max_idle_conns,omitempty"`
	ConnMaxAge   time.Duration `toml:"conn_max_age,omitempty" yaml:"conn_max_age,omitempty" json:"conn_max_age,omitempty"`
}
