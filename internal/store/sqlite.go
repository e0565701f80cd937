package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store over a SQLite database (modernc.org/sqlite,
// CGO-free). Keys are scoped by the configured session ID so several sessions
// can share one database file.
type SQLiteStore struct {
	db      *sql.DB
	mu      sync.RWMutex
	session string
}

// NewSQLiteStore opens (or creates) the database and ensures the schema.
func NewSQLiteStore(config Config) (*SQLiteStore, error) {
	path := config.Path
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// busy timeout helps with short concurrent locks
	_, _ = db.Exec("PRAGMA busy_timeout=3000;")

	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	} else {
		db.SetMaxOpenConns(1) // SQLite works best with a single connection
	}
	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	}
	if config.ConnMaxAge > 0 {
		db.SetConnMaxLifetime(config.ConnMaxAge)
	}

	s := &SQLiteStore{db: db, session: config.SessionID}
	if err := s.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ensure sqlite schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS session_kv(
			session_id TEXT NOT NULL,
			key TEXT NOT NULL,
			value TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			PRIMARY KEY(session_id, key)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_session_kv_session ON session_kv(session_id);`,
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) Available() bool {
	return s.db.Ping() == nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM session_kv WHERE session_id=? AND key=?;`,
		s.sess(), key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("sqlite get %q: %w", key, err)
	}
	return v, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session_kv(session_id, key, value, updated_at)
		VALUES(?, ?, ?, ?)
		ON CONFLICT(session_id, key) DO UPDATE SET
			value=excluded.value,
			updated_at=excluded.updated_at;`,
		s.sess(), key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("sqlite set %q: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) Remove(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM session_kv WHERE session_id=? AND key=?;`, s.sess(), key)
	if err != nil {
		return fmt.Errorf("sqlite remove %q: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) sess() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// UseSession re-scopes the store to a different session ID.
func (s *SQLiteStore) UseSession(id string) {
	s.mu.Lock()
	s.session = id
	s.mu.Unlock()
}

// ClearSession drops every entry belonging to this store's session.
func (s *SQLiteStore) ClearSession(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM session_kv WHERE session_id=?;`, s.sess())
	return err
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
