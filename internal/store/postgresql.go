package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgreSQLStore implements Store over PostgreSQL via the pgx stdlib driver.
// Intended for deployments where several collector instances share one
// session database.
type PostgreSQLStore struct {
	db      *sql.DB
	mu      sync.RWMutex
	session string
}

// NewPostgreSQLStore connects and ensures the schema.
func NewPostgreSQLStore(config Config) (*PostgreSQLStore, error) {
	if config.Host == "" {
		config.Host = "localhost"
	}
	if config.Port == 0 {
		config.Port = 5432
	}
	if config.SSLMode == "" {
		config.SSLMode = "disable"
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.Username, config.Password, config.Database, config.SSLMode)

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgresql database: %w", err)
	}

	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	}
	if config.ConnMaxAge > 0 {
		db.SetConnMaxLifetime(config.ConnMaxAge)
	}

	s := &PostgreSQLStore{db: db, session: config.SessionID}
	if err := s.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ensure postgresql schema: %w", err)
	}
	return s, nil
}

// NewPostgreSQLStoreDSN connects with a raw DSN (tests, testcontainers).
func NewPostgreSQLStoreDSN(dsn, sessionID string) (*PostgreSQLStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgresql database: %w", err)
	}
	s := &PostgreSQLStore{db: db, session: sessionID}
	if err := s.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ensure postgresql schema: %w", err)
	}
	return s, nil
}

func (s *PostgreSQLStore) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS session_kv(
			session_id TEXT NOT NULL,
			key TEXT NOT NULL,
			value TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
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

func (s *PostgreSQLStore) Available() bool {
	return s.db.Ping() == nil
}

func (s *PostgreSQLStore) Get(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM session_kv WHERE session_id=$1 AND key=$2;`,
		s.sess(), key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("postgresql get %q: %w", key, err)
	}
	return v, nil
}

func (s *PostgreSQLStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session_kv(session_id, key, value, updated_at)
		VALUES($1, $2, $3, $4)
		ON CONFLICT(session_id, key) DO UPDATE SET
			value=excluded.value,
			updated_at=excluded.updated_at;`,
		s.sess(), key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("postgresql set %q: %w", key, err)
	}
	return nil
}

func (s *PostgreSQLStore) Remove(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM session_kv WHERE session_id=$1 AND key=$2;`, s.sess(), key)
	if err != nil {
		return fmt.Errorf("postgresql remove %q: %w", key, err)
	}
	return nil
}

func (s *PostgreSQLStore) sess() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// UseSession re-scopes the store to a different session ID.
func (s *PostgreSQLStore) UseSession(id string) {
	s.mu.Lock()
	s.session = id
	s.mu.Unlock()
}

// ClearSession drops every entry belonging to this store's session.
func (s *PostgreSQLStore) ClearSession(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM session_kv WHERE session_id=$1;`, s.sess())
	return err
}

func (s *PostgreSQLStore) Close() error { return s.db.Close() }
