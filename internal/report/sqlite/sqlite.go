package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/haeun/pagewatch/internal/report"
)

// Sink writes visit events to a SQLite database, as a local audit trail or a
// poor man's analytics store.
type Sink struct {
	db *sql.DB
}

// New creates a new SQLite report sink.
// DSN format:
//   - "sqlite:///path/to/file.db"
//   - "sqlite://:memory:"
//   - "/path/to/file.db" (without prefix)
//   - ":memory:" (in-memory database)
func New(dsn string) (*Sink, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("empty SQLite DSN")
	}

	if strings.HasPrefix(strings.ToLower(dsn), "sqlite://") {
		dsn = strings.TrimPrefix(dsn, "sqlite://")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	sink := &Sink{db: db}
	if err := sink.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return sink, nil
}

func (s *Sink) ensureSchema(ctx context.Context) error {
	// Simple audit table, no primary key. Timestamp defaults to CURRENT_TIMESTAMP when not provided.
	stmt := `CREATE TABLE IF NOT EXISTS page_visits(
		occurred_at TIMESTAMP NOT NULL DEFAULT (CURRENT_TIMESTAMP),
		session_id TEXT NOT NULL,
		page_name TEXT NOT NULL,
		page_url TEXT NOT NULL,
		visit_duration_ms INTEGER NOT NULL
	);`
	_, err := s.db.ExecContext(ctx, stmt)
	return err
}

func (s *Sink) Send(ctx context.Context, e report.Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO page_visits(occurred_at, session_id, page_name, page_url, visit_duration_ms)
		VALUES(?, ?, ?, ?, ?);`,
		e.OccurredAt.UTC(), e.SessionID, e.PageName, e.PageURL, e.DurationMillis)
	return err
}

func (s *Sink) Close() error { return s.db.Close() }
