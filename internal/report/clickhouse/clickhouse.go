package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/haeun/pagewatch/internal/report"
)

// Sink sends visit events to ClickHouse using the official ClickHouse Go client.
type Sink struct {
	conn  driver.Conn
	table string
}

func New(dsn, table string) (*Sink, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{dsn},
		Auth: clickhouse.Auth{
			Database: "default",
			Username: "default",
			Password: "",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	// Test the connection
	if err := conn.Ping(context.Background()); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	return &Sink{
		conn:  conn,
		table: table,
	}, nil
}

func (s *Sink) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

func (s *Sink) Send(ctx context.Context, e report.Event) error {
	query := fmt.Sprintf(`INSERT INTO %s (session_id, page_name, page_url, visit_duration_ms, occurred_at) VALUES (?, ?, ?, ?, ?)`, s.table)

	err := s.conn.Exec(ctx, query,
		e.SessionID,
		e.PageName,
		e.PageURL,
		e.DurationMillis,
		e.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert visit event: %w", err)
	}
	return nil
}

// EnsureSchema creates the visits table when it does not exist yet.
func (s *Sink) EnsureSchema(ctx context.Context) error {
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		session_id String,
		page_name String,
		page_url String,
		visit_duration_ms Int64,
		occurred_at DateTime64(3)
	) ENGINE = MergeTree() ORDER BY (occurred_at)`, s.table)
	if err := s.conn.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("failed to ensure clickhouse schema: %w", err)
	}
	return nil
}
