package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/haeun/pagewatch/internal/report"
)

func TestSQLiteSink_InMemory(t *testing.T) {
	sink, err := New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create in-memory sink: %v", err)
	}
	defer func() {
		if err := sink.Close(); err != nil {
			t.Errorf("Failed to close sink: %v", err)
		}
	}()

	ctx := context.Background()
	e := report.Event{
		SessionID:      "sess-1",
		PageName:       "checkout",
		PageURL:        "https://shop.example/checkout",
		DurationMillis: 4200,
		OccurredAt:     time.Now().UTC(),
	}
	if err := sink.Send(ctx, e); err != nil {
		t.Fatalf("Failed to send event: %v", err)
	}

	var count int
	var name string
	var dur int64
	row := sink.db.QueryRowContext(ctx,
		`SELECT COUNT(*), page_name, visit_duration_ms FROM page_visits;`)
	if err := row.Scan(&count, &name, &dur); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if count != 1 || name != "checkout" || dur != 4200 {
		t.Fatalf("unexpected row: count=%d name=%q dur=%d", count, name, dur)
	}
}

func TestSQLiteSink_EmptyDSN(t *testing.T) {
	if _, err := New("  "); err == nil {
		t.Fatalf("expected error for empty DSN")
	}
}

func TestSQLiteSink_PrefixedDSN(t *testing.T) {
	sink, err := New("sqlite://:memory:")
	if err != nil {
		t.Fatalf("Failed to create sink with prefixed DSN: %v", err)
	}
	defer func() { _ = sink.Close() }()
	if err := sink.Send(context.Background(), report.Event{OccurredAt: time.Now().UTC()}); err != nil {
		t.Fatalf("send: %v", err)
	}
}
