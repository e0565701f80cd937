package factory

import (
	"errors"
	"net/url"
	"strings"

	"github.com/haeun/pagewatch/internal/report"
	"github.com/haeun/pagewatch/internal/report/clickhouse"
	"github.com/haeun/pagewatch/internal/report/sqlite"
)

// NewSinkFromDSN creates a report sink based on DSN format.
// Supported formats:
//   - "clickhouse://host:port?table=table"
//   - "opensearch://host:port/index" (also "elasticsearch://")
//   - "sqlite:///path/to/file.db" or "sqlite://:memory:"
//   - "/path/to/file.db" (defaults to SQLite)
func NewSinkFromDSN(dsn string) (report.Sink, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("empty DSN")
	}

	lower := strings.ToLower(dsn)

	if strings.HasPrefix(lower, "clickhouse://") {
		return parseClickHouseDSN(dsn)
	}

	if strings.HasPrefix(lower, "opensearch://") || strings.HasPrefix(lower, "elasticsearch://") {
		return parseOpenSearchDSN(dsn)
	}

	if strings.HasPrefix(lower, "sqlite://") || !strings.Contains(dsn, "://") {
		return sqlite.New(dsn)
	}

	return nil, errors.New("unsupported DSN format: " + dsn)
}

func parseClickHouseDSN(dsn string) (report.Sink, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return nil, err
	}

	host := u.Host
	if host == "" {
		host = "localhost:9000" // default ClickHouse native port
	}

	table := u.Query().Get("table")
	if table == "" {
		table = "page_visits"
	}

	return clickhouse.New(host, table)
}

func parseOpenSearchDSN(dsn string) (report.Sink, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return nil, err
	}

	baseURL := "http://" + u.Host

	index := strings.Trim(u.Path, "/")
	if index == "" {
		index = "page-visits"
	}

	return report.NewOpenSearchSink(baseURL, index), nil
}
