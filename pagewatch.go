package pagewatch

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	cfg "github.com/haeun/pagewatch/internal/config"
	"github.com/haeun/pagewatch/internal/metrics"
	"github.com/haeun/pagewatch/internal/notification"
	"github.com/haeun/pagewatch/internal/report"
	"github.com/haeun/pagewatch/internal/report/factory"
	iapi "github.com/haeun/pagewatch/internal/server"
	"github.com/haeun/pagewatch/internal/session"
	"github.com/haeun/pagewatch/internal/store"
	"github.com/haeun/pagewatch/internal/visit"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type Visit = visit.Record

type ReportFunc = visit.ReportFunc

type StoreConfig = store.Config

type Store = store.Store

type Sink = report.Sink

type Event = report.Event

type Listener = notification.Listener

type Dispatcher = notification.Dispatcher

// Tracker is a thin facade over internal/visit.Timer.
// It provides a stable public API for embedding.

type Tracker struct{ inner *visit.Timer }

// New builds a tracker over an in-process session store. report may be nil.
func New(report ReportFunc) *Tracker {
	return &Tracker{inner: visit.NewTimer(store.NewMemory(), report)}
}

// NewWithStore builds a tracker over a caller-supplied session store.
func NewWithStore(st Store, report ReportFunc) *Tracker {
	return &Tracker{inner: visit.NewTimer(st, report)}
}

func (t *Tracker) Start(pageName, pageURL string) { t.inner.Start(pageName, pageURL) }
func (t *Tracker) Stop() *Visit                   { return t.inner.Stop() }
func (t *Tracker) Current() *Visit                { return t.inner.Current() }
func (t *Tracker) Restart(pageName, pageURL string) *Visit {
	return t.inner.Restart(pageName, pageURL)
}
func (t *Tracker) TrackPreviousPageVisit(pageName, pageURL string) {
	t.inner.TrackPreviousPageVisit(pageName, pageURL)
}

// NewStore creates a session store from config ("memory", "sqlite", "postgresql").
func NewStore(c StoreConfig) (Store, error) { return store.CreateStore(c) }

// NewSink creates a report sink from a DSN (see internal/report/factory).
func NewSink(dsn string) (Sink, error) { return factory.NewSinkFromDSN(dsn) }

// NewReporter adapts sinks into a ReportFunc, fanning out to all of them.
func NewReporter(sessionID func() string, d *Dispatcher, sinks ...Sink) ReportFunc {
	var s Sink
	switch len(sinks) {
	case 0:
		return func(string, string, time.Duration) {}
	case 1:
		s = sinks[0]
	default:
		s = report.Multi(sinks)
	}
	var opts []report.ReporterOption
	if d != nil {
		opts = append(opts, report.WithListeners(d))
	}
	return report.NewReporter(s, sessionID, opts...).ReportFunc()
}

// SessionManager hands out the current browsing-session ID.
type SessionManager = session.Manager

// NewSessionManager starts a fresh session with the given idle timeout.
// When st keys its entries by session, the store is kept in sync with the
// manager: renewal clears the dead session's entries and re-scopes the store
// to the new ID, so a stale in-flight visit cannot be reported into the next
// session. st may be nil.
func NewSessionManager(idle time.Duration, st Store) *SessionManager {
	opts := []session.Option{session.WithIdleTimeout(idle)}
	scoped, ok := st.(store.SessionScoped)
	if ok {
		opts = append(opts, session.WithRenewHook(func(oldID, newID string) {
			if err := scoped.ClearSession(context.Background()); err != nil {
				slog.Warn("clear expired session entries", "session", oldID, "error", err)
			}
			scoped.UseSession(newID)
		}))
	}
	sm := session.NewManager(opts...)
	if ok {
		scoped.UseSession(sm.ID())
	}
	return sm
}

func LoadConfig(path string) (*cfg.Config, error) {
	return cfg.LoadConfig(path)
}

// NewHTTPServer starts an HTTP server exposing the track/stop/status API for
// the given tracker.
func NewHTTPServer(addr, basePath string, t *Tracker) (*http.Server, error) {
	return iapi.NewServer(addr, basePath, t.inner)
}

// Metrics helpers (public facade)

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.Register(prometheus.DefaultRegisterer) }

// ServeMetrics starts an HTTP server on addr exposing /metrics using the default registry.
// It returns any immediate listen error; otherwise it runs the server in the caller goroutine.
// The route lives on its own mux, so repeated calls never fight over the default one.
func ServeMetrics(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv.ListenAndServe()
}
