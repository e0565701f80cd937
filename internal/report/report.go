package report

import (
	"context"
	"log/slog"
	"time"

	"github.com/haeun/pagewatch/internal/notification"
	"github.com/haeun/pagewatch/internal/visit"
)

// Event is one finalized page visit handed to downstream telemetry systems.
type Event struct {
	SessionID      string    `json:"session_id,omitempty"`
	PageName       string    `json:"page_name"`
	PageURL        string    `json:"page_url"`
	DurationMillis int64     `json:"visit_duration_ms"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// Sink is a destination for visit events (analytics/statistics systems).
// Implementations must be safe for concurrent use.
type Sink interface {
	Send(ctx context.Context, e Event) error
}

// Multi fans one event out to several sinks, returning the first error after
// attempting all of them.
type Multi []Sink

func (m Multi) Send(ctx context.Context, e Event) error {
	var first error
	for _, s := range m {
		if err := s.Send(ctx, e); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Reporter adapts a sink into the timer's reporting callback. Delivery is
// synchronous and best-effort: a failed send is announced to listeners,
// logged, and dropped. No batching, no retries.
type Reporter struct {
	sink      Sink
	session   func() string
	listeners *notification.Dispatcher
	timeout   time.Duration
	now       func() time.Time
}

// ReporterOption adjusts a Reporter at construction.
type ReporterOption func(*Reporter)

// WithListeners attaches a notification dispatcher to the pipeline.
func WithListeners(d *notification.Dispatcher) ReporterOption {
	return func(r *Reporter) { r.listeners = d }
}

// WithSendTimeout bounds each sink send. Defaults to 5s.
func WithSendTimeout(d time.Duration) ReporterOption {
	return func(r *Reporter) { r.timeout = d }
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) ReporterOption {
	return func(r *Reporter) { r.now = now }
}

// NewReporter builds a reporter over the given sink. session supplies the
// current session ID per event and may be nil.
func NewReporter(sink Sink, session func() string, opts ...ReporterOption) *Reporter {
	r := &Reporter{
		sink:    sink,
		session: session,
		timeout: 5 * time.Second,
		now:     time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Report delivers one finalized visit. It is the visit.ReportFunc shape.
func (r *Reporter) Report(pageName, pageURL string, d time.Duration) {
	e := Event{
		PageName:       pageName,
		PageURL:        pageURL,
		DurationMillis: d.Milliseconds(),
		OccurredAt:     r.now().UTC(),
	}
	if r.session != nil {
		e.SessionID = r.session()
	}
	if r.listeners != nil {
		r.listeners.EventsSendRequest(1)
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := r.sink.Send(ctx, e); err != nil {
		slog.Warn("visit report dropped", "page", pageName, "error", err.Error())
		if r.listeners != nil {
			r.listeners.EventsDiscarded(1, err.Error())
		}
		return
	}
	if r.listeners != nil {
		r.listeners.EventsSent(1)
		r.listeners.PerfEvent("page_visit_duration", e.DurationMillis)
	}
}

// ReportFunc returns the callback to inject into a visit.Timer.
func (r *Reporter) ReportFunc() visit.ReportFunc { return r.Report }
