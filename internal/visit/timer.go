package visit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/haeun/pagewatch/internal/codec"
	"github.com/haeun/pagewatch/internal/metrics"
	"github.com/haeun/pagewatch/internal/store"
)

// SlotKey is the fixed session-store key holding the serialized record of the
// page currently being timed. Absence means no page is being timed. The slot
// lives in the external store, not in memory, so timing survives full
// reconstruction of the Timer (page navigation destroys in-process state).
const SlotKey = "prev_page_visit_data"

// ReportFunc receives the finalized duration of the previous page, exactly
// once per prior page, when the next page's timing begins.
type ReportFunc func(pageName, pageURL string, d time.Duration)

// Timer measures how long the user stays on a logical page within one
// browsing session. At most one page is timed at any instant.
//
// Public methods never return or propagate errors: internal helpers report
// failures, and the public boundary converts them into a logged warning plus
// a safe fallback. Telemetry collection must stay invisible to the host
// application; the worst case is a lost measurement.
type Timer struct {
	store  store.Store
	codec  codec.Codec
	report ReportFunc
	now    func() time.Time
}

// Option adjusts a Timer at construction.
type Option func(*Timer)

// WithCodec replaces the JSON codec used for the persisted slot.
func WithCodec(c codec.Codec) Option {
	return func(t *Timer) { t.codec = c }
}

// WithClock replaces the time source. Tests use it to measure exact durations.
func WithClock(now func() time.Time) Option {
	return func(t *Timer) { t.now = now }
}

// NewTimer builds a timer over the given session store. report may be nil if
// the caller only uses Start/Stop/Restart directly.
func NewTimer(st store.Store, report ReportFunc, opts ...Option) *Timer {
	t := &Timer{
		store:  st,
		codec:  codec.JSON{},
		report: report,
		now:    time.Now,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Start begins timing a visit to the given page. Calling it while a visit is
// already in flight is a protocol violation; the violation is logged and
// swallowed, and the original visit keeps timing. With storage unavailable
// the call is a silent no-op.
func (t *Timer) Start(pageName, pageURL string) {
	if err := t.start(pageName, pageURL); err != nil {
		t.warn("start", err)
	}
}

// Stop finalizes and returns the in-flight visit, clearing the slot. It
// returns nil when nothing is being timed, storage is unavailable, or the
// stored data cannot be read back.
func (t *Timer) Stop() *Record {
	rec, err := t.stop()
	if err != nil {
		t.warn("stop", err)
		return nil
	}
	return rec
}

// Restart stops the in-flight visit and starts timing the given page, as one
// caller-facing step. It returns whatever the stop phase produced: a start
// phase failure after a successful stop still yields the stopped record, so
// that page's duration is not lost even though the next page's timing
// silently failed to begin.
func (t *Timer) Restart(pageName, pageURL string) *Record {
	prev, err := t.restart(pageName, pageURL)
	if err != nil {
		t.warn("restart", err)
	}
	return prev
}

// TrackPreviousPageVisit is the entry point callers invoke on every page
// transition. It restarts the timer for the incoming page and, when a
// previous visit existed, hands that previous page's finalized duration to
// the reporting callback. Failures, including a panicking callback, never
// reach the caller.
func (t *Timer) TrackPreviousPageVisit(pageName, pageURL string) {
	defer func() {
		if r := recover(); r != nil {
			t.warn("track", fmt.Errorf("reporting callback panicked: %v", r))
		}
	}()
	prev := t.Restart(pageName, pageURL)
	if prev == nil || t.report == nil {
		return
	}
	t.report(prev.PageName, prev.PageURL, prev.Duration())
	metrics.IncTracked()
}

// Current returns the in-flight visit without finalizing or clearing it, or
// nil when nothing is being timed. Used for status inspection only.
func (t *Timer) Current() *Record {
	if !t.store.Available() {
		return nil
	}
	raw, err := t.store.Get(context.Background(), SlotKey)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		t.warn("current", fmt.Errorf("read slot: %w", err))
		return nil
	}
	var rec Record
	if err := t.codec.Decode(raw, &rec); err != nil {
		t.warn("current", err)
		return nil
	}
	return &rec
}

func (t *Timer) start(pageName, pageURL string) error {
	if !t.store.Available() {
		return ErrStorageUnavailable
	}
	ctx := context.Background()
	_, err := t.store.Get(ctx, SlotKey)
	switch {
	case err == nil:
		return ErrConsecutiveStart
	case !errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("read slot: %w", err)
	}
	rec := RecordAt(pageName, pageURL, t.now())
	encoded, err := t.codec.Encode(rec)
	if err != nil {
		return err
	}
	if err := t.store.Set(ctx, SlotKey, encoded); err != nil {
		return fmt.Errorf("write slot: %w", err)
	}
	metrics.IncStart()
	return nil
}

func (t *Timer) stop() (*Record, error) {
	if !t.store.Available() {
		return nil, ErrStorageUnavailable
	}
	ctx := context.Background()
	raw, err := t.store.Get(ctx, SlotKey)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read slot: %w", err)
	}
	var rec Record
	if err := t.codec.Decode(raw, &rec); err != nil {
		// Malformed slot data means there is nothing trustworthy to report.
		return nil, err
	}
	rec.finalize(t.now())
	// Finalization is destructive: the slot is cleared as part of stopping.
	// Read-then-clear is not atomic against another browsing context sharing
	// the session store; lost or duplicate readings are accepted best-effort.
	if err := t.store.Remove(ctx, SlotKey); err != nil {
		return nil, fmt.Errorf("clear slot: %w", err)
	}
	metrics.IncStop()
	metrics.ObserveVisitDuration(rec.Duration().Seconds())
	return &rec, nil
}

func (t *Timer) restart(pageName, pageURL string) (*Record, error) {
	prev, err := t.stop()
	if err != nil {
		return nil, err
	}
	if err := t.start(pageName, pageURL); err != nil {
		return prev, err
	}
	return prev, nil
}

// warn converts an internal failure into the swallowed-warning form at the
// public boundary. Storage unavailability is a capability absence, not a
// failure, and degrades without a warning.
func (t *Timer) warn(op string, err error) {
	if errors.Is(err, ErrStorageUnavailable) {
		return
	}
	slog.Warn("page visit timing failed", "op", op, "error", err.Error())
	metrics.IncSwallowedWarning(op)
}
