package visit

import "time"

// Record is one timed page visit. It is immutable after creation except for
// finalization, which the timer performs when the visit ends. Timestamps are
// epoch milliseconds so the serialized form stays stable across processes.
//
// DurationMillis is nil until finalization; a record read back from the
// session store before its visit ended carries no duration field. A pointer
// keeps a genuine 0ms visit distinguishable from an unfinished one, on the
// wire and through Finalized.
type Record struct {
	PageName       string `json:"page_name"`
	PageURL        string `json:"page_url"`
	StartMillis    int64  `json:"visit_start_ms"`
	DurationMillis *int64 `json:"visit_duration_ms,omitempty"`
}

// NewRecord captures the current time as the visit start. Capturing the
// timestamp is the only side effect of construction.
func NewRecord(pageName, pageURL string) Record {
	return RecordAt(pageName, pageURL, time.Now())
}

// RecordAt builds a record with an explicit start time.
func RecordAt(pageName, pageURL string, startedAt time.Time) Record {
	return Record{
		PageName:    pageName,
		PageURL:     pageURL,
		StartMillis: startedAt.UnixMilli(),
	}
}

// Duration returns the finalized visit duration, zero before finalization.
func (r Record) Duration() time.Duration {
	if r.DurationMillis == nil {
		return 0
	}
	return time.Duration(*r.DurationMillis) * time.Millisecond
}

// Finalized reports whether the visit has ended and a duration was computed.
func (r Record) Finalized() bool { return r.DurationMillis != nil }

func (r *Record) finalize(now time.Time) {
	d := now.UnixMilli() - r.StartMillis
	r.DurationMillis = &d
}

// StartedAt returns the visit start as a time.Time.
func (r Record) StartedAt() time.Time { return time.UnixMilli(r.StartMillis) }
