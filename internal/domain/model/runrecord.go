package model

import "time"

// RunRecord is the durable outcome of a single monitoring check.
// One record is appended per invocation, including failed ones.
type RunRecord struct {
	ID        int64
	Timestamp time.Time
	// Observed is the review count fetched this run. Nil when the fetch failed.
	Observed *int
	// Previous is the baseline count from the most recent successful run.
	// Nil on the very first run (no prior baseline).
	Previous *int
	// Delta is Observed - Previous. Nil when either side is nil.
	Delta    *int
	Notified bool
	Reason   NotifyReason
	// Error holds a short error tag when the run failed (e.g. "fetch_failed").
	Error string
}

// FetchFailed reports whether this run failed to obtain a count.
func (r RunRecord) FetchFailed() bool {
	return r.Observed == nil
}

// NewRunRecord builds a record for a successful fetch, computing the delta
// against the given baseline.
func NewRunRecord(now time.Time, observed int, previous *int) RunRecord {
	rec := RunRecord{
		Timestamp: now.UTC(),
		Observed:  &observed,
	}
	if previous != nil {
		prev := *previous
		delta := observed - prev
		rec.Previous = &prev
		rec.Delta = &delta
	}
	return rec
}

// NewFailedRunRecord builds a record for a run whose fetch failed. The
// baseline is carried through unchanged so the chain of observed counts
// is not reset by an outage.
func NewFailedRunRecord(now time.Time, previous *int, errTag string) RunRecord {
	rec := RunRecord{
		Timestamp: now.UTC(),
		Reason:    ReasonFetchFailed,
		Error:     errTag,
	}
	if previous != nil {
		prev := *previous
		rec.Previous = &prev
	}
	return rec
}
