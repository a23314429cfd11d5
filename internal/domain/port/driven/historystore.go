package driven

import (
	"context"

	"github.com/minidaoom/bundang-review-monitor/internal/domain/model"
)

// HistoryStore defines the driven port for run record persistence.
// The store is append-only: records are never mutated or reordered.
type HistoryStore interface {
	// Append adds a new record to the end of the history.
	Append(ctx context.Context, rec model.RunRecord) error
	// Latest returns the most recent record, or nil when the history is empty.
	Latest(ctx context.Context) (*model.RunRecord, error)
	// LatestObserved returns the observed count of the most recent record
	// with a successful fetch, or nil when no run has succeeded yet. This is
	// the baseline for delta computation; failed runs do not reset it.
	LatestObserved(ctx context.Context) (*int, error)
	// ListRecent returns up to limit records, newest first.
	ListRecent(ctx context.Context, limit int) ([]model.RunRecord, error)
	// Count returns the total number of records.
	Count(ctx context.Context) (int, error)
}
