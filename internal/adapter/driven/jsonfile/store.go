// Package jsonfile implements the HistoryStore port on a single JSON file.
//
// The file holds an ordered array of run records and is intended for
// cron-host deployments where the history is committed back into a
// repository. Writes happen under a sibling .lock file so overlapping
// invocations cannot lose a record, and the file itself is replaced
// atomically.
package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/natefinch/atomic"

	"github.com/minidaoom/bundang-review-monitor/internal/domain/model"
	"github.com/minidaoom/bundang-review-monitor/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.HistoryStore = (*Store)(nil)

// DefaultLimit caps the history length when no limit is configured.
const DefaultLimit = 200

// Store is the JSON-file implementation of the HistoryStore port interface.
type Store struct {
	path  string
	limit int
}

// NewStore creates a Store writing to path, keeping at most limit records.
// A non-positive limit falls back to DefaultLimit.
func NewStore(path string, limit int) *Store {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Store{path: path, limit: limit}
}

// record is the on-disk shape of a run record. Field names match the
// review_history.json format consumed by existing tooling.
type record struct {
	Timestamp          time.Time          `json:"timestamp"`
	ReviewCount        *int               `json:"review_count"`
	PreviousCount      *int               `json:"previous_count"`
	Change             *int               `json:"change"`
	NotificationReason model.NotifyReason `json:"notification_reason"`
	NotificationSent   bool               `json:"notification_sent"`
	Error              string             `json:"error,omitempty"`
}

func toRecord(rec model.RunRecord) record {
	return record{
		Timestamp:          rec.Timestamp.UTC(),
		ReviewCount:        rec.Observed,
		PreviousCount:      rec.Previous,
		Change:             rec.Delta,
		NotificationReason: rec.Reason,
		NotificationSent:   rec.Notified,
		Error:              rec.Error,
	}
}

func fromRecord(rec record) model.RunRecord {
	return model.RunRecord{
		Timestamp: rec.Timestamp,
		Observed:  rec.ReviewCount,
		Previous:  rec.PreviousCount,
		Delta:     rec.Change,
		Reason:    rec.NotificationReason,
		Notified:  rec.NotificationSent,
		Error:     rec.Error,
	}
}

// Append reads the history, appends rec, trims to the configured limit, and
// atomically replaces the file. The whole read-modify-write runs under the
// file lock.
func (s *Store) Append(ctx context.Context, rec model.RunRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	lock, err := acquireLock(s.path)
	if err != nil {
		return fmt.Errorf("lock history: %w", err)
	}
	defer lock.release()

	records, err := s.read()
	if err != nil {
		return err
	}

	records = append(records, toRecord(rec))
	if len(records) > s.limit {
		records = records[len(records)-s.limit:]
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}
	data = append(data, '\n')

	if err := atomic.WriteFile(s.path, strings.NewReader(string(data))); err != nil {
		return fmt.Errorf("write history: %w", err)
	}

	return nil
}

// Latest returns the most recent record, or nil when the history is empty.
func (s *Store) Latest(ctx context.Context) (*model.RunRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	records, err := s.read()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	rec := fromRecord(records[len(records)-1])
	return &rec, nil
}

// LatestObserved returns the observed count of the most recent record with a
// successful fetch, or nil when no run has succeeded yet.
func (s *Store) LatestObserved(ctx context.Context) (*int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	records, err := s.read()
	if err != nil {
		return nil, err
	}

	for i := len(records) - 1; i >= 0; i-- {
		if records[i].ReviewCount != nil {
			count := *records[i].ReviewCount
			return &count, nil
		}
	}

	return nil, nil
}

// ListRecent returns up to limit records, newest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]model.RunRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	records, err := s.read()
	if err != nil {
		return nil, err
	}

	if limit > len(records) {
		limit = len(records)
	}

	out := make([]model.RunRecord, 0, limit)
	for i := len(records) - 1; i >= len(records)-limit; i-- {
		out = append(out, fromRecord(records[i]))
	}

	return out, nil
}

// Count returns the number of records currently retained in the file.
func (s *Store) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	records, err := s.read()
	if err != nil {
		return 0, err
	}

	return len(records), nil
}

func (s *Store) read() ([]record, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}

	var records []record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse history %s: %w", s.path, err)
	}

	return records, nil
}
