package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/minidaoom/bundang-review-monitor/internal/domain/model"
	"github.com/minidaoom/bundang-review-monitor/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.HistoryStore = (*HistoryRepo)(nil)

// HistoryRepo is the SQLite implementation of the HistoryStore port interface.
// Records are append-only; there are no update or delete operations.
type HistoryRepo struct {
	db *DB
}

// NewHistoryRepo creates a new HistoryRepo backed by the given DB.
func NewHistoryRepo(db *DB) *HistoryRepo {
	return &HistoryRepo{db: db}
}

// Append inserts a new run record at the end of the history.
func (r *HistoryRepo) Append(ctx context.Context, rec model.RunRecord) error {
	const query = `
		INSERT INTO run_records (timestamp, observed, previous, delta, notified, reason, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	notified := 0
	if rec.Notified {
		notified = 1
	}

	_, err := r.db.Writer.ExecContext(ctx, query,
		rec.Timestamp.UTC().Format(time.RFC3339Nano),
		nullableInt(rec.Observed), nullableInt(rec.Previous), nullableInt(rec.Delta),
		notified, string(rec.Reason), rec.Error,
	)
	if err != nil {
		return fmt.Errorf("append run record: %w", err)
	}

	return nil
}

// Latest returns the most recent run record, or nil when the history is empty.
func (r *HistoryRepo) Latest(ctx context.Context) (*model.RunRecord, error) {
	const query = `
		SELECT id, timestamp, observed, previous, delta, notified, reason, error
		FROM run_records
		ORDER BY id DESC
		LIMIT 1
	`

	rec, err := scanRecord(r.db.Reader.QueryRowContext(ctx, query))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get latest run record: %w", err)
	}

	return rec, nil
}

// LatestObserved returns the observed count of the most recent record with a
// successful fetch, or nil when no run has succeeded yet.
func (r *HistoryRepo) LatestObserved(ctx context.Context) (*int, error) {
	const query = `
		SELECT observed
		FROM run_records
		WHERE observed IS NOT NULL
		ORDER BY id DESC
		LIMIT 1
	`

	var observed int
	err := r.db.Reader.QueryRowContext(ctx, query).Scan(&observed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get latest observed count: %w", err)
	}

	return &observed, nil
}

// ListRecent returns up to limit run records, newest first.
func (r *HistoryRepo) ListRecent(ctx context.Context, limit int) ([]model.RunRecord, error) {
	const query = `
		SELECT id, timestamp, observed, previous, delta, notified, reason, error
		FROM run_records
		ORDER BY id DESC
		LIMIT ?
	`

	rows, err := r.db.Reader.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query run records: %w", err)
	}
	defer rows.Close()

	var recs []model.RunRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run record: %w", err)
		}
		recs = append(recs, *rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run records: %w", err)
	}

	return recs, nil
}

// Count returns the total number of run records.
func (r *HistoryRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.Reader.QueryRowContext(ctx, `SELECT COUNT(*) FROM run_records`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count run records: %w", err)
	}
	return count, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*model.RunRecord, error) {
	var rec model.RunRecord
	var timestamp string
	var observed, previous, delta sql.NullInt64
	var notified int
	var reason string

	err := s.Scan(&rec.ID, &timestamp, &observed, &previous, &delta, &notified, &reason, &rec.Error)
	if err != nil {
		return nil, err
	}

	rec.Timestamp, err = time.Parse(time.RFC3339Nano, timestamp)
	if err != nil {
		return nil, fmt.Errorf("parse timestamp: %w", err)
	}

	rec.Observed = intPtr(observed)
	rec.Previous = intPtr(previous)
	rec.Delta = intPtr(delta)
	rec.Notified = notified != 0
	rec.Reason = model.NotifyReason(reason)

	return &rec, nil
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}
