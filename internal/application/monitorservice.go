package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/minidaoom/bundang-review-monitor/internal/config"
	"github.com/minidaoom/bundang-review-monitor/internal/domain/model"
	"github.com/minidaoom/bundang-review-monitor/internal/domain/port/driven"
)

// ErrMissingMailCredentials is returned when a check decided to notify but
// no usable mail configuration is present. The run record is still appended.
var ErrMissingMailCredentials = errors.New("notification due but mail credentials are missing")

// Overrides carries the manual-dispatch parameters. Nil fields fall back to
// the configured values.
type Overrides struct {
	TestMode  *bool
	Threshold *int
}

// checkRequest represents a manual check trigger.
type checkRequest struct {
	overrides Overrides
	done      chan checkResult
}

type checkResult struct {
	rec model.RunRecord
	err error
}

// MonitorService orchestrates the periodic check: fetch the current review
// count, compare against the stored baseline, notify, append a run record,
// and publish result files.
type MonitorService struct {
	source    driven.ReviewSource
	history   driven.HistoryStore
	notifier  driven.Notifier
	publisher driven.Publisher // nil disables publishing
	cfg       *config.Config
	checkCh   chan checkRequest
	now       func() time.Time
}

// NewMonitorService creates a new MonitorService with all required
// dependencies. publisher may be nil when publishing is not configured.
func NewMonitorService(
	source driven.ReviewSource,
	history driven.HistoryStore,
	notifier driven.Notifier,
	publisher driven.Publisher,
	cfg *config.Config,
) *MonitorService {
	return &MonitorService{
		source:    source,
		history:   history,
		notifier:  notifier,
		publisher: publisher,
		cfg:       cfg,
		checkCh:   make(chan checkRequest),
		now:       time.Now,
	}
}

// Start begins the monitoring loop. It runs an immediate check, then checks
// on the configured interval, and serves manual check requests in between.
// Checks are serialized on this loop, so a slow run simply delays the next
// tick rather than overlapping it. Start blocks until the context is
// canceled.
func (s *MonitorService) Start(ctx context.Context) {
	if _, err := s.CheckOnce(ctx, Overrides{}); err != nil {
		slog.Error("initial check failed", "error", err)
	}

	ticker := time.NewTicker(s.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("monitor service stopped")
			return
		case <-ticker.C:
			if _, err := s.CheckOnce(ctx, Overrides{}); err != nil {
				slog.Error("scheduled check failed", "error", err)
			}
		case req := <-s.checkCh:
			rec, err := s.CheckOnce(ctx, req.overrides)
			req.done <- checkResult{rec: rec, err: err}
		}
	}
}

// Check triggers a manual check on the service loop, bypassing the interval.
// It blocks until the check completes or the context is canceled.
func (s *MonitorService) Check(ctx context.Context, ov Overrides) (model.RunRecord, error) {
	done := make(chan checkResult, 1)
	req := checkRequest{overrides: ov, done: done}

	select {
	case s.checkCh <- req:
	case <-ctx.Done():
		return model.RunRecord{}, ctx.Err()
	}

	select {
	case res := <-done:
		return res.rec, res.err
	case <-ctx.Done():
		return model.RunRecord{}, ctx.Err()
	}
}

// CheckOnce performs a single monitoring run: load the baseline, fetch the
// current count, decide whether to notify, send, append the run record, and
// publish result files. Every step after the fetch is attempted even when an
// earlier one failed, so a failed run still leaves a record and a log trail.
// The returned error reports the first failure of the run itself; persistence
// is never rolled back because of it.
func (s *MonitorService) CheckOnce(ctx context.Context, ov Overrides) (model.RunRecord, error) {
	start := s.now()
	in := s.decisionInput(ov)

	previous, err := s.history.LatestObserved(ctx)
	if err != nil {
		// Treated as "no prior baseline" rather than aborting the run.
		slog.Warn("loading baseline failed", "error", err)
		previous = nil
	}

	current, err := s.source.FetchCount(ctx)
	if err != nil {
		slog.Error("fetch review count failed", "error", err)
		rec := model.NewFailedRunRecord(start, previous, string(model.ReasonFetchFailed))
		s.append(ctx, rec)
		s.publishResults(ctx, rec.Timestamp)
		return rec, fmt.Errorf("fetch review count: %w", err)
	}

	rec := model.NewRunRecord(start, current.Count, previous)

	notify, reason := Decide(previous, current.Count, in)
	rec.Reason = reason

	var runErr error
	if notify {
		switch {
		case !s.cfg.HasMailCredentials():
			slog.Error("notification due but mail settings are missing",
				"reason", reason,
			)
			runErr = ErrMissingMailCredentials
		default:
			n := composeNotification(rec, in, s.cfg.TargetURL)
			if err := s.notifier.Send(ctx, n); err != nil {
				slog.Error("notification send failed", "reason", reason, "error", err)
			} else {
				rec.Notified = true
				slog.Info("notification sent", "reason", reason, "subject", n.Subject)
			}
		}
	} else {
		slog.Info("no notification", "reason", reason)
	}

	s.append(ctx, rec)
	s.publishResults(ctx, rec.Timestamp)

	slog.Info("check complete",
		"observed", current.Count,
		"previous", formatCount(previous),
		"delta", formatDelta(rec.Delta),
		"notified", rec.Notified,
		"reason", rec.Reason,
		"duration", time.Since(start).Round(time.Millisecond),
	)

	return rec, runErr
}

func (s *MonitorService) decisionInput(ov Overrides) DecisionInput {
	in := DecisionInput{
		TestMode:       s.cfg.TestMode,
		NotifyStartup:  s.cfg.NotifyStartup,
		NotifyNoChange: s.cfg.NotifyNoChange,
		QuietMode:      s.cfg.QuietMode,
		Threshold:      s.cfg.MinChangeThreshold,
	}
	if ov.TestMode != nil {
		in.TestMode = *ov.TestMode
	}
	if ov.Threshold != nil {
		in.Threshold = *ov.Threshold
	}
	return in
}

func (s *MonitorService) append(ctx context.Context, rec model.RunRecord) {
	if err := s.history.Append(ctx, rec); err != nil {
		slog.Error("append run record failed", "error", err)
	}
}

// publishResults commits the history file and the execution log to the
// configured repository. Best-effort: every failure is logged, none aborts
// the run.
func (s *MonitorService) publishResults(ctx context.Context, ts time.Time) {
	if s.publisher == nil {
		return
	}

	message := fmt.Sprintf("monitor: run at %s", ts.UTC().Format(time.RFC3339))

	history, err := s.exportHistory(ctx)
	if err != nil {
		slog.Error("export history for publishing failed", "error", err)
	} else {
		committed, err := s.publisher.PublishFile(ctx, s.cfg.HistoryPath, history, message)
		if err != nil {
			slog.Error("publish history failed", "path", s.cfg.HistoryPath, "error", err)
		} else if committed {
			slog.Info("history published", "path", s.cfg.HistoryPath)
		}
	}

	if s.cfg.LogPath == "" {
		return
	}
	logData, err := os.ReadFile(s.cfg.LogPath)
	if err != nil {
		slog.Error("read execution log for publishing failed", "path", s.cfg.LogPath, "error", err)
		return
	}
	committed, err := s.publisher.PublishFile(ctx, s.cfg.LogPath, logData, message)
	if err != nil {
		slog.Error("publish execution log failed", "path", s.cfg.LogPath, "error", err)
	} else if committed {
		slog.Info("execution log published", "path", s.cfg.LogPath)
	}
}

// exportedRecord is the published JSON shape, matching the
// review_history.json schema.
type exportedRecord struct {
	Timestamp          time.Time          `json:"timestamp"`
	ReviewCount        *int               `json:"review_count"`
	PreviousCount      *int               `json:"previous_count"`
	Change             *int               `json:"change"`
	NotificationReason model.NotifyReason `json:"notification_reason"`
	NotificationSent   bool               `json:"notification_sent"`
	Error              string             `json:"error,omitempty"`
}

// exportHistory serializes the retained history oldest-first for publishing.
func (s *MonitorService) exportHistory(ctx context.Context) ([]byte, error) {
	recs, err := s.history.ListRecent(ctx, s.cfg.HistoryLimit)
	if err != nil {
		return nil, err
	}

	// ListRecent is newest-first; the published file is chronological.
	exported := make([]exportedRecord, 0, len(recs))
	for i := len(recs) - 1; i >= 0; i-- {
		rec := recs[i]
		exported = append(exported, exportedRecord{
			Timestamp:          rec.Timestamp.UTC(),
			ReviewCount:        rec.Observed,
			PreviousCount:      rec.Previous,
			Change:             rec.Delta,
			NotificationReason: rec.Reason,
			NotificationSent:   rec.Notified,
			Error:              rec.Error,
		})
	}

	data, err := json.MarshalIndent(exported, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
