// Package application contains use-case orchestration services.
package application

import "github.com/minidaoom/bundang-review-monitor/internal/domain/model"

// DecisionInput carries the notification knobs for a single check. The
// values come from configuration, with test mode and threshold optionally
// overridden per dispatch.
type DecisionInput struct {
	TestMode       bool
	NotifyStartup  bool
	NotifyNoChange bool
	QuietMode      bool
	Threshold      int
}

// Decide determines whether a check should produce a notification.
//
// Test mode always notifies. A first run (no baseline) notifies only when
// startup notifications are enabled. A zero delta notifies only when
// no-change notifications are enabled and quiet mode is off. Otherwise the
// absolute delta is compared against the threshold.
func Decide(previous *int, current int, in DecisionInput) (bool, model.NotifyReason) {
	if in.TestMode {
		return true, model.ReasonTest
	}

	if previous == nil {
		if in.NotifyStartup {
			return true, model.ReasonStart
		}
		return false, model.ReasonStartupDisabled
	}

	delta := current - *previous
	if delta == 0 {
		if in.NotifyNoChange && !in.QuietMode {
			return true, model.ReasonNoChange
		}
		return false, model.ReasonNoChangeQuiet
	}

	if abs(delta) >= in.Threshold {
		return true, model.ReasonSignificantChange
	}
	return false, model.ReasonBelowThreshold
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
