package model

// NotifyReason explains why a run did or did not produce a notification.
type NotifyReason string

const (
	ReasonTest              NotifyReason = "test"               // Forced by test mode.
	ReasonStart             NotifyReason = "start"              // First run with startup notification enabled.
	ReasonStartupDisabled   NotifyReason = "startup_disabled"   // First run, startup notification off.
	ReasonNoChange          NotifyReason = "no_change"          // Zero delta, no-change notification enabled.
	ReasonNoChangeQuiet     NotifyReason = "no_change_quiet"    // Zero delta suppressed by quiet mode.
	ReasonSignificantChange NotifyReason = "significant_change" // Delta at or above the threshold.
	ReasonBelowThreshold    NotifyReason = "below_threshold"    // Non-zero delta under the threshold.
	ReasonFetchFailed       NotifyReason = "fetch_failed"       // Count could not be fetched.
)
