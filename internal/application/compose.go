package application

import (
	"fmt"
	"strings"
	"time"

	"github.com/minidaoom/bundang-review-monitor/internal/domain/model"
)

// composeNotification renders the email for a run that decided to notify.
// The body always carries previous count, current count, delta, and both UTC
// and local timestamps, plus links to the listing and the current
// notification settings.
func composeNotification(rec model.RunRecord, in DecisionInput, targetURL string) model.Notification {
	current := 0
	if rec.Observed != nil {
		current = *rec.Observed
	}

	var subject string
	switch rec.Reason {
	case model.ReasonTest:
		subject = "[test] Review monitor test notification"
	case model.ReasonStart:
		subject = fmt.Sprintf("Review monitoring started (current count: %d)", current)
	case model.ReasonNoChange:
		subject = fmt.Sprintf("Review count unchanged (%d)", current)
	default:
		subject = changeSubject(rec)
	}

	return model.Notification{
		Subject: subject,
		Body:    composeBody(rec, in, targetURL),
	}
}

func changeSubject(rec model.RunRecord) string {
	if rec.Delta == nil {
		return "Review count changed"
	}
	current := *rec.Observed
	switch {
	case *rec.Delta > 0:
		return fmt.Sprintf("Review count up %d (now %d)", *rec.Delta, current)
	case *rec.Delta < 0:
		return fmt.Sprintf("Review count down %d (now %d)", -*rec.Delta, current)
	}
	return fmt.Sprintf("Review count unchanged (%d)", current)
}

func composeBody(rec model.RunRecord, in DecisionInput, targetURL string) string {
	var b strings.Builder

	b.WriteString("Review count change detected\n\n")

	fmt.Fprintf(&b, "  previous: %s\n", formatCount(rec.Previous))
	fmt.Fprintf(&b, "  current:  %s\n", formatCount(rec.Observed))
	fmt.Fprintf(&b, "  change:   %s\n\n", formatDelta(rec.Delta))

	fmt.Fprintf(&b, "Detected at:\n")
	fmt.Fprintf(&b, "  UTC:   %s\n", rec.Timestamp.UTC().Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "  local: %s\n\n", rec.Timestamp.In(time.Local).Format("2006-01-02 15:04:05"))

	fmt.Fprintf(&b, "Links:\n")
	fmt.Fprintf(&b, "  reviews: %s?placePath=/review\n", targetURL)
	fmt.Fprintf(&b, "  listing: %s\n\n", targetURL)

	fmt.Fprintf(&b, "Notification settings:\n")
	fmt.Fprintf(&b, "  minimum change: %d\n", in.Threshold)
	fmt.Fprintf(&b, "  quiet mode:     %s\n", onOff(in.QuietMode))
	fmt.Fprintf(&b, "  no-change:      %s\n", onOff(in.NotifyNoChange))
	fmt.Fprintf(&b, "  startup:        %s\n\n", onOff(in.NotifyStartup))

	b.WriteString("This message was sent automatically by the review monitor.\n")

	return b.String()
}

func formatCount(v *int) string {
	if v == nil {
		return "unknown"
	}
	return fmt.Sprintf("%d", *v)
}

func formatDelta(v *int) string {
	if v == nil {
		return "n/a"
	}
	if *v > 0 {
		return fmt.Sprintf("+%d", *v)
	}
	if *v == 0 {
		return "±0"
	}
	return fmt.Sprintf("%d", *v)
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
