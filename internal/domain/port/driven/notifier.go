package driven

import (
	"context"

	"github.com/minidaoom/bundang-review-monitor/internal/domain/model"
)

// Notifier defines the driven port for delivering a notification to the
// configured recipient.
type Notifier interface {
	Send(ctx context.Context, n model.Notification) error
}
