package driven

import (
	"context"

	"github.com/minidaoom/bundang-review-monitor/internal/domain/model"
)

// ReviewSource defines the driven port for fetching the current review count
// from the external listing.
type ReviewSource interface {
	FetchCount(ctx context.Context) (model.ReviewCount, error)
}
