package driven

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// TaskQueue schedules ingestion work outside the request path.
// Accepted tasks are executed at least once.
type TaskQueue interface {
	// Enqueue hands a task to the queue. Returns domain.ErrQueueClosed when
	// the queue is not accepting work.
	Enqueue(ctx context.Context, task domain.IngestTask) error
}
