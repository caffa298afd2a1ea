package driving

import "context"

// IngestionWorkers runs queued ingestion tasks in the background.
type IngestionWorkers interface {
	// Start launches the workers and returns immediately.
	// Workers stop when ctx is cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop waits for in-flight tasks and stops the workers.
	Stop() error
}
