// Package queue runs ingestion tasks on an in-process worker pool.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure Pool implements the interface.
var _ driven.TaskQueue = (*Pool)(nil)

// Handler executes one task.
type Handler interface {
	Ingest(ctx context.Context, task domain.IngestTask) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, task domain.IngestTask) error

// Ingest calls f.
func (f HandlerFunc) Ingest(ctx context.Context, task domain.IngestTask) error {
	return f(ctx, task)
}

// Config sizes the pool.
type Config struct {
	Workers   int
	QueueSize int
}

// Pool feeds a buffered channel of tasks to a fixed set of workers.
type Pool struct {
	config Config
	tasks  chan domain.IngestTask

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// New creates a stopped pool. Non-positive sizes fall back to the defaults.
func New(cfg Config) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = domain.DefaultIngestWorkers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = domain.DefaultIngestQueueSize
	}
	return &Pool{
		config: cfg,
		tasks:  make(chan domain.IngestTask, cfg.QueueSize),
	}
}

// Start launches the workers. It returns immediately; workers run until Stop
// is called or ctx is done.
func (p *Pool) Start(ctx context.Context, handler Handler) error {
	if handler == nil {
		return errors.New("queue: handler is required")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return nil // Already running
	}
	p.running = true
	p.stopCh = make(chan struct{})

	for i := 0; i < p.config.Workers; i++ {
		p.wg.Add(1)
		go p.work(ctx, i, handler, p.stopCh)
	}
	logger.Info("queue: started %d workers (capacity %d)", p.config.Workers, p.config.QueueSize)
	return nil
}

// Stop stops accepting work and waits for in-flight tasks to finish.
// Tasks still buffered are dropped; Recover picks them up on next start.
func (p *Pool) Stop() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	close(p.stopCh)
	p.mu.Unlock()

	p.wg.Wait()
	logger.Info("queue: stopped")
	return nil
}

// Running reports whether the workers are up.
func (p *Pool) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Enqueue hands a task to the workers, waiting for buffer space while ctx
// allows.
func (p *Pool) Enqueue(ctx context.Context, task domain.IngestTask) error {
	p.mu.Lock()
	running, stopCh := p.running, p.stopCh
	p.mu.Unlock()
	if !running {
		return domain.ErrQueueClosed
	}

	select {
	case p.tasks <- task:
		logger.Debug("queue: enqueued document %s", task.DocumentID)
		return nil
	case <-stopCh:
		return domain.ErrQueueClosed
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", domain.ErrQueueClosed, ctx.Err())
	}
}

// work is one worker loop.
func (p *Pool) work(ctx context.Context, id int, handler Handler, stopCh <-chan struct{}) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case task := <-p.tasks:
			p.run(ctx, id, handler, task)
		}
	}
}

func (p *Pool) run(ctx context.Context, id int, handler Handler, task domain.IngestTask) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error(fmt.Errorf("panic: %v", r), "queue: worker %d crashed on document %s", id, task.DocumentID)
		}
	}()

	logger.Debug("queue: worker %d picked up document %s", id, task.DocumentID)
	if err := handler.Ingest(ctx, task); err != nil {
		logger.Warn("queue: worker %d: %v", id, err)
	}
}

// Workers binds a pool to the handler its workers run.
type Workers struct {
	pool    *Pool
	handler Handler
}

// Ensure Workers implements the interface.
var _ driving.IngestionWorkers = (*Workers)(nil)

// Workers returns the pool's start/stop control bound to handler.
func (p *Pool) Workers(handler Handler) *Workers {
	return &Workers{pool: p, handler: handler}
}

// Start launches the pool's workers running the bound handler.
func (w *Workers) Start(ctx context.Context) error {
	return w.pool.Start(ctx, w.handler)
}

// Stop stops the pool.
func (w *Workers) Stop() error {
	return w.pool.Stop()
}
