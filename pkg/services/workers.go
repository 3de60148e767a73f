package services

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// WorkerPoolConfig configures the fetch worker pool.
type WorkerPoolConfig struct {
	MaxConcurrent int // Maximum concurrent remote fetches (default: 4)
}

// DefaultWorkerPoolConfig returns sensible defaults.
func DefaultWorkerPoolConfig() WorkerPoolConfig {
	return WorkerPoolConfig{
		MaxConcurrent: 4,
	}
}

// WorkerPool runs remote fetches with bounded parallelism. The Kaiten client
// still serializes wire dispatch through its pacing gate; the pool only
// overlaps waiting on responses.
type WorkerPool struct {
	config WorkerPoolConfig
	logger *zap.Logger
}

// NewWorkerPool creates a new fetch worker pool.
func NewWorkerPool(config WorkerPoolConfig, logger *zap.Logger) *WorkerPool {
	if config.MaxConcurrent < 1 {
		config.MaxConcurrent = DefaultWorkerPoolConfig().MaxConcurrent
	}
	return &WorkerPool{
		config: config,
		logger: logger.Named("fetch-pool"),
	}
}

// WorkItem represents a unit of work to be processed.
type WorkItem[T any] struct {
	Index   int                                  // Position in the submitted batch
	ID      string                               // For logging/tracking
	Execute func(ctx context.Context) (T, error) // The work to be executed
}

// WorkResult represents the result of a work item.
type WorkResult[T any] struct {
	Index  int
	ID     string
	Result T
	Err    error
}

// Process executes all work items with bounded parallelism.
// Results are returned in submission order (by Index), regardless of the
// order in which they complete. Processing continues when some items fail.
func Process[T any](ctx context.Context, pool *WorkerPool, items []WorkItem[T]) []WorkResult[T] {
	if len(items) == 0 {
		return nil
	}

	results := make([]WorkResult[T], len(items))
	sem := make(chan struct{}, pool.config.MaxConcurrent)

	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		go func(i int, item WorkItem[T]) {
			defer wg.Done()

			// Acquire semaphore slot (blocks if at max concurrency)
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[i] = WorkResult[T]{Index: item.Index, ID: item.ID, Err: ctx.Err()}
				return
			}

			result, err := item.Execute(ctx)
			results[i] = WorkResult[T]{Index: item.Index, ID: item.ID, Result: result, Err: err}
		}(i, item)
	}
	wg.Wait()

	pool.logger.Debug("Processed batch",
		zap.Int("items", len(items)),
		zap.Int("max_concurrent", pool.config.MaxConcurrent))

	return results
}
