// Package worker runs harvest workers under a bounded concurrency limit and
// drives the outer controller loop.
package worker

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Pool bounds the number of concurrently running workers. Permit
// acquisition is FIFO-fair under contention.
type Pool struct {
	sem *semaphore.Weighted
	wg  sync.WaitGroup
}

// NewPool creates a pool with the given concurrency limit.
func NewPool(limit int) *Pool {
	if limit < 1 {
		limit = 1
	}

	return &Pool{sem: semaphore.NewWeighted(int64(limit))}
}

// Start blocks until a permit is available, then runs fn on its own
// goroutine. The permit is released when fn returns, normally or not.
// Returns the context error when the wait is interrupted.
func (p *Pool) Start(ctx context.Context, fn func(ctx context.Context)) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}

	p.wg.Add(1)

	go func() {
		defer p.wg.Done()
		defer p.sem.Release(1)
		fn(ctx)
	}()

	return nil
}

// Wait blocks until every started worker has finished.
func (p *Pool) Wait() {
	p.wg.Wait()
}
