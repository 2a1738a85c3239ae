// Package pool runs tasks on a bounded number of goroutines.
package pool

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// ErrClosed is returned by Submit after Shutdown.
var ErrClosed = errors.New("pool is shut down")

// Pool bounds the number of concurrently running tasks. A Pool is owned by
// whoever constructs it and must be shut down by that owner.
type Pool struct {
	size   int
	sem    *semaphore.Weighted
	logger *zap.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
	seq    atomic.Uint64
}

// New returns a pool running at most size tasks at once. A size of zero or
// less uses the number of CPUs.
func New(size int, logger *zap.Logger) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Debug("Initializing worker pool", zap.Int("workers", size))
	return &Pool{
		size:   size,
		sem:    semaphore.NewWeighted(int64(size)),
		logger: logger,
	}
}

// Size returns the maximum number of concurrent tasks.
func (p *Pool) Size() int { return p.size }

// Submit blocks until a worker slot is free, then runs task on its own
// goroutine. It returns ctx.Err() if ctx ends first and ErrClosed once the
// pool is shut down. A panicking task is logged and does not affect others.
func (p *Pool) Submit(ctx context.Context, task func()) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return ErrClosed
	}
	p.wg.Add(1)
	p.mu.RUnlock()

	if err := p.sem.Acquire(ctx, 1); err != nil {
		p.wg.Done()
		return err
	}

	id := p.seq.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.sem.Release(1)
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("Worker task panicked",
					zap.Uint64("taskID", id),
					zap.Error(fmt.Errorf("panic: %v", r)))
			}
		}()
		task()
	}()
	return nil
}

// Shutdown stops accepting tasks and waits for running tasks to finish.
// It is safe to call more than once.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Debug("Worker pool shut down", zap.Uint64("tasksRun", p.seq.Load()))
}
