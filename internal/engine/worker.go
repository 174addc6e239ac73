package engine

import (
	"context"
	"errors"
	"sync"
)

// ErrQueueFull indicates the evaluation queue is saturated. Callers
// should shed the event rather than block ingestion.
var ErrQueueFull = errors.New("evaluation queue full")

// ErrPoolClosed indicates the pool has been shut down.
var ErrPoolClosed = errors.New("worker pool closed")

// pool runs CPU-bound evaluation work on a fixed set of goroutines
// behind a bounded queue, so an event burst degrades to backpressure
// instead of unbounded memory growth.
type pool struct {
	jobs chan func()
	wg   sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func newPool(workers, depth int) *pool {
	p := &pool{jobs: make(chan func(), depth)}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				job()
			}
		}()
	}
	return p
}

// submit enqueues a job without blocking. A full queue returns
// ErrQueueFull immediately.
func (p *pool) submit(job func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// run executes the job on a worker and waits for it to finish or for ctx
// to be cancelled. The job still completes on the worker after
// cancellation; only the wait is abandoned.
func (p *pool) run(ctx context.Context, job func()) error {
	done := make(chan struct{})
	if err := p.submit(func() {
		defer close(done)
		job()
	}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// close drains the queue and stops the workers. Pending jobs run to
// completion.
func (p *pool) close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()
	close(p.jobs)
	p.wg.Wait()
}
