// Package workers provides a fixed-size pool for CPU-bound jobs.
// The client schedules proof-of-work mining here so it can never
// stall the goroutines servicing relay frames.
package workers

import (
	"context"
	"sync"
)

// Pool executes queued jobs on a fixed number of goroutines.
type Pool struct {
	jobs chan func()
	wg   sync.WaitGroup
	once sync.Once
}

// NewPool starts workerCount goroutines with a backlog-deep queue.
func NewPool(workerCount, backlog int) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	p := &Pool{jobs: make(chan func(), backlog)}
	for i := 0; i < workerCount; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	for job := range p.jobs {
		job()
	}
}

// Submit enqueues a job without blocking. It reports false when the
// backlog is full; the job is dropped, not queued.
func (p *Pool) Submit(job func()) bool {
	p.wg.Add(1)
	wrapped := func() {
		defer p.wg.Done()
		job()
	}
	select {
	case p.jobs <- wrapped:
		return true
	default:
		p.wg.Done()
		return false
	}
}

// Run enqueues a job and blocks until it finishes or ctx expires.
// Enqueueing blocks when the backlog is full. If ctx expires after
// the job was enqueued, the job still runs to completion on its
// worker; only the wait is abandoned.
func (p *Pool) Run(ctx context.Context, job func()) error {
	done := make(chan struct{})
	p.wg.Add(1)
	wrapped := func() {
		defer p.wg.Done()
		defer close(done)
		job()
	}
	select {
	case p.jobs <- wrapped:
	case <-ctx.Done():
		p.wg.Done()
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait blocks until every accepted job has completed.
func (p *Pool) Wait() { p.wg.Wait() }

// Stop closes the queue and waits for in-flight jobs.
func (p *Pool) Stop() {
	p.once.Do(func() {
		close(p.jobs)
		p.wg.Wait()
	})
}
