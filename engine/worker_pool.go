package engine

import (
	"context"
	"sync"
)

// AttemptRunner executes one chunk attempt and returns its outcome. It
// must honor ctx and never retry internally; retry policy belongs to the
// orchestrator.
type AttemptRunner func(ctx context.Context, att Attempt) Outcome

// WorkerPool runs a fixed set of workers pulling chunk attempts. The
// size equals the stream count, which is what bounds how many chunks
// are in flight at once.
type WorkerPool struct {
	attempts AttemptChannel
	outcomes OutcomeChannel
	runner   AttemptRunner

	ctx    context.Context
	cancel context.CancelFunc

	size int
	wg   sync.WaitGroup
}

// NewWorkerPool creates a pool of size workers. The outcomes channel
// must be buffered to at least size so a finishing worker can always
// deliver its result without blocking.
func NewWorkerPool(ctx context.Context, size int, attempts AttemptChannel, outcomes OutcomeChannel, runner AttemptRunner) *WorkerPool {
	ctx, cancel := context.WithCancel(ctx)
	return &WorkerPool{
		attempts: attempts,
		outcomes: outcomes,
		runner:   runner,
		ctx:      ctx,
		cancel:   cancel,
		size:     size,
	}
}

// Start launches the workers. Each loops until the attempts channel
// closes or the pool context is cancelled.
func (p *WorkerPool) Start() {
	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				// Prioritize cancellation over draining more attempts
				select {
				case <-p.ctx.Done():
					return
				default:
				}

				select {
				case <-p.ctx.Done():
					return
				case att, ok := <-p.attempts:
					if !ok {
						// No more attempts coming, exit
						return
					}
					// The send never blocks: outcomes has capacity for
					// every in-flight attempt.
					p.outcomes <- p.runner(p.ctx, att)
				}
			}
		}()
	}
}

// Stop cancels in-flight attempts and waits for all workers to exit.
func (p *WorkerPool) Stop() {
	p.cancel()
	p.wg.Wait()
}

// Wait blocks until all workers exit on their own, which happens once
// the attempts channel is closed and drained.
func (p *WorkerPool) Wait() {
	p.wg.Wait()
}
