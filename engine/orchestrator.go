package engine

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"
)

// Reporter observes chunk state transitions. Calls arrive serialized
// from the orchestrator goroutine; byte-level progress flows separately
// through the worker progress callback.
type Reporter interface {
	ChunkTransition(index int, state ChunkState, attempts int)
}

// OrchestratorOptions tunes a run. Zero values mean: one stream, no
// retry pacing, no journal, no reporter, the default logger.
type OrchestratorOptions struct {
	// Streams bounds how many chunks are dispatched concurrently.
	Streams int

	// RetryDelay paces requeued chunks: a retried chunk becomes
	// dispatchable only after this long, plus up to 25% jitter. Zero
	// disables pacing.
	RetryDelay time.Duration

	// Tracker, when set, journals job and chunk records.
	Tracker *JobTracker

	// Reporter, when set, receives chunk transitions.
	Reporter Reporter

	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// Orchestrator owns the chunk state machine for one job: it dispatches
// pending chunks lowest-index-first onto the worker pool, applies the
// retry policy to failures, fails the whole job when a chunk exhausts
// its retries, and invokes the assembler once every chunk is durable.
// All chunk state lives here; nothing else mutates it.
type Orchestrator struct {
	job       *TransferJob
	runner    AttemptRunner
	assembler *Assembler

	streams    int
	retryDelay time.Duration
	tracker    *JobTracker
	reporter   Reporter
	log        *slog.Logger
}

// NewOrchestrator wires a job to its attempt runner and assembler.
func NewOrchestrator(job *TransferJob, runner AttemptRunner, assembler *Assembler, opts OrchestratorOptions) *Orchestrator {
	streams := opts.Streams
	if streams < 1 {
		streams = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		job:        job,
		runner:     runner,
		assembler:  assembler,
		streams:    streams,
		retryDelay: opts.RetryDelay,
		tracker:    opts.Tracker,
		reporter:   opts.Reporter,
		log:        logger.With("job", job.ID),
	}
}

// Run drives the job to a terminal state. It returns nil on completion,
// a *TransferFailure when a chunk exhausts its retries or the context is
// cancelled, and a *AssemblyError when assembly fails. Chunk artifacts
// are left in place on every failure path.
func (o *Orchestrator) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	o.markRunning()
	o.log.Info("transfer started",
		"source", o.job.Source.String(),
		"destination", o.job.Destination.String(),
		"direction", o.job.Direction.String(),
		"bytes", o.job.TotalSize,
		"chunks", len(o.job.Chunks),
		"streams", o.streams)

	attempts := make(AttemptChannel)
	outcomes := make(OutcomeChannel, o.streams)
	pool := NewWorkerPool(ctx, o.streams, attempts, outcomes, o.runner)
	pool.Start()

	total := len(o.job.Chunks)
	succeeded := 0
	inFlight := 0

	// Requeued chunks sit in delayed until their pacing timer fires on
	// the ready channel. Capacity covers one pending timer per chunk.
	ready := make(chan int, total)
	delayed := make(map[int]bool)

	var failure *TransferFailure
	ctxDone := ctx.Done()

	for {
		if failure == nil {
		dispatch:
			for inFlight < o.streams {
				idx := o.nextPending(delayed)
				if idx < 0 {
					break
				}
				chunk := &o.job.Chunks[idx]
				select {
				case attempts <- Attempt{Chunk: *chunk, Job: o.job}:
					chunk.State = ChunkDispatched
					inFlight++
					o.transition(idx)
					o.log.Debug("chunk dispatched", "chunk", idx, "offset", chunk.Offset, "length", chunk.Length, "attempts", chunk.Attempts)
				case <-ctx.Done():
					// The send lost to cancellation; no worker took the
					// chunk, so it stays pending.
					break dispatch
				}
			}
		} else {
			// Once failing, only drain; ctx.Done must not starve the
			// outcome reads.
			ctxDone = nil
		}

		if succeeded == total {
			break
		}
		if failure != nil && inFlight == 0 {
			break
		}

		select {
		case out := <-outcomes:
			inFlight--
			failure = o.apply(out, &succeeded, failure, delayed, ready, cancel)
		case idx := <-ready:
			delete(delayed, idx)
		case <-ctxDone:
			failure = &TransferFailure{Cause: ctx.Err()}
		}
	}

	if failure != nil {
		cancel()
		pool.Stop()
		for i := range o.job.Chunks {
			if o.job.Chunks[i].State == ChunkExhausted {
				failure.ExhaustedChunks++
			}
		}
		o.markFailed(failure)
		o.log.Error("transfer failed", "exhausted", failure.ExhaustedChunks, "cause", failure.Cause)
		return failure
	}

	close(attempts)
	pool.Wait()

	o.log.Info("all chunks durable", "chunks", total)
	if o.assembler != nil {
		if err := o.assembler.Run(ctx); err != nil {
			o.markFailed(err)
			return err
		}
	}

	o.markCompleted()
	o.log.Info("transfer complete", "bytes", o.job.TotalSize)
	return nil
}

// apply folds one outcome into the state machine and returns the job
// failure, which stays nil until a chunk exhausts its retries.
func (o *Orchestrator) apply(out Outcome, succeeded *int, failure *TransferFailure, delayed map[int]bool, ready chan int, cancel context.CancelFunc) *TransferFailure {
	chunk := &o.job.Chunks[out.Index]

	if out.Err == nil {
		chunk.State = ChunkSucceeded
		*succeeded++
		o.transition(out.Index)
		o.recordChunk(*chunk, out.Checksum, nil)
		o.log.Debug("chunk succeeded", "chunk", out.Index, "bytes", out.Bytes)
		return failure
	}

	if failure != nil {
		// The job is already failing; attempts resolving now were
		// cancelled or raced the cancellation. No requeue.
		chunk.State = ChunkFailed
		o.transition(out.Index)
		o.recordChunk(*chunk, 0, out.Err)
		return failure
	}

	if chunk.Attempts < o.job.MaxRetries {
		chunk.Attempts++
		chunk.State = ChunkPending
		o.transition(out.Index)
		o.recordChunk(*chunk, 0, out.Err)
		o.log.Debug("chunk requeued", "chunk", out.Index, "attempt", chunk.Attempts, "max", o.job.MaxRetries, "cause", out.Err)
		if o.retryDelay > 0 {
			delayed[out.Index] = true
			idx := out.Index
			time.AfterFunc(o.jitteredDelay(), func() { ready <- idx })
		}
		return failure
	}

	chunk.State = ChunkExhausted
	o.transition(out.Index)
	o.recordChunk(*chunk, 0, out.Err)
	o.log.Error("chunk exhausted retries", "chunk", out.Index, "attempts", chunk.Attempts+1, "cause", out.Err)
	cancel()
	return &TransferFailure{Cause: out.Err}
}

// nextPending returns the lowest-index dispatchable chunk, or -1.
func (o *Orchestrator) nextPending(delayed map[int]bool) int {
	for i := range o.job.Chunks {
		if o.job.Chunks[i].State == ChunkPending && !delayed[i] {
			return i
		}
	}
	return -1
}

func (o *Orchestrator) jitteredDelay() time.Duration {
	jitter := time.Duration(rand.Int64N(int64(o.retryDelay)/4 + 1))
	return o.retryDelay + jitter
}

func (o *Orchestrator) transition(idx int) {
	if o.reporter == nil {
		return
	}
	c := o.job.Chunks[idx]
	o.reporter.ChunkTransition(c.Index, c.State, c.Attempts)
}

func (o *Orchestrator) recordChunk(c Chunk, checksum uint64, attemptErr error) {
	if o.tracker == nil {
		return
	}
	if err := o.tracker.RecordChunk(c, checksum, attemptErr); err != nil {
		o.log.Warn("journal chunk record failed", "chunk", c.Index, "err", err)
	}
}

func (o *Orchestrator) markRunning() {
	if o.tracker == nil {
		return
	}
	if err := o.tracker.MarkRunning(); err != nil {
		o.log.Warn("journal update failed", "err", err)
	}
}

func (o *Orchestrator) markCompleted() {
	if o.tracker == nil {
		return
	}
	if err := o.tracker.MarkCompleted(); err != nil {
		o.log.Warn("journal update failed", "err", err)
	}
}

func (o *Orchestrator) markFailed(cause error) {
	if o.tracker == nil {
		return
	}
	if err := o.tracker.MarkFailed(cause); err != nil {
		o.log.Warn("journal update failed", "err", err)
	}
}
