package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/napta/zap/store"
)

// CheckpointConfig defines when accumulated progress is flushed to the
// journal.
type CheckpointConfig struct {
	// BytesInterval triggers a checkpoint after this many bytes have been transferred
	BytesInterval int64
	// TimeInterval triggers a checkpoint after this much time has passed
	TimeInterval time.Duration
}

// DefaultCheckpointConfig provides reasonable defaults for checkpointing
var DefaultCheckpointConfig = CheckpointConfig{
	BytesInterval: 10 * 1024 * 1024, // 10 MB
	TimeInterval:  5 * time.Second,
}

// JobTracker journals one job's lifecycle and byte progress. Byte
// counts arrive from concurrent workers; record updates are throttled
// by the checkpoint config so the journal is not written on every read.
type JobTracker struct {
	journal store.Journal
	config  CheckpointConfig
	jobID   string

	mu              sync.Mutex
	bytes           int64
	lastCheckpoint  int64
	lastCheckpointT time.Time
}

// NewJobTracker creates a tracker writing to the given journal.
func NewJobTracker(journal store.Journal, config CheckpointConfig) *JobTracker {
	return &JobTracker{
		journal:         journal,
		config:          config,
		lastCheckpointT: time.Now(),
	}
}

// InitJob writes the initial record for a job and binds the tracker to it.
func (jt *JobTracker) InitJob(job *TransferJob, streams int) error {
	jt.jobID = job.ID
	now := time.Now()

	record := &store.JobRecord{
		ID:          job.ID,
		Source:      job.Source.String(),
		Destination: job.Destination.String(),
		Direction:   job.Direction.String(),
		State:       store.StatePending,
		TotalBytes:  job.TotalSize,
		Streams:     streams,
		MaxRetries:  job.MaxRetries,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	return jt.journal.SaveJob(record)
}

// AddBytes accumulates transferred bytes and checkpoints the job record
// once a byte or time threshold passes. Safe for concurrent use.
func (jt *JobTracker) AddBytes(n int64) {
	jt.mu.Lock()
	jt.bytes += n

	needsCheckpoint := false
	if jt.bytes-jt.lastCheckpoint >= jt.config.BytesInterval {
		needsCheckpoint = true
	} else if time.Since(jt.lastCheckpointT) >= jt.config.TimeInterval {
		needsCheckpoint = true
	}

	current := jt.bytes
	if needsCheckpoint {
		jt.lastCheckpoint = current
		jt.lastCheckpointT = time.Now()
	}
	jt.mu.Unlock()

	if needsCheckpoint {
		jt.checkpoint(current)
	}
}

func (jt *JobTracker) checkpoint(bytes int64) {
	// A journal hiccup must not stall the transfer; checkpoints are
	// best effort.
	record, err := jt.journal.GetJob(jt.jobID)
	if err != nil {
		return
	}
	record.BytesTransferred = bytes
	record.UpdatedAt = time.Now()
	_ = jt.journal.SaveJob(record)
}

// Bytes returns the total bytes accumulated so far.
func (jt *JobTracker) Bytes() int64 {
	jt.mu.Lock()
	defer jt.mu.Unlock()
	return jt.bytes
}

// RecordChunk journals the state of one chunk after a transition.
func (jt *JobTracker) RecordChunk(c Chunk, checksum uint64, attemptErr error) error {
	record := &store.ChunkRecord{
		Index:     c.Index,
		Offset:    c.Offset,
		Length:    c.Length,
		State:     c.State.String(),
		Attempts:  c.Attempts,
		UpdatedAt: time.Now(),
	}
	if checksum != 0 {
		record.Checksum = fmt.Sprintf("%016x", checksum)
	}
	if attemptErr != nil {
		record.Error = attemptErr.Error()
	}
	return jt.journal.SaveChunk(jt.jobID, record)
}

// MarkRunning updates the job's state to Running.
func (jt *JobTracker) MarkRunning() error {
	record, err := jt.journal.GetJob(jt.jobID)
	if err != nil {
		return err
	}
	record.State = store.StateRunning
	record.UpdatedAt = time.Now()
	return jt.journal.SaveJob(record)
}

// MarkCompleted updates the job's state to Completed.
func (jt *JobTracker) MarkCompleted() error {
	record, err := jt.journal.GetJob(jt.jobID)
	if err != nil {
		return err
	}
	record.State = store.StateCompleted
	record.BytesTransferred = record.TotalBytes // Ensure it matches
	record.UpdatedAt = time.Now()
	return jt.journal.SaveJob(record)
}

// MarkFailed updates the job's state to Failed with an error message.
func (jt *JobTracker) MarkFailed(cause error) error {
	record, err := jt.journal.GetJob(jt.jobID)
	if err != nil {
		return err
	}
	record.State = store.StateFailed
	record.BytesTransferred = jt.Bytes()
	if cause != nil {
		record.Error = cause.Error()
	}
	record.UpdatedAt = time.Now()
	return jt.journal.SaveJob(record)
}
