package ui

import (
	"sync"
	"time"

	"github.com/napta/zap/engine"
)

// TransferState is the aggregated snapshot the TUI renders.
type TransferState struct {
	Source         string
	Destination    string
	TotalBytes     int64
	CompletedBytes int64
	Streams        int
	TotalChunks    int
	DoneChunks     int
	RetriesUsed    int
	ActiveChunks   []*ActiveChunk
	ThroughputBPms float64 // bytes per millisecond
	Assembling     bool
	Done           bool
	Failed         bool
	Err            string
}

// ActiveChunk is one currently dispatched chunk.
type ActiveChunk struct {
	Index    int
	Length   int64
	Copied   int64
	Attempt  int
	Progress float64 // 0.0 to 1.0
}

type chunkView struct {
	length   int64
	copied   int64
	state    engine.ChunkState
	attempts int
}

// Monitor accumulates transfer events into renderable snapshots. It
// bridges engine callbacks, which arrive on engine goroutines, and the
// TUI's update loop. All methods are safe for concurrent use.
type Monitor struct {
	mu sync.Mutex

	source      string
	destination string
	totalBytes  int64
	streams     int
	chunks      []chunkView
	doneChunks  int
	retries     int
	start       time.Time

	done   bool
	failed bool
	errMsg string
}

// NewMonitor sizes a monitor for the given job.
func NewMonitor(job *engine.TransferJob, streams int) *Monitor {
	chunks := make([]chunkView, len(job.Chunks))
	for i, c := range job.Chunks {
		chunks[i] = chunkView{length: c.Length, state: c.State}
	}
	return &Monitor{
		source:      job.Source.String(),
		destination: job.Destination.String(),
		totalBytes:  job.TotalSize,
		streams:     streams,
		chunks:      chunks,
		start:       time.Now(),
	}
}

// ChunkProgress records bytes landing on the destination. It matches the
// worker progress callback signature.
func (m *Monitor) ChunkProgress(index int, n int64) {
	m.mu.Lock()
	m.chunks[index].copied += n
	m.mu.Unlock()
}

// ChunkTransition implements engine.Reporter.
func (m *Monitor) ChunkTransition(index int, state engine.ChunkState, attempts int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := &m.chunks[index]
	c.state = state
	c.attempts = attempts

	switch state {
	case engine.ChunkDispatched:
		// A fresh attempt overwrites the artifact from byte zero.
		c.copied = 0
	case engine.ChunkSucceeded:
		c.copied = c.length
		m.doneChunks++
	case engine.ChunkPending:
		c.copied = 0
		m.retries++
	case engine.ChunkFailed, engine.ChunkExhausted:
		c.copied = 0
	}
}

// SetDone marks the transfer finished.
func (m *Monitor) SetDone() {
	m.mu.Lock()
	m.done = true
	m.mu.Unlock()
}

// SetFailed marks the transfer failed with a message.
func (m *Monitor) SetFailed(err error) {
	m.mu.Lock()
	m.failed = true
	if err != nil {
		m.errMsg = err.Error()
	}
	m.mu.Unlock()
}

// Snapshot returns a copy of the current state.
func (m *Monitor) Snapshot() *TransferState {
	m.mu.Lock()
	defer m.mu.Unlock()

	state := &TransferState{
		Source:      m.source,
		Destination: m.destination,
		TotalBytes:  m.totalBytes,
		Streams:     m.streams,
		TotalChunks: len(m.chunks),
		DoneChunks:  m.doneChunks,
		RetriesUsed: m.retries,
		Done:        m.done,
		Failed:      m.failed,
		Err:         m.errMsg,
	}

	for i := range m.chunks {
		c := &m.chunks[i]
		switch c.state {
		case engine.ChunkSucceeded:
			state.CompletedBytes += c.length
		case engine.ChunkDispatched:
			copied := c.copied
			if copied > c.length {
				copied = c.length
			}
			state.CompletedBytes += copied

			active := &ActiveChunk{
				Index:   i,
				Length:  c.length,
				Copied:  copied,
				Attempt: c.attempts,
			}
			if c.length > 0 {
				active.Progress = float64(copied) / float64(c.length)
			}
			state.ActiveChunks = append(state.ActiveChunks, active)
		}
	}

	state.Assembling = !m.done && !m.failed && m.doneChunks == len(m.chunks)

	if elapsed := time.Since(m.start).Milliseconds(); elapsed > 0 {
		state.ThroughputBPms = float64(state.CompletedBytes) / float64(elapsed)
	}

	return state
}
