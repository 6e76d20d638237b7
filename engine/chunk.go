package engine

import "fmt"

// ChunkState tracks one chunk through the dispatch/retry cycle. All
// transitions happen on the orchestrator goroutine.
type ChunkState int

const (
	// ChunkPending means the chunk is waiting to be dispatched, either
	// fresh from planning or requeued after a failed attempt.
	ChunkPending ChunkState = iota

	// ChunkDispatched means a worker currently owns an attempt for the
	// chunk.
	ChunkDispatched

	// ChunkSucceeded means the chunk's artifact is durable on the
	// destination side.
	ChunkSucceeded

	// ChunkFailed means the last attempt failed. Transient while the
	// orchestrator decides between requeue and exhaustion, and final for
	// attempts abandoned when the job is already failing.
	ChunkFailed

	// ChunkExhausted means the chunk failed with no retries left. Any
	// chunk reaching this state fails the whole job.
	ChunkExhausted
)

// String returns a human-readable state name.
func (s ChunkState) String() string {
	switch s {
	case ChunkPending:
		return "pending"
	case ChunkDispatched:
		return "dispatched"
	case ChunkSucceeded:
		return "succeeded"
	case ChunkFailed:
		return "failed"
	case ChunkExhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("chunkstate(%d)", int(s))
	}
}

// Chunk is one contiguous byte range of the transfer. Chunks partition
// [0, TotalSize) exactly; index order equals offset order. State and
// Attempts belong to the orchestrator; workers only ever see a copy.
type Chunk struct {
	// Index addresses the chunk and its artifact.
	Index int

	// Offset is the chunk's first byte in the source file.
	Offset int64

	// Length is the number of bytes in the chunk. Zero only for the
	// single chunk of an empty file.
	Length int64

	// State is the chunk's position in the dispatch/retry cycle.
	State ChunkState

	// Attempts counts retries granted after failures. A chunk retries
	// while Attempts < MaxRetries and exhausts on failure otherwise.
	Attempts int
}
