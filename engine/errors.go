package engine

import "fmt"

// TransferStage names the phase of a chunk attempt that failed. The
// retry policy treats all stages identically; the stage only informs
// logs and journal records.
type TransferStage string

const (
	// StageConnect covers channel establishment, on either side.
	StageConnect TransferStage = "connect"

	// StageRead covers opening and draining the source range.
	StageRead TransferStage = "read"

	// StageWrite covers creating and flushing the destination artifact.
	StageWrite TransferStage = "write"
)

// TransferError is one chunk attempt's failure. It is recoverable: the
// orchestrator requeues the chunk while retries remain.
type TransferError struct {
	// Chunk is the failing chunk's index.
	Chunk int

	// Stage is where in the attempt the failure happened.
	Stage TransferStage

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *TransferError) Error() string {
	return fmt.Sprintf("chunk %d: %s: %v", e.Chunk, e.Stage, e.Err)
}

// Unwrap returns the underlying cause.
func (e *TransferError) Unwrap() error {
	return e.Err
}

// TransferFailure is the job-terminal transfer error: at least one chunk
// exhausted its retries, or the job was cancelled mid-transfer. Chunk
// artifacts are left in place when it is returned.
type TransferFailure struct {
	// ExhaustedChunks is the final count of chunks that ran out of
	// retries. Zero when the job was cancelled from outside.
	ExhaustedChunks int

	// Cause is the failure that tipped the job over.
	Cause error
}

// Error implements the error interface.
func (e *TransferFailure) Error() string {
	if e.ExhaustedChunks == 0 {
		return fmt.Sprintf("transfer failed: %v", e.Cause)
	}
	return fmt.Sprintf("transfer failed: %d chunk(s) exhausted retries: %v", e.ExhaustedChunks, e.Cause)
}

// Unwrap returns the tipping failure.
func (e *TransferFailure) Unwrap() error {
	return e.Cause
}

// AssemblyError is a job-terminal failure while materializing the final
// file. It is never retried, and it leaves the partial output and every
// chunk artifact on disk for inspection.
type AssemblyError struct {
	// Path is the final file path being assembled.
	Path string

	// Reason says which assembly step failed.
	Reason string

	// Err is the underlying cause, when there is one.
	Err error
}

// Error implements the error interface.
func (e *AssemblyError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("assembly of %s failed: %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("assembly of %s failed: %s: %v", e.Path, e.Reason, e.Err)
}

// Unwrap returns the underlying cause.
func (e *AssemblyError) Unwrap() error {
	return e.Err
}
