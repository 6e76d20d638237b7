package engine

import (
	"fmt"
	"io/fs"
	"path"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/napta/zap/endpoint"
)

// TransferJob is one single-file transfer: the resolved endpoints, the
// chunk partition, and the retry budget. It is created once, after
// validation and after the source size is known, and is read-only to
// workers.
type TransferJob struct {
	// ID identifies the job in logs and journal records.
	ID string

	// Source is the endpoint bytes are read from.
	Source endpoint.Endpoint

	// Destination is the endpoint whose directory receives the chunk
	// artifacts and the final file.
	Destination endpoint.Endpoint

	// Direction is Push for local→remote, Pull for remote→local.
	Direction endpoint.Direction

	// TotalSize is the source file size in bytes.
	TotalSize int64

	// Chunks partitions [0, TotalSize) in index order.
	Chunks []Chunk

	// MaxRetries bounds how many times a failed chunk may be requeued.
	MaxRetries int

	// SourceMode holds the source file's permission bits when known, to
	// be applied to the assembled file. Zero means unknown.
	SourceMode fs.FileMode
}

// NewTransferJob plans the chunk partition and assembles the job.
func NewTransferJob(res endpoint.Resolution, totalSize int64, streams, maxRetries int, sourceMode fs.FileMode) *TransferJob {
	return &TransferJob{
		ID:          uuid.NewString(),
		Source:      res.Source,
		Destination: res.Destination,
		Direction:   res.Direction,
		TotalSize:   totalSize,
		Chunks:      PlanChunks(totalSize, streams),
		MaxRetries:  maxRetries,
		SourceMode:  sourceMode,
	}
}

// FinalName is the name of the assembled file: the base name of the
// source path, as on the source's side.
func (j *TransferJob) FinalName() string {
	if j.Source.IsRemote() {
		return path.Base(j.Source.Path)
	}
	return filepath.Base(j.Source.Path)
}

// FinalPath is the assembled file's full path inside the destination
// directory.
func (j *TransferJob) FinalPath() string {
	return j.destJoin(j.FinalName())
}

// ArtifactPath is the chunk artifact path for the given index.
func (j *TransferJob) ArtifactPath(index int) string {
	return j.destJoin(fmt.Sprintf(".%s.zpart.%d", j.FinalName(), index))
}

// ArtifactPaths lists every chunk artifact path in index order, the
// order assembly concatenates them in.
func (j *TransferJob) ArtifactPaths() []string {
	paths := make([]string, len(j.Chunks))
	for i := range j.Chunks {
		paths[i] = j.ArtifactPath(i)
	}
	return paths
}

// destJoin joins name onto the destination directory using that side's
// path rules: POSIX joining for the remote side, the host OS's for the
// local side.
func (j *TransferJob) destJoin(name string) string {
	if j.Destination.IsRemote() {
		return path.Join(j.Destination.Path, name)
	}
	return filepath.Join(j.Destination.Path, name)
}

// Attempt is one dispatch of one chunk. Workers receive a copy of the
// chunk, never a pointer into the orchestrator's slice.
type Attempt struct {
	// Chunk is a read-only snapshot taken at dispatch time.
	Chunk Chunk

	// Job carries the endpoints and artifact naming. Read-only.
	Job *TransferJob
}

// AttemptChannel queues attempts for the worker pool.
type AttemptChannel chan Attempt

// Outcome is a worker's one-shot report back to the orchestrator.
type Outcome struct {
	// Index is the chunk the attempt belonged to.
	Index int

	// Bytes is how many bytes the attempt copied.
	Bytes int64

	// Checksum is the CRC64 of the bytes read, recorded for journal
	// diagnostics. Valid only when Err is nil.
	Checksum uint64

	// Err is nil on success, otherwise the attempt's failure.
	Err error
}

// OutcomeChannel carries outcomes from workers to the orchestrator.
type OutcomeChannel chan Outcome
