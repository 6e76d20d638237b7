package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/napta/zap/transport"
)

// Assembler turns a job's chunk artifacts into the final file on the
// destination side: concatenate in index order, verify the assembled
// size, apply the source mode, remove the artifacts. Any failure leaves
// the artifacts in place so a later run can be diagnosed against them.
type Assembler struct {
	dst transport.Dialer
	job *TransferJob
	log *slog.Logger
}

func NewAssembler(dst transport.Dialer, job *TransferJob, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{dst: dst, job: job, log: logger.With("job", job.ID)}
}

func (a *Assembler) Run(ctx context.Context) error {
	final := a.job.FinalPath()
	parts := a.job.ArtifactPaths()

	conn, err := a.dst.Dial(ctx)
	if err != nil {
		return &AssemblyError{Path: final, Reason: "connect destination", Err: err}
	}
	defer conn.Close()

	a.log.Debug("assembling", "parts", len(parts), "final", final)
	if err := conn.Concat(ctx, parts, final); err != nil {
		return &AssemblyError{Path: final, Reason: "concatenate artifacts", Err: err}
	}

	info, err := conn.Stat(ctx, final)
	if err != nil {
		return &AssemblyError{Path: final, Reason: "verify assembled size", Err: err}
	}
	if info.Size != a.job.TotalSize {
		return &AssemblyError{
			Path:   final,
			Reason: fmt.Sprintf("size mismatch: assembled %d bytes, want %d", info.Size, a.job.TotalSize),
		}
	}

	if mode := a.job.SourceMode; mode != 0 {
		if err := conn.Chmod(ctx, final, mode); err != nil {
			a.log.Warn("could not apply source mode", "final", final, "mode", mode, "err", err)
		}
	}

	if err := conn.Remove(ctx, parts...); err != nil {
		return &AssemblyError{Path: final, Reason: "remove artifacts", Err: err}
	}

	a.log.Info("assembled", "final", final, "bytes", a.job.TotalSize)
	return nil
}
