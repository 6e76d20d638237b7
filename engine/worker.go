package engine

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/napta/zap/transport"
)

// TransferWorker executes single chunk attempts. Each attempt dials its
// own source and destination connections, streams exactly the chunk's
// byte range into its artifact, and reports one Outcome. A worker never
// retries; its lifetime per chunk is exactly one attempt.
type TransferWorker struct {
	src      transport.Dialer
	dst      transport.Dialer
	buffers  *BufferPool
	progress func(index int, n int64)
}

// NewTransferWorker builds a worker over the two sides' dialers.
// progress, when non-nil, is called with byte increments as they land on
// the destination; it must be safe for concurrent use.
func NewTransferWorker(src, dst transport.Dialer, buffers *BufferPool, progress func(index int, n int64)) *TransferWorker {
	if buffers == nil {
		buffers = NewBufferPool(0)
	}
	return &TransferWorker{src: src, dst: dst, buffers: buffers, progress: progress}
}

// Run implements AttemptRunner.
func (w *TransferWorker) Run(ctx context.Context, att Attempt) Outcome {
	out := Outcome{Index: att.Chunk.Index}

	srcConn, err := w.src.Dial(ctx)
	if err != nil {
		out.Err = &TransferError{Chunk: att.Chunk.Index, Stage: StageConnect, Err: err}
		return out
	}
	defer srcConn.Close()

	dstConn, err := w.dst.Dial(ctx)
	if err != nil {
		out.Err = &TransferError{Chunk: att.Chunk.Index, Stage: StageConnect, Err: err}
		return out
	}
	defer dstConn.Close()

	reader, err := srcConn.OpenRange(ctx, att.Job.Source.Path, att.Chunk.Offset, att.Chunk.Length)
	if err != nil {
		out.Err = &TransferError{Chunk: att.Chunk.Index, Stage: StageRead, Err: err}
		return out
	}
	defer reader.Close()

	tap := NewChecksumReader(reader)

	writer, err := dstConn.Create(ctx, att.Job.ArtifactPath(att.Chunk.Index))
	if err != nil {
		out.Err = &TransferError{Chunk: att.Chunk.Index, Stage: StageWrite, Err: err}
		return out
	}

	copyErr := w.copyChunk(ctx, writer, tap, att.Chunk)

	// Close completes the destination write; for the remote side this is
	// where the write's exit status lands.
	closeErr := writer.Close()

	out.Bytes = tap.BytesRead()
	switch {
	case copyErr != nil:
		out.Err = copyErr
	case closeErr != nil:
		out.Err = &TransferError{Chunk: att.Chunk.Index, Stage: StageWrite, Err: closeErr}
	default:
		out.Checksum = tap.Checksum()
	}
	return out
}

// copyChunk moves exactly chunk.Length bytes through one pooled buffer,
// attributing failures to the side that produced them.
func (w *TransferWorker) copyChunk(ctx context.Context, dst io.Writer, src io.Reader, chunk Chunk) *TransferError {
	buf := w.buffers.Get()
	defer w.buffers.Put(buf)

	b := *buf
	var copied int64
	for copied < chunk.Length {
		if err := ctx.Err(); err != nil {
			return &TransferError{Chunk: chunk.Index, Stage: StageRead, Err: err}
		}

		want := int64(len(b))
		if remaining := chunk.Length - copied; remaining < want {
			want = remaining
		}

		rn, rerr := io.ReadFull(src, b[:want])
		if rn > 0 {
			wn, werr := dst.Write(b[:rn])
			copied += int64(wn)
			if w.progress != nil && wn > 0 {
				w.progress(chunk.Index, int64(wn))
			}
			if werr != nil {
				return &TransferError{Chunk: chunk.Index, Stage: StageWrite, Err: werr}
			}
			if wn < rn {
				return &TransferError{Chunk: chunk.Index, Stage: StageWrite, Err: io.ErrShortWrite}
			}
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) || errors.Is(rerr, io.ErrUnexpectedEOF) {
				return &TransferError{
					Chunk: chunk.Index,
					Stage: StageRead,
					Err:   fmt.Errorf("short read: got %d of %d bytes", copied, chunk.Length),
				}
			}
			return &TransferError{Chunk: chunk.Index, Stage: StageRead, Err: rerr}
		}
	}
	return nil
}
