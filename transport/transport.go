package transport

import (
	"context"
	"io"
	"io/fs"
)

// FileInfo carries the file metadata a transfer needs. Mode is zero when
// the backend cannot report permission bits.
type FileInfo struct {
	Size int64
	Mode fs.FileMode
}

// Transport is the capability surface the engine drives on each side of a
// transfer. Implementations exist for the local filesystem and for a
// remote host reached over SSH.
type Transport interface {
	// Stat returns size and, where available, permission bits for path.
	Stat(ctx context.Context, path string) (FileInfo, error)

	// OpenRange opens a stream over exactly [offset, offset+length) of
	// the file at path. Callers are responsible for verifying they read
	// the full length.
	OpenRange(ctx context.Context, path string, offset, length int64) (io.ReadCloser, error)

	// Create opens a stream that writes a new file at path, truncating
	// any previous content. The write is complete only once Close
	// returns nil.
	Create(ctx context.Context, path string) (io.WriteCloser, error)

	// Concat writes the concatenation of the part files, in the given
	// order, to a new file at dst.
	Concat(ctx context.Context, parts []string, dst string) error

	// Chmod sets permission bits on path.
	Chmod(ctx context.Context, path string, mode fs.FileMode) error

	// MkdirAll creates the directory at path along with any missing
	// parents.
	MkdirAll(ctx context.Context, path string) error

	// Remove deletes the given files, ignoring ones already gone.
	Remove(ctx context.Context, paths ...string) error

	// Close releases the underlying connection, unblocking any stream
	// still in flight on it.
	Close() error
}

// Dialer hands out fresh Transport connections. The engine dials once per
// chunk attempt so that a connection-establishment failure is an ordinary
// retryable attempt failure, and so that every stream rides its own
// connection.
type Dialer interface {
	Dial(ctx context.Context) (Transport, error)
}
