package transport

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// ensure interface is implemented
var _ Transport = (*LocalTransport)(nil)
var _ Dialer = (*LocalDialer)(nil)

// LocalTransport implements Transport against the local filesystem. Paths
// are used as given, absolute or relative to the working directory.
type LocalTransport struct{}

// LocalDialer hands out LocalTransports. Dialing is free, so every
// attempt gets the same stateless value.
type LocalDialer struct{}

// Dial implements Dialer.
func (LocalDialer) Dial(ctx context.Context) (Transport, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	return &LocalTransport{}, nil
}

// Stat implements Transport.
func (t *LocalTransport) Stat(ctx context.Context, path string) (FileInfo, error) {
	select {
	case <-ctx.Done():
		return FileInfo{}, ctx.Err()
	default:
	}

	info, err := os.Stat(path)
	if err != nil {
		return FileInfo{}, err
	}
	return FileInfo{Size: info.Size(), Mode: info.Mode().Perm()}, nil
}

// OpenRange implements Transport using a positional section reader, so
// concurrent readers of the same file never contend on a shared offset.
func (t *LocalTransport) OpenRange(ctx context.Context, path string, offset, length int64) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &sectionReadCloser{
		SectionReader: io.NewSectionReader(f, offset, length),
		f:             f,
	}, nil
}

type sectionReadCloser struct {
	*io.SectionReader
	f *os.File
}

func (s *sectionReadCloser) Close() error {
	return s.f.Close()
}

// Create implements Transport.
func (t *LocalTransport) Create(ctx context.Context, path string) (io.WriteCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
}

// Concat implements Transport by copying each part, in order, into a
// freshly truncated dst.
func (t *LocalTransport) Concat(ctx context.Context, parts []string, dst string) error {
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	for _, part := range parts {
		select {
		case <-ctx.Done():
			out.Close()
			return ctx.Err()
		default:
		}

		in, err := os.Open(part)
		if err != nil {
			out.Close()
			return err
		}
		_, err = io.Copy(out, in)
		in.Close()
		if err != nil {
			out.Close()
			return err
		}
	}
	return out.Close()
}

// Chmod implements Transport.
func (t *LocalTransport) Chmod(ctx context.Context, path string, mode fs.FileMode) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	return os.Chmod(path, mode.Perm())
}

// MkdirAll implements Transport.
func (t *LocalTransport) MkdirAll(ctx context.Context, path string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	return os.MkdirAll(filepath.Clean(path), 0755)
}

// Remove implements Transport with rm -f semantics: files already gone
// are not an error.
func (t *LocalTransport) Remove(ctx context.Context, paths ...string) error {
	for _, path := range paths {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// Close implements Transport. There is no connection to release.
func (t *LocalTransport) Close() error {
	return nil
}
