package engine_test

import (
	"path/filepath"
	"testing"

	"github.com/napta/zap/endpoint"
	"github.com/napta/zap/engine"
)

func TestNewTransferJob(t *testing.T) {
	res := endpoint.Resolution{
		Source:      endpoint.Endpoint{Locality: endpoint.Remote, Host: "nas", Port: 22, Path: "/data/file.bin"},
		Destination: endpoint.Endpoint{Locality: endpoint.Local, Path: "/tmp/out"},
		Direction:   endpoint.Pull,
	}

	job := engine.NewTransferJob(res, 100, 4, 3, 0o644)

	if job.ID == "" {
		t.Error("Expected a job ID")
	}
	if job.TotalSize != 100 {
		t.Errorf("Expected total size 100, got %d", job.TotalSize)
	}
	if len(job.Chunks) != 4 {
		t.Errorf("Expected 4 chunks, got %d", len(job.Chunks))
	}
	if job.MaxRetries != 3 {
		t.Errorf("Expected max retries 3, got %d", job.MaxRetries)
	}
	if job.Direction != endpoint.Pull {
		t.Errorf("Expected pull direction, got %s", job.Direction)
	}
}

func TestTransferJob_LocalDestinationPaths(t *testing.T) {
	res := endpoint.Resolution{
		Source:      endpoint.Endpoint{Locality: endpoint.Remote, Host: "nas", Port: 22, Path: "/data/file.bin"},
		Destination: endpoint.Endpoint{Locality: endpoint.Local, Path: "/tmp/out"},
		Direction:   endpoint.Pull,
	}
	job := engine.NewTransferJob(res, 100, 4, 3, 0)

	if got := job.FinalName(); got != "file.bin" {
		t.Errorf("Expected final name file.bin, got %s", got)
	}
	if got, want := job.FinalPath(), filepath.Join("/tmp/out", "file.bin"); got != want {
		t.Errorf("Expected final path %s, got %s", want, got)
	}
	if got, want := job.ArtifactPath(3), filepath.Join("/tmp/out", ".file.bin.zpart.3"); got != want {
		t.Errorf("Expected artifact path %s, got %s", want, got)
	}

	paths := job.ArtifactPaths()
	if len(paths) != len(job.Chunks) {
		t.Fatalf("Expected %d artifact paths, got %d", len(job.Chunks), len(paths))
	}
	for i, p := range paths {
		if p != job.ArtifactPath(i) {
			t.Errorf("artifact %d: expected %s, got %s", i, job.ArtifactPath(i), p)
		}
	}
}

func TestTransferJob_RemoteDestinationPaths(t *testing.T) {
	res := endpoint.Resolution{
		Source:      endpoint.Endpoint{Locality: endpoint.Local, Path: "/home/frank/big.iso"},
		Destination: endpoint.Endpoint{Locality: endpoint.Remote, Host: "backup", Port: 22, Path: "/srv/incoming"},
		Direction:   endpoint.Push,
	}
	job := engine.NewTransferJob(res, 1<<20, 8, 3, 0)

	// Remote paths join POSIX-style regardless of the local OS.
	if got := job.FinalPath(); got != "/srv/incoming/big.iso" {
		t.Errorf("Expected final path /srv/incoming/big.iso, got %s", got)
	}
	if got := job.ArtifactPath(0); got != "/srv/incoming/.big.iso.zpart.0" {
		t.Errorf("Expected artifact path /srv/incoming/.big.iso.zpart.0, got %s", got)
	}
}
