package transport

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalTransport_Stat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stat.bin")
	if err := os.WriteFile(path, []byte("hello stat"), 0640); err != nil {
		t.Fatal(err)
	}

	tr, err := LocalDialer{}.Dial(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer tr.Close()

	info, err := tr.Stat(context.Background(), path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Size != 10 {
		t.Errorf("expected size 10, got %d", info.Size)
	}
	if info.Mode != 0640 {
		t.Errorf("expected mode 0640, got %o", info.Mode)
	}

	if _, err := tr.Stat(context.Background(), filepath.Join(dir, "missing")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLocalTransport_OpenRange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "range.bin")
	if err := os.WriteFile(path, []byte("0123456789"), 0644); err != nil {
		t.Fatal(err)
	}

	tr := &LocalTransport{}
	ctx := context.Background()

	tests := []struct {
		name    string
		offset  int64
		length  int64
		want    string
	}{
		{name: "middle", offset: 3, length: 4, want: "3456"},
		{name: "start", offset: 0, length: 2, want: "01"},
		{name: "tail", offset: 8, length: 2, want: "89"},
		{name: "empty", offset: 5, length: 0, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc, err := tr.OpenRange(ctx, path, tt.offset, tt.length)
			if err != nil {
				t.Fatalf("OpenRange failed: %v", err)
			}
			got, err := io.ReadAll(rc)
			rc.Close()
			if err != nil {
				t.Fatalf("ReadAll failed: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestLocalTransport_OpenRangeConcurrentReaders(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shared.bin")
	content := bytes.Repeat([]byte("abcdefgh"), 512)
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatal(err)
	}

	tr := &LocalTransport{}
	ctx := context.Background()

	// Two overlapping-in-time readers over disjoint ranges must not
	// disturb each other's positions.
	r1, err := tr.OpenRange(ctx, path, 0, 2048)
	if err != nil {
		t.Fatal(err)
	}
	defer r1.Close()
	r2, err := tr.OpenRange(ctx, path, 2048, 2048)
	if err != nil {
		t.Fatal(err)
	}
	defer r2.Close()

	buf1 := make([]byte, 2048)
	buf2 := make([]byte, 2048)
	if _, err := io.ReadFull(r2, buf2); err != nil {
		t.Fatal(err)
	}
	if _, err := io.ReadFull(r1, buf1); err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(buf1, content[:2048]) {
		t.Error("first reader returned wrong range")
	}
	if !bytes.Equal(buf2, content[2048:]) {
		t.Error("second reader returned wrong range")
	}
}

func TestLocalTransport_CreateAndConcat(t *testing.T) {
	dir := t.TempDir()
	tr := &LocalTransport{}
	ctx := context.Background()

	parts := []string{
		filepath.Join(dir, "part.0"),
		filepath.Join(dir, "part.1"),
		filepath.Join(dir, "part.2"),
	}
	contents := []string{"alpha-", "beta-", "gamma"}

	for i, p := range parts {
		wc, err := tr.Create(ctx, p)
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if _, err := wc.Write([]byte(contents[i])); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		if err := wc.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}

	final := filepath.Join(dir, "final.bin")
	if err := tr.Concat(ctx, parts, final); err != nil {
		t.Fatalf("Concat failed: %v", err)
	}

	got, err := os.ReadFile(final)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "alpha-beta-gamma" {
		t.Errorf("expected concatenated content, got %q", got)
	}
}

func TestLocalTransport_Remove(t *testing.T) {
	dir := t.TempDir()
	tr := &LocalTransport{}
	ctx := context.Background()

	present := filepath.Join(dir, "present")
	if err := os.WriteFile(present, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	// Removing a mix of existing and missing files succeeds.
	if err := tr.Remove(ctx, present, filepath.Join(dir, "already-gone")); err != nil {
		t.Errorf("Remove failed: %v", err)
	}
	if _, err := os.Stat(present); !os.IsNotExist(err) {
		t.Error("expected file to be removed")
	}
}

func TestLocalTransport_ChmodAndMkdirAll(t *testing.T) {
	dir := t.TempDir()
	tr := &LocalTransport{}
	ctx := context.Background()

	nested := filepath.Join(dir, "a", "b", "c")
	if err := tr.MkdirAll(ctx, nested); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	info, err := os.Stat(nested)
	if err != nil || !info.IsDir() {
		t.Fatalf("expected directory at %s", nested)
	}

	file := filepath.Join(nested, "f")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := tr.Chmod(ctx, file, 0755); err != nil {
		t.Fatalf("Chmod failed: %v", err)
	}
	info, err = os.Stat(file)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0755 {
		t.Errorf("expected mode 0755, got %o", info.Mode().Perm())
	}
}

func TestLocalTransport_ContextCancelled(t *testing.T) {
	tr := &LocalTransport{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := tr.Stat(ctx, "whatever"); err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if _, err := tr.OpenRange(ctx, "whatever", 0, 1); err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if _, err := tr.Create(ctx, "whatever"); err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
