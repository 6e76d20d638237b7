package engine

import (
	"bytes"
	"io"
	"testing"
)

func TestChecksumReader(t *testing.T) {
	data := []byte("hello world")

	cr := NewChecksumReader(bytes.NewReader(data))

	readData := make([]byte, len(data))
	n, err := cr.Read(readData)
	if err != nil && err != io.EOF {
		t.Fatalf("Read failed: %v", err)
	}

	if n != len(data) {
		t.Errorf("Expected to read %d bytes, got %d", len(data), n)
	}

	if !bytes.Equal(readData, data) {
		t.Errorf("Expected read data to match %q, got %q", data, readData)
	}

	// Verify checksum is non-zero
	checksum := cr.Checksum()
	if checksum == 0 {
		t.Error("Expected non-zero checksum")
	}

	if cr.BytesRead() != int64(len(data)) {
		t.Errorf("Expected %d bytes read, got %d", len(data), cr.BytesRead())
	}
}

func TestChecksumReader_SmallReads(t *testing.T) {
	data := []byte("consistency across read sizes")

	whole := NewChecksumReader(bytes.NewReader(data))
	if _, err := io.ReadAll(whole); err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}

	byByte := NewChecksumReader(bytes.NewReader(data))
	buf := make([]byte, 1)
	for {
		_, err := byByte.Read(buf)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
	}

	if whole.Checksum() != byByte.Checksum() {
		t.Errorf("Checksum mismatch: whole=%d, byte-at-a-time=%d", whole.Checksum(), byByte.Checksum())
	}
	if whole.BytesRead() != byByte.BytesRead() {
		t.Errorf("BytesRead mismatch: %d vs %d", whole.BytesRead(), byByte.BytesRead())
	}
}

func TestChecksumReader_Empty(t *testing.T) {
	cr := NewChecksumReader(bytes.NewReader(nil))

	if _, err := io.ReadAll(cr); err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}

	if cr.BytesRead() != 0 {
		t.Errorf("Expected 0 bytes read, got %d", cr.BytesRead())
	}
	if cr.Checksum() != 0 {
		t.Errorf("Expected zero checksum for empty input, got %d", cr.Checksum())
	}
}
