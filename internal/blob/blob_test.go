package blob_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/NeilAllavarpu/device-tree/internal/blob"
	"github.com/NeilAllavarpu/device-tree/internal/fdt/fdttest"
)

func TestOpenFile(t *testing.T) {
	want := fdttest.Sample(t)
	path := filepath.Join(t.TempDir(), "board.dtb")
	if err := os.WriteFile(path, want, 0o644); err != nil {
		t.Fatalf("failed to write blob: %v", err)
	}

	b, err := blob.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if !bytes.Equal(b.Bytes(), want) {
		t.Error("contents differ from the file")
	}
	if b.Path() != path {
		t.Errorf("Path() = %q, want %q", b.Path(), path)
	}
	switch runtime.GOOS {
	case "windows", "plan9", "js", "wasip1":
	default:
		if !b.Mapped() {
			t.Error("regular file should be mapped")
		}
	}

	if err := b.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if b.Bytes() != nil {
		t.Error("Bytes() should be nil after Close")
	}
	if err := b.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
}

func TestOpenEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.dtb")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("failed to write blob: %v", err)
	}

	b, err := blob.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if b.Mapped() {
		t.Error("empty file should not be mapped")
	}
	if len(b.Bytes()) != 0 {
		t.Errorf("got %d bytes, want 0", len(b.Bytes()))
	}
}

func TestOpenMissing(t *testing.T) {
	_, err := blob.Open(filepath.Join(t.TempDir(), "nope.dtb"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v, want os.ErrNotExist", err)
	}
}

func TestRead(t *testing.T) {
	want := fdttest.Sample(t)
	b, err := blob.Read(bytes.NewReader(want))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !bytes.Equal(b.Bytes(), want) {
		t.Error("contents differ from the reader")
	}
	if b.Path() != "-" {
		t.Errorf("Path() = %q, want -", b.Path())
	}
	if b.Mapped() {
		t.Error("reader contents should not be mapped")
	}
}
