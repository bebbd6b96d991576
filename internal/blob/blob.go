// Package blob loads device tree images from files and readers.
package blob

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// DefaultPath is where Linux exposes the firmware-provided device tree.
const DefaultPath = "/sys/firmware/fdt"

// Blob is a loaded device tree image. Call Close when done; for mapped
// files the bytes are invalid afterwards.
type Blob struct {
	path    string
	data    []byte
	release func() error
}

// Bytes returns the image contents.
func (b *Blob) Bytes() []byte { return b.data }

// Path returns the file the blob came from, or "-" for a reader.
func (b *Blob) Path() string { return b.path }

// Mapped reports whether the contents are a memory mapping of the file.
func (b *Blob) Mapped() bool { return b.release != nil }

// Close releases the mapping, if any.
func (b *Blob) Close() error {
	if b.release == nil {
		return nil
	}
	release := b.release
	b.release, b.data = nil, nil
	return release()
}

// Open loads the image at path. Regular files are mapped read-only where the
// platform supports it; anything else, including sysfs attributes that
// report a zero size, is read into memory.
func Open(path string) (*Blob, error) {
	if path == "-" {
		return Read(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if fi.Mode().IsRegular() && fi.Size() > 0 {
		if data, release, err := mapFile(f, fi.Size()); err == nil {
			return &Blob{path: path, data: data, release: release}, nil
		}
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return &Blob{path: path, data: data}, nil
}

// Read loads an image from r.
func Read(r io.Reader) (*Blob, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("read blob: %w", err)
	}
	return &Blob{path: "-", data: buf.Bytes()}, nil
}
