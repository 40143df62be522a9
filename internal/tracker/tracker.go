// Package tracker implements the engine's tracer sideband: one binary file
// per tracked entity name, receiving one little-endian IEEE-754 float32
// sample per tick.
package tracker

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

// FileWriter writes one tracked entity's samples to <dir>/<name>.bin; Open
// creates dir if it is missing.
type FileWriter struct {
	f   *os.File
	buf [4]byte
}

// Open creates (or truncates) dir/<name>.bin, creating dir if missing.
func Open(dir, name string) (*FileWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("tracker: create output dir %q: %w", dir, err)
	}
	path := filepath.Join(dir, name+".bin")
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("tracker: open %q: %w", path, err)
	}
	return &FileWriter{f: f}, nil
}

// Tick implements engine.Tracker: appends one float32 LE sample.
func (w *FileWriter) Tick(sample float64) error {
	binary.LittleEndian.PutUint32(w.buf[:], math.Float32bits(float32(sample)))
	if _, err := w.f.Write(w.buf[:]); err != nil {
		return fmt.Errorf("tracker: write sample: %w", err)
	}
	return nil
}

// Close closes the underlying file.
func (w *FileWriter) Close() error {
	return w.f.Close()
}
