// Package util holds small ambient helpers shared across the core:
// optional zstd compression for archived clips and event-id generation.
package util

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Compressor holds a zstd encoder level for compressing finalized
// recordings at rest; each Compress call builds a fresh encoder.
type Compressor struct {
	level zstd.EncoderLevel
}

// NewCompressor builds a Compressor at the given zstd level (1-22 roughly;
// values <= 0 fall back to the library default).
func NewCompressor(level int) (*Compressor, error) {
	if level <= 0 {
		return &Compressor{level: zstd.SpeedDefault}, nil
	}
	return &Compressor{level: zstd.EncoderLevelFromZstd(level)}, nil
}

// Compress returns the zstd-compressed form of data.
func (c *Compressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zstd.NewWriter(&buf, zstd.WithEncoderLevel(c.level))
	if err != nil {
		return nil, fmt.Errorf("compress: new writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, fmt.Errorf("compress: write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("compress: close: %w", err)
	}
	return buf.Bytes(), nil
}

// Decompress reverses Compress.
func Decompress(data []byte) ([]byte, error) {
	r, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decompress: new reader: %w", err)
	}
	defer r.Close()
	var out bytes.Buffer
	if _, err := out.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("decompress: read: %w", err)
	}
	return out.Bytes(), nil
}
