package audio

import (
	"errors"
	"fmt"
	"os"
)

// ErrEmptyOutput is returned when a session produced zero usable PCM blocks.
// In file mode this is fatal; no file is written.
var ErrEmptyOutput = errors.New("no audio was generated")

// FileSink serializes the full ordered output of a synthesis session into a
// single WAV file.
type FileSink struct {
	Path string

	// Hooks are applied to the concatenated samples before encoding.
	Hooks []Hook
}

// WriteAll concatenates the ordered PCM blocks and writes them as one
// 24 kHz mono 16-bit WAV. Blocks must be in production order; WriteAll
// never reorders or drops them. Zero usable samples is an error and leaves
// no file behind.
func (s *FileSink) WriteAll(blocks [][]float32) error {
	total := 0
	for _, b := range blocks {
		total += len(b)
	}
	if total == 0 {
		return ErrEmptyOutput
	}

	samples := make([]float32, 0, total)
	for _, b := range blocks {
		samples = append(samples, b...)
	}

	samples = ApplyHooks(samples, s.Hooks...)

	data, err := EncodeWAV(samples)
	if err != nil {
		return fmt.Errorf("encode WAV: %w", err)
	}

	if err := os.WriteFile(s.Path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", s.Path, err)
	}

	return nil
}
