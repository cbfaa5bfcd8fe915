package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// StreamWriter serializes PCM blocks to a WAV stream incrementally, without
// knowing the total length up front. The header is written with the
// conventional 0xFFFFFFFF streaming-length markers; when the underlying
// writer is also an io.Seeker, Close patches the RIFF and data chunk sizes
// so the file parses as a regular finite WAV.
//
// Format: 24 kHz, mono, 16-bit PCM (matching ExpectedSampleRate).
type StreamWriter struct {
	w           io.Writer
	headerDone  bool
	dataBytes   uint32
	sampleCount int
	closed      bool
}

// NewStreamWriter returns a StreamWriter targeting w. Nothing is written
// until the first block arrives, so an empty stream leaves w untouched.
func NewStreamWriter(w io.Writer) *StreamWriter {
	return &StreamWriter{w: w}
}

// WriteBlock appends one PCM block. Samples are clamped to [-1, 1] and
// encoded as little-endian int16.
func (sw *StreamWriter) WriteBlock(samples []float32) error {
	if sw.closed {
		return errors.New("stream writer is closed")
	}
	if len(samples) == 0 {
		return nil
	}

	if !sw.headerDone {
		if err := sw.writeHeader(); err != nil {
			return err
		}
		sw.headerDone = true
	}

	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := int16(math.Round(float64(Clamp(s)) * 32767))
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(v))
	}

	n, err := sw.w.Write(buf)
	if err != nil {
		return fmt.Errorf("write PCM block: %w", err)
	}

	sw.dataBytes += uint32(n)
	sw.sampleCount += len(samples)

	return nil
}

// SampleCount reports the number of samples written so far.
func (sw *StreamWriter) SampleCount() int {
	return sw.sampleCount
}

// Close finalizes the stream. When the underlying writer supports seeking,
// the header length fields are rewritten with the real sizes. Closing a
// writer that never received a block is an error: a silent zero-length WAV
// must not be produced.
func (sw *StreamWriter) Close() error {
	if sw.closed {
		return nil
	}
	sw.closed = true

	if !sw.headerDone {
		return errors.New("no samples were written")
	}

	seeker, ok := sw.w.(io.WriteSeeker)
	if !ok {
		return nil
	}

	riffSize := 36 + sw.dataBytes

	if _, err := seeker.Seek(4, io.SeekStart); err != nil {
		return fmt.Errorf("seek RIFF size: %w", err)
	}
	if err := binary.Write(seeker, binary.LittleEndian, riffSize); err != nil {
		return fmt.Errorf("patch RIFF size: %w", err)
	}
	if _, err := seeker.Seek(40, io.SeekStart); err != nil {
		return fmt.Errorf("seek data size: %w", err)
	}
	if err := binary.Write(seeker, binary.LittleEndian, sw.dataBytes); err != nil {
		return fmt.Errorf("patch data size: %w", err)
	}
	if _, err := seeker.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("seek end: %w", err)
	}

	return nil
}

func (sw *StreamWriter) writeHeader() error {
	const (
		channels      = ExpectedChannels
		bitsPerSample = ExpectedBitDepth
		sampleRate    = ExpectedSampleRate
		byteRate      = sampleRate * channels * bitsPerSample / 8
		blockAlign    = channels * bitsPerSample / 8
	)

	var hdr [44]byte
	copy(hdr[0:4], "RIFF")
	binary.LittleEndian.PutUint32(hdr[4:8], 0xFFFFFFFF)
	copy(hdr[8:12], "WAVE")
	copy(hdr[12:16], "fmt ")
	binary.LittleEndian.PutUint32(hdr[16:20], 16)
	binary.LittleEndian.PutUint16(hdr[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(hdr[22:24], channels)
	binary.LittleEndian.PutUint32(hdr[24:28], sampleRate)
	binary.LittleEndian.PutUint32(hdr[28:32], byteRate)
	binary.LittleEndian.PutUint16(hdr[32:34], blockAlign)
	binary.LittleEndian.PutUint16(hdr[34:36], bitsPerSample)
	copy(hdr[36:40], "data")
	binary.LittleEndian.PutUint32(hdr[40:44], 0xFFFFFFFF)

	_, err := sw.w.Write(hdr[:])
	if err != nil {
		return fmt.Errorf("write WAV header: %w", err)
	}

	return nil
}
