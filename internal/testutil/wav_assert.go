package testutil

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/rolentle/toolchest/internal/audio"
)

// AssertValidWAV checks that data is a PCM WAV file in the synthesis output
// format: RIFF header, 24000 Hz sample rate, mono, 16-bit depth, and a
// non-empty data chunk.
func AssertValidWAV(tb testing.TB, data []byte) {
	tb.Helper()

	if len(data) < 44 {
		tb.Fatalf("WAV data too short: %d bytes", len(data))
	}

	if string(data[0:4]) != "RIFF" {
		tb.Fatalf("WAV: missing RIFF header (got %q)", string(data[0:4]))
	}

	if string(data[8:12]) != "WAVE" {
		tb.Fatalf("WAV: missing WAVE marker (got %q)", string(data[8:12]))
	}

	if string(data[12:16]) != "fmt " {
		tb.Fatalf("WAV: missing fmt chunk (got %q)", string(data[12:16]))
	}

	// fmt chunk fields (little-endian).
	audioFmt := binary.LittleEndian.Uint16(data[20:22])
	if audioFmt != 1 {
		tb.Fatalf("WAV: expected PCM format (1), got %d", audioFmt)
	}

	channels := binary.LittleEndian.Uint16(data[22:24])
	if channels != audio.ExpectedChannels {
		tb.Fatalf("WAV: expected mono (%d channel), got %d", audio.ExpectedChannels, channels)
	}

	sampleRate := binary.LittleEndian.Uint32(data[24:28])
	if sampleRate != audio.ExpectedSampleRate {
		tb.Fatalf("WAV: expected sample rate %d, got %d", audio.ExpectedSampleRate, sampleRate)
	}

	bitDepth := binary.LittleEndian.Uint16(data[34:36])
	if bitDepth != audio.ExpectedBitDepth {
		tb.Fatalf("WAV: expected %d-bit depth, got %d", audio.ExpectedBitDepth, bitDepth)
	}

	sampleCount, err := wavSampleCount(data)
	if err != nil {
		tb.Fatalf("WAV: %v", err)
	}
	if sampleCount == 0 {
		tb.Fatal("WAV: data chunk contains zero samples")
	}
}

// AssertWAVDurationApprox asserts that the WAV audio duration falls within
// [minSec, maxSec] at the 24000 Hz output rate.
func AssertWAVDurationApprox(tb testing.TB, data []byte, minSec, maxSec float64) {
	tb.Helper()

	sampleCount, err := wavSampleCount(data)
	if err != nil {
		tb.Fatalf("WAV duration check: %v", err)
	}

	durationSec := float64(sampleCount) / float64(audio.ExpectedSampleRate)
	if durationSec < minSec || durationSec > maxSec {
		tb.Fatalf("WAV duration %.3fs out of expected range [%.3fs, %.3fs]", durationSec, minSec, maxSec)
	}
}

// wavSampleCount walks the WAV chunk list to the "data" sub-chunk and returns
// its size in 16-bit samples. A size of 0xFFFFFFFF marks a streamed file whose
// header was never patched; the remainder of the buffer is counted instead.
func wavSampleCount(data []byte) (uint32, error) {
	offset := 12 // past the RIFF/WAVE header
	for offset+8 <= len(data) {
		id := string(data[offset : offset+4])
		size := binary.LittleEndian.Uint32(data[offset+4 : offset+8])

		if id == "data" {
			if size == 0xFFFFFFFF {
				size = uint32(len(data) - offset - 8)
			}
			return size / 2, nil
		}

		offset += 8 + int(size)
		if size%2 != 0 {
			offset++ // chunks are padded to even boundaries
		}
	}

	return 0, errors.New("data chunk not found in WAV")
}
