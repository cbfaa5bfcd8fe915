// Package audio provides PCM sample utilities and WAV serialization for the
// 24 kHz mono output format produced by the synthesis engine.
package audio

// Expected WAV format for synthesized output.
const (
	ExpectedSampleRate = 24000
	ExpectedChannels   = 1
	ExpectedBitDepth   = 16
)

// BlockSize is the default per-callback sample count used by the playback
// device.
const BlockSize = 1920

// Clamp limits a sample to the canonical [-1, 1] amplitude range.
func Clamp(s float32) float32 {
	if s > 1 {
		return 1
	}
	if s < -1 {
		return -1
	}
	return s
}

// ClampAll clamps every sample in place and returns the same slice.
func ClampAll(samples []float32) []float32 {
	for i, s := range samples {
		samples[i] = Clamp(s)
	}
	return samples
}
