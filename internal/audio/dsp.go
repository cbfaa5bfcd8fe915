package audio

import "math"

// Hook transforms a sample buffer in the file output path.
type Hook func(samples []float32) []float32

// ApplyHooks runs each hook over the samples in order.
func ApplyHooks(samples []float32, hooks ...Hook) []float32 {
	out := samples
	for _, hook := range hooks {
		out = hook(out)
	}

	return out
}

// PeakNormalize scales samples so the peak amplitude reaches 1.0.
func PeakNormalize(samples []float32) []float32 {
	var peak float32
	for _, s := range samples {
		a := float32(math.Abs(float64(s)))
		if a > peak {
			peak = a
		}
	}
	if peak == 0 || peak == 1 {
		return samples
	}

	gain := 1 / peak
	for i := range samples {
		samples[i] *= gain
	}

	return samples
}

// FadeIn applies a linear fade-in ramp over the given duration in milliseconds.
func FadeIn(samples []float32, sampleRate int, ms float64) []float32 {
	n := min(int(ms/1000*float64(sampleRate)), len(samples))
	for i := range n {
		samples[i] *= float32(i) / float32(n)
	}

	return samples
}

// FadeOut applies a linear fade-out ramp over the given duration in milliseconds.
func FadeOut(samples []float32, sampleRate int, ms float64) []float32 {
	n := min(int(ms/1000*float64(sampleRate)), len(samples))
	for i := range n {
		samples[len(samples)-1-i] *= float32(i) / float32(n)
	}

	return samples
}
