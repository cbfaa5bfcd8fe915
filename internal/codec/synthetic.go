package codec

import (
	"context"
	"math"
)

// Synthetic is a deterministic test codec: each frame decodes to one block
// of a continuous 440 Hz sine, with amplitude derived from the first token.
// It lets the streaming pipeline run without model assets or an ONNX
// runtime.
type Synthetic struct {
	SampleRate int
	BlockSize  int

	phase float64
}

// NewSynthetic returns a codec producing 24 kHz blocks of 1920 samples,
// matching the production frame cadence.
func NewSynthetic() *Synthetic {
	return &Synthetic{SampleRate: 24000, BlockSize: 1920}
}

func (s *Synthetic) DecodeStep(_ context.Context, codes []int64) ([]float32, error) {
	amp := 0.5
	if len(codes) > 0 {
		// Token 0..1023 maps onto amplitude 0..1.
		amp = float64(codes[0]%1024) / 1023
	}

	const freq = 440.0
	step := 2 * math.Pi * freq / float64(s.SampleRate)

	block := make([]float32, s.BlockSize)
	for i := range block {
		block[i] = float32(amp * math.Sin(s.phase))
		s.phase += step
	}
	s.phase = math.Mod(s.phase, 2*math.Pi)

	return block, nil
}

func (s *Synthetic) Close() {}
