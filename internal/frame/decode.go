package frame

import (
	"context"
	"fmt"

	"github.com/rolentle/toolchest/internal/audio"
)

// InvalidToken is the per-channel validity sentinel. A frame whose channels
// are all InvalidToken carries no audio for that step.
const InvalidToken = -1

// RawFrame is one time-step of model output: one codebook token per channel.
type RawFrame []int64

// Valid reports whether the frame carries audio, i.e. not every channel is
// the invalid sentinel.
func (f RawFrame) Valid() bool {
	for _, tok := range f {
		if tok != InvalidToken {
			return true
		}
	}
	return false
}

// Codec converts one frame of codebook tokens into PCM samples. The mimi
// step decoder is the production implementation.
type Codec interface {
	DecodeStep(ctx context.Context, codes []int64) ([]float32, error)
}

// Decoder turns raw model frames into clamped PCM blocks.
type Decoder struct {
	codec Codec
}

func NewDecoder(codec Codec) *Decoder {
	return &Decoder{codec: codec}
}

// Decode converts one frame into a PCM block. An all-sentinel frame is a
// natural gap between utterance segments: it yields (nil, false, nil) with
// no error. A frame mixing valid and sentinel tokens is malformed and
// reported as a decode error; callers skip the step and continue. Samples
// of a successful decode are clamped elementwise to [-1, 1].
func (d *Decoder) Decode(ctx context.Context, f RawFrame) ([]float32, bool, error) {
	if len(f) == 0 {
		return nil, false, fmt.Errorf("decode: empty frame")
	}

	if !f.Valid() {
		return nil, false, nil
	}

	for ch, tok := range f {
		if tok == InvalidToken {
			return nil, false, fmt.Errorf("decode: channel %d holds the invalid sentinel in a partially valid frame", ch)
		}
		if tok < 0 {
			return nil, false, fmt.Errorf("decode: channel %d holds negative token %d", ch, tok)
		}
	}

	pcm, err := d.codec.DecodeStep(ctx, f)
	if err != nil {
		return nil, false, fmt.Errorf("decode: %w", err)
	}

	return audio.ClampAll(pcm), true, nil
}
