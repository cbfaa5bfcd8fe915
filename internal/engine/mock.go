package engine

import (
	"context"
	"time"

	"github.com/rolentle/toolchest/internal/frame"
)

// ScriptedModel replays a fixed frame sequence. It stands in for real
// inference in tests and offline smoke runs: the StepDelay simulates a
// producer that is slower than real time, and Err injects a model
// failure after the scripted frames.
type ScriptedModel struct {
	Frames    []frame.RawFrame
	StepDelay time.Duration
	Err       error

	Generated int
}

func (m *ScriptedModel) Generate(ctx context.Context, _ []int64, _ GenerateOptions, onFrame FrameHook) error {
	for _, f := range m.Frames {
		if m.StepDelay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(m.StepDelay):
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		if err := onFrame(f); err != nil {
			return err
		}
		m.Generated++
	}

	return m.Err
}

func (m *ScriptedModel) Close() {}

// WordTokenizer is a deterministic test tokenizer: one token per
// whitespace-separated word.
type WordTokenizer struct{}

func (WordTokenizer) Encode(text string) ([]int64, error) {
	var tokens []int64
	inWord := false
	for _, r := range text {
		if r == ' ' || r == '\n' || r == '\t' {
			inWord = false
			continue
		}
		if !inWord {
			tokens = append(tokens, int64(len(tokens)+1))
			inWord = true
		}
	}

	return tokens, nil
}
