// Package engine orchestrates a synthesis session: one-time model
// initialization, the frame producer loop, and selection of the playback or
// file consumer.
package engine

import (
	"context"

	"github.com/rolentle/toolchest/internal/frame"
	"github.com/rolentle/toolchest/internal/tokenizer"
)

// FrameHook receives each raw frame the model emits, in generation order.
// The default hook decodes and enqueues; callers may install their own to
// intercept frames for custom routing. Returning an error stops generation.
type FrameHook func(f frame.RawFrame) error

// GenerateOptions tunes one generation run.
type GenerateOptions struct {
	Temperature    float64
	CFGCoef        float64
	MaxPadding     int
	InitialPadding int
	FinalPadding   int
	PaddingBonus   int
	Seed           int64
	// MaxSteps bounds the autoregressive loop; zero selects the model's
	// own default.
	MaxSteps int
}

// Model is the opaque frame producer. Generate runs the inference loop and
// invokes onFrame once per generated time-step until completion or error.
// No timeout is imposed here; consumers absorb producer latency through
// buffering.
type Model interface {
	Generate(ctx context.Context, tokens []int64, opts GenerateOptions, onFrame FrameHook) error
	Close()
}

// Assets bundles the session-owned collaborators produced by one model
// initialization: the frame producer, the audio codec, and the text
// tokenizer. Initialization is expensive and happens at most once per
// session.
type Assets struct {
	Model     Model
	Codec     frame.Codec
	Tokenizer tokenizer.Tokenizer

	closers []func()
}

// Close releases everything the loader acquired.
func (a *Assets) Close() {
	if a == nil {
		return
	}
	if a.Model != nil {
		a.Model.Close()
	}
	for _, c := range a.closers {
		c()
	}
}
