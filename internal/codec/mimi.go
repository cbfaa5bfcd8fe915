// Package codec provides audio codec implementations that turn one frame of
// codebook tokens into 24 kHz PCM samples.
package codec

import (
	"context"
	"errors"
	"fmt"

	ort "github.com/shota3506/onnxruntime-purego/onnxruntime"
)

// MimiConfig holds ONNX Runtime settings for the mimi step decoder.
type MimiConfig struct {
	// ModelPath is the mimi step-decoder ONNX graph. The graph takes one
	// "codes" tensor of shape [1, K, 1] (int64) and produces one "audio"
	// tensor of float32 samples.
	ModelPath string
	// LibraryPath locates the ONNX Runtime shared library.
	LibraryPath string
	// APIVersion selects the ORT C API version (defaults to 23).
	APIVersion uint32
}

// Mimi is the production codec: a streaming mimi decoder executed one step
// at a time through ONNX Runtime.
type Mimi struct {
	runtime *ort.Runtime
	env     *ort.Env
	session *ort.Session
}

// NewMimi loads the mimi step-decoder graph. The returned codec owns the
// ORT session and must be closed.
func NewMimi(cfg MimiConfig) (*Mimi, error) {
	if cfg.ModelPath == "" {
		return nil, errors.New("mimi: model path is required")
	}
	if cfg.APIVersion == 0 {
		cfg.APIVersion = 23
	}

	runtime, err := ort.NewRuntime(cfg.LibraryPath, cfg.APIVersion)
	if err != nil {
		return nil, fmt.Errorf("mimi: ort runtime: %w", err)
	}

	env, err := runtime.NewEnv("toolchest-mimi", ort.LoggingLevelWarning)
	if err != nil {
		_ = runtime.Close()
		return nil, fmt.Errorf("mimi: ort env: %w", err)
	}

	session, err := runtime.NewSession(env, cfg.ModelPath, nil)
	if err != nil {
		env.Close()
		_ = runtime.Close()

		return nil, fmt.Errorf("mimi: ort session (%s): %w", cfg.ModelPath, err)
	}

	return &Mimi{runtime: runtime, env: env, session: session}, nil
}

// DecodeStep decodes one frame of codebook tokens into PCM samples.
func (m *Mimi) DecodeStep(ctx context.Context, codes []int64) ([]float32, error) {
	if len(codes) == 0 {
		return nil, errors.New("mimi: empty code frame")
	}

	in, err := ort.NewTensorValue(m.runtime, codes, []int64{1, int64(len(codes)), 1})
	if err != nil {
		return nil, fmt.Errorf("mimi: codes tensor: %w", err)
	}
	defer in.Close()

	outputs, err := m.session.Run(ctx, map[string]*ort.Value{"codes": in})
	if err != nil {
		return nil, fmt.Errorf("mimi: run: %w", err)
	}
	defer closeValues(outputs)

	out, ok := outputs["audio"]
	if !ok {
		return nil, errors.New("mimi: missing 'audio' in decoder output")
	}

	pcm, _, err := ort.GetTensorData[float32](out)
	if err != nil {
		return nil, fmt.Errorf("mimi: extract audio: %w", err)
	}

	// The ORT buffer is released with the value; return an owned copy.
	return append([]float32(nil), pcm...), nil
}

// Close releases all ORT resources. Safe to call multiple times.
func (m *Mimi) Close() {
	if m.session != nil {
		m.session.Close()
		m.session = nil
	}

	if m.env != nil {
		m.env.Close()
		m.env = nil
	}

	if m.runtime != nil {
		_ = m.runtime.Close()
		m.runtime = nil
	}
}

func closeValues(vals map[string]*ort.Value) {
	for _, v := range vals {
		if v != nil {
			v.Close()
		}
	}
}
