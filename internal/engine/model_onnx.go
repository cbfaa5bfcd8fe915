package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	ort "github.com/shota3506/onnxruntime-purego/onnxruntime"

	"github.com/rolentle/toolchest/internal/audio"
	"github.com/rolentle/toolchest/internal/codec"
	"github.com/rolentle/toolchest/internal/config"
	"github.com/rolentle/toolchest/internal/frame"
	"github.com/rolentle/toolchest/internal/hub"
	"github.com/rolentle/toolchest/internal/tokenizer"
)

// bundleConfig mirrors the config.json shipped in a toolchest TTS model
// repo: the step-model graph, the mimi decoder graph, and the tokenizer.
type bundleConfig struct {
	ModelName     string `json:"moshi_name"`
	MimiName      string `json:"mimi_name"`
	TokenizerName string `json:"tokenizer_name"`
}

// LoadONNXAssets is the production Loader: it retrieves the model bundle
// and voice sample from their repositories, then opens the ONNX sessions.
func LoadONNXAssets(ctx context.Context, cfg config.Config) (*Assets, error) {
	client := &hub.Client{CacheDir: cfg.Model.CacheDir, Token: os.Getenv("HF_TOKEN")}

	begin := time.Now()

	rawPath, err := client.Get(ctx, cfg.Model.HFRepo, "config.json")
	if err != nil {
		return nil, fmt.Errorf("load model config: %w", err)
	}

	raw, err := os.ReadFile(rawPath)
	if err != nil {
		return nil, fmt.Errorf("read model config: %w", err)
	}

	var bundle bundleConfig
	if err := json.Unmarshal(raw, &bundle); err != nil {
		return nil, fmt.Errorf("decode model config: %w", err)
	}
	if bundle.ModelName == "" {
		bundle.ModelName = "model.onnx"
	}
	if bundle.MimiName == "" || bundle.TokenizerName == "" {
		return nil, fmt.Errorf("model config is missing mimi_name or tokenizer_name")
	}

	// Quantized bundles ship as separate graph variants.
	modelName := quantizedVariant(bundle.ModelName, cfg.Model.Quantize)

	modelPath, err := client.Get(ctx, cfg.Model.HFRepo, modelName)
	if err != nil {
		return nil, fmt.Errorf("load model weights: %w", err)
	}
	mimiPath, err := client.Get(ctx, cfg.Model.HFRepo, bundle.MimiName)
	if err != nil {
		return nil, fmt.Errorf("load audio tokenizer: %w", err)
	}
	tokPath, err := client.Get(ctx, cfg.Model.HFRepo, bundle.TokenizerName)
	if err != nil {
		return nil, fmt.Errorf("load text tokenizer: %w", err)
	}

	voice, err := loadVoiceSample(ctx, client, cfg.Model.VoiceRepo, cfg.Model.Voice)
	if err != nil {
		return nil, err
	}

	tok, err := tokenizer.NewSentencePiece(tokPath)
	if err != nil {
		return nil, err
	}

	mimi, err := codec.NewMimi(codec.MimiConfig{
		ModelPath:   mimiPath,
		LibraryPath: cfg.Runtime.ORTLibraryPath,
		APIVersion:  cfg.Runtime.ORTAPIVersion,
	})
	if err != nil {
		return nil, err
	}

	model, err := newONNXModel(modelPath, cfg.Runtime, voice)
	if err != nil {
		mimi.Close()
		return nil, err
	}

	slog.Info("model initialized",
		"model", modelName,
		"voice", cfg.Model.Voice,
		"elapsed", time.Since(begin).Round(time.Millisecond))

	return &Assets{
		Model:     model,
		Codec:     mimi,
		Tokenizer: tok,
		closers:   []func(){mimi.Close},
	}, nil
}

// loadVoiceSample fetches the voice prompt WAV and decodes it into the
// conditioning sample buffer.
func loadVoiceSample(ctx context.Context, client *hub.Client, repo, voice string) ([]float32, error) {
	path, err := client.Get(ctx, repo, voice)
	if err != nil {
		return nil, fmt.Errorf("load voice %q: %w", voice, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read voice %q: %w", voice, err)
	}

	samples, err := audio.DecodeWAV(data)
	if err != nil {
		return nil, fmt.Errorf("decode voice %q: %w", voice, err)
	}

	return samples, nil
}

// quantizedVariant maps model.onnx to model-q4.onnx / model-q8.onnx.
func quantizedVariant(name, quantize string) string {
	if quantize == "" || quantize == config.QuantizeNone {
		return name
	}

	if i := strings.LastIndex(name, "."); i > 0 {
		return name[:i] + "-q" + quantize + name[i:]
	}

	return name + "-q" + quantize
}

// onnxModel runs the autoregressive step graph. The graph is stateless: on
// every step it receives the full text token sequence, the voice
// conditioning samples, and the codebook frames generated so far, and
// produces the next frame of codes plus an end-of-speech logit.
type onnxModel struct {
	runtime *ort.Runtime
	env     *ort.Env
	session *ort.Session
	voice   []float32
}

func newONNXModel(modelPath string, rt config.RuntimeConfig, voice []float32) (*onnxModel, error) {
	apiVersion := rt.ORTAPIVersion
	if apiVersion == 0 {
		apiVersion = 23
	}

	runtime, err := ort.NewRuntime(rt.ORTLibraryPath, apiVersion)
	if err != nil {
		return nil, fmt.Errorf("model: ort runtime: %w", err)
	}

	env, err := runtime.NewEnv("toolchest-model", ort.LoggingLevelWarning)
	if err != nil {
		_ = runtime.Close()
		return nil, fmt.Errorf("model: ort env: %w", err)
	}

	session, err := runtime.NewSession(env, modelPath, nil)
	if err != nil {
		env.Close()
		_ = runtime.Close()

		return nil, fmt.Errorf("model: ort session (%s): %w", modelPath, err)
	}

	return &onnxModel{runtime: runtime, env: env, session: session, voice: voice}, nil
}

// Generate runs the AR loop, invoking onFrame once per emitted frame until
// EOS (plus the configured trailing padding) or the step limit is reached.
func (m *onnxModel) Generate(ctx context.Context, tokens []int64, opts GenerateOptions, onFrame FrameHook) error {
	if len(tokens) == 0 {
		return errors.New("generate: token slice must not be empty")
	}

	maxSteps := opts.MaxSteps
	if maxSteps <= 0 {
		// The step bound scales with the script length and padding
		// allowance.
		perToken := opts.MaxPadding + opts.PaddingBonus
		if perToken <= 0 {
			perToken = 8
		}
		maxSteps = (len(tokens) + opts.InitialPadding + opts.FinalPadding) * perToken
	}

	begin := time.Now()
	var history []frame.RawFrame
	var eosCountdown *int

	for step := 0; step < maxSteps; step++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		next, eos, err := m.step(ctx, tokens, history, opts)
		if err != nil {
			return fmt.Errorf("generate step %d: %w", step, err)
		}

		if err := onFrame(next); err != nil {
			return fmt.Errorf("generate step %d: frame hook: %w", step, err)
		}

		history = append(history, next)

		if eos && eosCountdown == nil {
			countdown := opts.FinalPadding
			eosCountdown = &countdown
			slog.Debug("EOS detected", "step", step, "trailing_frames", countdown)
		}
		if eosCountdown != nil {
			if *eosCountdown == 0 {
				break
			}
			*eosCountdown--
		}
	}

	slog.Info("generation complete",
		"frames", len(history),
		"elapsed", time.Since(begin).Round(time.Millisecond))

	return nil
}

// step executes one graph invocation and returns the next code frame plus
// the EOS decision.
func (m *onnxModel) step(ctx context.Context, tokens []int64, history []frame.RawFrame, opts GenerateOptions) (frame.RawFrame, bool, error) {
	inputs := make(map[string]*ort.Value, 4)
	defer func() {
		for _, v := range inputs {
			if v != nil {
				v.Close()
			}
		}
	}()

	tokensVal, err := ort.NewTensorValue(m.runtime, tokens, []int64{1, int64(len(tokens))})
	if err != nil {
		return nil, false, fmt.Errorf("tokens tensor: %w", err)
	}
	inputs["tokens"] = tokensVal

	voiceVal, err := ort.NewTensorValue(m.runtime, m.voice, []int64{1, int64(len(m.voice))})
	if err != nil {
		return nil, false, fmt.Errorf("voice tensor: %w", err)
	}
	inputs["voice_audio"] = voiceVal

	codesVal, err := m.historyTensor(history)
	if err != nil {
		return nil, false, err
	}
	inputs["codes"] = codesVal

	paramsVal, err := ort.NewTensorValue(m.runtime, []float32{float32(opts.Temperature), float32(opts.CFGCoef)}, []int64{2})
	if err != nil {
		return nil, false, fmt.Errorf("params tensor: %w", err)
	}
	inputs["params"] = paramsVal

	outputs, err := m.session.Run(ctx, inputs)
	if err != nil {
		return nil, false, err
	}
	defer func() {
		for _, v := range outputs {
			if v != nil {
				v.Close()
			}
		}
	}()

	codesOut, ok := outputs["codes_next"]
	if !ok {
		return nil, false, errors.New("missing 'codes_next' in model output")
	}
	codes, _, err := ort.GetTensorData[int64](codesOut)
	if err != nil {
		return nil, false, fmt.Errorf("extract codes: %w", err)
	}

	eosOut, ok := outputs["eos"]
	if !ok {
		return nil, false, errors.New("missing 'eos' in model output")
	}
	eosLogits, _, err := ort.GetTensorData[float32](eosOut)
	if err != nil {
		return nil, false, fmt.Errorf("extract eos: %w", err)
	}

	next := frame.RawFrame(append([]int64(nil), codes...))
	eos := len(eosLogits) > 0 && eosLogits[0] > 0

	return next, eos, nil
}

// historyTensor packs generated frames as [1, K, S] channel-major codes.
// Before the first step it is an all-zero BOS frame.
func (m *onnxModel) historyTensor(history []frame.RawFrame) (*ort.Value, error) {
	if len(history) == 0 {
		bos := make([]int64, 1)
		return ort.NewTensorValue(m.runtime, bos, []int64{1, 1, 1})
	}

	channels := len(history[0])
	steps := len(history)

	packed := make([]int64, 0, channels*steps)
	for ch := 0; ch < channels; ch++ {
		for s := 0; s < steps; s++ {
			packed = append(packed, history[s][ch])
		}
	}

	return ort.NewTensorValue(m.runtime, packed, []int64{1, int64(channels), int64(steps)})
}

func (m *onnxModel) Close() {
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
