package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rolentle/toolchest/internal/audio"
	"github.com/rolentle/toolchest/internal/config"
	"github.com/rolentle/toolchest/internal/frame"
	"github.com/rolentle/toolchest/internal/playback"
)

// PlayTarget is the output target sentinel meaning "play through the audio
// device" rather than writing a file.
const PlayTarget = "-"

// sinkPollInterval is how long the file consumer waits for the producer when
// the queue runs dry.
const sinkPollInterval = 2 * time.Millisecond

// Loader performs the one-time model/voice initialization for a session.
type Loader func(ctx context.Context, cfg config.Config) (*Assets, error)

// Session owns one synthesis run configuration and the lazily initialized
// model state. Exactly one consumer (playback driver or file sink) runs per
// Run call.
type Session struct {
	cfg       config.Config
	log       *slog.Logger
	loader    Loader
	opener    playback.DeviceOpener
	hook      FrameHook
	fileHooks []audio.Hook

	loadOnce sync.Once
	loadErr  error
	assets   *Assets

	lastUnderruns int64
}

// Option customizes a Session.
type Option func(*Session)

// WithLoader substitutes the model initializer (tests use scripted models).
func WithLoader(l Loader) Option {
	return func(s *Session) { s.loader = l }
}

// WithDeviceOpener substitutes the playback device (tests use a fake).
func WithDeviceOpener(open playback.DeviceOpener) Option {
	return func(s *Session) { s.opener = open }
}

// WithLogger sets the session logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Session) { s.log = log }
}

// WithFrameHook installs a caller-supplied frame hook, replacing the
// default decode-and-enqueue routing.
func WithFrameHook(h FrameHook) Option {
	return func(s *Session) { s.hook = h }
}

// WithFileHooks installs sample transforms (normalization, fades) for the
// file output path. Hooks need the complete sample buffer, so setting any
// switches the sink from incremental streaming to buffered encoding.
func WithFileHooks(hooks ...audio.Hook) Option {
	return func(s *Session) { s.fileHooks = hooks }
}

// NewSession validates the configuration and prepares a session. It fails
// fast on configuration errors, before any model asset is touched.
func NewSession(cfg config.Config, opts ...Option) (*Session, error) {
	normalized, _, err := config.NormalizeQuantize(cfg.Model.Quantize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	cfg.Model.Quantize = normalized

	if cfg.Model.HFRepo == "" {
		return nil, fmt.Errorf("%w: model repository identifier is required", ErrConfiguration)
	}
	if cfg.Model.VoiceRepo == "" {
		return nil, fmt.Errorf("%w: voice repository identifier is required", ErrConfiguration)
	}
	if cfg.Audio.SampleRate <= 0 || cfg.Audio.BlockSize <= 0 {
		return nil, fmt.Errorf("%w: sample rate and block size must be positive", ErrConfiguration)
	}

	s := &Session{
		cfg:    cfg,
		log:    slog.Default(),
		loader: LoadONNXAssets,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Close releases model assets if they were loaded.
func (s *Session) Close() {
	s.assets.Close()
}

// Underruns reports the underrun count of the most recent playback run.
func (s *Session) Underruns() int64 {
	return s.lastUnderruns
}

// Run synthesizes text into the given target: a WAV path, or PlayTarget for
// the audio device. Per-frame decode failures are absorbed; session-level
// failures abort with the queue drained and all resources released.
func (s *Session) Run(ctx context.Context, text, target string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		if target == PlayTarget {
			s.log.Warn("input text is empty, nothing to play")
			return nil
		}
		return fmt.Errorf("%w: input text is empty", audio.ErrEmptyOutput)
	}

	if err := s.ensureAssets(ctx); err != nil {
		return err
	}

	tokens, err := s.assets.Tokenizer.Encode(text)
	if err != nil {
		return fmt.Errorf("tokenize input: %w", err)
	}
	if len(tokens) == 0 {
		if target == PlayTarget {
			s.log.Warn("input produced no tokens, nothing to play")
			return nil
		}
		return fmt.Errorf("%w: input produced no tokens", audio.ErrEmptyOutput)
	}

	queue := frame.NewQueue()
	decoder := frame.NewDecoder(s.assets.Codec)

	hook := s.hook
	if hook == nil {
		hook = s.enqueueHook(ctx, decoder, queue)
	}

	produce := func(ctx context.Context) error {
		defer queue.Close()

		err := s.assets.Model.Generate(ctx, tokens, s.generateOptions(), hook)
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("%w: %v", ErrModel, err)
		}

		return err
	}

	if target == PlayTarget {
		return s.runPlayback(ctx, queue, produce)
	}

	return s.runFileSink(ctx, queue, produce, target)
}

// ensureAssets performs the expensive model initialization exactly once and
// reuses it for the session lifetime.
func (s *Session) ensureAssets(ctx context.Context) error {
	s.loadOnce.Do(func() {
		s.log.Info("retrieving checkpoints",
			"hf_repo", s.cfg.Model.HFRepo,
			"voice_repo", s.cfg.Model.VoiceRepo,
			"quantize", s.cfg.Model.Quantize)

		s.assets, s.loadErr = s.loader(ctx, s.cfg)
	})

	return s.loadErr
}

// enqueueHook is the default frame routing: decode each frame and push the
// PCM block. All-sentinel frames are silently skipped; decode errors are
// logged and the step is dropped so a single bad frame never aborts the
// generation.
func (s *Session) enqueueHook(ctx context.Context, decoder *frame.Decoder, queue *frame.Queue) FrameHook {
	return func(f frame.RawFrame) error {
		block, ok, err := decoder.Decode(ctx, f)
		if err != nil {
			s.log.Warn("frame decode failed, skipping step", "error", err)
			return nil
		}
		if !ok {
			return nil
		}

		return queue.Push(block)
	}
}

// runPlayback runs the producer loop and the real-time driver concurrently,
// bridged only by the frame queue. A driver failure cancels the producer so
// the session does not keep inferring into a dead device.
func (s *Session) runPlayback(ctx context.Context, queue *frame.Queue, produce func(context.Context) error) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	driver := playback.NewDriver(playback.Config{
		SampleRate:        s.cfg.Audio.SampleRate,
		BlockSize:         s.cfg.Audio.BlockSize,
		InitialDelay:      s.cfg.Audio.InitialDelay,
		RebufferDelay:     s.cfg.Audio.RebufferDelay,
		UnderrunThreshold: s.cfg.Audio.UnderrunThreshold,
	}, queue, s.opener, s.log)

	driverErr := make(chan error, 1)
	go func() {
		err := driver.Run(runCtx)
		if err != nil {
			cancel()
		}
		driverErr <- err
	}()

	prodErr := produce(runCtx)
	drvErr := <-driverErr
	s.lastUnderruns = driver.Underruns()

	if prodErr != nil && !errors.Is(prodErr, context.Canceled) {
		return prodErr
	}
	if drvErr != nil && !errors.Is(drvErr, context.Canceled) {
		return drvErr
	}
	if errors.Is(prodErr, context.Canceled) || errors.Is(drvErr, context.Canceled) {
		return ctx.Err()
	}

	if queue.HighWater() == 0 {
		// Playback mode tolerates an empty generation; report it and move on.
		s.log.Warn("generation produced no audio")
	}

	return nil
}

// runFileSink writes the generation to a WAV file. Without sample hooks the
// blocks stream to disk incrementally as the producer emits them; hooks need
// the full buffer, so they force the buffered sink.
func (s *Session) runFileSink(ctx context.Context, queue *frame.Queue, produce func(context.Context) error, path string) error {
	if len(s.fileHooks) > 0 {
		if err := produce(ctx); err != nil {
			return err
		}

		sink := &audio.FileSink{Path: path, Hooks: s.fileHooks}
		if err := sink.WriteAll(queue.DrainAll()); err != nil {
			return err
		}

		s.log.Info("audio written", "path", path, "queue_high_water", queue.HighWater())

		return nil
	}

	return s.streamToFile(ctx, queue, produce, path)
}

// streamToFile consumes the queue concurrently with the producer and appends
// each block to the WAV file as it arrives. Any failure, including an empty
// generation, leaves no file behind.
func (s *Session) streamToFile(ctx context.Context, queue *frame.Queue, produce func(context.Context) error, path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(path)
		}
	}()

	prodCh := make(chan error, 1)
	go func() { prodCh <- produce(ctx) }()

	sw := audio.NewStreamWriter(f)

	var writeErr error
	for writeErr == nil {
		block, ok := queue.TryPop()
		if ok {
			writeErr = sw.WriteBlock(block)
			continue
		}
		if queue.Done() {
			break
		}
		time.Sleep(sinkPollInterval)
	}

	if prodErr := <-prodCh; prodErr != nil {
		return prodErr
	}
	if writeErr != nil {
		return writeErr
	}
	if sw.SampleCount() == 0 {
		return fmt.Errorf("%w: generation finished with zero samples", audio.ErrEmptyOutput)
	}

	if err := sw.Close(); err != nil {
		return fmt.Errorf("finalize %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}

	s.log.Info("audio written", "path", path,
		"samples", sw.SampleCount(), "queue_high_water", queue.HighWater())

	return nil
}

func (s *Session) generateOptions() GenerateOptions {
	g := s.cfg.Generation

	return GenerateOptions{
		Temperature:    g.Temperature,
		CFGCoef:        g.CFGCoef,
		MaxPadding:     g.MaxPadding,
		InitialPadding: g.InitialPadding,
		FinalPadding:   g.FinalPadding,
		PaddingBonus:   g.PaddingBonus,
		Seed:           g.Seed,
		MaxSteps:       g.MaxSteps,
	}
}
