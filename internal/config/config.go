package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	LogLevel   string           `mapstructure:"log_level"`
	Runtime    RuntimeConfig    `mapstructure:"runtime"`
	Model      ModelConfig      `mapstructure:"model"`
	Generation GenerationConfig `mapstructure:"generation"`
	Audio      AudioConfig      `mapstructure:"audio"`
	Extract    ExtractConfig    `mapstructure:"extract"`
	Ollama     OllamaConfig     `mapstructure:"ollama"`
	Tools      ToolsConfig      `mapstructure:"tools"`
}

type RuntimeConfig struct {
	ORTLibraryPath string `mapstructure:"ort_library_path"`
	ORTAPIVersion  uint32 `mapstructure:"ort_api_version"`
}

type ModelConfig struct {
	HFRepo    string `mapstructure:"hf_repo"`
	VoiceRepo string `mapstructure:"voice_repo"`
	Voice     string `mapstructure:"voice"`
	Quantize  string `mapstructure:"quantize"`
	CacheDir  string `mapstructure:"cache_dir"`
}

type GenerationConfig struct {
	Temperature    float64 `mapstructure:"temperature"`
	CFGCoef        float64 `mapstructure:"cfg_coef"`
	MaxPadding     int     `mapstructure:"max_padding"`
	InitialPadding int     `mapstructure:"initial_padding"`
	FinalPadding   int     `mapstructure:"final_padding"`
	PaddingBonus   int     `mapstructure:"padding_bonus"`
	Seed           int64   `mapstructure:"seed"`
	MaxSteps       int     `mapstructure:"max_steps"`
}

type AudioConfig struct {
	SampleRate        int           `mapstructure:"sample_rate"`
	BlockSize         int           `mapstructure:"block_size"`
	InitialDelay      time.Duration `mapstructure:"initial_delay"`
	RebufferDelay     time.Duration `mapstructure:"rebuffer_delay"`
	UnderrunThreshold int           `mapstructure:"underrun_threshold"`
}

type ExtractConfig struct {
	UserAgent string        `mapstructure:"user_agent"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type OllamaConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	Model    string        `mapstructure:"model"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type ToolsConfig struct {
	CLIPath       string `mapstructure:"cli_path"`
	CLIConfigPath string `mapstructure:"cli_config_path"`
	Quiet         bool   `mapstructure:"quiet"`
}

type LoadOptions struct {
	Cmd        flagBinder
	ConfigFile string
	Defaults   Config
}

type flagBinder interface {
	Flags() *pflag.FlagSet
}

func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Runtime: RuntimeConfig{
			ORTLibraryPath: "",
			ORTAPIVersion:  0,
		},
		Model: ModelConfig{
			HFRepo:    "kyutai/tts-1.6b-en_fr",
			VoiceRepo: "kyutai/tts-voices",
			Voice:     "expresso/ex03-ex01_happy_001_channel1_334s.wav",
			Quantize:  QuantizeNone,
			CacheDir:  "",
		},
		Generation: GenerationConfig{
			Temperature:    0.6,
			CFGCoef:        1.0,
			MaxPadding:     8,
			InitialPadding: 2,
			FinalPadding:   2,
			PaddingBonus:   0,
			Seed:           299792458,
			MaxSteps:       0,
		},
		Audio: AudioConfig{
			SampleRate:        24000,
			BlockSize:         1920,
			InitialDelay:      3 * time.Second,
			RebufferDelay:     time.Second,
			UnderrunThreshold: 8,
		},
		Extract: ExtractConfig{
			UserAgent: "Mozilla/5.0 (compatible; TTS-TextExtractor/1.0)",
			Timeout:   10 * time.Second,
		},
		Ollama: OllamaConfig{
			Endpoint: "http://localhost:11434",
			Model:    "gemma2:latest",
			Timeout:  10 * time.Second,
		},
		Tools: ToolsConfig{
			CLIPath:       "",
			CLIConfigPath: "",
			Quiet:         true,
		},
	}
}

func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	fs.String("log-level", defaults.LogLevel, "Log level (debug|info|warn|error)")
	fs.String("ort-lib", defaults.Runtime.ORTLibraryPath, "Path to ONNX Runtime shared library")
	fs.String("hf-repo", defaults.Model.HFRepo, "HF repo in which to look for the pretrained models")
	fs.String("voice-repo", defaults.Model.VoiceRepo, "HF repo in which to look for pre-computed voice embeddings")
	fs.String("voice", defaults.Model.Voice, "Voice sample identifier within the voice repo")
	fs.String("quantize", defaults.Model.Quantize, "Model quantization (none|4|8)")
	fs.String("model-cache-dir", defaults.Model.CacheDir, "Directory for downloaded model assets")
	fs.Float64("temperature", defaults.Generation.Temperature, "Sampling temperature")
	fs.Float64("cfg-coef", defaults.Generation.CFGCoef, "Classifier-free guidance coefficient")
	fs.Int("max-padding", defaults.Generation.MaxPadding, "Maximum padding frames between words")
	fs.Int("audio-block-size", defaults.Audio.BlockSize, "Samples per playback callback")
	fs.Duration("audio-initial-delay", defaults.Audio.InitialDelay, "Buffering delay before playback starts")
	fs.Duration("audio-rebuffer-delay", defaults.Audio.RebufferDelay, "Re-buffering delay after chronic underruns")
	fs.Int("audio-underrun-threshold", defaults.Audio.UnderrunThreshold, "Consecutive underruns before re-buffering (0 disables)")
	fs.String("ollama-endpoint", defaults.Ollama.Endpoint, "Ollama API endpoint for filename generation")
	fs.String("ollama-model", defaults.Ollama.Model, "Ollama model for filename generation")
	fs.String("tools-cli-path", defaults.Tools.CLIPath, "Path to the pocket-tts executable (voice export)")
	fs.String("tools-cli-config-path", defaults.Tools.CLIConfigPath, "Path to the pocket-tts config file")
}

func Load(opts LoadOptions) (Config, error) {
	v := viper.New()

	setDefaults(v, opts.Defaults)
	if opts.Cmd != nil {
		if err := v.BindPFlags(opts.Cmd.Flags()); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}
	registerAliases(v)

	v.SetEnvPrefix("TOOLCHEST")
	replacer := strings.NewReplacer("-", "_", ".", "_", "__", "_")
	v.SetEnvKeyReplacer(replacer)
	if err := v.BindEnv("runtime.ort_library_path", "TOOLCHEST_ORT_LIB", "ORT_LIBRARY_PATH"); err != nil {
		return Config{}, fmt.Errorf("bind ort env vars: %w", err)
	}
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("toolchest")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("log_level", c.LogLevel)
	v.SetDefault("runtime.ort_library_path", c.Runtime.ORTLibraryPath)
	v.SetDefault("runtime.ort_api_version", c.Runtime.ORTAPIVersion)
	v.SetDefault("model.hf_repo", c.Model.HFRepo)
	v.SetDefault("model.voice_repo", c.Model.VoiceRepo)
	v.SetDefault("model.voice", c.Model.Voice)
	v.SetDefault("model.quantize", c.Model.Quantize)
	v.SetDefault("model.cache_dir", c.Model.CacheDir)
	v.SetDefault("generation.temperature", c.Generation.Temperature)
	v.SetDefault("generation.cfg_coef", c.Generation.CFGCoef)
	v.SetDefault("generation.max_padding", c.Generation.MaxPadding)
	v.SetDefault("generation.initial_padding", c.Generation.InitialPadding)
	v.SetDefault("generation.final_padding", c.Generation.FinalPadding)
	v.SetDefault("generation.padding_bonus", c.Generation.PaddingBonus)
	v.SetDefault("generation.seed", c.Generation.Seed)
	v.SetDefault("generation.max_steps", c.Generation.MaxSteps)
	v.SetDefault("audio.sample_rate", c.Audio.SampleRate)
	v.SetDefault("audio.block_size", c.Audio.BlockSize)
	v.SetDefault("audio.initial_delay", c.Audio.InitialDelay)
	v.SetDefault("audio.rebuffer_delay", c.Audio.RebufferDelay)
	v.SetDefault("audio.underrun_threshold", c.Audio.UnderrunThreshold)
	v.SetDefault("extract.user_agent", c.Extract.UserAgent)
	v.SetDefault("extract.timeout", c.Extract.Timeout)
	v.SetDefault("ollama.endpoint", c.Ollama.Endpoint)
	v.SetDefault("ollama.model", c.Ollama.Model)
	v.SetDefault("ollama.timeout", c.Ollama.Timeout)
	v.SetDefault("tools.cli_path", c.Tools.CLIPath)
	v.SetDefault("tools.cli_config_path", c.Tools.CLIConfigPath)
	v.SetDefault("tools.quiet", c.Tools.Quiet)
}

func registerAliases(v *viper.Viper) {
	v.RegisterAlias("log_level", "log-level")
	v.RegisterAlias("runtime.ort_library_path", "ort-lib")
	v.RegisterAlias("model.hf_repo", "hf-repo")
	v.RegisterAlias("model.voice_repo", "voice-repo")
	v.RegisterAlias("model.voice", "voice")
	v.RegisterAlias("model.quantize", "quantize")
	v.RegisterAlias("model.cache_dir", "model-cache-dir")
	v.RegisterAlias("generation.temperature", "temperature")
	v.RegisterAlias("generation.cfg_coef", "cfg-coef")
	v.RegisterAlias("generation.max_padding", "max-padding")
	v.RegisterAlias("audio.block_size", "audio-block-size")
	v.RegisterAlias("audio.initial_delay", "audio-initial-delay")
	v.RegisterAlias("audio.rebuffer_delay", "audio-rebuffer-delay")
	v.RegisterAlias("audio.underrun_threshold", "audio-underrun-threshold")
	v.RegisterAlias("ollama.endpoint", "ollama-endpoint")
	v.RegisterAlias("ollama.model", "ollama-model")
	v.RegisterAlias("tools.cli_path", "tools-cli-path")
	v.RegisterAlias("tools.cli_config_path", "tools-cli-config-path")
}
