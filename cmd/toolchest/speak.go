package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rolentle/toolchest/internal/audio"
	"github.com/rolentle/toolchest/internal/engine"
	"github.com/spf13/cobra"
)

func newSpeakCmd() *cobra.Command {
	var text string
	var out string
	var normalize bool
	var fadeInMs, fadeOutMs float64

	cmd := &cobra.Command{
		Use:   "speak [input-file]",
		Short: "Synthesize text to a WAV file or the audio device",
		Long: "Synthesize text to speech.\n\n" +
			"Input comes from --text, from a file argument, or from stdin\n" +
			"(pass '-' or no argument). Output goes to the WAV path given by\n" +
			"--out, or to the default audio device when --out is '-'.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := readSpeakText(text, args, os.Stdin)
			if err != nil {
				return err
			}

			var opts []engine.Option
			if hooks := speakHooks(normalize, fadeInMs, fadeOutMs, activeCfg.Audio.SampleRate); len(hooks) > 0 {
				opts = append(opts, engine.WithFileHooks(hooks...))
			}

			session, err := engine.NewSession(activeCfg, opts...)
			if err != nil {
				return err
			}
			defer session.Close()

			return session.Run(cmd.Context(), input, out)
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "Text to synthesize (overrides file/stdin input)")
	cmd.Flags().StringVar(&out, "out", "out.wav", "Output WAV path ('-' to play through the audio device)")
	cmd.Flags().BoolVar(&normalize, "normalize", false, "Peak-normalize the output file")
	cmd.Flags().Float64Var(&fadeInMs, "fade-in", 0, "Fade-in duration in milliseconds")
	cmd.Flags().Float64Var(&fadeOutMs, "fade-out", 0, "Fade-out duration in milliseconds")

	return cmd
}

// speakHooks translates the DSP flags into file sink hooks, in the order
// they are applied: normalize first, then the fades.
func speakHooks(normalize bool, fadeInMs, fadeOutMs float64, sampleRate int) []audio.Hook {
	var hooks []audio.Hook
	if normalize {
		hooks = append(hooks, audio.PeakNormalize)
	}
	if fadeInMs > 0 {
		hooks = append(hooks, func(samples []float32) []float32 {
			return audio.FadeIn(samples, sampleRate, fadeInMs)
		})
	}
	if fadeOutMs > 0 {
		hooks = append(hooks, func(samples []float32) []float32 {
			return audio.FadeOut(samples, sampleRate, fadeOutMs)
		})
	}

	return hooks
}

// readSpeakText resolves the input text: the --text flag wins, then a file
// argument, then stdin.
func readSpeakText(flagText string, args []string, stdin io.Reader) (string, error) {
	if flagText != "" {
		return flagText, nil
	}

	if len(args) == 1 && args[0] != "-" {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", fmt.Errorf("read input file: %w", err)
		}
		return string(data), nil
	}

	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" && len(args) == 0 {
		return "", errors.New("no input text: pass --text, a file argument, or pipe text on stdin")
	}

	return string(data), nil
}
