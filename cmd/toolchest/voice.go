package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"

	pockettts "github.com/cwbudde/go-call-pocket-tts"
	"github.com/spf13/cobra"
)

func newVoiceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "voice",
		Short: "Voice asset tooling",
	}

	cmd.AddCommand(newVoiceExportCmd())

	return cmd
}

func newVoiceExportCmd() *cobra.Command {
	var audioPath string
	var outPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a voice embedding (.safetensors) from a WAV prompt",
		Long: "Export a voice embedding (.safetensors) from a WAV prompt.\n\n" +
			"This is an optional tooling command and requires a Python pocket-tts installation.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if audioPath == "" {
				return errors.New("--audio is required")
			}
			if outPath == "" {
				return errors.New("--out is required")
			}

			exe := activeCfg.Tools.CLIPath
			if exe == "" {
				exe = "pocket-tts"
			}
			if _, err := exec.LookPath(exe); err != nil {
				return fmt.Errorf(
					"voice export requires the pocket-tts CLI (Python tooling) on PATH or --tools-cli-path: %w",
					err,
				)
			}

			err := pockettts.ExportVoice(cmd.Context(), audioPath, outPath, &pockettts.ExportVoiceOptions{
				Config:         activeCfg.Tools.CLIConfigPath,
				Quiet:          activeCfg.Tools.Quiet,
				ExecutablePath: activeCfg.Tools.CLIPath,
				LogWriter:      os.Stderr,
			})
			if err != nil {
				var notFound *pockettts.ErrExecutableNotFound
				if errors.As(err, &notFound) {
					return fmt.Errorf("voice export requires the pocket-tts CLI (Python tooling): %w", err)
				}
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "voice export completed:", outPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&audioPath, "audio", "", "Input speaker audio WAV path")
	cmd.Flags().StringVar(&outPath, "out", "", "Output voice .safetensors path")

	return cmd
}
