package main

import (
	"fmt"
	"log/slog"

	"github.com/rolentle/toolchest/internal/engine"
	"github.com/rolentle/toolchest/internal/extract"
	"github.com/rolentle/toolchest/internal/namegen"
	"github.com/spf13/cobra"
)

func newURLCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "url URL",
		Short: "Read a web page aloud into a WAV file",
		Long: "Fetch a web page, extract its readable text and synthesize it\n" +
			"to a WAV file. When --output is empty a filename is derived from\n" +
			"the page content, asking the local Ollama server for a short\n" +
			"title and falling back to the page title.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			ex := &extract.Extractor{
				UserAgent: activeCfg.Extract.UserAgent,
				Timeout:   activeCfg.Extract.Timeout,
			}
			page, err := ex.FromURL(ctx, args[0])
			if err != nil {
				return err
			}

			if output == "" {
				gen := &namegen.Generator{
					Endpoint: activeCfg.Ollama.Endpoint,
					Model:    activeCfg.Ollama.Model,
					Timeout:  activeCfg.Ollama.Timeout,
					Log:      slog.Default(),
				}
				output = gen.FromContent(ctx, page.Text, page.Title)
			}

			session, err := engine.NewSession(activeCfg)
			if err != nil {
				return err
			}
			defer session.Close()

			if err := session.Run(ctx, page.Text, output); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), output)
			return nil
		},
	}

	cmd.Flags().StringVar(&output, "output", "", "Output WAV path (derived from the page when empty)")

	return cmd
}
