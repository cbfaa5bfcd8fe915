package main

import (
	"fmt"

	"github.com/rolentle/toolchest/internal/extract"
	"github.com/spf13/cobra"
)

func newExtractCmd() *cobra.Command {
	var showTitle bool

	cmd := &cobra.Command{
		Use:   "extract URL",
		Short: "Extract readable text from a web page",
		Long: "Fetch a web page and print its readable text: paragraphs,\n" +
			"headings and list items, with scripts and styles stripped.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ex := &extract.Extractor{
				UserAgent: activeCfg.Extract.UserAgent,
				Timeout:   activeCfg.Extract.Timeout,
			}

			page, err := ex.FromURL(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if showTitle && page.Title != "" {
				fmt.Fprintln(cmd.OutOrStdout(), page.Title)
				fmt.Fprintln(cmd.OutOrStdout())
			}
			fmt.Fprintln(cmd.OutOrStdout(), page.Text)
			return nil
		},
	}

	cmd.Flags().BoolVar(&showTitle, "title", false, "Print the page title before the text")

	return cmd
}
