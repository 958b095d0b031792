package main

import (
	"fmt"

	"github.com/oukeidos/mdtrans/internal/version"
	"github.com/spf13/cobra"
)

const aboutText = `Long entries are split into headings, paragraphs, lists, tables and code
blocks. Code blocks are kept verbatim and the last translated chunks are
sent with each request as context. Untranslated chunks are listed in a
JSON report next to the output.

https://github.com/oukeidos/mdtrans`

func newAboutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "about",
		Short: "Show a short description and link",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "mdtrans %s: context-preserving Markdown blog translator\n\n%s\n", version.Version, aboutText)
		},
	}
}
