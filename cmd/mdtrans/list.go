package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/oukeidos/mdtrans/internal/language"
	"github.com/oukeidos/mdtrans/internal/metadata"
	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "list [languages|models]",
		Short:     "List supported languages or known models",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"languages", "models"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 && args[0] == "models" {
				listModels(cmd)
				return nil
			}
			langs := language.GetSupportedLanguages()
			fmt.Fprintln(cmd.OutOrStdout(), "Supported Languages:")
			for _, l := range langs {
				fmt.Fprintf(cmd.OutOrStdout(), "  %-35s [%s]\n", l.Name, l.ID)
			}
			return nil
		},
	}
	return cmd
}

func listModels(cmd *cobra.Command) {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PROVIDER\tMODEL\tCONTEXT\tINPUT $/1M\tOUTPUT $/1M")
	for _, p := range []metadata.Provider{metadata.ProviderOpenAI, metadata.ProviderGemini} {
		for _, m := range metadata.ModelsFor(p) {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%.2f\t%.2f\n", p, m.ID, m.ContextTokens, m.InputPerMillion, m.OutputPerMillion)
		}
	}
	_ = tw.Flush()
}
