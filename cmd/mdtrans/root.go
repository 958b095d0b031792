package main

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/oukeidos/mdtrans/internal/cleanup"
	"github.com/oukeidos/mdtrans/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// execute runs the command tree and exits non-zero when it or any cleanup
// hook failed. Cobra has already printed the command error.
func execute() {
	err := newRootCmd().Execute()
	if cerr := cleanup.RunAll(); cerr != nil {
		fmt.Fprintln(os.Stderr, cerr)
		err = errors.Join(err, cerr)
	}
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mdtrans",
		Short: "Context-preserving Markdown blog translator",
		Long: `mdtrans translates Markdown blog entries with an LLM.

Long entries are split at block boundaries, code blocks pass through
untouched and recently translated chunks are sent along as context.
Without a command it behaves like "mdtrans translate".`,
		Args:         cobra.ArbitraryArgs,
		SilenceUsage: true,
		RunE:         runRoot,
	}

	cmd.Version = version.Info()
	cmd.SetVersionTemplate("{{.Version}}\n")
	cmd.SetUsageTemplate(usageTemplate("mdtrans <input.md> <output.md> [flags]"))

	addGlobalFlags(cmd)
	addTranslateFlags(cmd)

	cmd.AddCommand(
		newAboutCmd(),
		newTranslateCmd(),
		newBatchCmd(),
		newAnalyzeCmd(),
		newSegmentCmd(),
		newGlossaryCmd(),
		newListCmd(),
		newEnvCmd(),
	)

	cmd.InitDefaultCompletionCmd()
	setUsageTemplates(cmd)
	return cmd
}

func runRoot(cmd *cobra.Command, args []string) error {
	switch {
	case len(args) == 0 && !hasAnyFlagSet(cmd):
		return cmd.Help()
	case len(args) == 0:
		_ = cmd.Usage()
		return fmt.Errorf("input and output files are required")
	case isSubcommand(cmd, args[0]):
		_ = cmd.Usage()
		return fmt.Errorf("unknown command %q for %q", args[0], cmd.CommandPath())
	}
	return runTranslate(cmd, args)
}

func addGlobalFlags(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.String("config", "", "Path to a YAML config file (keys match flag names)")
	pf.String("log-level", "info", "Log level (debug, info, warn, error)")
	pf.String("log-file", "", "Path to save machine-readable JSONL logs")
	pf.Bool("debug", false, "Enable debug logging")
}

func hasAnyFlagSet(cmd *cobra.Command) bool {
	n := 0
	cmd.Flags().Visit(func(*pflag.Flag) { n++ })
	return n > 0
}

// isSubcommand reports whether name is a subcommand or alias, so a
// mistyped invocation is not read as an input file.
func isSubcommand(cmd *cobra.Command, name string) bool {
	return slices.ContainsFunc(cmd.Commands(), func(c *cobra.Command) bool {
		return c.Name() == name || c.HasAlias(name)
	})
}
