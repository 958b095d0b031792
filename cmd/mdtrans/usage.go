package main

import (
	"strings"

	"github.com/spf13/cobra"
)

const usageBody = `  {{.UseLine}}{{if .HasAvailableSubCommands}}
  {{.CommandPath}} [command]{{end}}
{{if .HasAvailableSubCommands}}
Commands:{{range .Commands}}{{if (or .IsAvailableCommand (eq .Name "help"))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}
{{end}}{{if .HasAvailableLocalFlags}}
Flags:
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}
{{end}}{{if .HasAvailableInheritedFlags}}
Global Flags:
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}
{{end}}{{if .HasAvailableSubCommands}}
Use "{{.CommandPath}} [command] --help" for more information about a command.
{{end}}`

// usageTemplate returns the help layout shared by every command. lead lines
// are printed above the command's own usage line.
func usageTemplate(lead ...string) string {
	var b strings.Builder
	b.WriteString("Usage:\n")
	for _, line := range lead {
		b.WriteString("  " + line + "\n")
	}
	b.WriteString(usageBody)
	return b.String()
}

// setUsageTemplates applies usageTemplate to every command below root.
func setUsageTemplates(root *cobra.Command) {
	for _, sub := range root.Commands() {
		sub.SetUsageTemplate(usageTemplate())
		setUsageTemplates(sub)
	}
}
