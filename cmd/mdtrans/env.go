package main

import (
	"fmt"
	"strings"

	"github.com/oukeidos/mdtrans/internal/auth"
	"github.com/oukeidos/mdtrans/internal/metadata"
	"github.com/oukeidos/mdtrans/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	saveKey   = auth.SaveKey
	deleteKey = auth.DeleteKey
)

// envAction is one "mdtrans env" subcommand acting on the selected provider.
type envAction struct {
	use, short string
	run        func(cmd *cobra.Command, p metadata.Provider) error
}

var envActions = []envAction{
	{"setup", "Save API key to keychain (prompt only)", runEnvSetup},
	{"delete", "Delete key from keychain", runEnvDelete},
	{"status", "Show key status (default if no action given)", runEnvStatus},
}

func newEnvCmd() *cobra.Command {
	var provider string
	withProvider := func(run func(*cobra.Command, metadata.Provider) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			p, err := envProvider(provider)
			if err != nil {
				return err
			}
			return run(cmd, p)
		}
	}

	cmd := &cobra.Command{
		Use:   "env",
		Short: "Manage API keys in OS Keychain",
		RunE:  withProvider(runEnvStatus),
	}
	cmd.PersistentFlags().StringVar(&provider, "provider", "openai", "Provider to manage (openai or gemini)")
	for _, a := range envActions {
		cmd.AddCommand(&cobra.Command{
			Use:   a.use,
			Short: a.short,
			Args:  cobra.NoArgs,
			RunE:  withProvider(a.run),
		})
	}
	return cmd
}

// envProvider differs from parseProvider in that an explicit empty
// --provider is an error rather than the default.
func envProvider(name string) (metadata.Provider, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("invalid provider. Must be 'openai' or 'gemini'")
	}
	return parseProvider(name)
}

func runEnvSetup(cmd *cobra.Command, p metadata.Provider) error {
	promptKey, err := promptForKey(fmt.Sprintf("%s API Key: ", pipeline.ProviderLabel(p)))
	if err != nil {
		return fmt.Errorf("error reading key: %w", err)
	}
	key := strings.TrimSpace(promptKey)
	if key == "" {
		return fmt.Errorf("API key is required for setup")
	}
	if err := saveKey(p, key); err != nil {
		return fmt.Errorf("error saving key: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %s API key to keychain.\n", p)
	return nil
}

func runEnvDelete(cmd *cobra.Command, p metadata.Provider) error {
	if err := deleteKey(p); err != nil {
		return fmt.Errorf("error deleting key: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s API key from keychain.\n", p)
	return nil
}

func runEnvStatus(cmd *cobra.Command, p metadata.Provider) error {
	status := fmt.Sprintf("Not Found (keychain empty, %s not set)", auth.EnvVar(p))
	if getStatus(p) {
		status = "Found (source=Keychain)"
	} else if envKey, ok := getEnvKey(p); ok && envKey != "" {
		status = fmt.Sprintf("Found (source=Environment Variable %s; disabled by default, use --allow-env)", auth.EnvVar(p))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s API Key: %s\n", p, status)
	return nil
}
