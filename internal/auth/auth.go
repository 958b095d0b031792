// Package auth resolves backend API keys from the OS keychain, the
// environment (when allowed) or an interactive prompt.
package auth

import (
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/oukeidos/mdtrans/internal/metadata"
	"github.com/zalando/go-keyring"
	"golang.org/x/term"
)

const serviceName = "mdtrans"

// Source tells where a key came from.
type Source string

const (
	SourceNone     Source = ""
	SourceKeychain Source = "Keychain"
	SourceEnv      Source = "Environment Variable"
)

func account(p metadata.Provider) string {
	return string(p) + "-api-key"
}

// EnvVar returns the environment variable read for a provider's key.
func EnvVar(p metadata.Provider) string {
	switch p {
	case metadata.ProviderGemini:
		return "GEMINI_API_KEY"
	default:
		return "OPENAI_API_KEY"
	}
}

// GetKey retrieves the API key for a provider. If allowEnv is false,
// environment variables are ignored.
func GetKey(p metadata.Provider, allowEnv bool) (string, Source) {
	// 1. Try Keychain
	key, err := keyring.Get(serviceName, account(p))
	if err == nil && strings.TrimSpace(key) != "" {
		return strings.TrimSpace(key), SourceKeychain
	}

	// 2. Try Env Var (optional)
	if allowEnv {
		if key, ok := GetEnvKey(p); ok {
			return key, SourceEnv
		}
	}
	return "", SourceNone
}

// GetEnvKey retrieves the key from environment variables only.
func GetEnvKey(p metadata.Provider) (string, bool) {
	key := strings.TrimSpace(os.Getenv(EnvVar(p)))
	if key == "" {
		return "", false
	}
	return key, true
}

// SaveKey saves the key for a provider to the OS Keychain.
func SaveKey(p metadata.Provider, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("API key is empty")
	}
	return keyring.Set(serviceName, account(p), key)
}

// DeleteKey removes the key for a provider from the OS Keychain.
func DeleteKey(p metadata.Provider) error {
	return keyring.Delete(serviceName, account(p))
}

// GetStatus reports whether a key exists for a provider in the keychain.
func GetStatus(p metadata.Provider) bool {
	key, err := keyring.Get(serviceName, account(p))
	return err == nil && key != ""
}

// PromptForAPIKey securely prompts the user for their API key.
func PromptForAPIKey(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", err
	}
	fmt.Fprintln(os.Stderr) // Add newline after password input
	return strings.TrimSpace(string(bytePassword)), nil
}
