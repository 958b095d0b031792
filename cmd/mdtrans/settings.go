package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/oukeidos/mdtrans/internal/cleanup"
	"github.com/oukeidos/mdtrans/internal/files"
	"github.com/oukeidos/mdtrans/internal/logger"
	"github.com/oukeidos/mdtrans/internal/metadata"
	"github.com/oukeidos/mdtrans/internal/pipeline"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// envPrefix makes every flag settable as MDTRANS_<FLAG>, with dashes
// turned into underscores (MDTRANS_SEGMENT_TOKENS).
const envPrefix = "MDTRANS"

// loadSettings layers flags over environment variables over the config
// file over flag defaults.
func loadSettings(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if filepath.Ext(path) == "" {
			v.SetConfigType("yaml")
		}
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}
	return v, nil
}

// prepare loads settings and initializes logging for a command run.
func prepare(cmd *cobra.Command) (*viper.Viper, error) {
	v, err := loadSettings(cmd)
	if err != nil {
		return nil, err
	}
	if err := setupLogging(v); err != nil {
		return nil, err
	}
	return v, nil
}

func setupLogging(v *viper.Viper) error {
	level, err := logger.ParseLevel(v.GetString("log-level"))
	if err != nil {
		return err
	}
	if v.GetBool("debug") {
		level = logger.LevelDebug
	}

	var logFileW io.Writer
	if path := v.GetString("log-file"); path != "" {
		if err := files.RejectSymlinkPath(path); err != nil {
			return err
		}
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		cleanup.Register("close log file", f.Close)
		logFileW = f
	}
	logger.Init(level, logFileW)
	return nil
}

func parseProvider(name string) (metadata.Provider, error) {
	switch p := metadata.Provider(strings.ToLower(strings.TrimSpace(name))); p {
	case metadata.ProviderOpenAI, metadata.ProviderGemini:
		return p, nil
	case "":
		return metadata.ProviderOpenAI, nil
	}
	return "", fmt.Errorf("invalid provider %q (must be 'openai' or 'gemini')", name)
}

// pipelineConfig builds a pipeline.Config from the settings shared by the
// translate, batch, analyze and segment commands. Settings a command does
// not register read as zero values and take the pipeline defaults.
func pipelineConfig(v *viper.Viper) (pipeline.Config, error) {
	provider, err := parseProvider(v.GetString("provider"))
	if err != nil {
		return pipeline.Config{}, err
	}
	cfg := pipeline.Config{
		Provider:           provider,
		Model:              v.GetString("model"),
		BaseURL:            v.GetString("base-url"),
		ProviderLabel:      v.GetString("provider-label"),
		Capacity:           v.GetInt("capacity"),
		MaxSegmentTokens:   v.GetInt("segment-tokens"),
		ContextHistory:     v.GetInt("context-history"),
		RecentContextChars: v.GetInt("recent-context"),
		MaxAttempts:        v.GetInt("max-attempts"),
		Optimize:           v.GetBool("optimize"),
		Concurrency:        v.GetInt("concurrency"),
		GlossaryPath:       v.GetString("glossary"),
		Overwrite:          v.GetBool("yes"),
		NoBanner:           v.GetBool("no-banner"),
	}
	if s := v.GetString("source"); s != "" {
		if cfg.SourceLang, err = resolveLanguageCode(s); err != nil {
			return pipeline.Config{}, err
		}
	}
	if s := v.GetString("target"); s != "" {
		if cfg.TargetLang, err = resolveLanguageCode(s); err != nil {
			return pipeline.Config{}, err
		}
	}
	return cfg.WithDefaults(), nil
}
