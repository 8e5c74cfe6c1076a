package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/banghyang/scentflow/pkg/flowgraph/config"
)

var rootCmd = &cobra.Command{
	Use:   "scentflow",
	Short: "scentflow recommends perfumes and chats about them",
	Long: `scentflow routes each question to a recommendation, a fashion-based
recommendation or a free-form chat, backed by a language model, a perfume
catalog and an optional image service.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML or JSON settings file")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: text or json (overrides settings)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error (overrides settings)")
}

// loadSettings reads the --config file and applies log flag overrides.
func loadSettings(cmd *cobra.Command) (config.Settings, error) {
	path, _ := cmd.Flags().GetString("config")
	settings, err := config.LoadSettings(path)
	if err != nil {
		return config.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	if format, _ := cmd.Flags().GetString("log-format"); format != "" {
		settings.Log.Format = format
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		settings.Log.Level = level
	}
	return settings, nil
}

// newLogger builds the process logger. Logs go to stderr so command output
// stays clean on stdout.
func newLogger(s config.LogSettings) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s.Level)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", s.Level, err)
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch strings.ToLower(s.Format) {
	case "", "text":
		handler = slog.NewTextHandler(os.Stderr, opts)
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		return nil, fmt.Errorf("unknown log format %q", s.Format)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, nil
}
