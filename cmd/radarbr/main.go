package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/radarbr/internal/config"
	"github.com/IshaanNene/radarbr/internal/types"
)

var (
	cfgFile string
	verbose bool
)

// newRootCmd builds the command tree.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "radarbr",
		Short: "RadarBR: automated Brazilian news publishing",
		Long: `RadarBR turns trending Brazilian topics into published portal articles.

For each topic it finds a publisher article through Google News, extracts
it, rewrites it with an LLM, styles the headline, classifies it, stores it
with a licensed image and pings the search engines.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(publishTopicSimpleCmd())
	rootCmd.AddCommand(publishTopicCmd())
	rootCmd.AddCommand(smartTrendsPublishCmd())
	rootCmd.AddCommand(automacaoRenderCmd())
	rootCmd.AddCommand(trendsCmd())
	rootCmd.AddCommand(insightsCmd())
	rootCmd.AddCommand(imageCacheCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(serveMetricsCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(configCmd())

	return rootCmd
}

func main() {
	rootCmd := newRootCmd()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		var ce *types.ConfigError
		if errors.As(err, &ce) {
			fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// loadConfig loads and validates the configuration and builds the logger
// it asks for. needLLM also checks the rewrite model credentials.
func loadConfig(needLLM bool) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, nil, err
	}
	if needLLM {
		if err := config.RequireLLM(cfg); err != nil {
			return nil, nil, err
		}
	}
	return cfg, setupLogger(cfg.Logging), nil
}

// setupLogger creates a structured logger. --verbose forces debug level.
func setupLogger(lc config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(lc.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if lc.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
