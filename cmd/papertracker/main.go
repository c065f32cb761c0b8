// Package main is the entry point for the papertracker CLI.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/spf13/cobra"

	"PaperTracker/internal/config"
	"PaperTracker/internal/logging"
)

// version is set at build time via ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "papertracker",
	Short: "Track Hugging Face daily papers and alert on a research category",
	Long: `papertracker crawls the Hugging Face daily papers listing, extracts each
paper's details, keeps their metrics history and sends one alert per new paper
that an LLM classifies into the configured category.

Subcommands: track runs once, schedule runs on an interval, serve exposes the
stored papers over a read-only HTTP API.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "YAML config file (default: $PAPER_TRACKER_CONFIG)")
}

// loadConfig reads the layered configuration and builds the root logger.
func loadConfig(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logging.New(cfg.Logging.Level), nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
