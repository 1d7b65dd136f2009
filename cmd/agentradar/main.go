// Package main is the AgentRadar command line: the scheduled service plus one-off maintenance commands.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"AgentRadar/internal/app"
	"AgentRadar/internal/config"
	"AgentRadar/internal/logging"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "agentradar",
	Short:         "Real-estate lead radar",
	Long:          "AgentRadar collects estate, probate and court notices per region, scores them as real-estate leads and notifies subscribed agents.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML config (overrides AGENTRADAR_CONFIG)")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() config.Config {
	if configPath != "" {
		_ = os.Setenv("AGENTRADAR_CONFIG", configPath)
	}
	return config.Load()
}

func newLogger(cfg config.Config) *slog.Logger {
	return logging.NewWithFormat(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)
}

func openApp(ctx context.Context) (*app.Application, *slog.Logger, error) {
	cfg := loadConfig()
	log := newLogger(cfg)
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return a, log, nil
}
