package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/deusflow/dailybrief/internal/app"
	"github.com/deusflow/dailybrief/internal/config"
	"github.com/deusflow/dailybrief/internal/logger"
	"github.com/deusflow/dailybrief/internal/metrics"
	"github.com/deusflow/dailybrief/internal/monitor"
)

var (
	envFile   string
	feedsPath string
	dryRun    bool
)

var rootCmd = &cobra.Command{
	Use:   "dailybrief",
	Short: "Fetch, rank and summarize the day's tech news into one digest",
	Long: `dailybrief collects AI, finance and tech stories from RSS feeds and
Hacker News, drops duplicates, asks an LLM to score and summarize them and
delivers the top stories per category as a Feishu card.

Example usage:
  dailybrief                     # one run, deliver to NOTIFIER (default feishu)
  dailybrief --dry-run           # print the digest to stdout instead
  dailybrief --feeds my.yaml     # use a different feed list`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.Flags().StringVar(&feedsPath, "feeds", "", "feed list YAML (overrides FEEDS_CONFIG_PATH)")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the digest to stdout instead of sending it")
}

func run(cmd *cobra.Command, args []string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg := config.FromEnv()
	if dryRun {
		cfg.UseConsoleOnly()
	}
	if feedsPath != "" {
		cfg.FeedsConfigPath = feedsPath
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// keep stdout clean for the printed digest
	if dryRun {
		logger.InitWriter(os.Stderr, cfg.LogLevel)
	} else {
		logger.Init(cfg.LogLevel)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.HTTPMonitoring {
		srv := monitor.NewServer(metrics.Global, logger.Component("monitor"))
		srv.Start(":" + cfg.MonitoringPort)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("monitoring server shutdown", "error", err)
			}
		}()
	}

	a, err := app.New(ctx, cfg, app.WithLogger(logger.Logger))
	if err != nil {
		return err
	}
	defer a.Close()

	return a.Run(ctx)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "dailybrief:", err)
		os.Exit(1)
	}
}
