package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/timmy/veris/internal/app"
	"github.com/timmy/veris/internal/config"
	"github.com/timmy/veris/internal/logger"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "veris",
	Short: "Veris - claim extraction and verification pipeline",
	Long: `Veris extracts factual claims from text, images, videos and web pages,
verifies each claim against search-grounded evidence and stores the verdicts.

Examples:
  veris check --text "The Great Wall is visible from the Moon."
  veris check --file chart.png
  veris crawl --source reddit --limit 50
  veris claims --status false --limit 20`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./configs/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

// loadApp loads and validates configuration, then wires the services.
func loadApp(ctx context.Context, serviceName string) (*app.App, error) {
	if cfgFile == "" {
		cfgFile = os.Getenv("CONFIG_PATH")
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	logger.SetDefaultLogger(app.NewLogger(&cfg.Log, serviceName))

	return app.New(ctx, cfg)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
