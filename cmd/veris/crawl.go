package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/timmy/veris/internal/logger"
	"github.com/timmy/veris/internal/service"
	"github.com/timmy/veris/internal/source"
	"github.com/timmy/veris/internal/source/localdir"
	"github.com/timmy/veris/internal/source/reddit"
	"github.com/timmy/veris/internal/source/staging"
)

var (
	crawlSource string
	crawlLimit  int
	crawlForce  bool
	crawlBatch  string
	crawlDir    string
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Pull items from a source and check each one",
	Long: `Crawl reads items from a source and runs each through the pipeline.

Sources:
  staging   JSONL manifest under sources.staging.path/<batch>
  reddit    hot listing of sources.reddit.subreddits
  localdir  text, image and video files under --dir

Origins that already have saved claims are skipped unless --force is set.`,
	Args: cobra.NoArgs,
	RunE: runCrawl,
}

func init() {
	rootCmd.AddCommand(crawlCmd)

	crawlCmd.Flags().StringVar(&crawlSource, "source", "staging", "source to crawl: staging, reddit or localdir")
	crawlCmd.Flags().IntVar(&crawlLimit, "limit", 100, "maximum number of items to process")
	crawlCmd.Flags().BoolVar(&crawlForce, "force", false, "re-check origins that already have saved claims")
	crawlCmd.Flags().StringVar(&crawlBatch, "batch", "default", "staging batch directory")
	crawlCmd.Flags().StringVar(&crawlDir, "dir", "", "directory for the localdir source")
}

func runCrawl(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := loadApp(ctx, "veris-crawl")
	if err != nil {
		return err
	}
	defer a.Close()

	var src source.Source
	switch crawlSource {
	case "staging":
		src = staging.NewAdapter(a.Config.Sources.Staging.Path, crawlBatch)
	case "reddit":
		src = reddit.NewAdapter(&reddit.Config{
			Subreddits: a.Config.Sources.Reddit.Subreddits,
			UserAgent:  a.Config.Sources.Reddit.UserAgent,
			Timeout:    a.Config.Fetch.Timeout,
		})
	case "localdir":
		if crawlDir == "" {
			return fmt.Errorf("--dir is required for the localdir source")
		}
		src = localdir.NewAdapter(crawlDir)
	default:
		return fmt.Errorf("unknown source %q", crawlSource)
	}

	stats, err := a.Crawler.Run(ctx, src, crawlLimit, &service.CrawlOptions{Force: crawlForce})
	if err != nil {
		return err
	}

	logger.GetDefault().WithFields(logger.Fields{
		"total":     stats.TotalItems,
		"processed": stats.ProcessedItems,
		"skipped":   stats.SkippedItems,
		"failed":    stats.FailedItems,
		"claims":    stats.Claims,
		"saved":     stats.SavedClaims,
	}).Info("Crawl finished")
	return printJSON(stats)
}
