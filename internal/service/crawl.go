package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/timmy/veris/internal/domain"
	"github.com/timmy/veris/internal/fetch"
	"github.com/timmy/veris/internal/logger"
	"github.com/timmy/veris/internal/source"
)

// PageFetcher reduces a web page to article text.
type PageFetcher interface {
	Fetch(ctx context.Context, pageURL string) (*fetch.Article, error)
}

// OriginChecker reports whether claims from an origin URL are already stored.
type OriginChecker interface {
	ExistsByOriginURL(ctx context.Context, originURL string) (bool, error)
}

// CrawlService pulls items from a source and runs each through the pipeline.
type CrawlService struct {
	coordinator *Coordinator
	fetcher     PageFetcher
	origins     OriginChecker
	workers     int
	batchSize   int
}

// CrawlConfig holds configuration for the crawl service.
type CrawlConfig struct {
	Workers   int
	BatchSize int
}

// NewCrawlService creates a new crawl service.
func NewCrawlService(
	coordinator *Coordinator,
	fetcher PageFetcher,
	origins OriginChecker,
	cfg *CrawlConfig,
) *CrawlService {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 2
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 20
	}
	return &CrawlService{
		coordinator: coordinator,
		fetcher:     fetcher,
		origins:     origins,
		workers:     workers,
		batchSize:   batchSize,
	}
}

// CrawlStats holds statistics for a crawl run.
type CrawlStats struct {
	TotalItems     int64
	ProcessedItems int64
	SkippedItems   int64
	FailedItems    int64
	Claims         int64
	SavedClaims    int64
	StartTime      time.Time
	EndTime        time.Time
}

// CrawlOptions holds options for a crawl run.
type CrawlOptions struct {
	Force bool // Re-check origins that already have saved claims
}

type crawlResult struct {
	sourceID string
	skipped  bool
	claims   int
	saved    int
	err      error
}

// Run crawls up to limit items from src.
// Parameters:
//   - ctx: context for cancellation; cancelling stops fetching new batches.
//   - src: crawl source.
//   - limit: maximum number of items to process.
//   - opts: crawl options; nil means defaults.
// Returns:
//   - *CrawlStats: counters for the run.
//   - error: always nil; per-item failures are counted instead.
func (s *CrawlService) Run(ctx context.Context, src source.Source, limit int, opts *CrawlOptions) (*CrawlStats, error) {
	if opts == nil {
		opts = &CrawlOptions{}
	}
	ctx = logger.SetSource(ctx, src.GetSourceID())

	stats := &CrawlStats{StartTime: time.Now()}

	logger.FromContext(ctx).WithFields(logger.Fields{
		"limit": limit,
		"force": opts.Force,
	}).Info("Starting crawl")

	itemsChan := make(chan source.Item, s.workers*2)
	resultsChan := make(chan *crawlResult, s.workers*2)

	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.worker(ctx, src, itemsChan, resultsChan, opts)
		}()
	}

	done := make(chan struct{})
	go func() {
		for result := range resultsChan {
			atomic.AddInt64(&stats.ProcessedItems, 1)
			atomic.AddInt64(&stats.Claims, int64(result.claims))
			atomic.AddInt64(&stats.SavedClaims, int64(result.saved))
			switch {
			case result.skipped:
				atomic.AddInt64(&stats.SkippedItems, 1)
			case result.err != nil:
				atomic.AddInt64(&stats.FailedItems, 1)
				logger.FromContext(ctx).WithFields(logger.Fields{
					"source_id": result.sourceID,
				}).WithError(result.err).Error("Failed to process item")
			}
		}
		close(done)
	}()

	cursor := ""
	totalFetched := 0
fetchLoop:
	for ctx.Err() == nil {
		remaining := limit - totalFetched
		if remaining <= 0 {
			break
		}
		batchLimit := s.batchSize
		if batchLimit > remaining {
			batchLimit = remaining
		}

		items, nextCursor, err := src.FetchBatch(ctx, cursor, batchLimit)
		if err != nil {
			logger.FromContext(ctx).WithError(err).Error("Failed to fetch batch")
			break
		}
		if len(items) == 0 {
			break
		}
		if len(items) > remaining {
			items = items[:remaining]
		}

		atomic.AddInt64(&stats.TotalItems, int64(len(items)))
		totalFetched += len(items)

		for _, item := range items {
			select {
			case itemsChan <- item:
			case <-ctx.Done():
				break fetchLoop
			}
		}

		if nextCursor == "" {
			break
		}
		cursor = nextCursor
	}

	close(itemsChan)
	wg.Wait()
	close(resultsChan)
	<-done

	stats.EndTime = time.Now()

	logger.FromContext(ctx).WithFields(logger.Fields{
		"total":     stats.TotalItems,
		"processed": stats.ProcessedItems,
		"skipped":   stats.SkippedItems,
		"failed":    stats.FailedItems,
		"claims":    stats.Claims,
		"duration":  stats.EndTime.Sub(stats.StartTime).String(),
	}).Info("Crawl completed")

	return stats, nil
}

func (s *CrawlService) worker(ctx context.Context, src source.Source, items <-chan source.Item, results chan<- *crawlResult, opts *CrawlOptions) {
	for item := range items {
		if ctx.Err() != nil {
			return
		}
		results <- s.processItem(ctx, src, item, opts)
	}
}

func (s *CrawlService) processItem(ctx context.Context, src source.Source, item source.Item, opts *CrawlOptions) *crawlResult {
	result := &crawlResult{sourceID: item.SourceID}

	originURL := item.OriginURL
	if originURL == "" {
		originURL = src.GetSourceID() + "/" + item.SourceID
	}

	if !opts.Force && s.origins != nil {
		exists, err := s.origins.ExistsByOriginURL(ctx, originURL)
		if err != nil {
			result.err = fmt.Errorf("failed to check existence: %w", err)
			return result
		}
		if exists {
			result.skipped = true
			return result
		}
	}

	in, err := s.toInput(ctx, &item, originURL)
	if err != nil {
		result.err = err
		return result
	}

	pr, err := s.coordinator.Process(ctx, in)
	if err != nil {
		result.err = fmt.Errorf("submission rejected: %w", err)
		return result
	}
	if pr.ExtractionError != "" {
		result.err = fmt.Errorf("extraction failed: %s", pr.ExtractionError)
		return result
	}
	result.claims = pr.TotalClaims
	result.saved = pr.SavedCount
	return result
}

// toInput converts a crawl item into a submission request.
func (s *CrawlService) toInput(ctx context.Context, item *source.Item, originURL string) (*SubmissionInput, error) {
	in := &SubmissionInput{
		OriginLabel: item.OriginLabel,
		OriginURL:   originURL,
		Metadata: map[string]interface{}{
			"source_item": item.SourceID,
		},
	}
	for k, v := range item.Metadata {
		in.Metadata[k] = v
	}
	if len(item.Tags) > 0 {
		in.Metadata["tags"] = item.Tags
	}

	switch item.Kind {
	case source.ItemText:
		in.Kind = string(domain.KindText)
		in.Text = item.Text
	case source.ItemMediaURL:
		in.Kind = item.MediaKind
		in.URL = item.URL
	case source.ItemPage:
		if s.fetcher == nil {
			return nil, fmt.Errorf("no page fetcher configured for %s", item.URL)
		}
		article, err := s.fetcher.Fetch(ctx, item.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch page: %w", err)
		}
		in.Kind = string(domain.KindText)
		in.Text = article.SubmissionText()
		in.Metadata["page_title"] = article.Title
	case source.ItemFile:
		data, err := os.ReadFile(item.LocalPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read file: %w", err)
		}
		in.Kind = item.MediaKind
		in.Media = &MediaUpload{Name: filepath.Base(item.LocalPath), Data: data}
	default:
		return nil, fmt.Errorf("unsupported item kind %q", item.Kind)
	}
	return in, nil
}
