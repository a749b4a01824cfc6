package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/timmy/veris/internal/config"
	"github.com/timmy/veris/internal/fetch"
	"github.com/timmy/veris/internal/logger"
	"github.com/timmy/veris/internal/repository"
	"github.com/timmy/veris/internal/service"
	"github.com/timmy/veris/internal/source"
	"github.com/timmy/veris/internal/source/reddit"
	"github.com/timmy/veris/internal/source/staging"
	"github.com/timmy/veris/internal/storage"
)

// App holds the wired services shared by the API server and the CLI.
type App struct {
	Config      *config.Config
	Coordinator *service.Coordinator
	Claims      repository.ClaimStore
	Index       *service.ClaimIndexService
	Fetcher     *fetch.ArticleFetcher
	Crawler     *service.CrawlService

	closers []func() error
}

type bucketEnsurer interface {
	EnsureBucket(ctx context.Context) error
}

// NewLogger builds the process logger from the log section.
func NewLogger(cfg *config.LogConfig, serviceName string) *logger.Logger {
	lc := logger.Defaults()
	lc.ServiceName = serviceName
	if cfg.Level != "" {
		lc.Level = cfg.Level
	}
	if cfg.Format != "" {
		lc.Format = cfg.Format
	}
	lc.File = cfg.File
	lc.FileOnly = cfg.FileOnly
	if cfg.MaxSizeMB > 0 {
		lc.MaxSizeMB = cfg.MaxSizeMB
	}
	if cfg.MaxBackups > 0 {
		lc.MaxBackups = cfg.MaxBackups
	}
	if cfg.MaxAgeDays > 0 {
		lc.MaxAgeDays = cfg.MaxAgeDays
	}
	return logger.New(lc)
}

// New wires stores, model clients and pipeline stages from cfg.
// Parameters:
//   - ctx: context for client construction.
//   - cfg: validated configuration.
// Returns:
//   - *App: wired services; call Close when done.
//   - error: non-nil if any backend cannot be initialized.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}
	if err := a.init(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.Config

	claims, err := openClaimStore(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	a.Claims = claims
	a.closers = append(a.closers, claims.Close)

	objectStorage, err := storage.NewStorage(ctx, &storage.Config{
		Type:            storage.StorageType(cfg.Storage.Type),
		Endpoint:        cfg.Storage.Endpoint,
		AccessKey:       cfg.Storage.AccessKey,
		SecretKey:       cfg.Storage.SecretKey,
		UseSSL:          cfg.Storage.UseSSL,
		Bucket:          cfg.Storage.Bucket,
		Region:          cfg.Storage.Region,
		PublicURL:       cfg.Storage.PublicURL,
		PublicRead:      cfg.Storage.PublicRead,
		CredentialsFile: cfg.Storage.CredentialsFile,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	if closer, ok := objectStorage.(interface{ Close() error }); ok {
		a.closers = append(a.closers, closer.Close)
	}
	if eb, ok := objectStorage.(bucketEnsurer); ok {
		if err := eb.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure storage bucket: %w", err)
		}
	}

	resolver := service.NewArtifactResolver(objectStorage, &service.ArtifactConfig{
		CacheTTL:    cfg.Pipeline.ArtifactCacheTTL,
		CallTimeout: cfg.Pipeline.CallTimeout,
	})

	extractor, err := newExtractor(ctx, &cfg.Extractor, cfg.Pipeline.CallTimeout, resolver)
	if err != nil {
		return err
	}
	verifier, err := newVerifier(ctx, &cfg.Verifier)
	if err != nil {
		return err
	}
	verifier = service.NewCachingVerifier(verifier, cfg.Pipeline.VerdictCacheTTL)

	var indexer service.ClaimIndexer
	if cfg.Qdrant.Enabled {
		index, err := a.openIndex(ctx)
		if err != nil {
			return err
		}
		a.Index = index
		indexer = index
	}

	a.Coordinator = service.NewCoordinator(
		service.NewExtractionStage(extractor, cfg.Pipeline.CallTimeout),
		service.NewVerificationStage(verifier, cfg.Pipeline.Workers, cfg.Pipeline.CallTimeout),
		service.NewPersistenceStage(claims, &service.PersistenceConfig{
			Workers:     cfg.Pipeline.Workers,
			CallTimeout: cfg.Pipeline.CallTimeout,
			Retries:     cfg.Pipeline.SaveRetries,
			Backoff:     cfg.Pipeline.SaveBackoff,
		}),
		resolver,
		indexer,
		&service.CoordinatorConfig{
			SubmissionTimeout: cfg.Pipeline.SubmissionTimeout,
			SaveTimeout:       cfg.Pipeline.SaveTimeout,
		},
	)

	a.Fetcher = fetch.NewArticleFetcher(&fetch.Config{
		UserAgent:      cfg.Fetch.UserAgent,
		Timeout:        cfg.Fetch.Timeout,
		RespectRobots:  cfg.Fetch.RespectRobots,
		RequestsPerSec: cfg.Fetch.RequestsPerSec,
		MaxBodyBytes:   int64(cfg.Fetch.MaxBodyMB) << 20,
	})

	a.Crawler = service.NewCrawlService(a.Coordinator, a.Fetcher, claims, &service.CrawlConfig{
		Workers:   cfg.Crawl.Workers,
		BatchSize: cfg.Crawl.BatchSize,
	})
	return nil
}

func openClaimStore(ctx context.Context, cfg *config.DatabaseConfig) (repository.ClaimStore, error) {
	if cfg.Driver == "mongo" {
		store, err := repository.NewMongoClaimRepository(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize mongo: %w", err)
		}
		return store, nil
	}

	db, err := repository.InitDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return repository.NewClaimRepository(db), nil
}

func newExtractor(ctx context.Context, cfg *config.ModelConfig, timeout time.Duration, artifacts service.ArtifactOpener) (service.Extractor, error) {
	switch cfg.Provider {
	case "gemini":
		client, err := service.NewGeminiClient(ctx, cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, err
		}
		return service.NewGeminiExtractor(client, artifacts), nil
	case "openai":
		return service.NewOpenAIExtractor(&service.OpenAIExtractorConfig{
			Model:   cfg.Model,
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Timeout: timeout,
		}, artifacts), nil
	}
	return nil, fmt.Errorf("unsupported extractor provider %q", cfg.Provider)
}

func newVerifier(ctx context.Context, cfg *config.ModelConfig) (service.Verifier, error) {
	switch cfg.Provider {
	case "gemini":
		client, err := service.NewGeminiClient(ctx, cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, err
		}
		return service.NewGeminiVerifier(client), nil
	case "openai":
		return service.NewOpenAIVerifier(cfg.APIKey, cfg.BaseURL, cfg.Model), nil
	}
	return nil, fmt.Errorf("unsupported verifier provider %q", cfg.Provider)
}

func (a *App) openIndex(ctx context.Context) (*service.ClaimIndexService, error) {
	cfg := a.Config
	qdrantRepo, err := repository.NewQdrantRepository(&repository.QdrantConnectionConfig{
		Host:            cfg.Qdrant.Host,
		Port:            cfg.Qdrant.Port,
		Collection:      cfg.Qdrant.Collection,
		APIKey:          cfg.Qdrant.APIKey,
		UseTLS:          cfg.Qdrant.UseTLS,
		VectorDimension: cfg.Embedding.Dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Qdrant repository: %w", err)
	}
	a.closers = append(a.closers, qdrantRepo.Close)

	if err := qdrantRepo.EnsureCollection(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure Qdrant collection: %w", err)
	}

	embedding := service.NewEmbeddingService(&service.EmbeddingConfig{
		Model:      cfg.Embedding.Model,
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Dimensions: cfg.Embedding.Dimensions,
	})
	return service.NewClaimIndexService(embedding, qdrantRepo, cfg.Qdrant.Collection), nil
}

// Sources returns the enabled crawl sources keyed by name.
func (a *App) Sources() map[string]source.Source {
	cfg := a.Config.Sources
	sources := map[string]source.Source{}
	if cfg.Staging.Enabled {
		sources["staging"] = staging.NewAdapter(cfg.Staging.Path, "default")
	}
	if cfg.Reddit.Enabled {
		sources["reddit"] = reddit.NewAdapter(&reddit.Config{
			Subreddits: cfg.Reddit.Subreddits,
			UserAgent:  cfg.Reddit.UserAgent,
			Timeout:    a.Config.Fetch.Timeout,
		})
	}
	return sources
}

// Close releases every backend opened by New.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
