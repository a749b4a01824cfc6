package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Extractor ModelConfig     `mapstructure:"extractor"`
	Verifier  ModelConfig     `mapstructure:"verifier"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Qdrant    QdrantConfig    `mapstructure:"qdrant"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
	Crawl     CrawlConfig     `mapstructure:"crawl"`
	Sources   SourcesConfig   `mapstructure:"sources"`
}

type ServerConfig struct {
	Port        int        `mapstructure:"port"`
	Mode        string     `mapstructure:"mode"`
	MaxUploadMB int        `mapstructure:"max_upload_mb"`
	CORS        CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	FileOnly   bool   `mapstructure:"file_only"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// DatabaseConfig selects the claim store. Driver is postgres, sqlite or mongo.
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	DSN      string `mapstructure:"dsn"`
	Path     string `mapstructure:"path"`
	MongoURI string `mapstructure:"mongo_uri"`
	MongoDB  string `mapstructure:"mongo_db"`
	MaxConns int    `mapstructure:"max_conns"`
}

type StorageConfig struct {
	Type            string `mapstructure:"type"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKey       string `mapstructure:"access_key"`
	SecretKey       string `mapstructure:"secret_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	PublicURL       string `mapstructure:"public_url"`
	PublicRead      bool   `mapstructure:"public_read"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

// ModelConfig configures an extractor or verifier backend.
type ModelConfig struct {
	Provider string `mapstructure:"provider"` // openai, gemini
	Model    string `mapstructure:"model"`
	APIKey   string `mapstructure:"api_key"`
	BaseURL  string `mapstructure:"base_url"`
}

type PipelineConfig struct {
	Workers           int           `mapstructure:"workers"`
	CallTimeout       time.Duration `mapstructure:"call_timeout"`
	SubmissionTimeout time.Duration `mapstructure:"submission_timeout"`
	SaveRetries       int           `mapstructure:"save_retries"`
	SaveBackoff       time.Duration `mapstructure:"save_backoff"`
	SaveTimeout       time.Duration `mapstructure:"save_timeout"`
	VerdictCacheTTL   time.Duration `mapstructure:"verdict_cache_ttl"`
	ArtifactCacheTTL  time.Duration `mapstructure:"artifact_cache_ttl"`
}

type EmbeddingConfig struct {
	Model      string `mapstructure:"model"`
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	Dimensions int    `mapstructure:"dimensions"`
}

type QdrantConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Collection string `mapstructure:"collection"`
	APIKey     string `mapstructure:"api_key"`
	UseTLS     bool   `mapstructure:"use_tls"`
}

type FetchConfig struct {
	UserAgent      string        `mapstructure:"user_agent"`
	Timeout        time.Duration `mapstructure:"timeout"`
	RespectRobots  bool          `mapstructure:"respect_robots"`
	RequestsPerSec float64       `mapstructure:"requests_per_sec"`
	MaxBodyMB      int           `mapstructure:"max_body_mb"`
}

type CrawlConfig struct {
	Workers   int `mapstructure:"workers"`
	BatchSize int `mapstructure:"batch_size"`
}

type SourcesConfig struct {
	Staging StagingSourceConfig `mapstructure:"staging"`
	Reddit  RedditSourceConfig  `mapstructure:"reddit"`
}

type StagingSourceConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type RedditSourceConfig struct {
	Enabled    bool     `mapstructure:"enabled"`
	Subreddits []string `mapstructure:"subreddits"`
	UserAgent  string   `mapstructure:"user_agent"`
}

// Load reads configuration from file, .env and the environment.
// Parameters:
//   - configPath: explicit config file; empty searches ./configs and the working dir.
// Returns:
//   - *Config: merged configuration with defaults applied.
//   - error: non-nil if an existing config file cannot be parsed.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Secrets and deployment knobs keep their conventional names.
	v.BindEnv("database.dsn", "DATABASE_URL")
	v.BindEnv("database.mongo_uri", "MONGODB_URI")
	v.BindEnv("storage.endpoint", "STORAGE_ENDPOINT")
	v.BindEnv("storage.access_key", "STORAGE_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "STORAGE_SECRET_KEY")
	v.BindEnv("storage.bucket", "STORAGE_BUCKET", "GCS_BUCKET_NAME")
	v.BindEnv("storage.public_url", "STORAGE_PUBLIC_URL")
	v.BindEnv("storage.credentials_file", "GOOGLE_APPLICATION_CREDENTIALS")
	v.BindEnv("extractor.api_key", "EXTRACTOR_API_KEY", "OPENAI_API_KEY")
	v.BindEnv("extractor.base_url", "OPENAI_BASE_URL")
	v.BindEnv("verifier.api_key", "VERIFIER_API_KEY", "GOOGLE_API_KEY")
	v.BindEnv("embedding.api_key", "JINA_API_KEY")
	v.BindEnv("qdrant.host", "QDRANT_HOST")
	v.BindEnv("qdrant.port", "QDRANT_PORT")
	v.BindEnv("qdrant.api_key", "QDRANT_API_KEY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// A second save retry would break the single-retry contract.
	if cfg.Pipeline.SaveRetries > 1 {
		cfg.Pipeline.SaveRetries = 1
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.max_upload_mb", 50)
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/veris.db")
	v.SetDefault("database.mongo_db", "veris")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("storage.use_ssl", true)
	v.SetDefault("storage.public_read", true)
	v.SetDefault("extractor.provider", "openai")
	v.SetDefault("extractor.model", "gpt-4o-mini")
	v.SetDefault("extractor.base_url", "https://api.openai.com/v1")
	v.SetDefault("verifier.provider", "gemini")
	v.SetDefault("verifier.model", "gemini-2.5-flash")
	v.SetDefault("pipeline.workers", 5)
	v.SetDefault("pipeline.call_timeout", 60*time.Second)
	v.SetDefault("pipeline.submission_timeout", 5*time.Minute)
	v.SetDefault("pipeline.save_retries", 1)
	v.SetDefault("pipeline.save_backoff", 500*time.Millisecond)
	v.SetDefault("pipeline.save_timeout", 2*time.Minute)
	v.SetDefault("pipeline.verdict_cache_ttl", 10*time.Minute)
	v.SetDefault("pipeline.artifact_cache_ttl", 30*time.Minute)
	v.SetDefault("embedding.model", "jina-embeddings-v3")
	v.SetDefault("embedding.base_url", "https://api.jina.ai/v1")
	v.SetDefault("embedding.dimensions", 1024)
	v.SetDefault("qdrant.enabled", false)
	v.SetDefault("qdrant.host", "localhost")
	v.SetDefault("qdrant.port", 6334)
	v.SetDefault("qdrant.collection", "claims")
	v.SetDefault("fetch.user_agent", "veris-bot/1.0 (+https://github.com/timmy/veris)")
	v.SetDefault("fetch.timeout", 20*time.Second)
	v.SetDefault("fetch.respect_robots", true)
	v.SetDefault("fetch.requests_per_sec", 1.0)
	v.SetDefault("fetch.max_body_mb", 10)
	v.SetDefault("crawl.workers", 3)
	v.SetDefault("crawl.batch_size", 20)
	v.SetDefault("sources.staging.path", "./data/staging")
	v.SetDefault("sources.reddit.subreddits", []string{"news", "worldnews"})
	v.SetDefault("sources.reddit.user_agent", "veris-crawler/1.0")
}

// Validate reports missing credentials and identifiers. The pipeline must not
// accept submissions when it fails.
func (c *Config) Validate() error {
	var errs []error

	if c.Extractor.APIKey == "" {
		errs = append(errs, fmt.Errorf("extractor.api_key is required"))
	}
	if c.Verifier.APIKey == "" {
		errs = append(errs, fmt.Errorf("verifier.api_key is required"))
	}
	if c.Storage.Bucket == "" {
		errs = append(errs, fmt.Errorf("storage.bucket is required"))
	}
	if c.Pipeline.Workers <= 0 {
		errs = append(errs, fmt.Errorf("pipeline.workers must be positive"))
	}

	switch c.Database.Driver {
	case "postgres":
		if c.Database.DSN == "" {
			errs = append(errs, fmt.Errorf("database.dsn is required for postgres"))
		}
	case "sqlite":
		if c.Database.Path == "" {
			errs = append(errs, fmt.Errorf("database.path is required for sqlite"))
		}
	case "mongo":
		if c.Database.MongoURI == "" {
			errs = append(errs, fmt.Errorf("database.mongo_uri is required for mongo"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported database.driver %q", c.Database.Driver))
	}

	for _, m := range []struct {
		name string
		cfg  ModelConfig
	}{{"extractor", c.Extractor}, {"verifier", c.Verifier}} {
		if m.cfg.Provider != "openai" && m.cfg.Provider != "gemini" {
			errs = append(errs, fmt.Errorf("%s.provider must be openai or gemini, got %q", m.name, m.cfg.Provider))
		}
	}

	if c.Qdrant.Enabled && c.Embedding.APIKey == "" {
		errs = append(errs, fmt.Errorf("embedding.api_key is required when qdrant is enabled"))
	}

	return errors.Join(errs...)
}
