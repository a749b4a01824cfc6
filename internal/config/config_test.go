package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Database:  DatabaseConfig{Driver: "sqlite", Path: "./data/veris.db"},
		Storage:   StorageConfig{Bucket: "claims-media"},
		Extractor: ModelConfig{Provider: "openai", APIKey: "sk-extract"},
		Verifier:  ModelConfig{Provider: "gemini", APIKey: "g-verify"},
		Pipeline:  PipelineConfig{Workers: 5},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing extractor key", mutate: func(c *Config) { c.Extractor.APIKey = "" }, wantErr: "extractor.api_key"},
		{name: "missing verifier key", mutate: func(c *Config) { c.Verifier.APIKey = "" }, wantErr: "verifier.api_key"},
		{name: "missing bucket", mutate: func(c *Config) { c.Storage.Bucket = "" }, wantErr: "storage.bucket"},
		{name: "postgres without dsn", mutate: func(c *Config) { c.Database.Driver = "postgres" }, wantErr: "database.dsn"},
		{name: "mongo without uri", mutate: func(c *Config) { c.Database.Driver = "mongo" }, wantErr: "database.mongo_uri"},
		{name: "unknown driver", mutate: func(c *Config) { c.Database.Driver = "oracle" }, wantErr: "unsupported database.driver"},
		{name: "unknown provider", mutate: func(c *Config) { c.Verifier.Provider = "bing" }, wantErr: "verifier.provider"},
		{name: "qdrant without embedding key", mutate: func(c *Config) { c.Qdrant.Enabled = true }, wantErr: "embedding.api_key"},
		{name: "zero workers", mutate: func(c *Config) { c.Pipeline.Workers = 0 }, wantErr: "pipeline.workers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadDefaultsAndClamp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "pipeline:\n  workers: 9\n  save_retries: 4\n  save_backoff: 250ms\nstorage:\n  bucket: from-file\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Pipeline.Workers != 9 {
		t.Errorf("workers = %d, want 9", cfg.Pipeline.Workers)
	}
	if cfg.Pipeline.SaveRetries != 1 {
		t.Errorf("save_retries = %d, want clamp to 1", cfg.Pipeline.SaveRetries)
	}
	if cfg.Pipeline.CallTimeout != 60*time.Second {
		t.Errorf("call_timeout = %v, want 60s", cfg.Pipeline.CallTimeout)
	}
	if cfg.Pipeline.SaveBackoff != 250*time.Millisecond {
		t.Errorf("save_backoff = %v, want 250ms", cfg.Pipeline.SaveBackoff)
	}
	if cfg.Pipeline.SaveTimeout != 2*time.Minute {
		t.Errorf("save_timeout = %v, want 2m", cfg.Pipeline.SaveTimeout)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("database.driver = %q, want sqlite", cfg.Database.Driver)
	}
}
