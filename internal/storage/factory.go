package storage

import (
	"context"
	"fmt"
	"strings"
)

// NewStorage creates an ObjectStorage for cfg.Type, detecting it from the
// endpoint when empty.
// Parameters:
//   - ctx: context for client construction (GCS dials eagerly).
//   - cfg: storage configuration.
// Returns:
//   - ObjectStorage: initialized backend.
//   - error: non-nil if the client cannot be created.
func NewStorage(ctx context.Context, cfg *Config) (ObjectStorage, error) {
	if cfg.Type == "" {
		cfg.Type = detectStorageType(cfg.Endpoint)
	}

	switch cfg.Type {
	case StorageTypeGCS:
		return NewGCSStorage(ctx, cfg)
	case StorageTypeMinIO:
		return NewMinIOStorage(cfg)
	case StorageTypeR2, StorageTypeS3, StorageTypeS3Compatible:
		return NewS3Storage(ctx, cfg)
	}
	return nil, fmt.Errorf("unsupported storage type %q", cfg.Type)
}

// detectStorageType guesses the backend from the endpoint host.
func detectStorageType(endpoint string) StorageType {
	endpoint = strings.ToLower(endpoint)

	switch {
	case endpoint == "", strings.Contains(endpoint, "storage.googleapis.com"):
		return StorageTypeGCS
	case strings.Contains(endpoint, "r2.cloudflarestorage.com"):
		return StorageTypeR2
	case strings.Contains(endpoint, "amazonaws.com"):
		return StorageTypeS3
	default:
		return StorageTypeS3Compatible
	}
}

// normalizeEndpoint strips scheme, path and trailing slashes.
func normalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimPrefix(endpoint, "https://")
	endpoint = strings.TrimPrefix(endpoint, "http://")
	if idx := strings.Index(endpoint, "/"); idx != -1 {
		endpoint = endpoint[:idx]
	}
	return strings.TrimSuffix(endpoint, "/")
}

func joinURL(prefix, key string) string {
	return strings.TrimSuffix(prefix, "/") + "/" + strings.TrimPrefix(key, "/")
}
