package storage

import (
	"context"
	"io"
)

// ObjectStorage is a blob store for uploaded media. Objects are never deleted
// by the pipeline, so the interface has no Delete.
type ObjectStorage interface {
	// Upload writes an object. Public-read is applied when the backend is
	// configured for it.
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error

	// Download opens an object for reading.
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// GetURL returns the public URL for an object.
	GetURL(key string) string

	// Exists reports whether an object is present.
	Exists(ctx context.Context, key string) (bool, error)
}

// StorageType selects the backend.
type StorageType string

const (
	StorageTypeR2           StorageType = "r2"
	StorageTypeS3           StorageType = "s3"
	StorageTypeS3Compatible StorageType = "s3compatible"
	StorageTypeMinIO        StorageType = "minio"
	StorageTypeGCS          StorageType = "gcs"
)

// Config holds connection settings for every backend.
type Config struct {
	Type      StorageType
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Region    string
	PublicURL string // CDN or r2.dev prefix; overrides the derived URL
	// PublicRead marks uploads world-readable.
	PublicRead bool
	// CredentialsFile is a GCS service account JSON; empty uses ADC.
	CredentialsFile string
}
