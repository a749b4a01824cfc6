package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

const gcsPublicHost = "https://storage.googleapis.com"

// GCSStorage implements ObjectStorage on Google Cloud Storage.
type GCSStorage struct {
	client     *gcs.Client
	bucket     *gcs.BucketHandle
	baseURL    string
	publicRead bool
}

// NewGCSStorage creates a GCS client. An empty CredentialsFile falls back to
// application default credentials.
func NewGCSStorage(ctx context.Context, cfg *Config) (*GCSStorage, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gcs client: %w", err)
	}

	baseURL := cfg.PublicURL
	if baseURL == "" {
		baseURL = gcsPublicHost + "/" + cfg.Bucket
	}

	return &GCSStorage{
		client:     client,
		bucket:     client.Bucket(cfg.Bucket),
		baseURL:    baseURL,
		publicRead: cfg.PublicRead,
	}, nil
}

// Upload streams reader into a new object. With public-read on, the object is
// written with the publicRead predefined ACL.
func (s *GCSStorage) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	w := s.bucket.Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if s.publicRead {
		w.PredefinedACL = "publicRead"
	}
	if size > 0 && size < int64(w.ChunkSize) {
		w.ChunkSize = 0
	}

	if _, err := io.Copy(w, reader); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to upload object %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize object %s: %w", key, err)
	}
	return nil
}

// Download opens an object reader.
func (s *GCSStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	r, err := s.bucket.Object(key).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to download object %s: %w", key, err)
	}
	return r, nil
}

// GetURL returns the public URL for key.
func (s *GCSStorage) GetURL(key string) string {
	return joinURL(s.baseURL, key)
}

// Exists fetches object attributes.
func (s *GCSStorage) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.bucket.Object(key).Attrs(ctx)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("failed to check object existence: %w", err)
}

// Close releases the underlying client.
func (s *GCSStorage) Close() error {
	return s.client.Close()
}
