package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/patrickmn/go-cache"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/singleflight"

	"github.com/timmy/veris/internal/domain"
	"github.com/timmy/veris/internal/logger"
	"github.com/timmy/veris/internal/storage"
)

const (
	defaultArtifactName = "uploaded_media"
	placeholderScheme   = "artifact://"
)

// ErrArtifactNotFound is returned by Open when neither the cache nor the store
// holds the artifact.
var ErrArtifactNotFound = errors.New("artifact not found")

// ArtifactResolver content-addresses uploaded media, deduplicates against the
// object store and keeps recently resolved bytes for the extraction stage.
type ArtifactResolver struct {
	storage     storage.ObjectStorage
	cache       *cache.Cache
	group       singleflight.Group
	callTimeout time.Duration
}

// ArtifactConfig holds resolver settings.
type ArtifactConfig struct {
	CacheTTL    time.Duration
	CallTimeout time.Duration
}

// NewArtifactResolver creates a resolver over objectStorage.
func NewArtifactResolver(objectStorage storage.ObjectStorage, cfg *ArtifactConfig) *ArtifactResolver {
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &ArtifactResolver{
		storage:     objectStorage,
		cache:       cache.New(ttl, 2*ttl),
		callTimeout: cfg.CallTimeout,
	}
}

// ArtifactID returns hex(sha256(name ++ data))[:16] + "." + ext.
// Parameters:
//   - name: original file name; empty uses "uploaded_media".
//   - data: raw bytes.
//   - mimeType: content type used for the extension.
// Returns:
//   - string: deterministic artifact identifier.
func ArtifactID(name string, data []byte, mimeType string) string {
	if name == "" {
		name = defaultArtifactName
	}
	h := sha256.New()
	h.Write([]byte(name))
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))[:16] + "." + extensionOf(mimeType)
}

// extensionOf takes the MIME subtype with parameters and structured-syntax
// suffixes removed: "image/svg+xml; charset=utf-8" becomes "svg".
func extensionOf(mimeType string) string {
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		mediaType = strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0])
	}
	_, sub, ok := strings.Cut(strings.ToLower(mediaType), "/")
	if !ok || sub == "" {
		return "bin"
	}
	if idx := strings.Index(sub, "+"); idx > 0 {
		sub = sub[:idx]
	}
	return sub
}

// storageFolder buckets objects by top-level MIME type.
func storageFolder(mimeType string) string {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return "images"
	case strings.HasPrefix(mimeType, "video/"):
		return "videos"
	default:
		return "media"
	}
}

// Resolve turns uploaded bytes into an ArtifactRef. Objects already present in
// the store are never uploaded again. A store failure does not fail the call:
// the returned reference has Uploaded=false, a placeholder URL and UploadError set.
// Parameters:
//   - ctx: context for the store round-trip.
//   - name: original file name, may be empty.
//   - data: media bytes.
//   - mimeType: declared content type; sniffed when empty or octet-stream.
// Returns:
//   - *domain.ArtifactRef: resolved reference, never nil.
func (r *ArtifactResolver) Resolve(ctx context.Context, name string, data []byte, mimeType string) *domain.ArtifactRef {
	mimeType = r.detectMIME(data, mimeType)
	id := ArtifactID(name, data, mimeType)
	key := storageFolder(mimeType) + "/" + id

	// Keep bytes available to the extractor even if the upload degrades.
	r.cache.SetDefault(id, cachedArtifact{data: data, mimeType: mimeType})

	v, _, _ := r.group.Do(id, func() (interface{}, error) {
		return r.ensureUploaded(ctx, key, data, mimeType), nil
	})
	upload := v.(uploadState)

	ref := &domain.ArtifactRef{
		ArtifactID: id,
		Name:       name,
		MimeType:   mimeType,
		StorageKey: key,
		Size:       int64(len(data)),
	}
	if upload.err != nil {
		ref.PublicURL = placeholderScheme + id
		ref.UploadError = upload.err.Error()
	} else {
		ref.PublicURL = r.storage.GetURL(key)
		ref.Uploaded = true
	}

	if strings.HasPrefix(mimeType, "image/") {
		if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
			ref.Width, ref.Height = cfg.Width, cfg.Height
		}
	}

	entry := logger.With(logger.Fields{
		logger.FieldArtifactID: id,
		"storage_key":          key,
		logger.FieldSize:       len(data),
		"deduplicated":         upload.existed,
	})
	if upload.err != nil {
		entry.Warn(ctx, "artifact upload degraded: %v", upload.err)
	} else {
		entry.Info(ctx, "artifact resolved")
	}
	return ref
}

type uploadState struct {
	existed bool
	err     error
}

type cachedArtifact struct {
	data     []byte
	mimeType string
}

func (r *ArtifactResolver) ensureUploaded(ctx context.Context, key string, data []byte, mimeType string) uploadState {
	if r.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.callTimeout)
		defer cancel()
	}

	exists, err := r.storage.Exists(ctx, key)
	if err != nil {
		return uploadState{err: fmt.Errorf("failed to check storage existence: %w", err)}
	}
	if exists {
		return uploadState{existed: true}
	}

	if err := r.storage.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), mimeType); err != nil {
		return uploadState{err: err}
	}
	return uploadState{}
}

func (r *ArtifactResolver) detectMIME(data []byte, declared string) string {
	declared = strings.TrimSpace(declared)
	if declared != "" && !strings.HasPrefix(declared, "application/octet-stream") {
		return declared
	}
	detected := mimetype.Detect(data).String()
	if idx := strings.Index(detected, ";"); idx != -1 {
		detected = detected[:idx]
	}
	return detected
}

// Open returns the bytes of a previously resolved artifact, reading through to
// the object store on a cache miss.
// Parameters:
//   - ctx: context for the store download.
//   - artifactID: identifier returned by Resolve.
// Returns:
//   - []byte: artifact contents.
//   - string: MIME type.
//   - error: ErrArtifactNotFound if the artifact is unknown.
func (r *ArtifactResolver) Open(ctx context.Context, artifactID string) ([]byte, string, error) {
	if v, ok := r.cache.Get(artifactID); ok {
		a := v.(cachedArtifact)
		return a.data, a.mimeType, nil
	}

	ext := artifactID[strings.LastIndex(artifactID, ".")+1:]
	mimeType := mime.TypeByExtension("." + ext)
	folders := []string{"images", "videos", "media"}
	if mimeType != "" {
		folders = []string{storageFolder(mimeType)}
	}

	for _, folder := range folders {
		key := folder + "/" + artifactID
		exists, err := r.storage.Exists(ctx, key)
		if err != nil {
			return nil, "", fmt.Errorf("failed to check artifact %s: %w", artifactID, err)
		}
		if !exists {
			continue
		}

		rc, err := r.storage.Download(ctx, key)
		if err != nil {
			return nil, "", err
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, "", fmt.Errorf("failed to read artifact %s: %w", artifactID, err)
		}

		if mimeType == "" {
			mimeType = mimetype.Detect(data).String()
		}
		r.cache.SetDefault(artifactID, cachedArtifact{data: data, mimeType: mimeType})
		return data, mimeType, nil
	}
	return nil, "", fmt.Errorf("%w: %s", ErrArtifactNotFound, artifactID)
}
