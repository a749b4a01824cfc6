package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/timmy/veris/internal/domain"
	"github.com/timmy/veris/internal/logger"
	"github.com/timmy/veris/internal/repository"
)

// claimPointNamespace scopes Qdrant point IDs derived from record IDs.
var claimPointNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("veris/claims"))

// PointStore is the vector index the claim index writes to.
type PointStore interface {
	Upsert(ctx context.Context, pointID string, vector []float32, payload *repository.ClaimPayload) error
	Search(ctx context.Context, vector []float32, topK int, filters *repository.SearchFilters) ([]repository.SearchResult, error)
}

// ClaimIndexService embeds saved claims and keeps them searchable by similarity.
type ClaimIndexService struct {
	embedder   Embedder
	points     PointStore
	collection string
}

// NewClaimIndexService creates a claim index over points.
func NewClaimIndexService(embedder Embedder, points PointStore, collection string) *ClaimIndexService {
	return &ClaimIndexService{
		embedder:   embedder,
		points:     points,
		collection: collection,
	}
}

// generateDeterministicPointID maps a record ID to a stable UUID so
// re-saving the same claim overwrites its point.
func generateDeterministicPointID(recordID, collection string) string {
	return uuid.NewSHA1(claimPointNamespace, []byte(collection+":"+recordID)).String()
}

// Index embeds entries in one batch and upserts a point per entry.
// Failures are logged; the caller's outcomes are never touched.
func (s *ClaimIndexService) Index(ctx context.Context, entries []IndexEntry) {
	ctx = logger.SetComponent(ctx, "claim_index")
	if len(entries) == 0 {
		return
	}

	texts := make([]string, len(entries))
	for i, e := range entries {
		texts[i] = e.Claim
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		logger.CtxWarn(ctx, "failed to embed %d claims: %v", len(entries), err)
		return
	}

	indexed := 0
	for i, e := range entries {
		payload := &repository.ClaimPayload{
			RecordID:   e.RecordID,
			Claim:      e.Claim,
			Category:   string(e.Category),
			Status:     string(e.Status),
			Confidence: e.Confidence,
			OriginURL:  e.OriginURL,
		}
		pointID := generateDeterministicPointID(e.RecordID, s.collection)
		if err := s.points.Upsert(ctx, pointID, vectors[i], payload); err != nil {
			logger.FromContext(ctx).WithFields(logger.Fields{
				"record_id": e.RecordID,
			}).WithError(err).Warn("Failed to index claim")
			continue
		}
		indexed++
	}

	logger.With(logger.Fields{}).WithCount(indexed).Debug(ctx, "claims indexed")
}

// SimilarQuery narrows a similarity search.
type SimilarQuery struct {
	Query    string
	TopK     int
	Category domain.Category
	Status   domain.VerificationStatus
}

// Similar returns stored claims closest to the query text.
func (s *ClaimIndexService) Similar(ctx context.Context, q *SimilarQuery) ([]repository.SearchResult, error) {
	if q.Query == "" {
		return nil, fmt.Errorf("query is required")
	}
	topK := q.TopK
	if topK <= 0 {
		topK = 10
	}
	if topK > 100 {
		topK = 100
	}

	vector, err := s.embedder.EmbedQuery(ctx, q.Query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	return s.points.Search(ctx, vector, topK, &repository.SearchFilters{
		Category: string(q.Category),
		Status:   string(q.Status),
	})
}
