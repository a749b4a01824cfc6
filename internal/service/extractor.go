package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/timmy/veris/internal/domain"
	"github.com/timmy/veris/internal/logger"
)

// ErrUnsupportedMedia is returned by extractors that cannot read a media kind.
var ErrUnsupportedMedia = errors.New("extractor cannot read this media kind")

// ExtractRequest is what an Extractor receives. Exactly one of Text,
// ArtifactID or URL is set, mirroring the submission payload.
type ExtractRequest struct {
	Kind        domain.ContentKind
	OriginLabel string
	Text        string
	ArtifactID  string
	URL         string
}

// Extractor turns content into candidate claims.
type Extractor interface {
	Extract(ctx context.Context, req *ExtractRequest) (*RawExtraction, error)
}

// ArtifactOpener reads uploaded media by artifact ID.
type ArtifactOpener interface {
	Open(ctx context.Context, artifactID string) ([]byte, string, error)
}

// RawExtraction is the extractor's JSON contract.
type RawExtraction struct {
	Claims      []RawClaim `json:"extracted_claims"`
	Summary     string     `json:"content_summary"`
	ContentType string     `json:"content_type"`
}

// RawClaim is one candidate claim before normalization.
type RawClaim struct {
	Claim         string  `json:"claim"`
	Context       string  `json:"context"`
	Category      string  `json:"category"`
	ClaimType     string  `json:"claim_type"`
	SpanText      string  `json:"span_text"`
	ConfidenceEst flexInt `json:"confidence_est"`
}

// subjectiveMarkers flag first-person opinion phrasing.
var subjectiveMarkers = []string{
	"i think", "i believe", "i feel", "in my opinion", "in my view", "personally,",
}

// nonFactualTypes are claim types that carry no checkable fact.
var nonFactualTypes = map[string]bool{
	"opinion":    true,
	"rhetorical": true,
	"subjective": true,
}

// ExtractionStage routes a submission to the extractor by kind and normalizes
// the result into atomic claims.
type ExtractionStage struct {
	extractor   Extractor
	callTimeout time.Duration
}

// NewExtractionStage creates an ExtractionStage.
func NewExtractionStage(extractor Extractor, callTimeout time.Duration) *ExtractionStage {
	return &ExtractionStage{extractor: extractor, callTimeout: callTimeout}
}

// Extract dispatches on sub.Kind. Uploaded media is passed by artifact ID,
// never by public URL; the extractor reads bytes through the resolver.
// Parameters:
//   - ctx: submission context.
//   - sub: validated submission.
// Returns:
//   - *domain.Extraction: normalized claims, possibly empty.
//   - error: non-nil if the extractor call fails.
func (s *ExtractionStage) Extract(ctx context.Context, sub *domain.Submission) (*domain.Extraction, error) {
	req := &ExtractRequest{Kind: sub.Kind, OriginLabel: sub.OriginLabel}
	switch {
	case sub.Kind == domain.KindText:
		req.Text = sub.Text
	case sub.Artifact != nil:
		req.ArtifactID = sub.Artifact.ArtifactID
	default:
		req.URL = sub.URL
	}

	callCtx := ctx
	if s.callTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.callTimeout)
		defer cancel()
	}

	start := time.Now()
	raw, err := s.extractor.Extract(callCtx, req)
	if err != nil {
		return nil, fmt.Errorf("claim extraction failed: %w", err)
	}

	out := &domain.Extraction{
		Claims:       normalizeClaims(raw.Claims, sub.ID),
		Summary:      strings.TrimSpace(raw.Summary),
		ResolvedKind: raw.ContentType,
	}

	logger.With(logger.Fields{
		"candidates":      len(raw.Claims),
		logger.FieldCount: len(out.Claims),
	}).Since(start).Info(ctx, "claims extracted")
	return out, nil
}

// normalizeClaims trims, drops opinion and duplicate items, clamps categories
// and assigns claim IDs.
func normalizeClaims(raw []RawClaim, submissionID string) []domain.ExtractedClaim {
	seen := make(map[string]bool, len(raw))
	claims := make([]domain.ExtractedClaim, 0, len(raw))

	for _, rc := range raw {
		text := strings.Join(strings.Fields(rc.Claim), " ")
		if text == "" {
			continue
		}
		if nonFactualTypes[strings.ToLower(strings.TrimSpace(rc.ClaimType))] || isSubjective(text) {
			continue
		}
		key := strings.ToLower(text)
		if seen[key] {
			continue
		}
		seen[key] = true

		conf := int(rc.ConfidenceEst)
		if conf < 0 || conf > 100 {
			conf = 0
		}

		claims = append(claims, domain.ExtractedClaim{
			ClaimID:          uuid.NewString(),
			Text:             text,
			Category:         domain.ParseCategory(rc.Category),
			Context:          strings.TrimSpace(rc.Context),
			ClaimType:        strings.ToLower(strings.TrimSpace(rc.ClaimType)),
			SpanText:         strings.TrimSpace(rc.SpanText),
			ConfidenceEst:    conf,
			SourceSubmission: submissionID,
		})
	}
	return claims
}

func isSubjective(text string) bool {
	lower := strings.ToLower(text)
	for _, m := range subjectiveMarkers {
		if strings.HasPrefix(lower, m) || strings.Contains(lower, " "+m) {
			return true
		}
	}
	return false
}
