package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"

	"github.com/timmy/veris/internal/domain"
	"github.com/timmy/veris/internal/logger"
)

// VerifyRequest carries one claim to a verifier.
type VerifyRequest struct {
	Claim    string
	Category domain.Category
	Context  string
}

// Verifier judges one claim against external evidence.
type Verifier interface {
	Verify(ctx context.Context, req *VerifyRequest) (*domain.Verdict, error)
}

// rawVerdict is the verifier JSON contract. Older prompts answer with
// verification_status instead of status.
type rawVerdict struct {
	Status       string   `json:"status"`
	LegacyStatus string   `json:"verification_status"`
	Confidence   flexInt  `json:"confidence"`
	Evidence     string   `json:"evidence"`
	Sources      []string `json:"sources"`
}

// validateVerdict normalizes raw and rejects responses that break the verdict
// contract. extraSources are appended after the model's own citations.
func validateVerdict(raw *rawVerdict, extraSources []string) (*domain.Verdict, error) {
	statusText := raw.Status
	if statusText == "" {
		statusText = raw.LegacyStatus
	}
	status, ok := domain.ParseStatus(statusText)
	if !ok {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrMalformedVerdict, statusText)
	}

	conf := int(raw.Confidence)
	if conf < 0 || conf > 100 {
		return nil, fmt.Errorf("%w: confidence %d out of range", domain.ErrMalformedVerdict, conf)
	}

	sources := mergeSources(raw.Sources, extraSources)
	if len(sources) == 0 && status != domain.StatusUnverifiable {
		return nil, fmt.Errorf("%w: status %s without sources", domain.ErrMalformedVerdict, status)
	}

	evidence := strings.TrimSpace(raw.Evidence)
	// A disputed verdict must cite both sides of the conflict.
	if status == domain.StatusDisputed {
		if evidence == "" {
			return nil, fmt.Errorf("%w: disputed without evidence", domain.ErrMalformedVerdict)
		}
		if len(sources) < 2 {
			return nil, fmt.Errorf("%w: disputed with %d source(s), need both sides", domain.ErrMalformedVerdict, len(sources))
		}
	}

	return &domain.Verdict{
		Status:     status,
		Confidence: conf,
		Evidence:   evidence,
		Sources:    sources,
	}, nil
}

// mergeSources keeps http(s) URLs in order, without duplicates.
func mergeSources(lists ...[]string) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, list := range lists {
		for _, s := range list {
			s = strings.TrimSpace(s)
			if s == "" || seen[s] {
				continue
			}
			if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
				continue
			}
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// VerificationStage fans claims out to the verifier under a concurrency bound.
type VerificationStage struct {
	verifier    Verifier
	workers     int
	callTimeout time.Duration
}

// NewVerificationStage creates a VerificationStage.
func NewVerificationStage(verifier Verifier, workers int, callTimeout time.Duration) *VerificationStage {
	if workers <= 0 {
		workers = 5
	}
	return &VerificationStage{verifier: verifier, workers: workers, callTimeout: callTimeout}
}

// VerifyAll returns exactly one result per claim, in input order. A failed,
// timed out or cancelled verification degrades to an unverifiable result; it
// never cancels siblings.
// Parameters:
//   - ctx: submission context; its cancellation stops waiting work.
//   - claims: claims to verify.
// Returns:
//   - []domain.VerificationResult: len(claims) results.
func (s *VerificationStage) VerifyAll(ctx context.Context, claims []domain.ExtractedClaim) []domain.VerificationResult {
	results := make([]domain.VerificationResult, len(claims))

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i := range claims {
		claim := claims[i]
		g.Go(func() error {
			results[i] = s.verifyOne(ctx, claim)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (s *VerificationStage) verifyOne(ctx context.Context, claim domain.ExtractedClaim) domain.VerificationResult {
	ctx = logger.SetClaimID(ctx, claim.ClaimID)
	if err := ctx.Err(); err != nil {
		return domain.UnverifiableResult(claim, err)
	}

	callCtx := ctx
	if s.callTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.callTimeout)
		defer cancel()
	}

	start := time.Now()
	verdict, err := s.verifier.Verify(callCtx, &VerifyRequest{
		Claim:    claim.Text,
		Category: claim.Category,
		Context:  claim.Context,
	})
	if err != nil {
		logger.With(logger.Fields{logger.FieldStatus: "failed"}).Since(start).Warn(ctx, "claim verification failed: %v", err)
		return domain.UnverifiableResult(claim, err)
	}

	logger.With(logger.Fields{
		logger.FieldStatus: string(verdict.Status),
		"confidence":       verdict.Confidence,
	}).Since(start).Debug(ctx, "claim verified")

	return domain.VerificationResult{
		Claim:      claim,
		Status:     verdict.Status,
		Confidence: verdict.Confidence,
		Evidence:   verdict.Evidence,
		Sources:    verdict.Sources,
	}
}

// CachingVerifier memoizes successful verdicts by category and claim text.
// Context is not part of the key.
type CachingVerifier struct {
	next  Verifier
	cache *cache.Cache
}

// NewCachingVerifier wraps next with a TTL cache. A non-positive ttl returns
// next unchanged.
func NewCachingVerifier(next Verifier, ttl time.Duration) Verifier {
	if ttl <= 0 {
		return next
	}
	return &CachingVerifier{next: next, cache: cache.New(ttl, 2*ttl)}
}

// Verify implements Verifier.
func (c *CachingVerifier) Verify(ctx context.Context, req *VerifyRequest) (*domain.Verdict, error) {
	key := string(req.Category) + "\x00" + strings.ToLower(strings.TrimSpace(req.Claim))
	if v, ok := c.cache.Get(key); ok {
		verdict := *v.(*domain.Verdict)
		verdict.Sources = append([]string(nil), verdict.Sources...)
		return &verdict, nil
	}

	verdict, err := c.next.Verify(ctx, req)
	if err != nil {
		return nil, err
	}
	cached := *verdict
	cached.Sources = append([]string(nil), verdict.Sources...)
	c.cache.SetDefault(key, &cached)
	return verdict, nil
}
