package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/timmy/veris/internal/domain"
	"github.com/timmy/veris/internal/logger"
)

// ClaimIndexer receives successfully saved claims. Failures stay inside the
// indexer; they never change a SaveOutcome.
type ClaimIndexer interface {
	Index(ctx context.Context, entries []IndexEntry)
}

// IndexEntry describes one saved claim for similarity indexing.
type IndexEntry struct {
	RecordID   string
	Claim      string
	Category   domain.Category
	Status     domain.VerificationStatus
	Confidence int
	OriginURL  string
}

// Coordinator drives one submission through
// Received -> Extracting -> (NoClaims | Verifying -> Saving) -> Reported.
// Per-claim failures are folded into the result; only an empty extraction
// ends the run early.
type Coordinator struct {
	extraction        *ExtractionStage
	verification      *VerificationStage
	persistence       *PersistenceStage
	resolver          *ArtifactResolver
	indexer           ClaimIndexer
	submissionTimeout time.Duration
	saveTimeout       time.Duration
}

// CoordinatorConfig holds coordinator settings.
type CoordinatorConfig struct {
	// SubmissionTimeout bounds extraction and verification.
	SubmissionTimeout time.Duration
	// SaveTimeout bounds the saving phase, which runs after the submission
	// deadline is cut loose so completed verdicts are still written.
	SaveTimeout time.Duration
}

// NewCoordinator wires the three stages. resolver turns uploads into
// artifact references; indexer may be nil.
func NewCoordinator(
	extraction *ExtractionStage,
	verification *VerificationStage,
	persistence *PersistenceStage,
	resolver *ArtifactResolver,
	indexer ClaimIndexer,
	cfg *CoordinatorConfig,
) *Coordinator {
	return &Coordinator{
		extraction:        extraction,
		verification:      verification,
		persistence:       persistence,
		resolver:          resolver,
		indexer:           indexer,
		submissionTimeout: cfg.SubmissionTimeout,
		saveTimeout:       cfg.SaveTimeout,
	}
}

// run tracks the state of one submission.
type run struct {
	sub    *domain.Submission
	result *domain.PipelineResult
}

func (r *run) moveTo(ctx context.Context, next domain.State) context.Context {
	if !r.result.State.CanTransition(next) {
		panic(fmt.Sprintf("illegal pipeline transition %s -> %s", r.result.State, next))
	}
	r.result.State = next
	r.result.Trace = append(r.result.Trace, next)

	ctx = logger.SetStage(ctx, string(next))
	logger.CtxInfo(ctx, "pipeline entered %s", next)
	return ctx
}

// Run processes a validated submission and always returns a result.
// Parameters:
//   - ctx: caller context; the submission timeout covers extraction and
//     verification. Saves are detached from it and bounded by the save timeout.
//   - sub: submission accepted by NewSubmission.
// Returns:
//   - *domain.PipelineResult: terminal state, counts and per-claim lines.
func (c *Coordinator) Run(ctx context.Context, sub *domain.Submission) *domain.PipelineResult {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	ctx = logger.SetSubmissionID(ctx, sub.ID)
	baseCtx := ctx
	if c.submissionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.submissionTimeout)
		defer cancel()
	}

	start := time.Now()
	r := &run{
		sub: sub,
		result: &domain.PipelineResult{
			SubmissionID: sub.ID,
			State:        domain.StateReceived,
			Trace:        []domain.State{domain.StateReceived},
			Artifact:     sub.Artifact,
			StatusCounts: map[domain.VerificationStatus]int{},
			PerClaim:     []domain.ClaimReport{},
		},
	}

	stageCtx := r.moveTo(ctx, domain.StateExtracting)
	extraction, err := c.extraction.Extract(stageCtx, sub)
	if err != nil {
		logger.CtxWarn(stageCtx, "extraction failed, no claims to check: %v", err)
		r.result.ExtractionError = err.Error()
	}
	if err != nil || len(extraction.Claims) == 0 {
		r.moveTo(ctx, domain.StateNoClaims)
		r.result.Summary = domain.NoClaimsMessage
		if extraction != nil {
			r.result.ContentSummary = extraction.Summary
		}
		return r.result
	}
	r.result.ContentSummary = extraction.Summary

	stageCtx = r.moveTo(ctx, domain.StateVerifying)
	results := c.verification.VerifyAll(stageCtx, extraction.Claims)

	// A claim that hung until the submission deadline must not cost its
	// siblings their saves.
	saveCtx := context.WithoutCancel(baseCtx)
	if c.saveTimeout > 0 {
		var cancel context.CancelFunc
		saveCtx, cancel = context.WithTimeout(saveCtx, c.saveTimeout)
		defer cancel()
	}
	stageCtx = r.moveTo(saveCtx, domain.StateSaving)
	outcomes := c.persistence.SaveAll(stageCtx, results, sub)

	c.index(stageCtx, sub, results, outcomes)

	stageCtx = r.moveTo(saveCtx, domain.StateReported)
	aggregate(r.result, extraction.Claims, results, outcomes)

	logger.With(logger.Fields{
		logger.FieldCount: r.result.TotalClaims,
		"saved":           r.result.SavedCount,
		"save_failed":     r.result.SaveFailedCount,
		"verify_failed":   r.result.VerifyFailedCount,
	}).Since(start).Info(stageCtx, "submission reported")
	return r.result
}

// Process validates and resolves in, then runs it.
func (c *Coordinator) Process(ctx context.Context, in *SubmissionInput) (*domain.PipelineResult, error) {
	sub, err := NewSubmission(ctx, c.resolver, in)
	if err != nil {
		return nil, err
	}
	return c.Run(ctx, sub), nil
}

// VerifyClaim runs a single claim through the verification stage without saving it.
func (c *Coordinator) VerifyClaim(ctx context.Context, claim domain.ExtractedClaim) domain.VerificationResult {
	if claim.ClaimID == "" {
		claim.ClaimID = uuid.NewString()
	}
	return c.verification.VerifyAll(ctx, []domain.ExtractedClaim{claim})[0]
}

func (c *Coordinator) index(ctx context.Context, sub *domain.Submission, results []domain.VerificationResult, outcomes []domain.SaveOutcome) {
	if c.indexer == nil {
		return
	}
	byClaim := make(map[string]domain.SaveOutcome, len(outcomes))
	for _, o := range outcomes {
		byClaim[o.ClaimID] = o
	}

	entries := make([]IndexEntry, 0, len(results))
	for _, res := range results {
		o, ok := byClaim[res.Claim.ClaimID]
		if !ok || !o.Success {
			continue
		}
		entries = append(entries, IndexEntry{
			RecordID:   o.RecordID,
			Claim:      res.Claim.Text,
			Category:   res.Claim.Category,
			Status:     res.Status,
			Confidence: res.Confidence,
			OriginURL:  sub.OriginURL,
		})
	}
	if len(entries) > 0 {
		c.indexer.Index(ctx, entries)
	}
}

// aggregate joins results and outcomes back to claims by claim ID and fills
// the counters.
func aggregate(out *domain.PipelineResult, claims []domain.ExtractedClaim, results []domain.VerificationResult, outcomes []domain.SaveOutcome) {
	resultByID := make(map[string]domain.VerificationResult, len(results))
	for _, r := range results {
		resultByID[r.Claim.ClaimID] = r
	}
	outcomeByID := make(map[string]domain.SaveOutcome, len(outcomes))
	for _, o := range outcomes {
		outcomeByID[o.ClaimID] = o
	}

	out.TotalClaims = len(claims)
	for _, st := range domain.AllStatuses {
		out.StatusCounts[st] = 0
	}

	for _, claim := range claims {
		res, ok := resultByID[claim.ClaimID]
		if !ok {
			res = domain.UnverifiableResult(claim, fmt.Errorf("no verification result"))
		}
		outcome, ok := outcomeByID[claim.ClaimID]
		if !ok {
			outcome = domain.SaveOutcome{ClaimID: claim.ClaimID, Reason: "save not attempted"}
		}

		out.StatusCounts[res.Status]++
		if res.Failed() {
			out.VerifyFailedCount++
		}
		if outcome.Success {
			out.SavedCount++
		} else {
			out.SaveFailedCount++
		}

		out.PerClaim = append(out.PerClaim, domain.ClaimReport{
			ClaimID:     claim.ClaimID,
			Claim:       claim.Text,
			Category:    claim.Category,
			Status:      res.Status,
			Confidence:  res.Confidence,
			Evidence:    res.Evidence,
			Sources:     res.Sources,
			VerifyError: res.Error,
			RecordID:    outcome.RecordID,
			SaveSuccess: outcome.Success,
			SaveReason:  outcome.Reason,
		})
	}

	out.VerifiedCount = out.StatusCounts[domain.StatusVerified]
	out.FalseCount = out.StatusCounts[domain.StatusFalse]
	out.DisputedCount = out.StatusCounts[domain.StatusDisputed]
	out.UnverifiableCount = out.StatusCounts[domain.StatusUnverifiable]

	out.Summary = fmt.Sprintf(
		"Checked %d claims: %d verified, %d false, %d partially true, %d misleading, %d disputed, %d unverifiable. Saved %d, failed to save %d.",
		out.TotalClaims, out.VerifiedCount, out.FalseCount,
		out.StatusCounts[domain.StatusPartiallyTrue], out.StatusCounts[domain.StatusMisleading],
		out.DisputedCount, out.UnverifiableCount, out.SavedCount, out.SaveFailedCount,
	)
}
