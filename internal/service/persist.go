package service

import (
	"context"
	"database/sql/driver"
	"errors"
	"io"
	"net"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"github.com/timmy/veris/internal/domain"
	"github.com/timmy/veris/internal/logger"
)

// ClaimUpserter is the write side of a claim store.
type ClaimUpserter interface {
	Upsert(ctx context.Context, claim *domain.VerifiedClaim) (string, error)
}

// PersistenceStage saves verification results with upsert-by-natural-key and
// at most one retry per claim on transient store errors.
type PersistenceStage struct {
	store       ClaimUpserter
	workers     int
	callTimeout time.Duration
	retries     int
	backoff     time.Duration
}

// PersistenceConfig holds persistence settings.
type PersistenceConfig struct {
	Workers     int
	CallTimeout time.Duration
	Retries     int // clamped to 0 or 1
	Backoff     time.Duration
}

// NewPersistenceStage creates a PersistenceStage.
func NewPersistenceStage(store ClaimUpserter, cfg *PersistenceConfig) *PersistenceStage {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 5
	}
	retries := cfg.Retries
	if retries > 1 {
		retries = 1
	}
	if retries < 0 {
		retries = 0
	}
	return &PersistenceStage{
		store:       store,
		workers:     workers,
		callTimeout: cfg.CallTimeout,
		retries:     retries,
		backoff:     cfg.Backoff,
	}
}

// SaveAll writes one record per result and returns one outcome per result, in
// input order. A failed save is recorded on its outcome and never stops the
// remaining saves.
// Parameters:
//   - ctx: submission context.
//   - results: verification results, degraded ones included.
//   - sub: originating submission, used for field routing.
// Returns:
//   - []domain.SaveOutcome: len(results) outcomes.
func (s *PersistenceStage) SaveAll(ctx context.Context, results []domain.VerificationResult, sub *domain.Submission) []domain.SaveOutcome {
	outcomes := make([]domain.SaveOutcome, len(results))

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i := range results {
		result := results[i]
		g.Go(func() error {
			outcomes[i] = s.saveOne(logger.SetClaimID(ctx, result.Claim.ClaimID), BuildRecord(&result, sub), result.Claim.ClaimID)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

func (s *PersistenceStage) saveOne(ctx context.Context, rec *domain.VerifiedClaim, claimID string) domain.SaveOutcome {
	outcome := domain.SaveOutcome{ClaimID: claimID}

	for attempt := 1; attempt <= 1+s.retries; attempt++ {
		if err := ctx.Err(); err != nil {
			outcome.Reason = "save cancelled: " + err.Error()
			return outcome
		}
		outcome.Attempts = attempt

		id, err := s.upsert(ctx, rec)
		if err == nil {
			outcome.Success = true
			outcome.RecordID = id
			return outcome
		}

		outcome.Reason = err.Error()
		transient := IsTransient(err)
		logger.With(logger.Fields{
			logger.FieldAttempt: attempt,
			"transient":         transient,
		}).Warn(ctx, "claim save failed: %v", err)

		if !transient {
			return outcome
		}
		if attempt <= s.retries && s.backoff > 0 {
			select {
			case <-time.After(s.backoff):
			case <-ctx.Done():
			}
		}
	}
	return outcome
}

func (s *PersistenceStage) upsert(ctx context.Context, rec *domain.VerifiedClaim) (string, error) {
	if s.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.callTimeout)
		defer cancel()
	}
	// Each attempt writes a fresh copy so a failed attempt cannot leave
	// half-filled timestamps behind.
	attempt := *rec
	return s.store.Upsert(ctx, &attempt)
}

// BuildRecord maps a result and its submission onto the durable record. Text
// submissions fill RawText. Media submissions fill Images or Videos with a
// resolvable URL: the public URL for completed uploads, the original URL for
// URL submissions. Artifact IDs and placeholder URLs are never written.
func BuildRecord(result *domain.VerificationResult, sub *domain.Submission) *domain.VerifiedClaim {
	rec := &domain.VerifiedClaim{
		OriginURL:   sub.OriginURL,
		ClaimText:   result.Claim.Text,
		OriginLabel: sub.OriginLabel,
		Category:    result.Claim.Category,
		Context:     result.Claim.Context,
		Status:      result.Status,
		Confidence:  result.Confidence,
		Evidence:    result.Evidence,
		Sources:     domain.StringArray(append([]string{}, result.Sources...)),
		Images:      domain.StringArray{},
		Videos:      domain.StringArray{},
	}

	meta := datatypes.JSONMap{}
	for k, v := range sub.Metadata {
		meta[k] = v
	}
	if sub.ID != "" {
		meta["submission_id"] = sub.ID
	}
	if result.Claim.ClaimType != "" {
		meta["claim_type"] = result.Claim.ClaimType
	}
	if result.Failed() {
		meta["verify_error"] = result.Error
	}

	switch sub.Kind {
	case domain.KindText:
		rec.RawText = sub.Text
	case domain.KindImage, domain.KindVideo:
		mediaURL := sub.URL
		if sub.Artifact != nil {
			mediaURL = ""
			if sub.Artifact.Uploaded {
				mediaURL = sub.Artifact.PublicURL
			} else {
				meta["media_unavailable"] = true
			}
		}
		if mediaURL != "" {
			if sub.Kind == domain.KindVideo {
				rec.Videos = domain.StringArray{mediaURL}
			} else {
				rec.Images = domain.StringArray{mediaURL}
			}
		}
	}

	rec.Metadata = meta
	return rec
}

var transientPgCodes = map[string]bool{
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
	"53300": true, // too_many_connections
	"57P01": true, // admin_shutdown
	"57P03": true, // cannot_connect_now
}

// IsTransient reports whether a store error is worth one retry: timeouts,
// dropped or refused connections, and retryable database states. Caller
// cancellation is not transient.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return transientPgCodes[pgErr.Code] || strings.HasPrefix(pgErr.Code, "08")
	}
	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return true
	}

	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "sqlite_busy")
}
