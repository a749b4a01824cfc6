package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/timmy/veris/internal/domain"
)

// verificationColumns are rewritten when a claim is saved again under the same
// natural key. created_at is deliberately absent.
var verificationColumns = []string{"status", "confidence", "evidence", "sources", "updated_at"}

// ClaimRepository stores verified claims in PostgreSQL or SQLite.
type ClaimRepository struct {
	db *gorm.DB
}

var _ ClaimStore = (*ClaimRepository)(nil)

// NewClaimRepository creates a ClaimRepository.
// Parameters:
//   - db: GORM database handle.
// Returns:
//   - *ClaimRepository: repository bound to db.
func NewClaimRepository(db *gorm.DB) *ClaimRepository {
	return &ClaimRepository{db: db}
}

// Upsert inserts claim or, on a (origin_url, claim_text) conflict, updates the
// verification fields and updated_at. The record ID is derived from the
// natural key, so repeated saves always address the same row.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - claim: record to write; ID and timestamps are filled in.
// Returns:
//   - string: record ID.
//   - error: non-nil if the statement fails.
func (r *ClaimRepository) Upsert(ctx context.Context, claim *domain.VerifiedClaim) (string, error) {
	claim.ID = domain.ClaimRecordID(claim.OriginURL, claim.ClaimText)
	now := time.Now().UTC()
	if claim.CreatedAt.IsZero() {
		claim.CreatedAt = now
	}
	claim.UpdatedAt = now

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "origin_url"}, {Name: "claim_text"}},
		DoUpdates: clause.AssignmentColumns(verificationColumns),
	}).Create(claim).Error
	if err != nil {
		return "", fmt.Errorf("failed to upsert claim %s: %w", claim.ID, err)
	}
	return claim.ID, nil
}

// GetByID retrieves a claim by record ID.
func (r *ClaimRepository) GetByID(ctx context.Context, id string) (*domain.VerifiedClaim, error) {
	var claim domain.VerifiedClaim
	if err := r.db.WithContext(ctx).First(&claim, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClaimNotFound
		}
		return nil, err
	}
	return &claim, nil
}

// List returns claims newest first.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - filter: optional status, category and origin filters with pagination.
// Returns:
//   - []domain.VerifiedClaim: matching records.
//   - error: non-nil if the query fails.
func (r *ClaimRepository) List(ctx context.Context, filter domain.ClaimFilter) ([]domain.VerifiedClaim, error) {
	query := r.db.WithContext(ctx).Model(&domain.VerifiedClaim{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.OriginURL != "" {
		query = query.Where("origin_url = ?", filter.OriginURL)
	}

	var claims []domain.VerifiedClaim
	if err := query.
		Order("updated_at DESC").
		Limit(clampLimit(filter.Limit)).
		Offset(filter.Offset).
		Find(&claims).Error; err != nil {
		return nil, err
	}
	return claims, nil
}

// ExistsByOriginURL reports whether any claim was saved for originURL.
func (r *ClaimRepository) ExistsByOriginURL(ctx context.Context, originURL string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.VerifiedClaim{}).
		Where("origin_url = ?", originURL).
		Limit(1).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Ping checks that the database is reachable.
func (r *ClaimRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the underlying connection pool.
func (r *ClaimRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
