package repository

import (
	"context"
	"errors"

	"github.com/timmy/veris/internal/domain"
)

// ErrClaimNotFound is returned by lookups that match no record.
var ErrClaimNotFound = errors.New("claim not found")

// ClaimStore is a durable store of verified claims with upsert-by-natural-key
// semantics. Upsert must be safe to call twice with identical input.
type ClaimStore interface {
	Upsert(ctx context.Context, claim *domain.VerifiedClaim) (string, error)
	GetByID(ctx context.Context, id string) (*domain.VerifiedClaim, error)
	List(ctx context.Context, filter domain.ClaimFilter) ([]domain.VerifiedClaim, error)
	ExistsByOriginURL(ctx context.Context, originURL string) (bool, error)
	Ping(ctx context.Context) error
	Close() error
}

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultListLimit
	case limit > maxListLimit:
		return maxListLimit
	}
	return limit
}
