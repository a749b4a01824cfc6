package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/timmy/veris/internal/config"
	"github.com/timmy/veris/internal/domain"
)

func newTestRepo(t *testing.T) *ClaimRepository {
	t.Helper()
	db, err := InitDB(&config.DatabaseConfig{Driver: "sqlite", Path: sqliteMemory})
	if err != nil {
		t.Fatalf("InitDB() error = %v", err)
	}
	repo := NewClaimRepository(db)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func sampleClaim(confidence int) *domain.VerifiedClaim {
	return &domain.VerifiedClaim{
		OriginURL:   "https://news.example.com/article-1",
		ClaimText:   "The Eiffel Tower is 330 metres tall.",
		OriginLabel: "example news",
		Category:    domain.CategoryGeneral,
		Status:      domain.StatusVerified,
		Confidence:  confidence,
		Evidence:    "Official site lists 330 m.",
		Sources:     domain.StringArray{"https://www.toureiffel.paris"},
		RawText:     "Article body",
	}
}

func TestClaimRepositoryUpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	firstID, err := repo.Upsert(ctx, sampleClaim(70))
	if err != nil {
		t.Fatalf("first Upsert() error = %v", err)
	}
	first, err := repo.GetByID(ctx, firstID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}

	time.Sleep(10 * time.Millisecond)

	second := sampleClaim(95)
	second.Status = domain.StatusPartiallyTrue
	secondID, err := repo.Upsert(ctx, second)
	if err != nil {
		t.Fatalf("second Upsert() error = %v", err)
	}
	if firstID != secondID {
		t.Fatalf("record IDs differ: %s vs %s", firstID, secondID)
	}

	claims, err := repo.List(ctx, domain.ClaimFilter{OriginURL: "https://news.example.com/article-1"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(claims) != 1 {
		t.Fatalf("len(claims) = %d, want 1", len(claims))
	}

	got := claims[0]
	if got.Confidence != 95 || got.Status != domain.StatusPartiallyTrue {
		t.Errorf("got confidence=%d status=%s, want 95/partially_true", got.Confidence, got.Status)
	}
	if !got.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("created_at changed: %v -> %v", first.CreatedAt, got.CreatedAt)
	}
	if !got.UpdatedAt.After(first.UpdatedAt) {
		t.Errorf("updated_at not advanced: %v -> %v", first.UpdatedAt, got.UpdatedAt)
	}
	if len(got.Sources) != 1 || got.Sources[0] != "https://www.toureiffel.paris" {
		t.Errorf("sources = %v", got.Sources)
	}
}

func TestClaimRepositoryListFilters(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	for i, status := range []domain.VerificationStatus{domain.StatusVerified, domain.StatusFalse, domain.StatusFalse} {
		c := sampleClaim(50)
		c.ClaimText = []string{"a", "b", "c"}[i]
		c.Status = status
		if _, err := repo.Upsert(ctx, c); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
	}

	falseClaims, err := repo.List(ctx, domain.ClaimFilter{Status: domain.StatusFalse})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(falseClaims) != 2 {
		t.Errorf("len(false) = %d, want 2", len(falseClaims))
	}

	page, err := repo.List(ctx, domain.ClaimFilter{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(page) != 1 {
		t.Errorf("len(page) = %d, want 1", len(page))
	}
}

func TestClaimRepositoryLookups(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	if _, err := repo.GetByID(ctx, "missing"); !errors.Is(err, ErrClaimNotFound) {
		t.Fatalf("GetByID(missing) error = %v, want ErrClaimNotFound", err)
	}

	exists, err := repo.ExistsByOriginURL(ctx, "https://news.example.com/article-1")
	if err != nil || exists {
		t.Fatalf("ExistsByOriginURL before save = %v, %v", exists, err)
	}
	if _, err := repo.Upsert(ctx, sampleClaim(80)); err != nil {
		t.Fatal(err)
	}
	exists, err = repo.ExistsByOriginURL(ctx, "https://news.example.com/article-1")
	if err != nil || !exists {
		t.Fatalf("ExistsByOriginURL after save = %v, %v", exists, err)
	}
}

func TestClaimRepositoryPing(t *testing.T) {
	db, err := InitDB(&config.DatabaseConfig{Driver: "sqlite", Path: sqliteMemory})
	if err != nil {
		t.Fatalf("InitDB() error = %v", err)
	}
	repo := NewClaimRepository(db)

	if err := repo.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() on open database error = %v", err)
	}
	if err := repo.Close(); err != nil {
		t.Fatal(err)
	}
	if err := repo.Ping(context.Background()); err == nil {
		t.Error("Ping() after Close() error = nil, want error")
	}
}

func TestClampLimit(t *testing.T) {
	tests := map[int]int{0: defaultListLimit, -3: defaultListLimit, 10: 10, 10000: maxListLimit}
	for in, want := range tests {
		if got := clampLimit(in); got != want {
			t.Errorf("clampLimit(%d) = %d, want %d", in, got, want)
		}
	}
}
