package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/timmy/veris/internal/domain"
)

func TestValidateVerdict(t *testing.T) {
	tests := []struct {
		name        string
		raw         rawVerdict
		extra       []string
		wantErr     bool
		wantStatus  domain.VerificationStatus
		wantSources int
	}{
		{
			name:        "valid",
			raw:         rawVerdict{Status: "Verified", Confidence: 90, Sources: []string{"https://a.test"}},
			wantStatus:  domain.StatusVerified,
			wantSources: 1,
		},
		{
			name:        "legacy status field",
			raw:         rawVerdict{LegacyStatus: "partially true", Confidence: 60, Sources: []string{"https://a.test"}},
			wantStatus:  domain.StatusPartiallyTrue,
			wantSources: 1,
		},
		{
			name:       "unverifiable without sources",
			raw:        rawVerdict{Status: "unverified"},
			wantStatus: domain.StatusUnverifiable,
		},
		{
			name:        "grounding sources merged",
			raw:         rawVerdict{Status: "false", Confidence: 70, Sources: []string{"https://a.test", "not a url"}},
			extra:       []string{"https://a.test", "https://b.test"},
			wantStatus:  domain.StatusFalse,
			wantSources: 2,
		},
		{
			name:        "disputed with both sides",
			raw:         rawVerdict{Status: "disputed", Confidence: 50, Evidence: "Agency A says yes, agency B says no.", Sources: []string{"https://a.test", "https://b.test"}},
			wantStatus:  domain.StatusDisputed,
			wantSources: 2,
		},
		{
			name:        "disputed counts grounding sources",
			raw:         rawVerdict{Status: "disputed", Confidence: 50, Evidence: "Reports conflict.", Sources: []string{"https://a.test"}},
			extra:       []string{"https://b.test"},
			wantStatus:  domain.StatusDisputed,
			wantSources: 2,
		},
		{name: "disputed with one source", raw: rawVerdict{Status: "disputed", Confidence: 50, Evidence: "Reports conflict.", Sources: []string{"https://a.test"}}, wantErr: true},
		{name: "disputed with blank evidence", raw: rawVerdict{Status: "disputed", Confidence: 50, Evidence: "  ", Sources: []string{"https://a.test", "https://b.test"}}, wantErr: true},
		{name: "unknown status", raw: rawVerdict{Status: "probably"}, wantErr: true},
		{name: "confidence out of range", raw: rawVerdict{Status: "verified", Confidence: 140, Sources: []string{"https://a.test"}}, wantErr: true},
		{name: "verified without sources", raw: rawVerdict{Status: "verified", Confidence: 80}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := validateVerdict(&tt.raw, tt.extra)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrMalformedVerdict) {
					t.Errorf("err = %v, want ErrMalformedVerdict", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("validateVerdict: %v", err)
			}
			if v.Status != tt.wantStatus || len(v.Sources) != tt.wantSources {
				t.Errorf("verdict = %+v", v)
			}
		})
	}
}

func TestVerificationStage_VerifyAll(t *testing.T) {
	claims := []domain.ExtractedClaim{
		{ClaimID: "1", Text: "ok one"},
		{ClaimID: "2", Text: "bad"},
		{ClaimID: "3", Text: "ok two"},
	}
	ver := &fakeVerifier{fail: map[string]bool{"bad": true}}
	stage := NewVerificationStage(ver, 2, 0)

	results := stage.VerifyAll(context.Background(), claims)

	if len(results) != len(claims) {
		t.Fatalf("results = %d, want %d", len(results), len(claims))
	}
	for i, r := range results {
		if r.Claim.ClaimID != claims[i].ClaimID {
			t.Errorf("result %d bound to claim %s", i, r.Claim.ClaimID)
		}
	}
	if !results[1].Failed() || results[1].Status != domain.StatusUnverifiable || results[1].Confidence != 0 {
		t.Errorf("failed result = %+v", results[1])
	}
	if results[0].Failed() || results[2].Failed() {
		t.Error("sibling results degraded")
	}
}

func TestVerificationStage_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ver := &fakeVerifier{}
	stage := NewVerificationStage(ver, 2, 0)

	results := stage.VerifyAll(ctx, []domain.ExtractedClaim{{ClaimID: "1", Text: "a"}, {ClaimID: "2", Text: "b"}})

	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	for _, r := range results {
		if !r.Failed() {
			t.Errorf("result = %+v, want degraded", r)
		}
	}
	if ver.calls != 0 {
		t.Errorf("verifier calls = %d, want 0", ver.calls)
	}
}

func TestCachingVerifier(t *testing.T) {
	next := &fakeVerifier{fail: map[string]bool{"flaky": true}}
	v := NewCachingVerifier(next, time.Minute)

	req := &VerifyRequest{Claim: "Water boils at 100C", Category: domain.CategoryScience}
	first, err := v.Verify(context.Background(), req)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	first.Sources[0] = "mutated"

	second, err := v.Verify(context.Background(), &VerifyRequest{Claim: "  water boils at 100c ", Category: domain.CategoryScience, Context: "other"})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if next.calls != 1 {
		t.Errorf("backend calls = %d, want 1", next.calls)
	}
	if second.Sources[0] != "https://example.org/source" {
		t.Errorf("cached sources = %v", second.Sources)
	}

	if _, err := v.Verify(context.Background(), &VerifyRequest{Claim: "Water boils at 100C", Category: domain.CategoryHealth}); err != nil {
		t.Fatal(err)
	}
	if next.calls != 2 {
		t.Errorf("backend calls = %d, want 2 for a new category", next.calls)
	}

	for i := 0; i < 2; i++ {
		if _, err := v.Verify(context.Background(), &VerifyRequest{Claim: "flaky"}); err == nil {
			t.Fatal("expected error")
		}
	}
	if next.calls != 4 {
		t.Errorf("backend calls = %d, errors must not be cached", next.calls)
	}

	if NewCachingVerifier(next, 0) != Verifier(next) {
		t.Error("zero ttl should return the wrapped verifier")
	}
}
