package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/timmy/veris/internal/domain"
)

type fakeExtractor struct {
	claims []RawClaim
	err    error

	mu   sync.Mutex
	reqs []*ExtractRequest
}

func (f *fakeExtractor) Extract(ctx context.Context, req *ExtractRequest) (*RawExtraction, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &RawExtraction{Claims: f.claims, Summary: "summary"}, nil
}

// fakeVerifier fails every claim whose text is in fail and blocks until the
// context ends for every claim in block.
type fakeVerifier struct {
	fail  map[string]bool
	block map[string]bool

	mu    sync.Mutex
	calls int
}

func (f *fakeVerifier) Verify(ctx context.Context, req *VerifyRequest) (*domain.Verdict, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.block[req.Claim] {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.fail[req.Claim] {
		return nil, errors.New("search backend unavailable")
	}
	return &domain.Verdict{
		Status:     domain.StatusVerified,
		Confidence: 90,
		Evidence:   "matches published data",
		Sources:    []string{"https://example.org/source"},
	}, nil
}

// fakeUpserter replays errs in order, then fails every claim in fail, then succeeds.
type fakeUpserter struct {
	errs []error
	fail map[string]error

	mu      sync.Mutex
	calls   int
	records []*domain.VerifiedClaim
}

func (f *fakeUpserter) Upsert(ctx context.Context, claim *domain.VerifiedClaim) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return "", err
		}
	}
	if err := f.fail[claim.ClaimText]; err != nil {
		return "", err
	}
	f.records = append(f.records, claim)
	return "rec-" + claim.ClaimText, nil
}

type fakeIndexer struct {
	entries []IndexEntry
}

func (f *fakeIndexer) Index(ctx context.Context, entries []IndexEntry) {
	f.entries = append(f.entries, entries...)
}

type fakeObjectStorage struct {
	err error

	mu      sync.Mutex
	objects map[string][]byte
	uploads int
}

func (f *fakeObjectStorage) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	if f.err != nil {
		return f.err
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	f.objects[key] = data
	f.uploads++
	return nil
}

func (f *fakeObjectStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeObjectStorage) GetURL(key string) string {
	return "https://cdn.example.com/" + key
}

func (f *fakeObjectStorage) Exists(ctx context.Context, key string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok, nil
}

func (f *fakeObjectStorage) uploadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uploads
}

func rawClaims(texts ...string) []RawClaim {
	out := make([]RawClaim, len(texts))
	for i, text := range texts {
		out[i] = RawClaim{Claim: text, Category: "science", ClaimType: "statistic"}
	}
	return out
}

func claimTexts(reports []domain.ClaimReport) string {
	parts := make([]string, len(reports))
	for i, r := range reports {
		parts[i] = r.Claim
	}
	return strings.Join(parts, ",")
}
