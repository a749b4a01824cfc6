package service

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/timmy/veris/internal/domain"
)

func newTestCoordinator(ext Extractor, ver Verifier, store ClaimUpserter, idx ClaimIndexer) *Coordinator {
	return NewCoordinator(
		NewExtractionStage(ext, 0),
		NewVerificationStage(ver, 3, 0),
		NewPersistenceStage(store, &PersistenceConfig{Workers: 3, Retries: 1}),
		nil,
		idx,
		&CoordinatorConfig{},
	)
}

func textSubmission(text string) *domain.Submission {
	return &domain.Submission{
		OriginLabel: "blog",
		OriginURL:   "https://blog.example.com/post",
		Kind:        domain.KindText,
		Text:        text,
	}
}

func TestCoordinator_NoClaims(t *testing.T) {
	tests := []struct {
		name    string
		ext     *fakeExtractor
		wantErr bool
	}{
		{name: "empty extraction", ext: &fakeExtractor{}},
		{name: "only opinions", ext: &fakeExtractor{claims: []RawClaim{{Claim: "I think cats are better", ClaimType: "opinion"}}}},
		{name: "extractor error", ext: &fakeExtractor{err: errors.New("model overloaded")}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ver := &fakeVerifier{}
			store := &fakeUpserter{}
			c := newTestCoordinator(tt.ext, ver, store, nil)

			res := c.Run(context.Background(), textSubmission("nothing to check here"))

			if res.State != domain.StateNoClaims {
				t.Errorf("State = %s, want %s", res.State, domain.StateNoClaims)
			}
			wantTrace := []domain.State{domain.StateReceived, domain.StateExtracting, domain.StateNoClaims}
			if !reflect.DeepEqual(res.Trace, wantTrace) {
				t.Errorf("Trace = %v, want %v", res.Trace, wantTrace)
			}
			if res.Summary != domain.NoClaimsMessage {
				t.Errorf("Summary = %q", res.Summary)
			}
			if ver.calls != 0 || store.calls != 0 {
				t.Errorf("verifier calls = %d, store calls = %d, want 0", ver.calls, store.calls)
			}
			if (res.ExtractionError != "") != tt.wantErr {
				t.Errorf("ExtractionError = %q, wantErr %v", res.ExtractionError, tt.wantErr)
			}
			if res.SubmissionID == "" {
				t.Error("SubmissionID not assigned")
			}
		})
	}
}

func TestCoordinator_FullRun(t *testing.T) {
	ext := &fakeExtractor{claims: rawClaims("claim 1", "claim 2")}
	idx := &fakeIndexer{}
	c := newTestCoordinator(ext, &fakeVerifier{}, &fakeUpserter{}, idx)

	res := c.Run(context.Background(), textSubmission("two claims"))

	wantTrace := []domain.State{
		domain.StateReceived, domain.StateExtracting, domain.StateVerifying,
		domain.StateSaving, domain.StateReported,
	}
	if !reflect.DeepEqual(res.Trace, wantTrace) {
		t.Errorf("Trace = %v, want %v", res.Trace, wantTrace)
	}
	if res.TotalClaims != 2 || res.VerifiedCount != 2 || res.SavedCount != 2 {
		t.Errorf("counts = total %d verified %d saved %d", res.TotalClaims, res.VerifiedCount, res.SavedCount)
	}
	if len(idx.entries) != 2 {
		t.Errorf("indexed %d entries, want 2", len(idx.entries))
	}
	for _, e := range idx.entries {
		if e.OriginURL != "https://blog.example.com/post" {
			t.Errorf("indexed origin = %q", e.OriginURL)
		}
	}
}

func TestCoordinator_PartialFailureIsolation(t *testing.T) {
	texts := []string{"claim 1", "claim 2", "claim 3", "claim 4", "claim 5"}

	t.Run("verification failure", func(t *testing.T) {
		store := &fakeUpserter{}
		c := newTestCoordinator(
			&fakeExtractor{claims: rawClaims(texts...)},
			&fakeVerifier{fail: map[string]bool{"claim 3": true}},
			store, nil,
		)

		res := c.Run(context.Background(), textSubmission("five claims"))

		if res.TotalClaims != 5 || len(res.PerClaim) != 5 {
			t.Fatalf("total = %d, per claim = %d, want 5", res.TotalClaims, len(res.PerClaim))
		}
		if got := claimTexts(res.PerClaim); got != "claim 1,claim 2,claim 3,claim 4,claim 5" {
			t.Errorf("order = %s", got)
		}
		if res.VerifyFailedCount != 1 || res.VerifiedCount != 4 || res.UnverifiableCount != 1 {
			t.Errorf("verify failed %d verified %d unverifiable %d", res.VerifyFailedCount, res.VerifiedCount, res.UnverifiableCount)
		}
		third := res.PerClaim[2]
		if third.Status != domain.StatusUnverifiable || third.Confidence != 0 || third.VerifyError == "" {
			t.Errorf("claim 3 report = %+v", third)
		}
		// Degraded verdicts are still saved.
		if res.SavedCount != 5 || store.calls != 5 {
			t.Errorf("saved = %d, store calls = %d, want 5", res.SavedCount, store.calls)
		}
	})

	t.Run("save failure", func(t *testing.T) {
		store := &fakeUpserter{fail: map[string]error{"claim 3": errors.New("check constraint violated")}}
		idx := &fakeIndexer{}
		c := newTestCoordinator(&fakeExtractor{claims: rawClaims(texts...)}, &fakeVerifier{}, store, idx)

		res := c.Run(context.Background(), textSubmission("five claims"))

		if res.SavedCount != 4 || res.SaveFailedCount != 1 {
			t.Errorf("saved = %d, failed = %d", res.SavedCount, res.SaveFailedCount)
		}
		third := res.PerClaim[2]
		if third.SaveSuccess || third.SaveReason == "" || third.Status != domain.StatusVerified {
			t.Errorf("claim 3 report = %+v", third)
		}
		for i, r := range res.PerClaim {
			if i != 2 && (!r.SaveSuccess || r.RecordID == "") {
				t.Errorf("claim %d report = %+v", i+1, r)
			}
		}
		if len(idx.entries) != 4 {
			t.Errorf("indexed %d entries, want 4", len(idx.entries))
		}
	})
}

func TestCoordinator_CountInvariance(t *testing.T) {
	texts := []string{"a is 1", "b is 2", "c is 3", "d is 4"}
	fail := map[string]bool{"a is 1": true, "b is 2": true, "c is 3": true}
	c := newTestCoordinator(&fakeExtractor{claims: rawClaims(texts...)}, &fakeVerifier{fail: fail}, &fakeUpserter{}, nil)

	res := c.Run(context.Background(), textSubmission("four claims"))

	if res.TotalClaims != len(texts) {
		t.Fatalf("TotalClaims = %d, want %d", res.TotalClaims, len(texts))
	}
	sum := 0
	for _, n := range res.StatusCounts {
		sum += n
	}
	if sum != len(texts) {
		t.Errorf("status counts sum = %d, want %d", sum, len(texts))
	}
	if res.SavedCount+res.SaveFailedCount != len(texts) {
		t.Errorf("saved %d + failed %d != %d", res.SavedCount, res.SaveFailedCount, len(texts))
	}
	if res.VerifyFailedCount != 3 {
		t.Errorf("VerifyFailedCount = %d, want 3", res.VerifyFailedCount)
	}
	for _, st := range domain.AllStatuses {
		if _, ok := res.StatusCounts[st]; !ok {
			t.Errorf("status %s missing from counts", st)
		}
	}
}

func TestCoordinator_SubmissionTimeout(t *testing.T) {
	store := &fakeUpserter{}
	c := NewCoordinator(
		NewExtractionStage(&fakeExtractor{claims: rawClaims("fast one", "slow", "fast two")}, 0),
		NewVerificationStage(&fakeVerifier{block: map[string]bool{"slow": true}}, 3, 0),
		NewPersistenceStage(store, &PersistenceConfig{Workers: 3, Retries: 1}),
		nil,
		nil,
		&CoordinatorConfig{SubmissionTimeout: 100 * time.Millisecond, SaveTimeout: 5 * time.Second},
	)

	done := make(chan *domain.PipelineResult, 1)
	go func() {
		done <- c.Run(context.Background(), textSubmission("three claims"))
	}()

	var res *domain.PipelineResult
	select {
	case res = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after the submission deadline")
	}

	if res.State != domain.StateReported || res.TotalClaims != 3 {
		t.Fatalf("state = %s, total = %d", res.State, res.TotalClaims)
	}
	if res.VerifiedCount != 2 || res.VerifyFailedCount != 1 {
		t.Errorf("verified = %d, verify failed = %d", res.VerifiedCount, res.VerifyFailedCount)
	}
	slow := res.PerClaim[1]
	if slow.Status != domain.StatusUnverifiable || slow.VerifyError == "" {
		t.Errorf("slow claim report = %+v", slow)
	}
	if res.SavedCount != 3 || store.calls != 3 {
		t.Errorf("saved = %d, store calls = %d, want 3", res.SavedCount, store.calls)
	}
	for _, r := range res.PerClaim {
		if !r.SaveSuccess {
			t.Errorf("claim %q not saved: %s", r.Claim, r.SaveReason)
		}
	}
}

func TestCoordinator_Process(t *testing.T) {
	c := newTestCoordinator(&fakeExtractor{claims: rawClaims("claim 1")}, &fakeVerifier{}, &fakeUpserter{}, nil)

	if _, err := c.Process(context.Background(), &SubmissionInput{Text: "hello", URL: "https://x.test/a.png"}); !errors.Is(err, domain.ErrMixedContent) {
		t.Errorf("err = %v, want ErrMixedContent", err)
	}

	res, err := c.Process(context.Background(), &SubmissionInput{Text: "water boils at 100C"})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.State != domain.StateReported {
		t.Errorf("State = %s", res.State)
	}
}

func TestCoordinator_VerifyClaim(t *testing.T) {
	c := newTestCoordinator(&fakeExtractor{}, &fakeVerifier{fail: map[string]bool{"broken": true}}, &fakeUpserter{}, nil)

	got := c.VerifyClaim(context.Background(), domain.ExtractedClaim{Text: "fine"})
	if got.Status != domain.StatusVerified || got.Claim.ClaimID == "" {
		t.Errorf("result = %+v", got)
	}

	got = c.VerifyClaim(context.Background(), domain.ExtractedClaim{Text: "broken"})
	if !got.Failed() || got.Status != domain.StatusUnverifiable {
		t.Errorf("result = %+v", got)
	}
}
