package domain

import (
	"errors"
	"testing"
)

func TestSubmissionValidate(t *testing.T) {
	ref := &ArtifactRef{ArtifactID: "abc.png", MimeType: "image/png"}

	tests := []struct {
		name string
		sub  Submission
		want error
	}{
		{"text ok", Submission{Kind: KindText, Text: "The sky is green."}, nil},
		{"image upload ok", Submission{Kind: KindImage, Artifact: ref}, nil},
		{"video url ok", Submission{Kind: KindVideo, URL: "https://example.com/v.mp4"}, nil},
		{"no payload", Submission{Kind: KindText}, ErrNoPayload},
		{"text and artifact", Submission{Kind: KindText, Text: "x", Artifact: ref}, ErrMixedContent},
		{"artifact and url", Submission{Kind: KindImage, Artifact: ref, URL: "https://example.com/a.png"}, ErrMixedContent},
		{"text kind with url", Submission{Kind: KindText, URL: "https://example.com"}, ErrInvalidKind},
		{"image kind with text", Submission{Kind: KindImage, Text: "x"}, ErrInvalidKind},
		{"unknown kind", Submission{Kind: "audio", URL: "https://example.com/a.mp3"}, ErrInvalidKind},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sub.Validate()
			if tt.want == nil {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParseStatus(t *testing.T) {
	tests := map[string]VerificationStatus{
		"verified":       StatusVerified,
		" FALSE ":        StatusFalse,
		"partially true": StatusPartiallyTrue,
		"partially-true": StatusPartiallyTrue,
		"unverified":     StatusUnverifiable,
		"disputed":       StatusDisputed,
	}
	for in, want := range tests {
		got, ok := ParseStatus(in)
		if !ok || got != want {
			t.Errorf("ParseStatus(%q) = %q, %v; want %q", in, got, ok, want)
		}
	}
	if _, ok := ParseStatus("probably"); ok {
		t.Error("ParseStatus accepted an unknown status")
	}
}

func TestParseCategory(t *testing.T) {
	if got := ParseCategory(" Health "); got != CategoryHealth {
		t.Errorf("ParseCategory(Health) = %q", got)
	}
	if got := ParseCategory("sports"); got != CategoryGeneral {
		t.Errorf("ParseCategory(sports) = %q, want general", got)
	}
}

func TestClaimRecordIDStable(t *testing.T) {
	a := ClaimRecordID("https://example.com/a", "Water boils at 100C at sea level.")
	b := ClaimRecordID("https://example.com/a", "Water boils at 100C at sea level.")
	c := ClaimRecordID("https://example.com/b", "Water boils at 100C at sea level.")

	if a != b {
		t.Fatalf("same natural key produced %q and %q", a, b)
	}
	if a == c {
		t.Fatal("different origin produced the same id")
	}
	if len(a) != 32 {
		t.Fatalf("len(id) = %d, want 32", len(a))
	}
}

func TestStateTransitions(t *testing.T) {
	legal := [][2]State{
		{StateReceived, StateExtracting},
		{StateExtracting, StateNoClaims},
		{StateExtracting, StateVerifying},
		{StateVerifying, StateSaving},
		{StateSaving, StateReported},
	}
	for _, tr := range legal {
		if !tr[0].CanTransition(tr[1]) {
			t.Errorf("%s -> %s should be legal", tr[0], tr[1])
		}
	}

	illegal := [][2]State{
		{StateReceived, StateVerifying},
		{StateVerifying, StateReported},
		{StateNoClaims, StateVerifying},
		{StateReported, StateExtracting},
	}
	for _, tr := range illegal {
		if tr[0].CanTransition(tr[1]) {
			t.Errorf("%s -> %s should be illegal", tr[0], tr[1])
		}
	}

	if !StateNoClaims.Terminal() || !StateReported.Terminal() || StateSaving.Terminal() {
		t.Error("unexpected Terminal() result")
	}
}
