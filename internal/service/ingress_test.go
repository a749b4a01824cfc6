package service

import (
	"context"
	"errors"
	"testing"

	"github.com/timmy/veris/internal/domain"
)

func TestNewSubmission(t *testing.T) {
	png := &MediaUpload{Name: "a.png", Data: []byte("png bytes"), MimeType: "image/png"}

	tests := []struct {
		name        string
		in          *SubmissionInput
		wantErr     error
		wantKind    domain.ContentKind
		wantOrigin  string
		wantLabel   string
		wantUploads int
	}{
		{
			name:    "no payload",
			in:      &SubmissionInput{Text: "   "},
			wantErr: domain.ErrNoPayload,
		},
		{
			name:    "text and media",
			in:      &SubmissionInput{Text: "hello", Media: png},
			wantErr: domain.ErrMixedContent,
		},
		{
			name:    "url and media",
			in:      &SubmissionInput{URL: "https://x.test/a.png", Media: png},
			wantErr: domain.ErrMixedContent,
		},
		{
			name:    "unknown kind",
			in:      &SubmissionInput{Kind: "audio", URL: "https://x.test/a.mp3"},
			wantErr: domain.ErrInvalidKind,
		},
		{
			name:    "image kind with text",
			in:      &SubmissionInput{Kind: "image", Text: "hello"},
			wantErr: domain.ErrInvalidKind,
		},
		{
			name:       "text defaults origin",
			in:         &SubmissionInput{Text: "  Water boils at 100C  "},
			wantKind:   domain.KindText,
			wantOrigin: domain.OriginTextInput,
			wantLabel:  domain.OriginTextInput,
		},
		{
			name:       "video url inferred",
			in:         &SubmissionInput{URL: "https://cdn.x.test/clip.MP4"},
			wantKind:   domain.KindVideo,
			wantOrigin: "https://cdn.x.test/clip.MP4",
			wantLabel:  "cdn.x.test",
		},
		{
			name:        "upload keeps caller origin",
			in:          &SubmissionInput{Media: png, OriginURL: "https://forum.test/t/1", OriginLabel: "forum"},
			wantKind:    domain.KindImage,
			wantOrigin:  "https://forum.test/t/1",
			wantLabel:   "forum",
			wantUploads: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeObjectStorage{}
			resolver := NewArtifactResolver(store, &ArtifactConfig{})

			sub, err := NewSubmission(context.Background(), resolver, tt.in)

			if n := store.uploadCount(); n != tt.wantUploads {
				t.Errorf("uploads = %d, want %d", n, tt.wantUploads)
			}
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewSubmission: %v", err)
			}
			if sub.ID == "" {
				t.Error("ID not assigned")
			}
			if sub.Kind != tt.wantKind || sub.OriginURL != tt.wantOrigin || sub.OriginLabel != tt.wantLabel {
				t.Errorf("sub = kind %s origin %q label %q", sub.Kind, sub.OriginURL, sub.OriginLabel)
			}
			if err := sub.Validate(); err != nil {
				t.Errorf("built submission invalid: %v", err)
			}
		})
	}
}

func TestNewSubmission_UploadWithoutResolver(t *testing.T) {
	in := &SubmissionInput{Media: &MediaUpload{Data: []byte("x"), MimeType: "image/png"}}
	if _, err := NewSubmission(context.Background(), nil, in); !errors.Is(err, domain.ErrInvalidKind) {
		t.Errorf("err = %v, want ErrInvalidKind", err)
	}
}
