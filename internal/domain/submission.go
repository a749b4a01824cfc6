package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ContentKind is the kind of content carried by a submission.
type ContentKind string

const (
	KindText  ContentKind = "text"
	KindImage ContentKind = "image"
	KindVideo ContentKind = "video"
)

// Origin labels used when content has no URL of its own.
const (
	OriginUserUpload = "user_upload"
	OriginTextInput  = "text_input"
)

// Ingress errors. A submission failing validation never reaches the pipeline.
var (
	ErrNoPayload    = errors.New("submission has no text, artifact or url")
	ErrMixedContent = errors.New("submission mixes more than one payload")
	ErrInvalidKind  = errors.New("submission kind does not match its payload")
)

// ParseContentKind maps a loose kind string onto a ContentKind.
func ParseContentKind(s string) (ContentKind, error) {
	switch ContentKind(s) {
	case KindText, KindImage, KindVideo:
		return ContentKind(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
}

// Submission is one request unit. Exactly one of Text, Artifact or URL is set.
type Submission struct {
	ID          string                 `json:"id"`
	OriginLabel string                 `json:"origin_label"`
	OriginURL   string                 `json:"origin_url"`
	Kind        ContentKind            `json:"kind"`
	Text        string                 `json:"text,omitempty"`
	Artifact    *ArtifactRef           `json:"artifact,omitempty"`
	URL         string                 `json:"url,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// Validate enforces the single-payload rule and kind/payload agreement.
// Parameters: none.
// Returns:
//   - error: ErrNoPayload, ErrMixedContent or ErrInvalidKind (wrapped), nil if valid.
func (s *Submission) Validate() error {
	populated := 0
	if s.Text != "" {
		populated++
	}
	if s.Artifact != nil {
		populated++
	}
	if s.URL != "" {
		populated++
	}

	switch {
	case populated == 0:
		return ErrNoPayload
	case populated > 1:
		return ErrMixedContent
	}

	switch s.Kind {
	case KindText:
		if s.Text == "" {
			return fmt.Errorf("%w: text submission without text", ErrInvalidKind)
		}
	case KindImage, KindVideo:
		if s.Text != "" {
			return fmt.Errorf("%w: %s submission carrying text", ErrInvalidKind, s.Kind)
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidKind, s.Kind)
	}
	return nil
}

// IsUpload reports whether the media payload came through the artifact resolver.
func (s *Submission) IsUpload() bool {
	return s.Artifact != nil
}

// ArtifactRef identifies one stored media blob.
type ArtifactRef struct {
	ArtifactID string `json:"artifact_id"`
	Name       string `json:"name"`
	MimeType   string `json:"mime_type"`
	StorageKey string `json:"storage_key"`
	PublicURL  string `json:"public_url"`
	Uploaded   bool   `json:"uploaded"`
	Size       int64  `json:"size"`
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
	// UploadError is set when the store could not be reached and the
	// reference is a local placeholder.
	UploadError string `json:"upload_error,omitempty"`
}

// Kind derives the content kind from the MIME type.
func (a *ArtifactRef) Kind() ContentKind {
	if strings.HasPrefix(a.MimeType, "video/") {
		return KindVideo
	}
	return KindImage
}
