package service

import (
	"context"
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/timmy/veris/internal/domain"
)

// MediaUpload is raw media handed in by a client.
type MediaUpload struct {
	Name     string
	Data     []byte
	MimeType string
}

// SubmissionInput is an unvalidated request from a transport layer.
type SubmissionInput struct {
	OriginLabel string
	OriginURL   string
	Kind        string
	Text        string
	URL         string
	Media       *MediaUpload
	Metadata    map[string]interface{}
}

var videoExtensions = map[string]bool{
	".mp4": true, ".mov": true, ".webm": true, ".mkv": true, ".avi": true, ".m4v": true,
}

// payloadCount counts populated payload fields.
func (in *SubmissionInput) payloadCount() int {
	n := 0
	if strings.TrimSpace(in.Text) != "" {
		n++
	}
	if strings.TrimSpace(in.URL) != "" {
		n++
	}
	if in.Media != nil && len(in.Media.Data) > 0 {
		n++
	}
	return n
}

func (in *SubmissionInput) inferKind() (domain.ContentKind, error) {
	if in.Kind != "" {
		return domain.ParseContentKind(strings.ToLower(in.Kind))
	}
	switch {
	case strings.TrimSpace(in.Text) != "":
		return domain.KindText, nil
	case in.Media != nil && len(in.Media.Data) > 0:
		if strings.HasPrefix(in.Media.MimeType, "video/") {
			return domain.KindVideo, nil
		}
		return domain.KindImage, nil
	default:
		u, err := url.Parse(in.URL)
		if err == nil && videoExtensions[strings.ToLower(path.Ext(u.Path))] {
			return domain.KindVideo, nil
		}
		return domain.KindImage, nil
	}
}

// NewSubmission validates in and builds a Submission. Payload shape is checked
// before any upload happens, so a rejected request never touches the store.
// Uploaded media goes through resolver; text and URLs pass through unchanged.
// Parameters:
//   - ctx: request context.
//   - resolver: artifact resolver for uploaded media; may be nil when no
//     media is expected.
//   - in: raw request fields.
// Returns:
//   - *domain.Submission: validated submission with a fresh ID.
//   - error: domain.ErrNoPayload, domain.ErrMixedContent or domain.ErrInvalidKind.
func NewSubmission(ctx context.Context, resolver *ArtifactResolver, in *SubmissionInput) (*domain.Submission, error) {
	switch in.payloadCount() {
	case 0:
		return nil, domain.ErrNoPayload
	case 1:
	default:
		return nil, domain.ErrMixedContent
	}

	kind, err := in.inferKind()
	if err != nil {
		return nil, err
	}

	sub := &domain.Submission{
		ID:          uuid.NewString(),
		OriginLabel: strings.TrimSpace(in.OriginLabel),
		OriginURL:   strings.TrimSpace(in.OriginURL),
		Kind:        kind,
		Text:        strings.TrimSpace(in.Text),
		URL:         strings.TrimSpace(in.URL),
		Metadata:    in.Metadata,
	}

	// Validate shape before resolving so mismatched kinds never upload.
	if in.Media != nil && len(in.Media.Data) > 0 {
		sub.Artifact = &domain.ArtifactRef{}
	}
	if err := sub.Validate(); err != nil {
		return nil, err
	}

	switch {
	case sub.Text != "":
		defaultOrigin(sub, domain.OriginTextInput, domain.OriginTextInput)
	case sub.URL != "":
		defaultOrigin(sub, sub.URL, hostOf(sub.URL))
	default:
		if resolver == nil {
			return nil, domain.ErrInvalidKind
		}
		sub.Artifact = resolver.Resolve(ctx, in.Media.Name, in.Media.Data, in.Media.MimeType)
		if sub.Artifact.Kind() != sub.Kind && in.Kind == "" {
			sub.Kind = sub.Artifact.Kind()
		}
		defaultOrigin(sub, domain.OriginUserUpload, domain.OriginUserUpload)
	}
	return sub, nil
}

func defaultOrigin(sub *domain.Submission, originURL, label string) {
	if sub.OriginURL == "" {
		sub.OriginURL = originURL
	}
	if sub.OriginLabel == "" {
		sub.OriginLabel = label
	}
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return u.Host
}
