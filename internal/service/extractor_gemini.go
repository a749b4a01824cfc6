package service

import (
	"context"
	"fmt"
	"mime"
	"path"
	"strings"

	"google.golang.org/genai"

	"github.com/timmy/veris/internal/domain"
	"github.com/timmy/veris/internal/prompts"
)

// GeminiExtractor extracts claims with Gemini, which reads images and video
// inline.
type GeminiExtractor struct {
	gen       geminiGenerator
	artifacts ArtifactOpener
}

// NewGeminiExtractor creates a GeminiExtractor.
func NewGeminiExtractor(gen geminiGenerator, artifacts ArtifactOpener) *GeminiExtractor {
	return &GeminiExtractor{gen: gen, artifacts: artifacts}
}

// Extract implements Extractor.
func (e *GeminiExtractor) Extract(ctx context.Context, req *ExtractRequest) (*RawExtraction, error) {
	parts, err := e.parts(ctx, req)
	if err != nil {
		return nil, err
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(prompts.ExtractionSystemPrompt, ""),
		ResponseMIMEType:  "application/json",
		Temperature:       genai.Ptr(float32(0)),
	}
	resp, err := e.gen.GenerateContent(ctx, []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, config)
	if err != nil {
		return nil, err
	}

	var out RawExtraction
	if err := decodeModelJSON(resp.Text(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (e *GeminiExtractor) parts(ctx context.Context, req *ExtractRequest) ([]*genai.Part, error) {
	switch {
	case req.Text != "":
		return []*genai.Part{
			genai.NewPartFromText(fmt.Sprintf(prompts.ExtractionTextPrompt, req.OriginLabel, req.Text)),
		}, nil

	case req.ArtifactID != "":
		data, mimeType, err := e.artifacts.Open(ctx, req.ArtifactID)
		if err != nil {
			return nil, fmt.Errorf("failed to open artifact: %w", err)
		}
		return []*genai.Part{
			genai.NewPartFromText(fmt.Sprintf(prompts.ExtractionMediaPrompt, req.Kind, req.OriginLabel)),
			genai.NewPartFromBytes(data, mimeType),
		}, nil

	case req.URL != "":
		text := genai.NewPartFromText(fmt.Sprintf(prompts.ExtractionURLPrompt, req.Kind, req.URL, req.OriginLabel))
		if fileURIReadable(req.URL) {
			return []*genai.Part{text, genai.NewPartFromURI(req.URL, guessMIME(req.URL, req.Kind))}, nil
		}
		return []*genai.Part{text}, nil
	}
	return nil, fmt.Errorf("extract request has no payload")
}

// fileURIReadable reports whether Gemini can fetch the URL itself.
func fileURIReadable(u string) bool {
	return strings.HasPrefix(u, "gs://") ||
		strings.Contains(u, "youtube.com/watch") ||
		strings.Contains(u, "youtu.be/")
}

func guessMIME(u string, kind domain.ContentKind) string {
	if t := mime.TypeByExtension(path.Ext(u)); t != "" {
		return t
	}
	if kind == domain.KindVideo {
		return "video/mp4"
	}
	return "image/jpeg"
}
