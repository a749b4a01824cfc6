package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/timmy/veris/internal/prompts"
)

// OpenAIExtractor extracts claims through an OpenAI-compatible vision model.
// Images are sent inline as data URLs. Video artifacts cannot be read.
type OpenAIExtractor struct {
	chat      *chatClient
	artifacts ArtifactOpener
}

// OpenAIExtractorConfig holds extractor settings.
type OpenAIExtractorConfig struct {
	Model   string
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// NewOpenAIExtractor creates an OpenAIExtractor reading uploads from artifacts.
func NewOpenAIExtractor(cfg *OpenAIExtractorConfig, artifacts ArtifactOpener) *OpenAIExtractor {
	return &OpenAIExtractor{
		chat:      newChatClient(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Timeout),
		artifacts: artifacts,
	}
}

// Extract implements Extractor.
func (e *OpenAIExtractor) Extract(ctx context.Context, req *ExtractRequest) (*RawExtraction, error) {
	user, err := e.userContent(ctx, req)
	if err != nil {
		return nil, err
	}

	reply, err := e.chat.complete(ctx, &chatRequest{
		Messages: []chatMessage{
			{Role: "system", Content: prompts.ExtractionSystemPrompt},
			{Role: "user", Content: user},
		},
		MaxTokens:      2000,
		Temperature:    0,
		ResponseFormat: &responseFormat{Type: "json_object"},
	})
	if err != nil {
		return nil, err
	}

	var out RawExtraction
	if err := decodeModelJSON(reply, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (e *OpenAIExtractor) userContent(ctx context.Context, req *ExtractRequest) (interface{}, error) {
	switch {
	case req.Text != "":
		return fmt.Sprintf(prompts.ExtractionTextPrompt, req.OriginLabel, req.Text), nil

	case req.ArtifactID != "":
		data, mimeType, err := e.artifacts.Open(ctx, req.ArtifactID)
		if err != nil {
			return nil, fmt.Errorf("failed to open artifact: %w", err)
		}
		if !strings.HasPrefix(mimeType, "image/") {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedMedia, mimeType)
		}
		dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
		return []interface{}{
			textPart{Type: "text", Text: fmt.Sprintf(prompts.ExtractionMediaPrompt, req.Kind, req.OriginLabel)},
			imagePart{Type: "image_url", ImageURL: imageURL{URL: dataURL, Detail: "auto"}},
		}, nil

	case req.URL != "":
		parts := []interface{}{
			textPart{Type: "text", Text: fmt.Sprintf(prompts.ExtractionURLPrompt, req.Kind, req.URL, req.OriginLabel)},
		}
		if req.Kind == "image" {
			parts = append(parts, imagePart{Type: "image_url", ImageURL: imageURL{URL: req.URL, Detail: "auto"}})
		}
		return parts, nil
	}
	return nil, fmt.Errorf("extract request has no payload")
}
