package service

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// geminiGenerator is the slice of the Gemini API the extractor and verifier use.
type geminiGenerator interface {
	GenerateContent(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiClient binds a genai client to one model.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates a Gemini API client.
// Parameters:
//   - ctx: context for client construction.
//   - apiKey: Gemini API key.
//   - model: generative model name, e.g. gemini-2.5-flash.
// Returns:
//   - *GeminiClient: client bound to model.
//   - error: non-nil if the client cannot be created.
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &GeminiClient{client: client, model: model}, nil
}

// GenerateContent calls the bound model.
func (g *GeminiClient) GenerateContent(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}
	return resp, nil
}

// Model returns the bound model name.
func (g *GeminiClient) Model() string {
	return g.model
}
