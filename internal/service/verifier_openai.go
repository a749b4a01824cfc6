package service

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/timmy/veris/internal/domain"
	"github.com/timmy/veris/internal/prompts"
)

type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIVerifier verifies claims with an OpenAI chat model in JSON mode. It has
// no search tool, so verdicts rest on the model's own citations.
type OpenAIVerifier struct {
	client chatCompleter
	model  string
}

// NewOpenAIVerifier creates an OpenAIVerifier. An empty baseURL targets api.openai.com.
func NewOpenAIVerifier(apiKey, baseURL, model string) *OpenAIVerifier {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIVerifier{client: openai.NewClientWithConfig(cfg), model: model}
}

// Verify implements Verifier.
func (v *OpenAIVerifier) Verify(ctx context.Context, req *VerifyRequest) (*domain.Verdict, error) {
	resp, err := v.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: v.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompts.VerificationSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(prompts.VerificationUserPrompt, req.Claim, req.Category, orNone(req.Context))},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
		Temperature:    0,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call verifier model: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices", domain.ErrMalformedVerdict)
	}

	var raw rawVerdict
	if err := decodeModelJSON(resp.Choices[0].Message.Content, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedVerdict, err)
	}
	return validateVerdict(&raw, nil)
}
