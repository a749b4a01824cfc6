package service

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/timmy/veris/internal/domain"
	"github.com/timmy/veris/internal/prompts"
)

// GeminiVerifier verifies claims with Gemini grounded on Google Search.
// Grounding chunk URIs are merged into the verdict's sources.
type GeminiVerifier struct {
	gen geminiGenerator
}

// NewGeminiVerifier creates a GeminiVerifier.
func NewGeminiVerifier(gen geminiGenerator) *GeminiVerifier {
	return &GeminiVerifier{gen: gen}
}

// Verify implements Verifier.
func (v *GeminiVerifier) Verify(ctx context.Context, req *VerifyRequest) (*domain.Verdict, error) {
	// Search grounding does not combine with a JSON response MIME type, so the
	// reply is parsed leniently.
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(prompts.VerificationSystemPrompt, ""),
		Tools:             []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
		Temperature:       genai.Ptr(float32(0)),
	}
	prompt := fmt.Sprintf(prompts.VerificationUserPrompt, req.Claim, req.Category, orNone(req.Context))

	resp, err := v.gen.GenerateContent(ctx, []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}, config)
	if err != nil {
		return nil, err
	}

	var raw rawVerdict
	if err := decodeModelJSON(resp.Text(), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedVerdict, err)
	}
	return validateVerdict(&raw, groundingSources(resp))
}

func groundingSources(resp *genai.GenerateContentResponse) []string {
	var out []string
	for _, cand := range resp.Candidates {
		if cand == nil || cand.GroundingMetadata == nil {
			continue
		}
		for _, chunk := range cand.GroundingMetadata.GroundingChunks {
			if chunk != nil && chunk.Web != nil && chunk.Web.URI != "" {
				out = append(out, chunk.Web.URI)
			}
		}
	}
	return out
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
