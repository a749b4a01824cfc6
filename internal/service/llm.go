package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// chatClient talks to an OpenAI-compatible chat/completions endpoint.
type chatClient struct {
	client   *resty.Client
	model    string
	endpoint string
}

func newChatClient(apiKey, baseURL, model string, timeout time.Duration) *chatClient {
	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+apiKey)
	client.SetHeader("Content-Type", "application/json")
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	client.SetTimeout(timeout)

	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	return &chatClient{
		client:   client,
		model:    model,
		endpoint: strings.TrimSuffix(baseURL, "/") + "/chat/completions",
	}
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    float32         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"` // string, or []interface{} of parts
}

type textPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type imagePart struct {
	Type     string   `json:"type"`
	ImageURL imageURL `json:"image_url"`
}

type imageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// complete sends req and returns the first choice's content.
func (c *chatClient) complete(ctx context.Context, req *chatRequest) (string, error) {
	req.Model = c.model

	var resp chatResponse
	httpResp, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		SetError(&resp).
		Post(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("failed to call chat API: %w", err)
	}

	if httpResp.IsError() {
		msg := string(httpResp.Body())
		if resp.Error != nil {
			msg = resp.Error.Message
		}
		return "", fmt.Errorf("chat API returned HTTP %d: %s", httpResp.StatusCode(), msg)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("chat API error: %s", resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in chat response (status: %d)", httpResp.StatusCode())
	}
	return resp.Choices[0].Message.Content, nil
}

// stripCodeFences removes a surrounding ```json ... ``` block, if any.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl != -1 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// decodeModelJSON decodes a model reply into v, tolerating code fences and
// prose around the outermost JSON object.
func decodeModelJSON(raw string, v interface{}) error {
	body := stripCodeFences(raw)
	if start, end := strings.IndexByte(body, '{'), strings.LastIndexByte(body, '}'); start >= 0 && end > start {
		body = body[start : end+1]
	}
	if err := json.Unmarshal([]byte(body), v); err != nil {
		return fmt.Errorf("invalid JSON in model response: %w", err)
	}
	return nil
}

// flexInt accepts 87, 87.5, "87" or "87%".
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = 0
		return nil
	}
	s := strings.Trim(string(b), `"`)
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	if s == "" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// Ranges such as "0-100" carry no estimate.
		*f = 0
		return nil
	}
	if n > 0 && n <= 1 && strings.Contains(s, ".") {
		n *= 100
	}
	*f = flexInt(n + 0.5)
	return nil
}
