package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/folio/internal/config"
)

// OpenAIClient calls an OpenAI-compatible chat completions endpoint.
type OpenAIClient struct {
	client   *resty.Client
	model    string
	endpoint string
}

func NewOpenAIClient(cfg *config.LLMConfig) *OpenAIClient {
	client := newHTTPClient(cfg)
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	return &OpenAIClient{
		client:   client,
		model:    cfg.Model,
		endpoint: baseURL + "/chat/completions",
	}
}

type openAIRequest struct {
	Model     string          `json:"model"`
	Messages  []openAIMessage `json:"messages"`
	MaxTokens int             `json:"max_tokens,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
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

func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	req := openAIRequest{
		Model:     c.model,
		Messages:  []openAIMessage{{Role: "user", Content: prompt}},
		MaxTokens: 600,
	}

	var resp, apiErr openAIResponse
	httpResp, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		SetError(&apiErr).
		Post(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("failed to call completion API: %w", err)
	}

	if httpResp.IsError() {
		msg := ""
		if apiErr.Error != nil {
			msg = apiErr.Error.Message
		}
		return "", statusError("completion", httpResp, msg)
	}

	if resp.Error != nil {
		return "", fmt.Errorf("completion API error: %s", resp.Error.Message)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in completion response")
	}

	return resp.Choices[0].Message.Content, nil
}
