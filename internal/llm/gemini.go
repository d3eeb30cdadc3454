package llm

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/folio/internal/config"
)

// GeminiClient calls the generateContent endpoint of the Generative Language API.
type GeminiClient struct {
	client   *resty.Client
	model    string
	apiKey   string
	endpoint string
}

func NewGeminiClient(cfg *config.LLMConfig) *GeminiClient {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-1.5-flash"
	}

	return &GeminiClient{
		client:   newHTTPClient(cfg),
		model:    model,
		apiKey:   cfg.APIKey,
		endpoint: fmt.Sprintf("%s/models/%s:generateContent", baseURL, url.PathEscape(model)),
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

func (c *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	req := geminiRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: prompt}},
		}},
	}

	var resp, apiErr geminiResponse
	httpResp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("key", c.apiKey).
		SetBody(req).
		SetResult(&resp).
		SetError(&apiErr).
		Post(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("failed to call gemini API: %w", err)
	}

	if httpResp.IsError() {
		msg := ""
		if apiErr.Error != nil {
			msg = apiErr.Error.Message
		}
		return "", statusError("gemini", httpResp, msg)
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no candidates in gemini response")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}
