// Package llm provides text-completion clients used by the chat controller.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/folio/internal/config"
)

// Completer turns a prompt into generated text. Implementations must honour ctx
// cancellation so callers can enforce their own deadline.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Provider names accepted in llm.provider.
const (
	ProviderGemini          = "gemini"
	ProviderOpenAI          = "openai"
	ProviderOllama          = "ollama"
	ProviderLangChainOpenAI = "langchain-openai"
)

// NewCompleter builds the client for cfg.Provider.
func NewCompleter(cfg *config.LLMConfig) (Completer, error) {
	switch cfg.Provider {
	case ProviderGemini:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("gemini API key required")
		}
		return NewGeminiClient(cfg), nil
	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		return NewOpenAIClient(cfg), nil
	case ProviderOllama, ProviderLangChainOpenAI:
		return NewLangChainClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}

// newHTTPClient returns a resty client that retries rate limits and server errors.
func newHTTPClient(cfg *config.LLMConfig) *resty.Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	return resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if r == nil {
				return false
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= http.StatusInternalServerError
		})
}

// statusError formats a non-2xx completion response.
func statusError(provider string, resp *resty.Response, apiMessage string) error {
	if apiMessage != "" {
		return fmt.Errorf("%s API returned error: HTTP %d: %s", provider, resp.StatusCode(), apiMessage)
	}
	return fmt.Errorf("%s API returned error: HTTP %d: %s", provider, resp.StatusCode(), string(resp.Body()))
}
