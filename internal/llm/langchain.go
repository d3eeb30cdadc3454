package llm

import (
	"context"
	"fmt"

	"github.com/timmy/folio/internal/config"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// LangChainClient adapts a langchaingo model: a local Ollama model or an OpenAI model.
type LangChainClient struct {
	llm   llms.Model
	model string
}

func NewLangChainClient(cfg *config.LLMConfig) (*LangChainClient, error) {
	var (
		model llms.Model
		err   error
	)

	switch cfg.Provider {
	case ProviderOllama:
		opts := []ollama.Option{ollama.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
		}
		model, err = ollama.New(opts...)
	case ProviderLangChainOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		opts := []openai.Option{openai.WithToken(cfg.APIKey), openai.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		model, err = openai.New(opts...)
	default:
		return nil, fmt.Errorf("provider %q is not served by langchaingo", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s model: %w", cfg.Provider, err)
	}

	return NewLangChainClientFromModel(model, cfg.Model), nil
}

// NewLangChainClientFromModel wraps an already constructed langchaingo model.
func NewLangChainClientFromModel(model llms.Model, name string) *LangChainClient {
	return &LangChainClient{llm: model, model: name}
}

func (c *LangChainClient) Complete(ctx context.Context, prompt string) (string, error) {
	response, err := llms.GenerateFromSinglePrompt(ctx, c.llm, prompt)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	return response, nil
}
