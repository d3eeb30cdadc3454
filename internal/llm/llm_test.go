package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/folio/internal/config"
	"github.com/tmc/langchaingo/llms"
)

func TestGeminiClientComplete(t *testing.T) {
	t.Run("joins candidate parts", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/models/gemini-test:generateContent", r.URL.Path)
			assert.Equal(t, "secret", r.URL.Query().Get("key"))

			var body geminiRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "hello", body.Contents[0].Parts[0].Text)

			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Hi "},{"text":"there"}]}}]}`))
		}))
		defer server.Close()

		c := NewGeminiClient(&config.LLMConfig{APIKey: "secret", Model: "gemini-test", BaseURL: server.URL})
		out, err := c.Complete(context.Background(), "hello")
		require.NoError(t, err)
		assert.Equal(t, "Hi there", out)
	})

	t.Run("reports API error message", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`))
		}))
		defer server.Close()

		c := NewGeminiClient(&config.LLMConfig{APIKey: "bad", Model: "m", BaseURL: server.URL})
		_, err := c.Complete(context.Background(), "hello")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "API key not valid")
		assert.Contains(t, err.Error(), "400")
	})

	t.Run("retries server errors", func(t *testing.T) {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if atomic.AddInt32(&calls, 1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"error":{"message":"overloaded"}}`))
				return
			}
			w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`))
		}))
		defer server.Close()

		c := NewGeminiClient(&config.LLMConfig{APIKey: "k", Model: "m", BaseURL: server.URL, MaxRetries: 2})
		out, err := c.Complete(context.Background(), "hello")
		require.NoError(t, err)
		assert.Equal(t, "ok", out)
		assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	})

	t.Run("honours context deadline", func(t *testing.T) {
		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer server.Close()
		defer close(release)

		c := NewGeminiClient(&config.LLMConfig{APIKey: "k", Model: "m", BaseURL: server.URL})
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err := c.Complete(ctx, "hello")
		require.Error(t, err)
		assert.True(t, errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil)
	})

	t.Run("empty candidates", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"candidates":[]}`))
		}))
		defer server.Close()

		c := NewGeminiClient(&config.LLMConfig{APIKey: "k", Model: "m", BaseURL: server.URL})
		_, err := c.Complete(context.Background(), "hello")
		assert.Error(t, err)
	})
}

func TestOpenAIClientComplete(t *testing.T) {
	t.Run("returns first choice", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/chat/completions", r.URL.Path)
			assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

			var body openAIRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "gpt-test", body.Model)
			assert.Equal(t, "user", body.Messages[0].Role)

			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"choices":[{"message":{"content":"Sure!"}}]}`))
		}))
		defer server.Close()

		c := NewOpenAIClient(&config.LLMConfig{APIKey: "sk-test", Model: "gpt-test", BaseURL: server.URL})
		out, err := c.Complete(context.Background(), "hello")
		require.NoError(t, err)
		assert.Equal(t, "Sure!", out)
	})

	t.Run("reports HTTP errors", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":{"message":"Incorrect API key","type":"invalid_request_error"}}`))
		}))
		defer server.Close()

		c := NewOpenAIClient(&config.LLMConfig{APIKey: "bad", Model: "m", BaseURL: server.URL})
		_, err := c.Complete(context.Background(), "hello")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Incorrect API key")
	})
}

type stubModel struct {
	reply  string
	err    error
	prompt string
}

func (m *stubModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	if len(messages) > 0 && len(messages[0].Parts) > 0 {
		if text, ok := messages[0].Parts[0].(llms.TextContent); ok {
			m.prompt = text.Text
		}
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: m.reply}}}, nil
}

func (m *stubModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func TestLangChainClientComplete(t *testing.T) {
	model := &stubModel{reply: "generated"}
	c := NewLangChainClientFromModel(model, "llama3")

	out, err := c.Complete(context.Background(), "question")
	require.NoError(t, err)
	assert.Equal(t, "generated", out)
	assert.Equal(t, "question", model.prompt)

	model.err = errors.New("model offline")
	_, err = c.Complete(context.Background(), "question")
	assert.ErrorContains(t, err, "model offline")
}

func TestNewCompleter(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.LLMConfig
		wantErr bool
	}{
		{"gemini", config.LLMConfig{Provider: "gemini", APIKey: "k"}, false},
		{"gemini without key", config.LLMConfig{Provider: "gemini"}, true},
		{"openai", config.LLMConfig{Provider: "openai", APIKey: "k"}, false},
		{"ollama", config.LLMConfig{Provider: "ollama", Model: "llama3", BaseURL: "http://localhost:11434"}, false},
		{"langchain openai", config.LLMConfig{Provider: "langchain-openai", APIKey: "k", Model: "gpt-4o-mini"}, false},
		{"langchain openai without key", config.LLMConfig{Provider: "langchain-openai", Model: "gpt-4o-mini"}, true},
		{"unknown", config.LLMConfig{Provider: "bard"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewCompleter(&tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, c)
		})
	}
}

func TestNewLangChainClientRejectsOtherProviders(t *testing.T) {
	_, err := NewLangChainClient(&config.LLMConfig{Provider: "gemini", APIKey: "k"})
	assert.ErrorContains(t, err, "not served by langchaingo")

	c, err := NewLangChainClient(&config.LLMConfig{Provider: ProviderLangChainOpenAI, APIKey: "k", Model: "gpt-4o-mini", BaseURL: "http://localhost:8080/v1"})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", c.model)
}
