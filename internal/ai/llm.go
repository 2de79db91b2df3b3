package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/IshaanNene/radarbr/internal/config"
	"github.com/IshaanNene/radarbr/internal/types"
)

// LLMProvider specifies which LLM backend to use.
type LLMProvider string

const (
	ProviderOllama LLMProvider = "ollama"
	ProviderOpenAI LLMProvider = "openai"
)

// ChatRequest is one system+user exchange. Zero sampling fields fall back to
// the client configuration.
type ChatRequest struct {
	System           string
	Prompt           string
	MaxTokens        int
	Temperature      float64
	FrequencyPenalty float64
	PresencePenalty  float64
}

// Completer produces a completion for a chat request.
type Completer interface {
	Complete(ctx context.Context, req ChatRequest) (string, error)
}

// LLMClient talks to an OpenAI-compatible or Ollama chat endpoint.
type LLMClient struct {
	cfg    config.LLMConfig
	client *http.Client
	logger *slog.Logger
}

// NewLLMClient creates a new LLM client.
func NewLLMClient(cfg config.LLMConfig, logger *slog.Logger) *LLMClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &LLMClient{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		logger: logger.With("component", "llm_client", "provider", cfg.Provider, "model", cfg.Model),
	}
}

// Complete sends the request to the configured provider.
func (c *LLMClient) Complete(ctx context.Context, req ChatRequest) (string, error) {
	if req.MaxTokens == 0 {
		req.MaxTokens = c.cfg.MaxTokens
	}
	if req.Temperature == 0 {
		req.Temperature = c.cfg.Temperature
	}
	if req.FrequencyPenalty == 0 {
		req.FrequencyPenalty = c.cfg.FrequencyPenalty
	}
	if req.PresencePenalty == 0 {
		req.PresencePenalty = c.cfg.PresencePenalty
	}

	start := time.Now()
	var (
		out string
		err error
	)
	switch LLMProvider(c.cfg.Provider) {
	case ProviderOllama:
		out, err = c.completeOllama(ctx, req)
	case ProviderOpenAI:
		out, err = c.completeOpenAI(ctx, req)
	default:
		return "", fmt.Errorf("unsupported LLM provider: %s", c.cfg.Provider)
	}
	if err != nil {
		return "", err
	}

	c.logger.Debug("completion received", "chars", len(out), "duration", time.Since(start))
	return strings.TrimSpace(out), nil
}

func messages(req ChatRequest) []map[string]string {
	var msgs []map[string]string
	if req.System != "" {
		msgs = append(msgs, map[string]string{"role": "system", "content": req.System})
	}
	return append(msgs, map[string]string{"role": "user", "content": req.Prompt})
}

func (c *LLMClient) completeOpenAI(ctx context.Context, req ChatRequest) (string, error) {
	payload := map[string]any{
		"model":             c.cfg.Model,
		"messages":          messages(req),
		"max_tokens":        req.MaxTokens,
		"temperature":       req.Temperature,
		"frequency_penalty": req.FrequencyPenalty,
		"presence_penalty":  req.PresencePenalty,
	}

	endpoint := c.cfg.Endpoint
	if endpoint == "" {
		endpoint = "https://api.openai.com/v1"
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := c.post(ctx, strings.TrimRight(endpoint, "/")+"/chat/completions", payload, &result); err != nil {
		return "", err
	}
	if result.Error != nil {
		return "", &types.ProviderError{Provider: "openai", Err: fmt.Errorf("%s", result.Error.Message)}
	}
	if len(result.Choices) == 0 {
		return "", &types.ProviderError{Provider: "openai", Err: fmt.Errorf("no choices in openai response")}
	}
	return result.Choices[0].Message.Content, nil
}

func (c *LLMClient) completeOllama(ctx context.Context, req ChatRequest) (string, error) {
	payload := map[string]any{
		"model":    c.cfg.Model,
		"messages": messages(req),
		"stream":   false,
		"options": map[string]any{
			"temperature":       req.Temperature,
			"num_predict":       req.MaxTokens,
			"frequency_penalty": req.FrequencyPenalty,
			"presence_penalty":  req.PresencePenalty,
		},
	}

	var result struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	if err := c.post(ctx, strings.TrimRight(c.cfg.Endpoint, "/")+"/api/chat", payload, &result); err != nil {
		return "", err
	}
	return result.Message.Content, nil
}

func (c *LLMClient) post(ctx context.Context, url string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode llm request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &types.ProviderError{Provider: c.cfg.Provider, Err: err, Retryable: true}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &types.ProviderError{Provider: c.cfg.Provider, Err: err, Retryable: true}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := string(respBody)
		if len(snippet) > 300 {
			snippet = snippet[:300]
		}
		return &types.ProviderError{
			Provider:   c.cfg.Provider,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status: %s", strings.TrimSpace(snippet)),
			Retryable:  resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500,
		}
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &types.ProviderError{Provider: c.cfg.Provider, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// extractJSON finds the first JSON object in an LLM response, skipping
// markdown fences and surrounding prose.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}
