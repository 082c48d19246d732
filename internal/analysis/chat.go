package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/Wikid82/logwarden/internal/metrics"
	"github.com/Wikid82/logwarden/internal/version"
)

const (
	ProviderOpenAI     = "openai"
	ProviderPerplexity = "perplexity"

	defaultOpenAIBaseURL     = "https://api.openai.com"
	defaultOpenAIModel       = "gpt-4o-mini"
	defaultPerplexityBaseURL = "https://api.perplexity.ai"
	defaultPerplexityModel   = "sonar"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	N           int           `json:"n"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type apiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// ChatProvider talks to an OpenAI-compatible chat completions endpoint.
type ChatProvider struct {
	name    string
	model   string
	key     string
	path    string
	client  *resty.Client
	retrier *Retrier
}

// NewOpenAIProvider builds a provider for the OpenAI chat completions API.
func NewOpenAIProvider(entry ModelEntry, opts ...Option) *ChatProvider {
	return newChatProvider(ProviderOpenAI, entry, defaultOpenAIBaseURL, "/v1/chat/completions", defaultOpenAIModel, opts)
}

// NewPerplexityProvider builds a provider for Perplexity, whose API follows the
// OpenAI wire format.
func NewPerplexityProvider(entry ModelEntry, opts ...Option) *ChatProvider {
	return newChatProvider(ProviderPerplexity, entry, defaultPerplexityBaseURL, "/chat/completions", defaultPerplexityModel, opts)
}

func newChatProvider(name string, entry ModelEntry, baseURL, path, model string, opts []Option) *ChatProvider {
	o := applyOptions(opts)
	if entry.BaseURL != "" {
		baseURL = strings.TrimRight(entry.BaseURL, "/")
	}
	if entry.Model != "" {
		model = entry.Model
	}

	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(o.timeout)
	// Retries are driven by Retrier so that only rate limits are retried.
	client.SetRetryCount(0)
	client.SetHeader("Content-Type", "application/json")
	client.SetHeader("Accept", "application/json")
	client.SetHeader("User-Agent", version.UserAgent())
	if entry.Key != "" {
		client.SetAuthToken(entry.Key)
	}

	p := &ChatProvider{
		name:    name,
		model:   model,
		key:     entry.Key,
		path:    path,
		client:  client,
		retrier: o.retrier,
	}
	return p
}

func (p *ChatProvider) Name() string { return p.name }

func (p *ChatProvider) Enabled() bool { return strings.TrimSpace(p.key) != "" }

// Analyze sends prompt and returns the first choice's content. Rate-limited
// calls are retried with backoff.
func (p *ChatProvider) Analyze(ctx context.Context, prompt string) (string, error) {
	if !p.Enabled() {
		return "", NewProviderError(ErrTypeConfiguration, p.name, "missing API key")
	}
	start := time.Now()
	defer func() { metrics.ObserveProviderLatency(p.name, time.Since(start)) }()

	return p.retrier.Do(ctx, p.name, func() (string, error) {
		return p.complete(ctx, prompt)
	})
}

func (p *ChatProvider) complete(ctx context.Context, prompt string) (string, error) {
	req := chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: 0,
		MaxTokens:   700,
		N:           1,
	}

	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(req).
		Post(p.path)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", NewProviderErrorWithCause(ErrTypeNetwork, p.name, "request failed", err)
	}

	status := resp.StatusCode()
	switch {
	case status == http.StatusTooManyRequests:
		return "", NewRateLimitError(p.name, status, errorMessage(resp.Body(), "rate limit exceeded"))
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e := NewProviderError(ErrTypeAuthentication, p.name, errorMessage(resp.Body(), "authentication failed"))
		e.StatusCode = status
		return "", e
	case status >= 400:
		e := NewProviderError(ErrTypeProvider, p.name, errorMessage(resp.Body(), resp.Status()))
		e.StatusCode = status
		return "", e
	}

	var out chatResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return "", NewProviderErrorWithCause(ErrTypeInvalidResponse, p.name, "decode response", err)
	}
	if len(out.Choices) == 0 {
		return "{}", nil
	}
	return out.Choices[0].Message.Content, nil
}

func errorMessage(body []byte, fallback string) string {
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		return apiErr.Error.Message
	}
	if len(body) > 0 && len(body) < 512 {
		return fmt.Sprintf("%s: %s", fallback, strings.TrimSpace(string(body)))
	}
	return fallback
}
