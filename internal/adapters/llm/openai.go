// Package llm adapts the OpenAI chat completions API to summary.Completer.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/okian/pulselog/internal/domain/summary"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o-mini"

// ErrNoChoices is returned when the API answers without a completion.
var ErrNoChoices = errors.New("completion returned no choices")

// OpenAI is a summary.Completer over the chat completions endpoint.
type OpenAI struct {
	client openai.Client
	model  string
}

var _ summary.Completer = (*OpenAI)(nil)

// Option configures the OpenAI completer.
type Option func(*settings)

type settings struct {
	model      string
	baseURL    string
	httpClient *http.Client
	maxRetries int
}

// WithModel selects the chat model.
func WithModel(model string) Option {
	return func(s *settings) {
		if m := strings.TrimSpace(model); m != "" {
			s.model = m
		}
	}
}

// WithBaseURL points the client at an OpenAI-compatible server.
func WithBaseURL(url string) Option {
	return func(s *settings) { s.baseURL = strings.TrimSpace(url) }
}

// WithHTTPClient overrides the transport.
func WithHTTPClient(c *http.Client) Option {
	return func(s *settings) { s.httpClient = c }
}

// WithMaxRetries sets how often transient failures are retried.
func WithMaxRetries(n int) Option {
	return func(s *settings) {
		if n >= 0 {
			s.maxRetries = n
		}
	}
}

// NewOpenAI creates a completer. An empty key is an error: callers should
// leave the summarizer without a completer instead.
func NewOpenAI(apiKey string, opts ...Option) (*OpenAI, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	cfg := settings{model: DefaultModel, maxRetries: 1}
	for _, opt := range opts {
		opt(&cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(cfg.maxRetries),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.httpClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(cfg.httpClient))
	}
	return &OpenAI{client: openai.NewClient(reqOpts...), model: cfg.model}, nil
}

// Model reports the configured chat model.
func (o *OpenAI) Model() string { return o.model }

// Complete implements summary.Completer.
func (o *OpenAI) Complete(ctx context.Context, req summary.Request) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.User),
		},
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	return resp.Choices[0].Message.Content, nil
}
