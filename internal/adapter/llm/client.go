package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"quiz-pilot/internal/config"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
)

const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// Client adapts a langchaingo model to domain.LLM.
type Client struct {
	model   llms.Model
	options []llms.CallOption
	logger  *zap.Logger
}

// New builds a client for the configured provider. The OpenAI provider also
// serves OpenAI-compatible proxies through cfg.BaseURL.
func New(cfg config.LLMConfig, httpClient *http.Client, logger *zap.Logger) (*Client, error) {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	var model llms.Model
	var err error
	switch cfg.Provider {
	case ProviderOpenAI, "":
		if cfg.APIKey == "" {
			return nil, errors.New("LLM API key is not configured")
		}
		opts := []openai.Option{
			openai.WithToken(cfg.APIKey),
			openai.WithModel(cfg.Model),
			openai.WithHTTPClient(httpClient),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		model, err = openai.New(opts...)
	case ProviderOllama:
		opts := []ollama.Option{
			ollama.WithModel(cfg.Model),
			ollama.WithHTTPClient(httpClient),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
		}
		model, err = ollama.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", cfg.Provider, err)
	}

	return NewWithModel(model, cfg, logger), nil
}

// NewWithModel wraps an existing langchaingo model.
func NewWithModel(model llms.Model, cfg config.LLMConfig, logger *zap.Logger) *Client {
	options := []llms.CallOption{llms.WithTemperature(cfg.Temperature)}
	if cfg.MaxTokens > 0 {
		options = append(options, llms.WithMaxTokens(cfg.MaxTokens))
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{model: model, options: options, logger: logger}
}

// Complete sends prompt as a single human message.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	c.logger.Debug("calling LLM", zap.Int("prompt_chars", len(prompt)))
	response, err := llms.GenerateFromSinglePrompt(ctx, c.model, prompt, c.options...)
	if err != nil {
		return "", fmt.Errorf("LLM call failed: %w", err)
	}
	return response, nil
}
