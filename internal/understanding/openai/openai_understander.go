package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"aria/internal/config"
	"aria/internal/port"
	"aria/internal/schema"
	"aria/internal/understanding"
)

// Understander implements port.Understander using the OpenAI Chat Completions API.
type Understander struct {
	client *goopenai.Client
	model  string
	system string
}

// New creates an OpenAI-based understander from a provider config. A non-empty
// BaseURL points the client at any OpenAI-compatible endpoint.
func New(cfg *config.ProviderConfig, registry *schema.Registry) *Understander {
	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	clientCfg.HTTPClient = &http.Client{Timeout: timeout}

	model := cfg.DefaultModel
	if model == "" {
		model = goopenai.GPT4o
	}
	return &Understander{
		client: goopenai.NewClientWithConfig(clientCfg),
		model:  model,
		system: understanding.BuildSystemPrompt(registry),
	}
}

// Factory adapts New to understanding.ProviderFactory.
func Factory(cfg *config.ProviderConfig, registry *schema.Registry) (port.Understander, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: api key is required")
	}
	return New(cfg, registry), nil
}

func (u *Understander) Understand(ctx context.Context, input port.UnderstandInput) (*port.Understanding, error) {
	prompt := understanding.BuildUserPrompt(input)

	resp, err := u.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:               u.model,
		MaxCompletionTokens: 4096,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: u.system},
			{Role: goopenai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		var apiErr *goopenai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			return nil, understanding.NewRateLimitError("openai", err, 0)
		}
		var reqErr *goopenai.RequestError
		if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusTooManyRequests {
			return nil, understanding.NewRateLimitError("openai", err, 0)
		}
		return nil, fmt.Errorf("calling openai API: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from API: no choices")
	}
	if resp.Choices[0].FinishReason == goopenai.FinishReasonLength {
		return nil, fmt.Errorf("output truncated (finish_reason: length): response exceeded output token limit")
	}

	model := resp.Model
	if model == "" {
		model = u.model
	}
	return understanding.DecodeResponse(resp.Choices[0].Message.Content, model, prompt)
}
