package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/genai"

	"aria/internal/config"
	"aria/internal/port"
	"aria/internal/schema"
	"aria/internal/understanding"
)

// Understander implements port.Understander using Google's Gemini API.
type Understander struct {
	client *genai.Client
	model  string
	system string
}

// New creates a Gemini-based understander. A non-empty BaseURL replaces the API host.
func New(ctx context.Context, cfg *config.ProviderConfig, registry *schema.Registry) (*Understander, error) {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  &http.Client{Timeout: timeout},
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	model := cfg.DefaultModel
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &Understander{
		client: client,
		model:  model,
		system: understanding.BuildSystemPrompt(registry),
	}, nil
}

// Factory adapts New to understanding.ProviderFactory.
func Factory(cfg *config.ProviderConfig, registry *schema.Registry) (port.Understander, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: api key is required")
	}
	return New(context.Background(), cfg, registry)
}

func (u *Understander) Understand(ctx context.Context, input port.UnderstandInput) (*port.Understanding, error) {
	prompt := understanding.BuildUserPrompt(input)

	contents := []*genai.Content{
		{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{{Text: prompt}},
		},
	}
	resp, err := u.client.Models.GenerateContent(ctx, u.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: u.system}}},
		ResponseMIMEType:  "application/json",
		MaxOutputTokens:   4096,
	})
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
			return nil, understanding.NewRateLimitError("gemini", err, 0)
		}
		return nil, fmt.Errorf("calling gemini API: %w", err)
	}

	if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason == genai.FinishReasonMaxTokens {
		return nil, fmt.Errorf("output truncated (finish_reason: MAX_TOKENS): response exceeded output token limit")
	}
	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("empty response from model")
	}
	return understanding.DecodeResponse(text, u.model, prompt)
}
