package claude

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"aria/internal/config"
	"aria/internal/port"
	"aria/internal/schema"
	"aria/internal/understanding"
)

const (
	apiURL     = "https://api.anthropic.com/v1/messages"
	apiVersion = "2023-06-01"
)

// Understander implements port.Understander using the Anthropic Messages API.
type Understander struct {
	apiKey   string
	model    string
	endpoint string
	system   string
	registry *schema.Registry
	client   *http.Client
}

// New creates a Claude-based understander from a provider config. A non-empty
// BaseURL replaces the default API endpoint.
func New(cfg *config.ProviderConfig, registry *schema.Registry) *Understander {
	endpoint := apiURL
	if cfg.BaseURL != "" {
		endpoint = strings.TrimRight(cfg.BaseURL, "/") + "/v1/messages"
	}
	model := cfg.DefaultModel
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &Understander{
		apiKey:   cfg.APIKey,
		model:    model,
		endpoint: endpoint,
		system:   understanding.BuildSystemPrompt(registry),
		registry: registry,
		client:   &http.Client{Timeout: timeout},
	}
}

// Factory adapts New to understanding.ProviderFactory.
func Factory(cfg *config.ProviderConfig, registry *schema.Registry) (port.Understander, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("claude: api key is required")
	}
	return New(cfg, registry), nil
}

func (u *Understander) Understand(ctx context.Context, input port.UnderstandInput) (*port.Understanding, error) {
	prompt := understanding.BuildUserPrompt(input)

	reqBody := map[string]interface{}{
		"model":      u.model,
		"max_tokens": 4096,
		"system":     u.system,
		"messages": []map[string]interface{}{
			{
				"role":    "user",
				"content": prompt,
			},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", u.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling anthropic API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		baseErr := fmt.Errorf("anthropic API error (status %d): %s", resp.StatusCode, understanding.Truncate(string(respBody), 500))
		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, understanding.RateLimitFromResponse("claude", resp, baseErr, time.Now())
		}
		return nil, baseErr
	}

	return parseResponse(respBody, u.model, prompt)
}

// apiResponse models the Anthropic Messages API response.
type apiResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

func parseResponse(body []byte, model, prompt string) (*port.Understanding, error) {
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshaling response: %w", err)
	}

	if resp.StopReason == "max_tokens" {
		return nil, fmt.Errorf("output truncated (stop_reason: max_tokens): response exceeded output token limit")
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("empty response from API")
	}

	return understanding.DecodeResponse(text.String(), model, prompt)
}
