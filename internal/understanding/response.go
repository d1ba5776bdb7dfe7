package understanding

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"aria/internal/port"
)

// modelResponse is the JSON object providers are instructed to return.
type modelResponse struct {
	TransactionType      string                        `json:"transaction_type"`
	ExplicitConfirmation bool                          `json:"explicit_confirmation"`
	Fields               map[string]port.FieldEvidence `json:"fields"`
}

// DecodeResponse parses a model's text output into an Understanding.
func DecodeResponse(text, model, prompt string) (*port.Understanding, error) {
	clean := CleanModelJSON(text)
	if clean == "" {
		return nil, fmt.Errorf("empty response from model")
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(clean)))
	dec.UseNumber()
	var parsed modelResponse
	if err := dec.Decode(&parsed); err != nil {
		return nil, fmt.Errorf("parsing model JSON output: %w (raw: %s)", err, Truncate(text, 500))
	}

	if parsed.Fields == nil {
		parsed.Fields = map[string]port.FieldEvidence{}
	}
	return &port.Understanding{
		TransactionType:      parsed.TransactionType,
		FieldEvidence:        parsed.Fields,
		ExplicitConfirmation: parsed.ExplicitConfirmation,
		ModelUsed:            model,
		PromptUsed:           prompt,
	}, nil
}

// CleanModelJSON strips markdown fences and any text around the outermost JSON object.
func CleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// Handle ```json ... ``` or ``` ... ``` wrappers.
	if strings.HasPrefix(s, "```") {
		idx := strings.Index(s, "\n")
		if idx == -1 {
			return s
		}
		s = strings.TrimSpace(s[idx+1:])
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}
	return s
}

// Truncate shortens s to maxLen bytes for log and error output.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
