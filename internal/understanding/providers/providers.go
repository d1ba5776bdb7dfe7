// Package providers registers the built-in understanding providers.
package providers

import (
	"aria/internal/understanding"
	"aria/internal/understanding/claude"
	"aria/internal/understanding/gemini"
	"aria/internal/understanding/openai"
)

// RegisterAll registers the claude, openai and gemini provider factories.
func RegisterAll() {
	understanding.RegisterProvider("claude", claude.Factory)
	understanding.RegisterProvider("openai", openai.Factory)
	understanding.RegisterProvider("gemini", gemini.Factory)
}
