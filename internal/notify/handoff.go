// Package notify renders handoff summaries for the notifier implementations.
package notify

import (
	"fmt"
	"strings"

	"aria/internal/port"
)

// Subject returns the handoff email subject line.
func Subject(h port.Handoff) string {
	return fmt.Sprintf("Confirmed %s for conversation %s", h.Record.Type(), h.ConversationID)
}

// TextBody renders the handoff as plain text, one "field: value" line per present field.
func TextBody(h port.Handoff) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Conversation: %s\nPass: %d\nTransaction: %s\nStatus: %s\n\n",
		h.ConversationID, h.Pass, h.Record.Type(), h.Record.Status())
	for _, f := range h.Record.Fields() {
		if f.Value.IsAbsent() {
			continue
		}
		score, _ := h.Record.Confidence(f.Name)
		fmt.Fprintf(&b, "%s: %s (confidence %.2f)\n", f.Name, f.Value.String(), score)
	}
	if notes := h.Record.Ambiguities(); len(notes) > 0 {
		b.WriteString("\nNeeds review:\n")
		for _, n := range notes {
			opts := make([]string, len(n.Possibilities))
			for i, p := range n.Possibilities {
				opts[i] = p.String()
			}
			fmt.Fprintf(&b, "- %s: %s\n", n.Field, strings.Join(opts, " or "))
		}
	}
	return b.String()
}
