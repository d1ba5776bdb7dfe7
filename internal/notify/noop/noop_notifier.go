package noop

import (
	"context"

	"github.com/rs/zerolog"

	"aria/internal/notify"
	"aria/internal/port"
)

type noopNotifier struct {
	log zerolog.Logger
}

// NewNoopNotifier creates a no-op HandoffNotifier that logs the handoff summary.
func NewNoopNotifier(log zerolog.Logger) port.HandoffNotifier {
	return &noopNotifier{log: log}
}

func (n *noopNotifier) NotifyHandoff(_ context.Context, h port.Handoff) error {
	n.log.Info().
		Str("conversation_id", h.ConversationID).
		Int("pass", h.Pass).
		Str("subject", notify.Subject(h)).
		Msg("[NOOP HANDOFF] " + notify.TextBody(h))
	return nil
}
