package notify_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"aria/internal/domain"
	"aria/internal/notify"
	"aria/internal/port"
)

func handoff() port.Handoff {
	rec := domain.NewTransactionRecord(domain.RecordParts{
		Type:   domain.TransactionTypeBillPayment,
		Status: domain.TransactionStatusCompleted,
		Fields: []domain.FieldEntry{
			{Name: "provider", Value: domain.StringValue("City Power")},
			{Name: "amount", Value: domain.FloatValue(50)},
			{Name: "due_date", Value: domain.Absent(domain.FieldKindDate)},
		},
		Confidence: map[string]float64{"provider": 0.95, "amount": 0.5, "due_date": 0},
		Ambiguities: []domain.AmbiguityNote{{
			Field:         "amount",
			Possibilities: []domain.FieldValue{domain.FloatValue(45), domain.FloatValue(50)},
		}},
	})
	return port.Handoff{ConversationID: "conv-9", Pass: 3, Record: rec}
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "Confirmed bill_payment for conversation conv-9", notify.Subject(handoff()))
}

func TestTextBody(t *testing.T) {
	body := notify.TextBody(handoff())
	assert.Contains(t, body, "Conversation: conv-9\nPass: 3\n")
	assert.Contains(t, body, "provider: City Power (confidence 0.95)\n")
	assert.Contains(t, body, "amount: 50 (confidence 0.50)\n")
	assert.NotContains(t, body, "due_date")
	assert.Contains(t, body, "- amount: 45 or 50\n")
}
