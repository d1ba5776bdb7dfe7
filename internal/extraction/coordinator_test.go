package extraction_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"aria/internal/domain"
	"aria/internal/extraction"
	"aria/internal/port"
	"aria/internal/schema"
	"aria/mocks"
)

var ref = time.Date(2025, time.May, 1, 12, 0, 0, 0, time.UTC)

type stubUnderstander func(ctx context.Context, in port.UnderstandInput) (*port.Understanding, error)

func (f stubUnderstander) Understand(ctx context.Context, in port.UnderstandInput) (*port.Understanding, error) {
	return f(ctx, in)
}

func fixed(u *port.Understanding) stubUnderstander {
	return func(context.Context, port.UnderstandInput) (*port.Understanding, error) {
		return u, nil
	}
}

func ev(raw any, strength domain.EvidenceStrength) port.FieldEvidence {
	return port.FieldEvidence{RawValue: raw, Strength: strength}
}

func confPtr(f float64) *float64 { return &f }

func parisUnderstanding() *port.Understanding {
	return &port.Understanding{
		TransactionType: "hotel_booking",
		FieldEvidence: map[string]port.FieldEvidence{
			"destination":    ev("Paris", domain.EvidenceExplicit),
			"check_in_date":  ev("June 10", domain.EvidenceExplicit),
			"check_out_date": ev("June 14", domain.EvidenceExplicit),
			"guests":         ev("2 adults", domain.EvidenceExplicit),
			"budget":         ev("$200/night", domain.EvidenceExplicit),
		},
		ModelUsed: "stub-model",
	}
}

func newCoordinator(u port.Understander, opts ...extraction.Option) *extraction.Coordinator {
	return extraction.NewCoordinator(schema.Default(), u, opts...)
}

func value(t *testing.T, r *domain.TransactionRecord, name string) domain.FieldValue {
	t.Helper()
	v, ok := r.Value(name)
	require.True(t, ok, name)
	return v
}

func TestExtract_HotelScenario(t *testing.T) {
	c := newCoordinator(fixed(parisUnderstanding()))

	rec, err := c.Extract(context.Background(), extraction.Input{
		Conversation:  "I need a hotel in Paris for 2 adults, June 10-14, budget $200/night",
		ReferenceTime: ref,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.TransactionTypeHotelBooking, rec.Type())
	assert.Equal(t, domain.TransactionStatusPending, rec.Status())
	assert.Equal(t, "Paris", value(t, rec, "destination").Text())
	assert.Equal(t, "2025-06-10", value(t, rec, "check_in_date").String())
	assert.Equal(t, "2025-06-14", value(t, rec, "check_out_date").String())
	assert.Equal(t, int64(2), value(t, rec, "guests").Int())
	assert.Equal(t, 200.0, value(t, rec, "budget").Float())
	assert.True(t, value(t, rec, "rooms").IsAbsent())
	assert.Empty(t, rec.Ambiguities())
	assert.Empty(t, rec.MissingCriticalInfo())

	score, _ := rec.Confidence("destination")
	assert.Equal(t, 0.95, score)
	score, _ = rec.Confidence("rooms")
	assert.Equal(t, 0.0, score)
}

func TestExtract_BillAmountAlternatives(t *testing.T) {
	c := newCoordinator(fixed(&port.Understanding{
		TransactionType: "bill_payment",
		FieldEvidence: map[string]port.FieldEvidence{
			"amount": {RawValue: "around $50, maybe $45", Strength: domain.EvidenceImplied, ReportedConfidence: confPtr(0.8)},
		},
	}))

	rec, err := c.Extract(context.Background(), extraction.Input{Conversation: "pay around $50, maybe $45", ReferenceTime: ref})
	require.NoError(t, err)

	assert.Equal(t, domain.TransactionStatusInquiring, rec.Status())
	assert.Equal(t, 50.0, value(t, rec, "amount").Float())

	note, ok := rec.Ambiguity("amount")
	require.True(t, ok)
	assert.Equal(t, []domain.FieldValue{domain.FloatValue(45), domain.FloatValue(50)}, note.Possibilities)

	score, _ := rec.Confidence("amount")
	assert.GreaterOrEqual(t, score, 0.1)
	assert.LessOrEqual(t, score, 0.6)

	assert.Contains(t, rec.MissingCriticalInfo(), domain.MissingInfoNote{Field: "provider", Importance: domain.ImportanceHigh})
	assert.Contains(t, rec.MissingCriticalInfo(), domain.MissingInfoNote{Field: "account_number", Importance: domain.ImportanceHigh})
	assert.Contains(t, rec.MissingCriticalInfo(), domain.MissingInfoNote{Field: "autopay", Importance: domain.ImportanceLow})
	for _, m := range rec.MissingCriticalInfo() {
		assert.NotEqual(t, "amount", m.Field)
	}
}

func TestExtract_UnknownType(t *testing.T) {
	for _, label := range []string{"car_rental", "", "  "} {
		c := newCoordinator(fixed(&port.Understanding{TransactionType: label}))
		rec, err := c.Extract(context.Background(), extraction.Input{Conversation: "hello", ReferenceTime: ref})
		assert.ErrorIs(t, err, domain.ErrUnknownTransactionType, label)
		assert.Nil(t, rec)
	}
}

func TestExtract_EmptyTypeKeepsPriorType(t *testing.T) {
	prior := domain.TransactionTypeProductPurchase
	c := newCoordinator(fixed(&port.Understanding{TransactionType: ""}))

	rec, err := c.Extract(context.Background(), extraction.Input{Conversation: "ok", PriorType: &prior, ReferenceTime: ref})
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionTypeProductPurchase, rec.Type())
}

func TestExtract_UnderstanderFailure(t *testing.T) {
	boom := errors.New("provider down")
	m := new(mocks.MockUnderstander)
	m.On("Understand", mock.Anything, mock.Anything).Return(nil, boom)

	rec, err := newCoordinator(m).Extract(context.Background(), extraction.Input{Conversation: "x", ReferenceTime: ref})
	assert.Nil(t, rec)
	assert.ErrorIs(t, err, domain.ErrExtractionUnavailable)
	assert.ErrorIs(t, err, boom)
	m.AssertExpectations(t)
}

func TestExtract_EmptyResponse(t *testing.T) {
	m := new(mocks.MockUnderstander)
	m.On("Understand", mock.Anything, mock.Anything).Return(nil, nil)

	_, err := newCoordinator(m).Extract(context.Background(), extraction.Input{Conversation: "x", ReferenceTime: ref})
	assert.ErrorIs(t, err, domain.ErrExtractionUnavailable)
}

func TestExtract_Timeout(t *testing.T) {
	slow := stubUnderstander(func(ctx context.Context, _ port.UnderstandInput) (*port.Understanding, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	c := newCoordinator(slow, extraction.WithTimeout(20*time.Millisecond))

	rec, err := c.Extract(context.Background(), extraction.Input{Conversation: "x", ReferenceTime: ref})
	assert.Nil(t, rec)
	assert.ErrorIs(t, err, domain.ErrExtractionUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestExtract_CallerCancellation(t *testing.T) {
	t.Run("before_call", func(t *testing.T) {
		m := new(mocks.MockUnderstander)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := newCoordinator(m).Extract(ctx, extraction.Input{Conversation: "x"})
		assert.ErrorIs(t, err, context.Canceled)
		assert.NotErrorIs(t, err, domain.ErrExtractionUnavailable)
		m.AssertNotCalled(t, "Understand", mock.Anything, mock.Anything)
	})

	t.Run("during_call", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		u := stubUnderstander(func(context.Context, port.UnderstandInput) (*port.Understanding, error) {
			cancel()
			return parisUnderstanding(), nil
		})

		rec, err := newCoordinator(u).Extract(ctx, extraction.Input{Conversation: "x", ReferenceTime: ref})
		assert.Nil(t, rec)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestExtract_PassesInputToUnderstander(t *testing.T) {
	prior := domain.TransactionTypeBillPayment
	m := new(mocks.MockUnderstander)
	m.On("Understand", mock.Anything, mock.MatchedBy(func(in port.UnderstandInput) bool {
		return in.Conversation == "pay my bill" && in.PriorType != nil && *in.PriorType == prior && in.ReferenceTime.Equal(ref)
	})).Return(&port.Understanding{TransactionType: "bill_payment"}, nil)

	_, err := newCoordinator(m).Extract(context.Background(), extraction.Input{
		Conversation: "pay my bill", PriorType: &prior, ReferenceTime: ref,
	})
	require.NoError(t, err)
	m.AssertExpectations(t)
}

func TestExtract_DefaultsReferenceTimeToClock(t *testing.T) {
	var seen time.Time
	u := stubUnderstander(func(_ context.Context, in port.UnderstandInput) (*port.Understanding, error) {
		seen = in.ReferenceTime
		return parisUnderstanding(), nil
	})
	c := newCoordinator(u, extraction.WithClock(func() time.Time { return ref }))

	rec, err := c.Extract(context.Background(), extraction.Input{Conversation: "x"})
	require.NoError(t, err)
	assert.True(t, seen.Equal(ref))
	assert.Equal(t, "2025-06-10", value(t, rec, "check_in_date").String())
}

func TestExtract_KeySetAndScores(t *testing.T) {
	reg := schema.Default()
	for _, typ := range reg.AllTypes() {
		specs, err := reg.FieldsFor(typ)
		require.NoError(t, err)

		evidence := map[string]port.FieldEvidence{
			"not_in_any_schema": ev("x", domain.EvidenceExplicit),
			"destination":       ev("Rome", domain.EvidenceExplicit),
			"amount":            ev("garbage", domain.EvidenceExplicit),
		}
		for i, s := range specs {
			if i%2 == 0 {
				evidence[s.Name] = port.FieldEvidence{RawValue: "42", Strength: domain.EvidenceInferred, ReportedConfidence: confPtr(3)}
			}
		}
		c := newCoordinator(fixed(&port.Understanding{TransactionType: string(typ), FieldEvidence: evidence}))

		rec, err := c.Extract(context.Background(), extraction.Input{Conversation: "x", ReferenceTime: ref})
		require.NoError(t, err, typ)

		names := make([]string, len(specs))
		for i, s := range specs {
			names[i] = s.Name
		}
		assert.Equal(t, names, rec.FieldNames())

		scores := rec.ConfidenceScores()
		assert.Len(t, scores, len(specs))
		for _, s := range specs {
			score, ok := scores[s.Name]
			require.True(t, ok, s.Name)
			assert.GreaterOrEqual(t, score, 0.0)
			assert.LessOrEqual(t, score, 1.0)
			if v := value(t, rec, s.Name); v.IsAbsent() {
				assert.Equal(t, 0.0, score, s.Name)
			}
		}
		assert.NoError(t, extraction.VerifyRecord(reg, rec))
	}
}

func TestExtract_Idempotent(t *testing.T) {
	c := newCoordinator(fixed(&port.Understanding{
		TransactionType: "bill_payment",
		FieldEvidence: map[string]port.FieldEvidence{
			"provider": ev("City Power", domain.EvidenceExplicit),
			"amount":   ev([]any{"$50", "$45"}, domain.EvidenceImplied),
			"due_date": ev("next Friday", domain.EvidenceImplied),
		},
	}))
	in := extraction.Input{Conversation: "same text", ReferenceTime: ref}

	first, err := c.Extract(context.Background(), in)
	require.NoError(t, err)
	second, err := c.Extract(context.Background(), in)
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.JSONEq(t, string(a), string(b))
	assert.Equal(t, first.ConfidenceScores(), second.ConfidenceScores())
}

func TestExtract_Confirmation(t *testing.T) {
	t.Run("top_level_signal", func(t *testing.T) {
		u := parisUnderstanding()
		u.ExplicitConfirmation = true
		rec, err := newCoordinator(fixed(u)).Extract(context.Background(), extraction.Input{ReferenceTime: ref})
		require.NoError(t, err)
		assert.Equal(t, domain.TransactionStatusCompleted, rec.Status())
	})

	t.Run("field_signal", func(t *testing.T) {
		u := parisUnderstanding()
		e := u.FieldEvidence["guests"]
		e.ExplicitConfirmation = true
		u.FieldEvidence["guests"] = e
		rec, err := newCoordinator(fixed(u)).Extract(context.Background(), extraction.Input{ReferenceTime: ref})
		require.NoError(t, err)
		assert.Equal(t, domain.TransactionStatusCompleted, rec.Status())
	})

	t.Run("confirmation_without_required_fields", func(t *testing.T) {
		u := parisUnderstanding()
		u.ExplicitConfirmation = true
		delete(u.FieldEvidence, "guests")
		rec, err := newCoordinator(fixed(u)).Extract(context.Background(), extraction.Input{ReferenceTime: ref})
		require.NoError(t, err)
		assert.Equal(t, domain.TransactionStatusInquiring, rec.Status())
		assert.Contains(t, rec.MissingCriticalInfo(), domain.MissingInfoNote{Field: "guests", Importance: domain.ImportanceHigh})
	})
}

func TestExtract_AmbiguousDateIsNotMissing(t *testing.T) {
	u := parisUnderstanding()
	u.FieldEvidence["check_in_date"] = ev("next Friday", domain.EvidenceExplicit)

	rec, err := newCoordinator(fixed(u)).Extract(context.Background(), extraction.Input{ReferenceTime: ref})
	require.NoError(t, err)

	assert.True(t, value(t, rec, "check_in_date").IsAbsent())
	note, ok := rec.Ambiguity("check_in_date")
	require.True(t, ok)
	assert.Len(t, note.Possibilities, 2)
	for _, m := range rec.MissingCriticalInfo() {
		assert.NotEqual(t, "check_in_date", m.Field)
	}
	assert.Equal(t, domain.TransactionStatusInquiring, rec.Status())
}

func TestExtract_ValueWithoutStrength(t *testing.T) {
	u := parisUnderstanding()
	u.FieldEvidence["rooms"] = port.FieldEvidence{RawValue: float64(1)}

	rec, err := newCoordinator(fixed(u)).Extract(context.Background(), extraction.Input{ReferenceTime: ref})
	require.NoError(t, err)
	score, _ := rec.Confidence("rooms")
	assert.Equal(t, 0.2, score)
}

func TestExtract_CarryOver(t *testing.T) {
	first, err := newCoordinator(fixed(parisUnderstanding())).Extract(context.Background(), extraction.Input{ReferenceTime: ref})
	require.NoError(t, err)

	t.Run("absent_evidence_keeps_prior", func(t *testing.T) {
		c := newCoordinator(fixed(&port.Understanding{
			TransactionType: "hotel_booking",
			FieldEvidence: map[string]port.FieldEvidence{
				"rooms": ev("one room", domain.EvidenceExplicit),
			},
		}))
		rec, err := c.Extract(context.Background(), extraction.Input{Prior: first, ReferenceTime: ref})
		require.NoError(t, err)

		assert.Equal(t, "Paris", value(t, rec, "destination").Text())
		assert.Equal(t, int64(1), value(t, rec, "rooms").Int())
		score, _ := rec.Confidence("guests")
		assert.Equal(t, 0.95, score)
		assert.Equal(t, domain.TransactionStatusPending, rec.Status())
	})

	t.Run("speculative_does_not_override_explicit", func(t *testing.T) {
		u := parisUnderstanding()
		u.FieldEvidence["destination"] = ev("Lyon", domain.EvidenceSpeculative)
		rec, err := newCoordinator(fixed(u)).Extract(context.Background(), extraction.Input{Prior: first, ReferenceTime: ref})
		require.NoError(t, err)
		assert.Equal(t, "Paris", value(t, rec, "destination").Text())
		score, _ := rec.Confidence("destination")
		assert.Equal(t, 0.95, score)
	})

	t.Run("stronger_evidence_overrides", func(t *testing.T) {
		u := parisUnderstanding()
		u.FieldEvidence["destination"] = ev("Lyon", domain.EvidenceImplied)
		rec, err := newCoordinator(fixed(u)).Extract(context.Background(), extraction.Input{Prior: first, ReferenceTime: ref})
		require.NoError(t, err)
		assert.Equal(t, "Lyon", value(t, rec, "destination").Text())
		score, _ := rec.Confidence("destination")
		assert.Equal(t, 0.8, score)
	})

	t.Run("new_ambiguity_replaces_prior", func(t *testing.T) {
		u := parisUnderstanding()
		u.FieldEvidence["check_in_date"] = ev("next Friday", domain.EvidenceImplied)
		rec, err := newCoordinator(fixed(u)).Extract(context.Background(), extraction.Input{Prior: first, ReferenceTime: ref})
		require.NoError(t, err)
		assert.True(t, value(t, rec, "check_in_date").IsAbsent())
		_, ok := rec.Ambiguity("check_in_date")
		assert.True(t, ok)
	})
}

func TestExtract_TypeChangeCarriesSharedFields(t *testing.T) {
	bill, err := newCoordinator(fixed(&port.Understanding{
		TransactionType: "bill_payment",
		FieldEvidence: map[string]port.FieldEvidence{
			"amount":         ev("$50", domain.EvidenceExplicit),
			"payment_method": ev("credit card", domain.EvidenceExplicit),
		},
	})).Extract(context.Background(), extraction.Input{ReferenceTime: ref})
	require.NoError(t, err)

	m := new(mocks.MockUnderstander)
	m.On("Understand", mock.Anything, mock.MatchedBy(func(in port.UnderstandInput) bool {
		return in.PriorType != nil && *in.PriorType == domain.TransactionTypeBillPayment
	})).Return(&port.Understanding{
		TransactionType: "product_purchase",
		FieldEvidence: map[string]port.FieldEvidence{
			"product_name": ev("USB-C charger", domain.EvidenceExplicit),
		},
	}, nil)

	rec, err := newCoordinator(m).Extract(context.Background(), extraction.Input{Prior: bill, ReferenceTime: ref})
	require.NoError(t, err)

	assert.Equal(t, domain.TransactionTypeProductPurchase, rec.Type())
	assert.Equal(t, "credit_card", value(t, rec, "payment_method").Text())
	score, _ := rec.Confidence("payment_method")
	assert.Equal(t, 0.95, score)
	_, ok := rec.Value("amount")
	assert.False(t, ok)
	m.AssertExpectations(t)
}

func TestExtract_AmbiguityContainsChosenValue(t *testing.T) {
	inputs := []any{
		"between 3 and 5",
		[]any{"7", "9", "7"},
		"two or three",
		"2-3",
	}
	for _, raw := range inputs {
		c := newCoordinator(fixed(&port.Understanding{
			TransactionType: "product_purchase",
			FieldEvidence: map[string]port.FieldEvidence{
				"quantity": ev(raw, domain.EvidenceExplicit),
			},
		}))
		rec, err := c.Extract(context.Background(), extraction.Input{ReferenceTime: ref})
		require.NoError(t, err)

		v := value(t, rec, "quantity")
		note, ok := rec.Ambiguity("quantity")
		require.True(t, ok, raw)
		assert.GreaterOrEqual(t, len(note.Possibilities), 2)
		assert.True(t, note.Contains(v), "%v: chosen %s not in possibilities", raw, v)
		score, _ := rec.Confidence("quantity")
		assert.LessOrEqual(t, score, 0.6)
	}
}
