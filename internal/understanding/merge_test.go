package understanding_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"aria/internal/domain"
	"aria/internal/port"
	"aria/internal/understanding"
	"aria/mocks"
)

func conf(f float64) *float64 { return &f }

func TestMergeUnderstander_BothSucceed(t *testing.T) {
	p := new(mocks.MockUnderstander)
	s := new(mocks.MockUnderstander)
	p.On("Understand", mock.Anything, testInput).Return(&port.Understanding{
		TransactionType:      "hotel_booking",
		ExplicitConfirmation: true,
		ModelUsed:            "claude",
		FieldEvidence: map[string]port.FieldEvidence{
			"destination": {RawValue: "Paris", Strength: domain.EvidenceExplicit, ReportedConfidence: conf(0.9)},
			"guests":      {RawValue: "2", Strength: domain.EvidenceExplicit, ReportedConfidence: conf(0.95)},
			"budget":      {RawValue: nil, Strength: domain.EvidenceNone},
		},
	}, nil)
	s.On("Understand", mock.Anything, testInput).Return(&port.Understanding{
		TransactionType: "Hotel_Booking",
		ModelUsed:       "gpt-4o",
		FieldEvidence: map[string]port.FieldEvidence{
			"destination": {RawValue: " paris ", Strength: domain.EvidenceExplicit, ReportedConfidence: conf(0.8)},
			"guests":      {RawValue: "3", Strength: domain.EvidenceExplicit, ReportedConfidence: conf(0.7)},
			"budget":      {RawValue: "$200", Strength: domain.EvidenceImplied, ReportedConfidence: conf(0.75)},
		},
	}, nil)

	m := understanding.NewMergeUnderstander(p, s, zerolog.Nop())
	out, err := m.Understand(context.Background(), testInput)
	require.NoError(t, err)

	assert.Equal(t, "hotel_booking", out.TransactionType)
	assert.True(t, out.ExplicitConfirmation)
	assert.Equal(t, "claude", out.ModelUsed)
	assert.Equal(t, "gpt-4o", out.SecondaryModel)

	t.Run("agreement_boosts_confidence", func(t *testing.T) {
		ev := out.FieldEvidence["destination"]
		assert.Equal(t, "Paris", ev.RawValue)
		assert.InDelta(t, 0.92, *ev.ReportedConfidence, 1e-9)
		assert.Equal(t, understanding.ProvenanceAgree, out.FieldProvenance["destination"])
	})

	t.Run("disagreement_keeps_both_readings", func(t *testing.T) {
		ev := out.FieldEvidence["guests"]
		assert.Equal(t, []any{"2", "3"}, ev.RawValue)
		assert.Equal(t, domain.EvidenceImplied, ev.Strength)
		assert.InDelta(t, 0.57, *ev.ReportedConfidence, 1e-9)
		assert.Equal(t, understanding.ProvenanceDisagreement, out.FieldProvenance["guests"])
	})

	t.Run("missing_primary_takes_secondary", func(t *testing.T) {
		ev := out.FieldEvidence["budget"]
		assert.Equal(t, "$200", ev.RawValue)
		assert.Equal(t, domain.EvidenceImplied, ev.Strength)
		assert.Equal(t, understanding.ProvenanceSecondary, out.FieldProvenance["budget"])
	})

	assert.Equal(t, understanding.ProvenanceAgree, out.FieldProvenance[understanding.ProvenanceTypeKey])
}

func TestMergeUnderstander_TypeDisagreementKeepsPrimary(t *testing.T) {
	p := new(mocks.MockUnderstander)
	s := new(mocks.MockUnderstander)
	p.On("Understand", mock.Anything, testInput).Return(output("claude"), nil)
	sec := output("gpt-4o")
	sec.TransactionType = "bill_payment"
	s.On("Understand", mock.Anything, testInput).Return(sec, nil)

	out, err := understanding.NewMergeUnderstander(p, s, zerolog.Nop()).Understand(context.Background(), testInput)
	require.NoError(t, err)
	assert.Equal(t, "hotel_booking", out.TransactionType)
	assert.Equal(t, understanding.ProvenanceDisagreement, out.FieldProvenance[understanding.ProvenanceTypeKey])
}

func TestMergeUnderstander_OneFails(t *testing.T) {
	t.Run("primary_fails", func(t *testing.T) {
		p := new(mocks.MockUnderstander)
		s := new(mocks.MockUnderstander)
		p.On("Understand", mock.Anything, testInput).Return(nil, errors.New("boom"))
		s.On("Understand", mock.Anything, testInput).Return(output("gpt-4o"), nil)

		out, err := understanding.NewMergeUnderstander(p, s, zerolog.Nop()).Understand(context.Background(), testInput)
		require.NoError(t, err)
		assert.Equal(t, "gpt-4o", out.ModelUsed)
		assert.Equal(t, "gpt-4o", out.SecondaryModel)
		assert.Equal(t, "secondary_only", out.FieldProvenance[understanding.ProvenanceSourceKey])
	})

	t.Run("secondary_fails", func(t *testing.T) {
		p := new(mocks.MockUnderstander)
		s := new(mocks.MockUnderstander)
		p.On("Understand", mock.Anything, testInput).Return(output("claude"), nil)
		s.On("Understand", mock.Anything, testInput).Return(nil, errors.New("boom"))

		out, err := understanding.NewMergeUnderstander(p, s, zerolog.Nop()).Understand(context.Background(), testInput)
		require.NoError(t, err)
		assert.Equal(t, "claude", out.ModelUsed)
		assert.Equal(t, "primary_only", out.FieldProvenance[understanding.ProvenanceSourceKey])
	})

	t.Run("both_fail", func(t *testing.T) {
		p := new(mocks.MockUnderstander)
		s := new(mocks.MockUnderstander)
		rl := understanding.NewRateLimitError("claude", errors.New("429"), 10*time.Second)
		p.On("Understand", mock.Anything, testInput).Return(nil, rl)
		s.On("Understand", mock.Anything, testInput).Return(nil, errors.New("boom"))

		_, err := understanding.NewMergeUnderstander(p, s, zerolog.Nop()).Understand(context.Background(), testInput)
		var rlErr *understanding.RateLimitError
		assert.ErrorAs(t, err, &rlErr)
		assert.Contains(t, err.Error(), "both providers failed")
	})
}
