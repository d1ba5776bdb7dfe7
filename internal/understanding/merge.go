package understanding

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"aria/internal/port"
)

// Provenance labels recorded per field in merge mode.
const (
	ProvenanceAgree        = "agree"
	ProvenancePrimary      = "primary"
	ProvenanceSecondary    = "secondary"
	ProvenanceDisagreement = "disagreement"
	ProvenanceSourceKey    = "_source"
	ProvenanceTypeKey      = "_transaction_type"
)

// MergeUnderstander wraps two Understanders, runs both in parallel, and merges their evidence.
type MergeUnderstander struct {
	primary   port.Understander
	secondary port.Understander
	log       zerolog.Logger
}

// NewMergeUnderstander creates a MergeUnderstander from primary and secondary providers.
func NewMergeUnderstander(primary, secondary port.Understander, log zerolog.Logger) *MergeUnderstander {
	return &MergeUnderstander{primary: primary, secondary: secondary, log: log}
}

func (m *MergeUnderstander) Understand(ctx context.Context, input port.UnderstandInput) (*port.Understanding, error) {
	type result struct {
		output *port.Understanding
		err    error
	}

	var wg sync.WaitGroup
	primaryCh := make(chan result, 1)
	secondaryCh := make(chan result, 1)

	wg.Add(2)
	go func() {
		defer wg.Done()
		out, err := m.primary.Understand(ctx, input)
		primaryCh <- result{out, err}
	}()
	go func() {
		defer wg.Done()
		out, err := m.secondary.Understand(ctx, input)
		secondaryCh <- result{out, err}
	}()

	wg.Wait()
	close(primaryCh)
	close(secondaryCh)

	pResult := <-primaryCh
	sResult := <-secondaryCh

	if pResult.err == nil && pResult.output == nil {
		pResult.err = fmt.Errorf("empty understanding")
	}
	if sResult.err == nil && sResult.output == nil {
		sResult.err = fmt.Errorf("empty understanding")
	}

	if pResult.err != nil && sResult.err != nil {
		return nil, fmt.Errorf("both providers failed: primary: %w; secondary: %w", pResult.err, sResult.err)
	}

	if pResult.err != nil {
		m.log.Warn().Err(pResult.err).Msg("understanding.MergeUnderstander: primary failed, using secondary only")
		out := *sResult.output
		out.FieldProvenance = map[string]string{ProvenanceSourceKey: "secondary_only"}
		out.SecondaryModel = out.ModelUsed
		return &out, nil
	}

	if sResult.err != nil {
		m.log.Warn().Err(sResult.err).Msg("understanding.MergeUnderstander: secondary failed, using primary only")
		out := *pResult.output
		out.FieldProvenance = map[string]string{ProvenanceSourceKey: "primary_only"}
		return &out, nil
	}

	return mergeUnderstandings(pResult.output, sResult.output), nil
}

func mergeUnderstandings(primary, secondary *port.Understanding) *port.Understanding {
	provenance := make(map[string]string)
	merged := &port.Understanding{
		TransactionType:      primary.TransactionType,
		FieldEvidence:        make(map[string]port.FieldEvidence),
		ExplicitConfirmation: primary.ExplicitConfirmation,
		ModelUsed:            primary.ModelUsed,
		PromptUsed:           primary.PromptUsed,
		FieldProvenance:      provenance,
		SecondaryModel:       secondary.ModelUsed,
	}

	switch {
	case strings.TrimSpace(primary.TransactionType) == "":
		merged.TransactionType = secondary.TransactionType
		provenance[ProvenanceTypeKey] = ProvenanceSecondary
	case !strings.EqualFold(strings.TrimSpace(primary.TransactionType), strings.TrimSpace(secondary.TransactionType)):
		provenance[ProvenanceTypeKey] = ProvenanceDisagreement
	default:
		provenance[ProvenanceTypeKey] = ProvenanceAgree
	}

	names := make(map[string]struct{})
	for name := range primary.FieldEvidence {
		names[name] = struct{}{}
	}
	for name := range secondary.FieldEvidence {
		names[name] = struct{}{}
	}
	sorted := make([]string, 0, len(names))
	for name := range names {
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)

	for _, name := range sorted {
		p := primary.FieldEvidence[name]
		s := secondary.FieldEvidence[name]
		ev, label := mergeEvidence(p, s)
		merged.FieldEvidence[name] = ev
		provenance[name] = label
	}
	return merged
}

// mergeEvidence implements the merge strategy for one field.
// Agreement boosts the reported confidence. Disagreement keeps both readings as
// alternatives, primary first, one strength tier weaker and with confidence reduced.
func mergeEvidence(p, s port.FieldEvidence) (port.FieldEvidence, string) {
	pEmpty, sEmpty := emptyRaw(p.RawValue), emptyRaw(s.RawValue)

	switch {
	case pEmpty && sEmpty:
		return p, ProvenancePrimary
	case pEmpty:
		return s, ProvenanceSecondary
	case sEmpty:
		return p, ProvenancePrimary
	}

	if sameRaw(p.RawValue, s.RawValue) {
		out := p
		if p.ReportedConfidence != nil && *p.ReportedConfidence < 1.0 {
			boosted := *p.ReportedConfidence + (1.0-*p.ReportedConfidence)*0.2
			if boosted > 1.0 {
				boosted = 1.0
			}
			out.ReportedConfidence = &boosted
		}
		out.ExplicitConfirmation = p.ExplicitConfirmation || s.ExplicitConfirmation
		return out, ProvenanceAgree
	}

	out := port.FieldEvidence{
		RawValue:             append(candidates(p.RawValue), candidates(s.RawValue)...),
		Strength:             p.Strength.Downgrade(),
		ExplicitConfirmation: p.ExplicitConfirmation,
	}
	if p.ReportedConfidence != nil {
		reduced := *p.ReportedConfidence * 0.6
		out.ReportedConfidence = &reduced
	}
	return out, ProvenanceDisagreement
}

func emptyRaw(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []any:
		return len(t) == 0
	}
	return false
}

func sameRaw(a, b any) bool {
	return canonical(a) == canonical(b)
}

func canonical(v any) string {
	return strings.ToLower(strings.Join(strings.Fields(fmt.Sprint(v)), " "))
}

func candidates(v any) []any {
	if list, ok := v.([]any); ok {
		return append([]any(nil), list...)
	}
	return []any{v}
}
