package extraction

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"aria/internal/confidence"
	"aria/internal/domain"
	"aria/internal/logger"
	"aria/internal/port"
	"aria/internal/schema"
	"aria/internal/status"
	"aria/internal/validator"
)

// DefaultTimeout bounds the understanding call when no timeout is configured.
const DefaultTimeout = 60 * time.Second

// Input is one extraction pass over the conversation seen so far.
type Input struct {
	Conversation string
	// PriorType is the type inferred by an earlier pass, if known.
	PriorType *domain.TransactionType
	// Prior is the record produced by the previous pass, if any. Its values are
	// carried forward where the new pass has no stronger evidence.
	Prior *domain.TransactionRecord
	// ReferenceTime anchors relative and year-less dates. Zero means now.
	ReferenceTime time.Time
}

// Outcome is a finished pass plus the provider details behind it.
type Outcome struct {
	Record          *domain.TransactionRecord
	ModelUsed       string
	SecondaryModel  string
	FieldProvenance map[string]string
}

// Coordinator runs the understanding step and turns its evidence into a validated record.
type Coordinator struct {
	registry     *schema.Registry
	understander port.Understander
	calibrator   *confidence.Calibrator
	resolver     *status.Resolver
	timeout      time.Duration
	now          func() time.Time
	log          zerolog.Logger
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithTimeout sets the deadline for the understanding call.
func WithTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithCalibrator replaces the default confidence calibrator.
func WithCalibrator(cal *confidence.Calibrator) Option {
	return func(c *Coordinator) { c.calibrator = cal }
}

// WithClock replaces time.Now as the default reference time.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// WithLogger sets the logger used when the context carries none.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Coordinator) { c.log = l }
}

// NewCoordinator creates a coordinator over the given registry and understanding step.
func NewCoordinator(registry *schema.Registry, understander port.Understander, opts ...Option) *Coordinator {
	c := &Coordinator{
		registry:     registry,
		understander: understander,
		calibrator:   confidence.Default(),
		resolver:     status.NewResolver(registry),
		timeout:      DefaultTimeout,
		now:          time.Now,
		log:          zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Registry returns the schema registry the coordinator validates against.
func (c *Coordinator) Registry() *schema.Registry {
	return c.registry
}

// Extract runs one pass and returns the record.
// It fails only with ErrUnknownTransactionType, ErrExtractionUnavailable or the caller's context error.
func (c *Coordinator) Extract(ctx context.Context, in Input) (*domain.TransactionRecord, error) {
	out, err := c.Run(ctx, in)
	if err != nil {
		return nil, err
	}
	return out.Record, nil
}

// Run is Extract plus provider details.
func (c *Coordinator) Run(ctx context.Context, in Input) (*Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log := logger.FromContext(ctx, c.log)

	ref := in.ReferenceTime
	if ref.IsZero() {
		ref = c.now()
	}
	priorType := in.PriorType
	if priorType == nil && in.Prior != nil {
		t := in.Prior.Type()
		priorType = &t
	}

	u, err := c.understand(ctx, port.UnderstandInput{
		Conversation:  in.Conversation,
		PriorType:     priorType,
		ReferenceTime: ref,
	})
	if err != nil {
		return nil, err
	}

	txType, err := c.inferType(u.TransactionType, priorType)
	if err != nil {
		return nil, err
	}
	if priorType != nil && *priorType != txType {
		log.Info().
			Str("prior_type", string(*priorType)).
			Str("transaction_type", string(txType)).
			Msg("extraction.Coordinator: transaction type changed")
	}

	specs, err := c.registry.FieldsFor(txType)
	if err != nil {
		return nil, err
	}
	for name := range u.FieldEvidence {
		if _, ok := c.registry.Field(txType, name); !ok {
			log.Debug().Str("field", name).Str("transaction_type", string(txType)).
				Msg("extraction.Coordinator: dropping evidence for field outside schema")
		}
	}

	record := c.assemble(txType, specs, u, in.Prior, ref)
	if err := VerifyRecord(c.registry, record); err != nil {
		return nil, fmt.Errorf("assembling %s record: %w", txType, err)
	}

	log.Debug().
		Str("transaction_type", string(txType)).
		Str("status", string(record.Status())).
		Int("ambiguities", len(record.Ambiguities())).
		Int("missing", len(record.MissingCriticalInfo())).
		Str("model", u.ModelUsed).
		Msg("extraction.Coordinator: pass complete")

	return &Outcome{
		Record:          record,
		ModelUsed:       u.ModelUsed,
		SecondaryModel:  u.SecondaryModel,
		FieldProvenance: u.FieldProvenance,
	}, nil
}

// understand calls the understanding step under the configured deadline.
// Cancellation by the caller surfaces as the caller's context error; every other
// failure, including the deadline, is ErrExtractionUnavailable.
func (c *Coordinator) understand(ctx context.Context, in port.UnderstandInput) (*port.Understanding, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u, err := c.understander.Understand(callCtx, in)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		return nil, fmt.Errorf("understanding conversation: %w: %w", domain.ErrExtractionUnavailable, err)
	}
	if u == nil {
		return nil, fmt.Errorf("understanding conversation: %w: empty response", domain.ErrExtractionUnavailable)
	}
	return u, nil
}

// inferType parses the inferred label. An empty label keeps the prior type when there is one.
func (c *Coordinator) inferType(label string, prior *domain.TransactionType) (domain.TransactionType, error) {
	if label == "" && prior != nil {
		return *prior, nil
	}
	return domain.ParseTransactionType(label)
}

type fieldResult struct {
	value     domain.FieldValue
	ambiguity *domain.AmbiguityNote
	strength  domain.EvidenceStrength
}

func (c *Coordinator) assemble(
	txType domain.TransactionType,
	specs []schema.FieldSpec,
	u *port.Understanding,
	prior *domain.TransactionRecord,
	ref time.Time,
) *domain.TransactionRecord {
	confirmed := u.ExplicitConfirmation
	results := make(map[string]fieldResult, len(specs))
	signals := make(map[string]confidence.Signal, len(specs))

	for _, spec := range specs {
		ev, ok := u.FieldEvidence[spec.Name]
		if ok && ev.ExplicitConfirmation {
			confirmed = true
		}
		var raw any
		if ok {
			raw = ev.RawValue
		}
		res := validator.Normalize(raw, spec, ref)

		strength := domain.ParseEvidenceStrength(string(ev.Strength))
		if !res.Value.IsAbsent() && strength == domain.EvidenceNone {
			// A value with no stated strength is treated as a guess.
			strength = domain.EvidenceSpeculative
		}
		if res.Ambiguous() {
			strength = strength.Weaker(domain.EvidenceInferred)
		}

		results[spec.Name] = fieldResult{value: res.Value, ambiguity: res.Ambiguity, strength: strength}
		signals[spec.Name] = confidence.Signal{
			Strength: strength,
			Reported: ev.ReportedConfidence,
			Absent:   res.Value.IsAbsent(),
		}
	}

	scores := c.calibrator.Calibrate(specs, signals)
	if prior != nil {
		c.carryOver(specs, prior, results, scores)
	}

	values := make(map[string]domain.FieldValue, len(specs))
	fields := make([]domain.FieldEntry, 0, len(specs))
	var ambiguities []domain.AmbiguityNote
	for _, spec := range specs {
		r := results[spec.Name]
		values[spec.Name] = r.value
		fields = append(fields, domain.FieldEntry{Name: spec.Name, Value: r.value})
		if r.ambiguity != nil {
			ambiguities = append(ambiguities, *r.ambiguity)
		}
	}

	// The resolver only fails for unknown types, which FieldsFor already ruled out.
	st, _ := c.resolver.Resolve(txType, values, confirmed)

	var missing []domain.MissingInfoNote
	for _, spec := range specs {
		r := results[spec.Name]
		if !r.value.IsAbsent() || r.ambiguity != nil || spec.Importance == domain.ImportanceNone {
			continue
		}
		missing = append(missing, domain.MissingInfoNote{Field: spec.Name, Importance: spec.Importance})
	}

	return domain.NewTransactionRecord(domain.RecordParts{
		Type:        txType,
		Status:      st,
		Fields:      fields,
		Confidence:  scores,
		Ambiguities: ambiguities,
		Missing:     missing,
	})
}

// carryOver keeps values bound by the previous pass. A prior value survives when the
// new pass found nothing for the field, or when the prior score is in the explicit band
// and the new evidence is only speculative. Fields must match by name and kind.
func (c *Coordinator) carryOver(
	specs []schema.FieldSpec,
	prior *domain.TransactionRecord,
	results map[string]fieldResult,
	scores map[string]float64,
) {
	for _, spec := range specs {
		pv, ok := prior.Value(spec.Name)
		if !ok || pv.IsAbsent() || pv.Kind() != spec.Kind {
			continue
		}
		pscore, _ := prior.Confidence(spec.Name)
		cur := results[spec.Name]

		keep := false
		switch {
		case cur.value.IsAbsent() && cur.ambiguity == nil:
			keep = true
		case !cur.value.IsAbsent() && cur.strength == domain.EvidenceSpeculative &&
			c.calibrator.StrengthOf(pscore) == domain.EvidenceExplicit:
			keep = true
		}
		if !keep {
			continue
		}

		var amb *domain.AmbiguityNote
		if note, ok := prior.Ambiguity(spec.Name); ok && note.Contains(pv) {
			amb = &note
		}
		results[spec.Name] = fieldResult{value: pv, ambiguity: amb, strength: c.calibrator.StrengthOf(pscore)}
		scores[spec.Name] = pscore
	}
}
