package confidence

import (
	"fmt"
	"math"

	"aria/internal/config"
	"aria/internal/domain"
	"aria/internal/schema"
)

// Band is the score range assigned to one evidence strength.
type Band struct {
	Min          float64
	Max          float64
	Default      float64
	MaxExclusive bool
}

// Contains reports whether score lies inside the band.
func (b Band) Contains(score float64) bool {
	if score < b.Min {
		return false
	}
	if b.MaxExclusive {
		return score < b.Max
	}
	return score <= b.Max
}

// Clamp moves score to the nearest value inside the band.
func (b Band) Clamp(score float64) float64 {
	if math.IsNaN(score) {
		return b.Default
	}
	if score < b.Min {
		return b.Min
	}
	if b.MaxExclusive && score >= b.Max {
		return math.Nextafter(b.Max, b.Min)
	}
	if score > b.Max {
		return b.Max
	}
	return score
}

// Bands is the calibration table keyed by evidence strength.
type Bands map[domain.EvidenceStrength]Band

// DefaultBands returns the built-in calibration table.
func DefaultBands() Bands {
	return Bands{
		domain.EvidenceExplicit:    {Min: 0.9, Max: 1.0, Default: 0.95},
		domain.EvidenceImplied:     {Min: 0.7, Max: 0.9, Default: 0.8, MaxExclusive: true},
		domain.EvidenceInferred:    {Min: 0.4, Max: 0.6, Default: 0.5},
		domain.EvidenceSpeculative: {Min: 0.1, Max: 0.3, Default: 0.2},
		domain.EvidenceNone:        {},
	}
}

// BandsFromConfig builds the table from configuration. The none band is always exactly 0.
func BandsFromConfig(cfg config.ConfidenceConfig) Bands {
	conv := func(b config.BandConfig) Band {
		return Band{Min: b.Min, Max: b.Max, Default: b.Default, MaxExclusive: b.MaxExclusive}
	}
	return Bands{
		domain.EvidenceExplicit:    conv(cfg.Explicit),
		domain.EvidenceImplied:     conv(cfg.Implied),
		domain.EvidenceInferred:    conv(cfg.Inferred),
		domain.EvidenceSpeculative: conv(cfg.Speculative),
		domain.EvidenceNone:        {},
	}
}

// Validate checks that every strength has a band inside [0,1] whose default lies within it.
func (b Bands) Validate() error {
	for _, s := range []domain.EvidenceStrength{
		domain.EvidenceExplicit, domain.EvidenceImplied, domain.EvidenceInferred, domain.EvidenceSpeculative,
	} {
		band, ok := b[s]
		if !ok {
			return fmt.Errorf("confidence: missing band for %s", s)
		}
		if band.Min < 0 || band.Max > 1 || band.Min > band.Max {
			return fmt.Errorf("confidence: band for %s must satisfy 0 <= min <= max <= 1", s)
		}
		if !band.Contains(band.Default) {
			return fmt.Errorf("confidence: default %.2f for %s is outside its band", band.Default, s)
		}
	}
	if none := b[domain.EvidenceNone]; none != (Band{}) {
		return fmt.Errorf("confidence: band for none must be exactly 0")
	}
	return nil
}

// Signal is the evidence the calibrator sees for one field.
type Signal struct {
	Strength domain.EvidenceStrength
	Reported *float64
	// Absent is set when the field resolved to no value; such fields always score 0.
	Absent bool
}

// Calibrator maps evidence strength to numeric confidence.
type Calibrator struct {
	bands Bands
}

// NewCalibrator creates a calibrator over a validated band table.
func NewCalibrator(bands Bands) (*Calibrator, error) {
	if err := bands.Validate(); err != nil {
		return nil, err
	}
	copied := make(Bands, len(bands))
	for k, v := range bands {
		copied[k] = v
	}
	return &Calibrator{bands: copied}, nil
}

// Default returns a calibrator over DefaultBands.
func Default() *Calibrator {
	c, _ := NewCalibrator(DefaultBands())
	return c
}

// Band returns the band for a strength. Unknown strengths use the none band.
func (c *Calibrator) Band(strength domain.EvidenceStrength) Band {
	return c.bands[domain.ParseEvidenceStrength(string(strength))]
}

// Score returns the confidence for one field. A reported confidence is clamped into
// the strength's band; otherwise the band default is used.
func (c *Calibrator) Score(strength domain.EvidenceStrength, reported *float64) float64 {
	band := c.Band(strength)
	if band == (Band{}) {
		return 0
	}
	if reported == nil {
		return band.Default
	}
	return band.Clamp(*reported)
}

// StrengthOf returns the strongest evidence level whose band contains score,
// or none when no band does.
func (c *Calibrator) StrengthOf(score float64) domain.EvidenceStrength {
	for _, s := range []domain.EvidenceStrength{
		domain.EvidenceExplicit, domain.EvidenceImplied, domain.EvidenceInferred, domain.EvidenceSpeculative,
	} {
		if c.bands[s].Contains(score) {
			return s
		}
	}
	return domain.EvidenceNone
}

// Calibrate returns exactly one score per spec. Fields without a signal score 0;
// signals for names outside specs are ignored.
func (c *Calibrator) Calibrate(specs []schema.FieldSpec, signals map[string]Signal) map[string]float64 {
	scores := make(map[string]float64, len(specs))
	for _, spec := range specs {
		sig, ok := signals[spec.Name]
		if !ok || sig.Absent {
			scores[spec.Name] = 0
			continue
		}
		scores[spec.Name] = c.Score(sig.Strength, sig.Reported)
	}
	return scores
}
