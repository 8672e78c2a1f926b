package judge

import (
	"fmt"
	"log/slog"

	"github.com/gyaneshwarpardhi/ngjudge/internal/normalize"
)

// Strategy decides how text is prepared before scoring and how similar it must be.
type Strategy interface {
	Name() string
	// Prepare maps extracted text (or a pattern) into the form that gets scored.
	Prepare(text string) string
	// PrepareEvent is Prepare for an event's text; failures are logged with its id.
	PrepareEvent(eventID, text string) string
	// Threshold is the score a pattern must strictly exceed to match.
	Threshold() float64
}

const (
	StrategyRaw        = "raw"
	StrategyNormalized = "normalized"
)

type strategy struct {
	name      string
	threshold float64
	norm      *normalize.Safe
}

func (s *strategy) Name() string { return s.name }
func (s *strategy) Threshold() float64 { return s.threshold }
func (s *strategy) Prepare(text string) string { return s.norm.Apply(text) }

func (s *strategy) PrepareEvent(eventID, text string) string {
	return s.norm.Apply(text, "event_id", eventID)
}

// Raw scores the literal text.
func Raw(threshold float64) Strategy {
	return &strategy{
		name:      StrategyRaw,
		threshold: threshold,
		norm:      normalize.NewSafe(normalize.Identity{}, nil),
	}
}

// Normalized scores the text after n has rewritten it. A failing n falls back to raw text.
func Normalized(threshold float64, n normalize.Normalizer, logger *slog.Logger) Strategy {
	return &strategy{
		name:      StrategyNormalized,
		threshold: threshold,
		norm:      normalize.NewSafe(n, logger),
	}
}

// NewStrategy builds the named strategy. The linguistic normalizer is only loaded
// when the normalized strategy is selected.
func NewStrategy(name string, threshold float64, logger *slog.Logger) (Strategy, error) {
	if err := ValidateThreshold(threshold); err != nil {
		return nil, err
	}
	switch name {
	case StrategyRaw:
		return Raw(threshold), nil
	case StrategyNormalized:
		n, err := normalize.NewLinguistic()
		if err != nil {
			return nil, err
		}
		return Normalized(threshold, n, logger), nil
	default:
		return nil, fmt.Errorf("judge: unknown strategy %q", name)
	}
}

// ValidateThreshold requires 0 < t < 1.
func ValidateThreshold(t float64) error {
	if !(t > 0 && t < 1) {
		return fmt.Errorf("judge: threshold %v must be in (0, 1)", t)
	}
	return nil
}
