// Package matching holds the shared configuration and stage contracts for
// the reconciliation pipeline. The stage implementations live in the
// exact, fuzzy, and exceptions subpackages.
package matching

import (
	"fmt"
	"runtime"

	"github.com/shopspring/decimal"

	"github.com/iho/gorecon/internal/domain"
)

// maxSplitComponentsLimit caps the split-transaction subset search; the
// search space grows combinatorially with the component count.
const maxSplitComponentsLimit = 4

// ConfigError reports an invalid matching parameter. It is fatal: a run
// never starts with a bad configuration.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid matching config: %s %s", e.Field, e.Reason)
}

// Config carries every tunable the matching stages read. Thresholds are
// validated once before a run begins; the stages treat the struct as
// read-only afterward.
type Config struct {
	// Exact stage
	AmountTolerance decimal.Decimal
	DateRangeDays   int
	RuleOrder       []domain.RuleID

	// Fuzzy stage
	SimilarityThreshold float64
	ConfidenceThreshold float64
	SecondarySimilarity float64
	MaxSuggestions      int
	MaxComparisons      int
	AmountBandPercent   float64
	Workers             int

	// Exception stage
	TimingWindowDays   int
	MaxSplitComponents int
}

// Default returns the configuration used when no overrides are supplied.
func Default() Config {
	return Config{
		AmountTolerance:     decimal.NewFromFloat(0.01),
		DateRangeDays:       2,
		RuleOrder:           []domain.RuleID{domain.RulePerfect, domain.RuleTolerance, domain.RuleReference},
		SimilarityThreshold: 0.70,
		ConfidenceThreshold: 0.85,
		SecondarySimilarity: 0.65,
		MaxSuggestions:      3,
		MaxComparisons:      250000,
		AmountBandPercent:   10.0,
		Workers:             runtime.GOMAXPROCS(0),
		TimingWindowDays:    10,
		MaxSplitComponents:  4,
	}
}

// Validate checks every parameter and returns a ConfigError naming the
// first offending field.
func (c Config) Validate() error {
	if c.AmountTolerance.IsNegative() {
		return &ConfigError{Field: "amount_tolerance", Reason: "must not be negative"}
	}

	if c.DateRangeDays < 0 {
		return &ConfigError{Field: "date_range_days", Reason: "must not be negative"}
	}

	if len(c.RuleOrder) == 0 {
		return &ConfigError{Field: "rule_order", Reason: "must name at least one exact rule"}
	}

	seen := make(map[domain.RuleID]bool, len(c.RuleOrder))
	for _, id := range c.RuleOrder {
		switch id {
		case domain.RulePerfect, domain.RuleTolerance, domain.RuleReference:
		default:
			return &ConfigError{Field: "rule_order", Reason: fmt.Sprintf("unknown exact rule %q", id)}
		}

		if seen[id] {
			return &ConfigError{Field: "rule_order", Reason: fmt.Sprintf("rule %q listed twice", id)}
		}
		seen[id] = true
	}

	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1 {
		return &ConfigError{Field: "similarity_threshold", Reason: "must be in [0,1]"}
	}

	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return &ConfigError{Field: "confidence_threshold", Reason: "must be in [0,1]"}
	}

	if c.ConfidenceThreshold < c.SimilarityThreshold {
		return &ConfigError{Field: "confidence_threshold", Reason: "must not be below similarity_threshold"}
	}

	if c.SecondarySimilarity < 0 || c.SecondarySimilarity > 1 {
		return &ConfigError{Field: "secondary_similarity", Reason: "must be in [0,1]"}
	}

	if c.MaxSuggestions < 1 {
		return &ConfigError{Field: "max_suggestions", Reason: "must be at least 1"}
	}

	if c.MaxComparisons < 1 {
		return &ConfigError{Field: "max_comparisons", Reason: "must be at least 1"}
	}

	if c.AmountBandPercent < 0 {
		return &ConfigError{Field: "amount_band_percent", Reason: "must not be negative"}
	}

	if c.Workers < 1 {
		return &ConfigError{Field: "workers", Reason: "must be at least 1"}
	}

	if c.TimingWindowDays < 0 {
		return &ConfigError{Field: "timing_window_days", Reason: "must not be negative"}
	}

	if c.MaxSplitComponents < 2 || c.MaxSplitComponents > maxSplitComponentsLimit {
		return &ConfigError{Field: "max_split_components", Reason: "must be between 2 and 4"}
	}

	return nil
}
