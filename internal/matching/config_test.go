package matching

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/iho/gorecon/internal/domain"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{
			name:      "negative tolerance",
			mutate:    func(c *Config) { c.AmountTolerance = decimal.NewFromFloat(-0.01) },
			wantField: "amount_tolerance",
		},
		{
			name:      "negative date range",
			mutate:    func(c *Config) { c.DateRangeDays = -1 },
			wantField: "date_range_days",
		},
		{
			name:      "empty rule order",
			mutate:    func(c *Config) { c.RuleOrder = nil },
			wantField: "rule_order",
		},
		{
			name:      "unknown rule",
			mutate:    func(c *Config) { c.RuleOrder = []domain.RuleID{"fuzzy"} },
			wantField: "rule_order",
		},
		{
			name:      "duplicate rule",
			mutate:    func(c *Config) { c.RuleOrder = []domain.RuleID{domain.RulePerfect, domain.RulePerfect} },
			wantField: "rule_order",
		},
		{
			name:      "similarity above one",
			mutate:    func(c *Config) { c.SimilarityThreshold = 1.5 },
			wantField: "similarity_threshold",
		},
		{
			name:      "confidence below similarity",
			mutate:    func(c *Config) { c.ConfidenceThreshold = 0.5 },
			wantField: "confidence_threshold",
		},
		{
			name:      "zero suggestions",
			mutate:    func(c *Config) { c.MaxSuggestions = 0 },
			wantField: "max_suggestions",
		},
		{
			name:      "zero comparison budget",
			mutate:    func(c *Config) { c.MaxComparisons = 0 },
			wantField: "max_comparisons",
		},
		{
			name:      "zero workers",
			mutate:    func(c *Config) { c.Workers = 0 },
			wantField: "workers",
		},
		{
			name:      "split components below two",
			mutate:    func(c *Config) { c.MaxSplitComponents = 1 },
			wantField: "max_split_components",
		},
		{
			name:      "split components above four",
			mutate:    func(c *Config) { c.MaxSplitComponents = 8 },
			wantField: "max_split_components",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)

			err := cfg.Validate()

			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigError, got %v", err)
			}

			if cfgErr.Field != tt.wantField {
				t.Errorf("field = %s, want %s", cfgErr.Field, tt.wantField)
			}
		})
	}
}
