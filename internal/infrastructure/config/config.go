package config

import (
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/shopspring/decimal"

	"github.com/iho/gorecon/internal/domain"
	"github.com/iho/gorecon/internal/matching"
)

// Config holds all application configuration.
type Config struct {
	// HTTP Server
	HTTPPort            string        `env:"HTTP_PORT"             envDefault:"8080"`
	HTTPReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT"     envDefault:"30s"`
	HTTPWriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT"    envDefault:"30s"`
	HTTPIdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT"     envDefault:"60s"`
	HTTPShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Session storage
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"24h"`

	// Matching thresholds
	AmountTolerance     float64  `env:"AMOUNT_TOLERANCE"      envDefault:"0.01"`
	DateRangeDays       int      `env:"DATE_RANGE_DAYS"       envDefault:"2"`
	RuleOrder           []string `env:"RULE_ORDER"            envDefault:"perfect,tolerance,reference"`
	SimilarityThreshold float64  `env:"SIMILARITY_THRESHOLD"  envDefault:"0.70"`
	ConfidenceThreshold float64  `env:"CONFIDENCE_THRESHOLD"  envDefault:"0.85"`
	SecondarySimilarity float64  `env:"SECONDARY_SIMILARITY"  envDefault:"0.65"`
	MaxSuggestions      int      `env:"MAX_SUGGESTIONS"       envDefault:"3"`
	MaxComparisons      int      `env:"MAX_COMPARISONS"       envDefault:"250000"`
	AmountBandPercent   float64  `env:"AMOUNT_BAND_PERCENT"   envDefault:"10.0"`
	Workers             int      `env:"WORKERS"               envDefault:"0"`
	TimingWindowDays    int      `env:"TIMING_WINDOW_DAYS"    envDefault:"10"`
	MaxSplitComponents  int      `env:"MAX_SPLIT_COMPONENTS"  envDefault:"4"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	err := env.Parse(cfg)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// Matching converts the environment settings into a matching.Config.
// A zero WORKERS value falls back to the default worker count.
func (c *Config) Matching() matching.Config {
	out := matching.Default()

	out.AmountTolerance = decimal.NewFromFloat(c.AmountTolerance)
	out.DateRangeDays = c.DateRangeDays
	out.SimilarityThreshold = c.SimilarityThreshold
	out.ConfidenceThreshold = c.ConfidenceThreshold
	out.SecondarySimilarity = c.SecondarySimilarity
	out.MaxSuggestions = c.MaxSuggestions
	out.MaxComparisons = c.MaxComparisons
	out.AmountBandPercent = c.AmountBandPercent
	out.TimingWindowDays = c.TimingWindowDays
	out.MaxSplitComponents = c.MaxSplitComponents

	if c.Workers > 0 {
		out.Workers = c.Workers
	}

	if len(c.RuleOrder) > 0 {
		order := make([]domain.RuleID, 0, len(c.RuleOrder))
		for _, id := range c.RuleOrder {
			order = append(order, domain.RuleID(id))
		}
		out.RuleOrder = order
	}

	return out
}
