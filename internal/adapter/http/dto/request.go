package dto

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/gorecon/internal/domain"
	"github.com/iho/gorecon/internal/matching"
)

// ReconcileRequest is the body of POST /api/v1/reconciliations.
type ReconcileRequest struct {
	Ledger []RecordRequest `json:"ledger"`
	Bank   []RecordRequest `json:"bank"`
	Config *ConfigRequest  `json:"config,omitempty"`
}

// Validate checks request-level shape. Per-record problems are not
// errors here; they surface in the session's rejected bucket.
func (r *ReconcileRequest) Validate() error {
	if len(r.Ledger) == 0 && len(r.Bank) == 0 {
		return fmt.Errorf("at least one record pool is required")
	}

	return nil
}

// RecordRequest is one transaction record in a reconcile request.
type RecordRequest struct {
	ID          string `json:"id"`
	Date        string `json:"date"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
	Reference   string `json:"reference,omitempty"`
}

// ToDomain converts the request record, normalizing text the same way
// the CSV ingester does.
func (r RecordRequest) ToDomain(source string) (*domain.Record, error) {
	date, err := parseRequestDate(r.Date)
	if err != nil {
		return nil, fmt.Errorf("record %s: %v", r.ID, err)
	}

	amount, err := decimal.NewFromString(r.Amount)
	if err != nil {
		return nil, fmt.Errorf("record %s: unparseable amount %q", r.ID, r.Amount)
	}

	side := domain.SideCredit
	if amount.IsNegative() {
		side = domain.SideDebit
	}

	return &domain.Record{
		ID:          r.ID,
		Source:      source,
		Date:        date,
		Description: domain.NormalizeDescription(r.Description),
		Reference:   domain.NormalizeReference(r.Reference),
		Side:        side,
		Amount:      amount,
	}, nil
}

func parseRequestDate(s string) (time.Time, error) {
	for _, format := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(format, s); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// ConfigRequest overrides individual matching parameters for one run.
// Unset fields keep the server defaults.
type ConfigRequest struct {
	AmountTolerance     *float64 `json:"amount_tolerance,omitempty"`
	DateRangeDays       *int     `json:"date_range_days,omitempty"`
	RuleOrder           []string `json:"rule_order,omitempty"`
	SimilarityThreshold *float64 `json:"similarity_threshold,omitempty"`
	ConfidenceThreshold *float64 `json:"confidence_threshold,omitempty"`
	SecondarySimilarity *float64 `json:"secondary_similarity,omitempty"`
	MaxSuggestions      *int     `json:"max_suggestions,omitempty"`
	MaxComparisons      *int     `json:"max_comparisons,omitempty"`
	AmountBandPercent   *float64 `json:"amount_band_percent,omitempty"`
	TimingWindowDays    *int     `json:"timing_window_days,omitempty"`
	MaxSplitComponents  *int     `json:"max_split_components,omitempty"`
}

// Apply layers the overrides onto base. The result is validated by the
// use case, not here.
func (c *ConfigRequest) Apply(base matching.Config) matching.Config {
	if c == nil {
		return base
	}

	if c.AmountTolerance != nil {
		base.AmountTolerance = decimal.NewFromFloat(*c.AmountTolerance)
	}
	if c.DateRangeDays != nil {
		base.DateRangeDays = *c.DateRangeDays
	}
	if len(c.RuleOrder) > 0 {
		order := make([]domain.RuleID, 0, len(c.RuleOrder))
		for _, id := range c.RuleOrder {
			order = append(order, domain.RuleID(id))
		}
		base.RuleOrder = order
	}
	if c.SimilarityThreshold != nil {
		base.SimilarityThreshold = *c.SimilarityThreshold
	}
	if c.ConfidenceThreshold != nil {
		base.ConfidenceThreshold = *c.ConfidenceThreshold
	}
	if c.SecondarySimilarity != nil {
		base.SecondarySimilarity = *c.SecondarySimilarity
	}
	if c.MaxSuggestions != nil {
		base.MaxSuggestions = *c.MaxSuggestions
	}
	if c.MaxComparisons != nil {
		base.MaxComparisons = *c.MaxComparisons
	}
	if c.AmountBandPercent != nil {
		base.AmountBandPercent = *c.AmountBandPercent
	}
	if c.TimingWindowDays != nil {
		base.TimingWindowDays = *c.TimingWindowDays
	}
	if c.MaxSplitComponents != nil {
		base.MaxSplitComponents = *c.MaxSplitComponents
	}

	return base
}

// ReviewExceptionRequest is the body of the exception review endpoint.
type ReviewExceptionRequest struct {
	Status string `json:"status"`
}

// ToStatus validates the requested status value.
func (r ReviewExceptionRequest) ToStatus() (domain.ExceptionStatus, error) {
	switch domain.ExceptionStatus(r.Status) {
	case domain.ExceptionReviewed:
		return domain.ExceptionReviewed, nil
	case domain.ExceptionResolved:
		return domain.ExceptionResolved, nil
	default:
		return "", fmt.Errorf("unknown exception status %q", r.Status)
	}
}
