// Package exceptions classifies the records left over after both
// matching stages. Every residual record receives exactly one category,
// a severity score, and resolution hints for the review workflow.
package exceptions

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/gorecon/internal/domain"
	"github.com/iho/gorecon/internal/matching"
	"github.com/iho/gorecon/internal/matching/fuzzy"
)

// Severity normalization anchors: a record is maximally severe by amount
// at this magnitude, and maximally severe by age at this many days.
const (
	severityAmountCap = 10000.0
	severityAgeDays   = 90.0
)

// splitCandidateCap bounds the subset-sum search space per target record.
// Candidates are the nearest-by-date opposite-pool records.
const splitCandidateCap = 20

// Classifier applies the category rules in precedence order: timing
// difference, then amount mismatch, then missing transaction.
type Classifier struct {
	cfg matching.Config
}

func NewClassifier(cfg matching.Config) *Classifier {
	return &Classifier{cfg: cfg}
}

// Classify categorizes every residual record from both pools. now anchors
// the age component of severity so a run is reproducible when it is
// supplied by the caller.
func (c *Classifier) Classify(residualLedger, residualBank []*domain.Record, now time.Time) []domain.Exception {
	ledger := matching.SortRecords(residualLedger)
	bank := matching.SortRecords(residualBank)

	out := make([]domain.Exception, 0, len(ledger)+len(bank))

	for _, r := range ledger {
		out = append(out, c.classifyOne(r, bank, now))
	}

	for _, r := range bank {
		out = append(out, c.classifyOne(r, ledger, now))
	}

	return out
}

func (c *Classifier) classifyOne(r *domain.Record, opposite []*domain.Record, now time.Time) domain.Exception {
	exc := domain.Exception{
		Record:   r,
		Status:   domain.ExceptionOpen,
		Severity: c.severity(r, now),
	}

	if twin := c.findTimingTwin(r, opposite); twin != nil {
		exc.Category = domain.CategoryTiming
		exc.Detail = fmt.Sprintf("near-duplicate %s found %d days apart", twin.ID, domain.DayDelta(r, twin))

		return exc
	}

	if counterpart := c.findAmountMismatch(r, opposite); counterpart != nil {
		exc.Category = domain.CategoryAmount
		exc.Detail = fmt.Sprintf("counterpart %s differs by %s", counterpart.ID, r.Amount.Sub(counterpart.Amount).Abs())
		exc.SplitHint = c.findSplit(r, opposite)

		return exc
	}

	exc.Category = domain.CategoryMissing
	exc.Detail = "no plausible counterpart found"
	exc.SplitHint = c.findSplit(r, opposite)

	return exc
}

// findTimingTwin looks for an equal-amount, similar-description record in
// the opposite pool within the extended timing window.
func (c *Classifier) findTimingTwin(r *domain.Record, opposite []*domain.Record) *domain.Record {
	for _, o := range opposite {
		if r.Amount.Sub(o.Amount).Abs().GreaterThan(c.cfg.AmountTolerance) {
			continue
		}

		if domain.DayDelta(r, o) > c.cfg.TimingWindowDays {
			continue
		}

		if fuzzy.TextSimilarity(r.Description, o.Description) >= c.cfg.SecondarySimilarity {
			return o
		}
	}

	return nil
}

// findAmountMismatch looks for a record that matches by reference or by
// description but whose amount is off by more than the tolerance.
func (c *Classifier) findAmountMismatch(r *domain.Record, opposite []*domain.Record) *domain.Record {
	for _, o := range opposite {
		if r.Amount.Sub(o.Amount).Abs().LessThanOrEqual(c.cfg.AmountTolerance) {
			continue
		}

		if r.Reference != "" && r.Reference == o.Reference {
			return o
		}

		if domain.DayDelta(r, o) > c.cfg.TimingWindowDays {
			continue
		}

		if fuzzy.TextSimilarity(r.Description, o.Description) >= c.cfg.SecondarySimilarity {
			return o
		}
	}

	return nil
}

// severity blends amount magnitude and record age into [0,1].
func (c *Classifier) severity(r *domain.Record, now time.Time) float64 {
	amount, _ := r.Amount.Abs().Float64()

	amountPart := amount / severityAmountCap
	if amountPart > 1 {
		amountPart = 1
	}

	agePart := float64(r.AgeDays(now)) / severityAgeDays
	if agePart > 1 {
		agePart = 1
	}

	return 0.5*amountPart + 0.5*agePart
}

// findSplit searches for up to MaxSplitComponents opposite-pool records
// whose amounts sum to the target within tolerance. The first subset
// found in deterministic candidate order is reported; nothing is merged.
func (c *Classifier) findSplit(r *domain.Record, opposite []*domain.Record) *domain.SplitHint {
	target := r.Amount

	candidates := make([]*domain.Record, 0, len(opposite))
	for _, o := range opposite {
		if o.Amount.Sign() != target.Sign() {
			continue
		}

		if o.Amount.Abs().GreaterThan(target.Abs().Add(c.cfg.AmountTolerance)) {
			continue
		}

		candidates = append(candidates, o)
	}

	if len(candidates) < 2 {
		return nil
	}

	if len(candidates) > splitCandidateCap {
		sort.SliceStable(candidates, func(i, j int) bool {
			di, dj := domain.DayDelta(r, candidates[i]), domain.DayDelta(r, candidates[j])
			if di != dj {
				return di < dj
			}

			return candidates[i].ID < candidates[j].ID
		})
		candidates = candidates[:splitCandidateCap]
	}

	var pick func(start int, sum decimal.Decimal, chosen []*domain.Record) []*domain.Record
	pick = func(start int, sum decimal.Decimal, chosen []*domain.Record) []*domain.Record {
		if len(chosen) >= 2 && sum.Sub(target).Abs().LessThanOrEqual(c.cfg.AmountTolerance) {
			return append([]*domain.Record(nil), chosen...)
		}

		if len(chosen) == c.cfg.MaxSplitComponents {
			return nil
		}

		for i := start; i < len(candidates); i++ {
			next := sum.Add(candidates[i].Amount)
			if next.Abs().GreaterThan(target.Abs().Add(c.cfg.AmountTolerance)) {
				continue
			}

			if found := pick(i+1, next, append(chosen, candidates[i])); found != nil {
				return found
			}
		}

		return nil
	}

	components := pick(0, decimal.Zero, nil)
	if components == nil {
		return nil
	}

	total := decimal.Zero
	for _, comp := range components {
		total = total.Add(comp.Amount)
	}

	return &domain.SplitHint{Components: components, Total: total}
}
