// Package exact implements the deterministic rule-based matching stage.
// Rules run in the configured priority order, each consuming pairs from
// the residual pools before the next rule sees them.
package exact

import (
	"github.com/shopspring/decimal"

	"github.com/iho/gorecon/internal/domain"
	"github.com/iho/gorecon/internal/matching"
)

// Result is the output of one exact-matching pass.
type Result struct {
	Matches        []domain.Match
	ResidualLedger []*domain.Record
	ResidualBank   []*domain.Record
	RuleCounts     map[domain.RuleID]int
}

// Engine runs the configured exact rules over two record pools.
type Engine struct {
	cfg matching.Config
}

func NewEngine(cfg matching.Config) *Engine {
	return &Engine{cfg: cfg}
}

// Match pairs ledger and bank records greedily one-to-one. Both pools are
// stably sorted first so identical inputs always produce identical output.
func (e *Engine) Match(ledger, bank []*domain.Record) Result {
	res := Result{
		RuleCounts: make(map[domain.RuleID]int),
	}

	residual := matching.SortRecords(ledger)
	bp := newPool(matching.SortRecords(bank))

	for _, id := range e.cfg.RuleOrder {
		r := e.ruleFor(id)
		if r == nil {
			continue
		}

		var matched []domain.Match
		matched, residual = r.apply(residual, bp)

		res.Matches = append(res.Matches, matched...)
		res.RuleCounts[id] = len(matched)
	}

	res.ResidualLedger = residual
	res.ResidualBank = bp.remaining()

	return res
}

func (e *Engine) ruleFor(id domain.RuleID) rule {
	switch id {
	case domain.RulePerfect:
		return perfectRule{}
	case domain.RuleTolerance:
		return toleranceRule{tolerance: e.cfg.AmountTolerance, dateRange: e.cfg.DateRangeDays}
	case domain.RuleReference:
		return referenceRule{}
	default:
		return nil
	}
}

// rule consumes pairs from the ledger residual and the bank pool and
// returns the matches it made plus the surviving ledger residual.
type rule interface {
	apply(ledger []*domain.Record, bank *pool) ([]domain.Match, []*domain.Record)
}

// pool tracks which bank records are still available to later rules.
type pool struct {
	records []*domain.Record
	used    []bool
}

func newPool(records []*domain.Record) *pool {
	return &pool{records: records, used: make([]bool, len(records))}
}

func (p *pool) remaining() []*domain.Record {
	out := make([]*domain.Record, 0, len(p.records))
	for i, r := range p.records {
		if !p.used[i] {
			out = append(out, r)
		}
	}

	return out
}

// amountKey canonicalizes an amount for hash indexing so 100.5 and 100.50
// land on the same key.
func amountKey(d decimal.Decimal) string {
	return d.StringFixed(6)
}

type perfectRule struct{}

func (perfectRule) apply(ledger []*domain.Record, bank *pool) ([]domain.Match, []*domain.Record) {
	idx := make(map[string][]int)
	for i, b := range bank.records {
		if bank.used[i] {
			continue
		}

		key := b.DateKey() + "|" + amountKey(b.Amount) + "|" + b.Description
		idx[key] = append(idx[key], i)
	}

	var matches []domain.Match
	var residual []*domain.Record

	for _, l := range ledger {
		key := l.DateKey() + "|" + amountKey(l.Amount) + "|" + l.Description

		picked := -1
		for _, i := range idx[key] {
			if !bank.used[i] {
				picked = i
				break
			}
		}

		if picked < 0 {
			residual = append(residual, l)
			continue
		}

		bank.used[picked] = true
		matches = append(matches, domain.NewMatch(l, bank.records[picked], domain.RulePerfect, 1.0))
	}

	return matches, residual
}

type toleranceRule struct {
	tolerance decimal.Decimal
	dateRange int
}

func (r toleranceRule) apply(ledger []*domain.Record, bank *pool) ([]domain.Match, []*domain.Record) {
	idx := make(map[string][]int)
	for i, b := range bank.records {
		if bank.used[i] {
			continue
		}

		idx[r.bucket(b.Amount)] = append(idx[r.bucket(b.Amount)], i)
	}

	var matches []domain.Match
	var residual []*domain.Record

	for _, l := range ledger {
		picked := -1
		var bestDays int
		var bestVariance decimal.Decimal

		for _, i := range r.candidateIndexes(idx, l.Amount) {
			if bank.used[i] {
				continue
			}

			b := bank.records[i]

			variance := l.Amount.Sub(b.Amount).Abs()
			if variance.GreaterThan(r.tolerance) {
				continue
			}

			days := domain.DayDelta(l, b)
			if days > r.dateRange {
				continue
			}

			if picked < 0 || days < bestDays || (days == bestDays && variance.LessThan(bestVariance)) {
				picked = i
				bestDays = days
				bestVariance = variance
			}
		}

		if picked < 0 {
			residual = append(residual, l)
			continue
		}

		bank.used[picked] = true
		matches = append(matches, domain.NewMatch(l, bank.records[picked], domain.RuleTolerance, 1.0))
	}

	return matches, residual
}

// bucket groups amounts so only adjacent buckets need scanning. With a
// zero tolerance only exact amounts can match, so the key is the amount
// itself.
func (r toleranceRule) bucket(d decimal.Decimal) string {
	if r.tolerance.IsZero() {
		return amountKey(d)
	}

	return d.Div(r.tolerance).Floor().String()
}

func (r toleranceRule) candidateIndexes(idx map[string][]int, amount decimal.Decimal) []int {
	if r.tolerance.IsZero() {
		return idx[amountKey(amount)]
	}

	b := amount.Div(r.tolerance).Floor()

	var out []int
	for _, key := range []string{b.Sub(decimal.New(1, 0)).String(), b.String(), b.Add(decimal.New(1, 0)).String()} {
		out = append(out, idx[key]...)
	}

	return out
}

type referenceRule struct{}

func (referenceRule) apply(ledger []*domain.Record, bank *pool) ([]domain.Match, []*domain.Record) {
	idx := make(map[string][]int)
	for i, b := range bank.records {
		if bank.used[i] || b.Reference == "" {
			continue
		}

		idx[b.Reference] = append(idx[b.Reference], i)
	}

	var matches []domain.Match
	var residual []*domain.Record

	for _, l := range ledger {
		if l.Reference == "" {
			residual = append(residual, l)
			continue
		}

		picked := -1
		var bestDays int
		var bestVariance decimal.Decimal

		for _, i := range idx[l.Reference] {
			if bank.used[i] {
				continue
			}

			b := bank.records[i]
			days := domain.DayDelta(l, b)
			variance := l.Amount.Sub(b.Amount).Abs()

			if picked < 0 || days < bestDays || (days == bestDays && variance.LessThan(bestVariance)) {
				picked = i
				bestDays = days
				bestVariance = variance
			}
		}

		if picked < 0 {
			residual = append(residual, l)
			continue
		}

		bank.used[picked] = true
		matches = append(matches, domain.NewMatch(l, bank.records[picked], domain.RuleReference, 1.0))
	}

	return matches, residual
}
