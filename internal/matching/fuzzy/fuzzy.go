// Package fuzzy implements the probabilistic matching stage. Candidate
// pairs survive an amount-band and date-window pre-filter, are scored in
// parallel, and are then consumed greedily in a deterministic order.
package fuzzy

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/iho/gorecon/internal/domain"
	"github.com/iho/gorecon/internal/matching"
)

// dateWindowMultiplier widens the exact stage's date range for candidate
// generation, so timing-shifted pairs the tolerance rule rejected still
// get scored here.
const dateWindowMultiplier = 3

// scoreBatchSize is how many pairs a worker scores between cancellation
// checks.
const scoreBatchSize = 512

// Result is the output of one fuzzy-matching pass. Records referenced by
// a suggestion leave the residual pools; they are surfaced for review
// instead of being classified as exceptions.
type Result struct {
	Matches        []domain.Match
	Suggestions    []domain.Suggestion
	ResidualLedger []*domain.Record
	ResidualBank   []*domain.Record
	Comparisons    int
	DeferredPairs  int
	Overflow       bool
}

// Engine scores residual pairs and accepts or suggests them against the
// configured thresholds.
type Engine struct {
	cfg matching.Config
}

func NewEngine(cfg matching.Config) *Engine {
	return &Engine{cfg: cfg}
}

// dateWindow is the candidate-generation window in days.
func (e *Engine) dateWindow() int {
	w := e.cfg.DateRangeDays * dateWindowMultiplier
	if w < 1 {
		w = 1
	}

	return w
}

type pair struct {
	ledger int
	bank   int
}

// Match scores the surviving candidate pairs and consumes them greedily
// by descending confidence. The context is checked between scoring
// batches; a cancelled run returns ctx.Err with no partial result.
func (e *Engine) Match(ctx context.Context, ledger, bank []*domain.Record) (Result, error) {
	ledger = matching.SortRecords(ledger)
	bank = matching.SortRecords(bank)

	res := Result{}

	pairs := e.candidates(ledger, bank)
	if len(pairs) > e.cfg.MaxComparisons {
		res.Overflow = true
		res.DeferredPairs = len(pairs) - e.cfg.MaxComparisons
		pairs = pairs[:e.cfg.MaxComparisons]
	}
	res.Comparisons = len(pairs)

	scores, err := e.scoreAll(ctx, ledger, bank, pairs)
	if err != nil {
		return Result{}, err
	}

	e.consume(ledger, bank, pairs, scores, &res)

	return res, nil
}

// candidates pre-filters pairs by amount band and date window. The bank
// pool is scanned through an amount-sorted view, so each ledger record
// only visits bank records inside its band.
func (e *Engine) candidates(ledger, bank []*domain.Record) []pair {
	byAmount := make([]int, len(bank))
	for i := range bank {
		byAmount[i] = i
	}

	sort.SliceStable(byAmount, func(i, j int) bool {
		return bank[byAmount[i]].Amount.LessThan(bank[byAmount[j]].Amount)
	})

	band := decimal.NewFromFloat(e.cfg.AmountBandPercent / 100)
	window := e.dateWindow()

	var pairs []pair

	for li, l := range ledger {
		spread := l.Amount.Abs().Mul(band)
		lo := l.Amount.Sub(spread)
		hi := l.Amount.Add(spread)

		start := sort.Search(len(byAmount), func(i int) bool {
			return bank[byAmount[i]].Amount.GreaterThanOrEqual(lo)
		})

		var inBand []int
		for i := start; i < len(byAmount); i++ {
			bi := byAmount[i]
			if bank[bi].Amount.GreaterThan(hi) {
				break
			}

			if domain.DayDelta(l, bank[bi]) <= window {
				inBand = append(inBand, bi)
			}
		}

		// Restore pool order so pair generation stays deterministic
		// and independent of the amount-sorted view.
		sort.Ints(inBand)

		for _, bi := range inBand {
			pairs = append(pairs, pair{ledger: li, bank: bi})
		}
	}

	return pairs
}

// scoreAll partitions the pairs across workers. Each worker writes into
// its own disjoint slice range, so no locking is needed; the barrier is
// the WaitGroup.
func (e *Engine) scoreAll(ctx context.Context, ledger, bank []*domain.Record, pairs []pair) ([]float64, error) {
	scores := make([]float64, len(pairs))
	window := e.dateWindow()

	workers := e.cfg.Workers
	if workers > len(pairs) {
		workers = len(pairs)
	}
	if workers < 1 {
		workers = 1
	}

	chunk := (len(pairs) + workers - 1) / workers

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * chunk
		end := start + chunk
		if start >= len(pairs) {
			break
		}
		if end > len(pairs) {
			end = len(pairs)
		}

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()

			for batch := start; batch < end; batch += scoreBatchSize {
				if ctx.Err() != nil {
					return
				}

				stop := batch + scoreBatchSize
				if stop > end {
					stop = end
				}

				for i := batch; i < stop; i++ {
					p := pairs[i]
					scores[i] = Score(ledger[p.ledger], bank[p.bank], window)
				}
			}
		}(start, end)
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return scores, nil
}

// consume walks pairs by descending confidence, accepting matches first
// and then emitting capped suggestions from whatever survives.
func (e *Engine) consume(ledger, bank []*domain.Record, pairs []pair, scores []float64, res *Result) {
	order := make([]int, len(pairs))
	for i := range order {
		order[i] = i
	}

	variance := func(i int) decimal.Decimal {
		p := pairs[i]
		return ledger[p.ledger].Amount.Sub(bank[p.bank].Amount).Abs()
	}

	sort.SliceStable(order, func(a, b int) bool {
		if scores[order[a]] != scores[order[b]] {
			return scores[order[a]] > scores[order[b]]
		}

		if c := variance(order[a]).Cmp(variance(order[b])); c != 0 {
			return c < 0
		}

		if pairs[order[a]].ledger != pairs[order[b]].ledger {
			return pairs[order[a]].ledger < pairs[order[b]].ledger
		}

		return pairs[order[a]].bank < pairs[order[b]].bank
	})

	matchedLedger := make([]bool, len(ledger))
	matchedBank := make([]bool, len(bank))

	for _, i := range order {
		p := pairs[i]
		if matchedLedger[p.ledger] || matchedBank[p.bank] {
			continue
		}

		if scores[i] < e.cfg.ConfidenceThreshold || variance(i).GreaterThan(e.cfg.AmountTolerance) {
			continue
		}

		matchedLedger[p.ledger] = true
		matchedBank[p.bank] = true
		res.Matches = append(res.Matches, domain.NewMatch(ledger[p.ledger], bank[p.bank], domain.RuleFuzzy, scores[i]))
	}

	suggested := make([]bool, len(ledger))
	suggestedBank := make([]bool, len(bank))
	perLedger := make([]int, len(ledger))

	for _, i := range order {
		p := pairs[i]
		if matchedLedger[p.ledger] || matchedBank[p.bank] {
			continue
		}

		if scores[i] < e.cfg.SimilarityThreshold {
			continue
		}

		if perLedger[p.ledger] >= e.cfg.MaxSuggestions {
			continue
		}
		perLedger[p.ledger]++

		suggested[p.ledger] = true
		suggestedBank[p.bank] = true
		res.Suggestions = append(res.Suggestions, domain.Suggestion{
			Ledger:     ledger[p.ledger],
			Bank:       bank[p.bank],
			Confidence: scores[i],
			Variance:   variance(i),
			DayDelta:   domain.DayDelta(ledger[p.ledger], bank[p.bank]),
		})
	}

	for i, l := range ledger {
		if !matchedLedger[i] && !suggested[i] {
			res.ResidualLedger = append(res.ResidualLedger, l)
		}
	}

	for i, b := range bank {
		if !matchedBank[i] && !suggestedBank[i] {
			res.ResidualBank = append(res.ResidualBank, b)
		}
	}
}
