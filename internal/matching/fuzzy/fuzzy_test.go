package fuzzy

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/gorecon/internal/domain"
	"github.com/iho/gorecon/internal/matching"
)

func rec(id, source string, day int, amount float64, desc string) *domain.Record {
	return &domain.Record{
		ID:          id,
		Source:      source,
		Date:        time.Date(2025, 7, day, 0, 0, 0, 0, time.UTC),
		Description: desc,
		Side:        domain.SideDebit,
		Amount:      decimal.NewFromFloat(amount),
	}
}

func TestTextSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, TextSimilarity("uber trip", "uber trip"))
	assert.Equal(t, 1.0, TextSimilarity("", ""))
	assert.Equal(t, 0.0, TextSimilarity("uber trip", ""))

	partial := TextSimilarity("uber trip", "uber")
	assert.Greater(t, partial, 0.5)
	assert.Less(t, partial, 1.0)
}

func TestScoreIsSymmetricInText(t *testing.T) {
	a := rec("L1", "ledger", 1, 45.32, "uber trip")
	b := rec("B1", "bank", 1, 45.32, "uber")

	assert.InDelta(t, Score(a, b, 6), Score(b, a, 6), 1e-9)
}

func TestAcceptedFuzzyMatch(t *testing.T) {
	// Truncated description, equal amount, same day: clears the
	// confidence threshold and the amount tolerance.
	ledger := []*domain.Record{rec("L1", "ledger", 1, 45.32, "uber trip")}
	bank := []*domain.Record{rec("B1", "bank", 1, 45.32, "uber")}

	res, err := NewEngine(matching.Default()).Match(context.Background(), ledger, bank)
	require.NoError(t, err)

	require.Len(t, res.Matches, 1)
	m := res.Matches[0]
	assert.Equal(t, domain.RuleFuzzy, m.Rule)
	assert.GreaterOrEqual(t, m.Confidence, 0.7)
	assert.True(t, m.Variance.IsZero())
	assert.Empty(t, res.ResidualLedger)
	assert.Empty(t, res.ResidualBank)
}

func TestAmountBeyondToleranceBecomesSuggestion(t *testing.T) {
	// Identical text but the variance exceeds the tolerance, so the pair
	// can only be suggested, never auto-accepted.
	ledger := []*domain.Record{rec("L1", "ledger", 1, 100.00, "office depot")}
	bank := []*domain.Record{rec("B1", "bank", 1, 101.00, "office depot")}

	res, err := NewEngine(matching.Default()).Match(context.Background(), ledger, bank)
	require.NoError(t, err)

	assert.Empty(t, res.Matches)
	require.Len(t, res.Suggestions, 1)
	assert.Equal(t, "B1", res.Suggestions[0].Bank.ID)
	assert.Empty(t, res.ResidualLedger)
	assert.Empty(t, res.ResidualBank)
}

func TestDissimilarRecordsStayResidual(t *testing.T) {
	ledger := []*domain.Record{rec("L1", "ledger", 1, 100.00, "payroll deposit")}
	bank := []*domain.Record{rec("B1", "bank", 20, 4500.00, "equipment purchase")}

	res, err := NewEngine(matching.Default()).Match(context.Background(), ledger, bank)
	require.NoError(t, err)

	assert.Empty(t, res.Matches)
	assert.Empty(t, res.Suggestions)
	assert.Len(t, res.ResidualLedger, 1)
	assert.Len(t, res.ResidualBank, 1)
}

func TestSuggestionsCappedPerRecord(t *testing.T) {
	cfg := matching.Default()
	cfg.MaxSuggestions = 2

	ledger := []*domain.Record{rec("L1", "ledger", 1, 100.00, "vendor invoice")}
	bank := []*domain.Record{
		rec("B1", "bank", 1, 102.00, "vendor invoice"),
		rec("B2", "bank", 1, 103.00, "vendor invoice"),
		rec("B3", "bank", 1, 104.00, "vendor invoice"),
	}

	res, err := NewEngine(cfg).Match(context.Background(), ledger, bank)
	require.NoError(t, err)

	require.Len(t, res.Suggestions, 2)
	// Smallest variance ranks first.
	assert.Equal(t, "B1", res.Suggestions[0].Bank.ID)
	assert.Equal(t, "B2", res.Suggestions[1].Bank.ID)
	// The uncapped third candidate stays residual.
	assert.Len(t, res.ResidualBank, 1)
	assert.Equal(t, "B3", res.ResidualBank[0].ID)
}

func TestOverflowReported(t *testing.T) {
	cfg := matching.Default()
	cfg.MaxComparisons = 4

	var ledger, bank []*domain.Record
	for i := 0; i < 3; i++ {
		ledger = append(ledger, rec("L"+string(rune('1'+i)), "ledger", 1, 100.00, "recurring fee"))
		bank = append(bank, rec("B"+string(rune('1'+i)), "bank", 1, 100.00, "recurring fee"))
	}

	res, err := NewEngine(cfg).Match(context.Background(), ledger, bank)
	require.NoError(t, err)

	assert.True(t, res.Overflow)
	assert.Equal(t, 5, res.DeferredPairs)
	assert.Equal(t, 4, res.Comparisons)
}

func TestOneToOneAcceptance(t *testing.T) {
	ledger := []*domain.Record{
		rec("L1", "ledger", 1, 45.32, "uber trip"),
		rec("L2", "ledger", 1, 45.32, "uber trip"),
	}
	bank := []*domain.Record{rec("B1", "bank", 1, 45.32, "uber")}

	res, err := NewEngine(matching.Default()).Match(context.Background(), ledger, bank)
	require.NoError(t, err)

	require.Len(t, res.Matches, 1)

	seen := map[string]int{}
	for _, m := range res.Matches {
		seen[m.Ledger.ID]++
		seen[m.Bank.ID]++
	}
	for id, n := range seen {
		assert.Equal(t, 1, n, "record %s consumed more than once", id)
	}
}

func TestDeterministicAcrossRuns(t *testing.T) {
	var ledger, bank []*domain.Record
	for i := 0; i < 8; i++ {
		ledger = append(ledger, rec("L"+string(rune('a'+i)), "ledger", 1+i%3, 45.32, "uber trip"))
		bank = append(bank, rec("B"+string(rune('a'+i)), "bank", 1+i%2, 45.32, "uber"))
	}

	eng := NewEngine(matching.Default())
	first, err := eng.Match(context.Background(), ledger, bank)
	require.NoError(t, err)
	second, err := eng.Match(context.Background(), ledger, bank)
	require.NoError(t, err)

	require.Equal(t, len(first.Matches), len(second.Matches))
	for i := range first.Matches {
		assert.Equal(t, first.Matches[i].Ledger.ID, second.Matches[i].Ledger.ID)
		assert.Equal(t, first.Matches[i].Bank.ID, second.Matches[i].Bank.ID)
	}

	require.Equal(t, len(first.Suggestions), len(second.Suggestions))
	for i := range first.Suggestions {
		assert.Equal(t, first.Suggestions[i].Ledger.ID, second.Suggestions[i].Ledger.ID)
		assert.Equal(t, first.Suggestions[i].Bank.ID, second.Suggestions[i].Bank.ID)
	}
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ledger := []*domain.Record{rec("L1", "ledger", 1, 45.32, "uber trip")}
	bank := []*domain.Record{rec("B1", "bank", 1, 45.32, "uber")}

	_, err := NewEngine(matching.Default()).Match(ctx, ledger, bank)
	assert.ErrorIs(t, err, context.Canceled)
}
