package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/gorecon/internal/domain"
	"github.com/iho/gorecon/internal/usecase"
)

func sampleSession() *usecase.Session {
	ledger := &domain.Record{
		ID: "L1", Source: "ledger",
		Date:        time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		Description: "payroll", Side: domain.SideDebit,
		Amount: decimal.NewFromFloat(100.00),
	}
	bank := &domain.Record{
		ID: "B1", Source: "bank",
		Date:        time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		Description: "payroll", Side: domain.SideDebit,
		Amount: decimal.NewFromFloat(100.00),
	}
	missing := &domain.Record{
		ID: "L2", Source: "ledger",
		Date:        time.Date(2025, 7, 2, 0, 0, 0, 0, time.UTC),
		Description: "mystery", Side: domain.SideDebit,
		Amount: decimal.NewFromFloat(55.00),
	}

	return &usecase.Session{
		ID:        "s1",
		Stage:     usecase.StageFinalized,
		CreatedAt: time.Date(2025, 7, 3, 0, 0, 0, 0, time.UTC),
		Matches:   []domain.Match{domain.NewMatch(ledger, bank, domain.RulePerfect, 1.0)},
		Exceptions: []domain.Exception{{
			Record:   missing,
			Category: domain.CategoryMissing,
			Severity: 0.3,
			Status:   domain.ExceptionOpen,
			Detail:   "no plausible counterpart found",
		}},
		Rejections: []domain.Rejection{{
			Record: &domain.Record{ID: "L3", Source: "ledger"},
			Reason: "record date is required",
		}},
		Stats: usecase.Stats{
			LedgerTotal:    3,
			BankTotal:      1,
			RejectedCount:  1,
			MatchedPairs:   1,
			ExceptionCount: 1,
			MatchRate:      2.0 / 3.0,
			RuleCounts:     map[domain.RuleID]int{domain.RulePerfect: 1},
			CategoryCounts: map[domain.ExceptionCategory]int{domain.CategoryMissing: 1},
		},
	}
}

func TestRenderText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleSession(), FormatText))

	out := buf.String()
	assert.Contains(t, out, "Reconciliation session s1")
	assert.Contains(t, out, "perfect")
	assert.Contains(t, out, "L1 <-> B1")
	assert.Contains(t, out, "missing_transaction")
	assert.Contains(t, out, "record date is required")
}

func TestRenderJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleSession(), FormatJSON))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	assert.Equal(t, "s1", decoded["id"])
	assert.Equal(t, "FINALIZED", decoded["stage"])

	matches, ok := decoded["matches"].([]any)
	require.True(t, ok)
	require.Len(t, matches, 1)

	stats, ok := decoded["stats"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1), stats["matched_pairs"])
}

func TestRenderCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleSession(), FormatCSV))

	rows, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)

	// header + match + exception + rejection
	require.Len(t, rows, 4)
	assert.Equal(t, "match", rows[1][0])
	assert.Equal(t, "exception", rows[2][0])
	assert.Equal(t, "rejected", rows[3][0])
}

func TestRenderUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	err := Render(&buf, sampleSession(), Format("xml"))
	require.Error(t, err)
}
