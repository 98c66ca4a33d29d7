package integration

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/iho/gorecon/internal/domain"
	"github.com/iho/gorecon/internal/matching"
	"github.com/iho/gorecon/internal/usecase"
	"github.com/iho/gorecon/tests/testutil"
)

func run(t *testing.T, input usecase.RunInput) *usecase.Session {
	t.Helper()

	session, err := testutil.NewUseCase().Run(context.Background(), input)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	return session
}

func TestPerfectMatchScenario(t *testing.T) {
	session := run(t, usecase.RunInput{
		Ledger: []*domain.Record{testutil.LedgerRecord("A1", "2025-07-01", "100.00", "PAYROLL")},
		Bank:   []*domain.Record{testutil.BankRecord("B1", "2025-07-01", "100.00", "PAYROLL")},
		Config: matching.Default(),
	})

	if len(session.Matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(session.Matches))
	}

	m := session.Matches[0]
	if m.Rule != domain.RulePerfect {
		t.Errorf("expected perfect rule, got %s", m.Rule)
	}
	if m.Confidence != 1.0 {
		t.Errorf("expected confidence 1.0, got %f", m.Confidence)
	}
	if !m.Variance.IsZero() {
		t.Errorf("expected zero variance, got %s", m.Variance)
	}
	if session.Stage != usecase.StageFinalized {
		t.Errorf("expected finalized session, got %s", session.Stage)
	}
}

func TestToleranceAndDateRangeScenario(t *testing.T) {
	cfg := matching.Default()
	cfg.AmountTolerance = decimal.RequireFromString("0.01")
	cfg.DateRangeDays = 3

	session := run(t, usecase.RunInput{
		Ledger: []*domain.Record{testutil.LedgerRecord("A1", "2025-07-01", "100.00", "OFFICE DEPOT #123")},
		Bank:   []*domain.Record{testutil.BankRecord("B1", "2025-07-02", "100.00", "OFFICE DEPOT")},
		Config: cfg,
	})

	if len(session.Matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(session.Matches))
	}
	if got := session.Matches[0].Rule; got != domain.RuleTolerance {
		t.Errorf("expected tolerance rule, got %s", got)
	}
	if got := session.Matches[0].DayDelta; got != 1 {
		t.Errorf("expected day delta 1, got %d", got)
	}
}

func TestFuzzyMatchScenario(t *testing.T) {
	cfg := matching.Default()
	cfg.SimilarityThreshold = 0.7
	cfg.ConfidenceThreshold = 0.7

	// Same amount but four days apart, outside the exact date range of 2
	// days, so only the fuzzy stage can pair these.
	session := run(t, usecase.RunInput{
		Ledger: []*domain.Record{testutil.LedgerRecord("A1", "2025-07-01", "45.32", "UBER TRIP")},
		Bank:   []*domain.Record{testutil.BankRecord("B1", "2025-07-05", "45.32", "UBER")},
		Config: cfg,
	})

	if len(session.Matches) != 1 {
		t.Fatalf("expected 1 fuzzy match, got %d", len(session.Matches))
	}

	m := session.Matches[0]
	if m.Rule != domain.RuleFuzzy {
		t.Errorf("expected fuzzy rule, got %s", m.Rule)
	}
	if m.Confidence < 0.7 {
		t.Errorf("expected confidence >= 0.7, got %f", m.Confidence)
	}
}

func TestMissingTransactionScenario(t *testing.T) {
	session := run(t, usecase.RunInput{
		Ledger: []*domain.Record{testutil.LedgerRecord("A1", "2025-07-01", "999.99", "ONE OFF WIRE")},
		Bank:   nil,
		Config: matching.Default(),
	})

	if len(session.Matches) != 0 {
		t.Fatalf("expected no matches, got %d", len(session.Matches))
	}
	if len(session.Exceptions) != 1 {
		t.Fatalf("expected 1 exception, got %d", len(session.Exceptions))
	}

	exc := session.Exceptions[0]
	if exc.Category != domain.CategoryMissing {
		t.Errorf("expected missing_transaction, got %s", exc.Category)
	}
	if exc.Status != domain.ExceptionOpen {
		t.Errorf("expected open status, got %s", exc.Status)
	}
	if exc.Severity < 0 || exc.Severity > 1 {
		t.Errorf("severity out of range: %f", exc.Severity)
	}
}

func TestMixedPipelineAccountsForEveryRecord(t *testing.T) {
	cfg := matching.Default()

	ledger := []*domain.Record{
		testutil.LedgerRecord("L1", "2025-07-01", "100.00", "PAYROLL"),
		testutil.LedgerRecord("L2", "2025-07-03", "45.32", "UBER TRIP HOME"),
		testutil.LedgerRecord("L3", "2025-07-05", "250.00", "RENT JULY"),
		testutil.LedgerRecord("L4", "2025-07-08", "12.50", "COFFEE SUPPLIES"),
	}
	bank := []*domain.Record{
		testutil.BankRecord("B1", "2025-07-01", "100.00", "PAYROLL"),
		testutil.BankRecord("B2", "2025-07-03", "45.32", "UBER TRIP"),
		testutil.BankRecord("B3", "2025-07-11", "250.00", "RENT JULY"),
	}

	session := run(t, usecase.RunInput{Ledger: ledger, Bank: bank, Config: cfg})

	matched := make(map[string]bool)
	for _, m := range session.Matches {
		matched[m.Ledger.ID] = true
		matched[m.Bank.ID] = true
	}

	suggested := make(map[string]bool)
	for _, s := range session.Suggestions {
		suggested[s.Ledger.ID] = true
		suggested[s.Bank.ID] = true
	}

	excepted := make(map[string]bool)
	for _, e := range session.Exceptions {
		if excepted[e.Record.ID] {
			t.Errorf("record %s classified twice", e.Record.ID)
		}
		excepted[e.Record.ID] = true
	}

	for _, r := range append(append([]*domain.Record{}, ledger...), bank...) {
		inMatched := matched[r.ID]
		inSuggested := suggested[r.ID]
		inExcepted := excepted[r.ID]

		if !inMatched && !inSuggested && !inExcepted {
			t.Errorf("record %s fell through the pipeline", r.ID)
		}
		if inMatched && inExcepted {
			t.Errorf("record %s both matched and excepted", r.ID)
		}
	}

	total := session.Stats.LedgerTotal + session.Stats.BankTotal
	if total != len(ledger)+len(bank) {
		t.Errorf("stats count %d records, want %d", total, len(ledger)+len(bank))
	}
}

func TestPipelineIsDeterministic(t *testing.T) {
	cfg := matching.Default()
	cfg.Workers = 4

	input := func() usecase.RunInput {
		return usecase.RunInput{
			Ledger: []*domain.Record{
				testutil.LedgerRecord("L1", "2025-07-01", "100.00", "PAYROLL"),
				testutil.LedgerRecord("L2", "2025-07-01", "100.00", "PAYROLL"),
				testutil.LedgerRecord("L3", "2025-07-02", "45.30", "UBER TRIP HOME"),
				testutil.LedgerRecord("L4", "2025-07-06", "80.00", "CATERING DEPOSIT"),
			},
			Bank: []*domain.Record{
				testutil.BankRecord("B1", "2025-07-01", "100.00", "PAYROLL"),
				testutil.BankRecord("B2", "2025-07-01", "100.00", "PAYROLL"),
				testutil.BankRecord("B3", "2025-07-02", "45.32", "UBER TRIP"),
				testutil.BankRecord("B4", "2025-07-15", "80.00", "CATERING"),
			},
			Config: cfg,
		}
	}

	first := run(t, input())
	for i := 0; i < 5; i++ {
		again := run(t, input())

		if len(again.Matches) != len(first.Matches) {
			t.Fatalf("run %d: %d matches, want %d", i, len(again.Matches), len(first.Matches))
		}
		for j := range first.Matches {
			a, b := first.Matches[j], again.Matches[j]
			if a.Ledger.ID != b.Ledger.ID || a.Bank.ID != b.Bank.ID || a.Rule != b.Rule {
				t.Fatalf("run %d pair %d: %s-%s (%s) vs %s-%s (%s)",
					i, j, a.Ledger.ID, a.Bank.ID, a.Rule, b.Ledger.ID, b.Bank.ID, b.Rule)
			}
		}

		if len(again.Exceptions) != len(first.Exceptions) {
			t.Fatalf("run %d: %d exceptions, want %d", i, len(again.Exceptions), len(first.Exceptions))
		}
		for j := range first.Exceptions {
			if first.Exceptions[j].Record.ID != again.Exceptions[j].Record.ID {
				t.Fatalf("run %d: exception order differs at %d", i, j)
			}
		}
	}
}

func TestExceptionReviewLifecycle(t *testing.T) {
	uc := testutil.NewUseCase()
	ctx := context.Background()

	session, err := uc.Run(ctx, usecase.RunInput{
		Ledger: []*domain.Record{testutil.LedgerRecord("L1", "2025-07-01", "55.00", "UNMATCHED CHARGE")},
		Config: matching.Default(),
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(session.Exceptions) != 1 {
		t.Fatalf("expected 1 exception, got %d", len(session.Exceptions))
	}

	recordID := session.Exceptions[0].Record.ID

	session, err = uc.ReviewException(ctx, session.ID, recordID, domain.ExceptionReviewed)
	if err != nil {
		t.Fatalf("review failed: %v", err)
	}
	if got := session.Exceptions[0].Status; got != domain.ExceptionReviewed {
		t.Errorf("expected reviewed, got %s", got)
	}

	session, err = uc.ReviewException(ctx, session.ID, recordID, domain.ExceptionResolved)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if got := session.Exceptions[0].Status; got != domain.ExceptionResolved {
		t.Errorf("expected resolved, got %s", got)
	}

	if _, err := uc.ReviewException(ctx, session.ID, recordID, domain.ExceptionReviewed); err == nil {
		t.Error("expected error moving resolved exception back to reviewed")
	}
}

func TestConcurrentReviewAndReads(t *testing.T) {
	uc := testutil.NewUseCase()
	ctx := context.Background()

	session, err := uc.Run(ctx, usecase.RunInput{
		Ledger: []*domain.Record{
			testutil.LedgerRecord("L1", "2025-07-01", "55.00", "UNMATCHED CHARGE"),
			testutil.LedgerRecord("L2", "2025-07-02", "77.00", "ANOTHER CHARGE"),
		},
		Config: matching.Default(),
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(session.Exceptions) != 2 {
		t.Fatalf("expected 2 exceptions, got %d", len(session.Exceptions))
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if _, err := uc.ReviewException(ctx, session.ID, "L1", domain.ExceptionReviewed); err != nil {
			t.Errorf("review failed: %v", err)
		}
		if _, err := uc.ReviewException(ctx, session.ID, "L2", domain.ExceptionReviewed); err != nil {
			t.Errorf("review failed: %v", err)
		}
	}()

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				got, err := uc.GetSession(ctx, session.ID)
				if err != nil {
					t.Errorf("get failed: %v", err)
					return
				}
				for _, exc := range got.Exceptions {
					if exc.Status != domain.ExceptionOpen && exc.Status != domain.ExceptionReviewed {
						t.Errorf("unexpected status %s", exc.Status)
						return
					}
				}
			}
		}()
	}

	wg.Wait()

	final, err := uc.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	for _, exc := range final.Exceptions {
		if exc.Status != domain.ExceptionReviewed {
			t.Errorf("record %s: expected reviewed after both updates, got %s", exc.Record.ID, exc.Status)
		}
	}
}
