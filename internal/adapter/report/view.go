package report

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/gorecon/internal/domain"
	"github.com/iho/gorecon/internal/usecase"
)

// sessionView is the JSON shape of a rendered session.
type sessionView struct {
	ID          string           `json:"id"`
	Stage       string           `json:"stage"`
	CreatedAt   time.Time        `json:"created_at"`
	FinalizedAt time.Time        `json:"finalized_at"`
	Stats       statsView        `json:"stats"`
	Matches     []matchView      `json:"matches"`
	Suggestions []suggestionView `json:"suggestions,omitempty"`
	Exceptions  []exceptionView  `json:"exceptions,omitempty"`
	Rejections  []rejectionView  `json:"rejections,omitempty"`
}

type statsView struct {
	LedgerTotal     int            `json:"ledger_total"`
	BankTotal       int            `json:"bank_total"`
	RejectedCount   int            `json:"rejected_count"`
	MatchedPairs    int            `json:"matched_pairs"`
	SuggestionCount int            `json:"suggestion_count"`
	ExceptionCount  int            `json:"exception_count"`
	MatchRate       float64        `json:"match_rate"`
	RuleCounts      map[string]int `json:"rule_counts"`
	CategoryCounts  map[string]int `json:"category_counts"`
	Comparisons     int            `json:"comparisons"`
	DeferredPairs   int            `json:"deferred_pairs,omitempty"`
	Overflow        bool           `json:"overflow"`
}

type matchView struct {
	LedgerID   string          `json:"ledger_id"`
	BankID     string          `json:"bank_id"`
	Rule       string          `json:"rule"`
	Confidence float64         `json:"confidence"`
	Variance   decimal.Decimal `json:"variance"`
	DayDelta   int             `json:"day_delta"`
}

type suggestionView struct {
	LedgerID   string          `json:"ledger_id"`
	BankID     string          `json:"bank_id"`
	Confidence float64         `json:"confidence"`
	Variance   decimal.Decimal `json:"variance"`
	DayDelta   int             `json:"day_delta"`
}

type exceptionView struct {
	RecordID  string          `json:"record_id"`
	Source    string          `json:"source"`
	Category  string          `json:"category"`
	Severity  float64         `json:"severity"`
	Status    string          `json:"status"`
	Detail    string          `json:"detail,omitempty"`
	SplitHint *splitHintView  `json:"split_hint,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
}

type splitHintView struct {
	ComponentIDs []string        `json:"component_ids"`
	Total        decimal.Decimal `json:"total"`
}

type rejectionView struct {
	RecordID string `json:"record_id"`
	Source   string `json:"source"`
	Reason   string `json:"reason"`
}

func view(s *usecase.Session) sessionView {
	out := sessionView{
		ID:          s.ID,
		Stage:       string(s.Stage),
		CreatedAt:   s.CreatedAt,
		FinalizedAt: s.FinalizedAt,
		Stats: statsView{
			LedgerTotal:     s.Stats.LedgerTotal,
			BankTotal:       s.Stats.BankTotal,
			RejectedCount:   s.Stats.RejectedCount,
			MatchedPairs:    s.Stats.MatchedPairs,
			SuggestionCount: s.Stats.SuggestionCount,
			ExceptionCount:  s.Stats.ExceptionCount,
			MatchRate:       s.Stats.MatchRate,
			RuleCounts:      ruleCounts(s.Stats.RuleCounts),
			CategoryCounts:  categoryCounts(s.Stats.CategoryCounts),
			Comparisons:     s.Stats.Comparisons,
			DeferredPairs:   s.Stats.DeferredPairs,
			Overflow:        s.Stats.Overflow,
		},
		Matches: make([]matchView, 0, len(s.Matches)),
	}

	for _, m := range s.Matches {
		out.Matches = append(out.Matches, matchView{
			LedgerID:   m.Ledger.ID,
			BankID:     m.Bank.ID,
			Rule:       string(m.Rule),
			Confidence: m.Confidence,
			Variance:   m.Variance,
			DayDelta:   m.DayDelta,
		})
	}

	for _, sg := range s.Suggestions {
		out.Suggestions = append(out.Suggestions, suggestionView{
			LedgerID:   sg.Ledger.ID,
			BankID:     sg.Bank.ID,
			Confidence: sg.Confidence,
			Variance:   sg.Variance,
			DayDelta:   sg.DayDelta,
		})
	}

	for _, exc := range s.Exceptions {
		ev := exceptionView{
			RecordID: exc.Record.ID,
			Source:   exc.Record.Source,
			Category: string(exc.Category),
			Severity: exc.Severity,
			Status:   string(exc.Status),
			Detail:   exc.Detail,
			Amount:   exc.Record.Amount,
		}

		if exc.SplitHint != nil {
			ids := make([]string, 0, len(exc.SplitHint.Components))
			for _, comp := range exc.SplitHint.Components {
				ids = append(ids, comp.ID)
			}
			ev.SplitHint = &splitHintView{ComponentIDs: ids, Total: exc.SplitHint.Total}
		}

		out.Exceptions = append(out.Exceptions, ev)
	}

	for _, rej := range s.Rejections {
		out.Rejections = append(out.Rejections, rejectionView{
			RecordID: rej.Record.ID,
			Source:   rej.Record.Source,
			Reason:   rej.Reason,
		})
	}

	return out
}

func ruleCounts(in map[domain.RuleID]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[string(k)] = v
	}
	return out
}

func categoryCounts(in map[domain.ExceptionCategory]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[string(k)] = v
	}
	return out
}
