package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/gorecon/internal/domain"
	"github.com/iho/gorecon/internal/usecase"
)

// SessionResponse represents a reconciliation session in API responses.
type SessionResponse struct {
	ID          string               `json:"id"`
	Stage       string               `json:"stage"`
	CreatedAt   time.Time            `json:"created_at"`
	FinalizedAt time.Time            `json:"finalized_at,omitzero"`
	Stats       StatsResponse        `json:"stats"`
	Matches     []MatchResponse      `json:"matches"`
	Suggestions []SuggestionResponse `json:"suggestions,omitempty"`
	Exceptions  []ExceptionResponse  `json:"exceptions,omitempty"`
	Rejections  []RejectionResponse  `json:"rejections,omitempty"`
}

// SessionSummaryResponse is the list-endpoint shape: stats without the
// full match payload.
type SessionSummaryResponse struct {
	ID          string        `json:"id"`
	Stage       string        `json:"stage"`
	CreatedAt   time.Time     `json:"created_at"`
	FinalizedAt time.Time     `json:"finalized_at,omitzero"`
	Stats       StatsResponse `json:"stats"`
}

// StatsResponse represents session summary statistics.
type StatsResponse struct {
	LedgerTotal      int            `json:"ledger_total"`
	BankTotal        int            `json:"bank_total"`
	RejectedCount    int            `json:"rejected_count"`
	MatchedPairs     int            `json:"matched_pairs"`
	SuggestionCount  int            `json:"suggestion_count"`
	ExceptionCount   int            `json:"exception_count"`
	MatchRate        float64        `json:"match_rate"`
	RuleCounts       map[string]int `json:"rule_counts"`
	CategoryCounts   map[string]int `json:"category_counts"`
	ConfidenceCounts map[string]int `json:"confidence_counts,omitempty"`
	Comparisons      int            `json:"comparisons"`
	DeferredPairs    int            `json:"deferred_pairs,omitempty"`
	Overflow         bool           `json:"overflow"`
}

// MatchResponse represents one accepted match.
type MatchResponse struct {
	LedgerID   string          `json:"ledger_id"`
	BankID     string          `json:"bank_id"`
	Rule       string          `json:"rule"`
	Confidence float64         `json:"confidence"`
	Variance   decimal.Decimal `json:"variance"`
	DayDelta   int             `json:"day_delta"`
}

// SuggestionResponse represents one ranked suggestion.
type SuggestionResponse struct {
	LedgerID   string          `json:"ledger_id"`
	BankID     string          `json:"bank_id"`
	Confidence float64         `json:"confidence"`
	Variance   decimal.Decimal `json:"variance"`
	DayDelta   int             `json:"day_delta"`
}

// ExceptionResponse represents one categorized exception.
type ExceptionResponse struct {
	RecordID  string              `json:"record_id"`
	Source    string              `json:"source"`
	Amount    decimal.Decimal     `json:"amount"`
	Date      time.Time           `json:"date"`
	Category  string              `json:"category"`
	Severity  float64             `json:"severity"`
	Status    string              `json:"status"`
	Detail    string              `json:"detail,omitempty"`
	SplitHint *SplitHintResponse  `json:"split_hint,omitempty"`
}

// SplitHintResponse represents a possible split transaction.
type SplitHintResponse struct {
	ComponentIDs []string        `json:"component_ids"`
	Total        decimal.Decimal `json:"total"`
}

// RejectionResponse represents one rejected record.
type RejectionResponse struct {
	RecordID string `json:"record_id"`
	Source   string `json:"source"`
	Reason   string `json:"reason"`
}

// SessionFromDomain converts a session to the full response shape.
func SessionFromDomain(s *usecase.Session) *SessionResponse {
	out := &SessionResponse{
		ID:          s.ID,
		Stage:       string(s.Stage),
		CreatedAt:   s.CreatedAt,
		FinalizedAt: s.FinalizedAt,
		Stats:       statsFromDomain(s.Stats),
		Matches:     make([]MatchResponse, 0, len(s.Matches)),
	}

	for _, m := range s.Matches {
		out.Matches = append(out.Matches, MatchResponse{
			LedgerID:   m.Ledger.ID,
			BankID:     m.Bank.ID,
			Rule:       string(m.Rule),
			Confidence: m.Confidence,
			Variance:   m.Variance,
			DayDelta:   m.DayDelta,
		})
	}

	for _, sg := range s.Suggestions {
		out.Suggestions = append(out.Suggestions, SuggestionResponse{
			LedgerID:   sg.Ledger.ID,
			BankID:     sg.Bank.ID,
			Confidence: sg.Confidence,
			Variance:   sg.Variance,
			DayDelta:   sg.DayDelta,
		})
	}

	for _, exc := range s.Exceptions {
		out.Exceptions = append(out.Exceptions, ExceptionFromDomain(exc))
	}

	for _, rej := range s.Rejections {
		out.Rejections = append(out.Rejections, RejectionResponse{
			RecordID: rej.Record.ID,
			Source:   rej.Record.Source,
			Reason:   rej.Reason,
		})
	}

	return out
}

// SessionSummariesFromDomain converts sessions to list summaries.
func SessionSummariesFromDomain(sessions []*usecase.Session) []*SessionSummaryResponse {
	result := make([]*SessionSummaryResponse, len(sessions))
	for i, s := range sessions {
		result[i] = &SessionSummaryResponse{
			ID:          s.ID,
			Stage:       string(s.Stage),
			CreatedAt:   s.CreatedAt,
			FinalizedAt: s.FinalizedAt,
			Stats:       statsFromDomain(s.Stats),
		}
	}
	return result
}

// ExceptionFromDomain converts one exception.
func ExceptionFromDomain(exc domain.Exception) ExceptionResponse {
	out := ExceptionResponse{
		RecordID: exc.Record.ID,
		Source:   exc.Record.Source,
		Amount:   exc.Record.Amount,
		Date:     exc.Record.Date,
		Category: string(exc.Category),
		Severity: exc.Severity,
		Status:   string(exc.Status),
		Detail:   exc.Detail,
	}

	if exc.SplitHint != nil {
		ids := make([]string, 0, len(exc.SplitHint.Components))
		for _, comp := range exc.SplitHint.Components {
			ids = append(ids, comp.ID)
		}
		out.SplitHint = &SplitHintResponse{ComponentIDs: ids, Total: exc.SplitHint.Total}
	}

	return out
}

func statsFromDomain(s usecase.Stats) StatsResponse {
	rules := make(map[string]int, len(s.RuleCounts))
	for k, v := range s.RuleCounts {
		rules[string(k)] = v
	}

	categories := make(map[string]int, len(s.CategoryCounts))
	for k, v := range s.CategoryCounts {
		categories[string(k)] = v
	}

	return StatsResponse{
		LedgerTotal:      s.LedgerTotal,
		BankTotal:        s.BankTotal,
		RejectedCount:    s.RejectedCount,
		MatchedPairs:     s.MatchedPairs,
		SuggestionCount:  s.SuggestionCount,
		ExceptionCount:   s.ExceptionCount,
		MatchRate:        s.MatchRate,
		RuleCounts:       rules,
		CategoryCounts:   categories,
		ConfidenceCounts: s.ConfidenceCounts,
		Comparisons:      s.Comparisons,
		DeferredPairs:    s.DeferredPairs,
		Overflow:         s.Overflow,
	}
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
