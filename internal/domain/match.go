package domain

import "github.com/shopspring/decimal"

// RuleID identifies the rule that produced a match.
type RuleID string

const (
	RulePerfect   RuleID = "perfect"
	RuleTolerance RuleID = "tolerance"
	RuleReference RuleID = "reference"
	RuleFuzzy     RuleID = "fuzzy"
)

// Match pairs one ledger record with one bank record. Exact rules always
// produce a confidence of 1.0; fuzzy matches carry the blended composite
// score that cleared the confidence threshold.
type Match struct {
	Ledger     *Record
	Bank       *Record
	Rule       RuleID
	Confidence float64
	Variance   decimal.Decimal
	DayDelta   int
}

// NewMatch builds a match and derives the amount variance and day delta
// from the paired records.
func NewMatch(ledger, bank *Record, rule RuleID, confidence float64) Match {
	return Match{
		Ledger:     ledger,
		Bank:       bank,
		Rule:       rule,
		Confidence: confidence,
		Variance:   ledger.Amount.Sub(bank.Amount).Abs(),
		DayDelta:   DayDelta(ledger, bank),
	}
}

// Suggestion is a candidate pairing that cleared the similarity threshold
// but not the confidence threshold. It is surfaced for human review and
// never consumes either record.
type Suggestion struct {
	Ledger     *Record
	Bank       *Record
	Confidence float64
	Variance   decimal.Decimal
	DayDelta   int
}
