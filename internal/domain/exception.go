package domain

import "github.com/shopspring/decimal"

// ExceptionCategory classifies an unmatched record.
type ExceptionCategory string

const (
	CategoryTiming  ExceptionCategory = "timing_difference"
	CategoryAmount  ExceptionCategory = "amount_mismatch"
	CategoryMissing ExceptionCategory = "missing_transaction"
)

// ExceptionStatus tracks the review lifecycle of an exception.
type ExceptionStatus string

const (
	ExceptionOpen     ExceptionStatus = "open"
	ExceptionReviewed ExceptionStatus = "reviewed"
	ExceptionResolved ExceptionStatus = "resolved"
)

// Exception wraps a residual record with its classification. Status is the
// only mutable field; everything else is fixed at classification time.
type Exception struct {
	Record    *Record
	Category  ExceptionCategory
	Severity  float64
	Status    ExceptionStatus
	Detail    string
	SplitHint *SplitHint
}

// SplitHint records that a set of counterpart records sums to the excepted
// record's amount, suggesting a split transaction.
type SplitHint struct {
	Components []*Record
	Total      decimal.Decimal
}

// Transition moves the exception to the given status. Only forward moves
// are allowed: open -> reviewed -> resolved.
func (e *Exception) Transition(to ExceptionStatus) error {
	allowed := map[ExceptionStatus]ExceptionStatus{
		ExceptionOpen:     ExceptionReviewed,
		ExceptionReviewed: ExceptionResolved,
	}

	if next, ok := allowed[e.Status]; !ok || next != to {
		return ErrInvalidStatusTransition
	}

	e.Status = to

	return nil
}
