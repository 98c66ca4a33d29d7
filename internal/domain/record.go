package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side indicates whether a record is a debit or a credit.
type Side string

const (
	SideDebit  Side = "debit"
	SideCredit Side = "credit"
)

// Record is a single normalized transaction as produced by the ingestion
// collaborator. Records are immutable once created; the matching stages
// only ever read them.
type Record struct {
	Date        time.Time
	ID          string
	Source      string
	Description string
	Reference   string
	Side        Side
	Amount      decimal.Decimal
}

// Validate checks that all required normalized fields are present.
// A failing record is rejected, not fatal: the run continues without it.
func (r *Record) Validate() error {
	if r.ID == "" {
		return ErrMissingRecordID
	}

	if r.Source == "" {
		return ErrMissingSource
	}

	if r.Date.IsZero() {
		return ErrMissingDate
	}

	if r.Description == "" {
		return ErrMissingDescription
	}

	if r.Side != SideDebit && r.Side != SideCredit {
		return ErrInvalidSide
	}

	return nil
}

// DateKey returns the calendar-day key used by exact-match indexes.
func (r *Record) DateKey() string {
	return r.Date.Format("2006-01-02")
}

// AgeDays returns the record age in whole days relative to now.
func (r *Record) AgeDays(now time.Time) int {
	if now.Before(r.Date) {
		return 0
	}

	return int(now.Sub(r.Date).Hours() / 24)
}

// DayDelta returns the absolute calendar distance in days between two records.
func DayDelta(a, b *Record) int {
	diff := a.Date.Sub(b.Date)
	if diff < 0 {
		diff = -diff
	}

	return int(diff.Hours() / 24)
}

// Rejection holds a record that failed shape validation, with the reason
// it was excluded from the run.
type Rejection struct {
	Record *Record
	Reason string
}
