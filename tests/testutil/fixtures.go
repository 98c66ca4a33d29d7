package testutil

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/gorecon/internal/adapter/repository/memory"
	"github.com/iho/gorecon/internal/domain"
	"github.com/iho/gorecon/internal/usecase"
)

// Record builds a test record with sane defaults.
func Record(id, source, date, amount, description string) *domain.Record {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}

	amt, err := decimal.NewFromString(amount)
	if err != nil {
		panic(err)
	}

	side := domain.SideCredit
	if amt.IsNegative() {
		side = domain.SideDebit
	}

	return &domain.Record{
		ID:          id,
		Source:      source,
		Date:        d,
		Amount:      amt,
		Description: domain.NormalizeDescription(description),
		Side:        side,
	}
}

// LedgerRecord builds a ledger-side test record.
func LedgerRecord(id, date, amount, description string) *domain.Record {
	return Record(id, "ledger", date, amount, description)
}

// BankRecord builds a bank-side test record.
func BankRecord(id, date, amount, description string) *domain.Record {
	return Record(id, "bank", date, amount, description)
}

// WithReference sets a normalized reference on a record.
func WithReference(r *domain.Record, ref string) *domain.Record {
	r.Reference = domain.NormalizeReference(ref)
	return r
}

// NewUseCase wires a reconcile use case against in-memory storage with
// the real matching engines and no logging.
func NewUseCase() *usecase.ReconcileUseCase {
	return usecase.NewReconcileUseCase(
		memory.NewSessionRepository(0),
		memory.NewULIDGenerator(),
		zerolog.Nop(),
		nil,
	)
}
