package usecase

import (
	"context"
	"time"

	"github.com/iho/gorecon/internal/domain"
	"github.com/iho/gorecon/internal/matching"
	"github.com/iho/gorecon/internal/matching/exact"
	"github.com/iho/gorecon/internal/matching/fuzzy"
)

// SessionRepository defines storage for reconciliation sessions.
type SessionRepository interface {
	Save(ctx context.Context, session *Session) error
	GetByID(ctx context.Context, id string) (*Session, error)
	List(ctx context.Context, limit, offset int) ([]*Session, error)
}

// ExactMatcher runs the rule-based matching stage.
type ExactMatcher interface {
	Match(ledger, bank []*domain.Record) exact.Result
}

// FuzzyMatcher runs the similarity-based matching stage.
type FuzzyMatcher interface {
	Match(ctx context.Context, ledger, bank []*domain.Record) (fuzzy.Result, error)
}

// ExceptionClassifier categorizes the residue left by both matchers.
type ExceptionClassifier interface {
	Classify(residualLedger, residualBank []*domain.Record, now time.Time) []domain.Exception
}

// StageFactories builds the per-run stage engines from a validated
// config. The zero value is filled with the real engines; tests swap in
// fakes.
type StageFactories struct {
	Exact      func(matching.Config) ExactMatcher
	Fuzzy      func(matching.Config) FuzzyMatcher
	Classifier func(matching.Config) ExceptionClassifier
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}
