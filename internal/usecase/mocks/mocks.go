package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/iho/gorecon/internal/domain"
	"github.com/iho/gorecon/internal/matching/exact"
	"github.com/iho/gorecon/internal/matching/fuzzy"
	"github.com/iho/gorecon/internal/usecase"
)

// MockSessionRepository is a mock implementation of SessionRepository.
type MockSessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]*usecase.Session

	SaveFunc    func(ctx context.Context, session *usecase.Session) error
	GetByIDFunc func(ctx context.Context, id string) (*usecase.Session, error)
	ListFunc    func(ctx context.Context, limit, offset int) ([]*usecase.Session, error)
}

func NewMockSessionRepository() *MockSessionRepository {
	return &MockSessionRepository{
		sessions: make(map[string]*usecase.Session),
	}
}

func (m *MockSessionRepository) Save(ctx context.Context, session *usecase.Session) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, session)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.ID] = session
	return nil
}

func (m *MockSessionRepository) GetByID(ctx context.Context, id string) (*usecase.Session, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	return nil, domain.ErrSessionNotFound
}

func (m *MockSessionRepository) List(ctx context.Context, limit, offset int) ([]*usecase.Session, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, limit, offset)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]*usecase.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

// MockIDGenerator returns sequential IDs so assertions are stable.
type MockIDGenerator struct {
	mu   sync.Mutex
	next int

	GenerateFunc func() string
}

func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	return fmt.Sprintf("session-%04d", m.next)
}

// MockExactMatcher is a mock implementation of ExactMatcher.
type MockExactMatcher struct {
	MatchFunc func(ledger, bank []*domain.Record) exact.Result
}

func (m *MockExactMatcher) Match(ledger, bank []*domain.Record) exact.Result {
	if m.MatchFunc != nil {
		return m.MatchFunc(ledger, bank)
	}
	return exact.Result{ResidualLedger: ledger, ResidualBank: bank, RuleCounts: map[domain.RuleID]int{}}
}

// MockFuzzyMatcher is a mock implementation of FuzzyMatcher.
type MockFuzzyMatcher struct {
	MatchFunc func(ctx context.Context, ledger, bank []*domain.Record) (fuzzy.Result, error)
}

func (m *MockFuzzyMatcher) Match(ctx context.Context, ledger, bank []*domain.Record) (fuzzy.Result, error) {
	if m.MatchFunc != nil {
		return m.MatchFunc(ctx, ledger, bank)
	}
	return fuzzy.Result{ResidualLedger: ledger, ResidualBank: bank}, nil
}

// MockExceptionClassifier is a mock implementation of ExceptionClassifier.
type MockExceptionClassifier struct {
	ClassifyFunc func(residualLedger, residualBank []*domain.Record, now time.Time) []domain.Exception
}

func (m *MockExceptionClassifier) Classify(residualLedger, residualBank []*domain.Record, now time.Time) []domain.Exception {
	if m.ClassifyFunc != nil {
		return m.ClassifyFunc(residualLedger, residualBank, now)
	}

	out := make([]domain.Exception, 0, len(residualLedger)+len(residualBank))
	for _, r := range append(append([]*domain.Record{}, residualLedger...), residualBank...) {
		out = append(out, domain.Exception{
			Record:   r,
			Category: domain.CategoryMissing,
			Status:   domain.ExceptionOpen,
		})
	}
	return out
}
