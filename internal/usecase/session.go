package usecase

import (
	"time"

	"github.com/iho/gorecon/internal/domain"
	"github.com/iho/gorecon/internal/matching"
)

// Stage is a step in the session state machine. Transitions are strictly
// forward with no re-entry.
type Stage string

const (
	StageIngested             Stage = "INGESTED"
	StageExactMatched         Stage = "EXACT_MATCHED"
	StageFuzzyMatched         Stage = "FUZZY_MATCHED"
	StageExceptionsClassified Stage = "EXCEPTIONS_CLASSIFIED"
	StageFinalized            Stage = "FINALIZED"
)

var stageOrder = map[Stage]int{
	StageIngested:             0,
	StageExactMatched:         1,
	StageFuzzyMatched:         2,
	StageExceptionsClassified: 3,
	StageFinalized:            4,
}

// Session is the aggregate produced by one reconciliation run. It carries
// every per-stage output plus the summary statistics, and is the unit the
// repository stores and the review workflow mutates.
type Session struct {
	ID          string
	Stage       Stage
	CreatedAt   time.Time
	FinalizedAt time.Time
	Config      matching.Config
	Matches     []domain.Match
	Suggestions []domain.Suggestion
	Exceptions  []domain.Exception
	Rejections  []domain.Rejection
	Stats       Stats
}

// Stats summarizes a finalized session.
type Stats struct {
	LedgerTotal      int
	BankTotal        int
	RejectedCount    int
	MatchedPairs     int
	SuggestionCount  int
	ExceptionCount   int
	MatchRate        float64
	RuleCounts       map[domain.RuleID]int
	CategoryCounts   map[domain.ExceptionCategory]int
	ConfidenceCounts map[string]int
	Comparisons      int
	DeferredPairs    int
	Overflow         bool
	StageDurations   map[Stage]time.Duration
}

// Clone returns an independent copy of the session. The slices and stat
// maps are copied so review-workflow writes on one copy never alias
// another; the records themselves are immutable and stay shared.
func (s *Session) Clone() *Session {
	out := *s

	out.Matches = append([]domain.Match(nil), s.Matches...)
	out.Suggestions = append([]domain.Suggestion(nil), s.Suggestions...)
	out.Exceptions = append([]domain.Exception(nil), s.Exceptions...)
	out.Rejections = append([]domain.Rejection(nil), s.Rejections...)

	out.Stats.RuleCounts = cloneMap(s.Stats.RuleCounts)
	out.Stats.CategoryCounts = cloneMap(s.Stats.CategoryCounts)
	out.Stats.ConfidenceCounts = cloneMap(s.Stats.ConfidenceCounts)
	out.Stats.StageDurations = cloneMap(s.Stats.StageDurations)

	return &out
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	if m == nil {
		return nil
	}

	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}

	return out
}

// Advance moves the session to the next stage. Skipping a stage, going
// backward, or advancing a finalized session is an error.
func (s *Session) Advance(to Stage) error {
	if s.Stage == StageFinalized {
		return domain.ErrSessionFinalized
	}

	cur, ok := stageOrder[s.Stage]
	next, ok2 := stageOrder[to]
	if !ok || !ok2 || next != cur+1 {
		return domain.ErrInvalidStageTransition
	}

	s.Stage = to

	return nil
}

// TransitionException moves the exception for the given record through
// the review workflow.
func (s *Session) TransitionException(recordID string, to domain.ExceptionStatus) error {
	for i := range s.Exceptions {
		if s.Exceptions[i].Record.ID == recordID {
			return s.Exceptions[i].Transition(to)
		}
	}

	return domain.ErrExceptionNotFound
}
