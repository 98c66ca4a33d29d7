package usecase

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/gorecon/internal/domain"
	"github.com/iho/gorecon/internal/infrastructure/metrics"
	"github.com/iho/gorecon/internal/matching"
	"github.com/iho/gorecon/internal/matching/exact"
	"github.com/iho/gorecon/internal/matching/exceptions"
	"github.com/iho/gorecon/internal/matching/fuzzy"
)

// RunInput is one reconciliation request: two ingested record pools plus
// the matching configuration for this run.
type RunInput struct {
	Ledger []*domain.Record
	Bank   []*domain.Record
	Config matching.Config

	// PreRejected carries records the ingestion collaborator could not
	// parse; they are folded into the session's rejected bucket.
	PreRejected []domain.Rejection
}

// ReconcileUseCase orchestrates the full pipeline: screen records, run
// the exact, fuzzy, and exception stages in order, then finalize and
// persist the session.
type ReconcileUseCase struct {
	sessions SessionRepository
	idGen    IDGenerator
	log      zerolog.Logger
	metrics  *metrics.Metrics
	stages   StageFactories
	nowFn    func() time.Time
	reviewMu sync.Mutex
}

// NewReconcileUseCase creates a new reconcile use case wired to the real
// stage engines. metrics may be nil when no registry is running.
func NewReconcileUseCase(
	sessions SessionRepository,
	idGen IDGenerator,
	log zerolog.Logger,
	m *metrics.Metrics,
) *ReconcileUseCase {
	return &ReconcileUseCase{
		sessions: sessions,
		idGen:    idGen,
		log:      log,
		metrics:  m,
		stages: StageFactories{
			Exact:      func(cfg matching.Config) ExactMatcher { return exact.NewEngine(cfg) },
			Fuzzy:      func(cfg matching.Config) FuzzyMatcher { return fuzzy.NewEngine(cfg) },
			Classifier: func(cfg matching.Config) ExceptionClassifier { return exceptions.NewClassifier(cfg) },
		},
		nowFn: time.Now,
	}
}

// WithStages replaces the stage factories. Used by tests to observe
// stage wiring without running the real engines.
func (uc *ReconcileUseCase) WithStages(s StageFactories) *ReconcileUseCase {
	if s.Exact != nil {
		uc.stages.Exact = s.Exact
	}
	if s.Fuzzy != nil {
		uc.stages.Fuzzy = s.Fuzzy
	}
	if s.Classifier != nil {
		uc.stages.Classifier = s.Classifier
	}

	return uc
}

// WithClock fixes the time source so severity scoring and timestamps are
// reproducible.
func (uc *ReconcileUseCase) WithClock(now func() time.Time) *ReconcileUseCase {
	uc.nowFn = now
	return uc
}

// Run executes one full reconciliation. Configuration errors are fatal
// and returned before any matching begins; malformed records are moved
// to the session's rejected bucket and the run continues.
func (uc *ReconcileUseCase) Run(ctx context.Context, in RunInput) (*Session, error) {
	if err := in.Config.Validate(); err != nil {
		uc.countError("config")
		return nil, err
	}

	started := uc.nowFn().UTC()

	session := &Session{
		ID:        uc.idGen.Generate(),
		Stage:     StageIngested,
		CreatedAt: started,
		Config:    in.Config,
		Stats: Stats{
			LedgerTotal:    len(in.Ledger),
			BankTotal:      len(in.Bank),
			RuleCounts:     make(map[domain.RuleID]int),
			CategoryCounts: make(map[domain.ExceptionCategory]int),
			StageDurations: make(map[Stage]time.Duration),
		},
	}

	if uc.metrics != nil {
		uc.metrics.SessionsStarted.Inc()
	}

	for _, rej := range in.PreRejected {
		session.Rejections = append(session.Rejections, rej)
		session.Stats.RejectedCount++

		if uc.metrics != nil {
			uc.metrics.RecordsRejected.Inc()
		}
	}

	ledger := uc.screen(in.Ledger, session)
	bank := uc.screen(in.Bank, session)

	uc.log.Info().
		Str("session_id", session.ID).
		Int("ledger_records", len(ledger)).
		Int("bank_records", len(bank)).
		Int("rejected", session.Stats.RejectedCount).
		Msg("reconciliation started")

	// Exact stage
	stageStart := uc.nowFn()
	exactRes := uc.stages.Exact(in.Config).Match(ledger, bank)
	uc.finishStage(session, StageExactMatched, stageStart)

	session.Matches = append(session.Matches, exactRes.Matches...)
	for rule, n := range exactRes.RuleCounts {
		session.Stats.RuleCounts[rule] += n
	}

	// Fuzzy stage
	stageStart = uc.nowFn()
	fuzzyRes, err := uc.stages.Fuzzy(in.Config).Match(ctx, exactRes.ResidualLedger, exactRes.ResidualBank)
	if err != nil {
		uc.countError("cancelled")
		return nil, fmt.Errorf("fuzzy stage: %w", err)
	}
	uc.finishStage(session, StageFuzzyMatched, stageStart)

	session.Matches = append(session.Matches, fuzzyRes.Matches...)
	session.Suggestions = fuzzyRes.Suggestions
	session.Stats.RuleCounts[domain.RuleFuzzy] += len(fuzzyRes.Matches)
	session.Stats.Comparisons = fuzzyRes.Comparisons
	session.Stats.DeferredPairs = fuzzyRes.DeferredPairs
	session.Stats.Overflow = fuzzyRes.Overflow

	if fuzzyRes.Overflow {
		uc.log.Warn().
			Str("session_id", session.ID).
			Int("deferred_pairs", fuzzyRes.DeferredPairs).
			Msg("fuzzy comparison budget exceeded")

		if uc.metrics != nil {
			uc.metrics.Overflows.Inc()
		}
	}

	// Exception stage
	stageStart = uc.nowFn()
	session.Exceptions = uc.stages.Classifier(in.Config).
		Classify(fuzzyRes.ResidualLedger, fuzzyRes.ResidualBank, started)
	uc.finishStage(session, StageExceptionsClassified, stageStart)

	for _, exc := range session.Exceptions {
		session.Stats.CategoryCounts[exc.Category]++
	}

	uc.finalize(session, started)

	if err := uc.sessions.Save(ctx, session); err != nil {
		uc.countError("storage")
		return nil, fmt.Errorf("save session: %w", err)
	}

	uc.log.Info().
		Str("session_id", session.ID).
		Int("matches", session.Stats.MatchedPairs).
		Int("suggestions", session.Stats.SuggestionCount).
		Int("exceptions", session.Stats.ExceptionCount).
		Float64("match_rate", session.Stats.MatchRate).
		Dur("duration", uc.nowFn().UTC().Sub(started)).
		Msg("reconciliation finalized")

	return session, nil
}

// GetSession returns a stored session by ID.
func (uc *ReconcileUseCase) GetSession(ctx context.Context, id string) (*Session, error) {
	return uc.sessions.GetByID(ctx, id)
}

// ListSessions returns a page of stored sessions.
func (uc *ReconcileUseCase) ListSessions(ctx context.Context, limit, offset int) ([]*Session, error) {
	limit, offset = ClampPagination(limit, offset)
	return uc.sessions.List(ctx, limit, offset)
}

// ReviewException advances an exception through the review workflow and
// persists the session. The read-modify-write is serialized so two
// concurrent reviews on one session cannot drop each other's update.
func (uc *ReconcileUseCase) ReviewException(ctx context.Context, sessionID, recordID string, to domain.ExceptionStatus) (*Session, error) {
	uc.reviewMu.Lock()
	defer uc.reviewMu.Unlock()

	session, err := uc.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if err := session.TransitionException(recordID, to); err != nil {
		return nil, err
	}

	if err := uc.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	return session, nil
}

// screen validates record shape, moving failures to the rejected bucket.
func (uc *ReconcileUseCase) screen(records []*domain.Record, session *Session) []*domain.Record {
	out := make([]*domain.Record, 0, len(records))

	for _, r := range records {
		if err := r.Validate(); err != nil {
			session.Rejections = append(session.Rejections, domain.Rejection{Record: r, Reason: err.Error()})
			session.Stats.RejectedCount++

			if uc.metrics != nil {
				uc.metrics.RecordsRejected.Inc()
			}

			continue
		}

		out = append(out, r)
	}

	return out
}

func (uc *ReconcileUseCase) finishStage(session *Session, stage Stage, started time.Time) {
	elapsed := uc.nowFn().Sub(started)
	session.Stats.StageDurations[stage] = elapsed

	// Advance must succeed here: stages run in machine order.
	if err := session.Advance(stage); err != nil {
		uc.log.Error().Err(err).Str("stage", string(stage)).Msg("illegal stage transition")
	}

	if uc.metrics != nil {
		uc.metrics.StageDuration.WithLabelValues(string(stage)).Observe(elapsed.Seconds())
	}
}

func (uc *ReconcileUseCase) finalize(session *Session, started time.Time) {
	stats := &session.Stats

	stats.MatchedPairs = len(session.Matches)
	stats.SuggestionCount = len(session.Suggestions)
	stats.ExceptionCount = len(session.Exceptions)
	stats.ConfidenceCounts = confidenceDistribution(session.Matches)

	accepted := stats.LedgerTotal + stats.BankTotal - stats.RejectedCount
	if accepted > 0 {
		stats.MatchRate = float64(2*stats.MatchedPairs) / float64(accepted)
	}

	if err := session.Advance(StageFinalized); err != nil {
		uc.log.Error().Err(err).Msg("illegal finalize transition")
	}
	session.FinalizedAt = uc.nowFn().UTC()

	if uc.metrics != nil {
		uc.metrics.SessionsFinalized.Inc()
		uc.metrics.SessionDuration.Observe(session.FinalizedAt.Sub(started).Seconds())
		uc.metrics.MatchRate.Observe(stats.MatchRate)
		uc.metrics.SuggestionsTotal.Add(float64(stats.SuggestionCount))
		uc.metrics.FuzzyComparisons.Add(float64(stats.Comparisons))

		for rule, n := range stats.RuleCounts {
			uc.metrics.MatchesTotal.WithLabelValues(string(rule)).Add(float64(n))
		}

		for category, n := range stats.CategoryCounts {
			uc.metrics.ExceptionsTotal.WithLabelValues(string(category)).Add(float64(n))
		}
	}
}

func (uc *ReconcileUseCase) countError(kind string) {
	if uc.metrics != nil {
		uc.metrics.SessionErrors.WithLabelValues(kind).Inc()
	}
}

// confidenceDistribution buckets match confidence by tenths, with exact
// matches landing in the closed top bucket.
func confidenceDistribution(matches []domain.Match) map[string]int {
	out := make(map[string]int)

	for _, m := range matches {
		out[confidenceBucket(m.Confidence)]++
	}

	return out
}

func confidenceBucket(c float64) string {
	if c >= 1.0 {
		return "1.00"
	}

	// Floor with an epsilon so boundary values land in their own bucket:
	// 0.7*10 is fractionally below 7 in float64.
	idx := int(math.Floor(c*10 + 1e-9))
	if idx >= 10 {
		return "1.00"
	}

	lo := float64(idx) / 10

	return fmt.Sprintf("%.1f-%.1f", lo, lo+0.1)
}
