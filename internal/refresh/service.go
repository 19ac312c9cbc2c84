// Package refresh runs one collect → evaluate → persist cycle and serves
// stored evaluations back with their interpretation attached.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/silverpulse/heat/internal/contracts"
	"github.com/silverpulse/heat/internal/heat"
	"github.com/silverpulse/heat/internal/metrics"
	"github.com/silverpulse/heat/pkg/logger"
	"github.com/silverpulse/heat/pkg/redis"
)

// Publisher receives every newly stored evaluation
type Publisher interface {
	Publish(eval *contracts.Evaluation)
}

// Service owns the refresh cycle
// ⭐ SSOT: 평가 저장 + ID/CreatedAt 부여는 여기서만
type Service struct {
	source contracts.SnapshotSource
	engine *heat.Engine
	evals  contracts.EvaluationRepository
	cot    contracts.COTRepository

	cache      *redis.Cache
	metrics    *metrics.Recorder
	publishers []Publisher
	logger     *logger.Logger
	now        func() time.Time

	mu sync.Mutex // one refresh at a time
}

// NewService creates a refresh service
func NewService(source contracts.SnapshotSource, engine *heat.Engine, evals contracts.EvaluationRepository, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		source: source,
		engine: engine,
		evals:  evals,
		logger: log.Component("refresh"),
		now:    time.Now,
	}
}

// WithCOTStore keeps the latest COT report of every snapshot
func (s *Service) WithCOTStore(repo contracts.COTRepository) *Service {
	s.cot = repo
	return s
}

// WithCache caches the latest evaluation
func (s *Service) WithCache(cache *redis.Cache) *Service {
	s.cache = cache
	return s
}

// WithMetrics records evaluation gauges and failures
func (s *Service) WithMetrics(m *metrics.Recorder) *Service {
	s.metrics = m
	return s
}

// Subscribe adds a publisher notified after each successful refresh
func (s *Service) Subscribe(p Publisher) *Service {
	s.publishers = append(s.publishers, p)
	return s
}

// Engine returns the engine evaluations are computed with
func (s *Service) Engine() *heat.Engine {
	return s.engine
}

// Run collects a snapshot, evaluates it and stores the result.
// Change is measured against the latest stored evaluation with an earlier as-of date.
func (s *Service) Run(ctx context.Context) (*contracts.Evaluation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	snap, err := s.source.Snapshot(ctx)
	if err != nil {
		s.metrics.RecordEvaluationError(err)
		return nil, fmt.Errorf("collect snapshot: %w", err)
	}

	eval, err := s.engine.Evaluate(snap)
	if err != nil {
		s.metrics.RecordEvaluationError(err)
		return nil, err
	}

	prev, err := s.previous(ctx, eval.AsOf)
	if err != nil {
		return nil, err
	}
	heat.WithPrevious(eval, prev)

	eval.ID = uuid.NewString()
	eval.CreatedAt = s.now().UTC()

	if err := s.evals.Save(ctx, eval); err != nil {
		return nil, fmt.Errorf("save evaluation: %w", err)
	}

	if s.cot != nil && snap.LatestCOT != nil {
		if err := s.cot.SaveCOT(ctx, *snap.LatestCOT); err != nil {
			s.logger.WithError(err).Warn("Failed to save COT report")
		}
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, redis.LatestEvaluationKey(), eval, redis.TTLShort); err != nil {
			s.logger.WithError(err).Warn("Failed to cache latest evaluation")
		}
	}

	s.metrics.RecordEvaluation(eval)
	s.metrics.RecordLatency("refresh", time.Since(start).Seconds())
	for _, p := range s.publishers {
		p.Publish(eval)
	}

	s.logger.WithFields(map[string]interface{}{
		"id":     eval.ID,
		"as_of":  eval.AsOf.Format("2006-01-02"),
		"heat":   eval.Heat,
		"change": eval.Change,
		"phase":  eval.Interpretation.Phase,
	}).Info("Heat index refreshed")

	return eval, nil
}

func (s *Service) previous(ctx context.Context, asOf time.Time) (*contracts.Evaluation, error) {
	history, err := s.evals.History(ctx, time.Time{}, asOf.AddDate(0, 0, -1), 1)
	if err != nil {
		return nil, fmt.Errorf("load previous evaluation: %w", err)
	}
	if len(history) == 0 {
		return nil, nil
	}
	return history[0], nil
}

// Latest returns the newest stored evaluation with its interpretation
func (s *Service) Latest(ctx context.Context) (*contracts.Evaluation, error) {
	if s.cache != nil {
		var cached contracts.Evaluation
		found, err := s.cache.Get(ctx, redis.LatestEvaluationKey(), &cached)
		if err == nil && found {
			return &cached, nil
		}
	}

	eval, err := s.evals.Latest(ctx)
	if err != nil {
		return nil, err
	}
	eval.Interpretation = s.engine.Interpret(eval)
	return eval, nil
}

// History returns stored evaluations with their interpretation
func (s *Service) History(ctx context.Context, from, to time.Time, limit int) ([]*contracts.Evaluation, error) {
	evals, err := s.evals.History(ctx, from, to, limit)
	if err != nil {
		return nil, err
	}
	for _, e := range evals {
		e.Interpretation = s.engine.Interpret(e)
	}
	return evals, nil
}

// LatestCOT returns the most recent weekly report
func (s *Service) LatestCOT(ctx context.Context) (*contracts.COTReport, error) {
	if s.cot == nil {
		return nil, fmt.Errorf("COT report: %w", contracts.ErrNotFound)
	}
	return s.cot.LatestCOT(ctx)
}

// IsDataError reports whether err comes from the inputs rather than the infrastructure
func IsDataError(err error) bool {
	return errors.Is(err, contracts.ErrDataInsufficient) ||
		errors.Is(err, contracts.ErrDegenerateStatistic) ||
		errors.Is(err, contracts.ErrUnorderedSeries)
}
