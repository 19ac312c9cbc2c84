// Package heat combines the three signal sub-scores into the heat index and
// interprets it.
package heat

import (
	"errors"
	"fmt"
	"time"

	"github.com/silverpulse/heat/internal/contracts"
	"github.com/silverpulse/heat/internal/heatconfig"
	"github.com/silverpulse/heat/internal/signals"
	"github.com/silverpulse/heat/pkg/logger"
)

// Engine evaluates snapshots against one validated configuration.
// It holds no mutable state and is safe for concurrent use.
// ⭐ SSOT: heat index 계산은 여기서만
type Engine struct {
	cfg    *heatconfig.Config
	hash   string
	logger *logger.Logger

	positioning signals.Scorer
	flow        signals.Scorer
	premium     signals.Scorer
}

// NewEngine validates cfg and builds the scorers
func NewEngine(cfg *heatconfig.Config, log *logger.Logger) (*Engine, error) {
	if err := heatconfig.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid heat config: %w", err)
	}
	hash, err := heatconfig.Hash(cfg)
	if err != nil {
		return nil, fmt.Errorf("hash heat config: %w", err)
	}
	if log == nil {
		log = logger.Nop()
	}
	log = log.Component("heat")

	sig := cfg.Signals
	return &Engine{
		cfg:    cfg,
		hash:   hash,
		logger: log,
		positioning: signals.NewPositioningScorer(sig.Positioning.Window,
			sig.Positioning.Table(contracts.SeriesPositioning), log),
		flow: signals.NewFlowScorer(sig.Flow.Window,
			sig.Flow.Table(contracts.SeriesFlow), log),
		premium: signals.NewPremiumScorer(sig.Premium.Window,
			sig.Premium.Table(contracts.SeriesPremium), log),
	}, nil
}

// Config returns the engine configuration
func (e *Engine) Config() *heatconfig.Config {
	return e.cfg
}

// ConfigHash returns the hash stamped on every evaluation
func (e *Engine) ConfigHash() string {
	return e.hash
}

// Evaluate scores the snapshot. If any signal fails no composite is
// produced and the error is an *contracts.EvaluationError carrying the
// signals that did score.
func (e *Engine) Evaluate(snap *contracts.Snapshot) (*contracts.Evaluation, error) {
	if snap == nil {
		return nil, fmt.Errorf("%w: nil snapshot", contracts.ErrDataInsufficient)
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}

	var (
		results [3]contracts.SignalResult
		partial []contracts.SignalResult
		errs    []error
	)
	for i, scorer := range []signals.Scorer{e.positioning, e.flow, e.premium} {
		series, _ := snap.Get(scorer.Name())
		result, err := scorer.Score(series)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		results[i] = result
		partial = append(partial, result)
	}
	if len(errs) > 0 {
		return nil, &contracts.EvaluationError{Results: partial, Errs: errs}
	}

	pos, flow, prem := results[0], results[1], results[2]
	h := Composite(e.cfg.Weights, pos.Score, flow.Score, prem.Score)

	eval := &contracts.Evaluation{
		AsOf:           latestDate(pos.Date, flow.Date, prem.Date),
		Positioning:    pos,
		Flow:           flow,
		Premium:        prem,
		Heat:           h,
		Interpretation: Interpret(e.cfg.Interpretation, h, pos.Score, flow.Score),
		ConfigHash:     e.hash,
	}

	e.logger.WithFields(map[string]interface{}{
		"as_of":       eval.AsOf.Format("2006-01-02"),
		"positioning": int(pos.Score),
		"flow":        int(flow.Score),
		"premium":     int(prem.Score),
		"heat":        h,
		"phase":       eval.Interpretation.Phase,
	}).Debug("Evaluated heat index")

	return eval, nil
}

// Interpret re-derives the interpretation of a stored evaluation
func (e *Engine) Interpret(eval *contracts.Evaluation) contracts.Interpretation {
	return Interpret(e.cfg.Interpretation, eval.Heat, eval.Positioning.Score, eval.Flow.Score)
}

// Trend evaluates the snapshot truncated at each date, using only data on
// or before that date. Dates with insufficient history or a degenerate
// window are skipped; any other failure, such as an unordered series, is
// returned. Change is filled against the preceding point of the trend.
func (e *Engine) Trend(snap *contracts.Snapshot, dates []time.Time) ([]*contracts.Evaluation, error) {
	if err := snap.Validate(); err != nil {
		return nil, err
	}

	var (
		out  []*contracts.Evaluation
		prev *contracts.Evaluation
	)
	for _, d := range dates {
		eval, err := e.Evaluate(snap.Until(d))
		if err != nil {
			if skippable(err) {
				continue
			}
			return nil, fmt.Errorf("trend at %s: %w", d.Format("2006-01-02"), err)
		}
		// one point per as-of date
		if prev != nil && !eval.AsOf.After(prev.AsOf) {
			continue
		}
		WithPrevious(eval, prev)
		out = append(out, eval)
		prev = eval
	}
	return out, nil
}

// skippable reports whether every cause of err is a data-availability failure
func skippable(err error) bool {
	var ee *contracts.EvaluationError
	if errors.As(err, &ee) && len(ee.Errs) > 0 {
		for _, e := range ee.Errs {
			if !skippable(e) {
				return false
			}
		}
		return true
	}
	return errors.Is(err, contracts.ErrDataInsufficient) || errors.Is(err, contracts.ErrDegenerateStatistic)
}

// WithPrevious sets eval.Change relative to prev (0 without a previous evaluation)
func WithPrevious(eval, prev *contracts.Evaluation) *contracts.Evaluation {
	if prev == nil {
		eval.Change = 0
		return eval
	}
	eval.Change = eval.Heat - prev.Heat
	return eval
}

func latestDate(dates ...time.Time) time.Time {
	var latest time.Time
	for _, d := range dates {
		if d.After(latest) {
			latest = d
		}
	}
	return latest
}
