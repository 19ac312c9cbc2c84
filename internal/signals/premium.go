package signals

import (
	"github.com/silverpulse/heat/internal/contracts"
	"github.com/silverpulse/heat/internal/normalize"
	"github.com/silverpulse/heat/internal/scoring"
	"github.com/silverpulse/heat/pkg/logger"
)

// PremiumScorer buckets the latest physical premium
type PremiumScorer struct {
	window int
	table  scoring.Table
	logger *logger.Logger
}

// NewPremiumScorer creates a premium scorer. window sizes the diagnostic z-score.
func NewPremiumScorer(window int, table scoring.Table, log *logger.Logger) *PremiumScorer {
	return &PremiumScorer{window: window, table: table, logger: nopIfNil(log)}
}

// Name returns the series this scorer consumes
func (s *PremiumScorer) Name() contracts.SeriesName {
	return contracts.SeriesPremium
}

// Score maps the latest premium level
func (s *PremiumScorer) Score(series contracts.Series) (contracts.SignalResult, error) {
	result := contracts.SignalResult{Signal: s.Name(), Window: s.window}
	last, ok := series.Last()
	if ok {
		result.Date, result.Latest = last.Date, last.Value
	}

	if err := requireHistory(series, s.window); err != nil {
		return result, fail(s.Name(), err)
	}

	result.Raw = last.Value
	result.Z = normalize.Latest(series.Values(), s.window)

	score, err := s.table.Map(result.Raw)
	if err != nil {
		return result, fail(s.Name(), err)
	}
	result.Score = score

	logResult(s.logger, result)
	return result, nil
}
