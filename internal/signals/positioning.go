package signals

import (
	"github.com/silverpulse/heat/internal/contracts"
	"github.com/silverpulse/heat/internal/normalize"
	"github.com/silverpulse/heat/internal/scoring"
	"github.com/silverpulse/heat/pkg/logger"
)

// PositioningScorer buckets the rolling z-score of retail net positioning
type PositioningScorer struct {
	window int
	table  scoring.Table
	logger *logger.Logger
}

// NewPositioningScorer creates a positioning scorer
func NewPositioningScorer(window int, table scoring.Table, log *logger.Logger) *PositioningScorer {
	return &PositioningScorer{window: window, table: table, logger: nopIfNil(log)}
}

// Name returns the series this scorer consumes
func (s *PositioningScorer) Name() contracts.SeriesName {
	return contracts.SeriesPositioning
}

// Score computes z over the trailing window and maps it.
// An unavailable z-score is an error since it is the bucket input.
func (s *PositioningScorer) Score(series contracts.Series) (contracts.SignalResult, error) {
	result := contracts.SignalResult{Signal: s.Name(), Window: s.window}
	if last, ok := series.Last(); ok {
		result.Date, result.Latest = last.Date, last.Value
	}

	if err := requireHistory(series, s.window); err != nil {
		return result, fail(s.Name(), err)
	}

	result.Z = normalize.Latest(series.Values(), s.window)
	score, err := s.table.MapZ(result.Z)
	if err != nil {
		return result, fail(s.Name(), err)
	}
	result.Raw = result.Z.Value
	result.Score = score

	logResult(s.logger, result)
	return result, nil
}
