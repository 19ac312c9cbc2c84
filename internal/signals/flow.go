package signals

import (
	"fmt"
	"math"

	"github.com/silverpulse/heat/internal/contracts"
	"github.com/silverpulse/heat/internal/normalize"
	"github.com/silverpulse/heat/internal/scoring"
	"github.com/silverpulse/heat/pkg/logger"
)

// FlowScorer buckets the latest change in ETF holdings
// ⭐ SSOT: 변화 없는 관측치는 delta 계산에서 제외
type FlowScorer struct {
	window int
	table  scoring.Table
	logger *logger.Logger
}

// NewFlowScorer creates a flow scorer. window sizes the diagnostic z-score.
func NewFlowScorer(window int, table scoring.Table, log *logger.Logger) *FlowScorer {
	return &FlowScorer{window: window, table: table, logger: nopIfNil(log)}
}

// Name returns the series this scorer consumes
func (s *FlowScorer) Name() contracts.SeriesName {
	return contracts.SeriesFlow
}

// Score maps the latest distinct delta. The diagnostic z over the delta
// series is reported but never affects the score.
func (s *FlowScorer) Score(series contracts.Series) (contracts.SignalResult, error) {
	result := contracts.SignalResult{Signal: s.Name(), Window: s.window}
	if last, ok := series.Last(); ok {
		result.Date, result.Latest = last.Date, last.Value
	}

	if err := requireHistory(series, s.window); err != nil {
		return result, fail(s.Name(), err)
	}

	deltas := DistinctDeltas(series.Points)
	if len(deltas) == 0 {
		return result, fail(s.Name(), fmt.Errorf("%w: holdings never changed", contracts.ErrDataInsufficient))
	}

	values := make([]float64, len(deltas))
	for i, d := range deltas {
		values[i] = d.Value
	}
	result.Raw = values[len(values)-1]
	result.Z = normalize.Latest(values, s.window)

	score, err := s.table.Map(result.Raw)
	if err != nil {
		return result, fail(s.Name(), err)
	}
	result.Score = score

	logResult(s.logger.WithField("deltas", len(deltas)), result)
	return result, nil
}

// DistinctDeltas collapses runs of equal consecutive values and returns the
// first differences, each dated at the observation where the change
// occurred. The last delta equals the latest value minus the most recent
// prior value that differs from it. Non-finite observations are skipped.
func DistinctDeltas(points []contracts.Point) []contracts.Point {
	var (
		deltas []contracts.Point
		prev   float64
		seen   bool
	)
	for _, p := range points {
		if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) {
			continue
		}
		if !seen {
			prev, seen = p.Value, true
			continue
		}
		if p.Value == prev {
			continue
		}
		deltas = append(deltas, contracts.Point{Date: p.Date, Value: p.Value - prev})
		prev = p.Value
	}
	return deltas
}
