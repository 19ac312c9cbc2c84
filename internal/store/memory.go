package store

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/silverpulse/heat/internal/contracts"
)

// Memory keeps series, COT reports and evaluations in process.
// Used when no database is configured.
type Memory struct {
	mu     sync.RWMutex
	series map[contracts.SeriesName]contracts.Series
	cot    map[time.Time]contracts.COTReport
	evals  []*contracts.Evaluation
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		series: make(map[contracts.SeriesName]contracts.Series),
		cot:    make(map[time.Time]contracts.COTReport),
	}
}

// Upsert merges points by date, replacing stored values
func (m *Memory) Upsert(ctx context.Context, series contracts.Series) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	merged := make(map[time.Time]float64)
	for _, p := range m.series[series.Name].Points {
		merged[p.Date] = p.Value
	}
	for _, p := range series.Points {
		merged[p.Date] = p.Value
	}

	points := make([]contracts.Point, 0, len(merged))
	for d, v := range merged {
		points = append(points, contracts.Point{Date: d, Value: v})
	}
	slices.SortFunc(points, func(a, b contracts.Point) int {
		return a.Date.Compare(b.Date)
	})
	m.series[series.Name] = contracts.Series{Name: series.Name, Points: points}
	return nil
}

// Load returns a copy of the stored series
func (m *Memory) Load(ctx context.Context, name contracts.SeriesName) (contracts.Series, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.series[name]
	if !ok || len(s.Points) == 0 {
		return contracts.Series{}, fmt.Errorf("series %s: %w", name, contracts.ErrNotFound)
	}
	return contracts.Series{Name: name, Points: slices.Clone(s.Points)}, nil
}

// SaveCOT stores one weekly report
func (m *Memory) SaveCOT(ctx context.Context, report contracts.COTReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cot[report.Date] = report
	return nil
}

// LatestCOT returns the most recent report
func (m *Memory) LatestCOT(ctx context.Context) (*contracts.COTReport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var latest *contracts.COTReport
	for _, r := range m.cot {
		if latest == nil || r.Date.After(latest.Date) {
			latest = &r
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("COT report: %w", contracts.ErrNotFound)
	}
	return latest, nil
}

// Save appends a copy of the evaluation. The interpretation is not kept.
func (m *Memory) Save(ctx context.Context, eval *contracts.Evaluation) error {
	if err := eval.Complete(); err != nil {
		return fmt.Errorf("save evaluation %s: %w", eval.ID, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range m.evals {
		if e.ID == eval.ID {
			return fmt.Errorf("evaluation %s already stored", eval.ID)
		}
	}

	stored := *eval
	stored.Interpretation = contracts.Interpretation{}
	m.evals = append(m.evals, &stored)
	slices.SortStableFunc(m.evals, compareEvaluations)
	return nil
}

// Latest returns the evaluation with the latest as-of date, newest first on ties
func (m *Memory) Latest(ctx context.Context) (*contracts.Evaluation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.evals) == 0 {
		return nil, fmt.Errorf("evaluation: %w", contracts.ErrNotFound)
	}
	latest := *m.evals[len(m.evals)-1]
	return &latest, nil
}

// History returns evaluations with as-of in [from, to] in ascending order.
// A zero bound is open. limit > 0 keeps the most recent evaluations.
func (m *Memory) History(ctx context.Context, from, to time.Time, limit int) ([]*contracts.Evaluation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*contracts.Evaluation
	for _, e := range m.evals {
		if !from.IsZero() && e.AsOf.Before(from) {
			continue
		}
		if !to.IsZero() && e.AsOf.After(to) {
			continue
		}
		c := *e
		out = append(out, &c)
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func compareEvaluations(a, b *contracts.Evaluation) int {
	if c := a.AsOf.Compare(b.AsOf); c != 0 {
		return c
	}
	return a.CreatedAt.Compare(b.CreatedAt)
}
