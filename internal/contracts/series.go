package contracts

import (
	"fmt"
	"math"
	"slices"
	"time"
)

// SeriesName identifies one of the three input signals
type SeriesName string

const (
	SeriesPositioning SeriesName = "positioning" // net retail position, percent of open interest
	SeriesFlow        SeriesName = "flow"        // ETF cumulative holdings, ounces
	SeriesPremium     SeriesName = "premium"     // physical premium over spot, percent
)

// AllSeries returns the series names in evaluation order
func AllSeries() []SeriesName {
	return []SeriesName{SeriesPositioning, SeriesFlow, SeriesPremium}
}

// Point is a single dated observation
type Point struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Series is a time-ordered sequence of observations
// ⭐ SSOT: 날짜는 strictly increasing (중복 없음)
type Series struct {
	Name   SeriesName `json:"name"`
	Points []Point    `json:"points"`
}

// Len returns the number of observations
func (s Series) Len() int {
	return len(s.Points)
}

// Values returns a copy of the observation values in date order
func (s Series) Values() []float64 {
	values := make([]float64, len(s.Points))
	for i, p := range s.Points {
		values[i] = p.Value
	}
	return values
}

// Last returns the latest observation
func (s Series) Last() (Point, bool) {
	if len(s.Points) == 0 {
		return Point{}, false
	}
	return s.Points[len(s.Points)-1], true
}

// Validate checks that dates are strictly increasing
func (s Series) Validate() error {
	for i := 1; i < len(s.Points); i++ {
		if !s.Points[i].Date.After(s.Points[i-1].Date) {
			return fmt.Errorf("%w: %s at index %d (%s after %s)",
				ErrUnorderedSeries, s.Name, i,
				s.Points[i].Date.Format("2006-01-02"),
				s.Points[i-1].Date.Format("2006-01-02"))
		}
	}
	return nil
}

// Until returns the prefix of the series dated on or before t.
// The returned series shares the underlying points.
func (s Series) Until(t time.Time) Series {
	n := 0
	for n < len(s.Points) && !s.Points[n].Date.After(t) {
		n++
	}
	return Series{Name: s.Name, Points: s.Points[:n:n]}
}

// LatestFinite reports whether the latest observation is present and finite
func (s Series) LatestFinite() bool {
	last, ok := s.Last()
	if !ok {
		return false
	}
	return !math.IsNaN(last.Value) && !math.IsInf(last.Value, 0)
}

// COTReport is one weekly Commitments of Traders row for the tracked market
type COTReport struct {
	Date         time.Time `json:"date"`
	RetailNet    float64   `json:"retail_net"`    // non-reportable long - short
	OpenInterest float64   `json:"open_interest"`
}

// NetPercentOfOI returns retail net as a percentage of open interest
func (r COTReport) NetPercentOfOI() float64 {
	if r.OpenInterest <= 0 {
		return math.NaN()
	}
	return 100 * r.RetailNet / r.OpenInterest
}

// Snapshot is the immutable input for one evaluation
// ⭐ SSOT: 평가 1회 = Snapshot 1개
type Snapshot struct {
	Positioning Series `json:"positioning"`
	Flow        Series `json:"flow"`
	Premium     Series `json:"premium"`

	// LatestCOT is informational only and never scored
	LatestCOT *COTReport `json:"latest_cot,omitempty"`
}

// Get returns the series for a name
func (s *Snapshot) Get(name SeriesName) (Series, bool) {
	switch name {
	case SeriesPositioning:
		return s.Positioning, true
	case SeriesFlow:
		return s.Flow, true
	case SeriesPremium:
		return s.Premium, true
	}
	return Series{}, false
}

// Validate checks the shape of every series
func (s *Snapshot) Validate() error {
	for _, name := range AllSeries() {
		series, _ := s.Get(name)
		if err := series.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Until returns a snapshot restricted to observations on or before t
func (s *Snapshot) Until(t time.Time) *Snapshot {
	return &Snapshot{
		Positioning: s.Positioning.Until(t),
		Flow:        s.Flow.Until(t),
		Premium:     s.Premium.Until(t),
		LatestCOT:   s.LatestCOT,
	}
}

// Dates returns the union of observation dates across all series, ascending
func (s *Snapshot) Dates() []time.Time {
	seen := make(map[time.Time]struct{})
	var dates []time.Time
	for _, name := range AllSeries() {
		series, _ := s.Get(name)
		for _, p := range series.Points {
			if _, ok := seen[p.Date]; ok {
				continue
			}
			seen[p.Date] = struct{}{}
			dates = append(dates, p.Date)
		}
	}
	slices.SortFunc(dates, time.Time.Compare)
	return dates
}
