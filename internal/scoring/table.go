// Package scoring maps a continuous value onto a discrete sub-score through
// an ordered table of half-open bands.
package scoring

import (
	"fmt"
	"math"

	"github.com/silverpulse/heat/internal/contracts"
)

// Band assigns Score to values in [Min, Max). A nil bound is unbounded.
type Band struct {
	Score contracts.SubScore `yaml:"score" json:"score"`
	Min   *float64           `yaml:"min,omitempty" json:"min,omitempty"`
	Max   *float64           `yaml:"max,omitempty" json:"max,omitempty"`
}

// Contains reports whether x falls in the band
func (b Band) Contains(x float64) bool {
	if b.Min != nil && x < *b.Min {
		return false
	}
	if b.Max != nil && x >= *b.Max {
		return false
	}
	return true
}

// String renders the band as an interval
func (b Band) String() string {
	lo, hi := "-inf", "+inf"
	if b.Min != nil {
		lo = fmt.Sprintf("%g", *b.Min)
	}
	if b.Max != nil {
		hi = fmt.Sprintf("%g", *b.Max)
	}
	return fmt.Sprintf("[%s, %s) -> %d", lo, hi, b.Score)
}

// Bound returns a pointer to v for band literals
func Bound(v float64) *float64 {
	return &v
}

// Table is an ordered list of bands covering the real line
// ⭐ SSOT: 밴드 경계는 모두 [Min, Max)
type Table struct {
	Name  string
	Bands []Band
}

// Validate checks that the bands are ascending, contiguous, exhaustive and
// mutually exclusive, and that every score is a valid level.
func (t Table) Validate() error {
	if len(t.Bands) == 0 {
		return t.errorf("no bands")
	}

	first, last := t.Bands[0], t.Bands[len(t.Bands)-1]
	if first.Min != nil {
		return t.errorf("first band must be unbounded below, got min %g", *first.Min)
	}
	if last.Max != nil {
		return t.errorf("last band must be unbounded above, got max %g", *last.Max)
	}

	for i, b := range t.Bands {
		if !b.Score.Valid() {
			return t.errorf("band %d: score %d not in {5,10,15,20,25}", i, b.Score)
		}
		if b.Min != nil && !finite(*b.Min) {
			return t.errorf("band %d: min must be finite", i)
		}
		if b.Max != nil && !finite(*b.Max) {
			return t.errorf("band %d: max must be finite", i)
		}
		if b.Min != nil && b.Max != nil && *b.Min >= *b.Max {
			return t.errorf("band %d: min %g >= max %g", i, *b.Min, *b.Max)
		}
		if i == len(t.Bands)-1 {
			continue
		}

		next := t.Bands[i+1]
		if b.Max == nil || next.Min == nil {
			return t.errorf("band %d: only the outer bands may be unbounded", i)
		}
		if *b.Max != *next.Min {
			if *b.Max < *next.Min {
				return t.errorf("gap between %g and %g", *b.Max, *next.Min)
			}
			return t.errorf("bands %d and %d overlap", i, i+1)
		}
	}
	return nil
}

// Map returns the score of the band containing x.
// Non-finite x is never bucketed.
func (t Table) Map(x float64) (contracts.SubScore, error) {
	if !finite(x) {
		return 0, fmt.Errorf("%w: %s value is not finite", contracts.ErrDataInsufficient, t.Name)
	}
	for _, b := range t.Bands {
		if b.Contains(x) {
			return b.Score, nil
		}
	}
	return 0, t.errorf("no band contains %g", x)
}

// MapZ maps an available z-score and propagates the reason otherwise
func (t Table) MapZ(z contracts.ZScore) (contracts.SubScore, error) {
	if err := z.Err(); err != nil {
		return 0, fmt.Errorf("%s z-score %s: %w", t.Name, z.Status, err)
	}
	return t.Map(z.Value)
}

// Monotonic reports whether scores never decrease as values increase
func (t Table) Monotonic() bool {
	for i := 1; i < len(t.Bands); i++ {
		if t.Bands[i].Score < t.Bands[i-1].Score {
			return false
		}
	}
	return true
}

func (t Table) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: table %s: %s", contracts.ErrConfiguration, t.Name, fmt.Sprintf(format, args...))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
