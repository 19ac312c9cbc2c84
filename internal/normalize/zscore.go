// Package normalize computes rolling z-scores over a trailing window.
//
// Dispersion is the sample standard deviation (n-1 denominator). A window
// that cannot yield a finite z-score is reported through ZScore.Status,
// never as NaN.
package normalize

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/silverpulse/heat/internal/contracts"
)

// MinWindow is the smallest window with a defined sample deviation
const MinWindow = 2

// degenerateEpsilon bounds the deviation treated as zero, relative to the
// window mean's magnitude.
const degenerateEpsilon = 1e-12

// Stat holds the window statistics at one index
type Stat struct {
	Mean   float64
	StdDev float64
	Status contracts.ZStatus
}

// RollingStats returns mean and sample deviation of the trailing window
// ending at each index.
func RollingStats(values []float64, window int) []Stat {
	out := make([]Stat, len(values))
	for i := range values {
		out[i] = statAt(values, i, window)
	}
	return out
}

// RollingZScores returns the z-score of each value against its trailing window
func RollingZScores(values []float64, window int) []contracts.ZScore {
	out := make([]contracts.ZScore, len(values))
	for i := range values {
		out[i] = zAt(values, i, window)
	}
	return out
}

// Latest returns the z-score of the last value only
func Latest(values []float64, window int) contracts.ZScore {
	if len(values) == 0 {
		return contracts.ZScore{Status: contracts.ZInsufficient}
	}
	return zAt(values, len(values)-1, window)
}

func zAt(values []float64, i, window int) contracts.ZScore {
	s := statAt(values, i, window)
	if s.Status != contracts.ZAvailable {
		return contracts.ZScore{Status: s.Status}
	}

	z := (values[i] - s.Mean) / s.StdDev
	if !finite(z) {
		return contracts.ZScore{Status: contracts.ZDegenerate}
	}
	return contracts.ZScore{Value: z, Status: contracts.ZAvailable}
}

func statAt(values []float64, i, window int) Stat {
	if window < MinWindow || i < window-1 {
		return Stat{Status: contracts.ZInsufficient}
	}

	w := values[i-window+1 : i+1]
	for _, v := range w {
		if !finite(v) {
			return Stat{Status: contracts.ZDegenerate}
		}
	}

	mean, std := stat.MeanStdDev(w, nil)
	if !finite(std) || std <= degenerateEpsilon*math.Max(1, math.Abs(mean)) {
		return Stat{Mean: mean, StdDev: std, Status: contracts.ZDegenerate}
	}
	return Stat{Mean: mean, StdDev: std, Status: contracts.ZAvailable}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
