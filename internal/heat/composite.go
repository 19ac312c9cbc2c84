package heat

import (
	"math"

	"github.com/silverpulse/heat/internal/contracts"
	"github.com/silverpulse/heat/internal/heatconfig"
)

// Index bounds
const (
	MinHeat = int(contracts.ScoreMin)
	MaxHeat = int(contracts.ScoreMax)
)

// Weights are the composite weights
type Weights = heatconfig.Weights

// Composite returns round(Σ w·s), rounding halves away from zero, clamped
// to [MinHeat, MaxHeat]. Weights must already be validated.
func Composite(w Weights, pos, flow, prem contracts.SubScore) int {
	raw := w.Positioning*float64(pos) + w.Flow*float64(flow) + w.Premium*float64(prem)
	h := int(math.Round(raw))
	return max(MinHeat, min(MaxHeat, h))
}
