package heat

import (
	"github.com/silverpulse/heat/internal/contracts"
	"github.com/silverpulse/heat/internal/heatconfig"
)

// Interpret labels the heat phase and which signal leads.
// rules must be validated; the first rule whose bound exceeds heat wins.
func Interpret(rules heatconfig.Interpretation, heat int, pos, flow contracts.SubScore) contracts.Interpretation {
	return contracts.Interpretation{
		Phase:  Phase(rules.Phases, heat),
		Driver: Driver(rules.Drivers, pos, flow),
	}
}

// Phase returns the label of the phase containing heat
func Phase(phases []heatconfig.PhaseRule, heat int) string {
	for _, p := range phases {
		if p.Below == nil || heat < *p.Below {
			return p.Label
		}
	}
	return ""
}

// Driver compares the positioning and flow sub-scores
func Driver(d heatconfig.Drivers, pos, flow contracts.SubScore) string {
	switch {
	case flow > pos:
		return d.FlowLeads
	case pos > flow:
		return d.PositioningLeads
	default:
		return d.Aligned
	}
}
