package heatconfig

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/silverpulse/heat/internal/contracts"
	"github.com/silverpulse/heat/internal/normalize"
)

// weightEpsilon 가중치 합 허용 오차
const weightEpsilon = 1e-6

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match contracts.ErrConfiguration
func (e ValidationError) Unwrap() error {
	return contracts.ErrConfiguration
}

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string
	Message string
}

// Validate checks all required constraints
// 실패 시 error 반환 (프로그램 중단)
func Validate(cfg *Config) error {
	if cfg == nil {
		return ValidationError{"config", "required"}
	}

	// === Meta ===
	if cfg.Meta.ConfigID == "" {
		return ValidationError{"meta.config_id", "required"}
	}

	// === Signals ===
	for _, name := range contracts.AllSeries() {
		sc, _ := cfg.Signals.Get(name)
		field := "signals." + string(name)

		if sc.Window < normalize.MinWindow {
			return ValidationError{field + ".window", fmt.Sprintf("must be >= %d, got %d", normalize.MinWindow, sc.Window)}
		}
		if err := sc.Table(name).Validate(); err != nil {
			return ValidationError{field + ".bands", stripSentinel(err)}
		}
	}

	// === Weights ===
	if err := ValidateWeights(cfg.Weights); err != nil {
		return err
	}

	// === Interpretation ===
	if err := validatePhases(cfg.Interpretation.Phases); err != nil {
		return err
	}
	d := cfg.Interpretation.Drivers
	if d.FlowLeads == "" || d.PositioningLeads == "" || d.Aligned == "" {
		return ValidationError{"interpretation.drivers", "all three labels are required"}
	}

	return nil
}

// ValidateWeights checks non-negative weights summing to 1
func ValidateWeights(w Weights) error {
	fields := []struct {
		name  string
		value float64
	}{
		{"weights.positioning", w.Positioning},
		{"weights.flow", w.Flow},
		{"weights.premium", w.Premium},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) || f.value < 0 {
			return ValidationError{f.name, "must be a finite value >= 0"}
		}
	}
	if err := validateWeightsSum([]float64{w.Positioning, w.Flow, w.Premium}, 1.0, weightEpsilon); err != nil {
		return ValidationError{"weights", err.Error()}
	}
	return nil
}

// Warn checks recommended constraints (non-fatal)
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	for _, name := range contracts.AllSeries() {
		sc, _ := cfg.Signals.Get(name)

		// 짧은 window → z-score 불안정
		if sc.Window < 20 {
			warnings = append(warnings, Warning{
				Code:    "SHORT_WINDOW",
				Message: fmt.Sprintf("%s window %d < 20: z-score unstable", name, sc.Window),
			})
		}
		if !sc.Table(name).Monotonic() {
			warnings = append(warnings, Warning{
				Code:    "NON_MONOTONIC_BANDS",
				Message: fmt.Sprintf("%s scores decrease as the value rises", name),
			})
		}
	}

	if cfg.Weights.Positioning == 0 || cfg.Weights.Flow == 0 || cfg.Weights.Premium == 0 {
		warnings = append(warnings, Warning{
			Code:    "ZERO_WEIGHT",
			Message: "a signal with zero weight is still required for every evaluation",
		})
	}

	return warnings
}

// === Helper Functions ===

func validatePhases(phases []PhaseRule) error {
	if len(phases) == 0 {
		return ValidationError{"interpretation.phases", "must not be empty"}
	}
	for i, p := range phases {
		field := fmt.Sprintf("interpretation.phases[%d]", i)
		if p.Label == "" {
			return ValidationError{field + ".label", "required"}
		}
		last := i == len(phases)-1
		if last && p.Below != nil {
			return ValidationError{field + ".below", "last phase must be unbounded"}
		}
		if !last && p.Below == nil {
			return ValidationError{field + ".below", "only the last phase may be unbounded"}
		}
		if i > 0 && !last && *p.Below <= *phases[i-1].Below {
			return ValidationError{field + ".below", "must be strictly increasing"}
		}
	}
	return nil
}

func validateWeightsSum(weights []float64, target float64, epsilon float64) error {
	if len(weights) == 0 {
		return errors.New("must not be empty")
	}
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	if math.Abs(sum-target) > epsilon {
		return fmt.Errorf("must sum to %.2f, got %.4f", target, sum)
	}
	return nil
}

// stripSentinel drops the sentinel prefix ValidationError already implies
func stripSentinel(err error) string {
	return strings.TrimPrefix(err.Error(), contracts.ErrConfiguration.Error()+": ")
}
