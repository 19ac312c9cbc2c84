package heatconfig

import (
	"github.com/silverpulse/heat/internal/contracts"
	"github.com/silverpulse/heat/internal/scoring"
)

// Config는 heat index 계산의 전체 설정
type Config struct {
	Meta           Meta           `yaml:"meta" json:"meta"`
	Signals        Signals        `yaml:"signals" json:"signals"`
	Weights        Weights        `yaml:"weights" json:"weights"`
	Interpretation Interpretation `yaml:"interpretation" json:"interpretation"`
}

// Meta 메타 정보
type Meta struct {
	ConfigID  string `yaml:"config_id" json:"config_id"`
	Version   string `yaml:"version" json:"version"`
	Commodity string `yaml:"commodity" json:"commodity"`
}

// Signals 시그널별 window + band table
type Signals struct {
	Positioning SignalConfig `yaml:"positioning" json:"positioning"`
	Flow        SignalConfig `yaml:"flow" json:"flow"`
	Premium     SignalConfig `yaml:"premium" json:"premium"`
}

// SignalConfig configures one scorer. For flow and premium the window only
// sizes the diagnostic z-score and the minimum history.
type SignalConfig struct {
	Window int            `yaml:"window" json:"window"`
	Bands  []scoring.Band `yaml:"bands" json:"bands"`
}

// Table returns the band table under the given name
func (s SignalConfig) Table(name contracts.SeriesName) scoring.Table {
	return scoring.Table{Name: string(name), Bands: s.Bands}
}

// Get returns the signal config by series name
func (s Signals) Get(name contracts.SeriesName) (SignalConfig, bool) {
	switch name {
	case contracts.SeriesPositioning:
		return s.Positioning, true
	case contracts.SeriesFlow:
		return s.Flow, true
	case contracts.SeriesPremium:
		return s.Premium, true
	}
	return SignalConfig{}, false
}

// Weights 합성 가중치 (합 = 1)
type Weights struct {
	Positioning float64 `yaml:"positioning" json:"positioning"`
	Flow        float64 `yaml:"flow" json:"flow"`
	Premium     float64 `yaml:"premium" json:"premium"`
}

// Sum returns the total weight
func (w Weights) Sum() float64 {
	return w.Positioning + w.Flow + w.Premium
}

// Interpretation 해석 규칙
type Interpretation struct {
	Phases  []PhaseRule `yaml:"phases" json:"phases"`
	Drivers Drivers     `yaml:"drivers" json:"drivers"`
}

// PhaseRule labels heat values below Below. The last rule has no bound.
type PhaseRule struct {
	Below *int   `yaml:"below,omitempty" json:"below,omitempty"`
	Label string `yaml:"label" json:"label"`
}

// Drivers 포지셔닝 vs ETF flow 비교 문구
type Drivers struct {
	FlowLeads        string `yaml:"flow_leads" json:"flow_leads"`
	PositioningLeads string `yaml:"positioning_leads" json:"positioning_leads"`
	Aligned          string `yaml:"aligned" json:"aligned"`
}

func intPtr(v int) *int {
	return &v
}

// Default returns the built-in calibration
// ⭐ SSOT: config/heat.yaml 과 동일해야 함
func Default() *Config {
	return &Config{
		Meta: Meta{
			ConfigID:  "silver_retail_heat",
			Version:   "1",
			Commodity: "silver",
		},
		Signals: Signals{
			Positioning: SignalConfig{Window: 52, Bands: scoring.PositioningBands()},
			Flow:        SignalConfig{Window: 30, Bands: scoring.FlowBands()},
			Premium:     SignalConfig{Window: 30, Bands: scoring.PremiumBands()},
		},
		Weights: Weights{Positioning: 0.5, Flow: 0.3, Premium: 0.2},
		Interpretation: Interpretation{
			Phases: []PhaseRule{
				{Below: intPtr(8), Label: "early participation"},
				{Below: intPtr(15), Label: "normal involvement"},
				{Below: intPtr(22), Label: "crowding building"},
				{Label: "possible late-stage enthusiasm"},
			},
			Drivers: Drivers{
				FlowLeads:        "ETF flows dominate futures positioning",
				PositioningLeads: "futures positioning leads ETF demand",
				Aligned:          "futures and ETF activity are aligned",
			},
		},
	}
}
