package contracts

import (
	"encoding/json"
	"fmt"
	"time"
)

// ZStatus describes whether a rolling z-score could be computed
type ZStatus int

const (
	ZAvailable    ZStatus = iota // finite z-score
	ZInsufficient                // fewer observations than the window
	ZDegenerate                  // zero or non-finite dispersion
)

// String returns the status label
func (s ZStatus) String() string {
	switch s {
	case ZAvailable:
		return "available"
	case ZInsufficient:
		return "insufficient"
	case ZDegenerate:
		return "degenerate"
	default:
		return "unknown"
	}
}

// ParseZStatus is the inverse of String
func ParseZStatus(s string) ZStatus {
	switch s {
	case "available":
		return ZAvailable
	case "degenerate":
		return ZDegenerate
	default:
		return ZInsufficient
	}
}

// ZScore is a standardized deviation or an explicit reason it is absent.
// Value is only meaningful when Status is ZAvailable.
type ZScore struct {
	Value  float64
	Status ZStatus
}

// Available reports whether Value can be used
func (z ZScore) Available() bool {
	return z.Status == ZAvailable
}

// Err returns the error matching an unavailable status, or nil
func (z ZScore) Err() error {
	switch z.Status {
	case ZAvailable:
		return nil
	case ZDegenerate:
		return ErrDegenerateStatistic
	default:
		return ErrDataInsufficient
	}
}

type zScoreJSON struct {
	Value  *float64 `json:"value"`
	Status string   `json:"status"`
}

// MarshalJSON encodes an unavailable value as null
func (z ZScore) MarshalJSON() ([]byte, error) {
	out := zScoreJSON{Status: z.Status.String()}
	if z.Available() {
		v := z.Value
		out.Value = &v
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the MarshalJSON form
func (z *ZScore) UnmarshalJSON(data []byte) error {
	var in zScoreJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	z.Status = ParseZStatus(in.Status)
	z.Value = 0
	if in.Value != nil && z.Status == ZAvailable {
		z.Value = *in.Value
	}
	return nil
}

// SubScore is a discrete signal level
type SubScore int

// Score levels
const (
	ScoreMin  SubScore = 5
	ScoreMax  SubScore = 25
	ScoreStep SubScore = 5
)

// Valid reports whether s is one of 5, 10, 15, 20, 25
func (s SubScore) Valid() bool {
	return s >= ScoreMin && s <= ScoreMax && s%ScoreStep == 0
}

// Fraction returns s/25 for progress displays
func (s SubScore) Fraction() float64 {
	return float64(s) / float64(ScoreMax)
}

// SignalResult is the outcome of scoring one series
type SignalResult struct {
	Signal SeriesName `json:"signal"`
	Score  SubScore   `json:"score"`
	Z      ZScore     `json:"z"`      // diagnostic z at the latest observation
	Raw    float64    `json:"raw"`    // value fed to the band table (z, delta or premium); only meaningful when Score is valid
	Latest float64    `json:"latest"` // latest observation of the input series
	Date   time.Time  `json:"date"`   // date of the latest observation
	Window int        `json:"window"`
}

// Interpretation labels an index value
type Interpretation struct {
	Phase  string `json:"phase"`
	Driver string `json:"driver"`
}

// Evaluation is one computed heat index with its inputs summarized
// ⭐ SSOT: Engine → API/Report/Store 전달 단위
type Evaluation struct {
	ID   string    `json:"id,omitempty"`
	AsOf time.Time `json:"as_of"`

	Positioning SignalResult `json:"positioning"`
	Flow        SignalResult `json:"flow"`
	Premium     SignalResult `json:"premium"`

	Heat           int            `json:"heat"`   // 5 ~ 25
	Change         int            `json:"change"` // vs previous evaluation
	Interpretation Interpretation `json:"interpretation"`

	ConfigHash string    `json:"config_hash"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
}

// Results returns the three signal results in evaluation order
func (e *Evaluation) Results() []SignalResult {
	return []SignalResult{e.Positioning, e.Flow, e.Premium}
}

// Complete reports an error unless every signal carries a valid sub-score.
// Only complete evaluations have a composite and may be stored.
func (e *Evaluation) Complete() error {
	for _, r := range e.Results() {
		if !r.Score.Valid() {
			return fmt.Errorf("%w: %s has no sub-score", ErrDataInsufficient, r.Signal)
		}
	}
	return nil
}

// Scores returns the three sub-scores in evaluation order
func (e *Evaluation) Scores() (pos, flow, prem SubScore) {
	return e.Positioning.Score, e.Flow.Score, e.Premium.Score
}
