package contracts

import (
	"errors"
	"fmt"
	"strings"
)

// Error taxonomy
// ⭐ SSOT: 모든 에러는 아래 sentinel 로 errors.Is 판별
var (
	// ErrDataInsufficient: not enough history or a missing latest value
	ErrDataInsufficient = errors.New("data insufficient")
	// ErrDegenerateStatistic: zero or non-finite dispersion inside a window
	ErrDegenerateStatistic = errors.New("degenerate statistic")
	// ErrConfiguration: invalid band tables, weights, windows or rules
	ErrConfiguration = errors.New("configuration error")
	// ErrUnorderedSeries: dates not strictly increasing
	ErrUnorderedSeries = errors.New("series dates not strictly increasing")
	// ErrNotFound: no stored evaluation or series
	ErrNotFound = errors.New("not found")
)

// SignalError attributes a failure to one signal
type SignalError struct {
	Signal SeriesName
	Err    error
}

func (e *SignalError) Error() string {
	return fmt.Sprintf("%s: %v", e.Signal, e.Err)
}

func (e *SignalError) Unwrap() error {
	return e.Err
}

// EvaluationError is returned when any signal fails.
// Results holds the signals that did score; no composite is produced.
type EvaluationError struct {
	Results []SignalResult
	Errs    []error
}

func (e *EvaluationError) Error() string {
	msgs := make([]string, len(e.Errs))
	for i, err := range e.Errs {
		msgs[i] = err.Error()
	}
	return "evaluation failed: " + strings.Join(msgs, "; ")
}

// Unwrap exposes every signal failure to errors.Is / errors.As
func (e *EvaluationError) Unwrap() []error {
	return e.Errs
}

// Failed returns the names of the signals that failed
func (e *EvaluationError) Failed() []SeriesName {
	var names []SeriesName
	for _, err := range e.Errs {
		var se *SignalError
		if errors.As(err, &se) {
			names = append(names, se.Signal)
		}
	}
	return names
}
