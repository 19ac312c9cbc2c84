// Package signals turns each input series into a sub-score.
package signals

import (
	"fmt"

	"github.com/silverpulse/heat/internal/contracts"
	"github.com/silverpulse/heat/pkg/logger"
)

// Scorer scores one named series
// ⭐ SSOT: 시그널 1개 = Scorer 1개
type Scorer interface {
	Name() contracts.SeriesName
	Score(series contracts.Series) (contracts.SignalResult, error)
}

// requireHistory checks the preconditions every scorer shares
func requireHistory(series contracts.Series, window int) error {
	if series.Len() < window {
		return fmt.Errorf("%w: have %d observations, need %d",
			contracts.ErrDataInsufficient, series.Len(), window)
	}
	if !series.LatestFinite() {
		return fmt.Errorf("%w: latest observation missing", contracts.ErrDataInsufficient)
	}
	return nil
}

func fail(name contracts.SeriesName, err error) error {
	return &contracts.SignalError{Signal: name, Err: err}
}

func logResult(log *logger.Logger, r contracts.SignalResult) {
	fields := map[string]interface{}{
		"signal": string(r.Signal),
		"score":  int(r.Score),
		"raw":    r.Raw,
		"z":      r.Z.Status.String(),
		"date":   r.Date.Format("2006-01-02"),
	}
	if r.Z.Available() {
		fields["z_value"] = r.Z.Value
	}
	log.WithFields(fields).Debug("Scored signal")
}

func nopIfNil(log *logger.Logger) *logger.Logger {
	if log == nil {
		return logger.Nop()
	}
	return log
}
