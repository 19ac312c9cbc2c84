package jobs

import (
	"context"

	"github.com/silverpulse/heat/internal/contracts"
	"github.com/silverpulse/heat/internal/refresh"
	"github.com/silverpulse/heat/internal/scheduler"
	"github.com/silverpulse/heat/pkg/logger"
)

// DefaultRefreshSchedule runs after the Friday COT release (seconds field first)
const DefaultRefreshSchedule = "0 30 21 * * 5"

// Refresher runs one refresh cycle
type Refresher interface {
	Run(ctx context.Context) (*contracts.Evaluation, error)
}

// RefreshJob collects, evaluates and stores the heat index
type RefreshJob struct {
	refresher Refresher
	schedule  string
	logger    *logger.Logger
}

// NewRefreshJob creates a new refresh job. An empty schedule uses DefaultRefreshSchedule.
func NewRefreshJob(r Refresher, schedule string, log *logger.Logger) *RefreshJob {
	if schedule == "" {
		schedule = DefaultRefreshSchedule
	}
	if log == nil {
		log = logger.Nop()
	}
	return &RefreshJob{
		refresher: r,
		schedule:  schedule,
		logger:    log,
	}
}

// Name returns the job name
func (j *RefreshJob) Name() string {
	return "heat_refresh"
}

// Schedule returns the cron schedule
func (j *RefreshJob) Schedule() string {
	return j.schedule
}

// Run executes one refresh. Input data problems are not retried.
func (j *RefreshJob) Run(ctx context.Context) error {
	j.logger.Debug("Starting scheduled heat refresh")

	eval, err := j.refresher.Run(ctx)
	if err != nil {
		if refresh.IsDataError(err) {
			return scheduler.Permanent(err)
		}
		return err
	}

	j.logger.WithFields(map[string]interface{}{
		"heat":  eval.Heat,
		"as_of": eval.AsOf.Format("2006-01-02"),
	}).Info("Scheduled refresh completed")
	return nil
}
