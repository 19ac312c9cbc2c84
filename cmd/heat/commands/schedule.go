package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/silverpulse/heat/internal/scheduler/jobs"
)

// scheduleCmd represents the schedule command
var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "스케줄러 시작",
	Long: `heat_refresh 작업을 SCHEDULE_CRON (초 단위 포함) 에 맞춰 실행합니다.
실패 시 SCHEDULE_MAX_RETRIES 만큼 재시도하며, 데이터 부족 오류는 재시도하지 않습니다.

스케줄러는 Ctrl+C로 종료할 수 있습니다.

Example:
  go run ./cmd/heat schedule
  go run ./cmd/heat schedule --once`,
	RunE: runSchedule,
}

var scheduleOnce bool

func init() {
	rootCmd.AddCommand(scheduleCmd)

	scheduleCmd.Flags().BoolVar(&scheduleOnce, "once", false, "run the refresh job once with retries and exit")
}

func runSchedule(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	sched := newScheduler(a)
	job := jobs.NewRefreshJob(a.refresh, a.cfg.Schedule.Cron, a.log)
	if err := sched.AddJob(job); err != nil {
		return err
	}

	if scheduleOnce {
		if err := sched.RunNow(ctx, job.Name()); err != nil {
			PrintError(err.Error())
			return err
		}
		PrintSuccess("heat_refresh completed")
		return nil
	}

	sched.Start()
	if next, ok := sched.NextRun(job.Name()); ok {
		PrintKeyValue("next run", next.Format(time.RFC3339), 10)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	sched.Stop()
	if stats, ok := sched.GetJobStats()[job.Name()]; ok {
		PrintKeyValue("runs", fmt.Sprintf("%d (%.0f%% ok)", stats.TotalRuns, stats.SuccessRate*100), 10)
	}
	return nil
}
