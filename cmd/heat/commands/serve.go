package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/silverpulse/heat/internal/api"
	"github.com/silverpulse/heat/internal/api/handlers"
	"github.com/silverpulse/heat/internal/api/ws"
	"github.com/silverpulse/heat/internal/scheduler"
	"github.com/silverpulse/heat/internal/scheduler/jobs"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "API 서버 시작",
	Long: `REST API 와 WebSocket 서버를 시작합니다.

Endpoints:
  GET  /health               - Health check
  GET  /api/heat             - 최신 heat index
  GET  /api/heat/history     - heat 이력 (from, to, limit)
  POST /api/heat/evaluate    - 즉시 재계산
  GET  /api/cot/latest       - 최신 COT retail net / open interest
  GET  /api/jobs             - 스케줄 작업 통계 (--schedule)
  GET  /ws/heat              - 새 evaluation push
  GET  /metrics              - Prometheus

Example:
  go run ./cmd/heat serve
  go run ./cmd/heat serve --port 8080 --schedule`,
	RunE: runServe,
}

var (
	servePort     string
	serveSchedule bool
	serveWarmup   bool
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&servePort, "port", "", "API 서버 포트 (default: PORT)")
	serveCmd.Flags().BoolVar(&serveSchedule, "schedule", false, "run the refresh job on SCHEDULE_CRON")
	serveCmd.Flags().BoolVar(&serveWarmup, "warmup", true, "evaluate once at startup")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if servePort != "" {
		a.cfg.Port = servePort
	}

	hub := ws.NewHub(a.log)
	go hub.Run(ctx)
	a.refresh.Subscribe(hub)

	routes := api.Routes{
		Heat:    handlers.NewHeatHandler(a.refresh, a.log),
		Stream:  hub,
		Metrics: a.metrics,
	}

	var sched *scheduler.Scheduler
	if serveSchedule {
		sched = newScheduler(a)
		if err := sched.AddJob(jobs.NewRefreshJob(a.refresh, a.cfg.Schedule.Cron, a.log)); err != nil {
			return err
		}
		routes.Jobs = handlers.NewJobsHandler(sched)
		sched.Start()
		defer sched.Stop()
	}

	if serveWarmup {
		if _, err := a.refresh.Run(ctx); err != nil {
			a.log.WithError(err).Warn("Warmup evaluation failed")
		}
	}

	server := api.New(a.cfg, a.log, api.NewRouter(routes, a.log))
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	a.log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	a.log.Info("Server stopped")
	return nil
}

func newScheduler(a *app) *scheduler.Scheduler {
	return scheduler.New(a.log, scheduler.WithRetry(a.cfg.Schedule.MaxRetries, a.cfg.Schedule.RetryDelay))
}
