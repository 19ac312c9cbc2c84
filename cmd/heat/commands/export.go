package commands

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/silverpulse/heat/internal/contracts"
	"github.com/silverpulse/heat/internal/report"
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Score 이력 내보내기",
	Long: `저장된 evaluation 이력을 scores.csv 또는 XLSX 로 내보냅니다.
--trend 는 저장소 대신 현재 스냅샷을 날짜별로 잘라 다시 계산합니다.

Example:
  go run ./cmd/heat export --out scores.csv
  go run ./cmd/heat export --format xlsx --out heat.xlsx --from 2024-01-01
  go run ./cmd/heat export --trend --fixtures testdata/snapshot --format text`,
	RunE: runExport,
}

var (
	exportFormat string
	exportOut    string
	exportFrom   string
	exportTo     string
	exportLimit  int
	exportTrend  bool
)

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "csv, xlsx or text")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output file (default: stdout)")
	exportCmd.Flags().StringVar(&exportFrom, "from", "", "first as-of date (YYYY-MM-DD)")
	exportCmd.Flags().StringVar(&exportTo, "to", "", "last as-of date (YYYY-MM-DD)")
	exportCmd.Flags().IntVar(&exportLimit, "limit", 0, "keep only the most recent N evaluations")
	exportCmd.Flags().BoolVar(&exportTrend, "trend", false, "recompute history from the current snapshot")
}

func parseDateFlag(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: %w", name, err)
	}
	return t, nil
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	from, err := parseDateFlag("from", exportFrom)
	if err != nil {
		return err
	}
	to, err := parseDateFlag("to", exportTo)
	if err != nil {
		return err
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var evals []*contracts.Evaluation
	if exportTrend {
		snap, err := a.snapshot(ctx)
		if err != nil {
			return err
		}
		trend, err := a.engine.Trend(snap, snap.Dates())
		if err != nil {
			return err
		}
		evals = filterTrend(trend, from, to, exportLimit)
	} else {
		evals, err = a.refresh.History(ctx, from, to, exportLimit)
		if err != nil {
			return err
		}
	}

	var w io.Writer = os.Stdout
	if exportOut != "" {
		f, err := os.Create(exportOut)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}

	switch strings.ToLower(exportFormat) {
	case "csv":
		err = report.WriteScoresCSV(w, evals)
	case "xlsx":
		err = report.WriteXLSX(w, evals)
	case "text":
		err = report.WriteHistory(w, evals)
	default:
		return fmt.Errorf("unknown format %q", exportFormat)
	}
	if err != nil {
		return err
	}

	if exportOut != "" {
		PrintSuccess(fmt.Sprintf("Exported %d evaluations to %s", len(evals), exportOut))
	}
	return nil
}

func filterTrend(evals []*contracts.Evaluation, from, to time.Time, limit int) []*contracts.Evaluation {
	var out []*contracts.Evaluation
	for _, e := range evals {
		if !from.IsZero() && e.AsOf.Before(from) {
			continue
		}
		if !to.IsZero() && e.AsOf.After(to) {
			continue
		}
		out = append(out, e)
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}
