package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/silverpulse/heat/internal/contracts"
	"github.com/silverpulse/heat/internal/report"
)

// evaluateCmd represents the evaluate command
var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Heat index 계산",
	Long: `세 시그널을 수집하고 heat index 를 계산합니다.

이 명령어는:
- COT / ETF / 프리미엄 시계열 수집 (또는 --fixtures CSV)
- 시그널별 5~25 점수 계산
- 가중합 heat index, phase, driver 출력
- 결과 저장 (--dry-run 이면 저장하지 않음)

Example:
  go run ./cmd/heat evaluate --fixtures testdata/snapshot
  go run ./cmd/heat evaluate --json`,
	RunE: runEvaluate,
}

var (
	evaluateJSON   bool
	evaluateDryRun bool
)

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().BoolVar(&evaluateJSON, "json", false, "print the evaluation as JSON")
	evaluateCmd.Flags().BoolVar(&evaluateDryRun, "dry-run", false, "evaluate without storing the result")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var (
		eval *contracts.Evaluation
		cot  *contracts.COTReport
	)
	if evaluateDryRun {
		snap, err := a.snapshot(ctx)
		if err != nil {
			return err
		}
		cot = snap.LatestCOT
		eval, err = a.engine.Evaluate(snap)
		if err != nil {
			printEvaluationError(err)
			return err
		}
		if !evaluateJSON {
			PrintInfo("Dry run: evaluation not stored, change is not computed")
		}
	} else {
		eval, err = a.refresh.Run(ctx)
		if err != nil {
			printEvaluationError(err)
			return err
		}
		cot, _ = a.refresh.LatestCOT(ctx)
	}

	if evaluateJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(eval)
	}
	return report.WriteText(os.Stdout, eval, cot)
}

// printEvaluationError lists the failing signals and the ones that did score
func printEvaluationError(err error) {
	var ee *contracts.EvaluationError
	if !errors.As(err, &ee) {
		PrintError(err.Error())
		return
	}

	PrintHeader("Evaluation failed: no composite produced")
	for _, e := range ee.Errs {
		PrintError(e.Error())
	}
	for _, res := range ee.Results {
		PrintKeyValue(string(res.Signal), fmt.Sprintf("%d/%d", res.Score, contracts.ScoreMax), 12)
	}
	PrintSeparator()
}
