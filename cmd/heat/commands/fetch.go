package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/silverpulse/heat/internal/external/source"
)

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "원천 데이터 다운로드",
	Long: `COT, ETF 보유량, 프리미엄 페이지를 내려받아 CSV fixture 로 저장합니다.
저장된 디렉터리는 --fixtures 로 다시 읽을 수 있습니다.

Example:
  go run ./cmd/heat fetch --out data/snapshot`,
	RunE: runFetch,
}

var fetchOut string

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringVar(&fetchOut, "out", "data/snapshot", "output directory")
}

func runFetch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// live sources regardless of --fixtures or FIXTURE_DIR
	liveSources = true
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	snap, err := a.snapshot(ctx)
	if err != nil {
		PrintError(err.Error())
		return err
	}
	if err := source.WriteSnapshotCSV(fetchOut, snap); err != nil {
		return err
	}

	PrintHeader("Fetched sources")
	for _, s := range []struct {
		name  string
		count int
	}{
		{source.PositioningFile, snap.Positioning.Len()},
		{source.FlowFile, snap.Flow.Len()},
		{source.PremiumFile, snap.Premium.Len()},
	} {
		PrintKeyValue(s.name, fmt.Sprintf("%d rows", s.count), 16)
	}
	PrintSeparator()
	PrintSuccess("Saved to " + fetchOut)
	return nil
}
