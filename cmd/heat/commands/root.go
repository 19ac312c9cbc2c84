package commands

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	heatConfigFile string
	fixtureDir     string
	storedSeries   bool
	env            string
	verbose        bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "heat",
	Short: "Silver retail sentiment heat index",
	Long: `Silver Retail Heat CLI

COT 포지셔닝, ETF 자금흐름, 실물 프리미엄 세 시그널을
5~25 heat index 로 합산합니다.

Usage:
  go run ./cmd/heat [command]

Examples:
  go run ./cmd/heat evaluate --fixtures testdata/snapshot
  go run ./cmd/heat fetch --out data/snapshot
  go run ./cmd/heat serve
  go run ./cmd/heat config validate config/heat.yaml`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cmd.Flags().Changed("env") {
			_ = os.Setenv("ENV", env)
		}
		if verbose {
			_ = os.Setenv("LOG_LEVEL", "debug")
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&heatConfigFile, "heat-config", "", "heat calibration YAML (default: HEAT_CONFIG or built-in)")
	rootCmd.PersistentFlags().StringVar(&fixtureDir, "fixtures", "", "read series from CSV fixtures in this directory instead of the live sources")
	rootCmd.PersistentFlags().BoolVar(&storedSeries, "stored", false, "evaluate the persisted series without downloading")
	rootCmd.PersistentFlags().StringVar(&env, "env", "development", "environment (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
