package commands

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/silverpulse/heat/internal/contracts"
	"github.com/silverpulse/heat/internal/heatconfig"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Heat 설정 관리",
	Long: `Heat calibration YAML 을 검증하거나 기본값을 출력합니다.

Subcommands:
  validate  - YAML 검증 (windows, bands, weights, phases)
  show      - 기본 설정 YAML 출력

Example:
  go run ./cmd/heat config validate config/heat.yaml
  go run ./cmd/heat config show > config/heat.yaml`,
}

var (
	configValidateCmd = &cobra.Command{
		Use:   "validate [path]",
		Short: "설정 파일 검증",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runConfigValidate,
	}

	configShowCmd = &cobra.Command{
		Use:   "show",
		Short: "기본 설정 출력",
		Args:  cobra.NoArgs,
		RunE:  runConfigShow,
	}
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configShowCmd)
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	path := heatConfigFile
	if len(args) == 1 {
		path = args[0]
	}
	if path == "" {
		path = os.Getenv("HEAT_CONFIG")
	}
	if path == "" {
		return fmt.Errorf("no config file given (argument, --heat-config or HEAT_CONFIG)")
	}

	cfg, _, err := heatconfig.Load(path)
	if err != nil {
		PrintError(err.Error())
		return err
	}
	hash, err := heatconfig.Hash(cfg)
	if err != nil {
		return err
	}

	PrintHeader("Heat config: " + path)
	PrintKeyValue("config_id", cfg.Meta.ConfigID, 10)
	PrintKeyValue("version", cfg.Meta.Version, 10)
	PrintKeyValue("hash", hash, 10)
	PrintKeyValue("weights", fmt.Sprintf("positioning=%.2f flow=%.2f premium=%.2f",
		cfg.Weights.Positioning, cfg.Weights.Flow, cfg.Weights.Premium), 10)
	PrintSeparator()

	widths := []int{12, 8, 26}
	PrintTableHeader([]string{"SIGNAL", "WINDOW", "BANDS"}, widths)
	for _, name := range contracts.AllSeries() {
		sc, _ := cfg.Signals.Get(name)
		for i, b := range sc.Bands {
			row := []string{"", "", b.String()}
			if i == 0 {
				row[0], row[1] = string(name), strconv.Itoa(sc.Window)
			}
			PrintTableRow(row, widths)
		}
	}
	PrintSeparator()

	for _, w := range heatconfig.Warn(cfg) {
		PrintWarning(fmt.Sprintf("%s: %s", w.Code, w.Message))
	}
	PrintSuccess("Config is valid")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(heatconfig.Default())
}
