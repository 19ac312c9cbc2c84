package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/silverpulse/heat/internal/contracts"
)

// ScoreColumns is the scores.csv header
var ScoreColumns = []string{"date", "positioning_score", "flow_score", "premium_score", "total", "change"}

func scoreRow(e *contracts.Evaluation) []string {
	pos, flow, prem := e.Scores()
	return []string{
		e.AsOf.Format(dateLayout),
		strconv.Itoa(int(pos)),
		strconv.Itoa(int(flow)),
		strconv.Itoa(int(prem)),
		strconv.Itoa(e.Heat),
		strconv.Itoa(e.Change),
	}
}

// WriteScoresCSV writes one scores.csv row per evaluation
func WriteScoresCSV(w io.Writer, evals []*contracts.Evaluation) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ScoreColumns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, e := range evals {
		if err := cw.Write(scoreRow(e)); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Sheet names of the XLSX export
const (
	SheetScores  = "Scores"
	SheetSignals = "Signals"
)

var signalColumns = []string{"date", "signal", "score", "z", "z_status", "raw", "latest", "observed", "window"}

// WriteXLSX writes a workbook with the score history and the per-signal detail
func WriteXLSX(w io.Writer, evals []*contracts.Evaluation) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetScores); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetSignals); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	if err := writeRow(f, SheetScores, 1, toAny(ScoreColumns)); err != nil {
		return err
	}
	if err := writeRow(f, SheetSignals, 1, toAny(signalColumns)); err != nil {
		return err
	}
	for _, sheet := range []string{SheetScores, SheetSignals} {
		if err := f.SetRowStyle(sheet, 1, 1, header); err != nil {
			return fmt.Errorf("style header: %w", err)
		}
	}

	signalRow := 2
	for i, e := range evals {
		pos, flow, prem := e.Scores()
		row := []interface{}{e.AsOf.Format(dateLayout), int(pos), int(flow), int(prem), e.Heat, e.Change}
		if err := writeRow(f, SheetScores, i+2, row); err != nil {
			return err
		}

		for _, res := range e.Results() {
			var z interface{}
			if res.Z.Available() {
				z = res.Z.Value
			}
			row := []interface{}{
				e.AsOf.Format(dateLayout), string(res.Signal), int(res.Score), z, res.Z.Status.String(),
				res.Raw, res.Latest, res.Date.Format(dateLayout), res.Window,
			}
			if err := writeRow(f, SheetSignals, signalRow, row); err != nil {
				return err
			}
			signalRow++
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func toAny(ss []string) []interface{} {
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
