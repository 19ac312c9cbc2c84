// Package report renders evaluations for people: a text summary, the
// scores.csv history and an XLSX workbook.
package report

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/silverpulse/heat/internal/contracts"
)

const (
	barWidth   = 20
	dateLayout = "2006-01-02"
	separator  = "───────────────────────────────────────────────────────────"
)

// signal labels in display order
var labels = map[contracts.SeriesName]string{
	contracts.SeriesPositioning: "COT positioning",
	contracts.SeriesFlow:        "ETF flow",
	contracts.SeriesPremium:     "Physical premium",
}

// Bar renders score/25 as a fixed-width progress bar
func Bar(s contracts.SubScore) string {
	filled := int(math.Round(s.Fraction() * barWidth))
	filled = max(0, min(barWidth, filled))
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled) + "]"
}

// Delta formats a change with an explicit sign
func Delta(change int) string {
	switch {
	case change > 0:
		return fmt.Sprintf("+%d", change)
	case change < 0:
		return fmt.Sprintf("%d", change)
	default:
		return "±0"
	}
}

// WriteText writes a summary of one evaluation. cot may be nil.
func WriteText(w io.Writer, eval *contracts.Evaluation, cot *contracts.COTReport) error {
	var b strings.Builder

	fmt.Fprintln(&b, "═══════════════════════════════════════════════════════════")
	fmt.Fprintln(&b, "  Silver Retail Heat Index")
	fmt.Fprintln(&b, separator)
	fmt.Fprintf(&b, "  Heat      : %d / %d  (%s)\n", eval.Heat, contracts.ScoreMax, Delta(eval.Change))
	fmt.Fprintf(&b, "  Phase     : %s\n", eval.Interpretation.Phase)
	fmt.Fprintf(&b, "  Driver    : %s\n", eval.Interpretation.Driver)
	fmt.Fprintln(&b, separator)

	for _, res := range eval.Results() {
		fmt.Fprintf(&b, "  %-17s %s %2d/%d  %s\n",
			labels[res.Signal], Bar(res.Score), int(res.Score), contracts.ScoreMax, detail(res))
	}

	if cot != nil {
		fmt.Fprintln(&b, separator)
		fmt.Fprintf(&b, "  COT %s : retail net %.0f, open interest %.0f\n",
			cot.Date.Format(dateLayout), cot.RetailNet, cot.OpenInterest)
	}

	fmt.Fprintln(&b, separator)
	fmt.Fprintf(&b, "  Last updated: %s\n", eval.AsOf.Format(dateLayout))

	_, err := io.WriteString(w, b.String())
	return err
}

func detail(res contracts.SignalResult) string {
	switch res.Signal {
	case contracts.SeriesPositioning:
		return fmt.Sprintf("z=%s", formatZ(res.Z))
	case contracts.SeriesFlow:
		return fmt.Sprintf("Δ=%+.0f oz", res.Raw)
	case contracts.SeriesPremium:
		return fmt.Sprintf("%.2f%%", res.Raw)
	default:
		return ""
	}
}

func formatZ(z contracts.ZScore) string {
	if !z.Available() {
		return z.Status.String()
	}
	return fmt.Sprintf("%+.2f", z.Value)
}

// WriteHistory writes one line per evaluation, oldest first
func WriteHistory(w io.Writer, evals []*contracts.Evaluation) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%-10s  %4s  %4s  %4s  %5s  %6s  %s\n", "date", "pos", "flow", "prem", "heat", "change", "phase")
	for _, e := range evals {
		pos, flow, prem := e.Scores()
		fmt.Fprintf(&b, "%-10s  %4d  %4d  %4d  %5d  %6s  %s\n",
			e.AsOf.Format(dateLayout), pos, flow, prem, e.Heat, Delta(e.Change), e.Interpretation.Phase)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
