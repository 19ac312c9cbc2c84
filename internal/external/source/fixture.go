package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/silverpulse/heat/internal/contracts"
	"github.com/silverpulse/heat/internal/external/parse"
)

// Fixture file names inside a snapshot directory
const (
	PositioningFile = "positioning.csv"
	FlowFile        = "flow.csv"
	PremiumFile     = "premium.csv"
)

var (
	dateAliases  = []string{"date", "report_date", "as_of"}
	valueAliases = map[contracts.SeriesName][]string{
		contracts.SeriesPositioning: {"value", "net_pct_oi", "positioning"},
		contracts.SeriesFlow:        {"value", "ounces", "holdings"},
		contracts.SeriesPremium:     {"value", "premium", "premium_pct"},
	}
	cotAliases = map[string][]string{
		"date": dateAliases,
		"net":  {"retail_net"},
		"oi":   {"open_interest"},
	}
)

// FixtureSource reads a snapshot from CSV files in Dir
type FixtureSource struct {
	Dir string
}

// Snapshot implements contracts.SnapshotSource
func (f FixtureSource) Snapshot(ctx context.Context) (*contracts.Snapshot, error) {
	return LoadSnapshotCSV(f.Dir)
}

// LoadSnapshotCSV reads positioning.csv, flow.csv and premium.csv from dir.
// Each file has a date column and a value column. positioning.csv may
// instead carry retail_net and open_interest columns, in which case the
// value is retail_net as percent of open interest.
func LoadSnapshotCSV(dir string) (*contracts.Snapshot, error) {
	snap := &contracts.Snapshot{}

	pos, cot, err := readPositioning(filepath.Join(dir, PositioningFile))
	if err != nil {
		return nil, err
	}
	snap.Positioning, snap.LatestCOT = pos, cot

	if snap.Flow, err = readSeriesFile(filepath.Join(dir, FlowFile), contracts.SeriesFlow); err != nil {
		return nil, err
	}
	if snap.Premium, err = readSeriesFile(filepath.Join(dir, PremiumFile), contracts.SeriesPremium); err != nil {
		return nil, err
	}
	return snap, nil
}

// WriteSnapshotCSV writes snap as fixture files into dir, creating it if needed.
// positioning.csv carries retail_net and open_interest only for the latest report,
// so it is written as date,value.
func WriteSnapshotCSV(dir string, snap *contracts.Snapshot) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create fixture dir: %w", err)
	}
	files := map[string]contracts.Series{
		PositioningFile: snap.Positioning,
		FlowFile:        snap.Flow,
		PremiumFile:     snap.Premium,
	}
	for name, series := range files {
		if err := writeSeriesFile(filepath.Join(dir, name), series); err != nil {
			return err
		}
	}
	return nil
}

func writeSeriesFile(path string, series contracts.Series) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create fixture: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	_ = w.Write([]string{"date", "value"})
	for _, p := range series.Points {
		_ = w.Write([]string{p.Date.Format("2006-01-02"), strconv.FormatFloat(p.Value, 'f', -1, 64)})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func readPositioning(path string) (contracts.Series, *contracts.COTReport, error) {
	header, rows, err := readCSV(path)
	if err != nil {
		return contracts.Series{}, nil, err
	}

	cols, err := parse.Columns(header, cotAliases)
	if errors.Is(err, parse.ErrColumnNotFound) {
		s, err := toSeries(path, header, rows, contracts.SeriesPositioning)
		return s, nil, err
	}
	if err != nil {
		return contracts.Series{}, nil, err
	}

	var reports []contracts.COTReport
	for _, rec := range rows {
		date, err1 := parse.Date(field(rec, cols["date"]))
		net, err2 := parse.Number(field(rec, cols["net"]))
		oi, err3 := parse.Number(field(rec, cols["oi"]))
		if err1 != nil || err2 != nil || err3 != nil || oi <= 0 {
			continue
		}
		reports = append(reports, contracts.COTReport{Date: date, RetailNet: net, OpenInterest: oi})
	}
	if len(reports) == 0 {
		return contracts.Series{}, nil, fmt.Errorf("%s: no usable rows", path)
	}

	points := make([]contracts.Point, len(reports))
	latest := reports[0]
	for i, r := range reports {
		points[i] = contracts.Point{Date: r.Date, Value: r.NetPercentOfOI()}
		if r.Date.After(latest.Date) {
			latest = r
		}
	}
	return parse.Series(contracts.SeriesPositioning, points), &latest, nil
}

func readSeriesFile(path string, name contracts.SeriesName) (contracts.Series, error) {
	header, rows, err := readCSV(path)
	if err != nil {
		return contracts.Series{}, err
	}
	return toSeries(path, header, rows, name)
}

func toSeries(path string, header []string, rows [][]string, name contracts.SeriesName) (contracts.Series, error) {
	cols, err := parse.Columns(header, map[string][]string{"date": dateAliases, "value": valueAliases[name]})
	if err != nil {
		return contracts.Series{}, fmt.Errorf("%s: %w", path, err)
	}

	var points []contracts.Point
	for _, rec := range rows {
		date, err := parse.Date(field(rec, cols["date"]))
		if err != nil {
			continue
		}
		v, err := parse.Number(field(rec, cols["value"]))
		if err != nil {
			continue
		}
		points = append(points, contracts.Point{Date: date, Value: v})
	}
	if len(points) == 0 {
		return contracts.Series{}, fmt.Errorf("%s: no usable rows", path)
	}
	return parse.Series(name, points), nil
}

func readCSV(path string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open fixture: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err == io.EOF {
		return nil, nil, fmt.Errorf("%s: empty file", path)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	rows, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return header, rows, nil
}

func field(rec []string, i int) string {
	if i < len(rec) {
		return rec[i]
	}
	return ""
}

// StoreSource loads the last persisted series
type StoreSource struct {
	Repo contracts.SeriesRepository
}

// Snapshot implements contracts.SnapshotSource
func (s StoreSource) Snapshot(ctx context.Context) (*contracts.Snapshot, error) {
	snap := &contracts.Snapshot{}
	for _, name := range contracts.AllSeries() {
		series, err := s.Repo.Load(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", name, err)
		}
		switch name {
		case contracts.SeriesPositioning:
			snap.Positioning = series
		case contracts.SeriesFlow:
			snap.Flow = series
		case contracts.SeriesPremium:
			snap.Premium = series
		}
	}
	return snap, nil
}
