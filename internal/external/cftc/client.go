// Package cftc downloads the CFTC disaggregated futures Commitments of
// Traders report and extracts the non-reportable (retail proxy) position
// for one market.
package cftc

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/silverpulse/heat/internal/contracts"
	"github.com/silverpulse/heat/internal/external/parse"
	"github.com/silverpulse/heat/pkg/httputil"
	"github.com/silverpulse/heat/pkg/logger"
)

// DefaultMarket is the COMEX silver contract
const DefaultMarket = "SILVER - COMMODITY EXCHANGE INC"

// YearURL returns the yearly disaggregated futures archive URL
func YearURL(year int) string {
	return fmt.Sprintf("https://www.cftc.gov/files/dea/history/fut_disagg_txt_%d.zip", year)
}

// RecentURLs returns the previous and current year archives, enough for a
// 52-week window at any point of the current year.
func RecentURLs(now time.Time) []string {
	return []string{YearURL(now.Year() - 1), YearURL(now.Year())}
}

var columnAliases = map[string][]string{
	"market": {"Market_and_Exchange_Names", "Market and Exchange Names"},
	"date":   {"Report_Date_as_YYYY-MM-DD", "As_of_Date_In_Form_YYMMDD", "Report_Date_as_MM_DD_YYYY"},
	"long":   {"NonRept_Positions_Long_All", "NonRept_Long_All"},
	"short":  {"NonRept_Positions_Short_All", "NonRept_Short_All"},
	"oi":     {"Open_Interest_All"},
}

// ErrNoRows is returned when the market has no usable rows
var ErrNoRows = errors.New("no rows for market")

// Client handles communication with the CFTC history archive
// ⭐ SSOT: COT 다운로드/파싱은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	urls       []string
	market     string
}

// NewClient creates a new CFTC client reading the given archives, oldest
// first. Without urls it reads RecentURLs.
func NewClient(httpClient *httputil.Client, log *logger.Logger, market string, urls ...string) *Client {
	if market == "" {
		market = DefaultMarket
	}
	if log == nil {
		log = logger.Nop()
	}
	if len(urls) == 0 {
		urls = RecentURLs(time.Now())
	}
	return &Client{
		httpClient: httpClient,
		logger:     log,
		urls:       urls,
		market:     market,
	}
}

// URLs returns the archive locations
func (c *Client) URLs() []string {
	return slices.Clone(c.urls)
}

// Download fetches one raw archive
func (c *Client) Download(ctx context.Context, url string) ([]byte, error) {
	data, err := c.httpClient.GetBytes(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("download COT archive: %w", err)
	}
	return data, nil
}

// Parse extracts the reports for the configured market from raw bytes
func (c *Client) Parse(data []byte) ([]contracts.COTReport, error) {
	reports, err := Parse(data, c.market)
	if err != nil {
		return nil, err
	}

	c.logger.WithFields(map[string]interface{}{
		"market": c.market,
		"count":  len(reports),
		"first":  reports[0].Date.Format("2006-01-02"),
		"last":   reports[len(reports)-1].Date.Format("2006-01-02"),
	}).Debug("Parsed COT reports")
	return reports, nil
}

// Fetch downloads and parses every archive
func (c *Client) Fetch(ctx context.Context) ([]contracts.COTReport, error) {
	return c.FetchWith(ctx, c.Download)
}

// FetchWith parses every archive obtained through get, which lets callers put
// a cache in front of Download. An archive that fails is skipped as long as
// another one yields reports (the current year file may not exist yet in
// early January).
func (c *Client) FetchWith(ctx context.Context, get func(ctx context.Context, url string) ([]byte, error)) ([]contracts.COTReport, error) {
	var (
		batches [][]contracts.COTReport
		errs    []error
	)
	for _, url := range c.urls {
		data, err := get(ctx, url)
		if err == nil {
			var reports []contracts.COTReport
			if reports, err = c.Parse(data); err == nil {
				batches = append(batches, reports)
				continue
			}
		}
		errs = append(errs, fmt.Errorf("%s: %w", url, err))
	}
	if len(batches) == 0 {
		return nil, errors.Join(errs...)
	}
	for _, err := range errs {
		c.logger.WithError(err).Warn("Skipped COT archive")
	}
	return Merge(batches...), nil
}

// Parse accepts either a zip archive (first entry is read) or the
// comma-separated text itself.
func Parse(data []byte, market string) ([]contracts.COTReport, error) {
	if bytes.HasPrefix(data, []byte("PK\x03\x04")) {
		zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return nil, fmt.Errorf("open COT archive: %w", err)
		}
		if len(zr.File) == 0 {
			return nil, fmt.Errorf("COT archive is empty")
		}
		f, err := zr.File[0].Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", zr.File[0].Name, err)
		}
		defer f.Close()
		return ParseCSV(f, market)
	}
	return ParseCSV(bytes.NewReader(data), market)
}

// ParseCSV reads report rows whose market name starts with market.
// Rows with unparseable fields or non-positive open interest are skipped.
// The result is ascending by date with one report per date.
func ParseCSV(r io.Reader, market string) ([]contracts.COTReport, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read COT header: %w", err)
	}
	cols, err := parse.Columns(header, columnAliases)
	if err != nil {
		return nil, fmt.Errorf("COT header: %w", err)
	}

	byDate := make(map[int64]contracts.COTReport)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read COT row: %w", err)
		}

		report, ok := parseRow(rec, cols, market)
		if !ok {
			continue
		}
		byDate[report.Date.Unix()] = report
	}

	if len(byDate) == 0 {
		return nil, fmt.Errorf("%w %q", ErrNoRows, market)
	}

	reports := make([]contracts.COTReport, 0, len(byDate))
	for _, r := range byDate {
		reports = append(reports, r)
	}
	sortReports(reports)
	return reports, nil
}

func parseRow(rec []string, cols map[string]int, market string) (contracts.COTReport, bool) {
	field := func(col string) string {
		i := cols[col]
		if i >= len(rec) {
			return ""
		}
		return rec[i]
	}

	// prefix match keeps "MICRO SILVER - ..." out of the silver series
	name := strings.ToUpper(strings.TrimSpace(field("market")))
	if !strings.HasPrefix(name, strings.ToUpper(market)) {
		return contracts.COTReport{}, false
	}

	date, err := parse.Date(field("date"))
	if err != nil {
		return contracts.COTReport{}, false
	}
	long, err1 := parse.Number(field("long"))
	short, err2 := parse.Number(field("short"))
	oi, err3 := parse.Number(field("oi"))
	if err1 != nil || err2 != nil || err3 != nil || oi <= 0 {
		return contracts.COTReport{}, false
	}

	return contracts.COTReport{
		Date:         date,
		RetailNet:    long - short,
		OpenInterest: oi,
	}, true
}

// PositioningSeries converts reports to retail net as percent of open interest
func PositioningSeries(reports []contracts.COTReport) contracts.Series {
	points := make([]contracts.Point, 0, len(reports))
	for _, r := range reports {
		points = append(points, contracts.Point{Date: r.Date, Value: r.NetPercentOfOI()})
	}
	return parse.Series(contracts.SeriesPositioning, points)
}

// Merge combines report batches into one ascending list. A later batch wins
// on a shared date.
func Merge(batches ...[]contracts.COTReport) []contracts.COTReport {
	byDate := make(map[int64]contracts.COTReport)
	for _, batch := range batches {
		for _, r := range batch {
			byDate[r.Date.Unix()] = r
		}
	}
	reports := make([]contracts.COTReport, 0, len(byDate))
	for _, r := range byDate {
		reports = append(reports, r)
	}
	sortReports(reports)
	return reports
}

// Latest returns the most recent report
func Latest(reports []contracts.COTReport) (contracts.COTReport, bool) {
	if len(reports) == 0 {
		return contracts.COTReport{}, false
	}
	return reports[len(reports)-1], true
}

func sortReports(reports []contracts.COTReport) {
	slices.SortFunc(reports, func(a, b contracts.COTReport) int {
		return a.Date.Compare(b.Date)
	})
}
