// Package etf reads a silver ETF's daily holdings history.
package etf

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/silverpulse/heat/internal/contracts"
	"github.com/silverpulse/heat/internal/external/parse"
	"github.com/silverpulse/heat/pkg/httputil"
	"github.com/silverpulse/heat/pkg/logger"
)

// OuncesPerTonne converts metric tonnes to troy ounces
const OuncesPerTonne = 32150.7466

var (
	dateAliases   = []string{"date", "as_of", "as of date", "trade date"}
	ounceAliases  = []string{"ounces", "holdings_oz", "holdings", "total ounces", "oz"}
	tonnesAliases = []string{"tonnes", "holdings_tonnes", "total tonnes"}
)

// ErrNoHoldings is returned when no row parses
var ErrNoHoldings = errors.New("no holdings rows")

// Client fetches the holdings CSV
// ⭐ SSOT: ETF 보유량 다운로드/파싱은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	url        string
}

// NewClient creates a new holdings client
func NewClient(httpClient *httputil.Client, log *logger.Logger, url string) *Client {
	if log == nil {
		log = logger.Nop()
	}
	return &Client{httpClient: httpClient, logger: log, url: url}
}

// URL returns the holdings CSV location
func (c *Client) URL() string {
	return c.url
}

// Download fetches the raw CSV
func (c *Client) Download(ctx context.Context) ([]byte, error) {
	data, err := c.httpClient.GetBytes(ctx, c.url)
	if err != nil {
		return nil, fmt.Errorf("download ETF holdings: %w", err)
	}
	return data, nil
}

// Parse converts raw CSV into the flow series
func (c *Client) Parse(data []byte) (contracts.Series, error) {
	s, err := ParseCSV(bytes.NewReader(data))
	if err != nil {
		return contracts.Series{}, err
	}
	c.logger.WithField("count", s.Len()).Debug("Parsed ETF holdings")
	return s, nil
}

// ParseCSV reads (date, ounces) rows. A tonnes column is converted when no
// ounces column exists. Unparseable rows are skipped.
func ParseCSV(r io.Reader) (contracts.Series, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return contracts.Series{}, fmt.Errorf("read holdings header: %w", err)
	}

	scale := 1.0
	cols, err := parse.Columns(header, map[string][]string{"date": dateAliases, "amount": ounceAliases})
	if errors.Is(err, parse.ErrColumnNotFound) {
		cols, err = parse.Columns(header, map[string][]string{"date": dateAliases, "amount": tonnesAliases})
		scale = OuncesPerTonne
	}
	if err != nil {
		return contracts.Series{}, fmt.Errorf("holdings header: %w", err)
	}

	var points []contracts.Point
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return contracts.Series{}, fmt.Errorf("read holdings row: %w", err)
		}
		if cols["date"] >= len(rec) || cols["amount"] >= len(rec) {
			continue
		}

		date, err := parse.Date(rec[cols["date"]])
		if err != nil {
			continue
		}
		amount, err := parse.Number(rec[cols["amount"]])
		if err != nil {
			continue
		}
		points = append(points, contracts.Point{Date: date, Value: amount * scale})
	}

	if len(points) == 0 {
		return contracts.Series{}, ErrNoHoldings
	}
	return parse.Series(contracts.SeriesFlow, points), nil
}
