// Package premium scrapes the retail physical premium over spot from a
// dealer page.
package premium

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/silverpulse/heat/internal/contracts"
	"github.com/silverpulse/heat/internal/external/parse"
	"github.com/silverpulse/heat/pkg/httputil"
	"github.com/silverpulse/heat/pkg/logger"
)

// DefaultSelector selects the table rows holding (date, premium %)
const DefaultSelector = "table.premiums tbody tr"

// ErrNoPremiums is returned when the selector matches no usable row
var ErrNoPremiums = errors.New("no premium rows")

// Client fetches the premium page
// ⭐ SSOT: 프리미엄 스크래핑은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	url        string
	selector   string
}

// NewClient creates a new premium scraper
func NewClient(httpClient *httputil.Client, log *logger.Logger, url, selector string) *Client {
	if selector == "" {
		selector = DefaultSelector
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Client{httpClient: httpClient, logger: log, url: url, selector: selector}
}

// URL returns the page location
func (c *Client) URL() string {
	return c.url
}

// Download fetches the raw HTML
func (c *Client) Download(ctx context.Context) ([]byte, error) {
	data, err := c.httpClient.GetBytes(ctx, c.url)
	if err != nil {
		return nil, fmt.Errorf("download premium page: %w", err)
	}
	return data, nil
}

// Parse extracts the premium series from raw HTML
func (c *Client) Parse(data []byte) (contracts.Series, error) {
	s, err := ParseHTML(data, c.selector)
	if err != nil {
		return contracts.Series{}, err
	}
	c.logger.WithFields(map[string]interface{}{
		"selector": c.selector,
		"count":    s.Len(),
	}).Debug("Parsed premium table")
	return s, nil
}

// ParseHTML reads rows matched by selector. The first cell is the date and
// the first later cell that parses as a number is the premium in percent.
func ParseHTML(data []byte, selector string) (contracts.Series, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return contracts.Series{}, fmt.Errorf("parse premium HTML: %w", err)
	}

	var points []contracts.Point
	doc.Find(selector).Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}

		date, err := parse.Date(strings.TrimSpace(cells.Eq(0).Text()))
		if err != nil {
			return
		}

		cells.Slice(1, cells.Length()).EachWithBreak(func(_ int, cell *goquery.Selection) bool {
			v, err := parse.Number(cell.Text())
			if err != nil {
				return true
			}
			points = append(points, contracts.Point{Date: date, Value: v})
			return false
		})
	})

	if len(points) == 0 {
		return contracts.Series{}, fmt.Errorf("%w for %q", ErrNoPremiums, selector)
	}
	return parse.Series(contracts.SeriesPremium, points), nil
}
