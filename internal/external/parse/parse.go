// Package parse holds the lenient field parsing shared by the source
// adapters. Adapters repair and order data here so the engine only has to
// validate it.
package parse

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/silverpulse/heat/internal/contracts"
)

// ErrColumnNotFound is returned when no alias of a required column is present
var ErrColumnNotFound = errors.New("column not found")

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"01/02/2006",
	"1/2/2006",
	"2006.01.02",
	"20060102",
	"060102", // CFTC As_of_Date_In_Form_YYMMDD
	"Jan 2, 2006",
	"02 Jan 2006",
}

// Date parses the first matching layout and truncates to a UTC calendar day
func Date(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// Number parses a decimal, tolerating thousands separators, currency and
// percent signs, and accounting-style parentheses for negatives.
func Number(s string) (float64, error) {
	s = strings.TrimSpace(s)
	negative := strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")")
	if negative {
		s = s[1 : len(s)-1]
	}
	s = strings.NewReplacer(",", "", "%", "", "$", "", "+", "", " ", "", "\u00a0", "").Replace(s)
	if s == "" || s == "-" {
		return 0, fmt.Errorf("empty number")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite number %q", s)
	}
	if negative {
		v = -v
	}
	return v, nil
}

// Columns resolves each logical column to its index in header. Matching is
// case-insensitive and ignores surrounding spaces; aliases are tried in order.
func Columns(header []string, aliases map[string][]string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, ok := index[key]; !ok {
			index[key] = i
		}
	}

	out := make(map[string]int, len(aliases))
	var missing []string
	for col, names := range aliases {
		found := false
		for _, name := range names {
			if i, ok := index[strings.ToLower(name)]; ok {
				out[col] = i
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return out, fmt.Errorf("%w: %s", ErrColumnNotFound, strings.Join(missing, ", "))
	}
	return out, nil
}

// Series sorts points by date and keeps the last point for a repeated date
func Series(name contracts.SeriesName, points []contracts.Point) contracts.Series {
	sorted := slices.Clone(points)
	slices.SortStableFunc(sorted, func(a, b contracts.Point) int {
		return a.Date.Compare(b.Date)
	})

	out := make([]contracts.Point, 0, len(sorted))
	for _, p := range sorted {
		if n := len(out); n > 0 && out[n-1].Date.Equal(p.Date) {
			out[n-1] = p
			continue
		}
		out = append(out, p)
	}
	return contracts.Series{Name: name, Points: out}
}
