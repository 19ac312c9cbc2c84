package cftc

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/silverpulse/heat/internal/contracts"
	"github.com/silverpulse/heat/pkg/config"
	"github.com/silverpulse/heat/pkg/httputil"
	"github.com/silverpulse/heat/pkg/logger"
)

const sampleCSV = `Market_and_Exchange_Names,Report_Date_as_YYYY-MM-DD,Open_Interest_All,NonRept_Positions_Long_All,NonRept_Positions_Short_All
"GOLD - COMMODITY EXCHANGE INC.",2024-01-09,500000,40000,20000
"SILVER - COMMODITY EXCHANGE INC.",2024-01-16,150000,25000,10000
"SILVER - COMMODITY EXCHANGE INC.",2024-01-09,140000,20000,12000
"SILVER - COMMODITY EXCHANGE INC.",2024-01-02,0,20000,12000
"SILVER - COMMODITY EXCHANGE INC.",bad-date,140000,20000,12000
"MICRO SILVER - COMMODITY EXCHANGE INC.",2024-01-09,9000,100,50
`

func zipped(t *testing.T, name, content string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(name)
	require.NoError(t, err)
	_, err = w.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestParseCSV(t *testing.T) {
	reports, err := ParseCSV(strings.NewReader(sampleCSV), DefaultMarket)
	require.NoError(t, err)
	require.Len(t, reports, 2)

	assert.Equal(t, time.Date(2024, 1, 9, 0, 0, 0, 0, time.UTC), reports[0].Date)
	assert.Equal(t, 8000.0, reports[0].RetailNet)
	assert.Equal(t, 140000.0, reports[0].OpenInterest)

	assert.Equal(t, 15000.0, reports[1].RetailNet)
	assert.InDelta(t, 10.0, reports[1].NetPercentOfOI(), 1e-12)
}

func TestParseCSV_LegacyColumns(t *testing.T) {
	csvText := "Market_and_Exchange_Names,As_of_Date_In_Form_YYMMDD,Open_Interest_All,NonRept_Long_All,NonRept_Short_All\n" +
		"SILVER - COMMODITY EXCHANGE INC.,240116,100000,30000,35000\n"

	reports, err := ParseCSV(strings.NewReader(csvText), DefaultMarket)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, -5000.0, reports[0].RetailNet)
	assert.Equal(t, time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC), reports[0].Date)
}

func TestParseCSV_Errors(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("a,b,c\n1,2,3\n"), DefaultMarket)
	assert.Error(t, err)

	_, err = ParseCSV(strings.NewReader(sampleCSV), "PLATINUM - NEW YORK MERCANTILE EXCHANGE")
	assert.ErrorIs(t, err, ErrNoRows)
}

func TestParse_Zip(t *testing.T) {
	reports, err := Parse(zipped(t, "f_year.txt", sampleCSV), DefaultMarket)
	require.NoError(t, err)
	assert.Len(t, reports, 2)

	reports, err = Parse([]byte(sampleCSV), DefaultMarket)
	require.NoError(t, err)
	assert.Len(t, reports, 2)
}

func TestPositioningSeries(t *testing.T) {
	reports, err := ParseCSV(strings.NewReader(sampleCSV), DefaultMarket)
	require.NoError(t, err)

	s := PositioningSeries(reports)
	require.NoError(t, s.Validate())
	assert.Equal(t, contracts.SeriesPositioning, s.Name)
	require.Equal(t, 2, s.Len())
	assert.InDelta(t, 100*8000.0/140000, s.Points[0].Value, 1e-12)
	assert.InDelta(t, 10.0, s.Points[1].Value, 1e-12)

	latest, ok := Latest(reports)
	require.True(t, ok)
	assert.Equal(t, reports[1], latest)
}

const olderCSV = `Market_and_Exchange_Names,Report_Date_as_YYYY-MM-DD,Open_Interest_All,NonRept_Positions_Long_All,NonRept_Positions_Short_All
"SILVER - COMMODITY EXCHANGE INC.",2023-12-26,100000,15000,10000
"SILVER - COMMODITY EXCHANGE INC.",2024-01-09,100000,1,1
`

func TestClient_Fetch(t *testing.T) {
	previous := zipped(t, "f_2023.txt", olderCSV)
	current := zipped(t, "f_2024.txt", sampleCSV)
	mux := http.NewServeMux()
	mux.HandleFunc("/2023.zip", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/zip")
		w.Write(previous)
	})
	mux.HandleFunc("/2024.zip", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/zip")
		w.Write(current)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	httpClient := httputil.New(&config.Config{}, logger.Nop()).DisableRetry()

	t.Run("merges archives", func(t *testing.T) {
		client := NewClient(httpClient, nil, "", server.URL+"/2023.zip", server.URL+"/2024.zip")
		assert.Equal(t, []string{server.URL + "/2023.zip", server.URL + "/2024.zip"}, client.URLs())

		reports, err := client.Fetch(context.Background())
		require.NoError(t, err)
		require.Len(t, reports, 3)
		assert.Equal(t, time.Date(2023, 12, 26, 0, 0, 0, 0, time.UTC), reports[0].Date)
		// the later archive wins on 2024-01-09
		assert.Equal(t, 8000.0, reports[1].RetailNet)
		assert.Equal(t, 15000.0, reports[2].RetailNet)
	})

	t.Run("missing archive is skipped", func(t *testing.T) {
		client := NewClient(httpClient, nil, "", server.URL+"/2024.zip", server.URL+"/2025.zip")
		reports, err := client.Fetch(context.Background())
		require.NoError(t, err)
		assert.Len(t, reports, 2)
	})

	t.Run("all archives fail", func(t *testing.T) {
		client := NewClient(httpClient, nil, "", server.URL+"/2025.zip")
		_, err := client.Fetch(context.Background())
		var statusErr *httputil.StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	})
}

func TestRecentURLs(t *testing.T) {
	urls := RecentURLs(time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, []string{YearURL(2025), YearURL(2026)}, urls)

	client := NewClient(nil, nil, "")
	assert.Len(t, client.URLs(), 2)
}

func TestYearURL(t *testing.T) {
	assert.Equal(t, "https://www.cftc.gov/files/dea/history/fut_disagg_txt_2024.zip", YearURL(2024))
}
