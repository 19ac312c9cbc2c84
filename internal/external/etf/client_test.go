package etf

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/silverpulse/heat/internal/contracts"
	"github.com/silverpulse/heat/pkg/config"
	"github.com/silverpulse/heat/pkg/httputil"
)

func TestParseCSV(t *testing.T) {
	csvText := `Date,Total Ounces,NAV
2024-01-04,"450,100,000",21.5
2024-01-02,"450,000,000",21.1
2024-01-03,"450,000,000",21.3
holiday,,
2024-01-04,"450,200,000",21.6
`
	s, err := ParseCSV(strings.NewReader(csvText))
	require.NoError(t, err)
	require.NoError(t, s.Validate())

	assert.Equal(t, contracts.SeriesFlow, s.Name)
	// revision for 2024-01-04 wins
	assert.Equal(t, []float64{450_000_000, 450_000_000, 450_200_000}, s.Values())
}

func TestParseCSV_Tonnes(t *testing.T) {
	s, err := ParseCSV(strings.NewReader("as_of,tonnes\n01/05/2024,2\n"))
	require.NoError(t, err)
	require.Equal(t, 1, s.Len())
	assert.InDelta(t, 2*OuncesPerTonne, s.Points[0].Value, 1e-6)
}

func TestParseCSV_Errors(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("when,what\n2024-01-01,1\n"))
	assert.Error(t, err)

	_, err = ParseCSV(strings.NewReader("date,ounces\nx,y\n"))
	assert.ErrorIs(t, err, ErrNoHoldings)
}

func TestClient_DownloadParse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("date,ounces\n2024-01-02,100\n2024-01-03,150\n"))
	}))
	defer server.Close()

	client := NewClient(httputil.New(&config.Config{}, nil).DisableRetry(), nil, server.URL)
	data, err := client.Download(context.Background())
	require.NoError(t, err)

	s, err := client.Parse(data)
	require.NoError(t, err)
	assert.Equal(t, []float64{100, 150}, s.Values())
}
