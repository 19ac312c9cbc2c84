package premium

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/silverpulse/heat/internal/contracts"
	"github.com/silverpulse/heat/pkg/config"
	"github.com/silverpulse/heat/pkg/httputil"
)

const page = `<html><body>
<table class="premiums">
  <thead><tr><th>Date</th><th>Product</th><th>Premium</th></tr></thead>
  <tbody>
    <tr><td>2024-01-12</td><td>1 oz coin</td><td>18.5%</td></tr>
    <tr><td>2024-01-05</td><td>1 oz coin</td><td>16.0%</td></tr>
    <tr><td>Jan 19, 2024</td><td>—</td><td>21%</td></tr>
    <tr><td>pending</td><td>1 oz coin</td><td>30%</td></tr>
    <tr><td>2024-01-26</td></tr>
  </tbody>
</table>
<table class="other"><tbody><tr><td>2024-01-26</td><td>99%</td></tr></tbody></table>
</body></html>`

func TestParseHTML(t *testing.T) {
	s, err := ParseHTML([]byte(page), DefaultSelector)
	require.NoError(t, err)
	require.NoError(t, s.Validate())

	assert.Equal(t, contracts.SeriesPremium, s.Name)
	assert.Equal(t, []float64{16, 18.5, 21}, s.Values())
}

func TestParseHTML_NoRows(t *testing.T) {
	_, err := ParseHTML([]byte(page), "table.missing tr")
	assert.ErrorIs(t, err, ErrNoPremiums)
}

func TestClient_DownloadParse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(page))
	}))
	defer server.Close()

	client := NewClient(httputil.New(&config.Config{}, nil).DisableRetry(), nil, server.URL, "")
	data, err := client.Download(context.Background())
	require.NoError(t, err)

	s, err := client.Parse(data)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())
}
