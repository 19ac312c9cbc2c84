package source

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/silverpulse/heat/internal/contracts"
	"github.com/silverpulse/heat/internal/external/cftc"
	"github.com/silverpulse/heat/internal/external/etf"
	"github.com/silverpulse/heat/internal/external/premium"
	"github.com/silverpulse/heat/internal/metrics"
	"github.com/silverpulse/heat/internal/normalize"
	"github.com/silverpulse/heat/internal/store"
	"github.com/silverpulse/heat/pkg/config"
	"github.com/silverpulse/heat/pkg/httputil"
	"github.com/silverpulse/heat/pkg/redis"
)

const fixtureDir = "../../../testdata/snapshot"

func TestLoadSnapshotCSV(t *testing.T) {
	snap, err := LoadSnapshotCSV(fixtureDir)
	require.NoError(t, err)
	require.NoError(t, snap.Validate())

	assert.Equal(t, 70, snap.Positioning.Len())
	assert.Equal(t, 90, snap.Flow.Len())
	assert.Equal(t, 40, snap.Premium.Len())

	require.NotNil(t, snap.LatestCOT)
	assert.Equal(t, time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC), snap.LatestCOT.Date)
	last, _ := snap.Positioning.Last()
	assert.InDelta(t, snap.LatestCOT.NetPercentOfOI(), last.Value, 1e-12)
}

func TestWriteSnapshotCSV(t *testing.T) {
	snap, err := LoadSnapshotCSV(fixtureDir)
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "out")
	require.NoError(t, WriteSnapshotCSV(dir, snap))

	again, err := LoadSnapshotCSV(dir)
	require.NoError(t, err)
	assert.Equal(t, snap.Positioning, again.Positioning)
	assert.Equal(t, snap.Flow, again.Flow)
	assert.Equal(t, snap.Premium, again.Premium)
	assert.Nil(t, again.LatestCOT)
}

func writeFixture(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadSnapshotCSV_ValueColumns(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, PositioningFile, "date,value\n2024-01-09,4.5\n2024-01-02,4.0\n")
	writeFixture(t, dir, FlowFile, "date,ounces\n2024-01-02,100\n")
	writeFixture(t, dir, PremiumFile, "date,premium\n2024-01-02,12%\n")

	snap, err := LoadSnapshotCSV(dir)
	require.NoError(t, err)
	assert.Nil(t, snap.LatestCOT)
	assert.Equal(t, []float64{4.0, 4.5}, snap.Positioning.Values())
	assert.Equal(t, []float64{12}, snap.Premium.Values())

	src := FixtureSource{Dir: dir}
	viaSource, err := src.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, snap, viaSource)
}

func TestLoadSnapshotCSV_Errors(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadSnapshotCSV(dir)
	assert.Error(t, err)

	writeFixture(t, dir, PositioningFile, "date,value\n2024-01-02,1\n")
	writeFixture(t, dir, FlowFile, "day,amount\n2024-01-02,1\n")
	writeFixture(t, dir, PremiumFile, "date,value\n2024-01-02,1\n")
	_, err = LoadSnapshotCSV(dir)
	assert.ErrorContains(t, err, "flow.csv")
}

type memorySeries struct {
	mu   sync.Mutex
	data map[contracts.SeriesName]contracts.Series
}

func (m *memorySeries) Upsert(ctx context.Context, s contracts.Series) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[s.Name] = s
	return nil
}

func (m *memorySeries) Load(ctx context.Context, name contracts.SeriesName) (contracts.Series, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.data[name]
	if !ok {
		return contracts.Series{}, contracts.ErrNotFound
	}
	return s, nil
}

func cotArchive(t *testing.T) []byte {
	t.Helper()
	var csvBuf bytes.Buffer
	csvBuf.WriteString("Market_and_Exchange_Names,Report_Date_as_YYYY-MM-DD,Open_Interest_All,NonRept_Positions_Long_All,NonRept_Positions_Short_All\n")
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		fmt.Fprintf(&csvBuf, "SILVER - COMMODITY EXCHANGE INC.,%s,100000,%d,10000\n",
			start.AddDate(0, 0, 7*i).Format("2006-01-02"), 20000+100*i)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("f_year.txt")
	require.NoError(t, err)
	_, err = w.Write(csvBuf.Bytes())
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func newCollector(t *testing.T, server *httptest.Server) *Collector {
	t.Helper()
	httpClient := httputil.New(&config.Config{}, nil).DisableRetry()
	redisClient, err := redis.New(&config.Config{})
	require.NoError(t, err)

	return NewCollector(
		cftc.NewClient(httpClient, nil, "", server.URL+"/cot.zip"),
		etf.NewClient(httpClient, nil, server.URL+"/holdings.csv"),
		premium.NewClient(httpClient, nil, server.URL+"/premiums", ""),
		redis.NewCache(redisClient, "test"),
		0,
		nil,
	)
}

func TestCollector_Snapshot(t *testing.T) {
	server := httptest.NewServer(sourceMux(t))
	defer server.Close()

	repo := &memorySeries{data: map[contracts.SeriesName]contracts.Series{}}
	collector := newCollector(t, server).WithSeriesStore(repo).WithMetrics(metrics.New())

	snap, err := collector.Snapshot(context.Background())
	require.NoError(t, err)
	require.NoError(t, snap.Validate())

	assert.Equal(t, 10, snap.Positioning.Len())
	assert.InDelta(t, 10.0, snap.Positioning.Points[0].Value, 1e-12)
	assert.Equal(t, []float64{100, 100, 250}, snap.Flow.Values())
	assert.Equal(t, []float64{14.2}, snap.Premium.Values())
	require.NotNil(t, snap.LatestCOT)
	assert.Equal(t, 10900.0, snap.LatestCOT.RetailNet)

	// persisted copies feed StoreSource
	fromStore, err := StoreSource{Repo: repo}.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, snap.Flow, fromStore.Flow)
	assert.Equal(t, snap.Positioning, fromStore.Positioning)
}

func sourceMux(t *testing.T) *http.ServeMux {
	t.Helper()
	archive := cotArchive(t)
	mux := http.NewServeMux()
	mux.HandleFunc("/cot.zip", func(w http.ResponseWriter, r *http.Request) {
		w.Write(archive)
	})
	mux.HandleFunc("/holdings.csv", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "date,ounces\n2024-01-02,100\n2024-01-03,100\n2024-01-04,250\n")
	})
	mux.HandleFunc("/premiums", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<table class="premiums"><tbody><tr><td>2024-01-05</td><td>14.2%</td></tr></tbody></table>`)
	})
	return mux
}

func TestCollector_SnapshotExtendsStoredHistory(t *testing.T) {
	server := httptest.NewServer(sourceMux(t))
	defer server.Close()

	// 60 stored weeks ending on the first downloaded report date
	firstDownloaded := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	stored := contracts.Series{Name: contracts.SeriesPositioning}
	for i := 59; i >= 0; i-- {
		stored.Points = append(stored.Points, contracts.Point{
			Date:  firstDownloaded.AddDate(0, 0, -7*i),
			Value: 5 + float64(i%7),
		})
	}
	repo := store.NewMemory()
	require.NoError(t, repo.Upsert(context.Background(), stored))

	snap, err := newCollector(t, server).WithSeriesStore(repo).Snapshot(context.Background())
	require.NoError(t, err)
	require.NoError(t, snap.Validate())

	require.Equal(t, 69, snap.Positioning.Len())
	last, _ := snap.Positioning.Last()
	assert.InDelta(t, 10.9, last.Value, 1e-9)
	// the fresh download replaces the stored value on the shared date
	assert.InDelta(t, 10.0, snap.Positioning.Points[59].Value, 1e-9)
	assert.Equal(t, firstDownloaded, snap.Positioning.Points[59].Date)

	z := normalize.Latest(snap.Positioning.Values(), 52)
	assert.True(t, z.Available(), "status %v", z.Status)

	// without storage only the download is evaluated
	alone, err := newCollector(t, server).Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, alone.Positioning.Len())
	assert.False(t, normalize.Latest(alone.Positioning.Values(), 52).Available())
}

func TestCollector_SourceFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/cot.zip", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/holdings.csv", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "date,ounces\n2024-01-02,100\n")
	})
	mux.HandleFunc("/premiums", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html></html>")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	_, err := newCollector(t, server).Snapshot(context.Background())
	require.Error(t, err)

	var statusErr *httputil.StatusError
	assert.ErrorAs(t, err, &statusErr)
	assert.ErrorIs(t, err, premium.ErrNoPremiums)
}

func TestStoreSource_Missing(t *testing.T) {
	repo := &memorySeries{data: map[contracts.SeriesName]contracts.Series{}}
	_, err := StoreSource{Repo: repo}.Snapshot(context.Background())
	assert.ErrorIs(t, err, contracts.ErrNotFound)
}
