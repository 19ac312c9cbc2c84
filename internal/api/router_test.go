package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/silverpulse/heat/internal/api/handlers"
	"github.com/silverpulse/heat/internal/api/ws"
	"github.com/silverpulse/heat/internal/contracts"
	"github.com/silverpulse/heat/internal/metrics"
	"github.com/silverpulse/heat/internal/scheduler"
)

type fakeService struct {
	latest  *contracts.Evaluation
	history []*contracts.Evaluation
	cot     *contracts.COTReport
	runErr  error

	gotFrom, gotTo time.Time
	gotLimit       int
}

func (f *fakeService) Run(ctx context.Context) (*contracts.Evaluation, error) {
	if f.runErr != nil {
		return nil, f.runErr
	}
	return f.latest, nil
}

func (f *fakeService) Latest(ctx context.Context) (*contracts.Evaluation, error) {
	if f.latest == nil {
		return nil, contracts.ErrNotFound
	}
	return f.latest, nil
}

func (f *fakeService) History(ctx context.Context, from, to time.Time, limit int) ([]*contracts.Evaluation, error) {
	f.gotFrom, f.gotTo, f.gotLimit = from, to, limit
	return f.history, nil
}

func (f *fakeService) LatestCOT(ctx context.Context) (*contracts.COTReport, error) {
	if f.cot == nil {
		return nil, contracts.ErrNotFound
	}
	return f.cot, nil
}

func sampleEvaluation() *contracts.Evaluation {
	return &contracts.Evaluation{
		ID:          "abc",
		AsOf:        time.Date(2024, 8, 2, 0, 0, 0, 0, time.UTC),
		Positioning: contracts.SignalResult{Signal: contracts.SeriesPositioning, Score: 25, Z: contracts.ZScore{Value: 2.03}},
		Flow:        contracts.SignalResult{Signal: contracts.SeriesFlow, Score: 15, Z: contracts.ZScore{Status: contracts.ZDegenerate}},
		Premium:     contracts.SignalResult{Signal: contracts.SeriesPremium, Score: 10},
		Heat:        19,
		Interpretation: contracts.Interpretation{
			Phase:  "crowding building",
			Driver: "futures positioning leads ETF demand",
		},
	}
}

func newTestRouter(svc *fakeService, rec *metrics.Recorder) http.Handler {
	return NewRouter(Routes{
		Heat:    handlers.NewHeatHandler(svc, nil),
		Jobs:    handlers.NewJobsHandler(scheduler.New(nil)),
		Metrics: rec,
	}, nil)
}

func serve(h http.Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestHealth(t *testing.T) {
	rec := serve(newTestRouter(&fakeService{}, nil), http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestGetLatest(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		rec := serve(newTestRouter(&fakeService{}, nil), http.MethodGet, "/api/heat")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("ok", func(t *testing.T) {
		rec := serve(newTestRouter(&fakeService{latest: sampleEvaluation()}, nil), http.MethodGet, "/api/heat")
		require.Equal(t, http.StatusOK, rec.Code)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, 19.0, body["heat"])
		assert.Equal(t, "crowding building", body["interpretation"].(map[string]interface{})["phase"])

		flowZ := body["flow"].(map[string]interface{})["z"].(map[string]interface{})
		assert.Nil(t, flowZ["value"])
		assert.Equal(t, "degenerate", flowZ["status"])
	})
}

func TestGetHistory(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantCode  int
		wantLimit int
		wantFrom  time.Time
	}{
		{"defaults", "", http.StatusOK, 52, time.Time{}},
		{"range", "?from=2024-01-01&to=2024-06-30&limit=10", http.StatusOK, 10, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"bad date", "?from=01/02/2024", http.StatusBadRequest, 0, time.Time{}},
		{"bad limit", "?limit=abc", http.StatusBadRequest, 0, time.Time{}},
		{"limit too large", "?limit=5000", http.StatusBadRequest, 0, time.Time{}},
		{"zero limit", "?limit=0", http.StatusBadRequest, 0, time.Time{}},
		{"inverted range", "?from=2024-06-30&to=2024-01-01", http.StatusBadRequest, 0, time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{history: []*contracts.Evaluation{sampleEvaluation()}}
			rec := serve(newTestRouter(svc, nil), http.MethodGet, "/api/heat/history"+tt.query)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantCode != http.StatusOK {
				assert.Contains(t, rec.Body.String(), "errors")
				return
			}

			assert.Equal(t, tt.wantLimit, svc.gotLimit)
			assert.Equal(t, tt.wantFrom, svc.gotFrom)

			var body handlers.HistoryResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, 1, body.Count)
		})
	}
}

func TestEvaluate(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		rec := serve(newTestRouter(&fakeService{latest: sampleEvaluation()}, nil), http.MethodPost, "/api/heat/evaluate")
		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("signal failure", func(t *testing.T) {
		svc := &fakeService{runErr: &contracts.EvaluationError{
			Results: []contracts.SignalResult{{Signal: contracts.SeriesPositioning, Score: 20}},
			Errs: []error{
				&contracts.SignalError{Signal: contracts.SeriesFlow, Err: contracts.ErrDataInsufficient},
				&contracts.SignalError{Signal: contracts.SeriesPremium, Err: contracts.ErrDataInsufficient},
			},
		}}
		rec := serve(newTestRouter(svc, nil), http.MethodPost, "/api/heat/evaluate")
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

		var body handlers.EvaluateErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, []contracts.SeriesName{contracts.SeriesFlow, contracts.SeriesPremium}, body.Failed)
		require.Len(t, body.Partial, 1)
		assert.Equal(t, contracts.SubScore(20), body.Partial[0].Score)
	})

	t.Run("upstream failure", func(t *testing.T) {
		svc := &fakeService{runErr: errors.New("cot: status 503")}
		rec := serve(newTestRouter(svc, nil), http.MethodPost, "/api/heat/evaluate")
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})

	t.Run("method not allowed", func(t *testing.T) {
		rec := serve(newTestRouter(&fakeService{}, nil), http.MethodGet, "/api/heat/evaluate")
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestGetLatestCOT(t *testing.T) {
	svc := &fakeService{cot: &contracts.COTReport{
		Date: time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC), RetailNet: 18071, OpenInterest: 134849,
	}}
	rec := serve(newTestRouter(svc, nil), http.MethodGet, "/api/cot/latest")
	require.Equal(t, http.StatusOK, rec.Code)

	var body handlers.COTResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "2024-04-30", body.Date)
	assert.InDelta(t, 13.4009, body.NetPctOI, 1e-3)

	rec = serve(newTestRouter(&fakeService{}, nil), http.MethodGet, "/api/cot/latest")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestJobsAndMetrics(t *testing.T) {
	rec := metrics.New()
	router := newTestRouter(&fakeService{latest: sampleEvaluation()}, rec)

	res := serve(router, http.MethodGet, "/api/jobs")
	assert.Equal(t, http.StatusOK, res.Code)
	assert.JSONEq(t, `{}`, res.Body.String())

	serve(router, http.MethodGet, "/api/heat")
	res = serve(router, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), `silver_heat_http_requests_total{method="GET",route="/api/heat",status="200"} 1`)
}

func TestRecovery(t *testing.T) {
	router := NewRouter(Routes{Heat: handlers.NewHeatHandler(nil, nil)}, nil)
	rec := serve(router, http.MethodGet, "/api/heat")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Internal server error")
}

func TestWebSocketThroughMiddleware(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := ws.NewHub(nil)
	go hub.Run(ctx)

	server := httptest.NewServer(NewRouter(Routes{Stream: hub, Metrics: metrics.New()}, nil))
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/ws/heat", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg ws.Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, ws.TypeConnection, msg.Type)
}
