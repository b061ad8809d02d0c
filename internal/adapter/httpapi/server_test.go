package httpapi_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oceanbound/floodline/internal/adapter/httpapi"
	"github.com/oceanbound/floodline/internal/flood"
	"github.com/oceanbound/floodline/internal/geoid"
	"github.com/oceanbound/floodline/internal/observability"
	"github.com/oceanbound/floodline/internal/service"
	"github.com/oceanbound/floodline/internal/store"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStack(t *testing.T, readyErr error) (*httpapi.Server, *flood.Session) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	clock := clockwork.NewFakeClock()
	metrics := observability.NewMetricsForTesting()
	svc := service.New(db, nil, discardLogger(), metrics, clock, 200, 1337)
	session := flood.NewSession(geoid.Zero{}, flood.DetachAfterFade, clock, discardLogger())

	return httpapi.NewServer(":0", svc, session, metrics, &mockReadiness{err: readyErr}, discardLogger()), session
}

func newTestServer(t *testing.T, readyErr error) *httpapi.Server {
	t.Helper()
	srv, _ := newTestStack(t, readyErr)
	return srv
}

func doJSON(t *testing.T, srv *httpapi.Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, reader)
	srv.ServeHTTP(rec, req)
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := doJSON(t, srv, http.MethodGet, "/healthz", "")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	srv := newTestServer(t, fmt.Errorf("database unreachable"))
	rec := doJSON(t, srv, http.MethodGet, "/readyz", "")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "database unreachable", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := doJSON(t, srv, http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

type simulateResponse struct {
	Run          store.Run `json:"run"`
	SortedTotals []float64 `json:"sorted_totals"`
}

func TestSimulateManual(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/simulate", `{"temperature": 2.0}`)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp simulateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "manual", resp.Run.Mode)
	assert.Equal(t, 2.0, resp.Run.Temperature)
	assert.Equal(t, 200, resp.Run.Iterations)
	assert.Equal(t, uint32(3337), resp.Run.Seed)
	assert.NotEmpty(t, resp.Run.ID)
	assert.Positive(t, resp.Run.Stats.Mean)
	assert.Len(t, resp.SortedTotals, 200)
	assert.True(t, sort.Float64sAreSorted(resp.SortedTotals))
}

func TestSimulateProjection(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/simulate", `{"scenario_id": "ssp245", "year": 2050}`)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp simulateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "projection", resp.Run.Mode)
	assert.Equal(t, "ssp245", resp.Run.ScenarioID)
	assert.Equal(t, 2.2, resp.Run.Temperature)
}

func TestSimulateRejectsUnknownScenario(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/simulate", `{"scenario_id": "rcp85", "year": 2050}`)

	// The oneof rule rejects it before the service sees it.
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSimulateRejectsEmptyRequest(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/simulate", `{}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSimulateRejectsMalformedBody(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/simulate", `{"temperature": "warm"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScenariosList(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := doJSON(t, srv, http.MethodGet, "/api/v1/scenarios", "")

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Scenarios []struct {
			ID string `json:"id"`
		} `json:"scenarios"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Scenarios, 3)
	assert.Equal(t, "ssp126", body.Scenarios[0].ID)
}

func TestProjectionInterpolates(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := doJSON(t, srv, http.MethodGet, "/api/v1/projection?scenario=ssp245&year=2040", "")

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.InDelta(t, 1.9, body["temperature"].(float64), 1e-9)
}

func TestProjectionUnknownScenarioReturns404(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := doJSON(t, srv, http.MethodGet, "/api/v1/projection?scenario=nope&year=2050", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProjectionMissingParamsReturns400(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := doJSON(t, srv, http.MethodGet, "/api/v1/projection?scenario=ssp245", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetRunRoundTrip(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/simulate", `{"temperature": 1.5}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created simulateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/runs/"+created.Run.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var fetched store.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fetched))
	assert.Equal(t, created.Run.ID, fetched.ID)
	assert.Equal(t, created.Run.Stats, fetched.Stats)
}

func TestGetRunUnknownReturns404(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := doJSON(t, srv, http.MethodGet, "/api/v1/runs/no-such-run", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListRunsNewestFirst(t *testing.T) {
	srv := newTestServer(t, nil)
	for _, body := range []string{`{"temperature": 1.0}`, `{"temperature": 2.0}`} {
		rec := doJSON(t, srv, http.MethodPost, "/api/v1/simulate", body)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/runs?limit=10", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Runs []store.Run `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Runs, 2)
}

func TestListRunsRejectsBadLimit(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := doJSON(t, srv, http.MethodGet, "/api/v1/runs?limit=zero", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFloodLevelAndState(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/flood/level", `{"sea_level_rise": 0.8}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var state flood.State
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, flood.PhaseFlooding, state.Phase)
	require.NotNil(t, state.Current)
	assert.Equal(t, 0.8, state.Current.SeaLevelRise)

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/flood/state", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, flood.PhaseFlooding, state.Phase)
}

func TestFloodLevelResolvesRunStatistic(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/simulate", `{"temperature": 2.0}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created simulateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	body := fmt.Sprintf(`{"run_id": %q, "stat": "p95"}`, created.Run.ID)
	rec = doJSON(t, srv, http.MethodPost, "/api/v1/flood/level", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var state flood.State
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	require.NotNil(t, state.Current)
	assert.Equal(t, created.Run.Stats.P95, state.Current.SeaLevelRise)
	assert.Equal(t, created.Run.ID, state.Current.RunID)
	assert.Equal(t, "p95", state.Current.Stat)
}

func TestFloodLevelDefaultsToMedian(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/simulate", `{"temperature": 2.0}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created simulateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	body := fmt.Sprintf(`{"run_id": %q}`, created.Run.ID)
	rec = doJSON(t, srv, http.MethodPost, "/api/v1/flood/level", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var state flood.State
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	require.NotNil(t, state.Current)
	assert.Equal(t, created.Run.Stats.Median, state.Current.SeaLevelRise)
	assert.Equal(t, "median", state.Current.Stat)
}

func TestFloodLevelUnknownRunReturns404(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/flood/level", `{"run_id": "no-such-run", "stat": "mean"}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFloodLevelRejectsNegativeRise(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/flood/level", `{"sea_level_rise": -0.5}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFloodLevelRejectsEmptySelection(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/flood/level", `{}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFloodClear(t *testing.T) {
	srv := newTestServer(t, nil)
	doJSON(t, srv, http.MethodPost, "/api/v1/flood/level", `{"sea_level_rise": 0.8}`)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/flood/clear", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var state flood.State
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, flood.PhaseFading, state.Phase)
}

func TestFloodComparisonWithoutHistoryReturns409(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/flood/comparison", `{"enabled": true}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestFloodComparisonWithHistory(t *testing.T) {
	srv := newTestServer(t, nil)
	doJSON(t, srv, http.MethodPost, "/api/v1/flood/level", `{"sea_level_rise": 0.5}`)
	doJSON(t, srv, http.MethodPost, "/api/v1/flood/level", `{"sea_level_rise": 0.9}`)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/flood/comparison", `{"enabled": true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var state flood.State
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.True(t, state.Comparison)
}

func TestFloodEvaluate(t *testing.T) {
	srv := newTestServer(t, nil)
	doJSON(t, srv, http.MethodPost, "/api/v1/flood/level", `{"sea_level_rise": 1.0}`)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/flood/evaluate", `{"points": [
		{"u": 0.5, "v": 0.5, "terrain_height": 0.2, "wet": false},
		{"u": 0.5, "v": 0.5, "terrain_height": 5.0, "wet": false},
		{"u": 0.5, "v": 0.5, "terrain_height": 0.2, "wet": true}
	]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Decisions []flood.Decision `json:"decisions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Decisions, 3)
	assert.True(t, body.Decisions[0].Flooded)
	assert.False(t, body.Decisions[1].Flooded)
	assert.False(t, body.Decisions[2].Flooded)
}

func TestFloodEvaluateRejectsEmptyPoints(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/flood/evaluate", `{"points": []}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func dialStream(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/flood/stream"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readStreamState(t *testing.T, conn *websocket.Conn) flood.State {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var state flood.State
	require.NoError(t, conn.ReadJSON(&state))
	return state
}

func TestFloodStreamPushesStateFrames(t *testing.T) {
	srv, session := newTestStack(t, nil)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	conn := dialStream(t, ts)

	// The handler writes the current state immediately on connect.
	state := readStreamState(t, conn)
	assert.Equal(t, flood.PhaseIdle, state.Phase)
	assert.Zero(t, state.Alpha)

	session.SetFloodLevel(0.8, "", "")
	session.Tick()

	state = readStreamState(t, conn)
	assert.Equal(t, flood.PhaseFlooding, state.Phase)
	require.NotNil(t, state.Current)
	assert.Equal(t, 0.8, state.Current.SeaLevelRise)
	assert.Positive(t, state.Alpha)
}

func TestFloodStreamUnsubscribesOnClientClose(t *testing.T) {
	srv, session := newTestStack(t, nil)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	conn := dialStream(t, ts)
	readStreamState(t, conn)
	require.Equal(t, 1, session.Subscribers())

	require.NoError(t, conn.Close())

	assert.Eventually(t, func() bool {
		return session.Subscribers() == 0
	}, 5*time.Second, 10*time.Millisecond, "handler should unsubscribe when the client goes away")
}
