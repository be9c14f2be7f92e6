package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"InsightHub/internal/domain/models"
	"InsightHub/internal/middleware"
	"InsightHub/internal/repository"
	"InsightHub/internal/services/fusion"
	"InsightHub/internal/usecase"
	"InsightHub/pkg/config"
	"InsightHub/pkg/metrics"
)

type fixedCycles []models.CycleStatus

func (f fixedCycles) Status() []models.CycleStatus { return f }

func newTestAPI(t *testing.T, opts ...repository.StoreOption) (*echo.Echo, *usecase.InsightEngine) {
	t.Helper()
	cfg := config.Default()
	rec := metrics.New(prometheus.NewRegistry())
	store := repository.NewMemoryInsightStore(opts...)
	pipe := middleware.NewInsightPipeline(store, rec, middleware.WithThrottle(2, 0))
	engine := usecase.NewInsightEngine(cfg.Engine, store, pipe, nil,
		fusion.NewFuser(cfg.Fusion, nil), fusion.NewSynthesizer(cfg.Fusion), rec, nil)

	e := echo.New()
	NewInsightsEchoHandler(nil, engine, fixedCycles{{Type: models.CycleFuse, State: models.CycleIdle, Runs: 3}}).RegisterRoutes(e)
	return e, engine
}

func do(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

const ingestBody = `{"subject":"TKN","kind":"MarketTrend","source":"dex","confidence":0.8,"actionability":0.8,"authenticityScore":0.9,"implication":"buy","timeframe":"1h"}`

func TestIngestAndQuery(t *testing.T) {
	e, engine := newTestAPI(t)

	rec := do(e, http.MethodPost, "/api/insights", ingestBody)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	var stored models.Insight
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &stored))
	assert.NotEmpty(t, stored.ID)
	assert.Equal(t, models.TimeframeHours, stored.Timeframe)

	rec = do(e, http.MethodGet, "/api/synthesis", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	require.NoError(t, engine.FuseCycle(context.Background()))

	rec = do(e, http.MethodGet, "/api/synthesis", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var res models.SynthesisResult
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &res))
	assert.Equal(t, models.StrategyAggressiveLong, res.UnifiedStrategy)

	rec = do(e, http.MethodGet, "/api/insights?subject=TKN&limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Rows  []models.FusedInsight `json:"rows"`
		Total int64                 `json:"total"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &list))
	assert.Equal(t, int64(1), list.Total)
	assert.Equal(t, []string{stored.ID}, list.Rows[0].MemberIDs)

	rec = do(e, http.MethodGet, "/api/metrics", "")
	var m models.EngineMetrics
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &m))
	assert.Equal(t, 1, m.TotalInsights)
	assert.Equal(t, 1, m.SourceDiversity)
}

func TestIngestValidationAndThrottle(t *testing.T) {
	e, _ := newTestAPI(t)

	rec := do(e, http.MethodPost, "/api/insights", `{"subject":"TKN","kind":"Rumour","source":"dex","confidence":3}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"kind"`)
	assert.Contains(t, rec.Body.String(), `"field":"confidence"`)

	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusAccepted, do(e, http.MethodPost, "/api/insights", ingestBody).Code)
	}
	rec = do(e, http.MethodPost, "/api/insights", ingestBody)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_THROTTLED")
}

func TestIngestIntoFullStore(t *testing.T) {
	e, _ := newTestAPI(t, repository.WithCapacity(1))
	require.Equal(t, http.StatusAccepted, do(e, http.MethodPost, "/api/insights", ingestBody).Code)

	weak := strings.Replace(ingestBody, `"confidence":0.8`, `"confidence":0.1`, 1)
	rec := do(e, http.MethodPost, "/api/insights", weak)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_STORE_FULL")
}

func TestActiveInsightsRejectsUnknownStrategy(t *testing.T) {
	e, _ := newTestAPI(t)
	rec := do(e, http.MethodGet, "/api/insights?strategy=YOLO", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSnapshotExport(t *testing.T) {
	e, engine := newTestAPI(t)
	require.Equal(t, http.StatusAccepted, do(e, http.MethodPost, "/api/insights", ingestBody).Code)
	require.NoError(t, engine.FuseCycle(context.Background()))

	rec := do(e, http.MethodGet, "/api/snapshot", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var snap models.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Len(t, snap.Insights, 1)
	assert.Len(t, snap.FusedInsights, 1)
	require.NotNil(t, snap.Synthesis)

	future := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
	rec = do(e, http.MethodGet, "/api/snapshot?since="+future, "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Empty(t, snap.Insights)

	rec = do(e, http.MethodGet, "/api/snapshot?since=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCycles(t *testing.T) {
	e, _ := newTestAPI(t)
	rec := do(e, http.MethodGet, "/api/cycles", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var st []models.CycleStatus
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &st))
	require.Len(t, st, 1)
	assert.Equal(t, int64(3), st[0].Runs)
}
