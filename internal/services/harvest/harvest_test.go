package harvest

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

	"InsightHub/internal/domain/models"
	domrepo "InsightHub/internal/domain/repository"
	xhttp "InsightHub/pkg/http"
)

const btcInsight = `{"id":"a1","subject":"BTC","kind":"MarketTrend","confidence":0.8,"actionability":0.7,"authenticityScore":0.9,"implication":"buy","timeframe":"hours"}`

func TestBufferDropsOldestWhenFull(t *testing.T) {
	b := NewBuffer(2)
	b.Push(models.Insight{ID: "1"}, models.Insight{ID: "2"}, models.Insight{ID: "3"})

	assert.Equal(t, int64(1), b.Dropped())
	got := b.Drain()
	require.Len(t, got, 2)
	assert.Equal(t, "2", got[0].ID)
	assert.Zero(t, b.Len())
	assert.Empty(t, b.Drain())
}

func TestDecodeInsights(t *testing.T) {
	cases := map[string]int{
		btcInsight:                                  1,
		"[" + btcInsight + "," + btcInsight + "]":   2,
		`{"type":"insight","data":[` + btcInsight + `]}`: 1,
		`{"insights":[` + btcInsight + `]}`:          1,
		`{"type":"ping"}`:                            0,
	}
	for payload, n := range cases {
		got, err := decodeInsights([]byte(payload))
		require.NoError(t, err, payload)
		assert.Len(t, got, n, payload)
	}

	_, err := decodeInsights([]byte("  "))
	assert.Error(t, err)
	_, err = decodeInsights([]byte("[{"))
	assert.Error(t, err)
}

func TestHTTPHarvester(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("[" + btcInsight + "]"))
	}))
	defer ts.Close()

	h := NewHTTPHarvester("feed", ts.URL, xhttp.NewClient(xhttp.WithTimeout(time.Second)))
	got, err := h.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "feed", got[0].Source, "missing source is stamped with the harvester name")
	assert.Equal(t, models.TimeframeHours, got[0].Timeframe)
}

func TestHTTPHarvesterPropagatesFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	_, err := NewHTTPHarvester("feed", ts.URL, nil).Fetch(context.Background())
	assert.Error(t, err)
}

func TestKafkaHarvesterBuffersUntilFetch(t *testing.T) {
	h := NewKafkaHarvester("bus", "insights", 10)
	assert.Equal(t, "insights", h.Topic())

	require.NoError(t, h.Handle(context.Background(), []byte(btcInsight)))
	assert.Error(t, h.Handle(context.Background(), []byte("{")))

	got, _ := h.Fetch(context.Background())
	require.Len(t, got, 1)
	assert.Equal(t, "bus", got[0].Source)

	got, _ = h.Fetch(context.Background())
	assert.Empty(t, got)
}

func TestQueueHarvester(t *testing.T) {
	h := NewQueueHarvester("queue", 10)
	assert.Equal(t, IngestJobType, h.Type())

	require.NoError(t, h.Handle(context.Background(), json.RawMessage(`{"insights":[`+btcInsight+`]}`)))
	got, _ := h.Fetch(context.Background())
	assert.Len(t, got, 1)
}

func TestStreamHarvesterReceivesFrames(t *testing.T) {
	subscribed := make(chan string, 2)
	upgrader := websocket.Upgrader{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		var sub map[string]string
		if err := conn.ReadJSON(&sub); err != nil {
			return
		}
		subscribed <- sub["subject"]
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"insight","data":[`+btcInsight+`]}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`not json`))
		// hold the connection open until the client goes away
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer ts.Close()

	h := NewStreamHarvester(StreamConfig{
		Name:     "ws",
		URL:      "ws" + strings.TrimPrefix(ts.URL, "http"),
		Subjects: []string{"BTC"},
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	assert.Equal(t, "BTC", <-subscribed)
	require.Eventually(t, func() bool { return h.buffer.Len() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.True(t, h.Connected())

	got, err := h.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ws", got[0].Source)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestStreamHarvesterReportsConnectFailure(t *testing.T) {
	h := NewStreamHarvester(StreamConfig{Name: "ws", URL: "ws://127.0.0.1:1/ws", ReconnectDelay: time.Hour}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	require.Eventually(t, func() bool {
		_, err := h.Fetch(context.Background())
		return err != nil
	}, 2*time.Second, 10*time.Millisecond)
}

type fakeStore struct {
	candles []models.Candle
	err     error
}

func (f fakeStore) GetLatestNCandles(context.Context, string, int, domrepo.Resolution) ([]models.Candle, error) {
	return f.candles, f.err
}

type fakeAnalytics struct {
	edgeErr error
}

func (fakeAnalytics) Detect(_ context.Context, s string, _ []float64) (models.Regime, error) {
	return models.Regime{Subject: s, State: "bull", Confidence: 0.8}, nil
}

func (fakeAnalytics) Forecast(_ context.Context, s string, _ map[string]float64, h string) (models.VolatilityForecast, error) {
	return models.VolatilityForecast{Subject: s, Horizon: h, Forecast: 0.6, Nowcast: 0.4}, nil
}

func (fakeAnalytics) DetectAnomalies(_ context.Context, s string, _, _ []float64) ([]models.MarketAnomaly, error) {
	return []models.MarketAnomaly{{Subject: s, Type: "shock_down", Severity: 10}}, nil
}

func (f fakeAnalytics) Predict(_ context.Context, s string, _ map[string]float64, h string) (models.EdgeScore, error) {
	if f.edgeErr != nil {
		return models.EdgeScore{}, f.edgeErr
	}
	return models.EdgeScore{Subject: s, ProbaUp: 0.7, Confidence: 0.6}, nil
}

func rampCandles(n int) []models.Candle {
	out := make([]models.Candle, n)
	for i := range out {
		out[i] = models.Candle{Close: 100 + float64(i%7)}
	}
	return out
}

func TestAnalyticsHarvesterMapsSignals(t *testing.T) {
	fa := fakeAnalytics{edgeErr: errors.New("model not loaded")}
	h := NewAnalyticsHarvester(AnalyticsConfig{Subjects: []string{"BTC"}, VolWindow: 5, Resolution: domrepo.Res1m},
		fakeStore{candles: rampCandles(40)}, fa, fa, fa, fa, nil)

	got, err := h.Fetch(context.Background())
	require.NoError(t, err)

	byID := map[string]models.Insight{}
	for _, in := range got {
		require.NoError(t, in.Validate())
		byID[in.ID] = in
	}
	require.Len(t, byID, 3, "edge failed, the other three analytics map to insights")

	regime := byID["analytics:BTC:regime"]
	assert.Equal(t, models.KindMarketTrend, regime.Kind)
	assert.Equal(t, "bull regime, uptrend", regime.Implication)

	vol := byID["analytics:BTC:volatility"]
	assert.InDelta(t, 0.5, vol.Confidence, 1e-9)
	assert.Contains(t, vol.Implication, "breakout")

	anomaly := byID["analytics:BTC:anomaly:shock_down"]
	assert.Equal(t, models.KindPatternAnomaly, anomaly.Kind)
	assert.Equal(t, 1.0, anomaly.Confidence)
	assert.Equal(t, models.TimeframeImmediate, anomaly.Timeframe)
}

func TestAnalyticsHarvesterFailsWhenNoSubjectProduces(t *testing.T) {
	fa := fakeAnalytics{}
	h := NewAnalyticsHarvester(AnalyticsConfig{Subjects: []string{"BTC"}},
		fakeStore{err: errors.New("clickhouse down")}, fa, fa, fa, fa, nil)

	_, err := h.Fetch(context.Background())
	assert.ErrorContains(t, err, "clickhouse down")

	h = NewAnalyticsHarvester(AnalyticsConfig{Subjects: []string{"BTC"}, VolWindow: 30},
		fakeStore{candles: rampCandles(5)}, fa, fa, fa, fa, nil)
	_, err = h.Fetch(context.Background())
	assert.ErrorContains(t, err, "not enough bars")
}

func TestAnalyticsHarvesterEdgeMapping(t *testing.T) {
	h := NewAnalyticsHarvester(AnalyticsConfig{}, nil, nil, nil, nil, nil, nil)
	got := h.toInsights(models.MarketSignals{Subject: "ETH", Edge: &models.EdgeScore{ProbaUp: 0.2, Confidence: 0.5}})
	require.Len(t, got, 1)
	assert.Equal(t, "bearish edge, sell", got[0].Implication)
	assert.InDelta(t, 0.6, got[0].Actionability, 1e-9)
}
