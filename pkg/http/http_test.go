package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientRetriesServerErrors(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		_ = json.NewEncoder(w).Encode(map[string]string{"echo": in["subject"]})
	}))
	defer ts.Close()

	c := NewClient(WithRetry(3, time.Millisecond))
	var out map[string]string
	require.NoError(t, c.PostJSON(context.Background(), ts.URL, map[string]string{"subject": "BTC"}, &out))
	assert.Equal(t, "BTC", out["echo"])
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "nope", http.StatusBadRequest)
	}))
	defer ts.Close()

	err := NewClient(WithRetry(3, time.Millisecond)).GetJSON(context.Background(), ts.URL, nil)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.Code)
	assert.Equal(t, "nope", se.Body)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

type createReq struct {
	Subject string  `json:"subject" validate:"required"`
	Score   float64 `json:"score" validate:"gte=0,lte=1"`
	Limit   int     `query:"limit" json:"-" default:"10"`
}

func TestReadAndValidateRequest(t *testing.T) {
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/?limit=5", strings.NewReader(`{"score":2}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())

	var body createReq
	errs := ReadAndValidateRequest(c, &body)
	require.Len(t, errs, 2)
	assert.Equal(t, "ERR_REQUIRED", errs[0].Code)
	assert.Equal(t, "subject", errs[0].Field)
	assert.Equal(t, "ERR_LTE", errs[1].Code)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"subject":"ETH","score":0.4}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c = e.NewContext(req, httptest.NewRecorder())
	body = createReq{}
	assert.Empty(t, ReadAndValidateRequest(c, &body))
	assert.Equal(t, 10, body.Limit)
}

func TestAppErrorResponseUsesStatus(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	require.NoError(t, AppErrorResponse(c, TooManyRequestsError("slow down")))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusTooManyRequests, resp.Status)
}

type panicHandler struct{}

func (panicHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/boom", func(echo.Context) error { panic("boom") })
}

func TestServerRoutesAndMiddleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := NewServer(panicHandler{}, WithMetrics(reg, "/metrics"))

	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))

	rec = httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `insighthub_http_requests_total{method="GET",route="/boom",status="500"} 1`)
}
