package analytics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"InsightHub/internal/domain/models"
	domsvc "InsightHub/internal/domain/service"
	xhttp "InsightHub/pkg/http"
)

// Client talks to the analytics HTTP service. One client serves all four analytics.
type Client struct {
	baseURL string
	http    *xhttp.Client
	now     func() time.Time
}

type Option func(*Client)

// WithHTTPClient replaces the default pkg/http client.
func WithHTTPClient(c *xhttp.Client) Option {
	return func(cl *Client) { cl.http = c }
}

func WithClock(now func() time.Time) Option {
	return func(cl *Client) { cl.now = now }
}

// NewClient retries each call up to retries times on transport errors and 5xx responses.
func NewClient(baseURL string, timeout time.Duration, retries int, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    xhttp.NewClient(xhttp.WithTimeout(timeout), xhttp.WithRetry(retries, 50*time.Millisecond)),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) post(ctx context.Context, path string, payload, dest interface{}) error {
	if c.baseURL == "" {
		return fmt.Errorf("analytics service url not configured")
	}
	if err := c.http.PostJSON(ctx, c.baseURL+path, payload, dest); err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	return nil
}

type regimeRequest struct {
	Symbol  string    `json:"symbol"`
	Returns []float64 `json:"returns"`
}

type regimeResponse struct {
	State      string    `json:"state"`
	Prob       []float64 `json:"prob"`
	Confidence float64   `json:"confidence"`
}

func (c *Client) Detect(ctx context.Context, subject string, returns []float64) (models.Regime, error) {
	var rr regimeResponse
	if err := c.post(ctx, "/regime/detect", regimeRequest{Symbol: subject, Returns: returns}, &rr); err != nil {
		return models.Regime{}, err
	}
	return models.Regime{
		Subject:    subject,
		Timestamp:  c.now(),
		State:      rr.State,
		Prob:       rr.Prob,
		Confidence: rr.Confidence,
	}, nil
}

type horizonRequest struct {
	Symbol   string             `json:"symbol"`
	Features map[string]float64 `json:"features"`
	Horizon  string             `json:"horizon"`
}

type volResponse struct {
	Forecast float64 `json:"forecast"`
	Nowcast  float64 `json:"nowcast"`
	Model    string  `json:"model"`
}

func (c *Client) Forecast(ctx context.Context, subject string, features map[string]float64, horizon string) (models.VolatilityForecast, error) {
	var vr volResponse
	if err := c.post(ctx, "/vol/forecast", horizonRequest{Symbol: subject, Features: features, Horizon: horizon}, &vr); err != nil {
		return models.VolatilityForecast{}, err
	}
	return models.VolatilityForecast{
		Subject:   subject,
		Timestamp: c.now(),
		Horizon:   horizon,
		Forecast:  vr.Forecast,
		Nowcast:   vr.Nowcast,
		Model:     vr.Model,
	}, nil
}

type anomalyRequest struct {
	Symbol  string    `json:"symbol"`
	Returns []float64 `json:"returns"`
	Vols    []float64 `json:"vols"`
}

type anomalyResponse struct {
	Anomalies []struct {
		TSIndex  int     `json:"ts_index"`
		Type     string  `json:"type"`
		Severity float64 `json:"severity"`
	} `json:"anomalies"`
}

func (c *Client) DetectAnomalies(ctx context.Context, subject string, returns, vols []float64) ([]models.MarketAnomaly, error) {
	var ar anomalyResponse
	if err := c.post(ctx, "/anomaly/detect", anomalyRequest{Symbol: subject, Returns: returns, Vols: vols}, &ar); err != nil {
		return nil, err
	}
	now := c.now()
	out := make([]models.MarketAnomaly, 0, len(ar.Anomalies))
	for _, a := range ar.Anomalies {
		out = append(out, models.MarketAnomaly{Subject: subject, Timestamp: now, Type: a.Type, Severity: a.Severity})
	}
	return out, nil
}

type edgeResponse struct {
	ProbaUp    float64 `json:"proba_up"`
	Regime     string  `json:"regime"`
	Sigma      float64 `json:"sigma"`
	Confidence float64 `json:"confidence"`
}

func (c *Client) Predict(ctx context.Context, subject string, features map[string]float64, horizon string) (models.EdgeScore, error) {
	var er edgeResponse
	if err := c.post(ctx, "/edge/predict", horizonRequest{Symbol: subject, Features: features, Horizon: horizon}, &er); err != nil {
		return models.EdgeScore{}, err
	}
	return models.EdgeScore{
		Subject:    subject,
		Timestamp:  c.now(),
		Horizon:    horizon,
		ProbaUp:    er.ProbaUp,
		Regime:     er.Regime,
		Sigma:      er.Sigma,
		Confidence: er.Confidence,
	}, nil
}

var (
	_ domsvc.RegimeDetector       = (*Client)(nil)
	_ domsvc.VolatilityForecaster = (*Client)(nil)
	_ domsvc.AnomalyDetector      = (*Client)(nil)
	_ domsvc.EdgeScorer           = (*Client)(nil)
)
