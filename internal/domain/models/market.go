package models

import "time"

// Market analytics produced by the analytics service and turned into insights
// by the analytics harvester.

type Regime struct {
	Subject    string
	Timestamp  time.Time
	State      string // "bull", "bear", "volatile", "quiet"
	Prob       []float64
	Confidence float64
}

type VolatilityForecast struct {
	Subject   string
	Timestamp time.Time
	Horizon   string
	Forecast  float64 // sigma forecast
	Nowcast   float64 // realized sigma now
	Model     string
}

type MarketAnomaly struct {
	Subject   string
	Timestamp time.Time
	Type      string  // "shock_up", "shock_down", "vol_spike"
	Severity  float64 // z-score magnitude
}

type EdgeScore struct {
	Subject    string
	Timestamp  time.Time
	Horizon    string
	ProbaUp    float64
	Regime     string
	Sigma      float64
	Confidence float64
}

// Candle is an OHLCV bar read from the feature store.
type Candle struct {
	Bucket time.Time
	Symbol string
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// MarketSignals bundles one subject's analytics pass; Errors is keyed by analytic name.
type MarketSignals struct {
	Subject    string
	Timestamp  time.Time
	Regime     *Regime
	Volatility *VolatilityForecast
	Anomalies  []MarketAnomaly
	Edge       *EdgeScore
	Errors     map[string]string
}
