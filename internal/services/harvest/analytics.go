package harvest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"InsightHub/internal/domain/models"
	domrepo "InsightHub/internal/domain/repository"
	domsvc "InsightHub/internal/domain/service"
	"InsightHub/internal/services/features"
	applogger "InsightHub/pkg/logger"
)

// analyticsAuthenticity is the authenticity assigned to first-party model output.
const analyticsAuthenticity = 0.85

type AnalyticsConfig struct {
	Name       string
	Subjects   []string
	Bars       int
	Resolution domrepo.Resolution
	Horizon    string
	// VolWindow is the rolling window, in bars, for realized volatility.
	VolWindow int
}

// AnalyticsHarvester turns candle analytics into insights: it reads the latest bars per
// subject, fans out to regime, volatility, anomaly and edge services, and maps each
// answer onto an insight with a stable id so the next cycle replaces it.
type AnalyticsHarvester struct {
	cfg    AnalyticsConfig
	store  domrepo.FeatureStore
	regime domsvc.RegimeDetector
	vol    domsvc.VolatilityForecaster
	anom   domsvc.AnomalyDetector
	edge   domsvc.EdgeScorer
	log    *applogger.Logger
	now    func() time.Time
}

func NewAnalyticsHarvester(
	cfg AnalyticsConfig,
	store domrepo.FeatureStore,
	regime domsvc.RegimeDetector,
	vol domsvc.VolatilityForecaster,
	anom domsvc.AnomalyDetector,
	edge domsvc.EdgeScorer,
	l *applogger.Logger,
) *AnalyticsHarvester {
	if cfg.Name == "" {
		cfg.Name = "analytics"
	}
	if cfg.Bars < 2 {
		cfg.Bars = 600
	}
	if cfg.VolWindow < 2 {
		cfg.VolWindow = 30
	}
	if cfg.Horizon == "" {
		cfg.Horizon = "5m"
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &AnalyticsHarvester{
		cfg: cfg, store: store, regime: regime, vol: vol, anom: anom, edge: edge,
		log: l.Component("analytics_harvester"),
		now: time.Now,
	}
}

func (h *AnalyticsHarvester) Name() string { return h.cfg.Name }

// Fetch fails only when no subject produced signals at all.
func (h *AnalyticsHarvester) Fetch(ctx context.Context) ([]models.Insight, error) {
	var out []models.Insight
	var errs []error
	for _, subject := range h.cfg.Subjects {
		sig, err := h.Signals(ctx, subject)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", subject, err))
			continue
		}
		for name, msg := range sig.Errors {
			h.log.Warn("analytic failed",
				applogger.String("subject", subject),
				applogger.String("analytic", name),
				applogger.String("error", msg))
		}
		out = append(out, h.toInsights(sig)...)
	}
	if len(out) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

// Signals runs all four analytics for subject concurrently; individual
// failures are reported in MarketSignals.Errors.
func (h *AnalyticsHarvester) Signals(ctx context.Context, subject string) (models.MarketSignals, error) {
	candles, err := h.store.GetLatestNCandles(ctx, subject, h.cfg.Bars, h.cfg.Resolution)
	if err != nil {
		return models.MarketSignals{}, fmt.Errorf("load candles: %w", err)
	}
	returns := features.ComputeLogReturns(candles)
	if len(returns) < h.cfg.VolWindow {
		return models.MarketSignals{}, fmt.Errorf("not enough bars: %d returns, window %d", len(returns), h.cfg.VolWindow)
	}
	barsPerYear := features.BarsPerYear(string(h.cfg.Resolution))
	vols := features.RollingVolatility(returns, h.cfg.VolWindow, barsPerYear)
	feats := features.Summary(returns, h.cfg.VolWindow, barsPerYear)

	res := models.MarketSignals{Subject: subject, Timestamp: h.now(), Errors: map[string]string{}}

	type item struct {
		name string
		val  interface{}
		err  error
	}
	ch := make(chan item, 4)
	var wg sync.WaitGroup
	run := func(name string, fn func() (interface{}, error)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := fn()
			ch <- item{name, v, err}
		}()
	}
	run("regime", func() (interface{}, error) { return h.regime.Detect(ctx, subject, returns) })
	run("volatility", func() (interface{}, error) { return h.vol.Forecast(ctx, subject, feats, h.cfg.Horizon) })
	run("anomalies", func() (interface{}, error) { return h.anom.DetectAnomalies(ctx, subject, returns, vols) })
	run("edge", func() (interface{}, error) { return h.edge.Predict(ctx, subject, feats, h.cfg.Horizon) })
	go func() { wg.Wait(); close(ch) }()

	for it := range ch {
		if it.err != nil {
			res.Errors[it.name] = it.err.Error()
			continue
		}
		switch v := it.val.(type) {
		case models.Regime:
			res.Regime = &v
		case models.VolatilityForecast:
			res.Volatility = &v
		case []models.MarketAnomaly:
			res.Anomalies = v
		case models.EdgeScore:
			res.Edge = &v
		}
	}
	if len(res.Errors) == 0 {
		res.Errors = nil
	}
	return res, nil
}

func (h *AnalyticsHarvester) toInsights(sig models.MarketSignals) []models.Insight {
	var out []models.Insight
	add := func(key string, kind models.Kind, conf, act float64, implication string, tf models.Timeframe) {
		out = append(out, models.Insight{
			ID:                fmt.Sprintf("%s:%s:%s", h.cfg.Name, sig.Subject, key),
			Subject:           sig.Subject,
			Kind:              kind,
			Source:            h.cfg.Name,
			Confidence:        unit(conf),
			Actionability:     unit(act),
			AuthenticityScore: analyticsAuthenticity,
			Implication:       implication,
			Timeframe:         tf,
			CreatedAt:         sig.Timestamp,
		})
	}

	if r := sig.Regime; r != nil {
		add("regime", models.KindMarketTrend, r.Confidence, 0.9*r.Confidence, regimeImplication(r.State), models.TimeframeHours)
	}
	if v := sig.Volatility; v != nil && v.Nowcast > 0 {
		ratio := v.Forecast / v.Nowcast
		text := "range compression, hold and wait"
		if ratio > 1 {
			text = "volatility expansion, breakout likely"
		}
		add("volatility", models.KindMarketTrend, math.Abs(ratio-1), 0.6, text, models.TimeframeMinutes)
	}
	for _, a := range sig.Anomalies {
		conf := math.Min(1, a.Severity/5)
		add("anomaly:"+a.Type, models.KindPatternAnomaly, conf, 0.7, anomalyImplication(a.Type), models.TimeframeImmediate)
	}
	if e := sig.Edge; e != nil {
		text := "neutral edge, wait"
		switch {
		case e.ProbaUp > 0.55:
			text = "bullish edge, buy"
		case e.ProbaUp < 0.45:
			text = "bearish edge, sell"
		}
		add("edge", models.KindSentimentSignal, e.Confidence, math.Abs(e.ProbaUp-0.5)*2, text, models.TimeframeMinutes)
	}
	return out
}

func regimeImplication(state string) string {
	switch state {
	case "bull":
		return "bull regime, uptrend"
	case "bear":
		return "bear regime, downtrend"
	case "volatile":
		return "volatile regime, swing risk"
	default:
		return "quiet regime, sideways"
	}
}

func anomalyImplication(kind string) string {
	switch kind {
	case "shock_up":
		return "price shock up, possible pump"
	case "shock_down":
		return "price shock down, possible dump"
	default:
		return "volatility spike"
	}
}

func unit(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

var _ domsvc.Harvester = (*AnalyticsHarvester)(nil)
