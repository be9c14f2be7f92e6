package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain repository.Metrics using Prometheus.
type Recorder struct {
	ingested      *prometheus.CounterVec
	rejected      *prometheus.CounterVec
	harvested     *prometheus.CounterVec
	harvestErrors *prometheus.CounterVec
	harvestTime   *prometheus.HistogramVec
	cycleTime     *prometheus.HistogramVec
	cycleErrors   *prometheus.CounterVec
	cycleSkipped  *prometheus.CounterVec
	evicted       *prometheus.CounterVec
	storeSize     *prometheus.GaugeVec
	synthesis     *prometheus.GaugeVec
	strategy      *prometheus.GaugeVec
}

// New registers the collectors on reg. Pass prometheus.DefaultRegisterer in
// production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		ingested: f.NewCounterVec(prometheus.CounterOpts{
			Name: "insighthub_insights_ingested_total",
			Help: "Insights accepted into the store",
		}, []string{"source"}),
		rejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "insighthub_insights_rejected_total",
			Help: "Insights dropped at admission",
		}, []string{"source", "reason"}),
		harvested: f.NewCounterVec(prometheus.CounterOpts{
			Name: "insighthub_harvested_insights_total",
			Help: "Raw insights returned by harvesters",
		}, []string{"source"}),
		harvestErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "insighthub_harvest_failures_total",
			Help: "Harvester calls that failed or timed out",
		}, []string{"source"}),
		harvestTime: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "insighthub_harvest_duration_seconds",
			Help:    "Duration of a single harvester call",
			Buckets: prometheus.DefBuckets,
		}, []string{"source"}),
		cycleTime: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "insighthub_cycle_duration_seconds",
			Help:    "Duration of scheduler cycles",
			Buckets: prometheus.DefBuckets,
		}, []string{"cycle"}),
		cycleErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "insighthub_cycle_errors_total",
			Help: "Cycles that completed with an error",
		}, []string{"cycle"}),
		cycleSkipped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "insighthub_cycle_skipped_total",
			Help: "Cycle starts skipped because the previous run was still going",
		}, []string{"cycle"}),
		evicted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "insighthub_insights_evicted_total",
			Help: "Insights removed from the store",
		}, []string{"reason"}),
		storeSize: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "insighthub_store_size",
			Help: "Insights currently held in the store",
		}, []string{"set"}),
		synthesis: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "insighthub_synthesis_score",
			Help: "Scores of the latest synthesis result",
		}, []string{"score"}),
		strategy: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "insighthub_synthesis_strategy",
			Help: "1 for the strategy selected by the latest synthesis, 0 otherwise",
		}, []string{"strategy"}),
	}
}

func (r *Recorder) RecordIngested(source string) {
	r.ingested.WithLabelValues(source).Inc()
}

func (r *Recorder) RecordRejected(source, reason string) {
	r.rejected.WithLabelValues(source, reason).Inc()
}

// RecordHarvest records one harvester call; err marks it failed.
func (r *Recorder) RecordHarvest(source string, count int, seconds float64, err error) {
	r.harvestTime.WithLabelValues(source).Observe(seconds)
	if err != nil {
		r.harvestErrors.WithLabelValues(source).Inc()
		return
	}
	r.harvested.WithLabelValues(source).Add(float64(count))
}

func (r *Recorder) RecordCycle(cycle string, seconds float64, err error) {
	r.cycleTime.WithLabelValues(cycle).Observe(seconds)
	if err != nil {
		r.cycleErrors.WithLabelValues(cycle).Inc()
	}
}

func (r *Recorder) RecordCycleSkipped(cycle string) {
	r.cycleSkipped.WithLabelValues(cycle).Inc()
}

func (r *Recorder) RecordEvicted(reason string, n int) {
	if n > 0 {
		r.evicted.WithLabelValues(reason).Add(float64(n))
	}
}

func (r *Recorder) RecordStoreSize(raw, fused int) {
	r.storeSize.WithLabelValues("raw").Set(float64(raw))
	r.storeSize.WithLabelValues("fused").Set(float64(fused))
}

// RecordSynthesis publishes the latest scores and flips the strategy indicator.
func (r *Recorder) RecordSynthesis(strategy string, risk, profit, priority, alignment float64) {
	r.synthesis.WithLabelValues("risk").Set(risk)
	r.synthesis.WithLabelValues("profit").Set(profit)
	r.synthesis.WithLabelValues("priority").Set(priority)
	r.synthesis.WithLabelValues("alignment").Set(alignment)

	r.strategy.Reset()
	r.strategy.WithLabelValues(strategy).Set(1)
}
