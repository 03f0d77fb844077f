// Package metrics exposes the Prometheus collectors the pipeline and the
// backtest simulator update, on a private registry rather than the
// global default so tests and multiple engine instances don't collide.
package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

// Registry holds every collector this module exposes.
type Registry struct {
	registry *prometheus.Registry

	cacheHitCount  atomic.Int64
	cacheMissCount atomic.Int64

	StepDuration *prometheus.HistogramVec

	CacheHitRatio prometheus.Gauge
	CacheHits     *prometheus.CounterVec
	CacheMisses   *prometheus.CounterVec

	TradesProcessed  *prometheus.CounterVec
	QuotesProcessed  *prometheus.CounterVec
	BarsFinalized    *prometheus.CounterVec
	RebucketEvents   *prometheus.CounterVec
	FeatureReadiness *prometheus.GaugeVec

	ClosedTrades   *prometheus.CounterVec
	OpenPositions  *prometheus.GaugeVec
	RealizedPnL    *prometheus.CounterVec
	SimulatorEquity *prometheus.GaugeVec

	FeedReconnects *prometheus.CounterVec
	BreakerState   *prometheus.GaugeVec
}

// New builds a Registry with every collector registered against a fresh,
// private prometheus.Registry.
func New() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),

		StepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "auctiontrader_step_duration_seconds",
				Help:    "Duration of each pipeline step in seconds",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.5, 1.0},
			},
			[]string{"step"},
		),

		CacheHitRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "auctiontrader_cache_hit_ratio",
			Help: "Current features cache hit ratio (0.0 to 1.0)",
		}),
		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "auctiontrader_cache_hits_total", Help: "Total cache hits by cache type"},
			[]string{"cache_type"},
		),
		CacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "auctiontrader_cache_misses_total", Help: "Total cache misses by cache type"},
			[]string{"cache_type"},
		),

		TradesProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "auctiontrader_trades_processed_total", Help: "Total trades folded into the feature pipeline"},
			[]string{"symbol"},
		),
		QuotesProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "auctiontrader_quotes_processed_total", Help: "Total quotes folded into the feature pipeline"},
			[]string{"symbol"},
		),
		BarsFinalized: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "auctiontrader_bars_finalized_total", Help: "Total one-minute bars finalized"},
			[]string{"symbol"},
		),
		RebucketEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "auctiontrader_rebucket_events_total", Help: "Total histogram bin-width rebucket events"},
			[]string{"symbol"},
		),
		FeatureReadiness: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: "auctiontrader_feature_ready", Help: "Whether the feature engine is ready for a symbol (1) or still warming up (0)"},
			[]string{"symbol"},
		),

		ClosedTrades: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "auctiontrader_closed_trades_total", Help: "Total closed trades by exit reason"},
			[]string{"symbol", "exit_reason"},
		),
		OpenPositions: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: "auctiontrader_open_positions", Help: "Open position indicator (1 long, -1 short, 0 flat)"},
			[]string{"symbol"},
		),
		RealizedPnL: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "auctiontrader_realized_pnl_total", Help: "Cumulative realized P&L by symbol"},
			[]string{"symbol"},
		),
		SimulatorEquity: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: "auctiontrader_equity", Help: "Current simulator equity"},
			[]string{"symbol"},
		),

		FeedReconnects: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "auctiontrader_feed_reconnects_total", Help: "Total feed reconnect attempts"},
			[]string{"symbol"},
		),
		BreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: "auctiontrader_breaker_state", Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)"},
			[]string{"name"},
		),
	}

	r.registry.MustRegister(
		r.StepDuration,
		r.CacheHitRatio, r.CacheHits, r.CacheMisses,
		r.TradesProcessed, r.QuotesProcessed, r.BarsFinalized, r.RebucketEvents, r.FeatureReadiness,
		r.ClosedTrades, r.OpenPositions, r.RealizedPnL, r.SimulatorEquity,
		r.FeedReconnects, r.BreakerState,
	)

	return r
}

// Handler returns the private prometheus.Registry, for callers to serve
// in the Prometheus exposition format (e.g. via promhttp.HandlerFor).
func (r *Registry) Handler() *prometheus.Registry {
	return r.registry
}

// StepTimer times a single pipeline step and records its duration on
// Stop.
type StepTimer struct {
	registry *Registry
	step     string
	start    time.Time
}

// StartStepTimer begins timing a named pipeline step.
func (r *Registry) StartStepTimer(step string) *StepTimer {
	return &StepTimer{registry: r, step: step, start: time.Now()}
}

// Stop completes the step timer and records the observed duration.
func (t *StepTimer) Stop() {
	duration := time.Since(t.start)
	t.registry.StepDuration.WithLabelValues(t.step).Observe(duration.Seconds())

	log.Debug().Str("step", t.step).Dur("duration", duration).Msg("pipeline step completed")
}

// RecordCacheHit records a cache hit and refreshes the hit ratio.
func (r *Registry) RecordCacheHit(cacheType string) {
	r.CacheHits.WithLabelValues(cacheType).Inc()
	r.cacheHitCount.Add(1)
	r.updateCacheHitRatio()
}

// RecordCacheMiss records a cache miss and refreshes the hit ratio.
func (r *Registry) RecordCacheMiss(cacheType string) {
	r.CacheMisses.WithLabelValues(cacheType).Inc()
	r.cacheMissCount.Add(1)
	r.updateCacheHitRatio()
}

func (r *Registry) updateCacheHitRatio() {
	hits := r.cacheHitCount.Load()
	total := hits + r.cacheMissCount.Load()
	if total > 0 {
		r.CacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// RecordClosedTrade tags a closed trade by its exit reason for the
// trade-outcome counters.
func (r *Registry) RecordClosedTrade(symbol, exitReason string) {
	r.ClosedTrades.WithLabelValues(symbol, exitReason).Inc()
}

// SetOpenPosition records the current position direction for a symbol.
func (r *Registry) SetOpenPosition(symbol string, direction float64) {
	r.OpenPositions.WithLabelValues(symbol).Set(direction)
}

// AddRealizedPnL accumulates realized P&L for a symbol. Prometheus
// counters must be monotonically increasing, so only a positive pnl is
// added; zero and negative values are ignored, and signed totals come
// from the simulator's own equity curve.
func (r *Registry) AddRealizedPnL(symbol string, pnl float64) {
	if pnl > 0 {
		r.RealizedPnL.WithLabelValues(symbol).Add(pnl)
	}
}

// SetEquity records the simulator's current equity for a symbol.
func (r *Registry) SetEquity(symbol string, equity float64) {
	r.SimulatorEquity.WithLabelValues(symbol).Set(equity)
}

// RecordFeedReconnect increments the reconnect counter for a symbol's
// feed source.
func (r *Registry) RecordFeedReconnect(symbol string) {
	r.FeedReconnects.WithLabelValues(symbol).Inc()
}

// SetBreakerState records a gobreaker state transition.
func (r *Registry) SetBreakerState(name string, state float64) {
	r.BreakerState.WithLabelValues(name).Set(state)
}
