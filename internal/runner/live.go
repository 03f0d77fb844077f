package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/Sokalledcoder/Auction-trader/internal/breaker"
	"github.com/Sokalledcoder/Auction-trader/internal/cache"
	"github.com/Sokalledcoder/Auction-trader/internal/domain"
	"github.com/Sokalledcoder/Auction-trader/internal/feed"
	"github.com/Sokalledcoder/Auction-trader/internal/metrics"
	"github.com/Sokalledcoder/Auction-trader/internal/microstructure"
)

// reconnectLimiter paces reconnect attempts at one every five seconds
// with a single-attempt burst: the breaker already trips on repeated
// failures, but a flaky connection that keeps half-succeeding (dialing
// fine, then dropping mid-stream) would otherwise never trip the
// breaker while still hammering the endpoint on every drop.
func reconnectLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Every(5*time.Second), 1)
}

// LiveConfig bundles everything a live feature-pipeline run needs. Live
// order routing is out of this module's scope (see spec.md Non-goals),
// so RunLive only drives the classifier/bar-builder/feature-engine
// chain and publishes Features1m snapshots to the cache — there is no
// simulator or signal source here.
type LiveConfig struct {
	Symbol   string
	Config   *domain.Config
	Source   feed.TradeQuoteSource
	Metrics  *metrics.Registry
	Features *cache.FeaturesCache
}

// RunLive streams a symbol's live trades/quotes through the classifier,
// bar builder, and feature engine, publishing the latest Features1m
// snapshot to the features cache after every finalized bar. A failed
// connect or a dropped run is retried, paced by reconnectLimiter; it
// returns when ctx is cancelled, when the source's run ends without an
// error, or with an error once the circuit breaker is open.
func RunLive(ctx context.Context, cfg LiveConfig) error {
	pipelineCfg := cfg.Config
	if pipelineCfg == nil {
		pipelineCfg = domain.DefaultConfig()
	}

	classifier := microstructure.NewTradeClassifier(pipelineCfg.OrderFlow.MaxQuoteStalenessMs, pipelineCfg.OrderFlow.UseTickRuleFallback)
	barBuilder := microstructure.NewBarBuilder()
	engine := microstructure.NewFeatureEngine(pipelineCfg)
	guarded := breaker.New(cfg.Symbol, cfg.Source)
	limiter := reconnectLimiter()

	lastRebucketCount := 0

	publish := func(bar domain.Bar1m) {
		engine.AddBar(bar)
		features := engine.ComputeFeatures(int64(bar.OpenTimeMs), bar)

		if cfg.Features != nil {
			if err := cfg.Features.Set(cfg.Symbol, features); err != nil {
				log.Warn().Err(err).Str("symbol", cfg.Symbol).Msg("failed to cache live features snapshot")
			}
		}
		if cfg.Metrics != nil {
			cfg.Metrics.BarsFinalized.WithLabelValues(cfg.Symbol).Inc()
			cfg.Metrics.FeatureReadiness.WithLabelValues(cfg.Symbol).Set(boolToFloat(features.Ready))
			if rc := engine.RebucketCount(); rc > lastRebucketCount {
				cfg.Metrics.RebucketEvents.WithLabelValues(cfg.Symbol).Add(float64(rc - lastRebucketCount))
				lastRebucketCount = rc
			}
		}

		barBuilder.PruneQuotes(int64(bar.OpenTimeMs) - 60000)
	}

	handler := feed.HandlerFunc{
		Trade: func(trade domain.Trade) {
			if cfg.Metrics != nil {
				cfg.Metrics.TradesProcessed.WithLabelValues(cfg.Symbol).Inc()
			}
			classified := classifier.Classify(trade)
			barBuilder.AddTrade(classified)
			engine.AddTrade(classified)
			for _, bar := range barBuilder.FinalizeBefore(int64(trade.Timestamp)) {
				publish(bar)
			}
		},
		Quote: func(quote domain.Quote) {
			if cfg.Metrics != nil {
				cfg.Metrics.QuotesProcessed.WithLabelValues(cfg.Symbol).Inc()
			}
			classifier.AddQuote(quote)
			barBuilder.AddQuote(quote)
			engine.AddQuote(quote)
		},
	}

	for {
		err := guarded.Connect(ctx)
		if cfg.Metrics != nil {
			cfg.Metrics.SetBreakerState(cfg.Symbol, guarded.State())
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, gobreaker.ErrOpenState) {
				return fmt.Errorf("live source for %s: circuit breaker open: %w", cfg.Symbol, err)
			}
			log.Warn().Err(err).Str("symbol", cfg.Symbol).Msg("live feed connect failed, retrying")
			if waitErr := limiter.Wait(ctx); waitErr != nil {
				return nil
			}
			continue
		}

		runErr := guarded.Run(ctx, handler)
		guarded.Close()

		if ctx.Err() != nil {
			return nil
		}
		if runErr == nil {
			return nil
		}

		if cfg.Metrics != nil {
			cfg.Metrics.RecordFeedReconnect(cfg.Symbol)
		}
		log.Warn().Err(runErr).Str("symbol", cfg.Symbol).Msg("live feed dropped, reconnecting")

		if err := limiter.Wait(ctx); err != nil {
			return nil
		}
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
