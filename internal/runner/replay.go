// Package runner wires the feature pipeline and the backtest
// simulator together into the two operations the CLI exposes: a
// replay run over historical data, and a live run against a streaming
// feed.
package runner

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/Sokalledcoder/Auction-trader/internal/backtest/replay"
	"github.com/Sokalledcoder/Auction-trader/internal/cache"
	"github.com/Sokalledcoder/Auction-trader/internal/domain"
	"github.com/Sokalledcoder/Auction-trader/internal/feed"
	alog "github.com/Sokalledcoder/Auction-trader/internal/log"
	"github.com/Sokalledcoder/Auction-trader/internal/metrics"
	"github.com/Sokalledcoder/Auction-trader/internal/microstructure"
	"github.com/Sokalledcoder/Auction-trader/internal/store"
)

// SignalSource supplies the simulator's next signal for a finalized
// bar and the features computed for it. Strategies plug in here; this module
// only owns the feature pipeline and the simulator mechanics.
type SignalSource interface {
	NextSignal(bar domain.Bar1m, features domain.Features1m) domain.Signal
}

// HoldSignalSource always returns a Hold signal, useful for exercising
// the pipeline and metrics without a strategy attached.
type HoldSignalSource struct{}

func (HoldSignalSource) NextSignal(domain.Bar1m, domain.Features1m) domain.Signal {
	return domain.Signal{Action: domain.ActionHold}
}

// ReplayConfig bundles everything a replay run needs beyond the
// pipeline configuration.
type ReplayConfig struct {
	Symbol       string
	SourcePath   string
	Config       *domain.Config
	Signals      SignalSource
	Metrics      *metrics.Registry
	Features     *cache.FeaturesCache
	Sink         store.Sink
	TotalBars    int // 0 if unknown; only affects the progress ETA
}

// ReplayResult is the outcome of a completed replay run.
type ReplayResult struct {
	Trades  []domain.ClosedTrade
	Metrics replay.BacktestMetrics
	BarsProcessed int
}

// RunReplay streams a symbol's trades/quotes from an NDJSON file
// through the classifier, bar builder, and feature engine, asking
// the signal source for a decision on every finalized bar, and
// feeding that decision into the backtest simulator.
func RunReplay(ctx context.Context, cfg ReplayConfig) (ReplayResult, error) {
	pipelineCfg := cfg.Config
	if pipelineCfg == nil {
		pipelineCfg = domain.DefaultConfig()
	}

	classifier := microstructure.NewTradeClassifier(pipelineCfg.OrderFlow.MaxQuoteStalenessMs, pipelineCfg.OrderFlow.UseTickRuleFallback)
	barBuilder := microstructure.NewBarBuilder()
	engine := microstructure.NewFeatureEngine(pipelineCfg)
	sim := replay.NewBacktestSimulator(cfg.Symbol, pipelineCfg)

	signals := cfg.Signals
	if signals == nil {
		signals = HoldSignalSource{}
	}

	source := feed.NewReplaySource(cfg.SourcePath)
	if err := source.Connect(ctx); err != nil {
		return ReplayResult{}, fmt.Errorf("connect replay source: %w", err)
	}
	defer source.Close()

	progress := alog.NewReplayProgress(cfg.Symbol, cfg.TotalBars)
	barsProcessed := 0

	var lastQuote domain.Quote
	haveQuote := false

	lastRebucketCount := 0

	processBar := func(bar domain.Bar1m, quote domain.Quote) {
		var timer *metrics.StepTimer
		if cfg.Metrics != nil {
			timer = cfg.Metrics.StartStepTimer("bar_close")
		}

		engine.AddBar(bar)
		features := engine.ComputeFeatures(int64(bar.OpenTimeMs), bar)

		if cfg.Features != nil {
			if err := cfg.Features.Set(cfg.Symbol, features); err != nil {
				log.Warn().Err(err).Str("symbol", cfg.Symbol).Msg("failed to cache features snapshot")
			}
		}

		sim.CheckStopsTargets(bar, quote)
		signal := signals.NextSignal(bar, features)
		sim.ProcessSignal(signal, quote)
		sim.ProcessFunding(bar.OpenTimeMs, bar.Close)

		if cfg.Metrics != nil {
			cfg.Metrics.BarsFinalized.WithLabelValues(cfg.Symbol).Inc()
			if rc := engine.RebucketCount(); rc > lastRebucketCount {
				cfg.Metrics.RebucketEvents.WithLabelValues(cfg.Symbol).Add(float64(rc - lastRebucketCount))
				lastRebucketCount = rc
			}
			cfg.Metrics.SetEquity(cfg.Symbol, sim.Equity())
			if pos := sim.Position(); pos != nil {
				direction := 1.0
				if pos.Side == domain.Short {
					direction = -1.0
				}
				cfg.Metrics.SetOpenPosition(cfg.Symbol, direction)
			} else {
				cfg.Metrics.SetOpenPosition(cfg.Symbol, 0.0)
			}
		}

		barBuilder.PruneQuotes(int64(bar.OpenTimeMs) - 60000)

		if timer != nil {
			timer.Stop()
		}
		barsProcessed++
		progress.Advance()
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
				processBar(bar, lastQuote)
			}
		},
		Quote: func(quote domain.Quote) {
			if cfg.Metrics != nil {
				cfg.Metrics.QuotesProcessed.WithLabelValues(cfg.Symbol).Inc()
			}
			classifier.AddQuote(quote)
			barBuilder.AddQuote(quote)
			engine.AddQuote(quote)
			lastQuote = quote
			haveQuote = true
		},
	}

	if err := source.Run(ctx, handler); err != nil {
		progress.Fail(err.Error())
		return ReplayResult{}, fmt.Errorf("run replay source: %w", err)
	}

	if haveQuote {
		tsMin := (int64(lastQuote.Timestamp) / 60000) * 60000
		if bar, ok := barBuilder.ForceFinalize(tsMin); ok {
			processBar(bar, lastQuote)
		}
	}

	trades := sim.Trades()
	result := ReplayResult{
		Trades:        trades,
		Metrics:       sim.CalculateMetrics(),
		BarsProcessed: barsProcessed,
	}

	if cfg.Sink != nil {
		if err := cfg.Sink.InsertBatch(ctx, trades); err != nil {
			log.Error().Err(err).Str("symbol", cfg.Symbol).Msg("failed to persist closed trades")
		}
	}
	if cfg.Metrics != nil {
		for _, trade := range trades {
			cfg.Metrics.RecordClosedTrade(cfg.Symbol, trade.ExitReason.String())
			cfg.Metrics.AddRealizedPnL(cfg.Symbol, trade.RealizedPnL)
		}
	}

	progress.Finish(len(trades))
	return result, nil
}
