package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Sokalledcoder/Auction-trader/internal/cache"
	"github.com/Sokalledcoder/Auction-trader/internal/domain"
	"github.com/Sokalledcoder/Auction-trader/internal/metrics"
	"github.com/Sokalledcoder/Auction-trader/internal/runner"
	"github.com/Sokalledcoder/Auction-trader/internal/store"
)

func newReplayCmd() *cobra.Command {
	var (
		symbol     string
		sourcePath string
		configPath string
		dbDSN      string
	)

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay an NDJSON trade/quote recording through the feature pipeline and backtester",
		Long: `replay streams a symbol's recorded trades and quotes from an
NDJSON file through the trade classifier, bar builder, and feature
engine, driving a Hold-only backtest simulator unless a strategy is
wired in. It prints the resulting BacktestMetrics and, when
--db is set, persists closed trades to PostgreSQL.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if sourcePath == "" {
				return fmt.Errorf("--source is required")
			}
			if symbol == "" {
				return fmt.Errorf("--symbol is required")
			}

			cfg := domain.DefaultConfig()
			if configPath != "" {
				loaded, err := domain.LoadConfig(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			reg := metrics.New()
			featuresCache := cache.NewFeaturesCache(cache.NewAuto(), 5*time.Minute)

			var sink store.Sink
			if dbDSN != "" {
				db, err := sqlx.Connect("postgres", dbDSN)
				if err != nil {
					return fmt.Errorf("connect postgres sink: %w", err)
				}
				defer db.Close()
				sink = store.NewPostgresSink(db, 5*time.Second)
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			result, err := runner.RunReplay(ctx, runner.ReplayConfig{
				Symbol:     symbol,
				SourcePath: sourcePath,
				Config:     cfg,
				Metrics:    reg,
				Features:   featuresCache,
				Sink:       sink,
			})
			if err != nil {
				return fmt.Errorf("replay run failed: %w", err)
			}

			printBacktestSummary(symbol, result)
			return nil
		},
	}

	cmd.Flags().StringVar(&symbol, "symbol", "", "instrument symbol tag for the replayed trades/quotes")
	cmd.Flags().StringVar(&sourcePath, "source", "", "path to an NDJSON trade/quote recording")
	cmd.Flags().StringVar(&configPath, "config", "", "optional pipeline config YAML (defaults applied otherwise)")
	cmd.Flags().StringVar(&dbDSN, "db", "", "optional PostgreSQL DSN to persist closed trades")
	cmd.MarkFlagRequired("symbol")
	cmd.MarkFlagRequired("source")

	return cmd
}

func printBacktestSummary(symbol string, result runner.ReplayResult) {
	m := result.Metrics
	log.Info().
		Str("symbol", symbol).
		Int("bars_processed", result.BarsProcessed).
		Int("total_trades", m.TotalTrades).
		Float64("win_rate", m.WinRate).
		Float64("net_pnl", m.NetPnL).
		Float64("max_drawdown_pct", m.MaxDrawdownPct).
		Float64("sharpe", m.SharpeRatio).
		Float64("sortino", m.SortinoRatio).
		Msg("replay complete")

	fmt.Printf("\nsymbol: %s\n", symbol)
	fmt.Printf("bars processed: %d\n", result.BarsProcessed)
	fmt.Printf("trades: %d (win rate %.1f%%)\n", m.TotalTrades, m.WinRate*100)
	fmt.Printf("net pnl: %.4f (%.2f%% of initial capital)\n", m.NetPnL, m.TotalReturnPct)
	fmt.Printf("gross pnl: %.4f  fees: %.4f  funding: %.4f\n", m.GrossPnL, m.TotalFees, m.TotalFunding)
	fmt.Printf("profit factor: %.4f\n", m.ProfitFactor)
	fmt.Printf("max drawdown: %.4f (%.2f%%)\n", m.MaxDrawdown, m.MaxDrawdownPct)
	fmt.Printf("sharpe: %.4f  sortino: %.4f\n", m.SharpeRatio, m.SortinoRatio)
}
