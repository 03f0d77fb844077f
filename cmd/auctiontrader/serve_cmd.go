package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Sokalledcoder/Auction-trader/internal/cache"
	"github.com/Sokalledcoder/Auction-trader/internal/domain"
	"github.com/Sokalledcoder/Auction-trader/internal/feed"
	"github.com/Sokalledcoder/Auction-trader/internal/httpapi"
	"github.com/Sokalledcoder/Auction-trader/internal/metrics"
	"github.com/Sokalledcoder/Auction-trader/internal/runner"
)

func newServeCmd() *cobra.Command {
	var (
		symbol     string
		wsURL      string
		configPath string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve live features and metrics over HTTP",
		Long: `serve exposes /healthz, /metrics, and /features/{symbol} over
HTTP. When --ws-url is set, it also drives a live feature pipeline off
a WebSocket trade/quote feed for --symbol, guarded by a circuit
breaker, publishing snapshots the HTTP server reads back. Live order
routing is out of scope for this module — serve never opens or closes
a position.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := domain.DefaultConfig()
			if configPath != "" {
				loaded, err := domain.LoadConfig(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}

			reg := metrics.New()
			featuresCache := cache.NewFeaturesCache(cache.NewAuto(), 5*time.Minute)

			httpServer, err := httpapi.NewServer(httpapi.DefaultServerConfig(), featuresCache, reg)
			if err != nil {
				return fmt.Errorf("build http server: %w", err)
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			serverErrs := make(chan error, 1)
			go func() { serverErrs <- httpServer.Start() }()

			if wsURL != "" && symbol != "" {
				source := feed.NewWebSocketSource(wsURL, symbol)
				go func() {
					if err := runner.RunLive(ctx, runner.LiveConfig{
						Symbol:   symbol,
						Config:   cfg,
						Source:   source,
						Metrics:  reg,
						Features: featuresCache,
					}); err != nil {
						log.Error().Err(err).Str("symbol", symbol).Msg("live feature pipeline stopped")
					}
				}()
			}

			select {
			case <-ctx.Done():
				log.Info().Msg("shutdown signal received")
			case err := <-serverErrs:
				if err != nil {
					return fmt.Errorf("http server failed: %w", err)
				}
			}

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			return httpServer.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&symbol, "symbol", "", "symbol to drive a live feature pipeline for (requires --ws-url)")
	cmd.Flags().StringVar(&wsURL, "ws-url", "", "WebSocket feed URL for the live feature pipeline")
	cmd.Flags().StringVar(&configPath, "config", "", "optional pipeline config YAML (defaults applied otherwise)")

	return cmd
}
