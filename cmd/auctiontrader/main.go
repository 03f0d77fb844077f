package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	alog "github.com/Sokalledcoder/Auction-trader/internal/log"
)

const (
	appName = "auctiontrader"
	version = "v0.1.0"
)

func main() {
	alog.Bootstrap(zerolog.InfoLevel)

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Market-microstructure feature pipeline and event-driven backtester",
		Version: version,
		Long: `auctiontrader builds intraday Value Area / order-flow features from
trade and quote data, and replays them through an event-driven backtest
simulator.

Run 'auctiontrader replay' against a recorded NDJSON feed, or
'auctiontrader serve' to expose live features and metrics over HTTP.`,
		Run: runDefaultEntry,
	}

	rootCmd.AddCommand(newReplayCmd())
	rootCmd.AddCommand(newServeCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func runDefaultEntry(cmd *cobra.Command, args []string) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		cmd.Help()
		os.Exit(2)
	}
	cmd.Help()
}
