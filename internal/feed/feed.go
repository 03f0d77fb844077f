// Package feed defines the trade/quote source boundary the pipeline
// consumes, with a replay (NDJSON file) source for backtests and a
// live WebSocket source skeleton for production feeds.
package feed

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/Sokalledcoder/Auction-trader/internal/domain"
)

// TradeQuoteSource streams trades and quotes to a caller-supplied
// handler until the context is cancelled or the source is exhausted.
type TradeQuoteSource interface {
	// Connect establishes the underlying connection or opens the
	// underlying file. It is the one call boundary expected to fail
	// and is the boundary a circuit breaker should guard.
	Connect(ctx context.Context) error
	// Run streams events to the handler until ctx is cancelled or the
	// source runs out of data.
	Run(ctx context.Context, handler Handler) error
	// Close releases any held resources.
	Close() error
}

// Handler receives trades and quotes as the source produces them, in
// wall-clock (or replay) order.
type Handler interface {
	OnTrade(trade domain.Trade)
	OnQuote(quote domain.Quote)
}

// HandlerFunc adapts two plain functions into a Handler.
type HandlerFunc struct {
	Trade func(domain.Trade)
	Quote func(domain.Quote)
}

func (h HandlerFunc) OnTrade(trade domain.Trade) {
	if h.Trade != nil {
		h.Trade(trade)
	}
}

func (h HandlerFunc) OnQuote(quote domain.Quote) {
	if h.Quote != nil {
		h.Quote(quote)
	}
}

// ndjsonRecord is the on-disk shape of a single replay event: exactly
// one of Trade or Quote is populated.
type ndjsonRecord struct {
	Type  string        `json:"type"`
	Trade *domain.Trade `json:"trade,omitempty"`
	Quote *domain.Quote `json:"quote,omitempty"`
}

// ReplaySource reads trades and quotes from a newline-delimited JSON
// file, one record per line, in file order.
type ReplaySource struct {
	path string
	file *os.File
}

// NewReplaySource builds a replay source reading from path.
func NewReplaySource(path string) *ReplaySource {
	return &ReplaySource{path: path}
}

// Connect opens the backing file.
func (r *ReplaySource) Connect(ctx context.Context) error {
	f, err := os.Open(r.path)
	if err != nil {
		return fmt.Errorf("open replay source %q: %w", r.path, err)
	}
	r.file = f
	return nil
}

// Run scans the file line by line, dispatching each record to the
// handler, until EOF or ctx cancellation.
func (r *ReplaySource) Run(ctx context.Context, handler Handler) error {
	if r.file == nil {
		return fmt.Errorf("replay source %q not connected", r.path)
	}

	scanner := bufio.NewScanner(r.file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec ndjsonRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return fmt.Errorf("decode replay record: %w", err)
		}

		switch rec.Type {
		case "trade":
			if rec.Trade != nil {
				handler.OnTrade(*rec.Trade)
			}
		case "quote":
			if rec.Quote != nil {
				handler.OnQuote(*rec.Quote)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan replay source %q: %w", r.path, err)
	}
	return nil
}

// Close releases the backing file handle.
func (r *ReplaySource) Close() error {
	if r.file == nil {
		return nil
	}
	return r.file.Close()
}
