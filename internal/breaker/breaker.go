// Package breaker wraps a feed source's Connect boundary with a
// circuit breaker so repeated dial failures stop hammering a dead
// endpoint.
package breaker

import (
	"context"
	"time"

	cb "github.com/sony/gobreaker"

	"github.com/Sokalledcoder/Auction-trader/internal/feed"
)

// Breaker guards a single feed.TradeQuoteSource's Connect calls.
type Breaker struct {
	cb     *cb.CircuitBreaker
	source feed.TradeQuoteSource
}

// New builds a breaker named name wrapping source. Trips after 3
// consecutive failures, or after 20+ requests with a failure rate
// above 5%, and stays open for 60 seconds before probing again.
func New(name string, source feed.TradeQuoteSource) *Breaker {
	st := cb.Settings{Name: name}
	st.Interval = 60 * time.Second
	st.Timeout = 60 * time.Second
	st.ReadyToTrip = func(counts cb.Counts) bool {
		if counts.ConsecutiveFailures >= 3 {
			return true
		}
		total := counts.Requests
		if total < 20 {
			return false
		}
		return float64(counts.TotalFailures)/float64(total) > 0.05
	}

	return &Breaker{cb: cb.NewCircuitBreaker(st), source: source}
}

// Connect attempts the wrapped source's Connect through the breaker,
// short-circuiting once the failure threshold trips.
func (b *Breaker) Connect(ctx context.Context) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, b.source.Connect(ctx)
	})
	return err
}

// Run delegates directly; once connected, read failures surface as a
// Run error rather than a breaker trip.
func (b *Breaker) Run(ctx context.Context, handler feed.Handler) error {
	return b.source.Run(ctx, handler)
}

// Close delegates to the wrapped source.
func (b *Breaker) Close() error {
	return b.source.Close()
}

// State reports the breaker's current state as a float for metrics
// export: 0 closed, 1 half-open, 2 open.
func (b *Breaker) State() float64 {
	switch b.cb.State() {
	case cb.StateClosed:
		return 0
	case cb.StateHalfOpen:
		return 1
	default:
		return 2
	}
}
