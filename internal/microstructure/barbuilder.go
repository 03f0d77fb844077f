package microstructure

import (
	"math"
	"sort"

	"github.com/Sokalledcoder/Auction-trader/internal/domain"
)

// barInProgress accumulates OHLCV state for a single minute.
type barInProgress struct {
	tsMin        int64
	symbol       string
	open         float64
	haveOpen     bool
	high         float64
	low          float64
	close        float64
	volume       float64
	vwapNumer    float64
	tradeCount   int
}

func newBarInProgress(tsMin int64) *barInProgress {
	return &barInProgress{
		tsMin: tsMin,
		high:  math.Inf(-1),
		low:   math.Inf(1),
	}
}

func (b *barInProgress) addTrade(price, size float64) {
	if !b.haveOpen {
		b.open = price
		b.haveOpen = true
	}
	if price > b.high {
		b.high = price
	}
	if price < b.low {
		b.low = price
	}
	b.close = price
	b.volume += size
	b.vwapNumer += price * size
	b.tradeCount++
}

func (b *barInProgress) vwap() (float64, bool) {
	if b.volume > 0 {
		return b.vwapNumer / b.volume, true
	}
	return 0, false
}

func (b *barInProgress) toBar(quote domain.Quote, haveQuote bool) (domain.Bar1m, bool) {
	if !b.haveOpen {
		return domain.Bar1m{}, false
	}

	vwap, _ := b.vwap()

	bar := domain.Bar1m{
		Symbol:     b.symbol,
		OpenTimeMs: domain.TimestampMs(b.tsMin),
		Open:       b.open,
		High:       b.high,
		Low:        b.low,
		Close:      b.close,
		Volume:     b.volume,
		VWAP:       vwap,
		TradeCount: b.tradeCount,
	}
	if haveQuote {
		bar.BidPriceClose = quote.BidPrice
		bar.AskPriceClose = quote.AskPrice
		bar.BidSizeClose = quote.BidSize
		bar.AskSizeClose = quote.AskSize
	}
	return bar, true
}

// BarBuilder assembles finalized one-minute bars from classified trades,
// attaching an L1 quote snapshot taken at each bar's close. A bar is never
// synthesized for a minute with no trades — the minute is simply absent
// from the builder's pending set and from any finalize result.
type BarBuilder struct {
	bars      map[int64]*barInProgress
	quotes    []domain.Quote
	maxQuotes int
}

// NewBarBuilder creates an empty bar builder.
func NewBarBuilder() *BarBuilder {
	return &BarBuilder{
		bars:      make(map[int64]*barInProgress),
		maxQuotes: 100000,
	}
}

// AddQuote records a quote for later close-snapshot lookups. Quotes must
// arrive in timestamp order.
func (b *BarBuilder) AddQuote(q domain.Quote) {
	if len(b.quotes) >= b.maxQuotes {
		half := b.maxQuotes / 2
		b.quotes = append([]domain.Quote{}, b.quotes[half:]...)
	}
	b.quotes = append(b.quotes, q)
}

// AddTrade folds a classified trade into its minute's in-progress bar.
func (b *BarBuilder) AddTrade(trade domain.ClassifiedTrade) {
	tsMin := tsToMinute(int64(trade.Timestamp))
	bar, ok := b.bars[tsMin]
	if !ok {
		bar = newBarInProgress(tsMin)
		bar.symbol = trade.Symbol
		b.bars[tsMin] = bar
	}
	bar.addTrade(trade.Price, trade.Size)
}

// AddTrades folds a batch of classified trades.
func (b *BarBuilder) AddTrades(trades []domain.ClassifiedTrade) {
	for _, trade := range trades {
		b.AddTrade(trade)
	}
}

// findQuote binary-searches for the latest quote at or before tsMs.
func (b *BarBuilder) findQuote(tsMs int64) (domain.Quote, bool) {
	i := sort.Search(len(b.quotes), func(i int) bool {
		return int64(b.quotes[i].Timestamp) > tsMs
	})
	if i == 0 {
		return domain.Quote{}, false
	}
	return b.quotes[i-1], true
}

// FinalizeBefore finalizes and returns every bar whose minute has fully
// elapsed relative to currentTsMs, removing them from the builder.
// Completed bars are returned sorted by minute.
func (b *BarBuilder) FinalizeBefore(currentTsMs int64) []domain.Bar1m {
	currentMinute := tsToMinute(currentTsMs)

	var toRemove []int64
	for tsMin := range b.bars {
		if tsMin < currentMinute {
			toRemove = append(toRemove, tsMin)
		}
	}
	sort.Slice(toRemove, func(i, j int) bool { return toRemove[i] < toRemove[j] })

	completed := make([]domain.Bar1m, 0, len(toRemove))
	for _, tsMin := range toRemove {
		inProgress := b.bars[tsMin]
		delete(b.bars, tsMin)

		closeTs := tsMin + 59999
		quote, haveQuote := b.findQuote(closeTs)
		if bar, ok := inProgress.toBar(quote, haveQuote); ok {
			completed = append(completed, bar)
		}
	}

	return completed
}

// ForceFinalize finalizes a specific minute regardless of whether it has
// fully elapsed.
func (b *BarBuilder) ForceFinalize(tsMin int64) (domain.Bar1m, bool) {
	inProgress, ok := b.bars[tsMin]
	if !ok {
		return domain.Bar1m{}, false
	}
	delete(b.bars, tsMin)

	closeTs := tsMin + 59999
	quote, haveQuote := b.findQuote(closeTs)
	return inProgress.toBar(quote, haveQuote)
}

// PendingBarCount returns the number of minutes currently being built.
func (b *BarBuilder) PendingBarCount() int {
	return len(b.bars)
}

// Clear resets all builder state.
func (b *BarBuilder) Clear() {
	b.bars = make(map[int64]*barInProgress)
	b.quotes = nil
}

// PruneQuotes discards quotes older than keepAfterTs.
func (b *BarBuilder) PruneQuotes(keepAfterTs int64) {
	kept := b.quotes[:0]
	for _, q := range b.quotes {
		if int64(q.Timestamp) >= keepAfterTs {
			kept = append(kept, q)
		}
	}
	b.quotes = kept
}
