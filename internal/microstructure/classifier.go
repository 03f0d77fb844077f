package microstructure

import (
	"math"

	"github.com/Sokalledcoder/Auction-trader/internal/domain"
)

// TradeClassifier infers the aggressor side of each trade by comparing it
// against the prevailing quote, falling back to the tick rule (and
// zero-tick continuation) when the trade prints inside the spread or no
// quote is available.
type TradeClassifier struct {
	maxStalenessMs int64
	useTickRule    bool
	quotes         []domain.Quote
	maxQuotes      int
	lastTradePrice float64
	haveLastPrice  bool
	lastTradeSide  domain.TradeSide
	stats          domain.ClassificationStats
}

// NewTradeClassifier creates a classifier with the given maximum quote
// staleness and tick-rule fallback setting.
func NewTradeClassifier(maxStalenessMs int64, useTickRule bool) *TradeClassifier {
	return &TradeClassifier{
		maxStalenessMs: maxStalenessMs,
		useTickRule:    useTickRule,
		maxQuotes:      10000,
		lastTradeSide:  domain.SideUnknown,
	}
}

// AddQuote records a new quote, evicting the oldest once at capacity.
// Quotes are expected to arrive in timestamp order.
func (c *TradeClassifier) AddQuote(q domain.Quote) {
	for len(c.quotes) >= c.maxQuotes {
		c.quotes = c.quotes[1:]
	}
	c.quotes = append(c.quotes, q)
}

// findQuote returns the latest quote at or before tsMs, scanning from the
// most recent quote backward since quotes are stored in arrival order.
func (c *TradeClassifier) findQuote(tsMs int64) (domain.Quote, bool) {
	for i := len(c.quotes) - 1; i >= 0; i-- {
		if int64(c.quotes[i].Timestamp) <= tsMs {
			return c.quotes[i], true
		}
	}
	return domain.Quote{}, false
}

// Classify determines a single trade's aggressor side and updates running
// classification statistics.
func (c *TradeClassifier) Classify(trade domain.Trade) domain.ClassifiedTrade {
	quote, haveQuote := c.findQuote(int64(trade.Timestamp))

	var side domain.TradeSide
	var quoteBid, quoteAsk float64
	var stalenessMs int64

	if haveQuote {
		stalenessMs = int64(trade.Timestamp) - int64(quote.Timestamp)
		isStale := stalenessMs > c.maxStalenessMs

		switch {
		case trade.Price >= quote.AskPrice:
			side = domain.SideBuy
		case trade.Price <= quote.BidPrice:
			side = domain.SideSell
		default:
			side = domain.SideUnknown
		}

		if side == domain.SideUnknown && c.useTickRule {
			side = c.tickRuleSide(trade.Price)
		}

		if isStale {
			c.stats.StaleQuoteTrades++
		}

		quoteBid, quoteAsk = quote.BidPrice, quote.AskPrice
	} else {
		if c.useTickRule {
			side = c.tickRuleSide(trade.Price)
		} else {
			side = domain.SideUnknown
		}
		stalenessMs = math.MaxInt64
	}

	c.stats.TotalTrades++
	c.stats.TotalVolume += trade.Size
	cappedStaleness := stalenessMs
	if stalenessCap := c.maxStalenessMs * 10; cappedStaleness > stalenessCap {
		cappedStaleness = stalenessCap
	}
	c.stats.TotalStalenessMs += cappedStaleness

	switch side {
	case domain.SideBuy:
		c.stats.BuyTrades++
		c.stats.BuyVolume += trade.Size
	case domain.SideSell:
		c.stats.SellTrades++
		c.stats.SellVolume += trade.Size
	default:
		c.stats.AmbiguousTrades++
		c.stats.AmbiguousVolume += trade.Size
	}

	c.lastTradePrice = trade.Price
	c.haveLastPrice = true
	if side != domain.SideUnknown {
		c.lastTradeSide = side
	}

	return domain.ClassifiedTrade{
		Trade:            trade,
		Side:             side,
		QuoteBidPrice:    quoteBid,
		QuoteAskPrice:    quoteAsk,
		QuoteStalenessMs: stalenessMs,
	}
}

// tickRuleSide applies the tick rule (and zero-tick continuation) against
// the last seen trade price.
func (c *TradeClassifier) tickRuleSide(price float64) domain.TradeSide {
	if !c.haveLastPrice {
		return domain.SideUnknown
	}
	switch {
	case price > c.lastTradePrice:
		return domain.SideBuy
	case price < c.lastTradePrice:
		return domain.SideSell
	default:
		return c.lastTradeSide
	}
}

// ClassifyBatch classifies a sequence of trades, aggregating any trades
// sharing the same timestamp into a single VWAP'd classified trade before
// classification.
func (c *TradeClassifier) ClassifyBatch(trades []domain.Trade) []domain.ClassifiedTrade {
	if len(trades) == 0 {
		return nil
	}

	result := make([]domain.ClassifiedTrade, 0, len(trades))
	var group []domain.Trade
	currentTs := trades[0].Timestamp

	flush := func() {
		if len(group) == 0 {
			return
		}
		result = append(result, c.classifyGroup(group))
		group = nil
	}

	for _, trade := range trades {
		if len(group) > 0 && trade.Timestamp != currentTs {
			flush()
		}
		currentTs = trade.Timestamp
		group = append(group, trade)
	}
	flush()

	return result
}

func (c *TradeClassifier) classifyGroup(group []domain.Trade) domain.ClassifiedTrade {
	if len(group) == 1 {
		return c.Classify(group[0])
	}

	totalSize := 0.0
	totalValue := 0.0
	for _, trade := range group {
		totalSize += trade.Size
		totalValue += trade.Price * trade.Size
	}

	vwap := group[0].Price
	if totalSize > 0 {
		vwap = totalValue / totalSize
	}

	aggregated := domain.Trade{
		Symbol:    group[0].Symbol,
		Timestamp: group[0].Timestamp,
		Price:     vwap,
		Size:      totalSize,
	}
	return c.Classify(aggregated)
}

// Stats returns the classifier's accumulated classification statistics.
func (c *TradeClassifier) Stats() domain.ClassificationStats {
	return c.stats
}

// ResetStats zeroes the classification statistics without touching quote
// history or tick-rule state.
func (c *TradeClassifier) ResetStats() {
	c.stats.Reset()
}

// Clear resets all classifier state: quotes, statistics, and tick-rule
// history.
func (c *TradeClassifier) Clear() {
	c.quotes = nil
	c.haveLastPrice = false
	c.lastTradeSide = domain.SideUnknown
	c.stats.Reset()
}
