// Package replay implements the event-driven backtest simulator: fill
// modeling, position tracking with partial take-profits and funding, and
// the performance metrics computed over a finished run.
package replay

import "github.com/Sokalledcoder/Auction-trader/internal/domain"

// FillModel simulates order execution against a quote, applying
// configured slippage and fees.
type FillModel struct {
	slippageTicksEntry int
	slippageTicksExit  int
	tickSize           float64
	takerFeeBps        float64
	makerFeeBps        float64
}

// NewFillModel creates a fill model from the execution section of the
// pipeline configuration.
func NewFillModel(cfg domain.ExecutionConfig, tickSize float64) *FillModel {
	return &FillModel{
		slippageTicksEntry: cfg.SlippageTicksEntry,
		slippageTicksExit:  cfg.SlippageTicksExit,
		tickSize:           tickSize,
		takerFeeBps:        cfg.TakerFeeBps,
		makerFeeBps:        cfg.MakerFeeBps,
	}
}

// MarketBuy fills a market buy at the ask plus entry slippage.
func (m *FillModel) MarketBuy(tsMs int64, quote domain.Quote, size float64) domain.Fill {
	slippage := float64(m.slippageTicksEntry) * m.tickSize
	fillPrice := quote.AskPrice + slippage
	notional := fillPrice * size
	fee := notional * m.takerFeeBps / 10000.0

	return domain.Fill{
		Timestamp: domain.TimestampMs(tsMs),
		Price:     fillPrice,
		Size:      size,
		Side:      domain.Long,
		Fee:       fee,
		Slippage:  slippage,
	}
}

// MarketSell fills a market sell at the bid minus exit slippage.
func (m *FillModel) MarketSell(tsMs int64, quote domain.Quote, size float64) domain.Fill {
	slippage := float64(m.slippageTicksExit) * m.tickSize
	fillPrice := quote.BidPrice - slippage
	notional := fillPrice * size
	fee := notional * m.takerFeeBps / 10000.0

	return domain.Fill{
		Timestamp: domain.TimestampMs(tsMs),
		Price:     fillPrice,
		Size:      size,
		Side:      domain.Short,
		Fee:       fee,
		Slippage:  slippage,
	}
}

// LimitBuy fills a limit buy at min(limitPrice, ask) if the ask has
// traded through the limit, paying the maker rate. Returns ok=false if
// the limit was not hit.
func (m *FillModel) LimitBuy(tsMs int64, limitPrice float64, quote domain.Quote, size float64) (domain.Fill, bool) {
	if quote.AskPrice > limitPrice {
		return domain.Fill{}, false
	}

	fillPrice := limitPrice
	if quote.AskPrice < fillPrice {
		fillPrice = quote.AskPrice
	}
	notional := fillPrice * size
	fee := notional * m.makerFeeBps / 10000.0

	return domain.Fill{
		Timestamp: domain.TimestampMs(tsMs),
		Price:     fillPrice,
		Size:      size,
		Side:      domain.Long,
		Fee:       fee,
		Slippage:  0,
	}, true
}

// LimitSell fills a limit sell at max(limitPrice, bid) if the bid has
// traded through the limit, paying the maker rate. Returns ok=false if
// the limit was not hit.
func (m *FillModel) LimitSell(tsMs int64, limitPrice float64, quote domain.Quote, size float64) (domain.Fill, bool) {
	if quote.BidPrice < limitPrice {
		return domain.Fill{}, false
	}

	fillPrice := limitPrice
	if quote.BidPrice > fillPrice {
		fillPrice = quote.BidPrice
	}
	notional := fillPrice * size
	fee := notional * m.makerFeeBps / 10000.0

	return domain.Fill{
		Timestamp: domain.TimestampMs(tsMs),
		Price:     fillPrice,
		Size:      size,
		Side:      domain.Short,
		Fee:       fee,
		Slippage:  0,
	}, true
}

// CalculateFee computes the fee for a given notional, using the maker
// rate (which may be negative, i.e. a rebate) or the taker rate.
func (m *FillModel) CalculateFee(notional float64, isMaker bool) float64 {
	bps := m.takerFeeBps
	if isMaker {
		bps = m.makerFeeBps
	}
	return notional * bps / 10000.0
}
