package replay

import (
	"math"
	"testing"

	"github.com/Sokalledcoder/Auction-trader/internal/domain"
)

func defaultFillModel() *FillModel {
	cfg := domain.DefaultConfig()
	return NewFillModel(cfg.Execution, cfg.Instrument.TickSize)
}

func bboQuote(bid, ask float64) domain.Quote {
	return domain.Quote{BidPrice: bid, AskPrice: ask, BidSize: 1, AskSize: 1}
}

func TestFillModelMarketBuy(t *testing.T) {
	m := defaultFillModel()
	quote := bboQuote(50000.0, 50001.0)

	fill := m.MarketBuy(1000, quote, 0.1)

	if math.Abs(fill.Price-50001.1) > 1e-9 {
		t.Fatalf("expected price 50001.1, got %v", fill.Price)
	}
	if math.Abs(fill.Slippage-0.1) > 1e-9 {
		t.Fatalf("expected slippage 0.1, got %v", fill.Slippage)
	}
	if math.Abs(fill.Fee-2.500055) > 1e-6 {
		t.Fatalf("expected fee 2.500055, got %v", fill.Fee)
	}
	if fill.Side != domain.Long {
		t.Fatalf("expected side long, got %v", fill.Side)
	}
}

func TestFillModelMarketSell(t *testing.T) {
	m := defaultFillModel()
	quote := bboQuote(50000.0, 50001.0)

	fill := m.MarketSell(1000, quote, 0.1)

	if math.Abs(fill.Price-49999.9) > 1e-9 {
		t.Fatalf("expected price 49999.9, got %v", fill.Price)
	}
	if fill.Side != domain.Short {
		t.Fatalf("expected side short, got %v", fill.Side)
	}
}

func TestFillModelLimitBuyFilled(t *testing.T) {
	m := defaultFillModel()
	quote := bboQuote(50000.0, 50001.0)

	fill, ok := m.LimitBuy(1000, 50002.0, quote, 0.1)
	if !ok {
		t.Fatal("expected limit buy to fill")
	}
	if math.Abs(fill.Price-50001.0) > 1e-9 {
		t.Fatalf("expected fill price 50001.0, got %v", fill.Price)
	}
	if fill.Slippage != 0 {
		t.Fatalf("expected zero slippage on limit fill, got %v", fill.Slippage)
	}
}

func TestFillModelLimitBuyNotFilled(t *testing.T) {
	m := defaultFillModel()
	quote := bboQuote(50000.0, 50001.0)

	_, ok := m.LimitBuy(1000, 50000.0, quote, 0.1)
	if ok {
		t.Fatal("expected limit buy below ask to not fill")
	}
}

func TestFillModelLimitSellFilled(t *testing.T) {
	m := defaultFillModel()
	quote := bboQuote(50000.0, 50001.0)

	fill, ok := m.LimitSell(1000, 49999.0, quote, 0.1)
	if !ok {
		t.Fatal("expected limit sell to fill")
	}
	if math.Abs(fill.Price-50000.0) > 1e-9 {
		t.Fatalf("expected fill price 50000.0, got %v", fill.Price)
	}
}

func TestFillModelLimitSellNotFilled(t *testing.T) {
	m := defaultFillModel()
	quote := bboQuote(50000.0, 50001.0)

	_, ok := m.LimitSell(1000, 50002.0, quote, 0.1)
	if ok {
		t.Fatal("expected limit sell above bid to not fill")
	}
}

func TestFillModelMakerRebate(t *testing.T) {
	m := defaultFillModel()

	fee := m.CalculateFee(10000.0, true)
	if math.Abs(fee-(-1.0)) > 1e-9 {
		t.Fatalf("expected maker fee -1.0, got %v", fee)
	}

	takerFee := m.CalculateFee(10000.0, false)
	if math.Abs(takerFee-5.0) > 1e-9 {
		t.Fatalf("expected taker fee 5.0, got %v", takerFee)
	}
}
