package microstructure

import (
	"math"
	"testing"

	"github.com/Sokalledcoder/Auction-trader/internal/domain"
)

func makeClassifiedAt(tsMs int64, price, size float64) domain.ClassifiedTrade {
	return domain.ClassifiedTrade{
		Trade: domain.Trade{Timestamp: domain.TimestampMs(tsMs), Price: price, Size: size},
		Side:  domain.SideBuy,
	}
}

func TestBarBuilderSingleTrade(t *testing.T) {
	b := NewBarBuilder()
	b.AddQuote(makeQuote(60000+59999, 50000.0, 50001.0))
	b.AddTrade(makeClassifiedAt(60000+30000, 50000.5, 0.1))

	bars := b.FinalizeBefore(120000 + 1000)

	if len(bars) != 1 {
		t.Fatalf("expected 1 bar, got %d", len(bars))
	}
	bar := bars[0]
	if int64(bar.OpenTimeMs) != 60000 {
		t.Fatalf("expected ts_min 60000, got %d", bar.OpenTimeMs)
	}
	if math.Abs(bar.Open-50000.5) > 1e-10 || math.Abs(bar.Close-50000.5) > 1e-10 {
		t.Fatalf("unexpected open/close: %+v", bar)
	}
	if math.Abs(bar.Volume-0.1) > 1e-10 {
		t.Fatalf("expected volume 0.1, got %v", bar.Volume)
	}
	if bar.TradeCount != 1 {
		t.Fatalf("expected trade count 1, got %d", bar.TradeCount)
	}
	if math.Abs(bar.BidPriceClose-50000.0) > 1e-10 {
		t.Fatalf("expected close bid 50000.0, got %v", bar.BidPriceClose)
	}
}

func TestBarBuilderMultipleTradesSameMinute(t *testing.T) {
	b := NewBarBuilder()
	b.AddQuote(makeQuote(60000+59999, 50000.0, 50002.0))

	b.AddTrade(makeClassifiedAt(60000+10000, 50000.0, 0.1))
	b.AddTrade(makeClassifiedAt(60000+20000, 50005.0, 0.2))
	b.AddTrade(makeClassifiedAt(60000+30000, 49995.0, 0.1))
	b.AddTrade(makeClassifiedAt(60000+50000, 50001.0, 0.1))

	bars := b.FinalizeBefore(120000 + 1000)
	if len(bars) != 1 {
		t.Fatalf("expected 1 bar, got %d", len(bars))
	}
	bar := bars[0]
	if math.Abs(bar.Open-50000.0) > 1e-10 {
		t.Fatalf("expected open 50000.0, got %v", bar.Open)
	}
	if math.Abs(bar.High-50005.0) > 1e-10 {
		t.Fatalf("expected high 50005.0, got %v", bar.High)
	}
	if math.Abs(bar.Low-49995.0) > 1e-10 {
		t.Fatalf("expected low 49995.0, got %v", bar.Low)
	}
	if math.Abs(bar.Close-50001.0) > 1e-10 {
		t.Fatalf("expected close 50001.0, got %v", bar.Close)
	}
	if math.Abs(bar.Volume-0.5) > 1e-10 {
		t.Fatalf("expected volume 0.5, got %v", bar.Volume)
	}
	if bar.TradeCount != 4 {
		t.Fatalf("expected trade count 4, got %d", bar.TradeCount)
	}
}

func TestBarBuilderVWAP(t *testing.T) {
	b := NewBarBuilder()
	b.AddQuote(makeQuote(60000+59999, 50000.0, 50002.0))

	b.AddTrade(makeClassifiedAt(60000+10000, 50000.0, 100.0))
	b.AddTrade(makeClassifiedAt(60000+20000, 50010.0, 200.0))

	bars := b.FinalizeBefore(120000 + 1000)
	if len(bars) != 1 {
		t.Fatalf("expected 1 bar, got %d", len(bars))
	}
	expected := (100.0*50000.0 + 200.0*50010.0) / 300.0
	if math.Abs(bars[0].VWAP-expected) > 1e-6 {
		t.Fatalf("expected vwap %v, got %v", expected, bars[0].VWAP)
	}
}

func TestBarBuilderMultipleMinutes(t *testing.T) {
	b := NewBarBuilder()
	b.AddQuote(makeQuote(60000+59999, 50000.0, 50001.0))
	b.AddQuote(makeQuote(120000+59999, 50010.0, 50011.0))

	b.AddTrade(makeClassifiedAt(60000+30000, 50000.5, 0.1))
	b.AddTrade(makeClassifiedAt(120000+30000, 50010.5, 0.2))

	bars := b.FinalizeBefore(180000 + 1000)
	if len(bars) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(bars))
	}
	if int64(bars[0].OpenTimeMs) != 60000 || int64(bars[1].OpenTimeMs) != 120000 {
		t.Fatalf("bars out of order: %+v", bars)
	}
}

func TestBarBuilderIncompleteBarNotFinalized(t *testing.T) {
	b := NewBarBuilder()
	b.AddTrade(makeClassifiedAt(60000+30000, 50000.5, 0.1))

	bars := b.FinalizeBefore(60000 + 45000)
	if len(bars) != 0 {
		t.Fatalf("expected 0 bars, got %d", len(bars))
	}
	if b.PendingBarCount() != 1 {
		t.Fatalf("expected 1 pending bar, got %d", b.PendingBarCount())
	}
}
