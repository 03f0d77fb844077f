package microstructure

import (
	"testing"

	"github.com/Sokalledcoder/Auction-trader/internal/domain"
)

func defaultTestConfig() *domain.Config {
	cfg := domain.DefaultConfig()
	cfg.Instrument.RollingWindowMinutes = 5
	cfg.ValueArea.MinVABins = 3
	return cfg
}

func makeEngineBar(tsMin int64, close float64) domain.Bar1m {
	return domain.Bar1m{
		OpenTimeMs:    domain.TimestampMs(tsMin),
		Open:          close,
		High:          close + 10.0,
		Low:           close - 10.0,
		Close:         close,
		Volume:        100.0,
		VWAP:          close,
		TradeCount:    10,
		BidPriceClose: close - 0.5,
		AskPriceClose: close + 0.5,
		BidSizeClose:  100.0,
		AskSizeClose:  100.0,
	}
}

func makeEngineTrade(tsMs int64, price, size float64, side domain.TradeSide) domain.ClassifiedTrade {
	return domain.ClassifiedTrade{
		Trade:         domain.Trade{Timestamp: domain.TimestampMs(tsMs), Price: price, Size: size},
		Side:          side,
		QuoteBidPrice: price - 0.5,
		QuoteAskPrice: price + 0.5,
	}
}

func TestFeatureEngineCreation(t *testing.T) {
	engine := NewFeatureEngine(defaultTestConfig())
	if engine.IsReady() {
		t.Fatal("expected engine to not be ready before warmup")
	}
}

func TestFeatureEngineWarmup(t *testing.T) {
	engine := NewFeatureEngine(defaultTestConfig())

	// Five bars fill the histogram window but only seed four log
	// returns, so the volatility window is still one short.
	for i := int64(0); i < 5; i++ {
		tsMin := (i + 1) * 60000
		for j := int64(0); j < 10; j++ {
			price := 50000.0 + float64(i*10+j)
			engine.AddTrade(makeEngineTrade(tsMin+j*1000, price, 1.0, domain.SideBuy))
		}
		engine.AddBar(makeEngineBar(tsMin, 50000.0+float64(i)*10.0))
	}
	if engine.IsReady() {
		t.Fatal("expected engine not ready with only 4 buffered returns")
	}

	tsMin := int64(6 * 60000)
	for j := int64(0); j < 10; j++ {
		engine.AddTrade(makeEngineTrade(tsMin+j*1000, 50050.0+float64(j), 1.0, domain.SideBuy))
	}
	engine.AddBar(makeEngineBar(tsMin, 50050.0))

	if !engine.IsReady() {
		t.Fatal("expected engine ready after 6 minutes of data with window 5")
	}
}

func TestFeatureEngineComputeFeatures(t *testing.T) {
	engine := NewFeatureEngine(defaultTestConfig())

	for i := int64(0); i < 5; i++ {
		tsMin := (i + 1) * 60000
		for j := int64(0); j < 10; j++ {
			price := 50000.0 + float64(j)
			engine.AddTrade(makeEngineTrade(tsMin+j*1000, price, 1.0, domain.SideBuy))
		}
		engine.AddBar(makeEngineBar(tsMin, 50000.0+float64(i)))
	}

	tsMin := int64(5 * 60000)
	bar := makeEngineBar(tsMin, 50004.0)
	features := engine.ComputeFeatures(tsMin, bar)

	if !features.VA.IsValid && engine.IsReady() {
		t.Fatal("expected a valid value area once the engine is ready")
	}
	if features.Sigma240 < 0 {
		t.Fatalf("expected non-negative sigma, got %v", features.Sigma240)
	}
}
