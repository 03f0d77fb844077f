package replay

import (
	"math"
	"testing"

	"github.com/Sokalledcoder/Auction-trader/internal/domain"
)

func makeClosedTrade(pnl, fees float64, durationMs int64) domain.ClosedTrade {
	return domain.ClosedTrade{
		Side:        domain.Long,
		EntryTimeMs: 0,
		EntryPrice:  50000.0,
		ExitTimeMs:  domain.TimestampMs(durationMs),
		ExitPrice:   50000.0 + pnl*10.0,
		Quantity:    0.1,
		RealizedPnL: pnl,
		FeesPaid:    fees,
		ExitReason:  domain.ExitTP1,
	}
}

func TestMetricsCalculatorBasic(t *testing.T) {
	calc := NewMetricsCalculator(10000.0)

	trades := []domain.ClosedTrade{
		makeClosedTrade(100.0, 5.0, 60000),
		makeClosedTrade(-50.0, 5.0, 120000),
		makeClosedTrade(75.0, 5.0, 90000),
	}

	m := calc.Calculate(trades)

	if m.TotalTrades != 3 {
		t.Fatalf("expected 3 trades, got %d", m.TotalTrades)
	}
	if m.WinningTrades != 2 || m.LosingTrades != 1 {
		t.Fatalf("expected 2 wins / 1 loss, got %d/%d", m.WinningTrades, m.LosingTrades)
	}
	if math.Abs(m.WinRate-0.6667) > 0.01 {
		t.Fatalf("expected win rate ~0.6667, got %v", m.WinRate)
	}
	if math.Abs(m.NetPnL-125.0) > 1e-10 {
		t.Fatalf("expected net pnl 125.0, got %v", m.NetPnL)
	}
}

func TestMetricsCalculatorEmptyTrades(t *testing.T) {
	calc := NewMetricsCalculator(10000.0)
	m := calc.Calculate(nil)

	if m.TotalTrades != 0 {
		t.Fatalf("expected 0 trades, got %d", m.TotalTrades)
	}
	if m.NetPnL != 0 {
		t.Fatalf("expected net pnl 0, got %v", m.NetPnL)
	}
}

func TestMetricsCalculatorEquityCurve(t *testing.T) {
	calc := NewMetricsCalculator(10000.0)

	trades := []domain.ClosedTrade{
		makeClosedTrade(100.0, 0, 60000),
		makeClosedTrade(-150.0, 0, 120000),
		makeClosedTrade(200.0, 0, 180000),
	}

	curve := calc.BuildEquityCurve(trades)

	if len(curve) != 4 {
		t.Fatalf("expected 4 points (initial + 3 trades), got %d", len(curve))
	}
	if math.Abs(curve[0].Equity-10000.0) > 1e-10 {
		t.Fatalf("expected starting equity 10000.0, got %v", curve[0].Equity)
	}
	if math.Abs(curve[1].Equity-10100.0) > 1e-10 {
		t.Fatalf("expected equity after trade 1 to be 10100.0, got %v", curve[1].Equity)
	}
	if math.Abs(curve[2].Equity-9950.0) > 1e-10 {
		t.Fatalf("expected equity after trade 2 to be 9950.0, got %v", curve[2].Equity)
	}
	if curve[2].Drawdown <= 0 {
		t.Fatalf("expected positive drawdown after the losing trade, got %v", curve[2].Drawdown)
	}
}

func TestMetricsCalculatorConsecutiveWinsLosses(t *testing.T) {
	calc := NewMetricsCalculator(10000.0)

	trades := []domain.ClosedTrade{
		makeClosedTrade(10.0, 0, 1000),
		makeClosedTrade(10.0, 0, 2000),
		makeClosedTrade(10.0, 0, 3000),
		makeClosedTrade(-5.0, 0, 4000),
		makeClosedTrade(-5.0, 0, 5000),
	}

	m := calc.Calculate(trades)

	if m.MaxConsecutiveWins != 3 {
		t.Fatalf("expected 3 max consecutive wins, got %d", m.MaxConsecutiveWins)
	}
	if m.MaxConsecutiveLosses != 2 {
		t.Fatalf("expected 2 max consecutive losses, got %d", m.MaxConsecutiveLosses)
	}
}

func TestMetricsCalculatorProfitFactorNoLosses(t *testing.T) {
	calc := NewMetricsCalculator(10000.0)

	trades := []domain.ClosedTrade{
		makeClosedTrade(10.0, 0, 1000),
		makeClosedTrade(20.0, 0, 2000),
	}

	m := calc.Calculate(trades)

	if !math.IsInf(m.ProfitFactor, 1) {
		t.Fatalf("expected infinite profit factor with no losses, got %v", m.ProfitFactor)
	}
}
