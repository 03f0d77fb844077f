package replay

import (
	"math"
	"testing"

	"github.com/Sokalledcoder/Auction-trader/internal/domain"
)

func makePositionFill(price, size float64, side domain.PositionSide) domain.Fill {
	return domain.Fill{
		Timestamp: 1000,
		Price:     price,
		Size:      size,
		Side:      side,
		Fee:       1.0,
		Slippage:  0.1,
	}
}

func f(v float64) *float64 { return &v }

func TestPositionTrackerOpenCloseLong(t *testing.T) {
	tracker := NewPositionTracker()

	tracker.OpenPosition("BTC-USD", makePositionFill(50000.0, 0.1, domain.Long), 49500.0, f(50500.0), f(51000.0), "va_revert")

	if !tracker.HasPosition() || !tracker.IsLong() {
		t.Fatal("expected an open long position")
	}

	trade, ok := tracker.ClosePosition(2000, 50500.0, 0.1, 1.0, domain.ExitTP1)
	if !ok {
		t.Fatal("expected a closed trade")
	}
	if trade.StrategyTag != "va_revert" {
		t.Fatalf("expected strategy tag carried onto the closed trade, got %q", trade.StrategyTag)
	}
	if math.Abs(trade.RealizedPnL-48.0) > 1.0 {
		t.Fatalf("expected pnl near 48.0, got %v", trade.RealizedPnL)
	}
	if tracker.Wins != 1 {
		t.Fatalf("expected 1 win, got %d", tracker.Wins)
	}
	if tracker.HasPosition() {
		t.Fatal("expected position fully closed")
	}
}

func TestPositionTrackerPartialExit(t *testing.T) {
	tracker := NewPositionTracker()

	tracker.OpenPosition("BTC-USD", makePositionFill(50000.0, 1.0, domain.Long), 49500.0, f(50500.0), f(51000.0), "va_revert")

	tracker.ClosePosition(2000, 50500.0, 0.3, 1.0, domain.ExitTP1)

	if !tracker.HasPosition() {
		t.Fatal("expected position still open after partial exit")
	}
	if math.Abs(tracker.Position().Size-0.7) > 1e-10 {
		t.Fatalf("expected remaining size 0.7, got %v", tracker.Position().Size)
	}

	tracker.ClosePosition(3000, 51000.0, 0.7, 1.0, domain.ExitTP2)

	if tracker.HasPosition() {
		t.Fatal("expected position fully closed after second exit")
	}
	if len(tracker.Trades) != 2 {
		t.Fatalf("expected 2 closed trades, got %d", len(tracker.Trades))
	}
}

func TestPositionIsStopped(t *testing.T) {
	pos := &Position{
		Side:         domain.Long,
		EntryPrice:   50000.0,
		Size:         0.1,
		OriginalSize: 0.1,
		StopPrice:    49500.0,
		TP1Price:     50500.0,
		HasTP1:       true,
		TP2Price:     51000.0,
		HasTP2:       true,
	}

	if !pos.IsStopped(49400.0, 50200.0) {
		t.Fatal("expected stop triggered when low touches stop")
	}
	if pos.IsStopped(49600.0, 50200.0) {
		t.Fatal("expected stop not triggered when low stays above stop")
	}
}

func TestPositionTrackerMoveStopToBreakeven(t *testing.T) {
	tracker := NewPositionTracker()
	tracker.OpenPosition("BTC-USD", makePositionFill(50000.0, 1.0, domain.Long), 49500.0, f(50500.0), nil, "va_revert")

	tracker.MoveStopToBreakeven()

	if tracker.Position().StopPrice != 50000.0 {
		t.Fatalf("expected stop moved to entry 50000.0, got %v", tracker.Position().StopPrice)
	}
	if !tracker.Position().TP1Hit {
		t.Fatal("expected TP1Hit set after breakeven promotion")
	}
}

func TestPositionTrackerFunding(t *testing.T) {
	tracker := NewPositionTracker()
	tracker.OpenPosition("BTC-USD", makePositionFill(50000.0, 1.0, domain.Long), 49500.0, nil, nil, "carry")

	tracker.AddFunding(2.5)

	if tracker.Position().FundingPaid != 2.5 {
		t.Fatalf("expected funding 2.5 on position, got %v", tracker.Position().FundingPaid)
	}
	if tracker.TotalFunding != 2.5 {
		t.Fatalf("expected total funding 2.5, got %v", tracker.TotalFunding)
	}
}
