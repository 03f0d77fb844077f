package replay

import "github.com/Sokalledcoder/Auction-trader/internal/domain"

// BacktestSimulator is the event-driven state machine that turns a
// Signal + Quote stream and a Bar stream into a ClosedTrade ledger. It
// owns at most one open position at a time.
type BacktestSimulator struct {
	symbol              string
	initialCapital      float64
	tp1Pct              float64
	moveStopToBreakeven bool
	fundingRate8hBps    float64
	fundingIntervalMs   int64

	fillModel       *FillModel
	positionTracker *PositionTracker
	metricsCalc     *MetricsCalculator

	lastFundingTs   domain.TimestampMs
	haveLastFunding bool
}

// NewBacktestSimulator builds a simulator for the given symbol from the
// pipeline configuration.
func NewBacktestSimulator(symbol string, cfg *domain.Config) *BacktestSimulator {
	return &BacktestSimulator{
		symbol:              symbol,
		initialCapital:      cfg.Backtest.InitialCapital,
		tp1Pct:              cfg.Backtest.TP1Pct,
		moveStopToBreakeven: cfg.Backtest.MoveStopToBreakeven,
		fundingRate8hBps:    cfg.Backtest.FundingRate8hBps,
		fundingIntervalMs:   cfg.Backtest.FundingIntervalMs,
		fillModel:           NewFillModel(cfg.Execution, cfg.Instrument.TickSize),
		positionTracker:     NewPositionTracker(),
		metricsCalc:         NewMetricsCalculator(cfg.Backtest.InitialCapital),
	}
}

// ProcessSignal applies a signal against the given quote: entering,
// flipping, or exiting the open position.
func (s *BacktestSimulator) ProcessSignal(signal domain.Signal, quote domain.Quote) {
	switch signal.Action {
	case domain.ActionEnterLong:
		switch {
		case !s.positionTracker.HasPosition():
			s.enterLong(signal, quote)
		case s.positionTracker.IsShort():
			s.closePosition(quote.Timestamp, quote, domain.ExitSignalFlip)
			s.enterLong(signal, quote)
		}
	case domain.ActionEnterShort:
		switch {
		case !s.positionTracker.HasPosition():
			s.enterShort(signal, quote)
		case s.positionTracker.IsLong():
			s.closePosition(quote.Timestamp, quote, domain.ExitSignalFlip)
			s.enterShort(signal, quote)
		}
	case domain.ActionExit:
		if s.positionTracker.HasPosition() {
			s.closePosition(quote.Timestamp, quote, domain.ExitManual)
		}
	case domain.ActionHold:
	}
}

func signalSize(signal domain.Signal) float64 {
	if signal.Size != nil {
		return *signal.Size
	}
	return 0.1
}

func (s *BacktestSimulator) enterLong(signal domain.Signal, quote domain.Quote) {
	size := signalSize(signal)
	fill := s.fillModel.MarketBuy(int64(quote.Timestamp), quote, size)

	stop := 0.0
	if signal.StopPrice != nil {
		stop = *signal.StopPrice
	}
	s.positionTracker.OpenPosition(s.symbol, fill, stop, signal.TP1Price, signal.TP2Price, signal.StrategyTag)
}

func (s *BacktestSimulator) enterShort(signal domain.Signal, quote domain.Quote) {
	size := signalSize(signal)
	fill := s.fillModel.MarketSell(int64(quote.Timestamp), quote, size)

	stop := maxFloat64
	if signal.StopPrice != nil {
		stop = *signal.StopPrice
	}
	s.positionTracker.OpenPosition(s.symbol, fill, stop, signal.TP1Price, signal.TP2Price, signal.StrategyTag)
}

// maxFloat64 stands in for "no stop configured" on a short entry, the
// same sentinel the fill model's counterpart position.rs uses.
const maxFloat64 = 1.7976931348623157e+308

func (s *BacktestSimulator) closePosition(tsMs domain.TimestampMs, quote domain.Quote, reason domain.ExitReason) {
	pos := s.positionTracker.Position()
	if pos == nil {
		return
	}

	size := pos.Size
	exitSlippage := float64(s.fillModel.slippageTicksExit) * s.fillModel.tickSize
	var exitPrice float64
	if pos.Side == domain.Long {
		exitPrice = quote.BidPrice - exitSlippage
	} else {
		exitPrice = quote.AskPrice + exitSlippage
	}

	fee := s.fillModel.CalculateFee(exitPrice*size, false)
	s.positionTracker.ClosePosition(tsMs, exitPrice, size, fee, reason)
}

// CheckStopsTargets runs the per-bar intrabar exit check: stop, then
// TP1 (partial), then TP2 (full), in that worst-case order.
func (s *BacktestSimulator) CheckStopsTargets(bar domain.Bar1m, quote domain.Quote) {
	pos := s.positionTracker.Position()
	if pos == nil {
		return
	}

	closeTs := bar.OpenTimeMs + 59999

	if pos.IsStopped(bar.Low, bar.High) {
		exitPrice := pos.StopPrice
		size := pos.Size
		fee := s.fillModel.CalculateFee(exitPrice*size, false)
		s.positionTracker.ClosePosition(closeTs, exitPrice, size, fee, domain.ExitStop)
		return
	}

	if pos.IsTP1Triggered(bar.Low, bar.High) {
		partialSize := pos.Size * s.tp1Pct
		fee := s.fillModel.CalculateFee(pos.TP1Price*partialSize, false)
		s.positionTracker.ClosePosition(closeTs, pos.TP1Price, partialSize, fee, domain.ExitTP1)

		if s.moveStopToBreakeven {
			s.positionTracker.MoveStopToBreakeven()
		}
	}

	if pos = s.positionTracker.Position(); pos != nil {
		if pos.IsTP2Triggered(bar.Low, bar.High) {
			size := pos.Size
			fee := s.fillModel.CalculateFee(pos.TP2Price*size, false)
			s.positionTracker.ClosePosition(closeTs, pos.TP2Price, size, fee, domain.ExitTP2)
		}
	}
}

// ProcessFunding accrues a funding payment against the open position if
// at least one funding interval has elapsed since the last accrual.
func (s *BacktestSimulator) ProcessFunding(tsMs domain.TimestampMs, markPrice float64) {
	shouldApply := !s.haveLastFunding || int64(tsMs-s.lastFundingTs) >= s.fundingIntervalMs

	if shouldApply && s.positionTracker.HasPosition() {
		pos := s.positionTracker.Position()
		notional := markPrice * pos.Size
		funding := notional * s.fundingRate8hBps / 10000.0

		fundingCost := funding
		if pos.Side == domain.Short {
			fundingCost = -funding
		}

		s.positionTracker.AddFunding(fundingCost)
		s.lastFundingTs = tsMs
		s.haveLastFunding = true
	}
}

// Position returns the currently open position, or nil if flat.
func (s *BacktestSimulator) Position() *Position {
	return s.positionTracker.Position()
}

// Trades returns every closed trade so far.
func (s *BacktestSimulator) Trades() []domain.ClosedTrade {
	return s.positionTracker.Trades
}

// Equity returns the simulator's current mark (starting capital plus
// realized P&L; open positions are not marked to market here).
func (s *BacktestSimulator) Equity() float64 {
	return s.positionTracker.Equity(s.initialCapital)
}

// CalculateMetrics derives the final BacktestMetrics from the trades
// realized so far.
func (s *BacktestSimulator) CalculateMetrics() BacktestMetrics {
	return s.metricsCalc.Calculate(s.positionTracker.Trades)
}

// Reset clears all simulator state back to a flat, zero-trade start.
func (s *BacktestSimulator) Reset() {
	s.positionTracker = NewPositionTracker()
	s.haveLastFunding = false
}
