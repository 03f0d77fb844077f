package replay

import "github.com/Sokalledcoder/Auction-trader/internal/domain"

// Position is an open (possibly partially closed) position held by the
// simulator.
type Position struct {
	Symbol       string
	EntryTimeMs  domain.TimestampMs
	Side         domain.PositionSide
	EntryPrice   float64
	Size         float64
	OriginalSize float64
	StopPrice    float64
	TP1Price     float64
	HasTP1       bool
	TP2Price     float64
	HasTP2       bool
	TP1Hit       bool
	FeesPaid     float64
	FundingPaid  float64
	StrategyTag  string
}

// UnrealizedPnL returns the mark-to-market P&L of the position at the
// given price, net of fees and funding paid so far.
func (p *Position) UnrealizedPnL(currentPrice float64) float64 {
	var priceDiff float64
	if p.Side == domain.Long {
		priceDiff = currentPrice - p.EntryPrice
	} else {
		priceDiff = p.EntryPrice - currentPrice
	}
	return priceDiff*p.Size - p.FeesPaid - p.FundingPaid
}

// IsStopped reports whether the bar's low/high range touches the stop.
func (p *Position) IsStopped(low, high float64) bool {
	if p.Side == domain.Long {
		return low <= p.StopPrice
	}
	return high >= p.StopPrice
}

// IsTP1Triggered reports whether TP1 has been touched and not yet hit.
func (p *Position) IsTP1Triggered(low, high float64) bool {
	if p.TP1Hit || !p.HasTP1 {
		return false
	}
	if p.Side == domain.Long {
		return high >= p.TP1Price
	}
	return low <= p.TP1Price
}

// IsTP2Triggered reports whether TP2 has been touched.
func (p *Position) IsTP2Triggered(low, high float64) bool {
	if !p.HasTP2 {
		return false
	}
	if p.Side == domain.Long {
		return high >= p.TP2Price
	}
	return low <= p.TP2Price
}

// PositionTracker owns the single open position (if any), realizes P&L
// on close, and accumulates the closed-trade ledger and running totals.
type PositionTracker struct {
	position     *Position
	Trades       []domain.ClosedTrade
	TotalPnL     float64
	TotalFees    float64
	TotalFunding float64
	Wins         int
	Losses       int
}

// NewPositionTracker creates an empty tracker.
func NewPositionTracker() *PositionTracker {
	return &PositionTracker{}
}

// HasPosition reports whether a position is currently open.
func (t *PositionTracker) HasPosition() bool {
	return t.position != nil
}

// IsLong reports whether the open position (if any) is long.
func (t *PositionTracker) IsLong() bool {
	return t.position != nil && t.position.Side == domain.Long
}

// IsShort reports whether the open position (if any) is short.
func (t *PositionTracker) IsShort() bool {
	return t.position != nil && t.position.Side == domain.Short
}

// Position returns the currently open position, or nil if flat.
func (t *PositionTracker) Position() *Position {
	return t.position
}

// OpenPosition opens a new position from a fill, with the given
// protective stop, optional take-profit levels, and the tag of the
// strategy that requested the entry.
func (t *PositionTracker) OpenPosition(symbol string, fill domain.Fill, stopPrice float64, tp1, tp2 *float64, strategyTag string) {
	pos := &Position{
		Symbol:       symbol,
		EntryTimeMs:  fill.Timestamp,
		Side:         fill.Side,
		EntryPrice:   fill.Price,
		Size:         fill.Size,
		OriginalSize: fill.Size,
		StopPrice:    stopPrice,
		FeesPaid:     fill.Fee,
		StrategyTag:  strategyTag,
	}
	if tp1 != nil {
		pos.TP1Price = *tp1
		pos.HasTP1 = true
	}
	if tp2 != nil {
		pos.TP2Price = *tp2
		pos.HasTP2 = true
	}
	t.position = pos
}

// ClosePosition realizes P&L on all or part of the open position,
// pro-rating the entry fees and funding accrued so far by the fraction
// of size being closed. Returns ok=false if there was no open position.
func (t *PositionTracker) ClosePosition(tsMs domain.TimestampMs, exitPrice, size, exitFee float64, reason domain.ExitReason) (domain.ClosedTrade, bool) {
	pos := t.position
	if pos == nil {
		return domain.ClosedTrade{}, false
	}

	var priceDiff float64
	if pos.Side == domain.Long {
		priceDiff = exitPrice - pos.EntryPrice
	} else {
		priceDiff = pos.EntryPrice - exitPrice
	}

	fraction := size / pos.OriginalSize
	feePortion := pos.FeesPaid * fraction
	fundingPortion := pos.FundingPaid * fraction
	pnl := priceDiff*size - feePortion - fundingPortion - exitFee

	trade := domain.ClosedTrade{
		Symbol:      pos.Symbol,
		Side:        pos.Side,
		EntryTimeMs: pos.EntryTimeMs,
		EntryPrice:  pos.EntryPrice,
		ExitTimeMs:  tsMs,
		ExitPrice:   exitPrice,
		Quantity:    size,
		RealizedPnL: pnl,
		FeesPaid:    feePortion + exitFee,
		FundingPaid: fundingPortion,
		ExitReason:  reason,
		StrategyTag: pos.StrategyTag,
	}

	t.TotalPnL += pnl
	t.TotalFees += feePortion + exitFee
	t.TotalFunding += fundingPortion

	if pnl > 0 {
		t.Wins++
	} else {
		t.Losses++
	}

	t.Trades = append(t.Trades, trade)

	pos.Size -= size
	if pos.Size <= domain.Epsilon {
		t.position = nil
	}

	return trade, true
}

// MoveStopToBreakeven promotes the open position's stop to its entry
// price and marks TP1 as hit, preventing a second partial exit there.
func (t *PositionTracker) MoveStopToBreakeven() {
	if t.position != nil {
		t.position.StopPrice = t.position.EntryPrice
		t.position.TP1Hit = true
	}
}

// AddFunding accrues a funding payment against the open position (if
// any) and the running total.
func (t *PositionTracker) AddFunding(funding float64) {
	if t.position != nil {
		t.position.FundingPaid += funding
	}
	t.TotalFunding += funding
}

// Equity returns starting capital plus realized P&L.
func (t *PositionTracker) Equity(startingCapital float64) float64 {
	return startingCapital + t.TotalPnL
}

// WinRate returns the fraction of closed trades with positive P&L.
func (t *PositionTracker) WinRate() float64 {
	total := t.Wins + t.Losses
	if total > 0 {
		return float64(t.Wins) / float64(total)
	}
	return 0.0
}
