package replay

import (
	"math"

	"github.com/Sokalledcoder/Auction-trader/internal/domain"
)

// BacktestMetrics is the full set of performance statistics derived from
// a closed-trade sequence.
type BacktestMetrics struct {
	TotalTrades          int
	WinningTrades        int
	LosingTrades         int
	WinRate              float64
	GrossPnL             float64
	NetPnL               float64
	TotalFees            float64
	TotalFunding         float64
	AvgWin               float64
	AvgLoss              float64
	ProfitFactor         float64
	MaxDrawdown          float64
	MaxDrawdownPct       float64
	SharpeRatio          float64
	SortinoRatio         float64
	TotalReturnPct       float64
	AvgTradeDurationMin  float64
	LargestWin           float64
	LargestLoss          float64
	MaxConsecutiveWins   int
	MaxConsecutiveLosses int
}

// EquityPoint is one point on the trade-by-trade equity curve.
type EquityPoint struct {
	TimestampMs domain.TimestampMs
	Equity      float64
	Drawdown    float64
	DrawdownPct float64
}

// MetricsCalculator derives BacktestMetrics and an equity curve from a
// closed-trade sequence; it holds no state of its own beyond the
// starting capital used to normalize returns and drawdown percentages.
type MetricsCalculator struct {
	initialCapital float64
}

// NewMetricsCalculator creates a calculator anchored to the given
// starting capital.
func NewMetricsCalculator(initialCapital float64) *MetricsCalculator {
	return &MetricsCalculator{initialCapital: initialCapital}
}

// Calculate computes the full metrics set for a closed-trade sequence.
func (c *MetricsCalculator) Calculate(trades []domain.ClosedTrade) BacktestMetrics {
	var m BacktestMetrics
	if len(trades) == 0 {
		return m
	}

	m.TotalTrades = len(trades)

	var grossWins, grossLosses float64
	var totalWinPnL, totalLossPnL float64
	var totalDuration int64
	var currentWins, currentLosses int

	for _, trade := range trades {
		m.NetPnL += trade.RealizedPnL
		m.TotalFees += trade.FeesPaid
		m.TotalFunding += trade.FundingPaid

		gross := trade.RealizedPnL + trade.FeesPaid + trade.FundingPaid
		m.GrossPnL += gross

		totalDuration += int64(trade.ExitTimeMs - trade.EntryTimeMs)

		if trade.RealizedPnL > 0 {
			m.WinningTrades++
			totalWinPnL += trade.RealizedPnL
			grossWins += gross
			if trade.RealizedPnL > m.LargestWin {
				m.LargestWin = trade.RealizedPnL
			}

			currentWins++
			currentLosses = 0
			if currentWins > m.MaxConsecutiveWins {
				m.MaxConsecutiveWins = currentWins
			}
		} else {
			m.LosingTrades++
			totalLossPnL += trade.RealizedPnL
			grossLosses += math.Abs(gross)
			if trade.RealizedPnL < m.LargestLoss {
				m.LargestLoss = trade.RealizedPnL
			}

			currentLosses++
			currentWins = 0
			if currentLosses > m.MaxConsecutiveLosses {
				m.MaxConsecutiveLosses = currentLosses
			}
		}
	}

	m.WinRate = float64(m.WinningTrades) / float64(m.TotalTrades)

	if m.WinningTrades > 0 {
		m.AvgWin = totalWinPnL / float64(m.WinningTrades)
	}
	if m.LosingTrades > 0 {
		m.AvgLoss = totalLossPnL / float64(m.LosingTrades)
	}

	switch {
	case grossLosses > 0:
		m.ProfitFactor = grossWins / grossLosses
	case grossWins > 0:
		m.ProfitFactor = math.Inf(1)
	default:
		m.ProfitFactor = 0
	}

	m.AvgTradeDurationMin = (float64(totalDuration) / float64(m.TotalTrades)) / 60000.0
	m.TotalReturnPct = (m.NetPnL / c.initialCapital) * 100.0

	curve := c.BuildEquityCurve(trades)
	for _, point := range curve {
		if point.Drawdown > m.MaxDrawdown {
			m.MaxDrawdown = point.Drawdown
			m.MaxDrawdownPct = point.DrawdownPct
		}
	}

	returns := make([]float64, len(trades))
	for i, trade := range trades {
		returns[i] = trade.RealizedPnL / c.initialCapital
	}
	m.SharpeRatio = calculateSharpe(returns)
	m.SortinoRatio = calculateSortino(returns)

	return m
}

// BuildEquityCurve replays trades in order, producing a point per trade
// (plus the starting point) with the running drawdown from the
// high-water mark.
func (c *MetricsCalculator) BuildEquityCurve(trades []domain.ClosedTrade) []EquityPoint {
	curve := make([]EquityPoint, 0, len(trades)+1)
	curve = append(curve, EquityPoint{Equity: c.initialCapital})

	equity := c.initialCapital
	peak := c.initialCapital

	for _, trade := range trades {
		equity += trade.RealizedPnL
		if equity > peak {
			peak = equity
		}

		drawdown := peak - equity
		drawdownPct := 0.0
		if peak > 0 {
			drawdownPct = (drawdown / peak) * 100.0
		}

		curve = append(curve, EquityPoint{
			TimestampMs: trade.ExitTimeMs,
			Equity:      equity,
			Drawdown:    drawdown,
			DrawdownPct: drawdownPct,
		})
	}

	return curve
}

// annualizationFactor scales a per-trade Sharpe/Sortino ratio to an
// annualized figure, treating each trade as roughly a one-minute bar
// and assuming 252 trading days of 24h crypto-style activity.
func annualizationFactor(n float64) float64 {
	if n < 1 {
		n = 1
	}
	return math.Sqrt(252.0 * 24.0 * 60.0 / n)
}

func calculateSharpe(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}

	n := float64(len(returns))
	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= n

	variance := 0.0
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= n
	stdDev := math.Sqrt(variance)

	if stdDev > 0 {
		return (mean / stdDev) * annualizationFactor(n)
	}
	return 0
}

func calculateSortino(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}

	n := float64(len(returns))
	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= n

	downsideVariance := 0.0
	for _, r := range returns {
		if r < 0 {
			downsideVariance += r * r
		}
	}
	downsideVariance /= n
	downsideDev := math.Sqrt(downsideVariance)

	switch {
	case downsideDev > 0:
		return (mean / downsideDev) * annualizationFactor(n)
	case mean > 0:
		return math.Inf(1)
	default:
		return 0
	}
}
