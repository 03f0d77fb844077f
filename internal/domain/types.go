// Package domain holds the data model shared by the feature pipeline and
// the backtest simulator: trades, quotes, bars, value areas, order-flow
// metrics, positions, and closed trades.
package domain

import "fmt"

// TimestampMs is a Unix timestamp in milliseconds.
type TimestampMs int64

// TradeSide is the aggressor side of a trade.
type TradeSide int

const (
	SideUnknown TradeSide = iota
	SideBuy
	SideSell
)

func (s TradeSide) String() string {
	switch s {
	case SideBuy:
		return "buy"
	case SideSell:
		return "sell"
	default:
		return "unknown"
	}
}

// Trade is a single executed trade print.
type Trade struct {
	Symbol    string
	Timestamp TimestampMs
	Price     float64
	Size      float64
}

// Quote is a top-of-book bid/ask snapshot.
type Quote struct {
	Symbol    string
	Timestamp TimestampMs
	BidPrice  float64
	BidSize   float64
	AskPrice  float64
	AskSize   float64
}

// Mid returns the quote midpoint.
func (q Quote) Mid() float64 {
	return (q.BidPrice + q.AskPrice) / 2.0
}

// Imbalance returns the signed top-of-book size imbalance, positive when
// bid size exceeds ask size.
func (q Quote) Imbalance() float64 {
	total := q.BidSize + q.AskSize
	if total > 0 {
		return (q.BidSize - q.AskSize) / total
	}
	return 0.0
}

// ClassifiedTrade is a Trade annotated with its inferred aggressor side
// and the quote it was classified against.
type ClassifiedTrade struct {
	Trade
	Side             TradeSide
	QuoteBidPrice    float64
	QuoteAskPrice    float64
	QuoteStalenessMs int64
}

// Bar1m is a completed one-minute OHLCV bar, with an L1 quote snapshot
// taken at the bar's close.
type Bar1m struct {
	Symbol        string
	OpenTimeMs    TimestampMs
	Open          float64
	High          float64
	Low           float64
	Close         float64
	Volume        float64
	VWAP          float64
	TradeCount    int
	BidPriceClose float64
	AskPriceClose float64
	BidSizeClose  float64
	AskSizeClose  float64
}

// MidClose returns the midpoint of the bar's closing quote.
func (b Bar1m) MidClose() float64 {
	return (b.BidPriceClose + b.AskPriceClose) / 2.0
}

// SpreadClose returns the absolute spread of the bar's closing quote.
func (b Bar1m) SpreadClose() float64 {
	return b.AskPriceClose - b.BidPriceClose
}

// QimbClose returns the size imbalance of the bar's closing quote.
func (b Bar1m) QimbClose() float64 {
	total := b.BidSizeClose + b.AskSizeClose
	if total > 0 {
		return (b.BidSizeClose - b.AskSizeClose) / total
	}
	return 0.0
}

// ValueArea is the result of a Market Profile Value Area computation.
// IsValid is false when there was not enough volume to compute a
// meaningful profile; in that case every numeric field is zeroed and
// callers must treat the result as "no value area available".
type ValueArea struct {
	IsValid     bool
	POC         float64
	VAH         float64
	VAL         float64
	Coverage    float64
	BinCount    int
	BinWidth    float64
	VAVolume    float64
	TotalVolume float64
}

// OrderFlowMetrics summarizes aggressor-side volume for a minute (or a
// rolling window of minutes).
type OrderFlowMetrics struct {
	BuyVolume       float64
	SellVolume      float64
	AmbiguousVolume float64
	TotalVolume     float64
	OF1m            float64 // buy_volume - sell_volume
	OFNorm1m        float64 // OF1m / total_volume, 0 if total_volume == 0
	AmbiguousFrac   float64
}

// Features1m is the per-minute snapshot the pipeline emits and the
// simulator/consumers read.
type Features1m struct {
	Symbol       string
	TimestampMs  TimestampMs
	MidClose     float64
	Sigma240     float64
	BinWidth     float64
	VA           ValueArea
	OrderFlow    OrderFlowMetrics
	QimbClose    float64
	QimbEMA      float64
	SpreadAvg60m float64
	Ready        bool
}

// Action is the action a signal asks the simulator to take.
type Action int

const (
	ActionHold Action = iota
	ActionEnterLong
	ActionEnterShort
	ActionExit
)

func (a Action) String() string {
	switch a {
	case ActionEnterLong:
		return "enter_long"
	case ActionEnterShort:
		return "enter_short"
	case ActionExit:
		return "exit"
	default:
		return "hold"
	}
}

// Signal is an instruction the simulator consumes alongside a quote.
// StopPrice, TP1Price, TP2Price, and Size are optional (nil when the
// signal doesn't specify them, e.g. Exit/Hold, or when a default applies).
type Signal struct {
	TimestampMs  TimestampMs
	Action       Action
	StopPrice    *float64
	TP1Price     *float64
	TP2Price     *float64
	Size         *float64
	StrategyTag  string
}

// ExitReason records why a position was closed.
type ExitReason int

const (
	ExitNone ExitReason = iota
	ExitStop
	ExitTP1
	ExitTP2
	ExitSignalFlip
	ExitTimeLimit
	ExitManual
)

func (r ExitReason) String() string {
	switch r {
	case ExitStop:
		return "stop"
	case ExitTP1:
		return "tp1"
	case ExitTP2:
		return "tp2"
	case ExitSignalFlip:
		return "signal_flip"
	case ExitTimeLimit:
		return "time_limit"
	case ExitManual:
		return "manual"
	default:
		return "none"
	}
}

// PositionSide is the directional state of an open position.
type PositionSide int

const (
	Flat PositionSide = iota
	Long
	Short
)

func (s PositionSide) String() string {
	switch s {
	case Long:
		return "long"
	case Short:
		return "short"
	default:
		return "flat"
	}
}

// Fill is a single simulated execution.
type Fill struct {
	Timestamp TimestampMs
	Price     float64
	Size      float64
	Side      PositionSide
	Fee       float64
	Slippage  float64
}

// ClosedTrade is the realized record of one exit, produced by the position
// tracker for every close, including each partial exit of a position.
type ClosedTrade struct {
	Symbol      string
	Side        PositionSide
	EntryTimeMs TimestampMs
	EntryPrice  float64
	ExitTimeMs  TimestampMs
	ExitPrice   float64
	Quantity    float64
	RealizedPnL float64
	FeesPaid    float64
	FundingPaid float64
	ExitReason  ExitReason
	StrategyTag string
}

// ClassificationStats tracks trade-classification quality over the life
// of a TradeClassifier.
type ClassificationStats struct {
	TotalTrades       int64
	BuyTrades         int64
	SellTrades        int64
	AmbiguousTrades   int64
	TotalVolume       float64
	BuyVolume         float64
	SellVolume        float64
	AmbiguousVolume   float64
	TotalStalenessMs  int64
	StaleQuoteTrades  int64
}

// AmbiguousFrac returns the fraction of volume classified ambiguously.
func (s *ClassificationStats) AmbiguousFrac() float64 {
	if s.TotalVolume > 0 {
		return s.AmbiguousVolume / s.TotalVolume
	}
	return 0.0
}

// AvgStalenessMs returns the average quote staleness across all trades.
func (s *ClassificationStats) AvgStalenessMs() float64 {
	if s.TotalTrades > 0 {
		return float64(s.TotalStalenessMs) / float64(s.TotalTrades)
	}
	return 0.0
}

// Reset zeroes all statistics.
func (s *ClassificationStats) Reset() {
	*s = ClassificationStats{}
}

// Epsilon is the shared numerical tolerance used to prune near-zero
// histogram bins and guard division-by-zero style comparisons.
const Epsilon = 1e-10

// ValidatePositive returns an error if v is not strictly positive, using
// name to identify the offending field.
func ValidatePositive(name string, v float64) error {
	if v <= 0 {
		return fmt.Errorf("%s must be positive, got %v", name, v)
	}
	return nil
}
