package microstructure

import (
	"math"

	"github.com/Sokalledcoder/Auction-trader/internal/domain"
)

// FeatureEngine combines rolling volatility, the volume-at-price
// histogram, the Value Area computer, order-flow aggregation, and
// quote-imbalance tracking into the single per-minute Features1m snapshot
// the rest of the pipeline consumes.
type FeatureEngine struct {
	volatility  *RollingVolatility
	histogram   *RollingHistogram
	vaComputer  *ValueAreaComputer
	orderFlow   *OrderFlowAggregator
	qimbTracker *QuoteImbalanceTracker

	spreadTimestamps []int64
	spreadValues     []float64

	tickSize       float64
	alphaBin       float64
	binWidthMax    float64
	spreadLookback int
	rollingWindow  int

	currentBinWidth   float64
	haveLastRebucket  bool
	lastRebucketMin   int64
	rebucketInterval  int
	rebucketChangePct float64
	rebucketCount     int
}

// NewFeatureEngine builds a feature engine from the pipeline configuration.
func NewFeatureEngine(cfg *domain.Config) *FeatureEngine {
	rollingWindow := cfg.Instrument.RollingWindowMinutes
	tickSize := cfg.Instrument.TickSize

	return &FeatureEngine{
		volatility: NewRollingVolatility(rollingWindow),
		histogram:  NewRollingHistogram(tickSize, rollingWindow),
		vaComputer: NewValueAreaComputer(cfg.ValueArea.VAFraction, cfg.ValueArea.MinVABins),
		orderFlow:  NewOrderFlowAggregator(rollingWindow),
		qimbTracker: NewQuoteImbalanceTracker(
			rollingWindow*1000,
			cfg.OrderFlow.SpreadLookbackMinutes,
		),
		tickSize:          tickSize,
		alphaBin:          cfg.ValueArea.AlphaBin,
		binWidthMax:       float64(cfg.ValueArea.BinWidthMaxTicks) * tickSize,
		spreadLookback:    cfg.OrderFlow.SpreadLookbackMinutes,
		rollingWindow:     rollingWindow,
		currentBinWidth:   tickSize,
		rebucketInterval:  cfg.ValueArea.RebucketIntervalMinutes,
		rebucketChangePct: cfg.ValueArea.RebucketChangePct,
	}
}

// AddQuote folds a quote's size imbalance into the imbalance tracker.
func (e *FeatureEngine) AddQuote(q domain.Quote) {
	e.qimbTracker.Add(int64(q.Timestamp), q.Imbalance())
}

// AddTrade folds a classified trade into the histogram and order-flow
// aggregator.
func (e *FeatureEngine) AddTrade(trade domain.ClassifiedTrade) {
	tsMin := tsToMinute(int64(trade.Timestamp))
	e.histogram.AddTrade(tsMin, trade.Price, trade.Size)
	e.orderFlow.AddTrade(trade)
}

// AddTrades folds a batch of classified trades.
func (e *FeatureEngine) AddTrades(trades []domain.ClassifiedTrade) {
	for _, trade := range trades {
		e.AddTrade(trade)
	}
}

// AddBar processes a completed one-minute bar: updates volatility from
// its closing mid, tracks the rolling spread average, flushes the
// histogram's current minute, and re-evaluates the bin width.
func (e *FeatureEngine) AddBar(bar domain.Bar1m) {
	mid := bar.MidClose()
	e.volatility.AddPrice(mid)

	spread := bar.SpreadClose()
	e.spreadTimestamps = append(e.spreadTimestamps, int64(bar.OpenTimeMs))
	e.spreadValues = append(e.spreadValues, spread)
	for len(e.spreadTimestamps) > e.spreadLookback {
		e.spreadTimestamps = e.spreadTimestamps[1:]
		e.spreadValues = e.spreadValues[1:]
	}

	e.histogram.FlushCurrentMinute()

	e.maybeRebucket(int64(bar.OpenTimeMs), mid)
}

// maybeRebucket re-evaluates the histogram's aggregation bin width. A
// rebucket happens unconditionally the first time, then whenever the
// configured interval has elapsed or the candidate width has moved by
// at least the configured change threshold. Re-aggregation itself stays
// implicit: AggregateTo is a pure read over the immutable base histogram,
// so there is nothing to rebuild here beyond remembering the new width.
func (e *FeatureEngine) maybeRebucket(tsMin int64, midPrice float64) {
	sigma, _ := e.volatility.Volatility()

	newBinWidthRaw := e.alphaBin * midPrice * sigma
	newBinWidth := e.roundToTick(newBinWidthRaw)
	if newBinWidth < e.tickSize {
		newBinWidth = e.tickSize
	}
	if newBinWidth > e.binWidthMax {
		newBinWidth = e.binWidthMax
	}

	shouldRebucket := true
	if e.haveLastRebucket {
		minutesSince := (tsMin - e.lastRebucketMin) / 60000
		pctChange := 1.0
		if e.currentBinWidth > 0 {
			pctChange = math.Abs((newBinWidth - e.currentBinWidth) / e.currentBinWidth)
		}
		shouldRebucket = minutesSince >= int64(e.rebucketInterval) || pctChange >= e.rebucketChangePct
	}

	if shouldRebucket {
		e.currentBinWidth = newBinWidth
		e.lastRebucketMin = tsMin
		e.haveLastRebucket = true
		e.rebucketCount++
	}
}

func (e *FeatureEngine) roundToTick(value float64) float64 {
	return math.Round(value/e.tickSize) * e.tickSize
}

func (e *FeatureEngine) avgSpread() float64 {
	if len(e.spreadValues) == 0 {
		return e.tickSize
	}
	sum := 0.0
	for _, s := range e.spreadValues {
		sum += s
	}
	return sum / float64(len(e.spreadValues))
}

// ComputeFeatures is a pure query producing the Features1m snapshot for
// the given minute and its bar.
func (e *FeatureEngine) ComputeFeatures(tsMin int64, bar domain.Bar1m) domain.Features1m {
	midClose := bar.MidClose()
	sigma, _ := e.volatility.Volatility()

	aggHist := e.histogram.AggregateTo(e.currentBinWidth)
	va := e.vaComputer.Compute(aggHist, e.currentBinWidth)

	orderFlow, ok := e.orderFlow.GetMinute(tsMin)
	if !ok {
		orderFlow = domain.OrderFlowMetrics{}
	}

	qimbClose := bar.QimbClose()
	qimbEMA := e.qimbTracker.EMAForMinute(tsMin)

	return domain.Features1m{
		Symbol:       bar.Symbol,
		TimestampMs:  domain.TimestampMs(tsMin),
		MidClose:     midClose,
		Sigma240:     sigma,
		BinWidth:     e.currentBinWidth,
		VA:           va,
		OrderFlow:    orderFlow,
		QimbClose:    qimbClose,
		QimbEMA:      qimbEMA,
		SpreadAvg60m: e.avgSpread(),
		Ready:        e.IsReady(),
	}
}

// IsReady reports whether the engine has enough warmup data (a full
// volatility window and a full histogram window) to produce meaningful
// features.
func (e *FeatureEngine) IsReady() bool {
	return e.volatility.IsReady() && e.histogram.IsReady()
}

// WindowSize returns the configured rolling window, in minutes.
func (e *FeatureEngine) WindowSize() int {
	return e.rollingWindow
}

// CurrentBinWidth returns the histogram aggregation width currently in
// effect.
func (e *FeatureEngine) CurrentBinWidth() float64 {
	return e.currentBinWidth
}

// RebucketCount returns how many times the aggregation width has been
// re-evaluated and committed since construction (or the last Clear).
func (e *FeatureEngine) RebucketCount() int {
	return e.rebucketCount
}

// Clear resets all engine state back to its initial configuration.
func (e *FeatureEngine) Clear() {
	e.volatility.Clear()
	e.histogram.Clear()
	e.orderFlow.Clear()
	e.qimbTracker.Clear()
	e.spreadTimestamps = nil
	e.spreadValues = nil
	e.currentBinWidth = e.tickSize
	e.haveLastRebucket = false
	e.rebucketCount = 0
}
