package microstructure

import (
	"sort"

	"github.com/Sokalledcoder/Auction-trader/internal/domain"
)

// tsToMinute floors a millisecond timestamp to its minute boundary.
func tsToMinute(tsMs int64) int64 {
	return (tsMs / 60000) * 60000
}

type minuteAccumulator struct {
	buyVolume       float64
	sellVolume      float64
	ambiguousVolume float64
}

func (a *minuteAccumulator) add(trade domain.ClassifiedTrade) {
	switch trade.Side {
	case domain.SideBuy:
		a.buyVolume += trade.Size
	case domain.SideSell:
		a.sellVolume += trade.Size
	default:
		a.ambiguousVolume += trade.Size
	}
}

func (a *minuteAccumulator) toMetrics() domain.OrderFlowMetrics {
	totalVolume := a.buyVolume + a.sellVolume + a.ambiguousVolume
	of1m := a.buyVolume - a.sellVolume

	ofNorm1m := 0.0
	ambiguousFrac := 0.0
	if totalVolume > 0 {
		ofNorm1m = of1m / totalVolume
		ambiguousFrac = a.ambiguousVolume / totalVolume
	}

	return domain.OrderFlowMetrics{
		BuyVolume:       a.buyVolume,
		SellVolume:      a.sellVolume,
		AmbiguousVolume: a.ambiguousVolume,
		TotalVolume:     totalVolume,
		OF1m:            of1m,
		OFNorm1m:        ofNorm1m,
		AmbiguousFrac:   ambiguousFrac,
	}
}

// OrderFlowAggregator tracks per-minute aggressor-side volume, retaining at
// most maxMinutes minutes of history.
type OrderFlowAggregator struct {
	minutes    map[int64]*minuteAccumulator
	maxMinutes int
}

// NewOrderFlowAggregator creates an aggregator retaining up to maxMinutes
// minutes of history.
func NewOrderFlowAggregator(maxMinutes int) *OrderFlowAggregator {
	return &OrderFlowAggregator{
		minutes:    make(map[int64]*minuteAccumulator),
		maxMinutes: maxMinutes,
	}
}

// AddTrade folds a classified trade into its minute's accumulator, pruning
// the oldest minute(s) if the retention window is exceeded.
func (o *OrderFlowAggregator) AddTrade(trade domain.ClassifiedTrade) {
	tsMin := tsToMinute(int64(trade.Timestamp))

	acc, ok := o.minutes[tsMin]
	if !ok {
		acc = &minuteAccumulator{}
		o.minutes[tsMin] = acc
	}
	acc.add(trade)

	for len(o.minutes) > o.maxMinutes {
		oldest := o.oldestMinute()
		delete(o.minutes, oldest)
	}
}

func (o *OrderFlowAggregator) oldestMinute() int64 {
	oldest := int64(0)
	first := true
	for ts := range o.minutes {
		if first || ts < oldest {
			oldest = ts
			first = false
		}
	}
	return oldest
}

// AddTrades folds a batch of classified trades.
func (o *OrderFlowAggregator) AddTrades(trades []domain.ClassifiedTrade) {
	for _, trade := range trades {
		o.AddTrade(trade)
	}
}

// GetMinute returns the metrics for a specific minute, if tracked.
func (o *OrderFlowAggregator) GetMinute(tsMin int64) (domain.OrderFlowMetrics, bool) {
	acc, ok := o.minutes[tsMin]
	if !ok {
		return domain.OrderFlowMetrics{}, false
	}
	return acc.toMetrics(), true
}

// GetLatest returns the most recent minute's metrics.
func (o *OrderFlowAggregator) GetLatest() (int64, domain.OrderFlowMetrics, bool) {
	if len(o.minutes) == 0 {
		return 0, domain.OrderFlowMetrics{}, false
	}
	latest := o.oldestMinute()
	for ts := range o.minutes {
		if ts > latest {
			latest = ts
		}
	}
	return latest, o.minutes[latest].toMetrics(), true
}

// GetRolling aggregates the most recent `minutes` minutes of history into
// a single metrics snapshot.
func (o *OrderFlowAggregator) GetRolling(minutes int) domain.OrderFlowMetrics {
	keys := make([]int64, 0, len(o.minutes))
	for ts := range o.minutes {
		keys = append(keys, ts)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] > keys[j] })

	if minutes < len(keys) {
		keys = keys[:minutes]
	}

	total := minuteAccumulator{}
	for _, ts := range keys {
		acc := o.minutes[ts]
		total.buyVolume += acc.buyVolume
		total.sellVolume += acc.sellVolume
		total.ambiguousVolume += acc.ambiguousVolume
	}

	return total.toMetrics()
}

// MinuteCount returns how many minutes are currently tracked.
func (o *OrderFlowAggregator) MinuteCount() int {
	return len(o.minutes)
}

// Clear resets the aggregator.
func (o *OrderFlowAggregator) Clear() {
	o.minutes = make(map[int64]*minuteAccumulator)
}

// QuoteImbalanceTracker maintains a bounded history of quote-imbalance
// samples and derives an EMA or simple average over a given minute.
type QuoteImbalanceTracker struct {
	timestamps []int64
	values     []float64
	maxValues  int
	emaAlpha   float64
}

// NewQuoteImbalanceTracker creates a tracker retaining up to maxValues
// samples, with an EMA decay derived from emaSpanSeconds assuming roughly
// 10 updates per second.
func NewQuoteImbalanceTracker(maxValues int, emaSpanSeconds int) *QuoteImbalanceTracker {
	emaAlpha := 2.0 / (float64(emaSpanSeconds)*10.0 + 1.0)
	return &QuoteImbalanceTracker{
		maxValues: maxValues,
		emaAlpha:  emaAlpha,
	}
}

// Add records a quote-imbalance sample, evicting the oldest if the
// tracker is at capacity.
func (q *QuoteImbalanceTracker) Add(tsMs int64, qimb float64) {
	if len(q.timestamps) >= q.maxValues {
		q.timestamps = q.timestamps[1:]
		q.values = q.values[1:]
	}
	q.timestamps = append(q.timestamps, tsMs)
	q.values = append(q.values, qimb)
}

// Latest returns the most recently added sample.
func (q *QuoteImbalanceTracker) Latest() (float64, bool) {
	if len(q.values) == 0 {
		return 0, false
	}
	return q.values[len(q.values)-1], true
}

// EMAForMinute computes the EMA of samples falling within [tsMin,
// tsMin+60000), seeding the EMA with the minute's first sample.
func (q *QuoteImbalanceTracker) EMAForMinute(tsMin int64) float64 {
	minuteEnd := tsMin + 60000

	var minuteValues []float64
	for i, ts := range q.timestamps {
		if ts >= tsMin && ts < minuteEnd {
			minuteValues = append(minuteValues, q.values[i])
		}
	}

	if len(minuteValues) == 0 {
		return 0.0
	}

	ema := minuteValues[0]
	for _, v := range minuteValues[1:] {
		ema = q.emaAlpha*v + (1-q.emaAlpha)*ema
	}
	return ema
}

// AvgForMinute computes the simple average of samples falling within
// [tsMin, tsMin+60000).
func (q *QuoteImbalanceTracker) AvgForMinute(tsMin int64) float64 {
	minuteEnd := tsMin + 60000

	sum := 0.0
	count := 0
	for i, ts := range q.timestamps {
		if ts >= tsMin && ts < minuteEnd {
			sum += q.values[i]
			count++
		}
	}
	if count == 0 {
		return 0.0
	}
	return sum / float64(count)
}

// Clear resets the tracker.
func (q *QuoteImbalanceTracker) Clear() {
	q.timestamps = nil
	q.values = nil
}
