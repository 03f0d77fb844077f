package microstructure

import (
	"math"

	"github.com/Sokalledcoder/Auction-trader/internal/domain"
)

// minuteVolume is one minute's trade volume, bucketed at base resolution.
type minuteVolume struct {
	tsMin int64
	bins  map[int64]float64
}

// RollingHistogram maintains a rolling volume-at-price profile over a fixed
// number of minutes. Trades are bucketed at a fine base resolution; callers
// needing a coarser view call AggregateTo on demand rather than keeping
// multiple resolutions in lockstep.
//
// Bin keys are integer bucket indices (bucket = floor(price/baseBin)), not
// raw floats: this sidesteps float-equality map-key hazards entirely rather
// than relying on an ordered-float wrapper.
type RollingHistogram struct {
	baseBin       float64
	window        int
	minuteVolumes []minuteVolume
	aggregated    map[int64]float64
	currentMinute int64
	haveCurrent   bool
	currentBins   map[int64]float64
}

// NewRollingHistogram creates a rolling histogram with the given base bin
// width (typically the instrument's tick size) and window, in minutes.
func NewRollingHistogram(baseBin float64, window int) *RollingHistogram {
	return &RollingHistogram{
		baseBin:       baseBin,
		window:        window,
		minuteVolumes: make([]minuteVolume, 0, window),
		aggregated:    make(map[int64]float64),
		currentBins:   make(map[int64]float64),
	}
}

func (h *RollingHistogram) binKey(price float64) int64 {
	return int64(math.Floor(price / h.baseBin))
}

// BinPrice recovers a base-resolution bin's lower price edge from its key.
func (h *RollingHistogram) BinPrice(key int64) float64 {
	return float64(key) * h.baseBin
}

// AddTrade folds a trade's size into the current minute's bins, finalizing
// the prior minute first if tsMin has advanced.
func (h *RollingHistogram) AddTrade(tsMin int64, price, size float64) {
	if h.haveCurrent && tsMin != h.currentMinute {
		h.finalizeMinute(h.currentMinute)
	}
	h.currentMinute = tsMin
	h.haveCurrent = true

	key := h.binKey(price)
	h.currentBins[key] += size
}

func (h *RollingHistogram) finalizeMinute(tsMin int64) {
	if len(h.currentBins) == 0 {
		return
	}

	for key, vol := range h.currentBins {
		h.aggregated[key] += vol
	}

	h.minuteVolumes = append(h.minuteVolumes, minuteVolume{tsMin: tsMin, bins: h.currentBins})
	h.currentBins = make(map[int64]float64)

	for len(h.minuteVolumes) > h.window {
		old := h.minuteVolumes[0]
		h.minuteVolumes = h.minuteVolumes[1:]
		for key, vol := range old.bins {
			if agg, ok := h.aggregated[key]; ok {
				agg -= vol
				if agg <= domain.Epsilon {
					delete(h.aggregated, key)
				} else {
					h.aggregated[key] = agg
				}
			}
		}
	}
}

// FlushCurrentMinute forces finalization of the in-progress minute. Call
// this at every minute boundary, even if no trade arrived.
func (h *RollingHistogram) FlushCurrentMinute() {
	if h.haveCurrent {
		h.finalizeMinute(h.currentMinute)
		h.haveCurrent = false
	}
}

// Histogram returns the aggregated base-resolution histogram, keyed by
// bucket index.
func (h *RollingHistogram) Histogram() map[int64]float64 {
	return h.aggregated
}

// AggregateTo re-buckets the base-resolution aggregate to a wider bin
// width, returning a new map keyed by bucket index at the new width. This
// is a pure read over the immutable base aggregate: no state is kept in
// lockstep at the wider resolution.
func (h *RollingHistogram) AggregateTo(binWidth float64) map[int64]float64 {
	result := make(map[int64]float64)
	for baseKey, vol := range h.aggregated {
		basePrice := h.BinPrice(baseKey)
		aggKey := int64(math.Floor(basePrice / binWidth))
		result[aggKey] += vol
	}
	return result
}

// TotalVolume sums all volume currently in the aggregated histogram.
func (h *RollingHistogram) TotalVolume() float64 {
	total := 0.0
	for _, vol := range h.aggregated {
		total += vol
	}
	return total
}

// BinCount returns the number of bins carrying volume.
func (h *RollingHistogram) BinCount() int {
	return len(h.aggregated)
}

// MinuteCount returns the number of minutes currently retained.
func (h *RollingHistogram) MinuteCount() int {
	return len(h.minuteVolumes)
}

// IsReady reports whether the rolling window is full.
func (h *RollingHistogram) IsReady() bool {
	return len(h.minuteVolumes) >= h.window
}

// Clear resets the histogram to its initial empty state.
func (h *RollingHistogram) Clear() {
	h.minuteVolumes = h.minuteVolumes[:0]
	h.aggregated = make(map[int64]float64)
	h.haveCurrent = false
	h.currentBins = make(map[int64]float64)
}

// Rebuild recomputes the aggregated histogram from retained minute
// snapshots, useful after any external state surgery on minuteVolumes.
func (h *RollingHistogram) Rebuild() {
	h.aggregated = make(map[int64]float64)
	for _, minute := range h.minuteVolumes {
		for key, vol := range minute.bins {
			h.aggregated[key] += vol
		}
	}
}
