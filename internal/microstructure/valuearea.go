package microstructure

import (
	"sort"

	"github.com/Sokalledcoder/Auction-trader/internal/domain"
)

// ValueAreaComputer computes the Point of Control and Value Area
// boundaries from a volume-at-price histogram.
type ValueAreaComputer struct {
	vaFraction float64
	minBins    int
}

// NewValueAreaComputer creates a Value Area computer targeting the given
// coverage fraction, refusing to produce a valid result below minBins bins.
func NewValueAreaComputer(vaFraction float64, minBins int) *ValueAreaComputer {
	return &ValueAreaComputer{vaFraction: vaFraction, minBins: minBins}
}

// Compute derives POC/VAH/VAL from a histogram keyed by bucket index (as
// produced by RollingHistogram.Histogram/AggregateTo), where each bucket's
// price is bucket*binWidth.
func (c *ValueAreaComputer) Compute(histogram map[int64]float64, binWidth float64) domain.ValueArea {
	if len(histogram) < c.minBins {
		return domain.ValueArea{}
	}

	totalVolume := 0.0
	for _, vol := range histogram {
		totalVolume += vol
	}
	if totalVolume <= 0 {
		return domain.ValueArea{}
	}

	keys := make([]int64, 0, len(histogram))
	for k := range histogram {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	bins := make([]float64, len(keys))
	for i, k := range keys {
		bins[i] = histogram[k]
	}

	pocIdx := 0
	pocVolume := bins[0]
	for i, vol := range bins {
		if vol > pocVolume {
			pocVolume = vol
			pocIdx = i
		}
	}
	pocPrice := float64(keys[pocIdx]) * binWidth

	targetVolume := totalVolume * c.vaFraction

	cumulativeVolume := pocVolume
	lowIdx := pocIdx
	highIdx := pocIdx
	includedBins := 1

expand:
	for cumulativeVolume < targetVolume {
		hasLow := lowIdx > 0
		hasHigh := highIdx < len(bins)-1

		var expandLow bool
		switch {
		case hasLow && hasHigh:
			expandLow = bins[lowIdx-1] >= bins[highIdx+1]
		case hasLow:
			expandLow = true
		case hasHigh:
			expandLow = false
		default:
			// Can't expand further in either direction.
			break expand
		}

		if expandLow {
			lowIdx--
			cumulativeVolume += bins[lowIdx]
		} else {
			highIdx++
			cumulativeVolume += bins[highIdx]
		}
		includedBins++
	}

	val := float64(keys[lowIdx]) * binWidth
	vah := float64(keys[highIdx])*binWidth + binWidth

	return domain.ValueArea{
		IsValid:     true,
		POC:         pocPrice + binWidth/2.0,
		VAH:         vah,
		VAL:         val,
		Coverage:    cumulativeVolume / totalVolume,
		BinCount:    includedBins,
		BinWidth:    binWidth,
		VAVolume:    cumulativeVolume,
		TotalVolume: totalVolume,
	}
}
