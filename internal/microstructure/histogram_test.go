package microstructure

import "testing"

func TestHistogramSingleTrade(t *testing.T) {
	h := NewRollingHistogram(1.0, 5)
	h.AddTrade(0, 100.5, 10.0)
	h.FlushCurrentMinute()

	if h.BinCount() != 1 {
		t.Fatalf("expected 1 bin, got %d", h.BinCount())
	}
	if diff := h.TotalVolume() - 10.0; diff > 1e-10 || diff < -1e-10 {
		t.Fatalf("expected total volume 10.0, got %v", h.TotalVolume())
	}
}

func TestHistogramMultipleTradesSameBin(t *testing.T) {
	h := NewRollingHistogram(1.0, 5)
	h.AddTrade(0, 100.2, 5.0)
	h.AddTrade(0, 100.8, 5.0)
	h.FlushCurrentMinute()

	if h.BinCount() != 1 {
		t.Fatalf("expected 1 bin, got %d", h.BinCount())
	}
	if diff := h.TotalVolume() - 10.0; diff > 1e-10 || diff < -1e-10 {
		t.Fatalf("expected total volume 10.0, got %v", h.TotalVolume())
	}
}

func TestHistogramMultipleBins(t *testing.T) {
	h := NewRollingHistogram(1.0, 5)
	h.AddTrade(0, 100.5, 5.0)
	h.AddTrade(0, 101.5, 5.0)
	h.AddTrade(0, 102.5, 5.0)
	h.FlushCurrentMinute()

	if h.BinCount() != 3 {
		t.Fatalf("expected 3 bins, got %d", h.BinCount())
	}
	if diff := h.TotalVolume() - 15.0; diff > 1e-10 || diff < -1e-10 {
		t.Fatalf("expected total volume 15.0, got %v", h.TotalVolume())
	}
}

func TestHistogramRollingWindowEviction(t *testing.T) {
	h := NewRollingHistogram(1.0, 3)
	for min := int64(0); min < 5; min++ {
		h.AddTrade(min, 100.0+float64(min), 10.0)
		h.FlushCurrentMinute()
	}

	if h.MinuteCount() != 3 {
		t.Fatalf("expected 3 minutes retained, got %d", h.MinuteCount())
	}
	if diff := h.TotalVolume() - 30.0; diff > 1e-10 || diff < -1e-10 {
		t.Fatalf("expected total volume 30.0 after eviction, got %v", h.TotalVolume())
	}
}

func TestHistogramAggregateToWiderBins(t *testing.T) {
	h := NewRollingHistogram(1.0, 5)
	h.AddTrade(0, 100.5, 10.0)
	h.AddTrade(0, 101.5, 20.0)
	h.AddTrade(0, 102.5, 30.0)
	h.AddTrade(0, 103.5, 40.0)
	h.FlushCurrentMinute()

	agg := h.AggregateTo(2.0)
	if len(agg) != 2 {
		t.Fatalf("expected 2 aggregated bins, got %d", len(agg))
	}
	if diff := agg[50] - 30.0; diff > 1e-10 || diff < -1e-10 {
		t.Fatalf("expected bucket 50 (price 100) to carry 30.0, got %v", agg[50])
	}
	if diff := agg[51] - 70.0; diff > 1e-10 || diff < -1e-10 {
		t.Fatalf("expected bucket 51 (price 102) to carry 70.0, got %v", agg[51])
	}
}

func TestHistogramIsReady(t *testing.T) {
	h := NewRollingHistogram(1.0, 3)
	if h.IsReady() {
		t.Fatal("expected not ready before window fills")
	}
	for min := int64(0); min < 3; min++ {
		h.AddTrade(min, 100.0, 10.0)
		h.FlushCurrentMinute()
	}
	if !h.IsReady() {
		t.Fatal("expected ready once window is full")
	}
}
