package microstructure

import (
	"math"
	"testing"
)

func TestValueAreaSymmetric(t *testing.T) {
	c := NewValueAreaComputer(0.70, 3)

	hist := map[int64]float64{
		98:  50.0,
		99:  100.0,
		100: 200.0,
		101: 100.0,
		102: 50.0,
	}

	va := c.Compute(hist, 1.0)

	if !va.IsValid {
		t.Fatal("expected valid value area")
	}
	if math.Abs(va.POC-100.5) > 1e-10 {
		t.Fatalf("expected poc 100.5, got %v", va.POC)
	}
	if math.Abs(va.VAL-99) > 1e-10 {
		t.Fatalf("expected val 99, got %v", va.VAL)
	}
	if math.Abs(va.VAH-102) > 1e-10 {
		t.Fatalf("expected vah 102, got %v", va.VAH)
	}
	if math.Abs(va.TotalVolume-500.0) > 1e-10 {
		t.Fatalf("expected total volume 500, got %v", va.TotalVolume)
	}
}

func TestValueAreaAsymmetric(t *testing.T) {
	c := NewValueAreaComputer(0.70, 3)

	hist := map[int64]float64{
		98:  10.0,
		99:  20.0,
		100: 100.0,
		101: 80.0,
		102: 60.0,
	}

	va := c.Compute(hist, 1.0)

	if !va.IsValid {
		t.Fatal("expected valid value area")
	}
	if math.Abs(va.POC-100.5) > 1e-10 {
		t.Fatalf("expected poc 100.5, got %v", va.POC)
	}
}

func TestValueAreaInsufficientBins(t *testing.T) {
	c := NewValueAreaComputer(0.70, 20)

	hist := map[int64]float64{
		100: 100.0,
		101: 100.0,
	}

	va := c.Compute(hist, 1.0)
	if va.IsValid {
		t.Fatal("expected invalid value area below min_bins")
	}
	if va.POC != 0 || va.VAH != 0 || va.VAL != 0 {
		t.Fatal("expected zeroed numeric fields when invalid")
	}
}

func TestValueAreaPOCAtEdge(t *testing.T) {
	c := NewValueAreaComputer(0.70, 3)

	hist := map[int64]float64{
		100: 200.0,
		101: 50.0,
		102: 50.0,
		103: 50.0,
	}

	va := c.Compute(hist, 1.0)
	if !va.IsValid {
		t.Fatal("expected valid value area")
	}
	if math.Abs(va.VAL-100.0) > 1e-10 {
		t.Fatalf("expected val pinned to 100.0 when POC is at the edge, got %v", va.VAL)
	}
}

func TestValueAreaCoverage(t *testing.T) {
	c := NewValueAreaComputer(0.70, 3)

	hist := map[int64]float64{
		98:  100.0,
		99:  100.0,
		100: 100.0,
		101: 100.0,
		102: 100.0,
	}

	va := c.Compute(hist, 1.0)
	if !va.IsValid {
		t.Fatal("expected valid value area")
	}
	if va.Coverage < 0.70 {
		t.Fatalf("expected coverage >= 0.70, got %v", va.Coverage)
	}
	if va.BinCount < 1 {
		t.Fatalf("expected bin_count >= 1, got %d", va.BinCount)
	}
	if va.VAL > va.POC || va.POC > va.VAH {
		t.Fatalf("expected val <= poc <= vah, got val=%v poc=%v vah=%v", va.VAL, va.POC, va.VAH)
	}
}

func TestValueAreaEmptyHistogram(t *testing.T) {
	c := NewValueAreaComputer(0.70, 20)
	va := c.Compute(map[int64]float64{}, 1.0)
	if va.IsValid {
		t.Fatal("expected invalid value area for empty histogram")
	}
}
