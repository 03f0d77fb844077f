package cache

import (
	"testing"
	"time"

	"github.com/Sokalledcoder/Auction-trader/internal/domain"
)

func TestMemoryCacheSetGet(t *testing.T) {
	c := New()
	c.Set("k", []byte("v"), time.Minute)

	b, ok := c.Get("k")
	if !ok || string(b) != "v" {
		t.Fatalf("expected cached value, got %q ok=%v", b, ok)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := New()
	c.Set("k", []byte("v"), time.Millisecond)

	time.Sleep(5 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Fatal("expected entry to expire")
	}
}

func TestMemoryCacheZeroTTLNeverExpires(t *testing.T) {
	c := New()
	c.Set("k", []byte("v"), 0)

	time.Sleep(5 * time.Millisecond)
	if _, ok := c.Get("k"); !ok {
		t.Fatal("expected zero-ttl entry to persist")
	}
}

func TestFeaturesCacheRoundTrip(t *testing.T) {
	fc := NewFeaturesCache(New(), time.Minute)

	want := domain.Features1m{Symbol: "BTC-PERP", TimestampMs: 60000, MidClose: 50000.5}
	if err := fc.Set("BTC-PERP", want); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, ok := fc.Get("BTC-PERP")
	if !ok {
		t.Fatal("expected a cached snapshot")
	}
	if got.MidClose != want.MidClose || got.TimestampMs != want.TimestampMs {
		t.Fatalf("round trip mismatch: got %+v", got)
	}

	if _, ok := fc.Get("ETH-PERP"); ok {
		t.Fatal("expected miss for uncached symbol")
	}
}
