package domain

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigValidates(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("expected default config to validate, got %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative tick size", func(c *Config) { c.Instrument.TickSize = -0.1 }},
		{"zero tick size", func(c *Config) { c.Instrument.TickSize = 0 }},
		{"va fraction above one", func(c *Config) { c.ValueArea.VAFraction = 1.5 }},
		{"zero va fraction", func(c *Config) { c.ValueArea.VAFraction = 0 }},
		{"zero min va bins", func(c *Config) { c.ValueArea.MinVABins = 0 }},
		{"bin width max below base bin", func(c *Config) { c.ValueArea.BinWidthMaxTicks = 0 }},
		{"negative staleness", func(c *Config) { c.OrderFlow.MaxQuoteStalenessMs = -1 }},
		{"negative slippage", func(c *Config) { c.Execution.SlippageTicksEntry = -1 }},
		{"zero capital", func(c *Config) { c.Backtest.InitialCapital = 0 }},
		{"tp1 pct of one", func(c *Config) { c.Backtest.TP1Pct = 1.0 }},
		{"zero funding interval", func(c *Config) { c.Backtest.FundingIntervalMs = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoadConfigOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
instrument:
  tick_size: 0.5
value_area:
  va_fraction: 0.68
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Instrument.TickSize != 0.5 {
		t.Fatalf("expected overridden tick size 0.5, got %v", cfg.Instrument.TickSize)
	}
	if cfg.ValueArea.VAFraction != 0.68 {
		t.Fatalf("expected overridden va fraction 0.68, got %v", cfg.ValueArea.VAFraction)
	}
	if cfg.Instrument.RollingWindowMinutes != 240 {
		t.Fatalf("expected default rolling window 240, got %d", cfg.Instrument.RollingWindowMinutes)
	}
	if cfg.Backtest.InitialCapital != 10000 {
		t.Fatalf("expected default initial capital, got %v", cfg.Backtest.InitialCapital)
	}
}

func TestLoadConfigRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("instrument:\n  tick_size: -1\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected invalid config error")
	}
}
