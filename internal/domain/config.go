package domain

import (
	"fmt"
	"io/ioutil"

	"gopkg.in/yaml.v2"
)

// InstrumentConfig describes the traded instrument's price grid and the
// rolling window the feature pipeline keeps in memory.
type InstrumentConfig struct {
	TickSize             float64 `yaml:"tick_size"`
	RollingWindowMinutes int     `yaml:"rolling_window_minutes"`
}

// ValueAreaConfig tunes the Market Profile / Value Area computation.
type ValueAreaConfig struct {
	VAFraction              float64 `yaml:"va_fraction"`
	BaseBinTicks            int     `yaml:"base_bin_ticks"`
	AlphaBin                float64 `yaml:"alpha_bin"`
	BinWidthMaxTicks        int     `yaml:"bin_width_max_ticks"`
	RebucketIntervalMinutes int     `yaml:"rebucket_interval_minutes"`
	RebucketChangePct       float64 `yaml:"rebucket_change_pct"`
	MinVABins               int     `yaml:"min_va_bins"`
}

// OrderFlowConfig tunes trade classification and order-flow tracking.
type OrderFlowConfig struct {
	MaxQuoteStalenessMs   int64 `yaml:"max_quote_staleness_ms"`
	UseTickRuleFallback   bool  `yaml:"use_tick_rule_fallback"`
	SpreadLookbackMinutes int   `yaml:"spread_lookback_minutes"`
}

// ExecutionConfig tunes the fill model.
type ExecutionConfig struct {
	SlippageTicksEntry int     `yaml:"slippage_ticks_entry"`
	SlippageTicksExit  int     `yaml:"slippage_ticks_exit"`
	TakerFeeBps        float64 `yaml:"taker_fee_bps"`
	MakerFeeBps        float64 `yaml:"maker_fee_bps"`
}

// BacktestConfig tunes the backtest simulator.
type BacktestConfig struct {
	InitialCapital      float64 `yaml:"initial_capital"`
	TP1Pct              float64 `yaml:"tp1_pct"`
	MoveStopToBreakeven bool    `yaml:"move_stop_to_breakeven"`
	FundingRate8hBps    float64 `yaml:"funding_rate_8h_bps"`
	FundingIntervalMs   int64   `yaml:"funding_interval_ms"`
}

// Config is the full, validated configuration for the feature pipeline and
// the backtest simulator. Construct it via DefaultConfig() or LoadConfig()
// and always call Validate() before use.
type Config struct {
	Instrument InstrumentConfig `yaml:"instrument"`
	ValueArea  ValueAreaConfig  `yaml:"value_area"`
	OrderFlow  OrderFlowConfig  `yaml:"order_flow"`
	Execution  ExecutionConfig  `yaml:"execution"`
	Backtest   BacktestConfig   `yaml:"backtest"`
}

// DefaultConfig returns the configuration defaults specified for this
// pipeline. Every field here is part of the external contract.
func DefaultConfig() *Config {
	return &Config{
		Instrument: InstrumentConfig{
			TickSize:             0.1,
			RollingWindowMinutes: 240,
		},
		ValueArea: ValueAreaConfig{
			VAFraction:              0.70,
			BaseBinTicks:            1,
			AlphaBin:                0.25,
			BinWidthMaxTicks:        200,
			RebucketIntervalMinutes: 15,
			RebucketChangePct:       0.25,
			MinVABins:               20,
		},
		OrderFlow: OrderFlowConfig{
			MaxQuoteStalenessMs:   250,
			UseTickRuleFallback:   true,
			SpreadLookbackMinutes: 60,
		},
		Execution: ExecutionConfig{
			SlippageTicksEntry: 1,
			SlippageTicksExit:  1,
			TakerFeeBps:        5.0,
			MakerFeeBps:        -1.0,
		},
		Backtest: BacktestConfig{
			InitialCapital:      10000,
			TP1Pct:              0.30,
			MoveStopToBreakeven: true,
			FundingRate8hBps:    1.0,
			FundingIntervalMs:   28800000,
		},
	}
}

// LoadConfig reads a YAML configuration file, overlaying it onto the
// defaults, and validates the result.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate rejects configuration values that would make the core's
// invariants unenforceable. These are construction-time fatal errors, per
// the core's error taxonomy: configuration errors never surface as
// hot-path failures.
func (c *Config) Validate() error {
	if err := ValidatePositive("tick_size", c.Instrument.TickSize); err != nil {
		return err
	}
	if c.Instrument.RollingWindowMinutes < 1 {
		return fmt.Errorf("rolling_window_minutes must be >= 1, got %d", c.Instrument.RollingWindowMinutes)
	}
	if c.ValueArea.VAFraction <= 0 || c.ValueArea.VAFraction > 1 {
		return fmt.Errorf("va_fraction must be in (0,1], got %v", c.ValueArea.VAFraction)
	}
	if c.ValueArea.BaseBinTicks < 1 {
		return fmt.Errorf("base_bin_ticks must be >= 1, got %d", c.ValueArea.BaseBinTicks)
	}
	if err := ValidatePositive("alpha_bin", c.ValueArea.AlphaBin); err != nil {
		return err
	}
	if c.ValueArea.BinWidthMaxTicks < c.ValueArea.BaseBinTicks {
		return fmt.Errorf("bin_width_max_ticks must be >= base_bin_ticks")
	}
	if c.ValueArea.RebucketIntervalMinutes < 1 {
		return fmt.Errorf("rebucket_interval_minutes must be >= 1, got %d", c.ValueArea.RebucketIntervalMinutes)
	}
	if c.ValueArea.RebucketChangePct <= 0 {
		return fmt.Errorf("rebucket_change_pct must be positive, got %v", c.ValueArea.RebucketChangePct)
	}
	if c.ValueArea.MinVABins < 1 {
		return fmt.Errorf("min_va_bins must be >= 1, got %d", c.ValueArea.MinVABins)
	}
	if c.OrderFlow.MaxQuoteStalenessMs < 0 {
		return fmt.Errorf("max_quote_staleness_ms must be >= 0, got %d", c.OrderFlow.MaxQuoteStalenessMs)
	}
	if c.OrderFlow.SpreadLookbackMinutes < 1 {
		return fmt.Errorf("spread_lookback_minutes must be >= 1, got %d", c.OrderFlow.SpreadLookbackMinutes)
	}
	if c.Execution.SlippageTicksEntry < 0 || c.Execution.SlippageTicksExit < 0 {
		return fmt.Errorf("slippage ticks must be >= 0")
	}
	if err := ValidatePositive("initial_capital", c.Backtest.InitialCapital); err != nil {
		return err
	}
	if c.Backtest.TP1Pct <= 0 || c.Backtest.TP1Pct >= 1 {
		return fmt.Errorf("tp1_pct must be in (0,1), got %v", c.Backtest.TP1Pct)
	}
	if c.Backtest.FundingIntervalMs <= 0 {
		return fmt.Errorf("funding_interval_ms must be positive, got %d", c.Backtest.FundingIntervalMs)
	}
	return nil
}
