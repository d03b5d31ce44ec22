// Package config defines the simulator's configuration surface: core
// assignments, queue sizes, risk limits, venue descriptions, feed and
// strategy parameters. Configs load from YAML and are validated with
// struct tags before the engine is constructed.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/wojciech-wais/low-latency-trading-system/internal/types"
)

// ExchangeConfig describes one simulated venue.
type ExchangeConfig struct {
	ID              uint8   `yaml:"id" validate:"max=15"`
	Name            string  `yaml:"name" validate:"required"`
	LatencyNS       uint64  `yaml:"latency_ns"`
	FillProbability float64 `yaml:"fill_probability" validate:"gte=0,lte=1"`
	Enabled         bool    `yaml:"enabled"`
}

// RiskLimits bounds the pre-trade risk gate.
type RiskLimits struct {
	MaxPositionPerInstrument int64   `yaml:"max_position_per_instrument" validate:"gt=0"`
	MaxTotalPosition         int64   `yaml:"max_total_position" validate:"gt=0"`
	MaxCapital               float64 `yaml:"max_capital" validate:"gt=0"`
	MaxOrderSize             uint64  `yaml:"max_order_size" validate:"gt=0"`
	MaxOrdersPerSecond       uint32  `yaml:"max_orders_per_second" validate:"gt=0"`
	MaxPriceDeviationPct     float64 `yaml:"max_price_deviation_pct" validate:"gt=0,lte=100"`
	MaxDrawdownPct           float64 `yaml:"max_drawdown_pct" validate:"gt=0,lte=100"`
}

// SystemConfig is the full configuration surface.
type SystemConfig struct {
	// CPU core assignments for the long-running loops. Best-effort:
	// pinning failures are logged and ignored.
	MarketDataCore int `yaml:"market_data_core" validate:"gte=0"`
	OrderBookCore  int `yaml:"order_book_core" validate:"gte=0"`
	StrategyCore   int `yaml:"strategy_core" validate:"gte=0"`
	ExecutionCore  int `yaml:"execution_core" validate:"gte=0"`
	MonitoringCore int `yaml:"monitoring_core" validate:"gte=0"`

	// SPSC ring capacities. Must be powers of two.
	MarketDataQueueSize      int `yaml:"market_data_queue_size" validate:"gt=0"`
	OrderQueueSize           int `yaml:"order_queue_size" validate:"gt=0"`
	ExecutionReportQueueSize int `yaml:"execution_report_queue_size" validate:"gt=0"`

	Exchanges    []ExchangeConfig `yaml:"exchanges" validate:"max=4,dive"`
	NumExchanges int              `yaml:"num_exchanges" validate:"gt=0,lte=4"`

	Risk RiskLimits `yaml:"risk"`

	FeedRateMsgsPerSec float64 `yaml:"feed_rate_msgs_per_sec" validate:"gt=0"`
	NumInstruments     int     `yaml:"num_instruments" validate:"gt=0,lte=256"`
	InitialPrice       int64   `yaml:"initial_price" validate:"gt=0"`
	Volatility         float64 `yaml:"volatility" validate:"gte=0"`

	MarketMakerSpreadBps float64 `yaml:"market_maker_spread_bps" validate:"gt=0"`
	MaxInventory         int64   `yaml:"max_inventory" validate:"gt=0"`

	PairsLookbackWindow int     `yaml:"pairs_lookback_window" validate:"gt=1"`
	PairsEntryZ         float64 `yaml:"pairs_entry_z" validate:"gt=0"`
	PairsExitZ          float64 `yaml:"pairs_exit_z" validate:"gte=0"`

	MomentumFastWindow int     `yaml:"momentum_fast_window" validate:"gt=0"`
	MomentumSlowWindow int     `yaml:"momentum_slow_window" validate:"gt=0"`
	BreakoutBps        float64 `yaml:"breakout_bps" validate:"gt=0"`

	SimulationDurationMs uint64 `yaml:"simulation_duration_ms" validate:"gt=0"`
	EnableLogging        bool   `yaml:"enable_logging"`
	LogLevel             string `yaml:"log_level" validate:"oneof=trace debug info warn error"`

	// MetricsAddr exposes a Prometheus /metrics endpoint when non-empty,
	// e.g. ":9100". Empty disables it.
	MetricsAddr string `yaml:"metrics_addr"`

	ConfigPath string `yaml:"-"`
	DataPath   string `yaml:"data_path"`
}

// Default returns the configuration the simulator runs with when no
// config file is given.
func Default() SystemConfig {
	return SystemConfig{
		MarketDataCore: 2,
		OrderBookCore:  4,
		StrategyCore:   6,
		ExecutionCore:  8,
		MonitoringCore: 10,

		MarketDataQueueSize:      65536,
		OrderQueueSize:           65536,
		ExecutionReportQueueSize: 65536,

		Exchanges: []ExchangeConfig{
			{ID: 0, Name: "SIM_NYSE", LatencyNS: 500, FillProbability: 0.95, Enabled: true},
			{ID: 1, Name: "SIM_NASDAQ", LatencyNS: 300, FillProbability: 0.98, Enabled: true},
			{ID: 2, Name: "SIM_BATS", LatencyNS: 200, FillProbability: 0.92, Enabled: true},
			{ID: 3, Name: "SIM_ARCA", LatencyNS: 400, FillProbability: 0.90, Enabled: true},
		},
		NumExchanges: 2,

		Risk: RiskLimits{
			MaxPositionPerInstrument: 10000,
			MaxTotalPosition:         50000,
			MaxCapital:               10_000_000.0,
			MaxOrderSize:             1000,
			MaxOrdersPerSecond:       10000,
			MaxPriceDeviationPct:     5.0,
			MaxDrawdownPct:           2.0,
		},

		FeedRateMsgsPerSec: 1_000_000.0,
		NumInstruments:     2,
		InitialPrice:       15000,
		Volatility:         0.001,

		MarketMakerSpreadBps: 10.0,
		MaxInventory:         100,

		PairsLookbackWindow: 100,
		PairsEntryZ:         2.0,
		PairsExitZ:          0.5,

		MomentumFastWindow: 10,
		MomentumSlowWindow: 30,
		BreakoutBps:        5.0,

		SimulationDurationMs: 10000,
		EnableLogging:        true,
		LogLevel:             "info",

		DataPath: "data/sample_market_data.csv",
	}
}

// Load reads a YAML config file over the defaults, then validates the
// result. A missing path returns the validated defaults.
func Load(path string) (SystemConfig, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
		cfg.ConfigPath = path
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks struct tags plus the cross-field constraints the tags
// cannot express: power-of-two queue sizes and the exchange count.
func (c *SystemConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	for _, size := range []int{c.MarketDataQueueSize, c.OrderQueueSize, c.ExecutionReportQueueSize} {
		if size&(size-1) != 0 {
			return fmt.Errorf("config: queue size %d is not a power of two", size)
		}
	}
	if c.NumExchanges > len(c.Exchanges) {
		return fmt.Errorf("config: num_exchanges %d exceeds configured exchanges %d",
			c.NumExchanges, len(c.Exchanges))
	}
	if c.MomentumFastWindow >= c.MomentumSlowWindow {
		return fmt.Errorf("config: momentum fast window %d must be below slow window %d",
			c.MomentumFastWindow, c.MomentumSlowWindow)
	}
	if c.NumInstruments > types.MaxInstruments {
		return fmt.Errorf("config: num_instruments %d exceeds %d", c.NumInstruments, types.MaxInstruments)
	}
	return nil
}

// ActiveExchanges returns the first NumExchanges configured venues.
func (c *SystemConfig) ActiveExchanges() []ExchangeConfig {
	n := c.NumExchanges
	if n > len(c.Exchanges) {
		n = len(c.Exchanges)
	}
	return c.Exchanges[:n]
}
