// Package config loads and validates the per-run configuration. The
// schema is typed and validated eagerly at load time: an unknown
// strategy name or a missing required parameter aborts startup before
// the trading loop begins, rather than silently defaulting.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents one complete run configuration.
type Config struct {
	Mode         string  `yaml:"mode"`   // backtest, paper, live
	Symbol       string  `yaml:"symbol"` // e.g. BTC/USD
	Capital      float64 `yaml:"capital"`
	Timeframe    int     `yaml:"timeframe_minutes"`
	RiskFreeRate float64 `yaml:"risk_free_rate"`

	Strategy StrategyConfig `yaml:"strategy"`
	Exchange ExchangeConfig `yaml:"exchange"`
	Journal  JournalConfig  `yaml:"journal"`
	Data     DataConfig     `yaml:"data"`
}

// StrategyConfig is the immutable named-parameter set for one run.
type StrategyConfig struct {
	Name string `yaml:"name"`

	ShortWindow int `yaml:"short_window,omitempty"`
	LongWindow  int `yaml:"long_window,omitempty"`

	Period     int     `yaml:"period,omitempty"`
	Oversold   float64 `yaml:"oversold,omitempty"`
	Overbought float64 `yaml:"overbought,omitempty"`

	StopLossPct   float64 `yaml:"stop_loss_pct"`
	TakeProfitPct float64 `yaml:"take_profit_pct"`
}

// ExchangeConfig holds Kraken connection details. Credentials are only
// required in live mode.
type ExchangeConfig struct {
	APIKey    string `yaml:"api_key,omitempty"`
	APISecret string `yaml:"api_secret,omitempty"`
	RESTURL   string `yaml:"rest_url,omitempty"`
	WSURL     string `yaml:"ws_url,omitempty"`
}

// JournalConfig selects the trade ledger backend.
type JournalConfig struct {
	Type       string `yaml:"type"` // sqlite, csv, none
	DBPath     string `yaml:"db_path,omitempty"`
	TradesFile string `yaml:"trades_file,omitempty"`
	EquityFile string `yaml:"equity_file,omitempty"`
}

// DataConfig points at the historical dataset for backtests.
type DataConfig struct {
	CSVPath string `yaml:"csv_path,omitempty"`
}

// LoadFromFile reads and validates a YAML configuration.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Mode = strings.ToLower(cfg.Mode)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration and fails fast on the first problem.
func (c *Config) Validate() error {
	switch c.Mode {
	case "backtest", "paper", "live":
	default:
		return fmt.Errorf("mode must be backtest, paper, or live, got %q", c.Mode)
	}
	if c.Symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	if c.Capital <= 0 {
		return fmt.Errorf("capital must be positive")
	}
	if c.Timeframe <= 0 {
		return fmt.Errorf("timeframe_minutes must be positive")
	}

	if c.Strategy.Name == "" {
		return fmt.Errorf("strategy.name is required")
	}
	if c.Strategy.StopLossPct <= 0 || c.Strategy.StopLossPct >= 1 {
		return fmt.Errorf("strategy.stop_loss_pct must be in (0, 1)")
	}
	if c.Strategy.TakeProfitPct <= 0 {
		return fmt.Errorf("strategy.take_profit_pct must be positive")
	}

	if c.Mode == "live" && (c.Exchange.APIKey == "" || c.Exchange.APISecret == "") {
		return fmt.Errorf("live mode requires exchange.api_key and exchange.api_secret")
	}
	if c.Mode == "backtest" && c.Data.CSVPath == "" {
		return fmt.Errorf("backtest mode requires data.csv_path")
	}

	switch c.Journal.Type {
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal.db_path required for sqlite journal")
		}
	case "csv":
		if c.Journal.TradesFile == "" || c.Journal.EquityFile == "" {
			return fmt.Errorf("journal.trades_file and journal.equity_file required for csv journal")
		}
	case "none":
	default:
		return fmt.Errorf("journal.type must be sqlite, csv, or none, got %q", c.Journal.Type)
	}

	return nil
}

// Default returns a configuration with sensible defaults. Strategy
// parameters are deliberately not defaulted; missing ones should fail
// loudly at startup.
func Default() *Config {
	return &Config{
		Mode:         "backtest",
		Symbol:       "BTC/USD",
		Capital:      10000,
		Timeframe:    1,
		RiskFreeRate: 0.0401,
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: "./tradebot.sqlite",
		},
	}
}
