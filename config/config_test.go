package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func load(t *testing.T, yaml string) (*Config, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	return LoadFromFile(path)
}

func TestLoadCompleteConfig(t *testing.T) {
	cfg, err := load(t, `
mode: PAPER
symbol: ETH/USD
capital: 5000
timeframe_minutes: 5
risk_free_rate: 0.03
strategy:
  name: rsi
  period: 14
  oversold: 30
  overbought: 70
  stop_loss_pct: 0.02
  take_profit_pct: 0.05
journal:
  type: csv
  trades_file: trades.csv
  equity_file: equity.csv
`)
	require.NoError(t, err)

	// Mode is normalized to lower case.
	assert.Equal(t, "paper", cfg.Mode)
	assert.Equal(t, "ETH/USD", cfg.Symbol)
	assert.InDelta(t, 5000.0, cfg.Capital, 1e-9)
	assert.Equal(t, 5, cfg.Timeframe)
	assert.Equal(t, "rsi", cfg.Strategy.Name)
	assert.Equal(t, 14, cfg.Strategy.Period)
	assert.Equal(t, "csv", cfg.Journal.Type)
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := load(t, `
strategy:
  name: sma-cross
  short_window: 10
  long_window: 50
  stop_loss_pct: 0.02
  take_profit_pct: 0.05
data:
  csv_path: candles.csv
`)
	require.NoError(t, err)

	assert.Equal(t, "backtest", cfg.Mode)
	assert.Equal(t, "BTC/USD", cfg.Symbol)
	assert.InDelta(t, 10000.0, cfg.Capital, 1e-9)
	assert.Equal(t, 1, cfg.Timeframe)
	assert.InDelta(t, 0.0401, cfg.RiskFreeRate, 1e-9)
	assert.Equal(t, "sqlite", cfg.Journal.Type)
}

func TestValidateRejectsBadConfigs(t *testing.T) {
	base := func() *Config {
		c := Default()
		c.Strategy = StrategyConfig{
			Name:          "sma-cross",
			ShortWindow:   10,
			LongWindow:    50,
			StopLossPct:   0.02,
			TakeProfitPct: 0.05,
		}
		c.Data.CSVPath = "candles.csv"
		return c
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown mode", func(c *Config) { c.Mode = "dryrun" }},
		{"empty symbol", func(c *Config) { c.Symbol = "" }},
		{"zero capital", func(c *Config) { c.Capital = 0 }},
		{"negative capital", func(c *Config) { c.Capital = -1 }},
		{"zero timeframe", func(c *Config) { c.Timeframe = 0 }},
		{"missing strategy name", func(c *Config) { c.Strategy.Name = "" }},
		{"stop loss zero", func(c *Config) { c.Strategy.StopLossPct = 0 }},
		{"stop loss one", func(c *Config) { c.Strategy.StopLossPct = 1 }},
		{"take profit zero", func(c *Config) { c.Strategy.TakeProfitPct = 0 }},
		{"live without credentials", func(c *Config) { c.Mode = "live" }},
		{"backtest without data", func(c *Config) { c.Data.CSVPath = "" }},
		{"sqlite without path", func(c *Config) { c.Journal.DBPath = "" }},
		{"unknown journal type", func(c *Config) { c.Journal.Type = "parquet" }},
		{"csv journal missing files", func(c *Config) { c.Journal = JournalConfig{Type: "csv"} }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := base()
			tc.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestValidateAcceptsLiveWithCredentials(t *testing.T) {
	c := Default()
	c.Mode = "live"
	c.Strategy = StrategyConfig{
		Name:          "rsi",
		Period:        14,
		Oversold:      30,
		Overbought:    70,
		StopLossPct:   0.02,
		TakeProfitPct: 0.05,
	}
	c.Exchange.APIKey = "key"
	c.Exchange.APISecret = "secret"

	assert.NoError(t, c.Validate())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadMalformedYAML(t *testing.T) {
	_, err := load(t, "mode: [unclosed")
	assert.Error(t, err)
}
